package selector

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"
	"time"

	"github.com/rqlitec/rqlitec/internal/driver"
	"github.com/stretchr/testify/require"
)

// hostFromURL returns srv.URL as-is: selector package hosts are expected to
// already be absolute base URLs (scheme+host), the normalization to get
// there having already happened one layer up, in ConnectionOptions.
func hostFromURL(t *testing.T, url string) string {
	t.Helper()
	return url
}

func TestLeaderSelectorFollowsProbeRedirect(t *testing.T) {
	leaderSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"results":[{"columns":["1"],"values":[[1]]}]}`))
	}))
	defer leaderSrv.Close()
	leaderHost := hostFromURL(t, leaderSrv.URL)

	followerSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Location", leaderSrv.URL+"/")
		w.WriteHeader(http.StatusMovedPermanently)
	}))
	defer followerSrv.Close()
	followerHost := hostFromURL(t, followerSrv.URL)

	hosts := []string{followerHost, leaderHost}

	// Run enough iterations that the free first pick lands on the follower
	// at least once, forcing the redirect path.
	sawLeader := false
	for i := 0; i < 20; i++ {
		s := NewLeaderSelector(hosts, Options{MaxAttemptsPerHost: 1}, driver.New(time.Second, time.Second))
		host, err := s.SelectNode(context.Background())
		require.NoError(t, err)
		if host == leaderHost {
			sawLeader = true
		}
	}
	require.True(t, sawLeader, "expected the leader probe to resolve to the leader at least once across random starts")
}

func TestLeaderSelectorAcceptsOKProbeAsLeader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"results":[{"columns":["1"],"values":[[1]]}]}`))
	}))
	defer srv.Close()
	host := hostFromURL(t, srv.URL)

	s := NewLeaderSelector([]string{host}, Options{MaxAttemptsPerHost: 1}, driver.New(time.Second, time.Second))
	got, err := s.SelectNode(context.Background())
	require.NoError(t, err)
	require.Equal(t, host, got)
}

func TestLeaderSelectorFallsBackWhenAllProbesFail(t *testing.T) {
	hosts := []string{"http://unreachable-host.invalid:1", "http://also-unreachable.invalid:1"}
	s := NewLeaderSelector(hosts, Options{MaxAttemptsPerHost: 1}, driver.New(50*time.Millisecond, 50*time.Millisecond))

	host, err := s.SelectNode(context.Background())
	require.NoError(t, err)
	require.Contains(t, hosts, host)
}

// TestLeaderSelectorOnePassVisitsEveryHostOnceEvenWhenLeaderDiffers covers a
// >=3-host cluster where the discovered leader can differ from whichever
// host the fresh real selector's own random free pick would have landed on.
// Every host must still appear exactly once across the pass: the leader
// must not be visited twice, and no other host may go unvisited.
func TestLeaderSelectorOnePassVisitsEveryHostOnceEvenWhenLeaderDiffers(t *testing.T) {
	leaderSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"results":[{"columns":["1"],"values":[[1]]}]}`))
	}))
	defer leaderSrv.Close()
	leaderHost := hostFromURL(t, leaderSrv.URL)

	// Every follower redirects straight to the leader, so discovery always
	// resolves to leaderHost regardless of which follower the probe picks
	// first.
	newFollower := func() *httptest.Server {
		return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Location", leaderSrv.URL+"/")
			w.WriteHeader(http.StatusMovedPermanently)
		}))
	}
	followerA := newFollower()
	defer followerA.Close()
	followerB := newFollower()
	defer followerB.Close()

	hosts := []string{hostFromURL(t, followerA.URL), hostFromURL(t, followerB.URL), leaderHost}

	for trial := 0; trial < 20; trial++ {
		s := NewLeaderSelector(hosts, Options{MaxAttemptsPerHost: 1}, driver.New(time.Second, time.Second))

		var seen []string
		for i := 0; i < len(hosts); i++ {
			host, err := s.SelectNode(context.Background())
			require.NoError(t, err)
			seen = append(seen, host)
			s.OnFailure(host, Failure{})
		}

		sort.Strings(seen)
		want := append([]string(nil), hosts...)
		sort.Strings(want)
		require.Equal(t, want, seen, "pass must contact exactly the configured host set, no duplicates or omissions")
	}
}

func TestLeaderSelectorDelegatesRealRequestToFreshBudget(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"results":[{"columns":["1"],"values":[[1]]}]}`))
	}))
	defer srv.Close()
	host := hostFromURL(t, srv.URL)

	s := NewLeaderSelector([]string{host}, Options{MaxAttemptsPerHost: 2}, driver.New(time.Second, time.Second))
	first, err := s.SelectNode(context.Background())
	require.NoError(t, err)
	require.Equal(t, host, first)

	// The real request's own selector should still have its full attempt
	// budget: a failure now should not immediately exhaust.
	s.OnFailure(first, Failure{})
	second, err := s.SelectNode(context.Background())
	require.NoError(t, err)
	require.Equal(t, host, second)
}
