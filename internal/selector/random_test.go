package selector

import (
	"context"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/require"

	"github.com/rqlitec/rqlitec/internal/rqliteerr"
)

func TestRandomSelectorFirstCallAlwaysSucceeds(t *testing.T) {
	hosts := []string{"a:1", "b:2", "c:3"}
	for i := 0; i < 50; i++ {
		s := NewRandomSelector(hosts, Options{MaxAttemptsPerHost: 1})
		host, err := s.SelectNode(context.Background())
		require.NoError(t, err)
		require.Contains(t, hosts, host)
	}
}

func TestRandomSelectorExhaustsAfterMaxAttempts(t *testing.T) {
	hosts := []string{"a:1", "b:2", "c:3"}
	const maxAttempts = 3
	s := NewRandomSelector(hosts, Options{MaxAttemptsPerHost: maxAttempts})

	attempts := 0
	for {
		host, err := s.SelectNode(context.Background())
		if err != nil {
			var exhausted *rqliteerr.HostsExhausted
			require.ErrorAs(t, err, &exhausted)
			break
		}
		require.Contains(t, hosts, host)
		s.OnFailure(host, Failure{})
		attempts++
		require.LessOrEqualf(t, attempts, maxAttempts*len(hosts)+1, "selector did not exhaust in bounded time")
	}
}

func TestRandomSelectorSingleHostRespectsAttemptBudget(t *testing.T) {
	hosts := []string{"only:1"}
	const maxAttempts = 2
	s := NewRandomSelector(hosts, Options{MaxAttemptsPerHost: maxAttempts})

	successfulCalls := 0
	for {
		host, err := s.SelectNode(context.Background())
		if err != nil {
			break
		}
		require.Equal(t, "only:1", host)
		s.OnFailure(host, Failure{})
		successfulCalls++
	}
	require.Equal(t, maxAttempts, successfulCalls)
}

func TestRandomSelectorRedirectConsumesBudget(t *testing.T) {
	hosts := []string{"a:1", "b:2"}
	s := NewRandomSelector(hosts, Options{MaxAttemptsPerHost: 1, MaxRedirects: 1})

	host, err := s.SelectNode(context.Background())
	require.NoError(t, err)

	s.OnRedirect(host, "leader:9")
	next, err := s.SelectNode(context.Background())
	require.NoError(t, err)
	require.Equal(t, "leader:9", next)

	// Redirect budget is spent; a second redirect is ignored.
	s.OnRedirect(next, "someone-else:9")
	after, err := s.SelectNode(context.Background())
	require.NoError(t, err)
	require.NotEqual(t, "someone-else:9", after)
}

// TestRandomSelectorOnePassVisitsEveryHostExactlyOnce checks testable
// property 4: within one pass, the set of hosts contacted is exactly the
// configured host list, with no duplicates and no omissions, regardless of
// which host the free first pick happens to land on.
func TestRandomSelectorOnePassVisitsEveryHostExactlyOnce(t *testing.T) {
	hosts := []string{"a:1", "b:2", "c:3", "d:4", "e:5"}
	for trial := 0; trial < 20; trial++ {
		s := NewRandomSelector(hosts, Options{MaxAttemptsPerHost: 1})

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
		if diff := cmp.Diff(want, seen, cmpopts.EquateEmpty()); diff != "" {
			t.Fatalf("pass did not visit exactly the host set (-want +got):\n%s", diff)
		}
	}
}

func TestRandomSelectorHonorsCancellation(t *testing.T) {
	hosts := []string{"a:1"}
	s := NewRandomSelector(hosts, Options{MaxAttemptsPerHost: 5})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.SelectNode(ctx)
	var canceled *rqliteerr.Canceled
	require.ErrorAs(t, err, &canceled)
}
