package selector

import (
	"context"
	"net/http"
	"time"

	"github.com/rqlitec/rqlitec/internal/driver"
	"github.com/rqlitec/rqlitec/internal/hosturl"
	"github.com/rqlitec/rqlitec/internal/rqliteerr"
)

// probeTimeout bounds each node's leader probe; a slow or unreachable node
// is reported as a failure and the next one is tried rather than letting a
// single hung node stall discovery.
const probeTimeout = 250 * time.Millisecond

// probeBody is the single-statement batch body every leader probe sends:
// a trivial, side-effect-free read the cluster can answer from any node.
const probeBody = `[["SELECT 1"]]`

// probePath asks for a weak read (never none: a none-level probe could
// itself come back stale) with redirect=true, so a follower is expected to
// point us at the leader via Location rather than silently answering.
const probePath = "/db/query?level=weak&redirect"

// LeaderSelector wraps a RandomSelector with one opportunistic improvement:
// before its first real pick, it probes a node with a trivial weak read and
// follows whatever redirect comes back to locate the leader directly,
// instead of leaving leader discovery to however many redirects the real
// request happens to eat into its own budget. Grounded on
// client/heartbeat.go's HeartbeatManager: a separately-timed liveness
// check layered next to the main request path, not part of it.
type LeaderSelector struct {
	hosts []string
	opts  Options

	probeDriver *driver.Driver
	probeOrder  *RandomSelector

	resolved bool
	leader   string

	real *RandomSelector
}

var _ PerQuerySelector = (*LeaderSelector)(nil)

// NewLeaderSelector builds a LeaderSelector over hosts. probeDriver issues
// the one-shot leader probes; if nil, a short-timeout driver of its own is
// used so a hung node can't stall every query behind it.
func NewLeaderSelector(hosts []string, opts Options, probeDriver *driver.Driver) *LeaderSelector {
	if probeDriver == nil {
		probeDriver = driver.New(probeTimeout, probeTimeout)
	}
	return &LeaderSelector{
		hosts:       hosts,
		opts:        opts,
		probeDriver: probeDriver,
		probeOrder:  NewRandomSelector(hosts, Options{MaxAttemptsPerHost: 1, MaxRedirects: 0}),
	}
}

func (s *LeaderSelector) SelectNode(ctx context.Context) (string, error) {
	if !s.resolved {
		leader, err := s.discoverLeader(ctx)
		if err != nil {
			return "", err
		}
		s.resolved = true
		s.leader = leader
		s.real = s.newRealSelector()
	}
	return s.real.SelectNode(ctx)
}

// newRealSelector builds the fresh, full-budget selector the real request
// dispatches against once the leader is known (or known unknowable). When
// a leader was found, its index is used as the forced free first pick
// instead of a fresh random sample: that way the leader is still the one
// host "already tried" going into the pass, and the shuffle that covers
// the rest of the host list (which excludes exactly that one index)
// excludes the leader rather than some other, unrelated host.
func (s *LeaderSelector) newRealSelector() *RandomSelector {
	if s.leader != "" {
		for i, h := range s.hosts {
			if h == s.leader {
				return newRandomSelectorAt(s.hosts, s.opts, i)
			}
		}
	}
	return NewRandomSelector(s.hosts, s.opts)
}

func (s *LeaderSelector) OnFailure(host string, f Failure) { s.real.OnFailure(host, f) }
func (s *LeaderSelector) OnRedirect(host, target string) bool {
	return s.real.OnRedirect(host, target)
}
func (s *LeaderSelector) OnSuccess(host string) { s.real.OnSuccess(host) }

// discoverLeader probes nodes, via probeOrder, with a weak "SELECT 1" read
// carrying redirect=true, until one of: a redirect names the leader, a node
// answers OK (meaning it is itself the leader), every node is exhausted, or
// the context is canceled. A node that errors, times out, or answers
// non-OK is reported to probeOrder.OnFailure and the next node is tried.
func (s *LeaderSelector) discoverLeader(ctx context.Context) (string, error) {
	for {
		host, err := s.probeOrder.SelectNode(ctx)
		if err != nil {
			// probeOrder exhausted (or canceled): fall back to plain
			// random selection over the full list rather than failing the
			// query outright over a discovery-only probe.
			if _, ok := err.(*rqliteerr.HostsExhausted); ok {
				return "", nil
			}
			return "", err
		}

		target := host + probePath
		res, doErr := s.probeDriver.Do(ctx, http.MethodPost, target, []byte(probeBody), nil)
		if doErr != nil {
			if _, ok := doErr.(*rqliteerr.Canceled); ok {
				return "", doErr
			}
			s.probeOrder.OnFailure(host, Failure{Err: doErr})
			continue
		}

		switch res.Outcome {
		case driver.Redirect:
			base, ok := hosturl.BaseURL(res.RedirectLocation)
			if !ok {
				s.probeOrder.OnFailure(host, Failure{})
				continue
			}
			return base, nil

		case driver.Success:
			return host, nil

		default:
			s.probeOrder.OnFailure(host, Failure{})
		}
	}
}
