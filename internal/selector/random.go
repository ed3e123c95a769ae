package selector

import (
	"context"

	"github.com/rqlitec/rqlitec/internal/backoff"
	"github.com/rqlitec/rqlitec/internal/randutil"
	"github.com/rqlitec/rqlitec/internal/rqliteerr"
)

// RandomSelector is the default PerQuerySelector. Its first pick is a
// uniform random host, matching the teacher's own rationale for starting
// from a random member rather than always hammering hosts[0]. The rest of
// that first pass is a shuffle of every *other* host — together the free
// pick and that shuffle visit every host exactly once — and every pass
// after that is a fresh shuffle of the full host list, up to
// MaxAttemptsPerHost passes.
type RandomSelector struct {
	hosts []string

	maxRedirects       int
	maxAttemptsPerHost int

	initialIndex  int
	firstReturned bool

	order  []int
	cursor int
	pass   int

	pendingRedirect string
	redirectsUsed   int
}

var _ PerQuerySelector = (*RandomSelector)(nil)

// NewRandomSelector builds a selector over hosts. hosts must be non-empty.
// Options of zero value default MaxAttemptsPerHost to 1 (try every host
// exactly once, no repeat passes) and leave MaxRedirects at 0 (no
// redirects followed).
func NewRandomSelector(hosts []string, opts Options) *RandomSelector {
	if len(hosts) == 0 {
		panic("selector: NewRandomSelector called with an empty host list")
	}
	return newRandomSelectorAt(hosts, opts, randutil.RandomRange(len(hosts)))
}

// newRandomSelectorAt builds a RandomSelector whose free first pick is
// forced to hosts[initialIndex] instead of a fresh random sample. This is
// what LeaderSelector uses once a leader is known: the leader host still
// counts as the one free pick a pass is built around, so the shuffle that
// follows it (which excludes only initialIndex) excludes the leader too,
// instead of a second, unrelated host going unvisited for a pass.
func newRandomSelectorAt(hosts []string, opts Options, initialIndex int) *RandomSelector {
	if opts.MaxAttemptsPerHost <= 0 {
		opts.MaxAttemptsPerHost = 1
	}
	return &RandomSelector{
		hosts:              hosts,
		maxRedirects:       opts.MaxRedirects,
		maxAttemptsPerHost: opts.MaxAttemptsPerHost,
		initialIndex:       initialIndex,
	}
}

// SelectNode returns the next host to try. The very first call is a pure
// lookup (no permutation allocated); every call after that walks a
// permutation of hosts, materializing (or re-materializing, at a pass
// boundary) it lazily.
func (s *RandomSelector) SelectNode(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", &rqliteerr.Canceled{Cause: err}
	}

	if s.pendingRedirect != "" {
		host := s.pendingRedirect
		s.pendingRedirect = ""
		return host, nil
	}

	if !s.firstReturned {
		s.firstReturned = true
		s.redirectsUsed = 0
		return s.hosts[s.initialIndex], nil
	}

	for {
		if s.order == nil {
			// Pass 0: together with the free first pick already returned
			// above, this visits every other host exactly once.
			s.order = s.shuffleExcludingInitial()
			s.cursor = 0
		} else if s.cursor >= len(s.order) {
			// The previous order was fully walked: one full pass just
			// completed. Only now do we charge it against the attempt
			// budget and back off before starting the next one.
			s.pass++
			if s.pass >= s.maxAttemptsPerHost {
				return "", &rqliteerr.HostsExhausted{ShouldLog: true}
			}
			if err := backoff.Sleep(ctx, s.pass-1); err != nil {
				return "", err
			}
			s.order = randutil.RandomShuffle(len(s.hosts))
			s.cursor = 0
		}

		if s.cursor < len(s.order) {
			host := s.hosts[s.order[s.cursor]]
			s.cursor++
			s.redirectsUsed = 0
			return host, nil
		}
		// order is empty (only possible for pass 0 with a single-host
		// list, where "every other host" is the empty set): loop around
		// to complete this pass immediately and move to the next one.
	}
}

// shuffleExcludingInitial returns a uniform permutation of every host index
// except initialIndex, which the caller already tried as the free first
// pick.
func (s *RandomSelector) shuffleExcludingInitial() []int {
	rest := make([]int, 0, len(s.hosts)-1)
	for i := range s.hosts {
		if i != s.initialIndex {
			rest = append(rest, i)
		}
	}
	perm := randutil.RandomShuffle(len(rest))
	order := make([]int, len(rest))
	for i, p := range perm {
		order[i] = rest[p]
	}
	return order
}

func (s *RandomSelector) OnFailure(host string, f Failure) {
	// Nothing to record: the next SelectNode call simply advances to the
	// next host in the current (or next) pass, backing off at pass
	// boundaries on its own.
}

// OnRedirect records that host redirected to target and reports whether it
// will actually be followed: once the redirect budget is spent, the next
// SelectNode call falls through to normal rotation instead.
func (s *RandomSelector) OnRedirect(host, target string) bool {
	if s.redirectsUsed >= s.maxRedirects {
		return false
	}
	s.redirectsUsed++
	s.pendingRedirect = target
	return true
}

func (s *RandomSelector) OnSuccess(host string) {
	// The query is done; the caller discards this selector.
}
