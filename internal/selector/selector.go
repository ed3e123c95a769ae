// Package selector implements per-query node selection: which host a
// request goes to first, what happens on redirect, what happens on failure,
// and when a query gives up on the whole cluster. It is grounded on the
// teacher's client.ConnectionManager (host rotation on reconnect) and
// generalized to the specification's per-query state machine: a fresh
// selector is born per query, not per connection.
package selector

import "context"

// Failure is the outcome reported to OnFailure: a host either refused the
// connection (network-level) or returned a response the driver could not
// use.
type Failure struct {
	Err error
}

// PerQuerySelector drives one query's host selection from start to either a
// successful response or a HostsExhausted error. Callers construct one per
// query and drive it through SelectNode/OnFailure/OnRedirect/OnSuccess until
// it returns an error from SelectNode.
type PerQuerySelector interface {
	// SelectNode returns the next host to try, or an error: a
	// *rqliteerr.HostsExhausted once the attempt budget is spent, or a
	// *rqliteerr.Canceled if ctx is done (including during a backoff sleep).
	SelectNode(ctx context.Context) (string, error)

	// OnFailure records that the host returned by the most recent
	// SelectNode call failed outright (connection refused, timeout, 5xx).
	OnFailure(host string, f Failure)

	// OnRedirect records that the host returned by the most recent
	// SelectNode call redirected to target, and reports whether it will
	// actually be followed (the next SelectNode call returning target
	// directly) or whether the redirect budget is already spent.
	OnRedirect(host, target string) bool

	// OnSuccess records that the host returned by the most recent
	// SelectNode call answered successfully.
	OnSuccess(host string)
}

// Options configures a PerQuerySelector.
type Options struct {
	// MaxRedirects bounds how many redirects are followed from one selected
	// host; the count resets each time a new host is picked from the
	// rotation. Once it is spent, a further redirect is not followed and
	// the next SelectNode call moves on to the next host. It is independent
	// of the attempt budget.
	MaxRedirects int

	// MaxAttemptsPerHost bounds how many full passes over the host list a
	// query makes before giving up. A "pass" both wraps the host list and
	// counts as one unit against this budget; the budget is inclusive, i.e.
	// the query gives up once attempts >= MaxAttemptsPerHost.
	MaxAttemptsPerHost int
}
