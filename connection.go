// Package rqlitec is a client library for a distributed, SQLite-backed
// database cluster exposed over HTTP with leader-based consensus. A
// Connection dispatches each query independently across the configured
// host list: it picks a node, follows at most a bounded number of
// redirects to the current leader, and retries on failure or a stale read
// up to a bounded number of attempts, all without ever holding connection
// state or participating in leader election itself.
package rqlitec

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rqlitec/rqlitec/internal/driver"
	"github.com/rqlitec/rqlitec/internal/hosturl"
	"github.com/rqlitec/rqlitec/internal/rqliteerr"
	"github.com/rqlitec/rqlitec/internal/selector"
)

// NodeSelector is the per-query selection protocol a Connection drives:
// SelectNode until a host answers, OnFailure/OnRedirect as attempts play
// out, OnSuccess when one lands. Custom implementations are injected via
// ConnectionOptions.NodeSelectorFactory.
type NodeSelector = selector.PerQuerySelector

// NodeSelectorFailure is the failure report passed to a NodeSelector's
// OnFailure callback.
type NodeSelectorFailure = selector.Failure

// Connection dispatches queries against a cluster. It holds no per-request
// state between calls; every exported method is safe to call concurrently
// from multiple goroutines.
type Connection struct {
	opts   ConnectionOptions
	driver *driver.Driver
	logger Logger

	statsBox connectionStats

	healthStop func()
}

// Open parses dsn with ParseDSN and returns a ready Connection.
func Open(dsn string) (*Connection, error) {
	opts, err := ParseDSN(dsn)
	if err != nil {
		return nil, err
	}
	return NewConnection(opts)
}

// NewConnection builds a Connection from an already-constructed
// ConnectionOptions, as returned by DefaultOptions.
func NewConnection(opts ConnectionOptions) (*Connection, error) {
	if len(opts.Hosts) == 0 {
		return nil, fmt.Errorf("rqlitec: ConnectionOptions.Hosts must not be empty")
	}
	hosts := make([]string, len(opts.Hosts))
	for i, h := range opts.Hosts {
		hosts[i] = hosturl.Normalize(h)
	}
	opts.Hosts = hosts

	logger := opts.Logger
	if logger == nil {
		logger = noopLogger{}
	}

	c := &Connection{
		opts:   opts,
		driver: driver.New(opts.ConnectTimeout, opts.ResponseTimeout),
		logger: logger,
	}
	return c, nil
}

// Close stops any background work started by the Connection (currently
// only the health monitor, if started) and closes the driver's idle
// keep-alive connections. A Connection does not own a persistent
// connection the way a database/sql driver.Conn does, so there is nothing
// else to close.
func (c *Connection) Close() error {
	if c.healthStop != nil {
		c.healthStop()
	}
	c.driver.Close()
	return nil
}

// newSelector builds the per-query selector for one dispatch. Backups are
// routed through leader discovery (the server can't redirect a backup, so
// the leader has to be located client-side, and backups run far faster
// against it); everything else uses plain random rotation unless
// UseLeaderDiscovery extends discovery to every query. None-level reads
// never probe for the leader — any fresh-enough node can serve them.
func (c *Connection) newSelector(level Consistency, forBackup bool) NodeSelector {
	if c.opts.NodeSelectorFactory != nil {
		return c.opts.NodeSelectorFactory(c.opts.Hosts, level, forBackup)
	}
	selOpts := selector.Options{
		MaxRedirects:       c.opts.MaxRedirects,
		MaxAttemptsPerHost: c.opts.MaxAttemptsPerHost,
	}
	if level != None && (forBackup || c.opts.UseLeaderDiscovery) {
		return selector.NewLeaderSelector(c.opts.Hosts, selOpts, nil)
	}
	return selector.NewRandomSelector(c.opts.Hosts, selOpts)
}

func (c *Connection) authHeaders() map[string][]string {
	if c.opts.Username == "" {
		return nil
	}
	return map[string][]string{"Authorization": {"Basic " + basicAuthToken(c.opts.Username, c.opts.Password)}}
}

// errStaleRead is the internal signal dispatch hands back when a
// None-level read came back flagged stale: not a caller-visible error, but
// the cue for the query layer to reissue the same statement once at Weak.
var errStaleRead = errors.New("stale read")

// dispatch drives one query through a fresh selector: pick a host, attempt
// it, follow redirects, and retry failures with backoff. It returns the
// decoded response body on success, errStaleRead if detectStale is set and
// the server flagged the read stale, or the terminal error
// (*rqliteerr.HostsExhausted, *rqliteerr.Canceled, *rqliteerr.ServerErr,
// *rqliteerr.ProtocolErr) otherwise. isRead picks which pair of named
// logging hooks (readStart/readResponse vs writeStart/writeResponse) fires
// around each attempt; level only influences which selector serves the
// query.
func (c *Connection) dispatch(ctx context.Context, method, path string, body []byte, isRead bool, level Consistency, detectStale bool) (*rawResponse, error) {
	sel := c.newSelector(level, false)
	attempts := 0

	for {
		host, err := sel.SelectNode(ctx)
		if err != nil {
			if he, ok := err.(*rqliteerr.HostsExhausted); ok {
				if he.ShouldLog {
					c.logger.OnHostsExhausted(c.opts.Hosts)
				}
				c.recordExhausted()
			}
			return nil, err
		}
		attempts++
		c.recordAttempt(host)

		target := host + path
		if isRead {
			c.logger.OnReadStart(host, path)
		} else {
			c.logger.OnWriteStart(host, path)
		}

		start := time.Now()
		res, err := c.driver.Do(ctx, method, target, body, toHeader(c.authHeaders()))
		if err != nil {
			return nil, err
		}

		switch res.Outcome {
		case driver.Redirect:
			to, ok := hosturl.BaseURL(res.RedirectLocation)
			if !ok {
				sel.OnFailure(host, selector.Failure{})
				c.logger.OnNonOkResponse(host, res.StatusCode)
				continue
			}
			if sel.OnRedirect(host, to) {
				c.logger.OnFollowRedirect(host, to)
				c.recordRedirect(to)
			}
			continue

		case driver.Failure:
			sel.OnFailure(host, selector.Failure{Err: res.Err})
			switch res.FailureKind {
			case driver.FailureConnectTimeout:
				c.logger.OnConnectTimeout(host)
			case driver.FailureReadTimeout:
				c.logger.OnReadTimeout(host)
			case driver.FailureNonOKResponse:
				c.logger.OnNonOkResponse(host, res.StatusCode)
			default:
				c.logger.OnFetchError(host, res.Err)
			}
			continue

		case driver.Success:
			c.maybeLogSlowQuery(host, start, res.HeaderArrival)

			var parsed rawResponse
			if err := json.Unmarshal(res.Body, &parsed); err != nil {
				return nil, &rqliteerr.ProtocolErr{Message: "decoding response: " + err.Error()}
			}
			if detectStale && isStaleRead(&parsed) {
				// The node answered fine; the data just wasn't fresh
				// enough. The caller reissues at Weak, with its own fresh
				// selector and full budgets.
				sel.OnSuccess(host)
				c.logger.OnReadStale(host)
				return nil, errStaleRead
			}
			if parsed.Error != "" {
				sel.OnFailure(host, selector.Failure{})
				return nil, &rqliteerr.ServerErr{Message: parsed.Error}
			}
			sel.OnSuccess(host)
			if isRead {
				c.logger.OnReadResponse(host, attempts, time.Since(start))
			} else {
				c.logger.OnWriteResponse(host, attempts, time.Since(start))
			}
			c.recordSuccess(host)
			return &parsed, nil
		}
	}
}

func (c *Connection) maybeLogSlowQuery(host string, start, headerArrival time.Time) {
	if c.opts.SlowQueryThreshold <= 0 || headerArrival.IsZero() {
		return
	}
	if elapsed := headerArrival.Sub(start); elapsed > c.opts.SlowQueryThreshold {
		c.logger.OnSlowQuery(host, elapsed)
	}
}

// isStaleRead recognizes both placements the server uses for the stale
// condition: the top-level error field, and a per-item error on the one
// statement a single read sends.
func isStaleRead(r *rawResponse) bool {
	if r.Error == rqliteerr.StaleReadMessage {
		return true
	}
	for _, item := range r.Results {
		if item.Error == rqliteerr.StaleReadMessage {
			return true
		}
	}
	return false
}

func toHeader(h map[string][]string) http.Header { return http.Header(h) }
