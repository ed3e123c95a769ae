package rqlitec

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/rqlitec/rqlitec/internal/driver"
)

// StartHealthMonitor launches a background goroutine that periodically
// probes every configured host directly (bypassing the node selector) with
// a None-consistency "SELECT 1" and records each host's liveness into
// Stats().HostLiveness. It exists purely as an observability convenience —
// grounded on the same periodic-probe shape as the teacher's own heartbeat
// loop — and is never consulted by dispatch: HostLiveness is for a
// caller's dashboards, not for routing the next query.
//
// Calling StartHealthMonitor a second time replaces the previous monitor.
// Close stops it.
func (c *Connection) StartHealthMonitor(interval time.Duration) {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if c.healthStop != nil {
		c.healthStop()
	}

	ctx, cancel := context.WithCancel(context.Background())
	c.healthStop = cancel

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.ProbeHosts(ctx)
			}
		}
	}()
}

// ProbeHosts issues one direct "SELECT 1" against every configured host,
// records the outcome into Stats().HostLiveness, and returns it. Unlike a
// dispatched Query, each host is contacted directly rather than through the
// node selector, so a down host is reported as such instead of being
// silently skipped in favor of the next one.
func (c *Connection) ProbeHosts(ctx context.Context) map[string]bool {
	live := make(map[string]bool, len(c.opts.Hosts))
	for _, host := range c.opts.Hosts {
		live[host] = c.probeHost(ctx, host)
	}
	c.recordLiveness(live)
	return live
}

func (c *Connection) probeHost(ctx context.Context, host string) bool {
	probeCtx, cancel := context.WithTimeout(ctx, c.opts.ResponseTimeout)
	defer cancel()

	target := host + "/db/query?level=none&freshness=" + url.QueryEscape(c.opts.Freshness.String())
	res, err := c.driver.Do(probeCtx, http.MethodPost, target, []byte(`[["SELECT 1"]]`), nil)
	return err == nil && res != nil && res.Outcome == driver.Success
}
