// Package backoff implements the pass-boundary sleep used by the node
// selector between passes over the host list. Its shape — a timer raced
// against cancellation, releasing the timer on every exit path — is lifted
// straight from the teacher's client.ConnectionManager.reconnectLoop
// (exponential interval, capped, jittered), simplified to the one formula
// the specification fixes: 1000*2^pass ms, plus up to 256ms of jitter.
package backoff

import (
	"context"
	"time"

	"github.com/rqlitec/rqlitec/internal/rqliteerr"
	"github.com/rqlitec/rqlitec/internal/randutil"
)

// maxJitterMs bounds the jitter added to every backoff sleep.
const maxJitterMs = 256

// Sleep waits for 1000*2^pass milliseconds plus uniform jitter in
// [0,256)ms, or returns a *rqliteerr.Canceled if ctx fires first. pass is
// 0-indexed: the sleep after the first completed pass uses pass=0.
func Sleep(ctx context.Context, pass int) error {
	if err := ctx.Err(); err != nil {
		return &rqliteerr.Canceled{Cause: err}
	}

	delay := delayFor(pass)
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return &rqliteerr.Canceled{Cause: ctx.Err()}
	case <-timer.C:
		return nil
	}
}

// delayFor computes 1000*2^pass ms + jitter, clamping the exponent so a long
// run of passes can't overflow into a silly duration.
func delayFor(pass int) time.Duration {
	if pass < 0 {
		pass = 0
	}
	const maxExponent = 20 // 1000 * 2^20 ms is already over 12 days; plenty.
	if pass > maxExponent {
		pass = maxExponent
	}
	baseMs := int64(1000) << uint(pass)
	jitterMs := int64(randutil.RandomRange(maxJitterMs))
	return time.Duration(baseMs+jitterMs) * time.Millisecond
}
