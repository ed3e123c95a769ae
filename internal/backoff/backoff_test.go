package backoff

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rqlitec/rqlitec/internal/rqliteerr"
)

func TestSleepRespectsCancellationBeforeStarting(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := Sleep(ctx, 3)
	var canceled *rqliteerr.Canceled
	require.ErrorAs(t, err, &canceled)
	require.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestSleepRespectsCancellationMidSleep(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	err := Sleep(ctx, 2) // would otherwise sleep ~4s
	var canceled *rqliteerr.Canceled
	require.ErrorAs(t, err, &canceled)
	require.Less(t, time.Since(start), time.Second)
}

func TestDelayForDoublesPerPassWithBoundedJitter(t *testing.T) {
	for pass := 0; pass < 4; pass++ {
		base := time.Duration(1000<<uint(pass)) * time.Millisecond
		for i := 0; i < 20; i++ {
			d := delayFor(pass)
			require.GreaterOrEqual(t, d, base)
			require.Less(t, d, base+maxJitterMs*time.Millisecond)
		}
	}
}

func TestDelayForClampsLargePasses(t *testing.T) {
	clampedBase := time.Duration(1000<<20) * time.Millisecond
	for _, pass := range []int{21, 100, 1 << 30} {
		d := delayFor(pass)
		require.GreaterOrEqual(t, d, clampedBase)
		require.Less(t, d, clampedBase+maxJitterMs*time.Millisecond)
	}
}
