package speedb

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLimiterBoundsConcurrentAcquires(t *testing.T) {
	l := NewLimiter(2)
	require.True(t, l.TryAcquire())
	require.True(t, l.TryAcquire())
	require.False(t, l.TryAcquire())

	l.Release()
	require.True(t, l.TryAcquire())
}

func TestLimiterDisabledWhenNonPositive(t *testing.T) {
	l := NewLimiter(0)
	for i := 0; i < 100; i++ {
		require.True(t, l.TryAcquire())
	}
}

func TestLimiterNilReceiverIsPermissive(t *testing.T) {
	var l *Limiter
	require.True(t, l.TryAcquire())
	l.Release() // must not panic
	require.True(t, l.TryAcquireTerminal())
	l.ReleaseTerminal() // must not panic
	l.SetTerminalCapacity(4) // must not panic
}

func TestLimiterTerminalCapacityIsReservedSeparately(t *testing.T) {
	l := NewLimiter(1)
	l.SetTerminalCapacity(1)

	// The terminal reservation is a separate pool from the general one:
	// consuming the lone general slot must not block a terminal acquire.
	require.True(t, l.TryAcquire())
	require.True(t, l.TryAcquireTerminal())
	require.False(t, l.TryAcquireTerminal())

	l.ReleaseTerminal()
	require.True(t, l.TryAcquireTerminal())
}

func TestLimiterSetTerminalCapacityIsIdempotent(t *testing.T) {
	l := NewLimiter(0)
	l.SetTerminalCapacity(1)
	require.True(t, l.TryAcquireTerminal())

	// A second call with a different n must not replace the semaphore
	// backing an already-granted terminal slot.
	l.SetTerminalCapacity(5)
	require.False(t, l.TryAcquireTerminal())
}

func TestLimiterTerminalFallsBackToGeneralPoolWhenUnconfigured(t *testing.T) {
	l := NewLimiter(1)
	require.True(t, l.TryAcquireTerminal())
	require.False(t, l.TryAcquire())
}
