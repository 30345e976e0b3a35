package speedb

import "golang.org/x/sync/semaphore"

// Limiter bounds the number of compactions simultaneously in flight
// across every column family in a database, independent of each column
// family's own per-hyper-level RunningSet bookkeeping. It is an
// admission-control concern the picker's host engine applies on top of
// the picker's decision, not something the decision logic itself needs
// to know about the engine's other column families.
//
// TryAcquire never blocks, preserving §5's guarantee that PickCompaction
// has no suspension points: if the database-wide budget is exhausted,
// the orchestrator simply reports no plan this tick and the engine's
// scheduler will ask again later.
type Limiter struct {
	sem *semaphore.Weighted

	// terminalSem, when set, carves out a dedicated sub-budget for
	// compactions that target the terminal level, sized by
	// SetTerminalCapacity from Options.LastLevelThreadsNum. Terminal-level
	// work competes with every other hyper-level for the general pool
	// otherwise, which starves it under a tight space-amp budget that
	// wants frequent terminal compactions.
	terminalSem *semaphore.Weighted
}

// NewLimiter returns a Limiter admitting at most maxConcurrent
// compactions at a time. A non-positive maxConcurrent disables the
// limiter: every TryAcquire succeeds.
func NewLimiter(maxConcurrent int) *Limiter {
	if maxConcurrent <= 0 {
		return &Limiter{}
	}
	return &Limiter{sem: semaphore.NewWeighted(int64(maxConcurrent))}
}

// TryAcquire reserves one slot, returning false without blocking if none
// are free.
func (l *Limiter) TryAcquire() bool {
	if l == nil || l.sem == nil {
		return true
	}
	return l.sem.TryAcquire(1)
}

// Release returns a slot reserved by a successful TryAcquire. Called by
// the engine once a registered compaction completes or is cancelled.
func (l *Limiter) Release() {
	if l == nil || l.sem == nil {
		return
	}
	l.sem.Release(1)
}

// SetTerminalCapacity establishes the terminal-level reservation at n
// slots the first time it's called; later calls are no-ops so that slots
// already on loan from a prior TryAcquireTerminal stay valid against the
// same semaphore. The picker calls this once per PickCompaction with
// Options.LastLevelThreadsNum(), which is idempotent in practice since the
// underlying option doesn't change once a Picker is constructed.
func (l *Limiter) SetTerminalCapacity(n int) {
	if l == nil || n <= 0 || l.terminalSem != nil {
		return
	}
	l.terminalSem = semaphore.NewWeighted(int64(n))
}

// TryAcquireTerminal reserves one slot from the terminal-level pool if one
// has been configured, else falls back to the general pool.
func (l *Limiter) TryAcquireTerminal() bool {
	if l == nil {
		return true
	}
	if l.terminalSem != nil {
		return l.terminalSem.TryAcquire(1)
	}
	return l.TryAcquire()
}

// ReleaseTerminal returns a slot reserved by a successful TryAcquireTerminal.
func (l *Limiter) ReleaseTerminal() {
	if l == nil {
		return
	}
	if l.terminalSem != nil {
		l.terminalSem.Release(1)
		return
	}
	l.Release()
}
