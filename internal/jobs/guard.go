package job

import "sync/atomic"

// runGuard lets at most one run of a job proceed. Overlapping ticks are
// dropped, never queued.
type runGuard struct {
	running atomic.Bool
}

func (g *runGuard) tryEnter() bool {
	return g.running.CompareAndSwap(false, true)
}

func (g *runGuard) leave() {
	g.running.Store(false)
}
