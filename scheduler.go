package threadpool

import "sync/atomic"

// roundRobin hands out worker indexes in a fixed rotation, ignoring load.
// Every call consumes exactly one tick, so concurrent callers never collide
// on the same tick.
type roundRobin struct {
	tick atomic.Uint64
	n    uint64
}

func newRoundRobin(n int) *roundRobin {
	return &roundRobin{n: uint64(n)}
}

func (r *roundRobin) next() int {
	return int((r.tick.Add(1) - 1) % r.n)
}
