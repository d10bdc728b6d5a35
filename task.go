package threadpool

import (
	"fmt"
	"sync"
	"sync/atomic"
)

const (
	statusFree     = 0
	statusQueued   = 1
	statusProgress = 2
	statusDone     = 3
	statusReleased = 4
)

// waiter carries a Do call through the queue. Exactly one of Do and the
// worker returns it to waiterPool; the status CAS decides which.
type waiter struct {
	fn     TaskFunc
	arg    any
	done   chan error
	status atomic.Uint64
}

var waiterPool sync.Pool

func acquireWaiter() *waiter {
	if w := waiterPool.Get(); w != nil {
		return w.(*waiter)
	}
	return &waiter{
		done: make(chan error, 1),
	}
}

func releaseWaiter(w *waiter) {
	select {
	case <-w.done:
	default:
	}
	w.fn = nil
	w.arg = nil
	w.status.Store(statusFree)
	waiterPool.Put(w)
}

// runWaiter is the TaskFunc submitted by Do. A panic is reported to the
// waiting caller and then re-raised so the worker accounts for it as usual.
func runWaiter(arg any) {
	w := arg.(*waiter)

	// fails only if Do already gave up; the task runs regardless
	w.status.CompareAndSwap(statusQueued, statusProgress)

	fn, fnArg := w.fn, w.arg
	defer func() {
		r := recover()
		var err error
		if r != nil {
			err = fmt.Errorf("%w: %v", ErrTaskPanicked, r)
		}
		w.finish(err)
		if r != nil {
			panic(r)
		}
	}()

	fn(fnArg)
}

func (w *waiter) finish(err error) {
	select {
	case w.done <- err:
	default:
	}

	if w.status.CompareAndSwap(statusProgress, statusDone) {
		return
	}
	if w.status.CompareAndSwap(statusReleased, statusDone) {
		releaseWaiter(w)
		return
	}
	panic(fmt.Sprintf("BUG: waiter invariant violation: status %d", w.status.Load()))
}

// abandon completes a waiter whose task was dropped without running.
func (w *waiter) abandon(err error) {
	w.status.CompareAndSwap(statusQueued, statusProgress)
	w.finish(err)
}
