package threadpool

import (
	"fmt"
	"runtime"
	"sync/atomic"
)

type workerState uint32

const (
	workerStarting workerState = iota
	workerRunning
	workerSpinning
	workerParked
	workerStopped
)

func (s workerState) String() string {
	switch s {
	case workerStarting:
		return "STARTING"
	case workerRunning:
		return "RUNNING"
	case workerSpinning:
		return "SPINNING"
	case workerParked:
		return "PARKED"
	case workerStopped:
		return "STOPPED"
	default:
		return "UNKNOWN"
	}
}

// worker owns one OS thread and drains exactly one TaskQueue. It is the only
// consumer of that queue.
type worker struct {
	id    int
	pool  *Pool
	queue *TaskQueue

	state  atomic.Uint32
	parked atomic.Bool
	wake   chan struct{}

	executed atomic.Uint64
	panicked atomic.Uint64
}

func newWorker(id int, pool *Pool, capacity int) *worker {
	return &worker{
		id:    id,
		pool:  pool,
		queue: NewTaskQueue(capacity),
		wake:  make(chan struct{}, 1),
	}
}

// run is the body of the worker goroutine. The setup result is sent on ready
// before polling starts.
//
// The goroutine never unlocks its thread, so the runtime discards the thread
// when run returns, along with any affinity applied to it.
func (w *worker) run(ready chan<- error) {
	runtime.LockOSThread()

	if err := w.setup(); err != nil {
		w.state.Store(uint32(workerStopped))
		ready <- err
		return
	}
	w.state.Store(uint32(workerRunning))
	w.pool.log.Debug("worker started", "worker", w.id)
	ready <- nil

	w.loop()
	w.exit()
}

func (w *worker) setup() error {
	cfg := &w.pool.cfg
	if n := len(cfg.CPUAffinity); n > 0 {
		if err := setAffinity(cfg.CPUAffinity[w.id%n]); err != nil {
			return err
		}
	}
	if cfg.OnWorkerStart != nil {
		if err := cfg.OnWorkerStart(w.id); err != nil {
			return fmt.Errorf("on start hook: %w", err)
		}
	}
	return nil
}

func (w *worker) loop() {
	p := w.pool
	idle := 0

	for {
		if p.mode.Load() != 0 {
			return
		}

		if t, ok := w.queue.Pop(); ok {
			if idle != 0 {
				w.state.Store(uint32(workerRunning))
				idle = 0
			}
			w.execute(t)
			runtime.Gosched()
			continue
		}

		if idle < p.cfg.SpinCount {
			if idle == 0 {
				w.state.Store(uint32(workerSpinning))
			}
			idle++
			runtime.Gosched()
			continue
		}

		w.park()
		idle = 0
	}
}

// park blocks until a submitter wakes the worker, the pool stops, or the park
// timer fires. parked is published before the queue is re-checked, and
// submitters push before reading parked, so one of the two sides always sees
// the other.
func (w *worker) park() {
	p := w.pool

	w.state.Store(uint32(workerParked))
	w.parked.Store(true)
	defer func() {
		w.parked.Store(false)
		w.state.Store(uint32(workerRunning))
	}()

	if w.queue.Len() > 0 || p.mode.Load() != 0 {
		return
	}

	p.timers.sleep(p.cfg.maxParkTime(), w.wake, p.stopCh)
}

// signal wakes the worker if it is parked.
func (w *worker) signal() {
	if !w.parked.Load() {
		return
	}
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

func (w *worker) execute(t Task) {
	p := w.pool
	defer func() {
		if r := recover(); r != nil {
			w.panicked.Add(1)
			p.panicked.Add(1)
			p.faults.record(w.id, r)
			if p.cfg.PanicHandler != nil {
				p.cfg.PanicHandler(w.id, r)
			}
			if p.cfg.LogAllErrors {
				p.log.Error("task panicked", "worker", w.id, "panic", r)
			}
		}
		w.executed.Add(1)
		p.completed.Add(1)
	}()

	t.Fn(t.Arg)
}

// exit finishes whatever the shutdown mode requires with the tasks left in
// the queue. No producer can push any more by the time mode is set.
func (w *worker) exit() {
	p := w.pool

	if ShutdownMode(p.mode.Load()) == Graceful {
		for {
			t, ok := w.queue.Pop()
			if !ok {
				break
			}
			w.execute(t)
		}
	} else {
		for {
			t, ok := w.queue.Pop()
			if !ok {
				break
			}
			p.dropped.Add(1)
			// a Do caller is still waiting on this one
			if wt, ok := t.Arg.(*waiter); ok {
				wt.abandon(ErrAlreadyShutdown)
			}
		}
	}

	w.state.Store(uint32(workerStopped))
	if p.cfg.OnWorkerStop != nil {
		p.cfg.OnWorkerStop(w.id)
	}
	p.log.Debug("worker stopped", "worker", w.id)
}
