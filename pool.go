package threadpool

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// ShutdownMode selects what Destroy does with tasks still queued.
type ShutdownMode uint32

const (
	// Immediate stops every worker after its current task and drops the rest.
	Immediate ShutdownMode = iota + 1
	// Graceful lets every worker execute its queued tasks before stopping.
	Graceful
)

func (m ShutdownMode) String() string {
	switch m {
	case Immediate:
		return "immediate"
	case Graceful:
		return "graceful"
	default:
		return fmt.Sprintf("ShutdownMode(%d)", uint32(m))
	}
}

const (
	poolRunning uint32 = iota
	poolStopping
	poolStopped
)

// Pool is a fixed set of workers, each locked to its own OS thread and fed
// from its own bounded lock-free queue. Submissions are assigned round robin.
type Pool struct {
	cfg     Config
	id      uuid.UUID
	log     *slog.Logger
	workers []*worker
	sched   *roundRobin

	state      atomic.Uint32
	mode       atomic.Uint32 // ShutdownMode, zero while running
	submitting atomic.Int64  // Submit calls past the state check
	stopCh     chan struct{}
	done       chan struct{}
	wg         sync.WaitGroup

	timers timerPool
	faults *faultLog

	submitted atomic.Uint64
	rejected  atomic.Uint64
	completed atomic.Uint64
	panicked  atomic.Uint64
	dropped   atomic.Uint64
}

// New starts a pool of threads workers with queueCapacity slots each, using
// DefaultConfig for everything else.
func New(threads, queueCapacity int) (*Pool, error) {
	cfg := DefaultConfig()
	cfg.Threads = threads
	cfg.QueueCapacity = queueCapacity
	return NewWithConfig(cfg)
}

// NewWithConfig validates cfg and starts all workers. Either every worker is
// running when it returns, or none is and the error wraps ErrInvalidArgument
// or ErrThreadCreation.
func NewWithConfig(cfg Config) (*Pool, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	p := newPool(cfg)
	if err := p.start(); err != nil {
		return nil, err
	}
	return p, nil
}

// newPool allocates the pool and its queues without starting any worker.
func newPool(cfg Config) *Pool {
	p := &Pool{
		cfg:     cfg,
		id:      uuid.New(),
		workers: make([]*worker, cfg.Threads),
		sched:   newRoundRobin(cfg.Threads),
		stopCh:  make(chan struct{}),
		done:    make(chan struct{}),
		faults:  newFaultLog(),
	}
	p.log = cfg.logger().With("pool", p.id.String())
	for i := range p.workers {
		p.workers[i] = newWorker(i, p, cfg.QueueCapacity)
	}
	return p
}

func (p *Pool) start() error {
	ready := make(chan error, 1)
	for _, w := range p.workers {
		p.wg.Add(1)
		go func(w *worker) {
			defer p.wg.Done()
			w.run(ready)
		}(w)

		if err := <-ready; err != nil {
			p.log.Error("worker failed to start", "worker", w.id, "error", err)
			p.stop(Immediate)
			p.wg.Wait()
			return fmt.Errorf("%w: worker %d: %w", ErrThreadCreation, w.id, err)
		}
	}

	go func() {
		p.wg.Wait()
		p.state.Store(poolStopped)
		close(p.done)
	}()

	p.log.Info("pool started", "threads", len(p.workers), "queue_capacity", p.cfg.QueueCapacity)
	return nil
}

func (p *Pool) stop(mode ShutdownMode) {
	p.mode.Store(uint32(mode))
	close(p.stopCh)
}

// Submit queues fn(arg) on the next worker in rotation. It never blocks and
// never retries another worker: a full target queue yields ErrQueueFull.
//
// arg is handed to fn as is; the caller must keep whatever it references
// valid until fn has run.
func (p *Pool) Submit(fn TaskFunc, arg any) error {
	if fn == nil {
		return ErrNilTask
	}

	if p.state.Load() != poolRunning {
		return ErrAlreadyShutdown
	}

	p.submitting.Add(1)
	defer p.submitting.Add(-1)

	// Destroy may have won between the check above and the increment.
	if p.state.Load() != poolRunning {
		return ErrAlreadyShutdown
	}
	p.submitted.Add(1)

	w := p.workers[p.sched.next()]
	if err := w.queue.Push(Task{Fn: fn, Arg: arg}); err != nil {
		p.rejected.Add(1)
		return err
	}
	w.signal()
	return nil
}

// SubmitFunc is Submit for a closure.
func (p *Pool) SubmitFunc(fn func()) error {
	if fn == nil {
		return ErrNilTask
	}
	return p.Submit(callFunc, fn)
}

func callFunc(arg any) {
	arg.(func())()
}

// Do submits fn(arg) and waits up to timeout for it to finish. The task is
// never cancelled: after ErrTimeout it still runs, just unobserved.
// A panicking task yields ErrTaskPanicked.
func (p *Pool) Do(fn TaskFunc, arg any, timeout time.Duration) error {
	if fn == nil {
		return ErrNilTask
	}

	w := acquireWaiter()
	w.fn = fn
	w.arg = arg
	w.status.Store(statusQueued)

	if err := p.Submit(runWaiter, w); err != nil {
		releaseWaiter(w)
		return err
	}

	timer := p.timers.acquire(timeout)
	defer p.timers.release(timer)

	select {
	case err := <-w.done:
		for !w.status.CompareAndSwap(statusDone, statusReleased) {
			// the worker has not yet had time to set Done after send
			runtime.Gosched()
		}
		releaseWaiter(w)
		return err

	case <-timer.C:
	slowpath:
		st := w.status.Load()
		switch st {
		case statusQueued, statusProgress:
			if !w.status.CompareAndSwap(st, statusReleased) {
				goto slowpath
			}
			return ErrTimeout

		case statusDone:
			// finished just as the timer fired
			err := <-w.done
			if !w.status.CompareAndSwap(statusDone, statusReleased) {
				panic("BUG: waiter invariant violation")
			}
			releaseWaiter(w)
			return err

		default:
			panic(fmt.Sprintf("BUG: unexpected waiter status: %d", st))
		}
	}
}

// Destroy stops the pool and blocks until every worker thread has exited or
// ctx is done. Only the first call does anything; later calls return
// ErrAlreadyShutdown.
//
// If ctx ends first the error wraps ErrJoinFailure. The workers have still
// been told to stop and Done is closed once they have.
func (p *Pool) Destroy(ctx context.Context, mode ShutdownMode) error {
	if mode != Immediate && mode != Graceful {
		return fmt.Errorf("%w: unknown shutdown mode %d", ErrInvalidArgument, uint32(mode))
	}
	if !p.state.CompareAndSwap(poolRunning, poolStopping) {
		return ErrAlreadyShutdown
	}

	// Workers are stopped only once Submit calls that got past the state
	// check have landed their task, so the queues are final before anything
	// is drained or dropped. A ctx that ends during that wait does not
	// cancel the stop.
	go func() {
		for p.submitting.Load() != 0 {
			runtime.Gosched()
		}
		p.stop(mode)
	}()

	select {
	case <-p.done:
		p.log.Info("pool stopped", "mode", mode.String(), "dropped", p.dropped.Load())
		return nil
	case <-ctx.Done():
		p.log.Warn("pool stop timed out", "mode", mode.String(), "error", ctx.Err())
		return fmt.Errorf("%w: %w", ErrJoinFailure, ctx.Err())
	}
}

// Close is Destroy(context.Background(), Graceful).
func (p *Pool) Close() error {
	return p.Destroy(context.Background(), Graceful)
}

// Done is closed once every worker thread has exited.
func (p *Pool) Done() <-chan struct{} {
	return p.done
}

// IsShutdown reports whether Destroy has been called.
func (p *Pool) IsShutdown() bool {
	return p.state.Load() != poolRunning
}

// ID identifies the pool in logs and metrics.
func (p *Pool) ID() uuid.UUID {
	return p.id
}

// NumWorkers returns the fixed number of workers.
func (p *Pool) NumWorkers() int {
	return len(p.workers)
}

// QueueCapacity returns the fixed capacity of each worker's queue.
func (p *Pool) QueueCapacity() int {
	return p.cfg.QueueCapacity
}

// Faults drains the record of recent task panics, oldest first.
func (p *Pool) Faults() []Fault {
	return p.faults.drain()
}
