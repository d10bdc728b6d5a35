package threadpool

import (
	"fmt"
	"sync/atomic"

	"github.com/aradilov/ringbuffer"
)

// TaskFunc is the unit of work executed by a worker. The argument is passed
// through untouched: the pool never copies, retains or frees it once the call
// returns, so keeping it valid until then is the caller's job.
type TaskFunc func(arg any)

// Task pairs a function with its argument.
type Task struct {
	Fn  TaskFunc
	Arg any
}

// TaskQueue is a bounded multi-producer/single-consumer queue of tasks.
//
// count is the fullness gate: a producer reserves a unit of it before
// touching the ring and the consumer gives it back after a slot is freed, so
// at most Cap() tasks are ever claimed. The ring is sized to the next power
// of two (at least 2) and therefore always has a free slot for a producer
// holding a reservation. Pop must only ever be called from one goroutine at
// a time (the owning worker).
type TaskQueue struct {
	_ [64]byte

	count atomic.Int64

	_ [56]byte

	ring *ringbuffer.MPSC[Task]
	size int64
}

// NewTaskQueue returns an empty queue holding at most capacity tasks.
func NewTaskQueue(capacity int) *TaskQueue {
	if capacity < 1 || capacity > MaxQueue {
		panic(fmt.Sprintf("BUG: TaskQueue capacity must be in [1, %d], got %d", MaxQueue, capacity))
	}
	return &TaskQueue{
		ring: ringbuffer.NewMPSC[Task](uint64(max(2, nextPow2(capacity)))),
		size: int64(capacity),
	}
}

// Push appends t to the queue or returns ErrQueueFull. Safe for concurrent use.
func (q *TaskQueue) Push(t Task) error {
	for {
		n := q.count.Load()
		if n >= q.size {
			return ErrQueueFull
		}
		if q.count.CompareAndSwap(n, n+1) {
			break
		}
	}

	if !q.ring.Enqueue(t) {
		panic("BUG: TaskQueue ring full while holding a reservation")
	}
	return nil
}

// Pop removes the oldest task. Single consumer only.
func (q *TaskQueue) Pop() (Task, bool) {
	if q.count.Load() == 0 {
		return Task{}, false
	}

	t, ok := q.ring.Dequeue()
	if !ok {
		// reserved but not yet published
		return Task{}, false
	}
	q.count.Add(-1)
	return t, true
}

// Len returns the number of reserved, unconsumed tasks. A task whose producer
// is still inside Push is counted before Pop can see it.
func (q *TaskQueue) Len() int {
	return int(q.count.Load())
}

// Cap returns the fixed capacity.
func (q *TaskQueue) Cap() int {
	return int(q.size)
}

func nextPow2(n int) int {
	if n <= 1 {
		return 1
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n++
	return n
}
