package threadpool

import (
	"runtime"
	"time"

	"github.com/aradilov/ringbuffer"
)

// faultLogSize is the number of most recent panics kept for Faults.
const faultLogSize = 64

// Fault describes a task that panicked on a worker.
type Fault struct {
	WorkerID int
	Value    any
	Stack    []byte
	Time     time.Time
}

// faultLog keeps the latest faults; every worker produces into it and
// Faults drains it.
type faultLog struct {
	q *ringbuffer.MPMC[Fault]
}

func newFaultLog() *faultLog {
	return &faultLog{q: ringbuffer.NewMPMC[Fault](faultLogSize)}
}

func (l *faultLog) record(workerID int, v any) {
	buf := make([]byte, 4096)
	buf = buf[:runtime.Stack(buf, false)]

	f := Fault{WorkerID: workerID, Value: v, Stack: buf, Time: time.Now()}
	for !l.q.Enqueue(f) {
		// full: evict the oldest entry and retry
		l.q.Dequeue()
	}
}

func (l *faultLog) drain() []Fault {
	var out []Fault
	for {
		f, ok := l.q.Dequeue()
		if !ok {
			return out
		}
		out = append(out, f)
	}
}
