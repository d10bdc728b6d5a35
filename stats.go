package threadpool

// Stats is a snapshot of pool counters. It is assembled from independent
// atomic loads, so fields may disagree slightly while tasks are in flight.
type Stats struct {
	Submitted uint64
	Completed uint64
	Rejected  uint64
	Panicked  uint64
	Dropped   uint64

	NumWorkers         int
	TotalQueueDepth    int
	TotalQueueCapacity int
	// Utilization is TotalQueueDepth/TotalQueueCapacity in percent.
	Utilization float64

	Workers []WorkerStats
}

// WorkerStats describes a single worker.
type WorkerStats struct {
	WorkerID      int
	TasksExecuted uint64
	TasksPanicked uint64
	QueueLen      int
	Capacity      int
	State         string
}

// Stats returns a snapshot of the current pool metrics.
func (p *Pool) Stats() Stats {
	st := Stats{
		Submitted:  p.submitted.Load(),
		Completed:  p.completed.Load(),
		Rejected:   p.rejected.Load(),
		Panicked:   p.panicked.Load(),
		Dropped:    p.dropped.Load(),
		NumWorkers: len(p.workers),
		Workers:    make([]WorkerStats, len(p.workers)),
	}

	for i, w := range p.workers {
		ws := WorkerStats{
			WorkerID:      w.id,
			TasksExecuted: w.executed.Load(),
			TasksPanicked: w.panicked.Load(),
			QueueLen:      w.queue.Len(),
			Capacity:      w.queue.Cap(),
			State:         workerState(w.state.Load()).String(),
		}
		st.TotalQueueDepth += ws.QueueLen
		st.TotalQueueCapacity += ws.Capacity
		st.Workers[i] = ws
	}

	if st.TotalQueueCapacity > 0 {
		st.Utilization = float64(st.TotalQueueDepth) / float64(st.TotalQueueCapacity) * 100
	}
	return st
}
