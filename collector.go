package threadpool

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector exports Pool.Stats as Prometheus metrics. Register it with any
// prometheus.Registerer; every scrape takes a fresh snapshot.
type Collector struct {
	pool *Pool

	submitted *prometheus.Desc
	completed *prometheus.Desc
	rejected  *prometheus.Desc
	panicked  *prometheus.Desc
	dropped   *prometheus.Desc
	workers   *prometheus.Desc
	depth     *prometheus.Desc
	capacity  *prometheus.Desc
	executed  *prometheus.Desc
}

// NewCollector returns a Collector for p. All metrics carry a constant pool
// label set to p.ID().
func NewCollector(p *Pool) *Collector {
	labels := prometheus.Labels{"pool": p.ID().String()}
	desc := func(name, help string, variable ...string) *prometheus.Desc {
		return prometheus.NewDesc("threadpool_"+name, help, variable, labels)
	}

	return &Collector{
		pool:      p,
		submitted: desc("tasks_submitted_total", "Tasks accepted or rejected by Submit."),
		completed: desc("tasks_completed_total", "Tasks executed by workers, including panics."),
		rejected:  desc("tasks_rejected_total", "Submissions refused because the target queue was full."),
		panicked:  desc("tasks_panicked_total", "Tasks that panicked during execution."),
		dropped:   desc("tasks_dropped_total", "Queued tasks discarded by an immediate shutdown."),
		workers:   desc("workers", "Number of workers in the pool."),
		depth:     desc("queue_depth", "Tasks waiting in a worker queue.", "worker"),
		capacity:  desc("queue_capacity", "Capacity of a worker queue.", "worker"),
		executed:  desc("worker_tasks_executed_total", "Tasks executed by a worker.", "worker"),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.submitted
	ch <- c.completed
	ch <- c.rejected
	ch <- c.panicked
	ch <- c.dropped
	ch <- c.workers
	ch <- c.depth
	ch <- c.capacity
	ch <- c.executed
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	st := c.pool.Stats()

	ch <- prometheus.MustNewConstMetric(c.submitted, prometheus.CounterValue, float64(st.Submitted))
	ch <- prometheus.MustNewConstMetric(c.completed, prometheus.CounterValue, float64(st.Completed))
	ch <- prometheus.MustNewConstMetric(c.rejected, prometheus.CounterValue, float64(st.Rejected))
	ch <- prometheus.MustNewConstMetric(c.panicked, prometheus.CounterValue, float64(st.Panicked))
	ch <- prometheus.MustNewConstMetric(c.dropped, prometheus.CounterValue, float64(st.Dropped))
	ch <- prometheus.MustNewConstMetric(c.workers, prometheus.GaugeValue, float64(st.NumWorkers))

	for _, ws := range st.Workers {
		id := strconv.Itoa(ws.WorkerID)
		ch <- prometheus.MustNewConstMetric(c.depth, prometheus.GaugeValue, float64(ws.QueueLen), id)
		ch <- prometheus.MustNewConstMetric(c.capacity, prometheus.GaugeValue, float64(ws.Capacity), id)
		ch <- prometheus.MustNewConstMetric(c.executed, prometheus.CounterValue, float64(ws.TasksExecuted), id)
	}
}
