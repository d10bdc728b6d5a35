package threadpool

import (
	"sync"
	"time"
)

// timerPool recycles the timers behind worker parking and Do deadlines.
// A timer is stopped and drained before it is re-armed or pooled.
type timerPool struct {
	p sync.Pool
}

func (tp *timerPool) acquire(d time.Duration) *time.Timer {
	d = max(d, 0)
	if v := tp.p.Get(); v != nil {
		t := v.(*time.Timer)
		stopAndDrainTimer(t)
		t.Reset(d)
		return t
	}
	return time.NewTimer(d)
}

func (tp *timerPool) release(t *time.Timer) {
	stopAndDrainTimer(t)
	tp.p.Put(t)
}

// sleep blocks for at most d, returning early when wake or stop fires.
// It reports whether the full duration elapsed.
func (tp *timerPool) sleep(d time.Duration, wake, stop <-chan struct{}) bool {
	t := tp.acquire(d)
	defer tp.release(t)

	select {
	case <-wake:
		return false
	case <-stop:
		return false
	case <-t.C:
		return true
	}
}

func stopAndDrainTimer(t *time.Timer) {
	if !t.Stop() {
		// already fired; C may still hold the tick
		select {
		case <-t.C:
		default:
		}
	}
}
