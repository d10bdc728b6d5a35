package threadpool

import (
	"errors"
	"sync"
	"testing"
)

func TestRoundRobin_Rotation(t *testing.T) {
	rr := newRoundRobin(3)
	want := []int{0, 1, 2, 0, 1, 2, 0}
	for i, w := range want {
		if got := rr.next(); got != w {
			t.Fatalf("call %d: expected %d, got %d", i, w, got)
		}
	}
}

func TestRoundRobin_ConcurrentEvenSpread(t *testing.T) {
	const (
		n          = 4
		goroutines = 8
		perG       = 1000
	)
	rr := newRoundRobin(n)

	var mu sync.Mutex
	counts := make([]int, n)
	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			local := make([]int, n)
			for i := 0; i < perG; i++ {
				local[rr.next()]++
			}
			mu.Lock()
			for i, c := range local {
				counts[i] += c
			}
			mu.Unlock()
		}()
	}
	wg.Wait()

	for i, c := range counts {
		if c != goroutines*perG/n {
			t.Fatalf("worker %d: expected %d, got %d", i, goroutines*perG/n, c)
		}
	}
}

func queueArgs(q *TaskQueue) []int {
	var out []int
	for {
		task, ok := q.Pop()
		if !ok {
			return out
		}
		out = append(out, task.Arg.(int))
	}
}

// Workers are never started here, so nothing pops behind the test's back.
func TestSubmit_RoundRobinAssignment(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Threads = 2
	cfg.QueueCapacity = 4
	p := newPool(cfg)

	for i := 1; i <= 8; i++ {
		if err := p.Submit(func(any) {}, i); err != nil {
			t.Fatalf("T%d: unexpected error %v", i, err)
		}
	}
	if err := p.Submit(func(any) {}, 9); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("T9: expected ErrQueueFull, got %v", err)
	}

	// T9 took worker0's turn, so T10 goes to worker1 which is full as well
	if err := p.Submit(func(any) {}, 10); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("T10: expected ErrQueueFull, got %v", err)
	}

	got0 := queueArgs(p.workers[0].queue)
	got1 := queueArgs(p.workers[1].queue)
	if !equalInts(got0, []int{1, 3, 5, 7}) {
		t.Fatalf("worker0: got %v", got0)
	}
	if !equalInts(got1, []int{2, 4, 6, 8}) {
		t.Fatalf("worker1: got %v", got1)
	}

	st := p.Stats()
	if st.Submitted != 10 || st.Rejected != 2 {
		t.Fatalf("unexpected stats %+v", st)
	}
}

func TestSubmit_RotationContinuesAcrossBatches(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Threads = 3
	cfg.QueueCapacity = 16
	p := newPool(cfg)

	// leave the rotation mid-cycle
	_ = p.Submit(func(any) {}, 0)

	const k = 4
	for i := 0; i < k*3; i++ {
		if err := p.Submit(func(any) {}, i+1); err != nil {
			t.Fatalf("submit: %v", err)
		}
	}

	if got := p.workers[0].queue.Len(); got != k+1 {
		t.Fatalf("worker0: expected %d, got %d", k+1, got)
	}
	for i := 1; i < 3; i++ {
		if got := p.workers[i].queue.Len(); got != k {
			t.Fatalf("worker%d: expected %d, got %d", i, k, got)
		}
	}
	// the batch started at worker1
	if args := queueArgs(p.workers[1].queue); args[0] != 1 {
		t.Fatalf("expected batch to start at worker1, got %v", args)
	}
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
