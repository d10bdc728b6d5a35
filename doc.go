// Package threadpool is a fixed-size pool of OS-thread-bound workers.
//
// Every worker owns a bounded lock-free queue. Submit places each task on
// the next worker in round-robin order and fails fast with ErrQueueFull when
// that worker's queue is full. Tasks on one worker run in submission order.
// There is no ordering across workers and no work stealing.
//
//	p, err := threadpool.New(4, 256)
//	if err != nil {
//		return err
//	}
//	defer p.Close()
//
//	err = p.Submit(func(arg any) { handle(arg.(*Request)) }, req)
package threadpool
