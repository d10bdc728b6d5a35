package threadpool

import "errors"

var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrThreadCreation  = errors.New("worker thread creation failed")
	ErrQueueFull       = errors.New("queue is full")
	ErrNilTask         = errors.New("task is nil")
	ErrAlreadyShutdown = errors.New("pool already shut down")
	ErrJoinFailure     = errors.New("failed to join worker threads")
	ErrTimeout         = errors.New("timeout")
	ErrTaskPanicked    = errors.New("task panicked")
)
