//go:build !linux

package threadpool

// setAffinity is a no-op where thread affinity is not supported.
func setAffinity(int) error { return nil }
