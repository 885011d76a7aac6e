package queue

import "errors"

// Sentinel kinds for enqueue failures.
var (
	ErrFull   = errors.New("run queue full")
	ErrClosed = errors.New("run queue closed")
)
