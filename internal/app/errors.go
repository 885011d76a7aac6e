package service

import "errors"

var (
	// ErrNotStarted is returned by Match before Start.
	ErrNotStarted = errors.New("service not started")
	// ErrBusy means the run queue is full or shutting down.
	ErrBusy        = errors.New("service busy")
	ErrRunNotFound = errors.New("run not found")
)
