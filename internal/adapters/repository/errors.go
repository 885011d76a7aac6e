package repository

import "errors"

// Sentinel kinds for record store errors.
var (
	ErrNotFound        = errors.New("run records not found")
	ErrMalformedRecord = errors.New("malformed team record")
)
