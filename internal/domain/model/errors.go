package model

import "errors"

// Sentinel error kinds for this package.
var (
	ErrInvalidRequest = errors.New("invalid matching request")
)
