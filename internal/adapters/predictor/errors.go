package predictor

import "errors"

var (
	// ErrRemote means the model answered with an error of its own.
	ErrRemote = errors.New("predictor remote error")
	// ErrConfig means a client was built without a usable endpoint.
	ErrConfig = errors.New("invalid predictor configuration")
)
