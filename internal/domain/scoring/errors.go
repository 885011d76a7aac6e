package scoring

import "errors"

// Sentinel error kinds for this package.
var (
	// ErrPredictorNotReady means the learned scorer has no usable predictor.
	ErrPredictorNotReady = errors.New("predictor not ready")
	// ErrPredictorContract means the predictor answered with a malformed batch.
	ErrPredictorContract = errors.New("predictor contract violation")
	ErrInvalidWeights    = errors.New("invalid heuristic weights")
)
