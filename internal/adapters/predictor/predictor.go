// Package predictor connects the learned scorer to a remote regression model.
//
// Both transports carry the same JSON body: a request holds the ordered pair
// vectors under "instances" and the reply holds one value per instance under
// "predictions".
package predictor

import (
	"context"
	"errors"
	"time"

	"github.com/nexeed/teamforge/internal/domain/scoring"
	"github.com/nexeed/teamforge/pkg/logger"
	"github.com/nexeed/teamforge/pkg/metrics"
)

const defaultTimeout = 5 * time.Second

type predictRequest struct {
	Instances [][]float64 `json:"instances"`
}

type predictResponse struct {
	Predictions []float64 `json:"predictions"`
	Error       string    `json:"error,omitempty"`
	NotReady    bool      `json:"not_ready,omitempty"`
}

// Instrumented records metrics for every call of the wrapped predictor and
// logs failures.
type Instrumented struct {
	next   scoring.Predictor
	name   string
	logger logger.Logger
}

// Instrument wraps p. name identifies the transport in logs.
func Instrument(p scoring.Predictor, name string, l logger.Logger) *Instrumented {
	if l == nil {
		l = logger.Get().Named("predictor")
	}
	return &Instrumented{next: p, name: name, logger: l}
}

// Predict implements scoring.Predictor.
func (p *Instrumented) Predict(ctx context.Context, batch [][]float64) ([]float64, error) {
	start := time.Now()
	out, err := p.next.Predict(ctx, batch)
	elapsed := time.Since(start)

	outcome := metrics.OutcomeOK
	switch {
	case err == nil:
	case errors.Is(err, scoring.ErrPredictorNotReady):
		outcome = metrics.OutcomeNotReady
	default:
		outcome = metrics.OutcomeError
	}
	metrics.RecordPredictorCall(outcome, len(batch), float64(elapsed.Milliseconds()))

	if err != nil {
		p.logger.Warn(ctx, "predictor call failed",
			logger.String("transport", p.name),
			logger.Int("pairs", len(batch)),
			logger.Duration("elapsed", elapsed),
			logger.Error(err),
		)
	}
	return out, err
}
