package predictor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/nexeed/teamforge/internal/domain/scoring"
	"github.com/nexeed/teamforge/pkg/logger"
)

// QueueGroup is shared by every responder so each request is answered once.
const QueueGroup = "teamforge-predictors"

// NATSClient sends predict requests over NATS request/reply.
type NATSClient struct {
	nc      *nats.Conn
	subject string
	timeout time.Duration
}

// NewNATSClient creates a client publishing on subject.
func NewNATSClient(nc *nats.Conn, subject string, opts ...NATSOption) (*NATSClient, error) {
	if nc == nil || strings.TrimSpace(subject) == "" {
		return nil, fmt.Errorf("%w: nats connection and subject are required", ErrConfig)
	}
	c := &NATSClient{nc: nc, subject: subject, timeout: defaultTimeout}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Predict implements scoring.Predictor. No responder, or no reply within the
// timeout, is reported as scoring.ErrPredictorNotReady.
func (c *NATSClient) Predict(ctx context.Context, batch [][]float64) ([]float64, error) {
	data, err := json.Marshal(predictRequest{Instances: batch})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	msg, err := c.nc.RequestWithContext(reqCtx, c.subject, data)
	switch {
	case err == nil:
	case ctx.Err() != nil:
		return nil, ctx.Err()
	case errors.Is(err, nats.ErrNoResponders),
		errors.Is(err, nats.ErrTimeout),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, nats.ErrConnectionClosed):
		return nil, fmt.Errorf("%w: %w", scoring.ErrPredictorNotReady, err)
	default:
		return nil, fmt.Errorf("request %s: %w", c.subject, err)
	}

	var out predictResponse
	if err := json.Unmarshal(msg.Data, &out); err != nil {
		return nil, fmt.Errorf("%w: decode reply: %w", scoring.ErrPredictorContract, err)
	}
	return decode(out)
}

// Serve answers predict requests on subject with p. Responders join
// QueueGroup. The caller owns the returned subscription.
func Serve(nc *nats.Conn, subject string, p scoring.Predictor, l logger.Logger) (*nats.Subscription, error) {
	if nc == nil || p == nil {
		return nil, fmt.Errorf("%w: nats connection and predictor are required", ErrConfig)
	}
	if l == nil {
		l = logger.Get().Named("predictor-responder")
	}

	return nc.QueueSubscribe(subject, QueueGroup, func(msg *nats.Msg) {
		ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
		defer cancel()

		var resp predictResponse
		var req predictRequest
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			resp.Error = "malformed request: " + err.Error()
		} else if out, err := p.Predict(ctx, req.Instances); err != nil {
			if errors.Is(err, scoring.ErrPredictorNotReady) {
				resp.NotReady = true
			} else {
				resp.Error = err.Error()
			}
		} else {
			resp.Predictions = out
		}

		data, err := json.Marshal(resp)
		if err != nil {
			l.Error(ctx, "marshal predict reply", logger.Error(err))
			return
		}
		if err := msg.Respond(data); err != nil {
			l.Warn(ctx, "respond to predict request", logger.String("subject", subject), logger.Error(err))
		}
	})
}
