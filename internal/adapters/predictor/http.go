package predictor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/nexeed/teamforge/internal/domain/scoring"
)

// maxErrorBody bounds how much of a failed response ends up in an error.
const maxErrorBody = 512

// HTTPClient calls a model served behind POST {base}/predict.
type HTTPClient struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
}

// NewHTTPClient creates a client for the model at baseURL.
func NewHTTPClient(baseURL string, opts ...HTTPOption) (*HTTPClient, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: predictor_url %q", ErrConfig, baseURL)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/predict"

	c := &HTTPClient{
		endpoint:   u.String(),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Predict implements scoring.Predictor. An unreachable model or a 503 reply
// is reported as scoring.ErrPredictorNotReady.
func (c *HTTPClient) Predict(ctx context.Context, batch [][]float64) ([]float64, error) {
	reqBytes, err := json.Marshal(predictRequest{Instances: batch})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(reqBytes))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %w", scoring.ErrPredictorNotReady, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusServiceUnavailable:
		return nil, fmt.Errorf("%w: status %d", scoring.ErrPredictorNotReady, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		if len(body) > maxErrorBody {
			body = body[:maxErrorBody]
		}
		return nil, fmt.Errorf("%w: status %d: %s", ErrRemote, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out predictResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("%w: decode response: %w", scoring.ErrPredictorContract, err)
	}
	return decode(out)
}

// decode turns a reply body into predictions or the error it carries.
func decode(out predictResponse) ([]float64, error) {
	switch {
	case out.NotReady:
		return nil, scoring.ErrPredictorNotReady
	case out.Error != "":
		return nil, fmt.Errorf("%w: %s", ErrRemote, out.Error)
	}
	return out.Predictions, nil
}
