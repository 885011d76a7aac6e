package predictor_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nexeed/teamforge/internal/adapters/predictor"
	"github.com/nexeed/teamforge/internal/domain/scoring"
	"github.com/nexeed/teamforge/pkg/logger"
)

func init() {
	_ = logger.Init()
}

// sumModel predicts the sum of each instance.
func sumModel(_ context.Context, batch [][]float64) ([]float64, error) {
	out := make([]float64, len(batch))
	for i, row := range batch {
		for _, v := range row {
			out[i] += v
		}
	}
	return out, nil
}

func modelServer(t *testing.T, calls *atomic.Int64) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls != nil {
			calls.Add(1)
		}
		if r.Method != http.MethodPost || r.URL.Path != "/v1/predict" {
			http.NotFound(w, r)
			return
		}
		var req struct {
			Instances [][]float64 `json:"instances"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		out, _ := sumModel(r.Context(), req.Instances)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"predictions": out})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestHTTPClient_Predict(t *testing.T) {
	var calls atomic.Int64
	srv := modelServer(t, &calls)

	c, err := predictor.NewHTTPClient(srv.URL + "/v1/")
	require.NoError(t, err)

	out, err := c.Predict(context.Background(), [][]float64{{1, 2}, {3, 4}, {0.5}})
	require.NoError(t, err)
	require.Equal(t, []float64{3, 7, 0.5}, out)
	require.EqualValues(t, 1, calls.Load())
}

func TestHTTPClient_SendsAPIKey(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("X-API-Key")
		_, _ = w.Write([]byte(`{"predictions":[1]}`))
	}))
	defer srv.Close()

	c, err := predictor.NewHTTPClient(srv.URL, predictor.WithAPIKey("secret"))
	require.NoError(t, err)
	_, err = c.Predict(context.Background(), [][]float64{{1}})
	require.NoError(t, err)
	require.Equal(t, "secret", got)
}

func TestHTTPClient_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{"model not loaded", http.StatusServiceUnavailable, `{"detail":"Model not loaded"}`, scoring.ErrPredictorNotReady},
		{"not ready flag", http.StatusOK, `{"not_ready":true}`, scoring.ErrPredictorNotReady},
		{"server error", http.StatusInternalServerError, "boom", predictor.ErrRemote},
		{"remote error field", http.StatusOK, `{"error":"bad shape"}`, predictor.ErrRemote},
		{"malformed body", http.StatusOK, "not json", scoring.ErrPredictorContract},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c, err := predictor.NewHTTPClient(srv.URL)
			require.NoError(t, err)
			_, err = c.Predict(context.Background(), [][]float64{{1}})
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestHTTPClient_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := predictor.NewHTTPClient(url, predictor.WithHTTPTimeout(time.Second))
	require.NoError(t, err)
	_, err = c.Predict(context.Background(), [][]float64{{1}})
	require.ErrorIs(t, err, scoring.ErrPredictorNotReady)
}

func TestHTTPClient_ContextCancelled(t *testing.T) {
	srv := modelServer(t, nil)
	c, err := predictor.NewHTTPClient(srv.URL + "/v1")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = c.Predict(ctx, [][]float64{{1}})
	require.ErrorIs(t, err, context.Canceled)
}

func TestNewHTTPClient_InvalidURL(t *testing.T) {
	for _, u := range []string{"", "localhost:8000", "://bad"} {
		_, err := predictor.NewHTTPClient(u)
		require.ErrorIs(t, err, predictor.ErrConfig, u)
	}
}

func TestInstrument(t *testing.T) {
	failing := scoring.PredictorFunc(func(context.Context, [][]float64) ([]float64, error) {
		return nil, errors.New("down")
	})

	p := predictor.Instrument(scoring.PredictorFunc(sumModel), "test", nil)
	out, err := p.Predict(context.Background(), [][]float64{{1, 1}})
	require.NoError(t, err)
	require.Equal(t, []float64{2}, out)

	_, err = predictor.Instrument(failing, "test", nil).Predict(context.Background(), [][]float64{{1}})
	require.EqualError(t, err, "down")
}

func TestLearnedScorerOverHTTP(t *testing.T) {
	var calls atomic.Int64
	srv := modelServer(t, &calls)
	c, err := predictor.NewHTTPClient(srv.URL + "/v1")
	require.NoError(t, err)

	s := scoring.NewLearnedScorer(predictor.Instrument(c, "http", nil))
	m, err := s.Matrix(context.Background(), cohort())
	require.NoError(t, err)
	require.Equal(t, 4, m.Size())
	require.EqualValues(t, 1, calls.Load())
	require.Equal(t, m.At(0, 1), m.At(1, 0))
}
