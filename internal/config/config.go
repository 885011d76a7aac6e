// Package config defines service configuration and its layered loader.
package config

import (
	"fmt"
	"strings"

	"github.com/nexeed/teamforge/internal/domain/model"
	"github.com/nexeed/teamforge/internal/domain/scoring"
)

// Predictor kinds.
const (
	PredictorNone = "none"
	PredictorHTTP = "http"
	PredictorNATS = "nats"
)

// Record store kinds.
const (
	StoreMemory = "memory"
	StoreKV     = "kv"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects text or json output.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// APIKey is required in X-API-Key on matching routes. Empty disables auth.
	APIKey string `koanf:"api_key"`

	// DefaultTeamSize applies when a request omits team_size.
	DefaultTeamSize int `koanf:"default_team_size"`

	// MaxPeople caps the population of a single request.
	MaxPeople int `koanf:"max_people"`

	// RunHistory bounds how many finished runs are kept for replay and lookup.
	RunHistory int `koanf:"run_history"`

	// Workers is the number of runs executed concurrently. Zero uses the CPU count.
	Workers int `koanf:"workers"`

	// QueueSize bounds how many runs may wait for a worker before requests are refused.
	QueueSize int `koanf:"queue_size"`

	// PredictorKind selects the learned scorer backend: none, http or nats.
	PredictorKind string `koanf:"predictor_kind"`

	// PredictorURL is the base URL of an HTTP predictor.
	PredictorURL string `koanf:"predictor_url"`

	// PredictorAPIKey is sent in X-API-Key to an HTTP predictor.
	PredictorAPIKey string `koanf:"predictor_api_key"`

	// PredictorSubject is the NATS subject of a request/reply predictor.
	PredictorSubject string `koanf:"predictor_subject"`

	// PredictorTimeoutMS bounds a single predictor round trip.
	PredictorTimeoutMS int `koanf:"predictor_timeout_ms"`

	// NATSURL is used by the NATS predictor and the KV record store.
	NATSURL string `koanf:"nats_url"`

	// RecordStore selects memory or kv persistence for team records.
	RecordStore string `koanf:"record_store"`

	// RecordBucket names the JetStream KV bucket for team records.
	RecordBucket string `koanf:"record_bucket"`

	// HeuristicWeights overrides the heuristic component weights.
	HeuristicWeights scoring.Weights `koanf:"heuristic_weights"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:           "info",
		LogFormat:          "text",
		Addr:               ":9080",
		DefaultTeamSize:    model.DefaultTeamSize,
		MaxPeople:          2000,
		RunHistory:         1024,
		QueueSize:          64,
		PredictorKind:      PredictorNone,
		PredictorSubject:   "teamforge.predict",
		PredictorTimeoutMS: 5000,
		NATSURL:            "nats://127.0.0.1:4222",
		RecordStore:        StoreMemory,
		RecordBucket:       "teamforge_records",
		HeuristicWeights:   scoring.DefaultWeights(),
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	if c.DefaultTeamSize < model.MinTeamSize {
		return fmt.Errorf("%w: default_team_size must be >= %d", ErrInvalidConfig, model.MinTeamSize)
	}
	if c.MaxPeople <= 0 {
		return fmt.Errorf("%w: max_people must be positive", ErrInvalidConfig)
	}

	if c.RunHistory <= 0 {
		return fmt.Errorf("%w: run_history must be positive", ErrInvalidConfig)
	}
	if c.Workers < 0 {
		return fmt.Errorf("%w: workers must not be negative", ErrInvalidConfig)
	}
	if c.QueueSize <= 0 {
		return fmt.Errorf("%w: queue_size must be positive", ErrInvalidConfig)
	}

	c.PredictorKind = strings.ToLower(strings.TrimSpace(c.PredictorKind))
	switch c.PredictorKind {
	case "", PredictorNone:
		c.PredictorKind = PredictorNone
	case PredictorHTTP:
		if c.PredictorURL == "" {
			return fmt.Errorf("%w: predictor_url is required for the http predictor", ErrInvalidConfig)
		}
	case PredictorNATS:
		if c.NATSURL == "" || c.PredictorSubject == "" {
			return fmt.Errorf("%w: nats_url and predictor_subject are required for the nats predictor", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown predictor_kind %q", ErrInvalidConfig, c.PredictorKind)
	}
	if c.PredictorKind != PredictorNone && c.PredictorTimeoutMS <= 0 {
		return fmt.Errorf("%w: predictor_timeout_ms must be positive", ErrInvalidConfig)
	}

	c.RecordStore = strings.ToLower(strings.TrimSpace(c.RecordStore))
	switch c.RecordStore {
	case "", StoreMemory:
		c.RecordStore = StoreMemory
	case StoreKV:
		if c.NATSURL == "" || c.RecordBucket == "" {
			return fmt.Errorf("%w: nats_url and record_bucket are required for the kv store", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown record_store %q", ErrInvalidConfig, c.RecordStore)
	}

	if err := c.HeuristicWeights.Validate(); err != nil {
		return fmt.Errorf("%w: heuristic_weights: %w", ErrInvalidConfig, err)
	}
	return nil
}

// NeedsNATS reports whether any configured component dials NATS.
func (c *Config) NeedsNATS() bool {
	return c.PredictorKind == PredictorNATS || c.RecordStore == StoreKV
}
