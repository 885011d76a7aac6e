package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/nexeed/teamforge/internal/adapters/http/api"
	"github.com/nexeed/teamforge/internal/adapters/http/swagger"
	"github.com/nexeed/teamforge/internal/adapters/predictor"
	"github.com/nexeed/teamforge/internal/adapters/repository"
	service "github.com/nexeed/teamforge/internal/app"
	"github.com/nexeed/teamforge/internal/config"
	"github.com/nexeed/teamforge/internal/domain/scoring"
	"github.com/nexeed/teamforge/pkg/logger"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 60 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
)

func main() {
	// Drop the default Go collectors; the service exports its own system metrics.
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		// Use stderr for initialization errors since logger isn't available yet
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := logger.Init(logger.WithFormat(cfg.LogFormat)); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	log := logger.Get()
	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	if err := run(ctx, cfg, log); err != nil {
		log.Error(ctx, "teamforge exited", logger.Error(err))
		os.Exit(1)
	}
}

// run wires the configured components and serves HTTP until ctx is done.
func run(ctx context.Context, cfg *config.Config, log logger.Logger) error {
	var nc *nats.Conn
	if cfg.NeedsNATS() {
		var err error
		nc, err = nats.Connect(cfg.NATSURL, nats.Name("teamforge"), nats.MaxReconnects(-1))
		if err != nil {
			return fmt.Errorf("connect nats %s: %w", cfg.NATSURL, err)
		}
		defer nc.Close()
		log.Info(ctx, "connected to nats", logger.String("url", cfg.NATSURL))
	}

	opts := []service.Option{
		service.WithLogger(log.Named("service")),
		service.WithHeuristicWeights(cfg.HeuristicWeights),
		service.WithMaxPeople(cfg.MaxPeople),
		service.WithRunHistory(cfg.RunHistory),
		service.WithWorkerCount(cfg.Workers),
		service.WithQueueSize(cfg.QueueSize),
	}

	p, err := newPredictor(cfg, nc, log)
	if err != nil {
		return err
	}
	if p != nil {
		opts = append(opts, service.WithPredictor(p))
	}

	if cfg.RecordStore == config.StoreKV {
		js, err := jetstream.New(nc)
		if err != nil {
			return fmt.Errorf("jetstream: %w", err)
		}
		store, err := repository.NewKVStore(ctx, js, cfg.RecordBucket)
		if err != nil {
			return err
		}
		opts = append(opts, service.WithStore(store))
	}

	svc := service.New(opts...)
	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("start service: %w", err)
	}
	defer svc.Stop()

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newMux(ctx, cfg, svc),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}
	log.Info(ctx, "shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}
	log.Info(ctx, "server stopped")
	return nil
}

// newPredictor returns the configured learned-scorer backend, or nil when
// learned runs are disabled.
func newPredictor(cfg *config.Config, nc *nats.Conn, log logger.Logger) (scoring.Predictor, error) {
	timeout := time.Duration(cfg.PredictorTimeoutMS) * time.Millisecond
	switch cfg.PredictorKind {
	case config.PredictorHTTP:
		c, err := predictor.NewHTTPClient(cfg.PredictorURL,
			predictor.WithHTTPTimeout(timeout),
			predictor.WithAPIKey(cfg.PredictorAPIKey),
		)
		if err != nil {
			return nil, err
		}
		return predictor.Instrument(c, config.PredictorHTTP, log.Named("predictor")), nil
	case config.PredictorNATS:
		c, err := predictor.NewNATSClient(nc, cfg.PredictorSubject, predictor.WithRequestTimeout(timeout))
		if err != nil {
			return nil, err
		}
		return predictor.Instrument(c, config.PredictorNATS, log.Named("predictor")), nil
	default:
		return nil, nil
	}
}

// newMux registers the API docs and business routes.
func newMux(ctx context.Context, cfg *config.Config, svc *service.Service) *http.ServeMux {
	mux := http.NewServeMux()
	swagger.Register(ctx, mux)
	api.NewServer(svc, svc,
		api.WithAPIKey(cfg.APIKey),
		api.WithDefaults(cfg.DefaultTeamSize),
	).Register(ctx, mux)
	return mux
}
