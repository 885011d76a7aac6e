// Package service runs team-formation requests end to end and keeps the
// results the HTTP API serves.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v4"

	runqueue "github.com/nexeed/teamforge/internal/adapters/mq/queue"
	workerpool "github.com/nexeed/teamforge/internal/adapters/mq/worker"
	"github.com/nexeed/teamforge/internal/adapters/repository"
	"github.com/nexeed/teamforge/internal/domain/dedupe"
	"github.com/nexeed/teamforge/internal/domain/matching"
	"github.com/nexeed/teamforge/internal/domain/model"
	"github.com/nexeed/teamforge/internal/domain/report"
	"github.com/nexeed/teamforge/internal/domain/scoring"
	"github.com/nexeed/teamforge/pkg/logger"
	"github.com/nexeed/teamforge/pkg/metrics"
)

// Run is a finished matching run.
type Run struct {
	ID        string
	Scorer    scoring.Kind
	Teams     []report.Team
	Balance   matching.BalanceStats
	People    int
	CreatedAt time.Time
	// Replayed is set on the copy returned for a repeated request.
	Replayed bool
}

// Service forms teams for incoming requests.
type Service struct {
	mu sync.RWMutex

	// Core components
	heuristic  *scoring.HeuristicScorer
	learned    *scoring.LearnedScorer
	store      repository.Store
	index      dedupe.Index
	runs       *xsync.Map[string, *Run]
	runQueue   *runqueue.InMemoryQueue
	workerPool *workerpool.Pool

	// Configuration
	predictor    scoring.Predictor
	weights      scoring.Weights
	maxPeople    int
	runHistory   int
	workerCount  int
	queueSize    int
	balancerOpts []matching.BalancerOption

	// Run history in completion order, oldest first.
	historyMu sync.Mutex
	history   []string

	// State
	started bool
	stopCh  chan struct{}

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithPredictor attaches the model behind learned runs. Without one, learned
// runs fail with scoring.ErrPredictorNotReady.
func WithPredictor(p scoring.Predictor) Option {
	return func(s *Service) {
		s.predictor = p
	}
}

// WithHeuristicWeights overrides the heuristic trait weights.
func WithHeuristicWeights(w scoring.Weights) Option {
	return func(s *Service) {
		s.weights = w
	}
}

// WithStore sets where team records are persisted.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithMaxPeople caps the population of a single request.
func WithMaxPeople(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxPeople = n
		}
	}
}

// WithRunHistory sets how many finished runs are kept for lookup.
func WithRunHistory(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.runHistory = n
		}
	}
}

// WithWorkerCount sets how many runs may execute at once.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets how many runs may wait for a worker.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithBalancerOptions tunes the balancer used by every run.
func WithBalancerOptions(opts ...matching.BalancerOption) Option {
	return func(s *Service) {
		s.balancerOpts = append(s.balancerOpts, opts...)
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		weights:     scoring.DefaultWeights(),
		maxPeople:   2000,
		runHistory:  1024,
		workerCount: runtime.NumCPU(),
		queueSize:   64,
		stopCh:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	if err := s.weights.Validate(); err != nil {
		return fmt.Errorf("start service: %w", err)
	}

	s.logger.Info(ctx, "starting team formation service...")

	s.heuristic = scoring.NewHeuristicScorer(scoring.WithWeights(s.weights))
	s.learned = scoring.NewLearnedScorer(s.predictor)
	if s.store == nil {
		s.store = repository.NewMemoryStore()
	}
	s.index = dedupe.NewInMemoryIndex(dedupe.WithMaxSize(s.runHistory))
	s.runs = xsync.NewMap[string, *Run]()
	s.history = make([]string, 0, s.runHistory)

	s.runQueue = runqueue.NewInMemoryQueue(runqueue.WithCapacity(s.queueSize))
	s.workerPool = workerpool.NewPool(s.workerCount, s.runQueue)
	s.workerPool.Start(context.WithoutCancel(ctx))

	s.stopCh = make(chan struct{})
	go s.refreshSystemMetrics(s.stopCh)

	s.started = true
	s.logger.Info(ctx, "team formation service started",
		logger.Int("workers", s.workerPool.Size()),
		logger.Int("queueSize", s.queueSize),
		logger.Int("runHistory", s.runHistory),
		logger.Bool("predictorReady", s.learned.Ready()),
	)
	return nil
}

// Stop waits for queued runs and shuts the service down.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx := context.Background()
	s.logger.Info(ctx, "stopping team formation service...")

	if err := s.workerPool.Shutdown(ctx); err != nil {
		s.logger.Warn(ctx, "worker pool shutdown", logger.Error(err))
	}
	close(s.stopCh)

	s.started = false
	s.logger.Info(ctx, "team formation service stopped")
}

func (s *Service) refreshSystemMetrics(stop <-chan struct{}) {
	ticker := time.NewTicker(metrics.RefreshInterval())
	defer ticker.Stop()

	metrics.UpdateSystemMetrics()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			metrics.UpdateSystemMetrics()
		}
	}
}

// Match forms teams for req with the chosen scorer. The request is validated
// before any work is queued. A repeated heuristic request replays the stored
// run while it is still in the history.
func (s *Service) Match(ctx context.Context, req model.Request, kind scoring.Kind) (*Run, error) {
	start := time.Now()

	s.mu.RLock()
	started := s.started
	s.mu.RUnlock()
	if !started {
		return nil, ErrNotStarted
	}

	if err := s.validate(req, kind); err != nil {
		metrics.RecordRun(string(kind), metrics.OutcomeInvalid, msSince(start))
		return nil, err
	}

	if kind == scoring.KindLearned && !s.learned.Ready() {
		metrics.RecordRun(string(kind), metrics.OutcomeNotReady, msSince(start))
		return nil, scoring.ErrPredictorNotReady
	}

	var fp uint64
	if kind == scoring.KindHeuristic {
		fp = dedupe.Fingerprint(req)
		if run, ok := s.replay(ctx, fp); ok {
			metrics.RecordRun(string(kind), metrics.OutcomeReplayed, msSince(start))
			s.logger.Debug(ctx, "replaying run", logger.String("run_id", run.ID))
			return run, nil
		}
	}

	type result struct {
		run *Run
		err error
	}
	done := make(chan result, 1)
	runID := uuid.NewString()

	job := runqueue.Job{
		ID:       runID,
		Enqueued: start,
		Run: func() {
			if err := ctx.Err(); err != nil {
				done <- result{err: err}
				return
			}
			run, err := s.execute(ctx, runID, req, kind)
			if err == nil {
				// Records are already saved; the run joins the history even
				// when the caller has gone.
				bg := context.WithoutCancel(ctx)
				s.remember(bg, run)
				if kind == scoring.KindHeuristic {
					s.index.Record(bg, fp, run.ID)
				}
			}
			done <- result{run: run, err: err}
		},
	}
	if err := s.runQueue.Enqueue(ctx, job); err != nil {
		metrics.RecordRun(string(kind), metrics.OutcomeError, msSince(start))
		if errors.Is(err, runqueue.ErrFull) || errors.Is(err, runqueue.ErrClosed) {
			return nil, fmt.Errorf("%w: %w", ErrBusy, err)
		}
		return nil, err
	}

	var res result
	select {
	case res = <-done:
	case <-ctx.Done():
		metrics.RecordRun(string(kind), metrics.OutcomeError, msSince(start))
		return nil, ctx.Err()
	}

	if res.err != nil {
		outcome := metrics.OutcomeError
		if errors.Is(res.err, scoring.ErrPredictorNotReady) {
			outcome = metrics.OutcomeNotReady
		}
		metrics.RecordRun(string(kind), outcome, msSince(start))
		s.logger.Warn(ctx, "run failed",
			logger.String("run_id", runID),
			logger.String("scorer", string(kind)),
			logger.Error(res.err),
		)
		return nil, res.err
	}

	metrics.RecordRun(string(kind), metrics.OutcomeOK, msSince(start))
	return res.run, nil
}

func (s *Service) validate(req model.Request, kind scoring.Kind) error {
	if kind != scoring.KindHeuristic && kind != scoring.KindLearned {
		return fmt.Errorf("%w: unknown scorer %q", model.ErrInvalidRequest, kind)
	}
	if len(req.People) > s.maxPeople {
		return fmt.Errorf("%w: %d people exceeds the limit of %d", model.ErrInvalidRequest, len(req.People), s.maxPeople)
	}
	return req.Validate()
}

func (s *Service) replay(ctx context.Context, fp uint64) (*Run, bool) {
	id, ok := s.index.Lookup(ctx, fp)
	if !ok {
		return nil, false
	}
	run, ok := s.runs.Load(id)
	if !ok {
		s.index.Forget(ctx, fp)
		return nil, false
	}
	replayed := *run
	replayed.Replayed = true
	return &replayed, true
}

// execute runs one request on a worker goroutine.
func (s *Service) execute(ctx context.Context, runID string, req model.Request, kind scoring.Kind) (*Run, error) {
	var scorer scoring.Scorer = s.heuristic
	if kind == scoring.KindLearned {
		scorer = s.learned
	}

	s.logger.Info(ctx, "run started",
		logger.String("run_id", runID),
		logger.String("scorer", string(kind)),
		logger.Int("people", len(req.People)),
		logger.Int("team_size", req.TeamSize),
	)

	m, err := scorer.Matrix(ctx, req.People)
	if err != nil {
		return nil, fmt.Errorf("score %s: %w", kind, err)
	}

	teams := matching.NewBuilder(req.TeamSize, req.Required).Build(req.People, m)
	stats := matching.NewBalancer(req.Required, s.balancerOpts...).Balance(req.People, m, teams)

	var opts []report.Option
	if kind == scoring.KindLearned {
		hm, err := s.heuristic.Matrix(ctx, req.People)
		if err != nil {
			return nil, fmt.Errorf("score heuristic comparison: %w", err)
		}
		opts = append(opts, report.WithHeuristicComparison(hm))
	}

	run := &Run{
		ID:        runID,
		Scorer:    kind,
		Teams:     report.Build(req.People, teams, m, req.Required, opts...),
		Balance:   stats,
		People:    len(req.People),
		CreatedAt: time.Now().UTC(),
	}

	if err := s.store.Save(ctx, runID, repository.Flatten(records(req.People, teams))); err != nil {
		return nil, fmt.Errorf("save records: %w", err)
	}

	metrics.RecordRunShape(len(req.People), len(teams))
	metrics.RecordBalance(stats.Iterations, stats.Swaps, stats.FinalSpread)
	s.logger.Info(ctx, "run finished",
		logger.String("run_id", runID),
		logger.Int("teams", len(teams)),
		logger.Int("iterations", stats.Iterations),
		logger.Int("swaps", stats.Swaps),
		logger.Bool("converged", stats.Converged),
		logger.Float64("spread", stats.FinalSpread),
	)
	return run, nil
}

func records(people []model.Person, teams []model.Team) []repository.TeamRecord {
	out := make([]repository.TeamRecord, 0, len(teams))
	for _, t := range teams {
		members := make([]model.Person, 0, t.Len())
		for _, idx := range t.Members {
			members = append(members, people[idx])
		}
		out = append(out, repository.TeamRecord{
			TeamID:           uuid.NewString(),
			Members:          members,
			PerformanceScore: repository.DefaultOutcome,
			SuccessRate:      repository.DefaultOutcome,
		})
	}
	return out
}

// remember adds run to the history and drops the oldest run past the limit.
func (s *Service) remember(ctx context.Context, run *Run) {
	s.runs.Store(run.ID, run)

	s.historyMu.Lock()
	s.history = append(s.history, run.ID)
	var evicted []string
	if over := len(s.history) - s.runHistory; over > 0 {
		evicted = append(evicted, s.history[:over]...)
		s.history = append(s.history[:0], s.history[over:]...)
	}
	s.historyMu.Unlock()

	for _, id := range evicted {
		s.runs.Delete(id)
		if err := s.store.Delete(ctx, id); err != nil && !errors.Is(err, repository.ErrNotFound) {
			s.logger.Warn(ctx, "drop expired run records", logger.String("run_id", id), logger.Error(err))
		}
	}
	metrics.UpdateStoredRuns(s.runs.Size())
}

// Run returns a finished run by ID.
func (s *Service) Run(_ context.Context, id string) (*Run, error) {
	if s.runs == nil {
		return nil, ErrRunNotFound
	}
	run, ok := s.runs.Load(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return run, nil
}

// Records returns the persisted team records of a run.
func (s *Service) Records(ctx context.Context, id string) ([]repository.Row, error) {
	if s.store == nil {
		return nil, ErrRunNotFound
	}
	rows, err := s.store.Load(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return rows, err
}

// PredictorReady reports whether learned runs can be served.
func (s *Service) PredictorReady() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.learned.Ready()
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"runHistory":  s.runHistory,
		"maxPeople":   s.maxPeople,
	}
	if s.started {
		stats["queueLength"] = s.runQueue.Len(context.Background())
		stats["storedRuns"] = s.runs.Size()
		stats["replayIndex"] = s.index.Size()
		stats["predictorReady"] = s.learned.Ready()
	}
	return stats
}

func msSince(t time.Time) float64 {
	return float64(time.Since(t).Microseconds()) / 1000
}
