package cohort

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nexeed/teamforge/internal/domain/model"
	"github.com/nexeed/teamforge/pkg/logger"
)

// workerChannelMultiplier sizes the submission buffer per worker.
const workerChannelMultiplier = 2

// ErrVerification is returned when a server result does not partition the
// submitted cohort.
var ErrVerification = errors.New("result verification failed")

// LoadConfig configures a load run against a server.
type LoadConfig struct {
	Runs     int  // Number of cohorts to submit
	Size     int  // Students per cohort
	TeamSize int  // Team size sent with each cohort
	Workers  int  // Concurrent submitters
	Learned  bool // Use /match/run_learned
	Seed     int64
}

// LoadStats summarizes a load run.
type LoadStats struct {
	Submitted  int
	Successful int
	Replayed   int
	Failed     int
	Invalid    int
	Duration   time.Duration
}

// RunsPerSecond is the submission throughput.
func (s LoadStats) RunsPerSecond() float64 {
	if s.Duration <= 0 {
		return 0
	}
	return float64(s.Submitted) / s.Duration.Seconds()
}

// RunLoad checks server health, then submits cfg.Runs generated cohorts with
// cfg.Workers concurrent submitters and verifies every result.
func RunLoad(ctx context.Context, client *Client, cfg LoadConfig, log logger.Logger) (LoadStats, error) {
	var stats LoadStats
	if cfg.Runs <= 0 || cfg.Size <= 0 || cfg.Workers <= 0 {
		return stats, fmt.Errorf("runs, size and workers must be positive")
	}
	if err := client.Health(ctx); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	log.Info(ctx, "starting load run",
		logger.Int("runs", cfg.Runs),
		logger.Int("size", cfg.Size),
		logger.Int("workers", cfg.Workers),
		logger.Bool("learned", cfg.Learned))

	start := time.Now()
	var submitted, successful, replayed, failed, invalid atomic.Int64

	files := make(chan File, cfg.Workers*workerChannelMultiplier)
	var wg sync.WaitGroup
	for i := 0; i < cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for f := range files {
				submitted.Add(1)
				res, err := client.Match(ctx, f, cfg.Learned)
				if err != nil {
					failed.Add(1)
					log.Debug(ctx, "run failed", logger.Error(err))
					continue
				}
				successful.Add(1)
				if res.Replayed {
					replayed.Add(1)
				}
				if err := Verify(f, res); err != nil {
					invalid.Add(1)
					log.Warn(ctx, "invalid result", logger.String("run_id", res.RunID), logger.Error(err))
				}
			}
		}()
	}

	go func() {
		defer close(files)
		for i := 0; i < cfg.Runs; i++ {
			gen := NewGenerator(WithSeed(cfg.Seed+int64(i)), WithIDPrefix(fmt.Sprintf("r%d-", i)))
			f := NewFile(gen.Generate(cfg.Size), cfg.TeamSize, model.DefaultRequirement())
			select {
			case <-ctx.Done():
				return
			case files <- f:
			}
		}
	}()
	wg.Wait()

	stats = LoadStats{
		Submitted:  int(submitted.Load()),
		Successful: int(successful.Load()),
		Replayed:   int(replayed.Load()),
		Failed:     int(failed.Load()),
		Invalid:    int(invalid.Load()),
		Duration:   time.Since(start),
	}
	log.Info(ctx, "load run completed",
		logger.Int("submitted", stats.Submitted),
		logger.Int("successful", stats.Successful),
		logger.Int("replayed", stats.Replayed),
		logger.Int("failed", stats.Failed),
		logger.Int("invalid", stats.Invalid),
		logger.Duration("duration", stats.Duration),
		logger.Float64("runsPerSecond", stats.RunsPerSecond()))

	if stats.Invalid > 0 {
		return stats, fmt.Errorf("%w: %d of %d results", ErrVerification, stats.Invalid, stats.Successful)
	}
	return stats, ctx.Err()
}

// Verify checks that res places every student of f in exactly one team and
// that no team exceeds the requested size.
func Verify(f File, res *Result) error {
	want := make(map[string]bool, len(f.Students))
	for _, s := range f.Students {
		want[s.StudentID] = true
	}
	seen := make(map[string]bool, len(f.Students))
	for i, t := range res.Teams {
		if f.TeamSize != nil && len(t.Members) > *f.TeamSize {
			return fmt.Errorf("team %d has %d members, limit %d", i, len(t.Members), *f.TeamSize)
		}
		for _, m := range t.Members {
			if !want[m.StudentID] {
				return fmt.Errorf("team %d has unknown student %q", i, m.StudentID)
			}
			if seen[m.StudentID] {
				return fmt.Errorf("student %q placed twice", m.StudentID)
			}
			seen[m.StudentID] = true
		}
	}
	if len(seen) != len(want) {
		return fmt.Errorf("%d of %d students placed", len(seen), len(want))
	}
	return nil
}
