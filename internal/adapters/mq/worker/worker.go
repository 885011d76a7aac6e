// Package worker runs queued matching jobs on a fixed set of goroutines.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/nexeed/teamforge/internal/adapters/mq/queue"
	"github.com/nexeed/teamforge/pkg/logger"
	"github.com/nexeed/teamforge/pkg/metrics"
)

const poolShutdownTimeout = 30 * time.Second

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Job
}

// Worker executes jobs until its context ends or the queue closes.
type Worker struct {
	queue Queue
	name  string
	busy  *atomic.Int64

	done chan struct{}

	logger logger.Logger
}

// NewWorker creates a worker with configuration options.
func NewWorker(q Queue, opts ...Option) *Worker {
	w := &Worker{
		queue: q,
		name:  "worker",
		busy:  &atomic.Int64{},
		done:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = logger.Get().Named(w.name)
	}
	return w
}

// Run starts the worker loop.
func (w *Worker) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case j, ok := <-jobs:
			if !ok {
				return
			}
			w.execute(ctx, j)
		}
	}
}

// Done is closed when Run returns.
func (w *Worker) Done() <-chan struct{} { return w.done }

// execute runs a job, converting a panic into a log line so the worker survives.
func (w *Worker) execute(ctx context.Context, j queue.Job) {
	metrics.UpdateWorkersBusy(int(w.busy.Add(1)))
	defer func() {
		metrics.UpdateWorkersBusy(int(w.busy.Add(-1)))
		if r := recover(); r != nil {
			w.logger.Error(ctx, "job panicked",
				logger.String("job_id", j.ID),
				logger.Error(fmt.Errorf("panic: %v", r)),
			)
		}
	}()

	metrics.RecordQueueWait(float64(time.Since(j.Enqueued).Milliseconds()))
	j.Run()
}

// Pool manages a fixed number of workers over one queue.
type Pool struct {
	workers []*Worker
	queue   Queue
	cancel  context.CancelFunc
	logger  logger.Logger
}

// NewPool creates a pool. workerCount < 1 defaults to runtime.NumCPU().
func NewPool(workerCount int, q Queue, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}
	busy := &atomic.Int64{}
	p := &Pool{
		workers: make([]*Worker, workerCount),
		queue:   q,
		logger:  logger.Get().Named("worker-pool"),
	}
	for i := range p.workers {
		wopts := append([]Option{WithName("worker-" + strconv.Itoa(i))}, opts...)
		w := NewWorker(q, wopts...)
		w.busy = busy
		p.workers[i] = w
	}
	return p
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Start starts every worker. Workers stop when ctx ends or Shutdown is called.
func (p *Pool) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Shutdown closes the queue, lets workers drain it, then waits for them.
// Workers still running when ctx or the pool timeout ends are cancelled.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	var err error
	for i, w := range p.workers {
		select {
		case <-w.Done():
		case <-shutdownCtx.Done():
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
			err = fmt.Errorf("shutdown timed out: %w", shutdownCtx.Err())
		}
		if err != nil {
			break
		}
	}
	if p.cancel != nil {
		p.cancel()
	}
	return err
}
