package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// ErrNotStarted is returned by Enqueue before Start or after Stop.
var ErrNotStarted = errors.New("queue not running")

// Job identifies a unit of background work. Attempt counts previous failures.
type Job struct {
	ID       string
	Type     string
	Attempt  int
	Enqueued time.Time
}

// Handler processes a job. A returned error schedules a retry until the
// attempt budget is spent.
type Handler func(context.Context, Job) error

// QueueConfig configures the worker pool.
type QueueConfig struct {
	Workers       int
	BufferSize    int
	MaxRetries    int
	RetryDelay    time.Duration
	MaxRetryDelay time.Duration
	Logger        *zap.Logger
}

// Stats is a point-in-time view of queue activity.
type Stats struct {
	Pending   int    `json:"pending"`
	Running   int64  `json:"running"`
	Succeeded uint64 `json:"succeeded"`
	Failed    uint64 `json:"failed"`
	Retried   uint64 `json:"retried"`
}

// Queue dispatches jobs to a fixed pool of goroutines. Failed jobs are
// re-enqueued with exponential backoff.
type Queue struct {
	name    string
	handler Handler
	cfg     QueueConfig
	logger  *zap.Logger

	jobs   chan Job
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	started bool

	running   atomic.Int64
	succeeded atomic.Uint64
	failed    atomic.Uint64
	retried   atomic.Uint64
}

// NewQueue builds a queue; call Start before enqueueing.
func NewQueue(name string, handler Handler, cfg QueueConfig) *Queue {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = cfg.Workers * 16
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.MaxRetryDelay < cfg.RetryDelay {
		cfg.MaxRetryDelay = cfg.RetryDelay * 30
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Queue{
		name:    name,
		handler: handler,
		cfg:     cfg,
		logger:  cfg.Logger.With(zap.String("queue", name)),
		jobs:    make(chan Job, cfg.BufferSize),
	}
}

// Start launches the workers. Subsequent calls are no-ops.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started {
		return
	}
	q.ctx, q.cancel = context.WithCancel(ctx)
	for i := 0; i < q.cfg.Workers; i++ {
		q.wg.Add(1)
		go q.worker()
	}
	q.started = true
	q.logger.Info("queue started", zap.Int("workers", q.cfg.Workers))
}

// Stop cancels the workers and waits for in-flight jobs to return. Jobs still
// buffered are dropped; callers recover them from durable state on restart.
func (q *Queue) Stop() {
	q.mu.Lock()
	if !q.started {
		q.mu.Unlock()
		return
	}
	q.started = false
	q.cancel()
	q.mu.Unlock()
	q.wg.Wait()
	q.logger.Info("queue stopped", zap.Int("dropped", len(q.jobs)))
}

// Enqueue hands a job to the pool, blocking while the buffer is full.
func (q *Queue) Enqueue(job Job) error {
	q.mu.Lock()
	ctx, started := q.ctx, q.started
	q.mu.Unlock()
	if !started {
		return fmt.Errorf("%s: %w", q.name, ErrNotStarted)
	}
	if job.Enqueued.IsZero() {
		job.Enqueued = time.Now().UTC()
	}
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", q.name, ErrNotStarted)
	case q.jobs <- job:
		return nil
	}
}

// Stats reports buffered jobs and lifetime counters.
func (q *Queue) Stats() Stats {
	return Stats{
		Pending:   len(q.jobs),
		Running:   q.running.Load(),
		Succeeded: q.succeeded.Load(),
		Failed:    q.failed.Load(),
		Retried:   q.retried.Load(),
	}
}

// Depth is the number of jobs waiting for a worker.
func (q *Queue) Depth() int {
	return len(q.jobs)
}

func (q *Queue) worker() {
	defer q.wg.Done()
	for {
		select {
		case <-q.ctx.Done():
			return
		case job := <-q.jobs:
			q.running.Add(1)
			err := q.run(job)
			q.running.Add(-1)
			if err != nil {
				q.retry(job, err)
				continue
			}
			q.succeeded.Add(1)
		}
	}
}

// run invokes the handler, turning a panic into an error so one bad job
// cannot take a worker down.
func (q *Queue) run(job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panicked: %v", r)
		}
	}()
	return q.handler(q.ctx, job)
}

func (q *Queue) retry(job Job, err error) {
	fields := []zap.Field{zap.String("job_id", job.ID), zap.String("type", job.Type), zap.Int("attempt", job.Attempt), zap.Error(err)}
	if q.ctx.Err() != nil {
		return
	}
	if job.Attempt >= q.cfg.MaxRetries {
		q.failed.Add(1)
		q.logger.Error("job exhausted retries", fields...)
		return
	}
	job.Attempt++
	delay := q.backoff(job.Attempt)
	q.retried.Add(1)
	q.logger.Warn("job failed, retrying", append(fields, zap.Duration("delay", delay))...)

	go func() {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-q.ctx.Done():
		case <-timer.C:
			if err := q.Enqueue(job); err != nil {
				q.logger.Warn("requeue failed", zap.String("job_id", job.ID), zap.Error(err))
			}
		}
	}()
}

// backoff doubles the base delay per attempt up to MaxRetryDelay.
func (q *Queue) backoff(attempt int) time.Duration {
	delay := q.cfg.RetryDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= q.cfg.MaxRetryDelay {
			return q.cfg.MaxRetryDelay
		}
	}
	return delay
}
