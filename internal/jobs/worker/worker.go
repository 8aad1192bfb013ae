package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/yungbote/neurobridge-coach/internal/observability"
	"github.com/yungbote/neurobridge-coach/internal/platform/envutil"
	"github.com/yungbote/neurobridge-coach/internal/platform/logger"
)

// ErrClosed is returned by Submit after Close has been called.
var ErrClosed = errors.New("worker pool closed")

// Task is one unit of detached background work. Its error is logged and counted, never returned
// to the code that submitted it.
type Task func(ctx context.Context) error

// Submitter is the narrow surface the coaching modules depend on.
type Submitter interface {
	Submit(kind string, task Task) error
}

// Pool runs fire-and-forget tasks with bounded concurrency. Each task runs on its own goroutine
// behind a weighted semaphore, with panic recovery and a per-task timeout.
type Pool struct {
	log     *logger.Logger
	sem     *semaphore.Weighted
	timeout time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

type Config struct {
	Concurrency int
	TaskTimeout time.Duration
}

func ConfigFromEnv() Config {
	return Config{
		Concurrency: envutil.Int("WORKER_CONCURRENCY", 8),
		TaskTimeout: envutil.Duration("WORKER_TASK_TIMEOUT", 2*time.Minute),
	}
}

func NewPool(baseLog *logger.Logger, cfg Config) *Pool {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if cfg.TaskTimeout <= 0 {
		cfg.TaskTimeout = 2 * time.Minute
	}
	ctx, cancel := context.WithCancel(context.Background())
	baseLog.Info("Starting background task pool", "concurrency", cfg.Concurrency, "task_timeout", cfg.TaskTimeout.String())
	return &Pool{
		log:     baseLog.With("component", "TaskPool"),
		sem:     semaphore.NewWeighted(int64(cfg.Concurrency)),
		timeout: cfg.TaskTimeout,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Submit schedules task and returns immediately. Tasks queue on the semaphore when the pool is
// saturated.
func (p *Pool) Submit(kind string, task Task) error {
	if p == nil || task == nil {
		return fmt.Errorf("worker pool: nil task")
	}
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrClosed
	}
	p.wg.Add(1)
	p.mu.Unlock()

	go func() {
		defer p.wg.Done()
		if err := p.sem.Acquire(p.ctx, 1); err != nil {
			p.log.Warn("Background task dropped", "kind", kind, "error", err)
			observability.Current().ObserveBackgroundTask(kind, "dropped", 0)
			return
		}
		defer p.sem.Release(1)
		p.run(kind, task)
	}()
	return nil
}

func (p *Pool) run(kind string, task Task) {
	ctx, cancel := context.WithTimeout(p.ctx, p.timeout)
	defer cancel()

	start := time.Now()
	outcome := "ok"
	defer func() {
		if r := recover(); r != nil {
			outcome = "panic"
			p.log.Error("Background task panic", "kind", kind, "panic", r)
		}
		observability.Current().ObserveBackgroundTask(kind, outcome, time.Since(start))
	}()

	if err := task(ctx); err != nil {
		outcome = "error"
		p.log.Warn("Background task failed", "kind", kind, "error", err, "duration_ms", time.Since(start).Milliseconds())
	}
}

// Close stops accepting work and waits for in-flight tasks until ctx is done, then cancels them.
func (p *Pool) Close(ctx context.Context) error {
	if p == nil {
		return nil
	}
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		p.cancel()
		return nil
	case <-ctx.Done():
		p.cancel()
		<-done
		return ctx.Err()
	}
}

// Inline runs tasks synchronously on the caller's goroutine. Tests use it to make background
// effects deterministic.
type Inline struct {
	Log *logger.Logger
}

func (i Inline) Submit(kind string, task Task) error {
	if task == nil {
		return fmt.Errorf("worker pool: nil task")
	}
	defer func() {
		if r := recover(); r != nil && i.Log != nil {
			i.Log.Error("Background task panic", "kind", kind, "panic", r)
		}
	}()
	if err := task(context.Background()); err != nil && i.Log != nil {
		i.Log.Warn("Background task failed", "kind", kind, "error", err)
	}
	return nil
}
