package temporalworker

import (
	"context"
	"fmt"
	"time"

	"go.temporal.io/sdk/activity"
	temporalsdkclient "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"

	"github.com/yungbote/neurobridge-coach/internal/platform/envutil"
	"github.com/yungbote/neurobridge-coach/internal/platform/logger"
	"github.com/yungbote/neurobridge-coach/internal/temporalx"
	"github.com/yungbote/neurobridge-coach/internal/temporalx/analysisrun"
)

// Runner polls the analysis task queue inside the API process.
type Runner struct {
	log  *logger.Logger
	tc   temporalsdkclient.Client
	cfg  temporalx.Config
	acts *analysisrun.Activities
}

func NewRunner(log *logger.Logger, tc temporalsdkclient.Client, cfg temporalx.Config, analyzer analysisrun.Analyzer) (*Runner, error) {
	if tc == nil {
		return nil, fmt.Errorf("temporal client is not configured")
	}
	if analyzer == nil {
		return nil, fmt.Errorf("temporal worker missing analyzer")
	}
	return &Runner{
		log:  log.With("component", "TemporalWorker"),
		tc:   tc,
		cfg:  cfg,
		acts: &analysisrun.Activities{Log: log, Analyzer: analyzer},
	}, nil
}

// Start retries worker startup until it succeeds, ctx ends or the wait budget is spent. The
// worker stops when ctx is cancelled.
func (r *Runner) Start(ctx context.Context) error {
	r.log.Info("Starting Temporal worker", "namespace", r.cfg.Namespace, "task_queue", r.cfg.TaskQueue)
	deadline := time.Now().Add(envutil.Duration("TEMPORAL_WORKER_START_MAX_WAIT", 60*time.Second))

	for attempt := 1; ; attempt++ {
		w := r.newWorker()
		err := w.Start()
		if err == nil {
			go func() {
				<-ctx.Done()
				w.Stop()
			}()
			r.log.Info("Temporal worker started", "attempts", attempt)
			return nil
		}
		w.Stop()
		if time.Now().After(deadline) {
			return fmt.Errorf("temporal worker start (task_queue=%s): %w", r.cfg.TaskQueue, err)
		}
		r.log.Warn("Temporal worker failed to start; retrying", "attempt", attempt, "error", err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff(attempt)):
		}
	}
}

func (r *Runner) newWorker() worker.Worker {
	concurrency := envutil.Int("WORKER_CONCURRENCY", 8)
	if concurrency < 1 {
		concurrency = 1
	}
	w := worker.New(r.tc, r.cfg.TaskQueue, worker.Options{
		MaxConcurrentActivityExecutionSize:     concurrency,
		MaxConcurrentWorkflowTaskExecutionSize: concurrency,
	})
	w.RegisterWorkflowWithOptions(analysisrun.Workflow, workflow.RegisterOptions{Name: analysisrun.WorkflowName})
	w.RegisterActivityWithOptions(r.acts.Analyze, activity.RegisterOptions{Name: analysisrun.ActivityAnalyze})
	return w
}

func backoff(attempt int) time.Duration {
	d := 250 * time.Millisecond
	for i := 1; i < attempt && d < 5*time.Second; i++ {
		d *= 2
	}
	if d > 5*time.Second {
		d = 5 * time.Second
	}
	return d
}
