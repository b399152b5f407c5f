package camunda

import (
	"context"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
	"go.uber.org/zap"
)

type JobHandler interface {
	Handle(client worker.JobClient, job entities.Job)
}

// WorkerConfig describes one job subscription.
type WorkerConfig struct {
	TaskType      string
	Name          string
	MaxJobsActive int
	// Timeout is how long the broker waits before handing an activated job to another worker.
	Timeout time.Duration
	// FetchVariables limits the variables activated with each job; empty fetches all.
	FetchVariables []string
}

type JobWorker struct {
	worker worker.JobWorker
	logger *zap.Logger
	cfg    WorkerConfig
}

// NewWorker opens a job worker for cfg.TaskType and starts polling immediately.
func NewWorker(client zbc.Client, cfg WorkerConfig, handler JobHandler, logger *zap.Logger) *JobWorker {
	if cfg.Name == "" {
		cfg.Name = cfg.TaskType + "-worker"
	}
	if cfg.MaxJobsActive <= 0 {
		cfg.MaxJobsActive = 1
	}

	step := client.NewJobWorker().
		JobType(cfg.TaskType).
		Handler(handler.Handle).
		Name(cfg.Name).
		MaxJobsActive(cfg.MaxJobsActive).
		Timeout(cfg.Timeout)
	if len(cfg.FetchVariables) > 0 {
		step = step.FetchVariables(cfg.FetchVariables...)
	}
	jobWorker := step.Open()

	logger.Info("worker started",
		zap.String("taskType", cfg.TaskType),
		zap.String("name", cfg.Name),
		zap.Int("maxJobsActive", cfg.MaxJobsActive),
		zap.Duration("jobTimeout", cfg.Timeout),
	)
	return &JobWorker{worker: jobWorker, logger: logger, cfg: cfg}
}

// Stop closes the subscription and waits for in-flight jobs until ctx is done.
func (w *JobWorker) Stop(ctx context.Context) {
	w.logger.Info("stopping worker", zap.String("taskType", w.cfg.TaskType))
	done := make(chan struct{})
	go func() {
		w.worker.Close()
		w.worker.AwaitClose()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		w.logger.Warn("worker did not stop before deadline", zap.String("taskType", w.cfg.TaskType))
	}
}
