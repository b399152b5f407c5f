package processsubmission

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"assessment-pipeline/internal/common/logger"
	"assessment-pipeline/internal/common/metrics"

	"golang.org/x/sync/errgroup"
)

var (
	ErrQueueFull        = errors.New("QUEUE_FULL")
	ErrDispatcherClosed = errors.New("DISPATCHER_CLOSED")
)

// Dispatcher hands a persisted submission to Stage 2. Enqueue must not block on the run itself.
type Dispatcher interface {
	Enqueue(ctx context.Context, submissionID string) error
}

// ProcessFunc runs Stage 2 for one submission.
type ProcessFunc func(ctx context.Context, submissionID string) (*Stage2Status, error)

// PoolDispatcher runs Stage 2 on a fixed set of goroutines fed by a bounded queue.
type PoolDispatcher struct {
	config  *Config
	process ProcessFunc
	logger  logger.Logger

	mu     sync.RWMutex
	jobs   chan string
	closed bool

	group  *errgroup.Group
	cancel context.CancelFunc
}

func NewPoolDispatcher(config *Config, process ProcessFunc, log logger.Logger) *PoolDispatcher {
	config.applyDefaults()
	return &PoolDispatcher{
		config:  config,
		process: process,
		jobs:    make(chan string, config.QueueSize),
		logger:  log.WithFields(map[string]interface{}{"dispatcher": "inprocess"}),
	}
}

// Start launches the workers. Runs are detached from ctx cancellation so Stop can drain the
// queue; only a Stop deadline cancels them.
func (d *PoolDispatcher) Start(ctx context.Context) {
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	d.cancel = cancel

	g, gctx := errgroup.WithContext(runCtx)
	for i := 0; i < d.config.Workers; i++ {
		g.Go(func() error {
			for id := range d.jobs {
				d.run(gctx, id)
			}
			return nil
		})
	}
	d.group = g

	d.logger.Info("stage 2 workers started", map[string]interface{}{
		"workers":   d.config.Workers,
		"queueSize": d.config.QueueSize,
	})
}

func (d *PoolDispatcher) Enqueue(_ context.Context, submissionID string) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrDispatcherClosed
	}

	select {
	case d.jobs <- submissionID:
		metrics.QueueDepth.Inc()
		return nil
	default:
		return fmt.Errorf("%w: capacity %d", ErrQueueFull, d.config.QueueSize)
	}
}

// Stop refuses new work and waits for queued and running jobs. When ctx ends first the
// running jobs are cancelled and ctx.Err() is returned.
func (d *PoolDispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.jobs)
	d.mu.Unlock()

	if d.group == nil {
		return nil
	}

	done := make(chan error, 1)
	go func() { done <- d.group.Wait() }()

	select {
	case err := <-done:
		d.cancel()
		d.logger.Info("stage 2 workers drained", nil)
		return err
	case <-ctx.Done():
		d.cancel()
		d.logger.Warn("stage 2 workers did not drain before deadline", map[string]interface{}{
			"pending": len(d.jobs),
		})
		return ctx.Err()
	}
}

func (d *PoolDispatcher) run(ctx context.Context, submissionID string) {
	metrics.QueueDepth.Dec()
	metrics.WorkersActive.Inc()
	defer metrics.WorkersActive.Dec()

	jobCtx, cancel := context.WithTimeout(ctx, d.config.Stage2Timeout)
	defer cancel()

	start := time.Now()
	status, err := d.process(jobCtx, submissionID)
	metrics.Stage2Duration.WithLabelValues("inprocess").Observe(time.Since(start).Seconds())

	log := logger.ForSubmission(d.logger, submissionID)
	if err != nil {
		log.Error("stage 2 run failed", map[string]interface{}{"error": err.Error()})
		return
	}
	log.Info("stage 2 run finished", map[string]interface{}{
		"analysisGenerated": status.AnalysisGenerated,
		"artifactGenerated": status.ArtifactGenerated,
		"contactNotified":   status.ContactNotified,
		"adminsNotified":    status.AdminsNotified,
		"elapsedMs":         status.ElapsedMs,
	})
}

// ProcessStarter creates workflow instances; *camunda.Client satisfies it.
type ProcessStarter interface {
	CreateInstance(ctx context.Context, processID string, vars map[string]interface{}) (int64, error)
}

const createInstanceTimeout = 30 * time.Second

// CamundaDispatcher starts one process instance per submission; the Stage 2 job worker picks it up.
type CamundaDispatcher struct {
	config  *Config
	starter ProcessStarter
	logger  logger.Logger

	mu     sync.Mutex
	wg     sync.WaitGroup
	closed bool
}

func NewCamundaDispatcher(config *Config, starter ProcessStarter, log logger.Logger) *CamundaDispatcher {
	config.applyDefaults()
	return &CamundaDispatcher{
		config:  config,
		starter: starter,
		logger:  log.WithFields(map[string]interface{}{"dispatcher": "camunda"}),
	}
}

// Enqueue creates the instance in the background; broker retries never hold up the caller.
func (d *CamundaDispatcher) Enqueue(ctx context.Context, submissionID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrDispatcherClosed
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		startCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), createInstanceTimeout)
		defer cancel()

		log := logger.ForSubmission(d.logger, submissionID)
		key, err := d.starter.CreateInstance(startCtx, d.config.ProcessID, map[string]interface{}{
			"submissionId": submissionID,
		})
		if err != nil {
			log.Error("failed to start stage 2 process instance", map[string]interface{}{
				"processId": d.config.ProcessID,
				"error":     err.Error(),
			})
			return
		}
		log.Info("stage 2 process instance started", map[string]interface{}{
			"processId":          d.config.ProcessID,
			"processInstanceKey": key,
		})
	}()
	return nil
}

func (d *CamundaDispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
