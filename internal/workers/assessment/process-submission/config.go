package processsubmission

import (
	"time"

	"assessment-pipeline/internal/common/config"
)

const (
	DefaultStage2Timeout = 5 * time.Minute
	DefaultLockTTL       = 6 * time.Minute
	DefaultWorkers       = 4
	DefaultQueueSize     = 64
	DefaultProcessID     = "assessment-stage2"
)

type Config struct {
	Mode          string
	Workers       int
	QueueSize     int
	Stage2Timeout time.Duration
	Lock          string
	LockTTL       time.Duration

	// Camunda dispatch
	ProcessID     string
	JobType       string
	MaxJobsActive int
	JobTimeout    time.Duration
}

func LoadConfig(cfg *config.Config) *Config {
	c := &Config{
		Mode:          cfg.Dispatch.Mode,
		Workers:       cfg.Dispatch.Workers,
		QueueSize:     cfg.Dispatch.QueueSize,
		Stage2Timeout: config.GetDuration(cfg.Dispatch.Stage2Timeout),
		Lock:          cfg.Dispatch.Lock,
		LockTTL:       config.GetDuration(cfg.Dispatch.LockTTL),
		ProcessID:     cfg.Camunda.ProcessID,
		JobType:       cfg.Camunda.JobType,
		MaxJobsActive: cfg.Camunda.MaxJobsActive,
		JobTimeout:    config.GetDuration(cfg.Camunda.Timeout),
	}
	c.applyDefaults()
	return c
}

func (c *Config) applyDefaults() {
	if c.Mode == "" {
		c.Mode = config.DispatchInProcess
	}
	if c.Workers <= 0 {
		c.Workers = DefaultWorkers
	}
	if c.QueueSize <= 0 {
		c.QueueSize = DefaultQueueSize
	}
	if c.Stage2Timeout <= 0 {
		c.Stage2Timeout = DefaultStage2Timeout
	}
	if c.Lock == "" {
		c.Lock = config.LockLocal
	}
	// the lock must outlive a full run
	if c.LockTTL <= c.Stage2Timeout {
		c.LockTTL = c.Stage2Timeout + time.Minute
	}
	if c.ProcessID == "" {
		c.ProcessID = DefaultProcessID
	}
	if c.JobType == "" {
		c.JobType = TaskType
	}
	if c.MaxJobsActive <= 0 {
		c.MaxJobsActive = c.Workers
	}
	if c.JobTimeout <= c.Stage2Timeout {
		c.JobTimeout = c.Stage2Timeout + time.Minute
	}
}
