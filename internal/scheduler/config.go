package scheduler

import (
	"time"

	"github.com/smallbiznis/hrledger/internal/config"
)

const (
	JobNotificationRetry = "notification_retry"
	JobLedgerReconcile   = "ledger_reconcile"
)

// Config controls scheduler intervals and batch sizes.
type Config struct {
	RunInterval        time.Duration
	OutboxBatchSize    int
	OutboxMaxAttempts  int
	ReconcileBatchSize int
	EnabledJobs        []string
}

func DefaultConfig() Config {
	return Config{
		RunInterval:        time.Minute,
		OutboxBatchSize:    50,
		OutboxMaxAttempts:  5,
		ReconcileBatchSize: 200,
	}
}

func ProvideConfig(cfg config.Config) Config {
	return Config{
		RunInterval:        cfg.Worker.RunInterval,
		OutboxBatchSize:    cfg.Worker.OutboxBatchSize,
		OutboxMaxAttempts:  cfg.Worker.OutboxMaxAttempts,
		ReconcileBatchSize: cfg.Worker.ReconcileBatchSize,
		EnabledJobs:        cfg.Worker.EnabledJobs,
	}.withDefaults()
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.RunInterval <= 0 {
		c.RunInterval = defaults.RunInterval
	}
	if c.OutboxBatchSize <= 0 {
		c.OutboxBatchSize = defaults.OutboxBatchSize
	}
	if c.OutboxMaxAttempts <= 0 {
		c.OutboxMaxAttempts = defaults.OutboxMaxAttempts
	}
	if c.ReconcileBatchSize <= 0 {
		c.ReconcileBatchSize = defaults.ReconcileBatchSize
	}
	return c
}
