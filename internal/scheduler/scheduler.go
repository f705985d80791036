package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/hrledger/internal/audit/domain"
	"github.com/smallbiznis/hrledger/internal/clock"
	ledgerdomain "github.com/smallbiznis/hrledger/internal/ledger/domain"
	notificationdomain "github.com/smallbiznis/hrledger/internal/notification/domain"
	obscontext "github.com/smallbiznis/hrledger/internal/observability/context"
	obsmetrics "github.com/smallbiznis/hrledger/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var ErrInvalidConfig = errors.New("invalid_scheduler_config")

type Params struct {
	fx.In

	Log       *zap.Logger
	GenID     *snowflake.Node
	Clock     clock.Clock
	Notifier  notificationdomain.Dispatcher
	LedgerSvc ledgerdomain.Service
	Config    Config `optional:"true"`
}

type Scheduler struct {
	log       *zap.Logger
	cfg       Config
	genID     *snowflake.Node
	clock     clock.Clock
	notifier  notificationdomain.Dispatcher
	ledgerSvc ledgerdomain.Service
}

func New(p Params) (*Scheduler, error) {
	if p.Log == nil || p.GenID == nil || p.Clock == nil || p.Notifier == nil || p.LedgerSvc == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		log:       p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:       p.Config.withDefaults(),
		genID:     p.GenID,
		clock:     p.Clock,
		notifier:  p.Notifier,
		ledgerSvc: p.LedgerSvc,
	}, nil
}

func (s *Scheduler) runJob(
	parent context.Context,
	name string,
	batchSize int,
	timeout time.Duration,
	fn func(ctx context.Context) error,
) error {
	start := s.clock.Now()
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	ctx = obscontext.WithActor(ctx, string(auditdomain.ActorTypeSystem), "scheduler")
	ctx, run, owner := s.ensureJobRun(ctx, name, batchSize)
	if owner {
		s.logJobStart(ctx, run)
	}
	log := s.logger(ctx)
	schedMetrics := obsmetrics.Scheduler()
	schedMetrics.IncJobRun(name)

	err := fn(ctx)
	schedMetrics.ObserveJobDuration(name, s.clock.Now().Sub(start))
	if owner {
		if err != nil && run != nil && run.errorCount == 0 {
			run.IncError()
		}
		s.logJobFinish(ctx, run)
	}
	if err == nil {
		return nil
	}

	// deadline is a soft timeout; the next tick picks up the remainder
	isTimeout := errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
	if isTimeout {
		schedMetrics.IncJobTimeout(name)
	}
	schedMetrics.IncJobError(name, err)
	if isTimeout {
		log.Warn("job timed out",
			zap.Duration("timeout", timeout),
			zap.Error(err),
		)
		return nil
	}

	return fmt.Errorf("%s: %w", name, err)
}

func (s *Scheduler) RunOnce(parent context.Context) error {
	var err error

	jobs := []struct {
		Name    string
		Enabled bool
		Run     func(context.Context) error
	}{
		{JobNotificationRetry, s.isJobEnabled(JobNotificationRetry), func(ctx context.Context) error {
			return s.runJob(ctx, JobNotificationRetry, s.cfg.OutboxBatchSize, 30*time.Second, s.NotificationRetryJob)
		}},
		{JobLedgerReconcile, s.isJobEnabled(JobLedgerReconcile), func(ctx context.Context) error {
			return s.runJob(ctx, JobLedgerReconcile, s.cfg.ReconcileBatchSize, time.Minute, s.LedgerReconcileJob)
		}},
	}

	for _, job := range jobs {
		if job.Enabled {
			err = errors.Join(err, job.Run(parent))
		}
	}

	return err
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()
	nextRun := s.clock.Now().Add(s.cfg.RunInterval)
	schedMetrics := obsmetrics.Scheduler()

	for {
		runLag := s.clock.Now().Sub(nextRun)
		if runLag > 0 {
			schedMetrics.ObserveRunLoopLag(runLag)
		}
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}
		nextRun = nextRun.Add(s.cfg.RunInterval)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Scheduler) isJobEnabled(jobName string) bool {
	// If EnabledJobs is empty, all jobs are enabled by default
	if len(s.cfg.EnabledJobs) == 0 {
		return true
	}
	for _, enabled := range s.cfg.EnabledJobs {
		if strings.EqualFold(enabled, jobName) {
			return true
		}
	}
	return false
}

// NotificationRetryJob redelivers receipt emails queued after a failed send.
func (s *Scheduler) NotificationRetryJob(ctx context.Context) error {
	run := jobRunFromContext(ctx)

	sent, err := s.notifier.RetryPending(ctx, s.cfg.OutboxBatchSize, s.cfg.OutboxMaxAttempts)
	run.Count(outcomeSent, sent)
	obsmetrics.Scheduler().AddBatchProcessed(JobNotificationRetry, "notification_outbox", sent)
	if err != nil {
		s.logSchedulerError(ctx, "scheduler.notification.retry.failed", err, zap.Int("sent", sent))
	}
	return err
}

// LedgerReconcileJob compares each account balance with the sum of its
// ledger. Drift is reported, never corrected automatically.
func (s *Scheduler) LedgerReconcileJob(ctx context.Context) error {
	run := jobRunFromContext(ctx)

	drift, err := s.ledgerSvc.FindDrift(ctx, s.cfg.ReconcileBatchSize)
	if err != nil {
		s.logSchedulerError(ctx, "scheduler.ledger.reconcile.failed", err)
		return err
	}

	schedMetrics := obsmetrics.Scheduler()
	schedMetrics.SetLedgerDrift(JobLedgerReconcile, len(drift))
	schedMetrics.AddBatchProcessed(JobLedgerReconcile, "accounts", len(drift))
	run.Count(outcomeDrift, len(drift))

	for _, rec := range drift {
		s.logger(ctx).Error("scheduler.ledger.drift",
			zap.String("user_id", rec.UserID),
			zap.Int64("balance", rec.Balance),
			zap.Int64("ledger_sum", rec.LedgerSum),
			zap.Int64("drift", rec.Drift()),
		)
	}
	return nil
}
