package scheduler

import (
	"context"
	"sort"
	"time"

	obscontext "github.com/smallbiznis/hrledger/internal/observability/context"
	obslogger "github.com/smallbiznis/hrledger/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/hrledger/internal/observability/metrics"
	"go.uber.org/zap"
)

const (
	outcomeSent  = "sent"
	outcomeDrift = "drift"
)

// jobRun is the per-run state shared between runJob and the job body.
type jobRun struct {
	job        string
	runID      string
	batchSize  int
	startedAt  time.Time
	errorCount int
	outcomes   map[string]int
}

type jobRunKey struct{}

// Count adds n to a named outcome reported on scheduler.job.finish.
func (r *jobRun) Count(outcome string, n int) {
	if r == nil || n <= 0 {
		return
	}
	if r.outcomes == nil {
		r.outcomes = map[string]int{}
	}
	r.outcomes[outcome] += n
}

func (r *jobRun) processed() int {
	if r == nil {
		return 0
	}
	total := 0
	for _, n := range r.outcomes {
		total += n
	}
	return total
}

func (r *jobRun) IncError() {
	if r == nil {
		return
	}
	r.errorCount++
}

func (s *Scheduler) ensureJobRun(ctx context.Context, job string, batchSize int) (context.Context, *jobRun, bool) {
	if ctx == nil {
		ctx = context.Background()
	}
	if existing := jobRunFromContext(ctx); existing != nil {
		return ctx, existing, false
	}
	run := &jobRun{
		job:       job,
		runID:     s.genID.Generate().String(),
		batchSize: batchSize,
		startedAt: s.clock.Now(),
	}
	ctx = context.WithValue(ctx, jobRunKey{}, run)
	ctx = obscontext.WithActor(ctx, "system", "scheduler")
	return ctx, run, true
}

func jobRunFromContext(ctx context.Context) *jobRun {
	if ctx == nil {
		return nil
	}
	run, _ := ctx.Value(jobRunKey{}).(*jobRun)
	return run
}

func (s *Scheduler) logger(ctx context.Context) *zap.Logger {
	log := obslogger.WithContext(ctx, s.log)
	if run := jobRunFromContext(ctx); run != nil {
		log = log.With(zap.String("job", run.job), zap.String("run_id", run.runID))
	}
	return log
}

func (s *Scheduler) logJobStart(ctx context.Context, run *jobRun) {
	if run == nil {
		return
	}
	s.logger(ctx).Info("scheduler.job.start", zap.Int("batch_size", run.batchSize))
}

func (s *Scheduler) logJobFinish(ctx context.Context, run *jobRun) {
	if run == nil {
		return
	}
	fields := []zap.Field{
		zap.Int64("duration_ms", s.clock.Now().Sub(run.startedAt).Milliseconds()),
		zap.Int("processed_count", run.processed()),
		zap.Int("error_count", run.errorCount),
	}
	names := make([]string, 0, len(run.outcomes))
	for name := range run.outcomes {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fields = append(fields, zap.Int(name+"_count", run.outcomes[name]))
	}

	log := s.logger(ctx)
	if run.errorCount > 0 {
		log.Warn("scheduler.job.finish", fields...)
		return
	}
	log.Info("scheduler.job.finish", fields...)
}

// logSchedulerError logs err against the run in ctx and counts it.
func (s *Scheduler) logSchedulerError(ctx context.Context, msg string, err error, fields ...zap.Field) {
	if err == nil {
		return
	}
	jobRunFromContext(ctx).IncError()
	base := []zap.Field{
		zap.String("error_type", obsmetrics.ClassifySchedulerErrorType(err)),
		zap.String("error", err.Error()),
		zap.Bool("retryable", obsmetrics.IsSchedulerErrorRetryable(err)),
	}
	s.logger(ctx).Error(msg, append(base, fields...)...)
}
