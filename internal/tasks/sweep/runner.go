// Package sweep 每日将过期的进行中挑战置为 FAILED。
package sweep

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bionicotaku/lingo-services-analysis/internal/infrastructure/configloader"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/robfig/cron/v3"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// Sweeper 执行一次过期扫描。
type Sweeper interface {
	SweepExpired(ctx context.Context, today time.Time) (int64, error)
}

// Runner 按配置时区的每日固定时刻触发扫描。
type Runner struct {
	sweeper  Sweeper
	spec     string
	location *time.Location
	clock    func() time.Time
	metrics  *sweepMetrics
	log      *log.Helper
}

// RunnerParams 注入 Runner 所需依赖。
type RunnerParams struct {
	Sweeper Sweeper
	Config  configloader.SweepConfig
	Logger  log.Logger
}

// NewRunner 构造 Runner，run_at 需为 HH:MM。
func NewRunner(params RunnerParams) (*Runner, error) {
	if params.Sweeper == nil {
		return nil, errors.New("sweep: sweeper is required")
	}
	if params.Logger == nil {
		return nil, errors.New("sweep: logger is required")
	}
	spec, err := ScheduleSpec(params.Config.RunAt)
	if err != nil {
		return nil, err
	}
	loc, err := params.Config.Location()
	if err != nil {
		return nil, fmt.Errorf("sweep: %w", err)
	}
	helper := log.NewHelper(log.With(params.Logger, "component", "challenge_sweep"))
	return &Runner{
		sweeper:  params.Sweeper,
		spec:     spec,
		location: loc,
		clock:    time.Now,
		metrics:  newSweepMetrics(helper),
		log:      helper,
	}, nil
}

// WithClock 替换时间源。
func (r *Runner) WithClock(fn func() time.Time) {
	if fn != nil {
		r.clock = fn
	}
}

// Spec 返回 cron 表达式。
func (r *Runner) Spec() string { return r.spec }

// ScheduleSpec 将 HH:MM 转换为每日执行的 cron 表达式。
func ScheduleSpec(runAt string) (string, error) {
	runAt = strings.TrimSpace(runAt)
	if runAt == "" {
		runAt = "00:00"
	}
	t, err := time.Parse("15:04", runAt)
	if err != nil {
		return "", fmt.Errorf("sweep: run_at must be HH:MM: %w", err)
	}
	return fmt.Sprintf("%d %d * * *", t.Minute(), t.Hour()), nil
}

// Run 启动调度，直到 ctx 取消；取消后等待进行中的扫描结束。
func (r *Runner) Run(ctx context.Context) error {
	if r == nil {
		return nil
	}
	scheduler := cron.New(
		cron.WithLocation(r.location),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)
	if _, err := scheduler.AddFunc(r.spec, func() {
		if _, err := r.RunOnce(ctx); err != nil {
			r.log.WithContext(ctx).Errorf("challenge sweep failed: %v", err)
		}
	}); err != nil {
		return fmt.Errorf("sweep: schedule %q: %w", r.spec, err)
	}
	r.log.Infof("challenge sweep scheduled: spec=%q timezone=%s", r.spec, r.location)
	scheduler.Start()
	<-ctx.Done()
	<-scheduler.Stop().Done()
	return ctx.Err()
}

// RunOnce 以配置时区的当前日期执行一次扫描。
func (r *Runner) RunOnce(ctx context.Context) (int64, error) {
	today := r.clock().In(r.location)
	started := time.Now()
	affected, err := r.sweeper.SweepExpired(ctx, today)
	if err != nil {
		r.metrics.recordFailure(ctx)
		return 0, err
	}
	r.metrics.recordSuccess(ctx, affected, time.Since(started))
	r.log.WithContext(ctx).Infof("challenge sweep finished: date=%s failed_challenges=%d", today.Format("2006-01-02"), affected)
	return affected, nil
}

type sweepMetrics struct {
	swept    metric.Int64Counter
	failures metric.Int64Counter
	duration metric.Float64Histogram
	enabled  bool
}

const (
	metricNameSwept    = "challenge_sweep_expired_total"
	metricNameFailures = "challenge_sweep_failed_total"
	metricNameDuration = "challenge_sweep_duration_seconds"
)

func newSweepMetrics(helper *log.Helper) *sweepMetrics {
	meter := otel.GetMeterProvider().Meter("lingo-services-analysis.sweep")
	m := &sweepMetrics{}

	var err error
	if m.swept, err = meter.Int64Counter(metricNameSwept,
		metric.WithDescription("Number of challenges moved to FAILED by the daily sweep")); err != nil {
		helper.Warnf("sweep metrics: register swept counter: %v", err)
		return m
	}
	if m.failures, err = meter.Int64Counter(metricNameFailures,
		metric.WithDescription("Number of failed sweep runs")); err != nil {
		helper.Warnf("sweep metrics: register failure counter: %v", err)
	}
	if m.duration, err = meter.Float64Histogram(metricNameDuration,
		metric.WithDescription("Duration of a sweep run"), metric.WithUnit("s")); err != nil {
		helper.Warnf("sweep metrics: register duration histogram: %v", err)
	}
	m.enabled = true
	return m
}

func (m *sweepMetrics) recordSuccess(ctx context.Context, affected int64, took time.Duration) {
	if m == nil || !m.enabled {
		return
	}
	if m.swept != nil {
		m.swept.Add(ctx, affected)
	}
	if m.duration != nil {
		m.duration.Record(ctx, took.Seconds())
	}
}

func (m *sweepMetrics) recordFailure(ctx context.Context) {
	if m == nil || !m.enabled || m.failures == nil {
		return
	}
	m.failures.Add(ctx, 1)
}
