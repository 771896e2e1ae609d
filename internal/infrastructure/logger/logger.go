// Package logger 构建带 trace/span 字段的 Kratos 日志实例，底层使用 gclog 输出 Cloud Logging 结构化 JSON。
package logger

import (
	"context"

	gclog "github.com/bionicotaku/lingo-utils/gclog"

	"github.com/go-kratos/kratos/v2/log"
	"go.opentelemetry.io/otel/trace"
)

// Config captures runtime metadata used to annotate logs.
type Config struct {
	Service string
	Version string
	HostID  string
	Env     string
}

// NewLogger builds a Kratos-compatible logger with trace/span enrichment.
func NewLogger(cfg Config) (log.Logger, error) {
	labels := map[string]string{}
	if cfg.HostID != "" {
		labels["service.id"] = cfg.HostID
	}
	baseLogger, err := gclog.NewLogger(
		gclog.WithService(cfg.Service),
		gclog.WithVersion(cfg.Version),
		gclog.WithEnvironment(cfg.Env),
		gclog.WithStaticLabels(labels),
		gclog.EnableSourceLocation(),
	)
	if err != nil {
		return nil, err
	}
	return log.With(baseLogger,
		"trace_id", spanValuer(func(sc trace.SpanContext) string {
			if sc.HasTraceID() {
				return sc.TraceID().String()
			}
			return ""
		}),
		"span_id", spanValuer(func(sc trace.SpanContext) string {
			if sc.HasSpanID() {
				return sc.SpanID().String()
			}
			return ""
		}),
	), nil
}

// Component 为子模块日志追加 component 字段。
func Component(logger log.Logger, name string) log.Logger {
	return log.With(logger, "component", name)
}

func spanValuer(fn func(trace.SpanContext) string) log.Valuer {
	return func(ctx context.Context) interface{} {
		return fn(trace.SpanContextFromContext(ctx))
	}
}
