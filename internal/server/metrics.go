package server

import (
	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/middleware"
	kmetrics "github.com/go-kratos/kratos/v2/middleware/metrics"
	"go.opentelemetry.io/otel"
)

const meterName = "lingo-services-analysis.http"

// Metrics 持有 HTTP 请求计数与耗时直方图，导出由全局 MeterProvider 负责。
type Metrics struct {
	middleware middleware.Middleware
}

// NewMetrics 在全局 MeterProvider 上注册 kratos 默认的服务端指标。
func NewMetrics(logger log.Logger) *Metrics {
	helper := log.NewHelper(logger)
	meter := otel.GetMeterProvider().Meter(meterName)

	requests, err := kmetrics.DefaultRequestsCounter(meter, kmetrics.DefaultServerRequestsCounterName)
	if err != nil {
		helper.Warnf("http metrics: register requests counter: %v", err)
		return &Metrics{}
	}
	seconds, err := kmetrics.DefaultSecondsHistogram(meter, kmetrics.DefaultServerSecondsHistogramName)
	if err != nil {
		helper.Warnf("http metrics: register seconds histogram: %v", err)
		return &Metrics{}
	}
	return &Metrics{
		middleware: kmetrics.Server(
			kmetrics.WithRequests(requests),
			kmetrics.WithSeconds(seconds),
		),
	}
}

// Middleware 返回指标中间件，注册失败时为 nil。
func (m *Metrics) Middleware() middleware.Middleware {
	if m == nil {
		return nil
	}
	return m.middleware
}
