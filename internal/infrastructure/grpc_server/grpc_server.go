// Package grpcserver 装配入站 gRPC 服务，仅暴露与数据库就绪状态联动的健康检查。
package grpcserver

import (
	"context"

	"github.com/bionicotaku/lingo-services-analysis/internal/infrastructure/configloader"

	"github.com/bionicotaku/lingo-utils/observability"
	obsTrace "github.com/bionicotaku/lingo-utils/observability/tracing"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/middleware/logging"
	"github.com/go-kratos/kratos/v2/middleware/recovery"
	"github.com/go-kratos/kratos/v2/transport/grpc"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	otelgrpcfilters "go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc/filters"
	"go.opentelemetry.io/otel"
	stdgrpc "google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/stats"
	"google.golang.org/grpc/status"
)

// ReadinessChecker 检查依赖是否就绪。
type ReadinessChecker interface {
	Ready(ctx context.Context) error
}

// NewGRPCServer new a gRPC server.
func NewGRPCServer(c configloader.ServerConfig, metricsCfg *observability.MetricsConfig, checker ReadinessChecker, logger log.Logger) *grpc.Server {
	// 未提供指标配置时默认开启 otelgrpc，且不统计健康检查。
	metricsEnabled := true
	includeHealth := false
	if metricsCfg != nil {
		metricsEnabled = metricsCfg.GRPCEnabled
		includeHealth = metricsCfg.GRPCIncludeHealth
	}

	opts := []grpc.ServerOption{
		grpc.Middleware(
			obsTrace.Server(),
			recovery.Recovery(),
			logging.Server(logger),
		),
		grpc.CustomHealth(),
	}
	if metricsEnabled {
		handler := newServerHandler(includeHealth)
		opts = append(opts, grpc.Options(stdgrpc.StatsHandler(handler)))
	}
	if c.GRPC.Network != "" {
		opts = append(opts, grpc.Network(c.GRPC.Network))
	}
	if c.GRPC.Addr != "" {
		opts = append(opts, grpc.Address(c.GRPC.Addr))
	}
	if c.GRPC.Timeout > 0 {
		opts = append(opts, grpc.Timeout(c.GRPC.Timeout.Std()))
	}
	srv := grpc.NewServer(opts...)
	healthpb.RegisterHealthServer(srv, &readinessHealth{checker: checker, log: log.NewHelper(logger)})
	return srv
}

func newServerHandler(includeHealth bool) stats.Handler {
	opts := []otelgrpc.Option{
		otelgrpc.WithMeterProvider(otel.GetMeterProvider()),
	}
	if !includeHealth {
		opts = append(opts, otelgrpc.WithFilter(otelgrpcfilters.Not(otelgrpcfilters.HealthCheck())))
	}
	return otelgrpc.NewServerHandler(opts...)
}

// readinessHealth 以数据库探针结果回答健康检查，不支持 Watch。
type readinessHealth struct {
	healthpb.UnimplementedHealthServer
	checker ReadinessChecker
	log   *log.Helper
}

func (h *readinessHealth) Check(ctx context.Context, req *healthpb.HealthCheckRequest) (*healthpb.HealthCheckResponse, error) {
	if svc := req.GetService(); svc != "" {
		return nil, status.Errorf(codes.NotFound, "unknown service %q", svc)
	}
	if h.checker != nil {
		if err := h.checker.Ready(ctx); err != nil {
			h.log.WithContext(ctx).Warnf("grpc health: not ready: %v", err)
			return &healthpb.HealthCheckResponse{Status: healthpb.HealthCheckResponse_NOT_SERVING}, nil
		}
	}
	return &healthpb.HealthCheckResponse{Status: healthpb.HealthCheckResponse_SERVING}, nil
}
