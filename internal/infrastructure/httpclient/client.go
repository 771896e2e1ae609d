// Package httpclient 构造带统一中间件的 Kratos HTTP 出站客户端，供外部 AI/STT 网关复用。
package httpclient

import (
	"context"
	"errors"
	"strings"
	"time"

	obsTrace "github.com/bionicotaku/lingo-utils/observability/tracing"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/middleware"
	"github.com/go-kratos/kratos/v2/middleware/circuitbreaker"
	"github.com/go-kratos/kratos/v2/middleware/metadata"
	"github.com/go-kratos/kratos/v2/middleware/recovery"
	"github.com/go-kratos/kratos/v2/transport"
	khttp "github.com/go-kratos/kratos/v2/transport/http"
)

// Config 描述一个外部 HTTP 依赖。
type Config struct {
	Name     string
	Endpoint string
	Timeout  time.Duration
	Headers  map[string]string
}

// New 创建 Kratos HTTP 客户端，返回的 cleanup 负责关闭空闲连接。
func New(ctx context.Context, cfg Config, logger log.Logger) (*khttp.Client, func(), error) {
	helper := log.NewHelper(logger)
	endpoint := strings.TrimRight(strings.TrimSpace(cfg.Endpoint), "/")
	if endpoint == "" {
		return nil, nil, errors.New(cfg.Name + ": endpoint is required")
	}

	mws := []middleware.Middleware{
		recovery.Recovery(),
		metadata.Client(),
		obsTrace.Client(),
		circuitbreaker.Client(),
	}
	if len(cfg.Headers) > 0 {
		mws = append(mws, StaticHeaders(cfg.Headers))
	}

	opts := []khttp.ClientOption{
		khttp.WithEndpoint(endpoint),
		khttp.WithMiddleware(mws...),
	}
	if cfg.Timeout > 0 {
		opts = append(opts, khttp.WithTimeout(cfg.Timeout))
	}

	client, err := khttp.NewClient(ctx, opts...)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if err := client.Close(); err != nil {
			helper.Errorf("close %s http client: %v", cfg.Name, err)
		}
	}
	return client, cleanup, nil
}

// StaticHeaders 为每个出站请求写入固定请求头（如 API Key）。
func StaticHeaders(headers map[string]string) middleware.Middleware {
	return func(next middleware.Handler) middleware.Handler {
		return func(ctx context.Context, req any) (any, error) {
			if tr, ok := transport.FromClientContext(ctx); ok {
				for k, v := range headers {
					tr.RequestHeader().Set(k, v)
				}
			}
			return next(ctx, req)
		}
	}
}
