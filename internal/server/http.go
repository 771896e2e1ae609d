// Package server 装配入站 HTTP 服务及其中间件链。
package server

import (
	stdhttp "net/http"

	"github.com/bionicotaku/lingo-services-analysis/internal/controllers"
	"github.com/bionicotaku/lingo-services-analysis/internal/controllers/dto"
	"github.com/bionicotaku/lingo-services-analysis/internal/infrastructure/configloader"
	"github.com/bionicotaku/lingo-services-analysis/internal/metadata"

	obsTrace "github.com/bionicotaku/lingo-utils/observability/tracing"
	kerrors "github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/middleware"
	"github.com/go-kratos/kratos/v2/middleware/logging"
	kmd "github.com/go-kratos/kratos/v2/middleware/metadata"
	"github.com/go-kratos/kratos/v2/middleware/recovery"
	khttp "github.com/go-kratos/kratos/v2/transport/http"
)

// NewHTTPServer 构造 HTTP Server 并挂载业务路由与健康探针。
func NewHTTPServer(
	cfg configloader.ServerConfig,
	metrics *Metrics,
	video *controllers.VideoHandler,
	challenge *controllers.ChallengeHandler,
	health *controllers.HealthHandler,
	logger log.Logger,
) *khttp.Server {
	chain := []middleware.Middleware{
		recovery.Recovery(),
		obsTrace.Server(),
		kmd.Server(kmd.WithPropagatedPrefix(metadata.PropagatedPrefix)),
		logging.Server(logger),
	}
	if m := metrics.Middleware(); m != nil {
		chain = append(chain, m)
	}

	opts := []khttp.ServerOption{
		khttp.Middleware(chain...),
		khttp.ErrorEncoder(EncodeError),
	}
	if cfg.HTTP.Network != "" {
		opts = append(opts, khttp.Network(cfg.HTTP.Network))
	}
	if cfg.HTTP.Addr != "" {
		opts = append(opts, khttp.Address(cfg.HTTP.Addr))
	}
	if cfg.HTTP.Timeout > 0 {
		opts = append(opts, khttp.Timeout(cfg.HTTP.Timeout.Std()))
	}

	srv := khttp.NewServer(opts...)
	if health != nil {
		srv.HandleFunc("/healthz", health.Healthz)
		srv.HandleFunc("/readyz", health.Readyz)
	}

	router := srv.Route("/")
	if video != nil {
		video.RegisterRoutes(router)
	}
	if challenge != nil {
		challenge.RegisterRoutes(router)
	}
	return srv
}

// EncodeError 将 kratos 错误编码为统一信封，HTTP 状态码取自错误码。
func EncodeError(w stdhttp.ResponseWriter, r *stdhttp.Request, err error) {
	se := kerrors.FromError(err)
	codec, _ := khttp.CodecForRequest(r, "Accept")
	body, marshalErr := codec.Marshal(dto.Failure(se.Reason, se.Message))
	if marshalErr != nil {
		w.WriteHeader(stdhttp.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/"+codec.Name())
	code := int(se.Code)
	if code < 100 || code > 599 {
		code = stdhttp.StatusInternalServerError
	}
	w.WriteHeader(code)
	_, _ = w.Write(body)
}
