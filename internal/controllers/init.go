// Package controllers 实现 HTTP 接口层：解析请求与调用者身份、调用服务层并封装统一响应。
package controllers

import (
	"github.com/bionicotaku/lingo-services-analysis/internal/infrastructure/configloader"
	"github.com/bionicotaku/lingo-services-analysis/internal/infrastructure/database"
	"github.com/bionicotaku/lingo-services-analysis/internal/services"

	"github.com/google/wire"
)

// ProviderSet exposes controller/handler constructors for DI.
var ProviderSet = wire.NewSet(
	ProvideHandlerTimeouts,
	NewBaseHandler,
	NewVideoHandler,
	NewChallengeHandler,
	NewHealthHandler,
	wire.Bind(new(VideoUploader), new(*services.UploadService)),
	wire.Bind(new(AnalysisStarter), new(*services.PipelineOrchestrator)),
	wire.Bind(new(StatusChecker), new(*services.StatusPoller)),
	wire.Bind(new(ChallengeManager), new(*services.ChallengeService)),
	wire.Bind(new(ReadinessChecker), new(*database.Readiness)),
)

// ProvideHandlerTimeouts 从配置派生 Handler 超时。
func ProvideHandlerTimeouts(cfg configloader.ServerConfig) HandlerTimeouts {
	return HandlerTimeouts{
		Command: cfg.Handlers.Command.Std(),
		Query:   cfg.Handlers.Query.Std(),
	}
}
