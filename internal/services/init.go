// Package services 实现视频分析流水线、状态轮询、成长指标与挑战用例。
package services

import (
	"github.com/bionicotaku/lingo-services-analysis/internal/infrastructure/configloader"
	"github.com/bionicotaku/lingo-services-analysis/internal/infrastructure/storage"
	"github.com/bionicotaku/lingo-services-analysis/internal/repositories"

	"github.com/bionicotaku/lingo-services-analysis/internal/clients/aianalysis"
	"github.com/bionicotaku/lingo-services-analysis/internal/clients/speech"

	"github.com/google/wire"
)

// ProviderSet 暴露服务层构造器及仓储/网关到接口的绑定。
var ProviderSet = wire.NewSet(
	NewUploadService,
	NewPipelineOrchestrator,
	NewStatusPoller,
	NewGrowthMetricsEngine,
	ProvideChallengeExtractor,
	NewChallengeService,
	ProvidePipelineConfig,
	ProvidePollerConfig,
	wire.Bind(new(VideoStore), new(*repositories.VideoRepository)),
	wire.Bind(new(ReportStore), new(*repositories.ReportRepository)),
	wire.Bind(new(ChallengeStore), new(*repositories.ChallengeRepository)),
	wire.Bind(new(ChildStore), new(*repositories.ChildRepository)),
	wire.Bind(new(ObjectStorage), new(*storage.Gateway)),
	wire.Bind(new(SpeechRecognizer), new(*speech.Client)),
	wire.Bind(new(AnalysisGateway), new(*aianalysis.Client)),
)

// ProvidePipelineConfig 将配置转换为流水线参数。
func ProvidePipelineConfig(cfg configloader.PipelineConfig) PipelineConfig {
	return PipelineConfig{
		MaxConcurrency: cfg.MaxConcurrency,
		STTTimeout:     cfg.STTTimeout.Std(),
		SubmitTimeout:  cfg.SubmitTimeout.Std(),
	}
}

// ProvidePollerConfig 将配置转换为轮询参数。
func ProvidePollerConfig(pipeline configloader.PipelineConfig, challenge configloader.ChallengeConfig) PollerConfig {
	return PollerConfig{
		PollTimeout:         pipeline.PollTimeout.Std(),
		AutoCreateChallenge: challenge.AutoCreate,
	}
}
