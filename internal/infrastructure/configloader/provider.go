package configloader

import (
	loginfra "github.com/bionicotaku/lingo-services-analysis/internal/infrastructure/logger"

	obswire "github.com/bionicotaku/lingo-utils/observability"
	txconfig "github.com/bionicotaku/lingo-utils/txmanager"
	"github.com/google/wire"
)

// ProviderSet exposes configuration-derived dependencies for Wire graphs.
var ProviderSet = wire.NewSet(
	ProvideBundle,
	ProvideServiceMetadata,
	ProvideBootstrap,
	ProvideServerConfig,
	ProvidePostgresConfig,
	ProvideStorageConfig,
	ProvideSpeechConfig,
	ProvideAIConfig,
	ProvidePipelineConfig,
	ProvideChallengeConfig,
	ProvideSweepConfig,
	ProvideObservabilityConfig,
	ProvideObservabilityInfo,
	ProvideMetricsConfig,
	ProvideLoggerConfig,
	ProvideTxConfig,
)

// ProvideBundle 从 Params 构建配置 Bundle。
func ProvideBundle(params Params) (*Bundle, error) {
	return Build(params)
}

// ProvideServiceMetadata returns the resolved ServiceMetadata from the bundle.
func ProvideServiceMetadata(b *Bundle) ServiceMetadata {
	if b == nil {
		return ServiceMetadata{}
	}
	return b.Service
}

// ProvideBootstrap exposes the strongly typed bootstrap configuration.
func ProvideBootstrap(b *Bundle) *Bootstrap {
	if b == nil || b.Bootstrap == nil {
		return &Bootstrap{}
	}
	return b.Bootstrap
}

// ProvideServerConfig returns the server section of the bootstrap configuration.
func ProvideServerConfig(bc *Bootstrap) ServerConfig { return bc.Server }

// ProvidePostgresConfig returns data.postgres.
func ProvidePostgresConfig(bc *Bootstrap) PostgresConfig { return bc.Data.Postgres }

// ProvideStorageConfig returns the object storage section.
func ProvideStorageConfig(bc *Bootstrap) StorageConfig { return bc.Storage }

// ProvideSpeechConfig returns the speech recognition section.
func ProvideSpeechConfig(bc *Bootstrap) SpeechConfig { return bc.Speech }

// ProvideAIConfig returns the AI analysis section.
func ProvideAIConfig(bc *Bootstrap) AIConfig { return bc.AI }

// ProvidePipelineConfig returns the pipeline section.
func ProvidePipelineConfig(bc *Bootstrap) PipelineConfig { return bc.Pipeline }

// ProvideChallengeConfig returns the challenge section.
func ProvideChallengeConfig(bc *Bootstrap) ChallengeConfig { return bc.Challenge }

// ProvideSweepConfig returns the sweep section.
func ProvideSweepConfig(bc *Bootstrap) SweepConfig { return bc.Sweep }

// ProvideObservabilityConfig exposes the normalized observability configuration.
func ProvideObservabilityConfig(b *Bundle) obswire.ObservabilityConfig {
	if b == nil {
		return obswire.ObservabilityConfig{}
	}
	return b.ObsConfig
}

// ProvideMetricsConfig 返回指标配置，未配置时为 nil（gRPC 服务器按默认值处理）。
func ProvideMetricsConfig(b *Bundle) *obswire.MetricsConfig {
	if b == nil {
		return nil
	}
	return b.ObsConfig.Metrics
}

// ProvideObservabilityInfo 将服务元信息转换为 observability.ServiceInfo。
func ProvideObservabilityInfo(meta ServiceMetadata) obswire.ServiceInfo {
	return meta.ObservabilityInfo()
}

// ProvideLoggerConfig 将服务元信息转换为日志配置。
func ProvideLoggerConfig(meta ServiceMetadata) loginfra.Config {
	return meta.LoggerConfig()
}

// ProvideTxConfig exposes the txmanager configuration.
func ProvideTxConfig(b *Bundle) txconfig.Config {
	if b == nil {
		return txconfig.Config{}
	}
	return b.TxConfig
}
