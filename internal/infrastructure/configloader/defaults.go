package configloader

import "time"

const (
	// defaultConfPath is the fallback configuration directory when no overrides are provided.
	defaultConfPath = "configs"
	// defaultEnvironment is used when APP_ENV is missing.
	defaultEnvironment = "development"
	// defaultServiceName is used when SERVICE_NAME is missing.
	defaultServiceName = "lingo-services-analysis"
	// defaultServiceVersion is used when SERVICE_VERSION is missing.
	defaultServiceVersion = "dev"
	// defaultGRPCMetricsEnabled toggles otelgrpc instrumentation when config omits explicit values.
	defaultGRPCMetricsEnabled = true
	// defaultGRPCIncludeHealth controls whether health check RPCs are exported by default.
	defaultGRPCIncludeHealth = false
)

const (
	defaultHTTPAddr        = "0.0.0.0:8080"
	defaultGRPCAddr        = "0.0.0.0:9000"
	defaultUploadTTL       = 15 * time.Minute
	defaultDownloadTTL     = 60 * time.Minute
	defaultSpeechTimeout   = 5 * time.Minute
	defaultSpeechLanguage  = "ko-KR"
	defaultAITimeout       = 30 * time.Second
	defaultMaxConcurrency  = 4
	defaultSTTTimeout      = 5 * time.Minute
	defaultSubmitTimeout   = 30 * time.Second
	defaultPollTimeout     = 10 * time.Second
	defaultShutdownTimeout = 30 * time.Second
	defaultSweepRunAt      = "00:00"
	defaultSweepTimezone   = "Asia/Seoul"
	defaultCommandTimeout  = 10 * time.Second
	defaultQueryTimeout    = 15 * time.Second
)

// applyDefaults 为未显式配置的字段填充默认值。
func applyDefaults(bc *Bootstrap) {
	if bc.Server.HTTP.Addr == "" {
		bc.Server.HTTP.Addr = defaultHTTPAddr
	}
	if bc.Server.GRPC.Addr == "" {
		bc.Server.GRPC.Addr = defaultGRPCAddr
	}
	if bc.Server.Handlers.Command <= 0 {
		bc.Server.Handlers.Command = Duration(defaultCommandTimeout)
	}
	if bc.Server.Handlers.Query <= 0 {
		bc.Server.Handlers.Query = Duration(defaultQueryTimeout)
	}
	if bc.Storage.Provider == "" {
		bc.Storage.Provider = StorageProviderGCS
	}
	if bc.Storage.UploadTTL <= 0 {
		bc.Storage.UploadTTL = Duration(defaultUploadTTL)
	}
	if bc.Storage.DownloadTTL <= 0 {
		bc.Storage.DownloadTTL = Duration(defaultDownloadTTL)
	}
	if bc.Speech.Timeout <= 0 {
		bc.Speech.Timeout = Duration(defaultSpeechTimeout)
	}
	if bc.Speech.Language == "" {
		bc.Speech.Language = defaultSpeechLanguage
	}
	if bc.AI.Timeout <= 0 {
		bc.AI.Timeout = Duration(defaultAITimeout)
	}
	p := &bc.Pipeline
	if p.MaxConcurrency <= 0 {
		p.MaxConcurrency = defaultMaxConcurrency
	}
	if p.STTTimeout <= 0 {
		p.STTTimeout = Duration(defaultSTTTimeout)
	}
	if p.SubmitTimeout <= 0 {
		p.SubmitTimeout = Duration(defaultSubmitTimeout)
	}
	if p.PollTimeout <= 0 {
		p.PollTimeout = Duration(defaultPollTimeout)
	}
	if p.ShutdownTimeout <= 0 {
		p.ShutdownTimeout = Duration(defaultShutdownTimeout)
	}
	if bc.Sweep.RunAt == "" {
		bc.Sweep.RunAt = defaultSweepRunAt
	}
	if bc.Sweep.Timezone == "" {
		bc.Sweep.Timezone = defaultSweepTimezone
	}
}
