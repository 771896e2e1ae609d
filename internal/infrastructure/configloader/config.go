// Package configloader 负责加载 YAML 配置、合并环境变量并派生各组件所需的强类型配置。
package configloader

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Bootstrap 为配置文件根结构。
type Bootstrap struct {
	Server        ServerConfig        `json:"server"`
	Data          DataConfig          `json:"data"`
	Storage       StorageConfig       `json:"storage"`
	Speech        SpeechConfig        `json:"speech"`
	AI            AIConfig            `json:"ai"`
	Pipeline      PipelineConfig      `json:"pipeline"`
	Challenge     ChallengeConfig     `json:"challenge"`
	Sweep         SweepConfig         `json:"sweep"`
	Observability ObservabilityConfig `json:"observability"`
}

// ServerConfig 描述入站服务。
type ServerConfig struct {
	HTTP     ListenerConfig  `json:"http"`
	GRPC     ListenerConfig  `json:"grpc"`
	Handlers HandlerTimeouts `json:"handlers"`
}

// ListenerConfig 为单个监听器配置。
type ListenerConfig struct {
	Network string   `json:"network"`
	Addr    string   `json:"addr"`
	Timeout Duration `json:"timeout"`
}

// HandlerTimeouts 为 Handler 级超时。
type HandlerTimeouts struct {
	Command Duration `json:"command"`
	Query   Duration `json:"query"`
}

// DataConfig 聚合数据源配置。
type DataConfig struct {
	Postgres PostgresConfig `json:"postgres"`
}

// PostgresConfig 为连接池参数。
type PostgresConfig struct {
	DSN                      string            `json:"dsn"`
	MaxOpenConns             int32             `json:"max_open_conns"`
	MinOpenConns             int32             `json:"min_open_conns"`
	MaxConnLifetime          Duration          `json:"max_conn_lifetime"`
	MaxConnIdleTime          Duration          `json:"max_conn_idle_time"`
	HealthCheckPeriod        Duration          `json:"health_check_period"`
	Schema                   string            `json:"schema"`
	EnablePreparedStatements bool              `json:"enable_prepared_statements"`
	Transaction              TransactionConfig `json:"transaction"`
}

// TransactionConfig 映射到 txmanager.Config。
type TransactionConfig struct {
	DefaultIsolation string   `json:"default_isolation"`
	DefaultTimeout   Duration `json:"default_timeout"`
	LockTimeout      Duration `json:"lock_timeout"`
	MaxRetries       int      `json:"max_retries"`
	MetricsEnabled   *bool    `json:"metrics_enabled"`
}

// StorageProvider 标识对象存储后端。
type StorageProvider string

// 对象存储后端
const (
	StorageProviderGCS StorageProvider = "gcs"
	StorageProviderS3  StorageProvider = "s3"
)

// StorageConfig 为对象存储配置。
type StorageConfig struct {
	Provider      StorageProvider `json:"provider"`
	Bucket        string          `json:"bucket"`
	PublicBaseURL string          `json:"public_base_url"`
	UploadTTL     Duration        `json:"upload_ttl"`
	DownloadTTL   Duration        `json:"download_ttl"`
	GCS           GCSConfig       `json:"gcs"`
	S3            S3Config        `json:"s3"`
}

// GCSConfig 为 GCS 签名配置。
type GCSConfig struct {
	SignerServiceAccount string `json:"signer_service_account"`
}

// S3Config 为 S3 兼容存储配置，Endpoint 为空时使用 AWS 默认解析。
type S3Config struct {
	Region          string `json:"region"`
	Endpoint        string `json:"endpoint"`
	AccessKeyID     string `json:"access_key_id"`
	SecretAccessKey string `json:"secret_access_key"`
	UsePathStyle    bool   `json:"use_path_style"`
}

// SpeechConfig 为 STT 服务配置。
type SpeechConfig struct {
	Endpoint   string   `json:"endpoint"`
	InvokePath string   `json:"invoke_path"`
	SecretKey  string   `json:"secret_key"`
	Language   string   `json:"language"`
	Timeout    Duration `json:"timeout"`
}

// AIConfig 为 AI 分析服务配置。
type AIConfig struct {
	Endpoint string   `json:"endpoint"`
	Timeout  Duration `json:"timeout"`
}

// PipelineConfig 为异步流水线参数。
type PipelineConfig struct {
	MaxConcurrency  int64    `json:"max_concurrency"`
	STTTimeout      Duration `json:"stt_timeout"`
	SubmitTimeout   Duration `json:"submit_timeout"`
	PollTimeout     Duration `json:"poll_timeout"`
	ShutdownTimeout Duration `json:"shutdown_timeout"`
}

// ChallengeConfig 控制挑战派生策略。
type ChallengeConfig struct {
	AutoCreate bool `json:"auto_create"`
}

// SweepConfig 为每日过期扫描配置。
type SweepConfig struct {
	RunAt    string `json:"run_at"`
	Timezone string `json:"timezone"`
}

// Location 解析业务时区，挑战日期与过期扫描共用；为空时使用 UTC。
func (c SweepConfig) Location() (*time.Location, error) {
	tz := strings.TrimSpace(c.Timezone)
	if tz == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", tz, err)
	}
	return loc, nil
}

// ObservabilityConfig 为可观测性配置，转换后交给 lingo-utils/observability。
type ObservabilityConfig struct {
	GlobalAttributes map[string]string `json:"global_attributes"`
	Tracing          *TracingConfig    `json:"tracing"`
	Metrics          *MetricsConfig    `json:"metrics"`
}

// TracingConfig 为链路追踪配置。
type TracingConfig struct {
	Enabled            bool              `json:"enabled"`
	Exporter           string            `json:"exporter"`
	Endpoint           string            `json:"endpoint"`
	Headers            map[string]string `json:"headers"`
	Insecure           bool              `json:"insecure"`
	SamplingRatio      float64           `json:"sampling_ratio"`
	BatchTimeout       Duration          `json:"batch_timeout"`
	ExportTimeout      Duration          `json:"export_timeout"`
	MaxQueueSize       int               `json:"max_queue_size"`
	MaxExportBatchSize int               `json:"max_export_batch_size"`
	Required           bool              `json:"required"`
	Attributes         map[string]string `json:"attributes"`
}

// MetricsConfig 为指标配置。
type MetricsConfig struct {
	Enabled             bool              `json:"enabled"`
	Exporter            string            `json:"exporter"`
	Endpoint            string            `json:"endpoint"`
	Headers             map[string]string `json:"headers"`
	Insecure            bool              `json:"insecure"`
	Interval            Duration          `json:"interval"`
	DisableRuntimeStats bool              `json:"disable_runtime_stats"`
	Required            bool              `json:"required"`
	ResourceAttributes  map[string]string `json:"resource_attributes"`
	GRPCEnabled         *bool             `json:"grpc_enabled"`
	GRPCIncludeHealth   *bool             `json:"grpc_include_health"`
}

// Duration 支持 "1.5s" 形式的字符串或以秒为单位的数字。
type Duration time.Duration

// Std 返回 time.Duration。
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// UnmarshalJSON 实现 json.Unmarshaler。
func (d *Duration) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "" || raw == "null" {
		*d = 0
		return nil
	}
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" {
			*d = 0
			return nil
		}
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		*d = Duration(parsed)
		return nil
	}
	var seconds float64
	if err := json.Unmarshal(data, &seconds); err != nil {
		return fmt.Errorf("invalid duration %s: %w", raw, err)
	}
	*d = Duration(seconds * float64(time.Second))
	return nil
}

// MarshalJSON 实现 json.Marshaler。
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}
