package configloader

import (
	"errors"
	"flag"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	loginfra "github.com/bionicotaku/lingo-services-analysis/internal/infrastructure/logger"

	obswire "github.com/bionicotaku/lingo-utils/observability"
	txconfig "github.com/bionicotaku/lingo-utils/txmanager"
	"github.com/go-kratos/kratos/v2/config"
	"github.com/go-kratos/kratos/v2/config/file"
	"github.com/joho/godotenv"
)

const (
	envConfPath       = "CONF_PATH"
	envServiceName    = "SERVICE_NAME"
	envServiceVersion = "SERVICE_VERSION"
	envAppEnv         = "APP_ENV"
	envDatabaseURL    = "DATABASE_URL"
	envPort           = "PORT"
	envAIServerURL    = "AI_SERVER_URL"
	envSpeechSecret   = "CLOVA_SECRET_KEY"
	envSpeechInvoke   = "CLOVA_INVOKE_URL"
	envStorageBucket  = "STORAGE_BUCKET"
	envS3AccessKey    = "S3_ACCESS_KEY_ID"
	envS3SecretKey    = "S3_SECRET_ACCESS_KEY"
)

var envFileNames = []string{".env.local", ".env"}

// Params 包含构造配置 Bundle 所需的运行时输入参数。
type Params struct {
	ConfPath string // 配置文件路径（可为空，使用默认值）
	Name     string // 编译期注入的服务名，可为空
	Version  string // 编译期注入的版本，可为空
}

// ServiceMetadata 保存服务标识信息，供日志和可观测性组件使用。
type ServiceMetadata struct {
	Name        string
	Version     string
	Environment string
	InstanceID  string
}

// Bundle 聚合强类型的配置片段，供下游 Wire 注入使用。
type Bundle struct {
	Bootstrap *Bootstrap
	ObsConfig obswire.ObservabilityConfig
	Service   ServiceMetadata
	TxConfig  txconfig.Config
}

// BuildError 捕获配置构建过程中的上下文错误信息。
type BuildError struct {
	Stage string
	Path  string
	Err   error
}

// Error 实现 error 接口，提供包含上下文的错误信息。
func (e BuildError) Error() string {
	if e.Stage == "" {
		return e.Err.Error()
	}
	if e.Path != "" {
		return fmt.Sprintf("config %s at %q: %v", e.Stage, e.Path, e.Err)
	}
	return fmt.Sprintf("config %s: %v", e.Stage, e.Err)
}

// Unwrap 暴露底层错误，支持 errors.Is/As 链式查询。
func (e BuildError) Unwrap() error {
	return e.Err
}

// ObservabilityInfo 将服务元信息转换为 observability.ServiceInfo。
func (m ServiceMetadata) ObservabilityInfo() obswire.ServiceInfo {
	return obswire.ServiceInfo{
		Name:        m.Name,
		Version:     m.Version,
		Environment: m.Environment,
	}
}

// LoggerConfig 将服务元信息转换为日志配置。
func (m ServiceMetadata) LoggerConfig() loginfra.Config {
	return loginfra.Config{
		Service: m.Name,
		Version: m.Version,
		HostID:  m.InstanceID,
		Env:     m.Environment,
	}
}

// ParseConfPath 解析 -conf 参数，未提供时返回空串交给 ResolveConfPath 回退。
func ParseConfPath(fs *flag.FlagSet, args []string) (string, error) {
	var confPath string
	fs.StringVar(&confPath, "conf", "", "config path, eg: -conf configs/config.yaml")
	if err := fs.Parse(args); err != nil {
		return "", err
	}
	return confPath, nil
}

// Build 从配置文件构建 Bundle，包含配置对象和服务元信息。
//
// 流程：
// 1. 解析配置路径（应用回退规则）并加载 .env 文件
// 2. 加载 YAML，应用环境变量覆盖与默认值
// 3. 校验必填项
// 4. 推导服务元信息与可观测性、事务配置
func Build(params Params) (*Bundle, error) {
	confPath := ResolveConfPath(params.ConfPath)
	loadEnvFiles(confPath)

	bootstrap, err := loadBootstrap(confPath)
	if err != nil {
		return nil, err
	}

	meta := buildServiceMetadata(params.Name, params.Version)
	return &Bundle{
		Bootstrap: bootstrap,
		ObsConfig: toObservabilityConfig(bootstrap.Observability),
		Service:   meta,
		TxConfig:  toTxManagerConfig(bootstrap.Data.Postgres.Transaction),
	}, nil
}

// ResolveConfPath 应用回退规则确定要加载的配置目录/文件路径。
// 优先级：显式传入路径 > CONF_PATH 环境变量 > 默认路径。
func ResolveConfPath(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if env := os.Getenv(envConfPath); env != "" {
		return env
	}
	return defaultConfPath
}

// loadBootstrap 从指定路径加载并解析 Bootstrap 配置。
//
// 错误阶段：
//   - "load": 文件读取失败（文件不存在、权限不足）
//   - "scan": YAML/JSON 解析失败（格式错误、类型不匹配）
//   - "validate": 必填字段缺失或取值非法
func loadBootstrap(confPath string) (*Bootstrap, error) {
	c := config.New(config.WithSource(file.NewSource(confPath)))
	if err := c.Load(); err != nil {
		return nil, BuildError{Stage: "load", Path: confPath, Err: err}
	}
	defer c.Close()

	var bc Bootstrap
	if err := c.Scan(&bc); err != nil {
		return nil, BuildError{Stage: "scan", Path: confPath, Err: err}
	}
	applyEnvOverrides(&bc)
	applyDefaults(&bc)

	if err := validate(&bc); err != nil {
		return nil, BuildError{Stage: "validate", Path: confPath, Err: err}
	}
	return &bc, nil
}

// applyEnvOverrides 应用环境变量覆盖配置文件中的特定字段。
// 环境变量为空时不覆盖，保留配置文件原值。
//
//   - DATABASE_URL: 覆盖 data.postgres.dsn
//   - PORT: 覆盖 server.http.addr 的端口部分（Cloud Run 动态端口）
//   - AI_SERVER_URL: 覆盖 ai.endpoint
//   - CLOVA_SECRET_KEY / CLOVA_INVOKE_URL: 覆盖 speech.secret_key 与 speech.endpoint + invoke_path
//   - STORAGE_BUCKET: 覆盖 storage.bucket
//   - S3_ACCESS_KEY_ID / S3_SECRET_ACCESS_KEY: 覆盖 storage.s3 静态凭据
func applyEnvOverrides(bc *Bootstrap) {
	if bc == nil {
		return
	}
	if dsn := os.Getenv(envDatabaseURL); dsn != "" {
		bc.Data.Postgres.DSN = dsn
	}
	if port := os.Getenv(envPort); port != "" {
		bc.Server.HTTP.Addr = replacePort(bc.Server.HTTP.Addr, port)
	}
	if url := os.Getenv(envAIServerURL); url != "" {
		bc.AI.Endpoint = url
	}
	if key := os.Getenv(envSpeechSecret); key != "" {
		bc.Speech.SecretKey = key
	}
	if invoke := os.Getenv(envSpeechInvoke); invoke != "" {
		bc.Speech.Endpoint, bc.Speech.InvokePath = splitInvokeURL(invoke)
	}
	if bucket := os.Getenv(envStorageBucket); bucket != "" {
		bc.Storage.Bucket = bucket
	}
	if ak := os.Getenv(envS3AccessKey); ak != "" {
		bc.Storage.S3.AccessKeyID = ak
	}
	if sk := os.Getenv(envS3SecretKey); sk != "" {
		bc.Storage.S3.SecretAccessKey = sk
	}
}

// validate 校验运行所需的最小配置集合。
func validate(bc *Bootstrap) error {
	var errs []error
	if strings.TrimSpace(bc.Data.Postgres.DSN) == "" {
		errs = append(errs, errors.New("data.postgres.dsn is required (set DATABASE_URL)"))
	}
	if strings.TrimSpace(bc.Storage.Bucket) == "" {
		errs = append(errs, errors.New("storage.bucket is required"))
	}
	switch bc.Storage.Provider {
	case StorageProviderGCS:
	case StorageProviderS3:
		if bc.Storage.S3.Region == "" {
			errs = append(errs, errors.New("storage.s3.region is required for provider s3"))
		}
	default:
		errs = append(errs, fmt.Errorf("storage.provider %q is not supported", bc.Storage.Provider))
	}
	if strings.TrimSpace(bc.AI.Endpoint) == "" {
		errs = append(errs, errors.New("ai.endpoint is required (set AI_SERVER_URL)"))
	}
	if strings.TrimSpace(bc.Speech.Endpoint) == "" {
		errs = append(errs, errors.New("speech.endpoint is required (set CLOVA_INVOKE_URL)"))
	}
	if _, err := time.Parse("15:04", bc.Sweep.RunAt); err != nil {
		errs = append(errs, fmt.Errorf("sweep.run_at must be HH:MM: %w", err))
	}
	if _, err := time.LoadLocation(bc.Sweep.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("sweep.timezone: %w", err))
	}
	return errors.Join(errs...)
}

// buildServiceMetadata 构建服务元信息，用于日志、追踪和指标标签。
// 数据来源优先级：环境变量 > 编译期注入值 > 默认值。
func buildServiceMetadata(name, version string) ServiceMetadata {
	host, _ := os.Hostname()
	return ServiceMetadata{
		Name:        firstNonEmpty(os.Getenv(envServiceName), name, defaultServiceName),
		Version:     firstNonEmpty(os.Getenv(envServiceVersion), version, defaultServiceVersion),
		Environment: firstNonEmpty(os.Getenv(envAppEnv), defaultEnvironment),
		InstanceID:  firstNonEmpty(host, "unknown-instance"),
	}
}

// loadEnvFiles best-effort 加载配置相关的 .env 文件，失败时忽略以保持幂等。
func loadEnvFiles(confPath string) {
	files := envFileCandidates(confPath)
	if len(files) == 0 {
		return
	}
	_ = godotenv.Load(files...)
}

// envFileCandidates 按 confPath 目录 -> 当前工作目录的顺序返回存在的 .env 文件。
// godotenv 不会覆盖已设置的变量，因此靠前的文件优先。
func envFileCandidates(confPath string) []string {
	seen := make(map[string]struct{})
	var files []string
	for _, dir := range orderedDirs(confPath) {
		for _, name := range envFileNames {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err != nil {
				continue
			}
			if _, ok := seen[candidate]; ok {
				continue
			}
			files = append(files, candidate)
			seen[candidate] = struct{}{}
		}
	}
	return files
}

func orderedDirs(confPath string) []string {
	var dirs []string
	appendUnique := func(path string) {
		if path == "" {
			return
		}
		clean := filepath.Clean(path)
		for _, existing := range dirs {
			if existing == clean {
				return
			}
		}
		dirs = append(dirs, clean)
	}

	if confPath != "" {
		if info, err := os.Stat(confPath); err == nil {
			if info.IsDir() {
				appendUnique(confPath)
			} else {
				appendUnique(filepath.Dir(confPath))
			}
		}
	}
	if cwd, err := os.Getwd(); err == nil {
		appendUnique(cwd)
	}
	return dirs
}

// toObservabilityConfig 将配置文件中的可观测性节转换为 observability 包的规范化结构。
func toObservabilityConfig(src ObservabilityConfig) obswire.ObservabilityConfig {
	cfg := obswire.ObservabilityConfig{
		GlobalAttributes: cloneStringMap(src.GlobalAttributes),
	}
	if tr := src.Tracing; tr != nil {
		cfg.Tracing = &obswire.TracingConfig{
			Enabled:            tr.Enabled,
			Exporter:           tr.Exporter,
			Endpoint:           tr.Endpoint,
			Headers:            cloneStringMap(tr.Headers),
			Insecure:           tr.Insecure,
			SamplingRatio:      tr.SamplingRatio,
			BatchTimeout:       tr.BatchTimeout.Std(),
			ExportTimeout:      tr.ExportTimeout.Std(),
			MaxQueueSize:       tr.MaxQueueSize,
			MaxExportBatchSize: tr.MaxExportBatchSize,
			Required:           tr.Required,
			Attributes:         cloneStringMap(tr.Attributes),
		}
	}
	if mt := src.Metrics; mt != nil {
		grpcEnabled := defaultGRPCMetricsEnabled
		if mt.GRPCEnabled != nil {
			grpcEnabled = *mt.GRPCEnabled
		}
		grpcIncludeHealth := defaultGRPCIncludeHealth
		if mt.GRPCIncludeHealth != nil {
			grpcIncludeHealth = *mt.GRPCIncludeHealth
		}
		cfg.Metrics = &obswire.MetricsConfig{
			Enabled:             mt.Enabled,
			Exporter:            mt.Exporter,
			Endpoint:            mt.Endpoint,
			Headers:             cloneStringMap(mt.Headers),
			Insecure:            mt.Insecure,
			Interval:            mt.Interval.Std(),
			DisableRuntimeStats: mt.DisableRuntimeStats,
			Required:            mt.Required,
			ResourceAttributes:  cloneStringMap(mt.ResourceAttributes),
			GRPCEnabled:         grpcEnabled,
			GRPCIncludeHealth:   grpcIncludeHealth,
		}
	}
	return cfg
}

func toTxManagerConfig(tx TransactionConfig) txconfig.Config {
	return txconfig.Config{
		DefaultIsolation: tx.DefaultIsolation,
		DefaultTimeout:   tx.DefaultTimeout.Std(),
		LockTimeout:      tx.LockTimeout.Std(),
		MaxRetries:       tx.MaxRetries,
		MetricsEnabled:   tx.MetricsEnabled,
	}
}

func cloneStringMap(src map[string]string) map[string]string {
	if len(src) == 0 {
		return nil
	}
	dst := make(map[string]string, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

// replacePort 替换地址中的端口部分，保留 host。
//   - "0.0.0.0:9090" -> "0.0.0.0:8080"
//   - "[::1]:9090" -> "[::1]:8080"
func replacePort(addr, newPort string) string {
	if addr == "" {
		return "0.0.0.0:" + newPort
	}
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return "0.0.0.0:" + newPort
	}
	return net.JoinHostPort(host, newPort)
}

// splitInvokeURL 将 https://host/external/v1/xxx 拆为 endpoint 与 path 前缀。
func splitInvokeURL(raw string) (string, string) {
	raw = strings.TrimRight(strings.TrimSpace(raw), "/")
	schemeEnd := strings.Index(raw, "://")
	if schemeEnd < 0 {
		return raw, ""
	}
	rest := raw[schemeEnd+3:]
	if slash := strings.Index(rest, "/"); slash >= 0 {
		return raw[:schemeEnd+3+slash], rest[slash:]
	}
	return raw, ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
