// Package storage 封装视频对象存储的签名访问：上传 PUT URL、下载 GET URL 与公开地址。
// 后端由 storage.provider 选择，支持 GCS V4 签名与 S3 兼容存储预签名。
package storage

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bionicotaku/lingo-services-analysis/internal/infrastructure/configloader"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/wire"
)

// ProviderSet 暴露对象存储网关。
var ProviderSet = wire.NewSet(ProvideGateway)

// PresignRequest 描述一次签名请求。
type PresignRequest struct {
	Method      string
	Bucket      string
	Key         string
	ContentType string
	TTL         time.Duration
}

// Backend 是具体存储厂商的签名实现。
type Backend interface {
	Presign(ctx context.Context, req PresignRequest) (string, error)
	ObjectURL(bucket, key string) string
}

// Gateway 对上层提供统一的签名接口，负责 TTL 与过期时间计算。
type Gateway struct {
	backend       Backend
	bucket        string
	publicBaseURL string
	uploadTTL     time.Duration
	downloadTTL   time.Duration
	now           func() time.Time
	log           *log.Helper
}

// GatewayOption 定义可选配置。
type GatewayOption func(*Gateway)

// WithGatewayClock 覆盖时间获取函数，便于测试。
func WithGatewayClock(clock func() time.Time) GatewayOption {
	return func(g *Gateway) {
		if clock != nil {
			g.now = clock
		}
	}
}

// NewGateway 使用给定后端构造 Gateway。
func NewGateway(cfg configloader.StorageConfig, backend Backend, logger log.Logger, opts ...GatewayOption) (*Gateway, error) {
	if backend == nil {
		return nil, errors.New("storage: backend is required")
	}
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, errors.New("storage: bucket is required")
	}
	g := &Gateway{
		backend:       backend,
		bucket:        cfg.Bucket,
		publicBaseURL: strings.TrimRight(cfg.PublicBaseURL, "/"),
		uploadTTL:     cfg.UploadTTL.Std(),
		downloadTTL:   cfg.DownloadTTL.Std(),
		now:           time.Now,
		log:           log.NewHelper(log.With(logger, "component", "storage")),
	}
	if g.uploadTTL <= 0 {
		g.uploadTTL = 15 * time.Minute
	}
	if g.downloadTTL <= 0 {
		g.downloadTTL = 60 * time.Minute
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// ProvideGateway 根据配置选择后端，供 Wire 注入使用。
func ProvideGateway(ctx context.Context, cfg configloader.StorageConfig, logger log.Logger) (*Gateway, error) {
	var (
		backend Backend
		err     error
	)
	switch cfg.Provider {
	case configloader.StorageProviderS3:
		backend, err = NewS3Backend(ctx, cfg.S3)
	case configloader.StorageProviderGCS, "":
		backend, err = NewGCSBackend(ctx, cfg.GCS.SignerServiceAccount, logger)
	default:
		return nil, fmt.Errorf("storage: unsupported provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}
	return NewGateway(cfg, backend, logger)
}

// SignUpload 生成带 Content-Type 约束的 PUT 上传地址。
func (g *Gateway) SignUpload(ctx context.Context, key, contentType string) (string, time.Time, error) {
	return g.sign(ctx, http.MethodPut, key, contentType, g.uploadTTL)
}

// SignDownload 生成只读 GET 地址，供 STT 服务拉取视频。
func (g *Gateway) SignDownload(ctx context.Context, key string) (string, time.Time, error) {
	return g.sign(ctx, http.MethodGet, key, "", g.downloadTTL)
}

// PublicURL 返回对象的公开地址（不含签名）。
func (g *Gateway) PublicURL(key string) string {
	if g.publicBaseURL != "" {
		return g.publicBaseURL + "/" + escapeKey(key)
	}
	return g.backend.ObjectURL(g.bucket, key)
}

func (g *Gateway) sign(ctx context.Context, method, key, contentType string, ttl time.Duration) (string, time.Time, error) {
	if strings.TrimSpace(key) == "" {
		return "", time.Time{}, errors.New("storage: object key is required")
	}
	expires := g.now().Add(ttl)
	signed, err := g.backend.Presign(ctx, PresignRequest{
		Method:      method,
		Bucket:      g.bucket,
		Key:         key,
		ContentType: contentType,
		TTL:         ttl,
	})
	if err != nil {
		g.log.WithContext(ctx).Errorf("presign failed: method=%s bucket=%s key=%s err=%v", method, g.bucket, key, err)
		return "", time.Time{}, fmt.Errorf("presign %s %s: %w", method, key, err)
	}
	return signed, expires, nil
}

func escapeKey(key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}
