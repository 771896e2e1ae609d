package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/storage"
	"github.com/go-kratos/kratos/v2/log"
	"golang.org/x/oauth2/google"
)

// GCSBackend 使用 service account 私钥生成 V4 Signed URL。
type GCSBackend struct {
	googleAccessID string
	privateKey     []byte
	now            func() time.Time
}

// GCSOption 定义可选配置。
type GCSOption func(*GCSBackend)

// WithServiceAccountKey 直接注入访问 ID 与私钥，跳过默认凭据探测。
func WithServiceAccountKey(accessID string, privateKey []byte) GCSOption {
	return func(b *GCSBackend) {
		if accessID != "" {
			b.googleAccessID = accessID
		}
		if len(privateKey) > 0 {
			b.privateKey = append([]byte(nil), privateKey...)
		}
	}
}

// WithGCSClock 覆盖签名时间。
func WithGCSClock(clock func() time.Time) GCSOption {
	return func(b *GCSBackend) {
		if clock != nil {
			b.now = clock
		}
	}
}

// NewGCSBackend 创建 GCSBackend，未注入私钥时从 Application Default Credentials 读取。
func NewGCSBackend(ctx context.Context, accessID string, logger log.Logger, opts ...GCSOption) (*GCSBackend, error) {
	b := &GCSBackend{googleAccessID: accessID, now: time.Now}
	for _, opt := range opts {
		opt(b)
	}

	if len(b.privateKey) == 0 {
		privKey, detected, err := loadServiceAccountKey(ctx)
		if err != nil {
			return nil, fmt.Errorf("init gcs signer: %w", err)
		}
		b.privateKey = privKey
		switch {
		case b.googleAccessID == "":
			b.googleAccessID = detected
		case detected != "" && detected != b.googleAccessID:
			log.NewHelper(logger).WithContext(ctx).Warnf("gcs signer access id mismatch: config=%s credentials=%s", b.googleAccessID, detected)
		}
	}

	if b.googleAccessID == "" {
		return nil, errors.New("gcs signer: google access id is required")
	}
	if len(b.privateKey) == 0 {
		return nil, errors.New("gcs signer: private key is required")
	}
	return b, nil
}

// Presign 实现 Backend。
func (b *GCSBackend) Presign(_ context.Context, req PresignRequest) (string, error) {
	if req.Bucket == "" {
		return "", errors.New("bucket is required")
	}
	if req.TTL <= 0 {
		return "", errors.New("ttl must be positive")
	}
	opts := &storage.SignedURLOptions{
		Scheme:         storage.SigningSchemeV4,
		Method:         req.Method,
		Expires:        b.now().Add(req.TTL),
		ContentType:    req.ContentType,
		GoogleAccessID: b.googleAccessID,
		PrivateKey:     b.privateKey,
	}
	return storage.SignedURL(req.Bucket, req.Key, opts)
}

// ObjectURL 实现 Backend。
func (b *GCSBackend) ObjectURL(bucket, key string) string {
	return "https://storage.googleapis.com/" + bucket + "/" + escapeKey(key)
}

type serviceAccountKey struct {
	PrivateKey  string `json:"private_key"`
	ClientEmail string `json:"client_email"`
}

func loadServiceAccountKey(ctx context.Context) ([]byte, string, error) {
	creds, err := google.FindDefaultCredentials(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("find default credentials: %w", err)
	}
	if len(creds.JSON) == 0 {
		return nil, "", errors.New("service account JSON not found in default credentials")
	}
	var key serviceAccountKey
	if err := json.Unmarshal(creds.JSON, &key); err != nil {
		return nil, "", fmt.Errorf("parse service account json: %w", err)
	}
	if key.PrivateKey == "" {
		return nil, "", errors.New("service account private key is empty; use a service account JSON credential")
	}
	return []byte(key.PrivateKey), key.ClientEmail, nil
}
