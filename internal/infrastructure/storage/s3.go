package storage

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/bionicotaku/lingo-services-analysis/internal/infrastructure/configloader"
)

// S3Backend 通过 aws-sdk-go-v2 预签名 S3 兼容存储的对象访问。
type S3Backend struct {
	presigner    *s3.PresignClient
	region       string
	endpoint     string
	usePathStyle bool
}

// NewS3Backend 加载 AWS 配置并构造预签名客户端。
// 配置了静态 AK/SK 时优先使用，否则走默认凭据链。
func NewS3Backend(ctx context.Context, cfg configloader.S3Config) (*S3Backend, error) {
	if cfg.Region == "" {
		return nil, errors.New("s3: region is required")
	}
	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	endpoint := strings.TrimRight(cfg.Endpoint, "/")
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})
	return &S3Backend{
		presigner:    s3.NewPresignClient(client),
		region:       cfg.Region,
		endpoint:     endpoint,
		usePathStyle: cfg.UsePathStyle,
	}, nil
}

// Presign 实现 Backend。
func (b *S3Backend) Presign(ctx context.Context, req PresignRequest) (string, error) {
	if req.TTL <= 0 {
		return "", errors.New("ttl must be positive")
	}
	expires := s3.WithPresignExpires(req.TTL)
	switch req.Method {
	case http.MethodPut:
		in := &s3.PutObjectInput{Bucket: aws.String(req.Bucket), Key: aws.String(req.Key)}
		if req.ContentType != "" {
			in.ContentType = aws.String(req.ContentType)
		}
		out, err := b.presigner.PresignPutObject(ctx, in, expires)
		if err != nil {
			return "", err
		}
		return out.URL, nil
	case http.MethodGet:
		out, err := b.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(req.Bucket),
			Key:    aws.String(req.Key),
		}, expires)
		if err != nil {
			return "", err
		}
		return out.URL, nil
	default:
		return "", fmt.Errorf("s3: unsupported presign method %s", req.Method)
	}
}

// ObjectURL 实现 Backend。
func (b *S3Backend) ObjectURL(bucket, key string) string {
	switch {
	case b.endpoint != "" && b.usePathStyle:
		return b.endpoint + "/" + bucket + "/" + escapeKey(key)
	case b.endpoint != "":
		scheme, host, ok := strings.Cut(b.endpoint, "://")
		if !ok {
			return b.endpoint + "/" + bucket + "/" + escapeKey(key)
		}
		return scheme + "://" + bucket + "." + host + "/" + escapeKey(key)
	default:
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", bucket, b.region, escapeKey(key))
	}
}
