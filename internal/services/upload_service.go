package services

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"strings"
	"time"
	"unicode"

	"github.com/bionicotaku/lingo-services-analysis/internal/models/po"
	"github.com/bionicotaku/lingo-services-analysis/internal/models/vo"
	"github.com/bionicotaku/lingo-services-analysis/internal/repositories"

	kerrors "github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
)

// MaxVideoDurationSeconds 为允许上传的最长视频时长。
const MaxVideoDurationSeconds = 600

// PresignInput 为上传签名的输入。
type PresignInput struct {
	UserID          uuid.UUID
	FileName        string
	ContentType     string
	ContextTag      *string
	DurationSeconds int32
}

// UploadService 负责登记视频并签发直传地址。
type UploadService struct {
	videos      VideoStore
	children    ChildStore
	storage     ObjectStorage
	log         *log.Helper
	now         func() time.Time
	allowedMIME map[string]struct{}
}

// NewUploadService 创建 UploadService。
func NewUploadService(videos VideoStore, children ChildStore, storage ObjectStorage, logger log.Logger) *UploadService {
	return &UploadService{
		videos:   videos,
		children: children,
		storage:  storage,
		now:      time.Now,
		allowedMIME: map[string]struct{}{
			"video/mp4":                {},
			"video/quicktime":          {},
			"video/x-m4v":              {},
			"video/webm":               {},
			"video/3gpp":               {},
			"video/3gpp2":              {},
			"application/octet-stream": {},
		},
		log: log.NewHelper(log.With(logger, "component", "upload")),
	}
}

// WithClock 覆盖时间源，便于测试。
func (s *UploadService) WithClock(now func() time.Time) *UploadService {
	if now != nil {
		s.now = now
	}
	return s
}

// Presign 解析用户儿童、生成对象 key、签发 PUT 地址并以 UPLOADING 状态登记视频。
func (s *UploadService) Presign(ctx context.Context, input PresignInput) (*vo.PresignedUpload, error) {
	contentType, err := s.validate(input)
	if err != nil {
		return nil, err
	}

	child, count, err := s.children.FindByUser(ctx, nil, input.UserID)
	if err != nil {
		if errors.Is(err, repositories.ErrChildNotFound) {
			return nil, kerrors.NotFound(ReasonChildNotRegistered, "no child registered")
		}
		return nil, errQueryFailed("lookup child failed", err)
	}
	if count > 1 {
		s.log.WithContext(ctx).Warnf("user has %d children, using oldest: user_id=%s child_id=%s", count, input.UserID, child.ChildID)
	}

	now := s.now()
	fileName := sanitizeFileName(input.FileName)
	bucketKey := fmt.Sprintf("user-%s/%d-%s", input.UserID, now.UnixMilli(), fileName)

	uploadURL, expiresAt, err := s.storage.SignUpload(ctx, bucketKey, contentType)
	if err != nil {
		return nil, kerrors.InternalServer(ReasonStorageFailed, "sign upload url failed").WithCause(err)
	}

	video, err := s.videos.Create(ctx, nil, &po.Video{
		VideoID:          uuid.New(),
		UserID:           input.UserID,
		ChildID:          child.ChildID,
		FileName:         fileName,
		BucketKey:        bucketKey,
		ContentType:      contentType,
		ContextTag:       normalizeTag(input.ContextTag),
		DurationSeconds:  input.DurationSeconds,
		OriginalVideoURL: s.storage.PublicURL(bucketKey),
		Status:           po.VideoStatusUploading,
	})
	if err != nil {
		return nil, errQueryFailed("register video failed", err)
	}

	s.log.WithContext(ctx).Infof("video registered: video_id=%s user_id=%s key=%s", video.VideoID, input.UserID, bucketKey)
	return &vo.PresignedUpload{
		VideoID:   video.VideoID,
		UploadURL: uploadURL,
		BucketKey: bucketKey,
		ExpiresAt: expiresAt.UTC(),
	}, nil
}

func (s *UploadService) validate(input PresignInput) (string, error) {
	if input.UserID == uuid.Nil {
		return "", errUserRequired()
	}
	if strings.TrimSpace(input.FileName) == "" || sanitizeFileName(input.FileName) == "" {
		return "", kerrors.BadRequest(ReasonPresignInvalid, "fileName is required")
	}
	if strings.TrimSpace(input.ContentType) == "" {
		return "", kerrors.BadRequest(ReasonPresignInvalid, "contentType is required")
	}
	mediaType, _, err := mime.ParseMediaType(input.ContentType)
	if err != nil {
		return "", kerrors.BadRequest(ReasonPresignInvalid, "contentType is malformed")
	}
	mediaType = strings.ToLower(mediaType)
	if _, ok := s.allowedMIME[mediaType]; !ok {
		return "", kerrors.BadRequest(ReasonPresignInvalid, fmt.Sprintf("unsupported content type: %s", mediaType))
	}
	if input.DurationSeconds < 0 || input.DurationSeconds > MaxVideoDurationSeconds {
		return "", kerrors.BadRequest(ReasonPresignInvalid, fmt.Sprintf("duration must be between 0 and %d seconds", MaxVideoDurationSeconds))
	}
	return mediaType, nil
}

// sanitizeFileName 去掉路径部分与控制字符，空白替换为下划线。
func sanitizeFileName(name string) string {
	name = strings.TrimSpace(name)
	if idx := strings.LastIndexAny(name, `/\`); idx >= 0 {
		name = name[idx+1:]
	}
	return strings.Map(func(r rune) rune {
		switch {
		case unicode.IsControl(r):
			return -1
		case unicode.IsSpace(r):
			return '_'
		default:
			return r
		}
	}, name)
}

func normalizeTag(tag *string) *string {
	if tag == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*tag)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
