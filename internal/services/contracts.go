package services

import (
	"context"
	"time"

	"github.com/bionicotaku/lingo-services-analysis/internal/models/analysis"
	"github.com/bionicotaku/lingo-services-analysis/internal/models/po"
	"github.com/bionicotaku/lingo-services-analysis/internal/repositories"

	"github.com/bionicotaku/lingo-utils/txmanager"
	"github.com/google/uuid"
)

// VideoStore 定义视频记录的持久化行为。
type VideoStore interface {
	Create(ctx context.Context, sess txmanager.Session, v *po.Video) (*po.Video, error)
	GetByID(ctx context.Context, sess txmanager.Session, videoID uuid.UUID) (*po.Video, error)
	TransitionStatus(ctx context.Context, sess txmanager.Session, input repositories.TransitionInput) (*po.Video, error)
	MarkFailed(ctx context.Context, sess txmanager.Session, videoID uuid.UUID, message string) (*po.Video, error)
}

// ReportStore 定义分析报告的持久化行为。
type ReportStore interface {
	Create(ctx context.Context, sess txmanager.Session, report *po.AnalysisReport) (*po.AnalysisReport, error)
	GetByID(ctx context.Context, sess txmanager.Session, reportID uuid.UUID) (*po.AnalysisReport, error)
	GetByVideoID(ctx context.Context, sess txmanager.Session, videoID uuid.UUID) (*po.AnalysisReport, error)
	FindLatestByChild(ctx context.Context, sess txmanager.Session, childID, excludeVideoID uuid.UUID) (*po.AnalysisReport, error)
}

// ChallengeStore 定义挑战与动作的持久化行为。
type ChallengeStore interface {
	Create(ctx context.Context, sess txmanager.Session, c *po.Challenge) (*po.Challenge, error)
	GetBySourceReport(ctx context.Context, sess txmanager.Session, reportID uuid.UUID) (*po.Challenge, error)
	ListByChildAndStatus(ctx context.Context, sess txmanager.Session, childID uuid.UUID, status po.ChallengeStatus) ([]*po.Challenge, error)
	GetByID(ctx context.Context, sess txmanager.Session, challengeID uuid.UUID) (*po.Challenge, error)
	GetAction(ctx context.Context, sess txmanager.Session, actionID uuid.UUID) (*po.ChallengeAction, error)
	CompleteAction(ctx context.Context, sess txmanager.Session, actionID uuid.UUID, reflection *string, at time.Time) (*po.ChallengeAction, error)
	CountActions(ctx context.Context, sess txmanager.Session, challengeID uuid.UUID) (completed int, total int, err error)
	FailExpired(ctx context.Context, sess txmanager.Session, today time.Time) (int64, error)
}

// ChildStore 读取儿童档案（只读）。
type ChildStore interface {
	GetByID(ctx context.Context, sess txmanager.Session, childID uuid.UUID) (*po.Child, error)
	FindByUser(ctx context.Context, sess txmanager.Session, userID uuid.UUID) (*po.Child, int, error)
}

// ObjectStorage 签发对象存储访问地址。
type ObjectStorage interface {
	SignUpload(ctx context.Context, key, contentType string) (string, time.Time, error)
	SignDownload(ctx context.Context, key string) (string, time.Time, error)
	PublicURL(key string) string
}

// SpeechRecognizer 将媒体地址转写为带说话人的文本。
type SpeechRecognizer interface {
	Transcribe(ctx context.Context, sourceURL string) (*analysis.Transcript, error)
}

// AnalysisGateway 为外部 AI 分析服务。
type AnalysisGateway interface {
	Submit(ctx context.Context, req *analysis.Request) (string, error)
	Poll(ctx context.Context, executionID string) (*analysis.Snapshot, error)
}
