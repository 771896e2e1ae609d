package controllers

import (
	"context"

	"github.com/bionicotaku/lingo-services-analysis/internal/models/vo"
	"github.com/bionicotaku/lingo-services-analysis/internal/services"

	"github.com/google/uuid"
)

// VideoUploader 登记视频并签发上传地址。
type VideoUploader interface {
	Presign(ctx context.Context, input services.PresignInput) (*vo.PresignedUpload, error)
}

// AnalysisStarter 启动后台分析流水线。
type AnalysisStarter interface {
	StartAnalysis(ctx context.Context, userID, videoID uuid.UUID) error
}

// StatusChecker 查询分析进度。
type StatusChecker interface {
	CheckStatus(ctx context.Context, userID, videoID uuid.UUID) (*vo.AnalysisStatus, error)
}

// ChallengeManager 处理挑战派生与动作完成。
type ChallengeManager interface {
	CreateFromReport(ctx context.Context, userID, reportID uuid.UUID) (*vo.Challenge, error)
	CompleteAction(ctx context.Context, userID, actionID uuid.UUID, reflection *string) (*vo.ActionProgress, error)
}

// ReadinessChecker 检查依赖是否就绪。
type ReadinessChecker interface {
	Ready(ctx context.Context) error
}
