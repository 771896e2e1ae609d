package dto

import (
	"strings"

	"github.com/bionicotaku/lingo-services-analysis/internal/services"

	"github.com/google/uuid"
)

// PresignRequest 为 POST /api/v1/videos/presign 的请求体。
type PresignRequest struct {
	FileName        string  `json:"fileName"`
	ContentType     string  `json:"contentType"`
	ContextTag      *string `json:"contextTag,omitempty"`
	DurationSeconds int32   `json:"durationSeconds"`
}

// ToPresignInput 转换为服务层输入。
func ToPresignInput(req *PresignRequest, userID uuid.UUID) services.PresignInput {
	if req == nil {
		return services.PresignInput{UserID: userID}
	}
	return services.PresignInput{
		UserID:          userID,
		FileName:        strings.TrimSpace(req.FileName),
		ContentType:     strings.TrimSpace(req.ContentType),
		ContextTag:      req.ContextTag,
		DurationSeconds: req.DurationSeconds,
	}
}

// StartAnalysisResponse 为启动分析的响应数据。
type StartAnalysisResponse struct {
	VideoID string `json:"videoId"`
	Status  string `json:"status"`
}
