// Package vo 定义视图对象（View Objects），用于向上层传递业务数据。
// VO 对象由 Service 层返回，经 Controller 转换为 HTTP 响应，隔离内部数据结构。
package vo

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ChallengeStatusNotCreated 表示报告尚未派生挑战。
const ChallengeStatusNotCreated = "NOT_CREATED"

// PresignedUpload 为上传签名结果。
type PresignedUpload struct {
	VideoID   uuid.UUID `json:"videoId"`
	UploadURL string    `json:"uploadUrl"`
	BucketKey string    `json:"bucketKey"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// AnalysisStatus 为状态轮询的返回视图，按状态填充不同字段。
type AnalysisStatus struct {
	VideoID         uuid.UUID       `json:"videoId"`
	Status          string          `json:"status"`
	Message         string          `json:"message"`
	DetailStatus    string          `json:"detailStatus,omitempty"`
	Progress        *int32          `json:"progress,omitempty"`
	ReportID        *uuid.UUID      `json:"reportId,omitempty"`
	Result          json.RawMessage `json:"result,omitempty"`
	ChallengeStatus string          `json:"challengeStatus,omitempty"`
	ChallengeID     *uuid.UUID      `json:"challengeId,omitempty"`
	ErrorMessage    string          `json:"errorMessage,omitempty"`
}
