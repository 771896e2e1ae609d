// Package po 定义面向持久化的数据对象（Persistent Objects），由 Repository 层使用。
// PO 对象映射数据库表结构，不直接暴露给上层业务逻辑。
package po

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// VideoStatus 表示视频分析流水线的状态。
type VideoStatus string

// 视频状态常量定义
const (
	VideoStatusUploading     VideoStatus = "UPLOADING"      // 已签发上传地址，等待客户端触发分析
	VideoStatusSTTProcessing VideoStatus = "STT_PROCESSING" // 语音转写进行中
	VideoStatusSTTCompleted  VideoStatus = "STT_COMPLETED"  // 转写完成，尚未提交 AI
	VideoStatusAIAnalyzing   VideoStatus = "AI_ANALYZING"   // 已提交 AI 服务，持有 execution id
	VideoStatusCompleted     VideoStatus = "COMPLETED"      // 报告已落库
	VideoStatusFailed        VideoStatus = "FAILED"         // 任一阶段失败
)

var videoTransitions = map[VideoStatus][]VideoStatus{
	VideoStatusUploading:     {VideoStatusSTTProcessing, VideoStatusFailed},
	VideoStatusSTTProcessing: {VideoStatusSTTCompleted, VideoStatusFailed},
	VideoStatusSTTCompleted:  {VideoStatusAIAnalyzing, VideoStatusFailed},
	VideoStatusAIAnalyzing:   {VideoStatusCompleted, VideoStatusFailed},
}

// Valid 判断状态值是否属于已知枚举。
func (s VideoStatus) Valid() bool {
	switch s {
	case VideoStatusUploading, VideoStatusSTTProcessing, VideoStatusSTTCompleted,
		VideoStatusAIAnalyzing, VideoStatusCompleted, VideoStatusFailed:
		return true
	default:
		return false
	}
}

// Terminal 表示状态不再迁移。
func (s VideoStatus) Terminal() bool {
	return s == VideoStatusCompleted || s == VideoStatusFailed
}

// CanTransitionTo 校验状态迁移是否在允许的边集合内。
func (s VideoStatus) CanTransitionTo(next VideoStatus) bool {
	for _, candidate := range videoTransitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

// NonTerminalVideoStatuses 返回所有可迁移到 FAILED 的状态。
func NonTerminalVideoStatuses() []VideoStatus {
	return []VideoStatus{
		VideoStatusUploading,
		VideoStatusSTTProcessing,
		VideoStatusSTTCompleted,
		VideoStatusAIAnalyzing,
	}
}

// Video 表示 analysis.videos 表的数据库实体。
// 生命周期：签发上传 → STT → 提交 AI → 轮询完成/失败。
type Video struct {
	VideoID          uuid.UUID       `db:"video_id"`           // 主键
	UserID           uuid.UUID       `db:"user_id"`            // 上传者
	ChildID          uuid.UUID       `db:"child_id"`           // 关联儿童（单用户单儿童）
	FileName         string          `db:"file_name"`          // 客户端原始文件名
	BucketKey        string          `db:"bucket_key"`         // 对象存储 key
	ContentType      string          `db:"content_type"`       // MIME
	ContextTag       *string         `db:"context_tag"`        // 互动场景标签（可选）
	DurationSeconds  int32           `db:"duration_seconds"`   // 客户端上报时长
	OriginalVideoURL string          `db:"original_video_url"` // 对象公开地址
	Status           VideoStatus     `db:"status"`             // 流水线状态
	STTResult        json.RawMessage `db:"stt_result"`         // 转写结果（JSON）
	AIExecutionID    *string         `db:"ai_execution_id"`    // AI 服务 execution handle
	ErrorMessage     *string         `db:"error_message"`      // 最近一次失败原因
	StatusUpdatedAt  time.Time       `db:"status_updated_at"`  // 最近一次状态变更
	CreatedAt        time.Time       `db:"created_at"`
	UpdatedAt        time.Time       `db:"updated_at"`
}

// HasExecutionHandle 判断是否已持有 AI execution id。
func (v *Video) HasExecutionHandle() bool {
	return v != nil && v.AIExecutionID != nil && *v.AIExecutionID != ""
}
