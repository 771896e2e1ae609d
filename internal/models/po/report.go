package po

import (
	"encoding/json"
	"math"
	"time"

	"github.com/google/uuid"
)

// AnalysisReport 表示 analysis.analysis_reports 表的数据库实体。
type AnalysisReport struct {
	ReportID           uuid.UUID       `db:"report_id"`
	UserID             uuid.UUID       `db:"user_id"`
	ChildID            uuid.UUID       `db:"child_id"`
	VideoID            uuid.UUID       `db:"video_id"`            // 唯一
	PIScore            float64         `db:"pi_score"`            // 积极互动得分
	NDIScore           float64         `db:"ndi_score"`           // 消极/指令式互动得分
	QIScore            float64         `db:"qi_score"`            // 派生值，见 ComputeQI
	RelationshipStatus *string         `db:"relationship_status"` // 诊断阶段名称
	Content            json.RawMessage `db:"content"`             // 完整 AI 结果（含成长指标）
	CreatedAt          time.Time       `db:"created_at"`
}

// ComputeQI 计算互动质量指数：PI/(PI+NDI)*100，保留两位小数；分母为 0 时返回 0。
func ComputeQI(pi, ndi float64) float64 {
	total := pi + ndi
	if total <= 0 || pi < 0 || ndi < 0 {
		return 0
	}
	return math.Round(pi/total*100*100) / 100
}
