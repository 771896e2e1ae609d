package po

import (
	"time"

	"github.com/google/uuid"
)

// ChallengeStatus 表示挑战状态。
type ChallengeStatus string

// 挑战状态常量
const (
	ChallengeStatusProceeding ChallengeStatus = "PROCEEDING" // 进行中
	ChallengeStatusCompleted  ChallengeStatus = "COMPLETED"  // 已完成
	ChallengeStatusFailed     ChallengeStatus = "FAILED"     // 过期或放弃
)

// DateLayout 为挑战起止日期的序列化格式。
const DateLayout = "2006-01-02"

// Challenge 表示 analysis.challenges 表的数据库实体。
type Challenge struct {
	ChallengeID    uuid.UUID       `db:"challenge_id"`
	UserID         uuid.UUID       `db:"user_id"`
	ChildID        uuid.UUID       `db:"child_id"`
	SourceReportID *uuid.UUID      `db:"source_report_id"` // 派生来源报告（唯一）
	Title          string          `db:"title"`
	Goal           string          `db:"goal"`
	StartDate      time.Time       `db:"start_date"` // 日期，时间部分恒为 00:00 UTC
	EndDate        time.Time       `db:"end_date"`   // 不早于 StartDate
	Status         ChallengeStatus `db:"status"`
	CreatedAt      time.Time       `db:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at"`

	Actions []ChallengeAction `db:"-"` // 按 Position 排序
}

// ChallengeAction 表示 analysis.challenge_actions 表的数据库实体。
type ChallengeAction struct {
	ActionID    uuid.UUID  `db:"action_id"`
	ChallengeID uuid.UUID  `db:"challenge_id"`
	Position    int32      `db:"position"`
	Content     string     `db:"content"`
	Completed   bool       `db:"completed"`
	CompletedAt *time.Time `db:"completed_at"`
	Reflection  *string    `db:"reflection"`
}

// IncompleteActions 返回尚未完成的动作，保持原有顺序。
func (c *Challenge) IncompleteActions() []ChallengeAction {
	if c == nil {
		return nil
	}
	out := make([]ChallengeAction, 0, len(c.Actions))
	for _, action := range c.Actions {
		if !action.Completed {
			out = append(out, action)
		}
	}
	return out
}

// DateOnly 截断到 UTC 日期。
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
