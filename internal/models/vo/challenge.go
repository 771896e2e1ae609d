package vo

import (
	"github.com/bionicotaku/lingo-services-analysis/internal/models/po"

	"github.com/google/uuid"
)

// ChallengeAction 为挑战动作视图。
type ChallengeAction struct {
	ActionID  uuid.UUID `json:"actionId"`
	Content   string    `json:"content"`
	Completed bool      `json:"completed"`
}

// Challenge 为挑战视图。
type Challenge struct {
	ChallengeID    uuid.UUID         `json:"challengeId"`
	SourceReportID *uuid.UUID        `json:"sourceReportId,omitempty"`
	Title          string            `json:"title"`
	Goal           string            `json:"goal"`
	StartDate      string            `json:"startDate"`
	EndDate        string            `json:"endDate"`
	Status         string            `json:"status"`
	Actions        []ChallengeAction `json:"actions"`
}

// NewChallenge 从持久化实体构造视图。
func NewChallenge(c *po.Challenge) *Challenge {
	if c == nil {
		return nil
	}
	actions := make([]ChallengeAction, 0, len(c.Actions))
	for _, a := range c.Actions {
		actions = append(actions, ChallengeAction{ActionID: a.ActionID, Content: a.Content, Completed: a.Completed})
	}
	return &Challenge{
		ChallengeID:    c.ChallengeID,
		SourceReportID: c.SourceReportID,
		Title:          c.Title,
		Goal:           c.Goal,
		StartDate:      c.StartDate.Format(po.DateLayout),
		EndDate:        c.EndDate.Format(po.DateLayout),
		Status:         string(c.Status),
		Actions:        actions,
	}
}

// ActionProgress 为完成动作后的挑战进度。
type ActionProgress struct {
	ChallengeID     uuid.UUID `json:"challengeId"`
	ActionID        uuid.UUID `json:"actionId"`
	CompletedCount  int       `json:"completedCount"`
	TotalCount      int       `json:"totalCount"`
	ProgressPercent int       `json:"progressPercent"`
}
