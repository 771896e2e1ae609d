package dto

import (
	"strings"

	"github.com/google/uuid"
)

// AcceptChallengeRequest 为 POST /api/v1/challenges/accept 的请求体。
type AcceptChallengeRequest struct {
	ReportID string `json:"reportId"`
}

// ReportUUID 解析 reportId。
func (r *AcceptChallengeRequest) ReportUUID() (uuid.UUID, bool) {
	if r == nil {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(strings.TrimSpace(r.ReportID))
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// CompleteActionRequest 为 POST /api/v1/challenges/actions/{id}/complete 的请求体，memo 可选。
type CompleteActionRequest struct {
	Memo *string `json:"memo,omitempty"`
}
