package services

import (
	"errors"

	kerrors "github.com/go-kratos/kratos/v2/errors"
)

// 错误原因码，随 kratos 错误返回给调用方。
const (
	ReasonVideoNotFound           = "VIDEO_NOT_FOUND"
	ReasonReportNotFound          = "REPORT_NOT_FOUND"
	ReasonChallengeNotFound       = "CHALLENGE_NOT_FOUND"
	ReasonActionNotFound          = "ACTION_NOT_FOUND"
	ReasonChildNotRegistered      = "CHILD_NOT_REGISTERED"
	ReasonVideoStatusConflict     = "VIDEO_STATUS_CONFLICT"
	ReasonChallengeAlreadyCreated = "CHALLENGE_ALREADY_CREATED"
	ReasonActionAlreadyCompleted  = "ACTION_ALREADY_COMPLETED"
	ReasonPresignInvalid          = "PRESIGN_INVALID"
	ReasonChallengePlanInvalid    = "CHALLENGE_PLAN_INVALID"
	ReasonAccessDenied            = "ACCESS_DENIED"
	ReasonUserRequired            = "USER_REQUIRED"
	ReasonStorageFailed           = "STORAGE_FAILED"
	ReasonQueryFailed             = "QUERY_FAILED"
	ReasonShuttingDown            = "SHUTTING_DOWN"
	ReasonRequestInvalid          = "REQUEST_INVALID"
)

// ErrNoChallengePlan 表示 AI 结果中没有可用的挑战建议。
var ErrNoChallengePlan = errors.New("no usable challenge plan in analysis result")

func errUserRequired() error {
	return kerrors.Unauthorized(ReasonUserRequired, "user metadata is required")
}

func errAccessDenied(msg string) error {
	return kerrors.Forbidden(ReasonAccessDenied, msg)
}

func errQueryFailed(msg string, cause error) error {
	return kerrors.InternalServer(ReasonQueryFailed, msg).WithCause(cause)
}
