package controllers

import (
	"context"

	"github.com/bionicotaku/lingo-services-analysis/internal/controllers/dto"
	"github.com/bionicotaku/lingo-services-analysis/internal/services"

	kerrors "github.com/go-kratos/kratos/v2/errors"
	khttp "github.com/go-kratos/kratos/v2/transport/http"
)

// 挑战接口的 operation 名称。
const (
	OperationChallengeAccept   = "/analysis.v1.Challenge/Accept"
	OperationChallengeComplete = "/analysis.v1.Challenge/CompleteAction"
)

// ChallengeHandler 处理挑战接受与动作完成。
type ChallengeHandler struct {
	*BaseHandler
	svc ChallengeManager
}

// NewChallengeHandler 构造 ChallengeHandler。
func NewChallengeHandler(base *BaseHandler, svc ChallengeManager) *ChallengeHandler {
	if base == nil {
		base = NewBaseHandler(HandlerTimeouts{})
	}
	return &ChallengeHandler{BaseHandler: base, svc: svc}
}

// RegisterRoutes 挂载挑战相关路由。
func (h *ChallengeHandler) RegisterRoutes(r *khttp.Router) {
	r.POST("/api/v1/challenges/accept", h.Accept)
	r.POST("/api/v1/challenges/actions/{id}/complete", h.CompleteAction)
}

// Accept 从报告派生挑战。
func (h *ChallengeHandler) Accept(ctx khttp.Context) error {
	var req dto.AcceptChallengeRequest
	if err := ctx.Bind(&req); err != nil {
		return kerrors.BadRequest(services.ReasonRequestInvalid, "invalid request body").WithCause(err)
	}
	reportID, ok := req.ReportUUID()
	if !ok {
		return kerrors.BadRequest(services.ReasonRequestInvalid, "reportId must be a uuid")
	}
	khttp.SetOperation(ctx, OperationChallengeAccept)
	handler := ctx.Middleware(func(c context.Context, _ any) (any, error) {
		c, userID, err := h.RequireUser(c)
		if err != nil {
			return nil, err
		}
		timeoutCtx, cancel := h.WithTimeout(c, HandlerTypeCommand)
		defer cancel()
		return h.svc.CreateFromReport(timeoutCtx, userID, reportID)
	})
	out, err := handler(ctx, &req)
	if err != nil {
		return err
	}
	return Respond(ctx, out, "challenge created")
}

// CompleteAction 完成挑战动作，请求体可为空。
func (h *ChallengeHandler) CompleteAction(ctx khttp.Context) error {
	actionID, err := PathUUID(ctx, "id", services.ReasonRequestInvalid)
	if err != nil {
		return err
	}
	var req dto.CompleteActionRequest
	if ctx.Request().ContentLength != 0 {
		if err := ctx.Bind(&req); err != nil {
			return kerrors.BadRequest(services.ReasonRequestInvalid, "invalid request body").WithCause(err)
		}
	}
	khttp.SetOperation(ctx, OperationChallengeComplete)
	handler := ctx.Middleware(func(c context.Context, _ any) (any, error) {
		c, userID, err := h.RequireUser(c)
		if err != nil {
			return nil, err
		}
		timeoutCtx, cancel := h.WithTimeout(c, HandlerTypeCommand)
		defer cancel()
		return h.svc.CompleteAction(timeoutCtx, userID, actionID, req.Memo)
	})
	out, err := handler(ctx, &req)
	if err != nil {
		return err
	}
	return Respond(ctx, out, "action completed")
}
