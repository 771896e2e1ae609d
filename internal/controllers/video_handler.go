package controllers

import (
	"context"

	"github.com/bionicotaku/lingo-services-analysis/internal/controllers/dto"
	"github.com/bionicotaku/lingo-services-analysis/internal/models/po"
	"github.com/bionicotaku/lingo-services-analysis/internal/services"

	kerrors "github.com/go-kratos/kratos/v2/errors"
	khttp "github.com/go-kratos/kratos/v2/transport/http"
)

// 视频接口的 operation 名称，用于中间件与指标标签。
const (
	OperationVideoPresign = "/analysis.v1.Video/Presign"
	OperationVideoStart   = "/analysis.v1.Video/StartAnalysis"
	OperationVideoStatus  = "/analysis.v1.Video/CheckStatus"
)

// VideoHandler 处理视频上传签名、启动分析与状态查询。
type VideoHandler struct {
	*BaseHandler
	uploads  VideoUploader
	pipeline AnalysisStarter
	poller   StatusChecker
}

// NewVideoHandler 构造 VideoHandler。
func NewVideoHandler(base *BaseHandler, uploads VideoUploader, pipeline AnalysisStarter, poller StatusChecker) *VideoHandler {
	if base == nil {
		base = NewBaseHandler(HandlerTimeouts{})
	}
	return &VideoHandler{BaseHandler: base, uploads: uploads, pipeline: pipeline, poller: poller}
}

// RegisterRoutes 挂载视频相关路由。
func (h *VideoHandler) RegisterRoutes(r *khttp.Router) {
	r.POST("/api/v1/videos/presign", h.Presign)
	r.POST("/api/v1/videos/{id}/start", h.StartAnalysis)
	r.GET("/api/v1/videos/{id}/status", h.CheckStatus)
}

// Presign 签发直传地址并登记视频。
func (h *VideoHandler) Presign(ctx khttp.Context) error {
	var req dto.PresignRequest
	if err := ctx.Bind(&req); err != nil {
		return kerrors.BadRequest(services.ReasonPresignInvalid, "invalid request body").WithCause(err)
	}
	khttp.SetOperation(ctx, OperationVideoPresign)
	handler := ctx.Middleware(func(c context.Context, in any) (any, error) {
		c, userID, err := h.RequireUser(c)
		if err != nil {
			return nil, err
		}
		timeoutCtx, cancel := h.WithTimeout(c, HandlerTypeCommand)
		defer cancel()
		return h.uploads.Presign(timeoutCtx, dto.ToPresignInput(in.(*dto.PresignRequest), userID))
	})
	out, err := handler(ctx, &req)
	if err != nil {
		return err
	}
	return Respond(ctx, out, "upload url issued")
}

// StartAnalysis 启动分析，立即返回。
func (h *VideoHandler) StartAnalysis(ctx khttp.Context) error {
	videoID, err := PathUUID(ctx, "id", services.ReasonRequestInvalid)
	if err != nil {
		return err
	}
	khttp.SetOperation(ctx, OperationVideoStart)
	handler := ctx.Middleware(func(c context.Context, _ any) (any, error) {
		c, userID, err := h.RequireUser(c)
		if err != nil {
			return nil, err
		}
		timeoutCtx, cancel := h.WithTimeout(c, HandlerTypeCommand)
		defer cancel()
		if err := h.pipeline.StartAnalysis(timeoutCtx, userID, videoID); err != nil {
			return nil, err
		}
		return &dto.StartAnalysisResponse{VideoID: videoID.String(), Status: string(po.VideoStatusSTTProcessing)}, nil
	})
	out, err := handler(ctx, nil)
	if err != nil {
		return err
	}
	return Respond(ctx, out, "analysis started")
}

// CheckStatus 返回分析状态。
func (h *VideoHandler) CheckStatus(ctx khttp.Context) error {
	videoID, err := PathUUID(ctx, "id", services.ReasonRequestInvalid)
	if err != nil {
		return err
	}
	khttp.SetOperation(ctx, OperationVideoStatus)
	handler := ctx.Middleware(func(c context.Context, _ any) (any, error) {
		c, userID, err := h.RequireUser(c)
		if err != nil {
			return nil, err
		}
		timeoutCtx, cancel := h.WithTimeout(c, HandlerTypeQuery)
		defer cancel()
		return h.poller.CheckStatus(timeoutCtx, userID, videoID)
	})
	out, err := handler(ctx, nil)
	if err != nil {
		return err
	}
	return Respond(ctx, out, "")
}
