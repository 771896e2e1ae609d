package controllers

import (
	"context"
	"strings"
	"time"

	"github.com/bionicotaku/lingo-services-analysis/internal/controllers/dto"
	"github.com/bionicotaku/lingo-services-analysis/internal/metadata"
	"github.com/bionicotaku/lingo-services-analysis/internal/services"

	kerrors "github.com/go-kratos/kratos/v2/errors"
	kmd "github.com/go-kratos/kratos/v2/metadata"
	"github.com/go-kratos/kratos/v2/transport"
	khttp "github.com/go-kratos/kratos/v2/transport/http"
	"github.com/google/uuid"
)

// HandlerType 表示 Handler 的语义类别，用于选择超时策略。
type HandlerType int

const (
	// HandlerTypeDefault 表示未显式区分的 Handler。
	HandlerTypeDefault HandlerType = iota
	// HandlerTypeCommand 表示写操作 Handler。
	HandlerTypeCommand
	// HandlerTypeQuery 表示读操作 Handler。
	HandlerTypeQuery
)

// HandlerTimeouts 聚合不同类型 Handler 的超时策略。
type HandlerTimeouts struct {
	Default time.Duration
	Command time.Duration
	Query   time.Duration
}

const (
	fallbackDefaultTimeout = 5 * time.Second
	fallbackQueryTimeout   = 3 * time.Second
)

// BaseHandler 提供公共的超时、Metadata 解析与响应封装，供具体 Handler 内嵌复用。
type BaseHandler struct {
	timeouts HandlerTimeouts
}

// NewBaseHandler 构造基础 Handler，并为缺省值填充合理的回退策略。
func NewBaseHandler(timeouts HandlerTimeouts) *BaseHandler {
	if timeouts.Default <= 0 {
		if timeouts.Command > 0 {
			timeouts.Default = timeouts.Command
		} else if timeouts.Query > 0 {
			timeouts.Default = timeouts.Query
		} else {
			timeouts.Default = fallbackDefaultTimeout
		}
	}
	if timeouts.Command <= 0 {
		timeouts.Command = timeouts.Default
	}
	if timeouts.Query <= 0 {
		if timeouts.Default > 0 {
			timeouts.Query = timeouts.Default
		} else {
			timeouts.Query = fallbackQueryTimeout
		}
	}
	return &BaseHandler{timeouts: timeouts}
}

// WithTimeout 根据 Handler 类型包装上下文，返回绑定超时的新 Context 与取消函数。
func (h *BaseHandler) WithTimeout(ctx context.Context, kind HandlerType) (context.Context, context.CancelFunc) {
	if h == nil {
		return context.WithTimeout(ctx, fallbackDefaultTimeout)
	}
	var timeout time.Duration
	switch kind {
	case HandlerTypeCommand:
		timeout = h.timeouts.Command
	case HandlerTypeQuery:
		timeout = h.timeouts.Query
	default:
		timeout = h.timeouts.Default
	}
	if timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}

// ExtractMetadata 读取网关注入的 x-md-* 头，优先使用 metadata 中间件解析的结果。
func (h *BaseHandler) ExtractMetadata(ctx context.Context) metadata.HandlerMetadata {
	var meta metadata.HandlerMetadata
	if md, ok := kmd.FromServerContext(ctx); ok {
		meta.UserID = strings.TrimSpace(md.Get(metadata.HeaderUserID))
		meta.RequestID = strings.TrimSpace(md.Get(metadata.HeaderRequestID))
	}
	if tr, ok := transport.FromServerContext(ctx); ok {
		if meta.UserID == "" {
			meta.UserID = strings.TrimSpace(tr.RequestHeader().Get(metadata.HeaderUserID))
		}
		if meta.RequestID == "" {
			meta.RequestID = strings.TrimSpace(tr.RequestHeader().Get(metadata.HeaderRequestID))
		}
	}
	return meta
}

// RequireUser 解析调用者身份并注入 Context；缺失返回 401，格式非法返回 400。
func (h *BaseHandler) RequireUser(ctx context.Context) (context.Context, uuid.UUID, error) {
	meta := h.ExtractMetadata(ctx)
	userID, ok := meta.UserUUID()
	if !ok {
		if meta.UserID != "" {
			return ctx, uuid.Nil, kerrors.BadRequest(services.ReasonUserRequired, "invalid user metadata")
		}
		return ctx, uuid.Nil, kerrors.Unauthorized(services.ReasonUserRequired, "user metadata required")
	}
	return metadata.Inject(ctx, meta), userID, nil
}

// PathUUID 解析路径参数中的 UUID。
func PathUUID(ctx khttp.Context, name, reason string) (uuid.UUID, error) {
	raw := strings.TrimSpace(ctx.Vars().Get(name))
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, kerrors.BadRequest(reason, name+" must be a uuid")
	}
	return id, nil
}

// Respond 以统一信封返回成功结果。
func Respond(ctx khttp.Context, data any, message string) error {
	return ctx.Result(200, dto.Success(data, message))
}
