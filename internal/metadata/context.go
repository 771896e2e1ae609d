// Package metadata 提供 HandlerMetadata 在 Context 中的存取工具，供控制器与服务层共享。
package metadata

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

// 上游网关注入的请求头。
const (
	PropagatedPrefix = "x-md-"
	HeaderUserID    = "x-md-global-user-id"
	HeaderRequestID = "x-md-request-id"
)

// HandlerMetadata 描述从请求头或上游链路解析出的上下文信息。
type HandlerMetadata struct {
	UserID    string
	RequestID string
}

// IsZero 判断 Metadata 是否为空。
func (m HandlerMetadata) IsZero() bool {
	return m.UserID == "" && m.RequestID == ""
}

// UserUUID 尝试解析 user_id 为 UUID。
func (m HandlerMetadata) UserUUID() (uuid.UUID, bool) {
	if strings.TrimSpace(m.UserID) == "" {
		return uuid.Nil, false
	}
	value, err := uuid.Parse(strings.TrimSpace(m.UserID))
	if err != nil || value == uuid.Nil {
		return uuid.Nil, false
	}
	return value, true
}

type ctxKey struct{}

// Inject 将 HandlerMetadata 注入 Context。
func Inject(ctx context.Context, meta HandlerMetadata) context.Context {
	if meta.IsZero() {
		return ctx
	}
	return context.WithValue(ctx, ctxKey{}, meta)
}

// FromContext 读取上游注入的 HandlerMetadata。
func FromContext(ctx context.Context) (HandlerMetadata, bool) {
	if ctx == nil {
		return HandlerMetadata{}, false
	}
	meta, ok := ctx.Value(ctxKey{}).(HandlerMetadata)
	return meta, ok
}
