package controllers

import (
	"context"
	"encoding/json"
	stdhttp "net/http"
	"time"

	"github.com/bionicotaku/lingo-services-analysis/internal/controllers/dto"

	"github.com/go-kratos/kratos/v2/log"
)

const readinessTimeout = 2 * time.Second

// HealthHandler 提供存活与就绪探针。
type HealthHandler struct {
	checker ReadinessChecker
	log   *log.Helper
}

// NewHealthHandler 构造 HealthHandler。
func NewHealthHandler(checker ReadinessChecker, logger log.Logger) *HealthHandler {
	return &HealthHandler{checker: checker, log: log.NewHelper(logger)}
}

// Healthz 进程存活即返回 200。
func (h *HealthHandler) Healthz(w stdhttp.ResponseWriter, _ *stdhttp.Request) {
	writeJSON(w, stdhttp.StatusOK, dto.Success(nil, "ok"))
}

// Readyz 数据库可用时返回 200，否则 503。
func (h *HealthHandler) Readyz(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	if h.checker != nil {
		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()
		if err := h.checker.Ready(ctx); err != nil {
			h.log.WithContext(ctx).Warnf("readiness check failed: %v", err)
			writeJSON(w, stdhttp.StatusServiceUnavailable, dto.Failure("NOT_READY", "dependencies unavailable"))
			return
		}
	}
	writeJSON(w, stdhttp.StatusOK, dto.Success(nil, "ready"))
}

func writeJSON(w stdhttp.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
