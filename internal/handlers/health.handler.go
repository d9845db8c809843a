package handlers

import (
	"github.com/fasthttp/router"
	xhttp "github.com/nimasrn/session-ledger/pkg/http"
	"github.com/nimasrn/session-ledger/pkg/logger"
)

type HealthService interface {
	Get() error
}
type HealthHandler struct {
	healthService HealthService
}

func RegisterHealthRoutes(e *router.Group, h *HealthHandler) {
	e.GET("/health", h.GetHealth)
}

func NewHealthHandler(healthService HealthService) *HealthHandler {
	return &HealthHandler{
		healthService: healthService,
	}
}

func (h *HealthHandler) GetHealth(ctx *xhttp.RequestCtx) {
	if err := h.healthService.Get(); err != nil {
		logger.Warn("health check failed", "error", err)
		xhttp.WriteError(ctx, xhttp.StatusServiceUnavailable, xhttp.StatusText(xhttp.StatusServiceUnavailable))
		return
	}
	ctx.Response.SetBodyString("success")
}
