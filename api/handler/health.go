package handler

import (
	"net/http"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/taskhub/api/transport"
	"github.com/fastygo/taskhub/internal/infrastructure/monitor"
	"github.com/fastygo/taskhub/pkg/httpcontext"
)

type HealthHandler struct {
	baseHandler
	monitor *monitor.Monitor
}

type healthReport struct {
	Timestamp time.Time                       `json:"timestamp"`
	Redis     dependency                      `json:"redis"`
	History   dependency                      `json:"history"`
	Sources   map[string]monitor.SourceStatus `json:"sources"`
}

type dependency struct {
	Enabled bool `json:"enabled"`
	Online  bool `json:"online"`
	Records int  `json:"records,omitempty"`
}

func NewHealthHandler(mon *monitor.Monitor, adapter *httpcontext.Adapter, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		baseHandler: newBaseHandler(adapter, logger),
		monitor:     mon,
	}
}

// @Summary Health check
// @Tags health
// @Router /health [get]
func (h *HealthHandler) Check(ctx *fasthttp.RequestCtx) {
	status := h.monitor.GetStatus()
	if status.LastCheck.IsZero() {
		status = h.monitor.Refresh()
	}
	report := healthReport{
		Timestamp: time.Now().UTC(),
		Redis:     dependency{Enabled: status.RedisEnabled, Online: status.Redis},
		History:   dependency{Enabled: true, Online: status.History, Records: status.HistoryRuns},
		Sources:   status.Sources,
	}

	// Stale sources are reported but do not fail the probe.
	if status.Healthy() {
		h.respondSuccess(ctx, http.StatusOK, report)
		return
	}
	h.respondJSON(ctx, http.StatusServiceUnavailable, transport.NewError("DEGRADED", "dependencies unhealthy", report))
}
