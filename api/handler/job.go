package handler

import (
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/taskhub/api/transport"
	"github.com/fastygo/taskhub/domain"
	"github.com/fastygo/taskhub/internal/scheduler"
	"github.com/fastygo/taskhub/pkg/httpcontext"
)

// RunHistory reads recorded job runs, newest first.
type RunHistory interface {
	Recent(job string, limit int) ([]domain.JobRun, error)
}

type JobHandler struct {
	baseHandler
	scheduler *scheduler.Scheduler
	history   RunHistory
}

// NewJobHandler builds the job endpoints. history may be nil.
func NewJobHandler(s *scheduler.Scheduler, history RunHistory, adapter *httpcontext.Adapter, logger *zap.Logger) *JobHandler {
	return &JobHandler{
		baseHandler: newBaseHandler(adapter, logger),
		scheduler:   s,
		history:     history,
	}
}

// @Summary List jobs
// @Tags jobs
// @Router /api/v1/jobs [get]
func (h *JobHandler) ListJobs(ctx *fasthttp.RequestCtx) {
	states := h.scheduler.States()
	h.respondJSON(ctx, http.StatusOK, transport.NewSuccess(states, transport.ListMeta{Count: len(states)}))
}

// @Summary Trigger a job now
// @Tags jobs
// @Router /api/v1/jobs/{name}/trigger [post]
func (h *JobHandler) Trigger(ctx *fasthttp.RequestCtx) {
	name := pathValue(ctx, "name")

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	outcome, err := h.scheduler.Trigger(stdCtx, name)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	state, err := h.scheduler.State(name)
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	status := http.StatusOK
	if outcome == scheduler.OutcomeSkipped {
		status = http.StatusAccepted
	}
	h.respondSuccess(ctx, status, transport.TriggerResponse{Job: name, Outcome: string(outcome), State: state})
}

// @Summary Recent runs of a job
// @Tags jobs
// @Router /api/v1/jobs/{name}/runs [get]
func (h *JobHandler) Runs(ctx *fasthttp.RequestCtx) {
	name := pathValue(ctx, "name")
	if _, err := h.scheduler.State(name); err != nil {
		h.respondError(ctx, err)
		return
	}

	runs := []domain.JobRun{}
	if h.history != nil {
		limit := ctx.QueryArgs().GetUintOrZero("limit")
		recent, err := h.history.Recent(name, limit)
		if err != nil {
			h.respondError(ctx, domain.WrapError(domain.ErrCodeInternal, "read job history", err))
			return
		}
		runs = recent
	}
	h.respondJSON(ctx, http.StatusOK, transport.NewSuccess(runs, transport.ListMeta{Count: len(runs)}))
}
