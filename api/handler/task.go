package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/taskhub/api/transport"
	"github.com/fastygo/taskhub/domain"
	"github.com/fastygo/taskhub/pkg/httpcontext"
	taskUC "github.com/fastygo/taskhub/usecase/task"
)

type TaskHandler struct {
	baseHandler
	uc *taskUC.UseCase
}

func NewTaskHandler(uc *taskUC.UseCase, adapter *httpcontext.Adapter, logger *zap.Logger) *TaskHandler {
	return &TaskHandler{
		baseHandler: newBaseHandler(adapter, logger),
		uc:          uc,
	}
}

// @Summary List tasks
// @Tags tasks
// @Router /api/v1/tasks [get]
func (h *TaskHandler) ListTasks(ctx *fasthttp.RequestCtx) {
	filter, err := parseFilter(ctx.QueryArgs())
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	tasks, err := h.uc.ListTasks(stdCtx, filter)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	if tasks == nil {
		tasks = []domain.Task{}
	}
	h.respondJSON(ctx, http.StatusOK, transport.NewSuccess(tasks, transport.ListMeta{Count: len(tasks)}))
}

// @Summary Get task
// @Tags tasks
// @Router /api/v1/tasks/{id} [get]
func (h *TaskHandler) GetTask(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	task, err := h.uc.GetTask(stdCtx, domain.TaskID(pathValue(ctx, "id")))
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, task)
}

// @Summary Create task
// @Tags tasks
// @Router /api/v1/tasks [post]
func (h *TaskHandler) CreateTask(ctx *fasthttp.RequestCtx) {
	var req transport.TaskRequest
	if !h.decode(ctx, &req) {
		return
	}

	task := &domain.Task{
		Title:       req.Title,
		Status:      domain.Status(req.Status),
		Priority:    domain.Priority(req.Priority),
		Source:      domain.Source(req.Source),
		Tags:        req.Tags,
		Description: req.Description,
		Assignee:    req.Assignee,
		Metadata:    req.Metadata,
	}
	if req.DueDate != "" {
		due, err := time.Parse(transport.DateLayout, req.DueDate)
		if err != nil {
			h.respondError(ctx, domain.WrapError(domain.ErrCodeInvalid, "invalid due_date", err))
			return
		}
		task.DueDate = &due
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	created, err := h.uc.CreateTask(stdCtx, task)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.audit(stdCtx, "create", zap.String("task_id", string(created.ID)))
	h.respondSuccess(ctx, http.StatusCreated, created)
}

// @Summary Update task
// @Tags tasks
// @Router /api/v1/tasks/{id} [patch]
func (h *TaskHandler) UpdateTask(ctx *fasthttp.RequestCtx) {
	var req transport.TaskPatchRequest
	if !h.decode(ctx, &req) {
		return
	}
	patch, err := toPatch(req)
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	updated, err := h.uc.UpdateTask(stdCtx, domain.TaskID(pathValue(ctx, "id")), patch)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.audit(stdCtx, "update", zap.String("task_id", string(updated.ID)))
	h.respondSuccess(ctx, http.StatusOK, updated)
}

// @Summary Complete task
// @Tags tasks
// @Router /api/v1/tasks/{id}/complete [post]
func (h *TaskHandler) CompleteTask(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	task, err := h.uc.CompleteTask(stdCtx, domain.TaskID(pathValue(ctx, "id")))
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.audit(stdCtx, "complete", zap.String("task_id", string(task.ID)))
	h.respondSuccess(ctx, http.StatusOK, task)
}

// @Summary Delete task
// @Tags tasks
// @Router /api/v1/tasks/{id} [delete]
func (h *TaskHandler) DeleteTask(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	id := domain.TaskID(pathValue(ctx, "id"))
	if err := h.uc.DeleteTask(stdCtx, id); err != nil {
		h.respondError(ctx, err)
		return
	}
	h.audit(stdCtx, "delete", zap.String("task_id", string(id)))
	ctx.SetStatusCode(http.StatusNoContent)
}

// @Summary Sync a source
// @Tags sync
// @Router /api/v1/sync/{source} [post]
func (h *TaskHandler) Sync(ctx *fasthttp.RequestCtx) {
	source := domain.Source(pathValue(ctx, "source"))

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	n, err := h.uc.Sync(stdCtx, source)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, transport.SyncResponse{Source: string(source), Tasks: n})
}

func toPatch(req transport.TaskPatchRequest) (domain.TaskPatch, error) {
	patch := domain.TaskPatch{
		Title:       req.Title,
		Tags:        req.Tags,
		Description: req.Description,
		Assignee:    req.Assignee,
		Metadata:    req.Metadata,
	}
	if req.Status != nil {
		status := domain.Status(*req.Status)
		patch.Status = &status
	}
	if req.Priority != nil {
		priority := domain.Priority(*req.Priority)
		patch.Priority = &priority
	}
	if req.DueDate != nil {
		if *req.DueDate == "" {
			patch.ClearDueDate = true
		} else {
			due, err := time.Parse(transport.DateLayout, *req.DueDate)
			if err != nil {
				return domain.TaskPatch{}, domain.WrapError(domain.ErrCodeInvalid, "invalid due_date", err)
			}
			patch.DueDate = &due
		}
	}
	return patch, nil
}

// parseFilter reads comma separated status, priority, tag and source lists
// plus assignee and due_before/due_after dates from the query string.
func parseFilter(args *fasthttp.Args) (domain.TaskFilter, error) {
	var filter domain.TaskFilter
	for _, s := range splitList(args.Peek("status")) {
		status := domain.Status(s)
		if !status.Valid() {
			return filter, domain.NewError(domain.ErrCodeInvalid, "unknown status "+s)
		}
		filter.Statuses = append(filter.Statuses, status)
	}
	for _, p := range splitList(args.Peek("priority")) {
		priority := domain.Priority(p)
		if !priority.Valid() {
			return filter, domain.NewError(domain.ErrCodeInvalid, "unknown priority "+p)
		}
		filter.Priorities = append(filter.Priorities, priority)
	}
	for _, s := range splitList(args.Peek("source")) {
		source := domain.Source(s)
		if !source.Valid() {
			return filter, domain.NewError(domain.ErrCodeInvalid, "unknown source "+s)
		}
		filter.Sources = append(filter.Sources, source)
	}
	filter.Tags = splitList(args.Peek("tag"))
	filter.Assignee = string(args.Peek("assignee"))

	for name, dst := range map[string]**time.Time{"due_before": &filter.DueBefore, "due_after": &filter.DueAfter} {
		raw := string(args.Peek(name))
		if raw == "" {
			continue
		}
		parsed, err := time.Parse(transport.DateLayout, raw)
		if err != nil {
			return filter, domain.WrapError(domain.ErrCodeInvalid, "invalid "+name, err)
		}
		*dst = &parsed
	}
	return filter, nil
}

func splitList(raw []byte) []string {
	var out []string
	for _, part := range strings.Split(string(raw), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
