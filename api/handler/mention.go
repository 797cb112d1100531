package handler

import (
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/taskhub/api/transport"
	"github.com/fastygo/taskhub/domain"
	"github.com/fastygo/taskhub/pkg/httpcontext"
	mentionUC "github.com/fastygo/taskhub/usecase/mention"
)

type MentionHandler struct {
	baseHandler
	uc *mentionUC.UseCase
}

func NewMentionHandler(uc *mentionUC.UseCase, adapter *httpcontext.Adapter, logger *zap.Logger) *MentionHandler {
	return &MentionHandler{
		baseHandler: newBaseHandler(adapter, logger),
		uc:          uc,
	}
}

// @Summary Ingest a parsed chat mention
// @Tags mentions
// @Router /api/v1/mentions [post]
func (h *MentionHandler) Ingest(ctx *fasthttp.RequestCtx) {
	var mention domain.Mention
	if !h.decode(ctx, &mention) {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	task, created, err := h.uc.Ingest(stdCtx, mention)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	h.respondSuccess(ctx, status, transport.MentionResponse{Task: task, Created: created})
}
