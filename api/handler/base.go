package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/taskhub/api/transport"
	"github.com/fastygo/taskhub/domain"
	"github.com/fastygo/taskhub/pkg/httpcontext"
)

var validate = validator.New()

type baseHandler struct {
	adapter *httpcontext.Adapter
	logger  *zap.Logger
}

func newBaseHandler(adapter *httpcontext.Adapter, logger *zap.Logger) baseHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return baseHandler{adapter: adapter, logger: logger}
}

func (h baseHandler) requestContext(ctx *fasthttp.RequestCtx) (context.Context, context.CancelFunc) {
	if h.adapter != nil {
		return h.adapter.Attach(ctx)
	}
	return context.WithCancel(context.Background())
}

// audit records a state-changing call together with the authenticated caller.
func (h baseHandler) audit(ctx context.Context, action string, fields ...zap.Field) {
	fields = append(fields, zap.String("action", action), zap.String("subject", httpcontext.Subject(ctx)))
	h.logger.Info("task mutation", fields...)
}

func (h baseHandler) respondJSON(ctx *fasthttp.RequestCtx, status int, payload transport.Envelope) {
	ctx.Response.Header.SetContentType("application/json")
	ctx.SetStatusCode(status)
	body, _ := json.Marshal(payload)
	ctx.SetBody(body)
}

func (h baseHandler) respondSuccess(ctx *fasthttp.RequestCtx, status int, data interface{}) {
	h.respondJSON(ctx, status, transport.NewSuccess(data, nil))
}

func (h baseHandler) respondError(ctx *fasthttp.RequestCtx, err error) {
	status, code := mapError(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", zap.ByteString("path", ctx.Path()), zap.Error(err))
	}
	h.respondJSON(ctx, status, transport.NewError(code, err.Error(), nil))
}

// decode reads a JSON body into dst and runs struct validation.
func (h baseHandler) decode(ctx *fasthttp.RequestCtx, dst interface{}) bool {
	if err := json.Unmarshal(ctx.PostBody(), dst); err != nil {
		h.respondError(ctx, domain.WrapError(domain.ErrCodeInvalid, "invalid payload", err))
		return false
	}
	if err := validate.Struct(dst); err != nil {
		h.respondError(ctx, domain.WrapError(domain.ErrCodeInvalid, "invalid payload", err))
		return false
	}
	return true
}

func pathValue(ctx *fasthttp.RequestCtx, name string) string {
	value, _ := ctx.UserValue(name).(string)
	return value
}

func mapError(err error) (int, string) {
	codes := []struct {
		code   domain.ErrorCode
		status int
	}{
		{domain.ErrCodeUnauthorized, http.StatusUnauthorized},
		{domain.ErrCodeInvalid, http.StatusBadRequest},
		{domain.ErrCodeNotFound, http.StatusNotFound},
		{domain.ErrCodeConflict, http.StatusConflict},
		{domain.ErrCodeDuplicateJob, http.StatusConflict},
		{domain.ErrCodeMapping, http.StatusBadGateway},
		{domain.ErrCodeRemoteUnavailable, http.StatusServiceUnavailable},
	}
	for _, c := range codes {
		if domain.IsDomainError(err, c.code) {
			return c.status, string(c.code)
		}
	}
	return http.StatusInternalServerError, string(domain.ErrCodeInternal)
}
