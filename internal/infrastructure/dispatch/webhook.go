package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/taskhub/domain"
)

// Doer is the part of fasthttp.Client the webhook depends on.
type Doer interface {
	DoTimeout(req *fasthttp.Request, resp *fasthttp.Response, timeout time.Duration) error
}

// WebhookDispatcher POSTs the notification as JSON to a fixed URL.
type WebhookDispatcher struct {
	url     string
	client  Doer
	timeout time.Duration
	logger  *zap.Logger
}

func NewWebhookDispatcher(url string, timeout time.Duration, client Doer, logger *zap.Logger) *WebhookDispatcher {
	if client == nil {
		client = &fasthttp.Client{Name: "taskhub", NoDefaultUserAgentHeader: true}
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebhookDispatcher{url: url, client: client, timeout: timeout, logger: logger}
}

func (d *WebhookDispatcher) Name() string { return "webhook" }

func (d *WebhookDispatcher) Send(ctx context.Context, n domain.Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := json.Marshal(n)
	if err != nil {
		return domain.WrapError(domain.ErrCodeInternal, "encode notification", err)
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(d.url)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.SetBodyRaw(payload)

	timeout := d.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}
	if err := d.client.DoTimeout(req, resp, timeout); err != nil {
		return domain.RemoteUnavailable("webhook delivery failed", err)
	}
	if code := resp.StatusCode(); code >= 300 {
		return domain.RemoteUnavailable(fmt.Sprintf("webhook returned %d", code), nil)
	}
	d.logger.Debug("webhook delivered", zap.String("kind", string(n.Kind)), zap.Int("bytes", len(payload)))
	return nil
}
