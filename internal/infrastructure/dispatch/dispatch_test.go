package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"

	"github.com/fastygo/taskhub/domain"
)

type fakeDoer struct {
	status  int
	err     error
	uri     string
	method  string
	body    []byte
	timeout time.Duration
}

func (f *fakeDoer) DoTimeout(req *fasthttp.Request, resp *fasthttp.Response, timeout time.Duration) error {
	f.uri = req.URI().String()
	f.method = string(req.Header.Method())
	f.body = append([]byte(nil), req.Body()...)
	f.timeout = timeout
	if f.err != nil {
		return f.err
	}
	resp.SetStatusCode(f.status)
	return nil
}

func notification() domain.Notification {
	return domain.Notification{
		Kind:        domain.NotificationOverdue,
		Tasks:       []domain.Task{{ID: "t1", Title: "late", Status: domain.StatusTodo, Priority: domain.PriorityHigh, Source: domain.SourceTeam}},
		GeneratedAt: time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC),
	}
}

func TestWebhookPostsNotification(t *testing.T) {
	doer := &fakeDoer{status: 204}
	d := NewWebhookDispatcher("https://hooks.example.com/taskhub", 3*time.Second, doer, nil)
	require.Equal(t, "webhook", d.Name())

	require.NoError(t, d.Send(context.Background(), notification()))
	assert.Equal(t, "https://hooks.example.com/taskhub", doer.uri)
	assert.Equal(t, fasthttp.MethodPost, doer.method)
	assert.Equal(t, 3*time.Second, doer.timeout)

	var got domain.Notification
	require.NoError(t, json.Unmarshal(doer.body, &got))
	assert.Equal(t, domain.NotificationOverdue, got.Kind)
	require.Len(t, got.Tasks, 1)
	assert.Equal(t, domain.TaskID("t1"), got.Tasks[0].ID)
}

func TestWebhookFailures(t *testing.T) {
	tests := []struct {
		name string
		doer *fakeDoer
	}{
		{"transport", &fakeDoer{err: errors.New("connection reset")}},
		{"server error", &fakeDoer{status: 502}},
		{"redirect", &fakeDoer{status: 302}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewWebhookDispatcher("https://hooks.example.com", 0, tt.doer, nil).Send(context.Background(), notification())
			assert.True(t, domain.IsDomainError(err, domain.ErrCodeRemoteUnavailable))
		})
	}
}

func TestWebhookHonoursDeadline(t *testing.T) {
	doer := &fakeDoer{status: 200}
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	require.NoError(t, NewWebhookDispatcher("https://hooks.example.com", time.Minute, doer, nil).Send(ctx, notification()))
	assert.LessOrEqual(t, doer.timeout, 200*time.Millisecond)

	cancel()
	assert.ErrorIs(t, NewWebhookDispatcher("https://hooks.example.com", time.Minute, doer, nil).Send(ctx, notification()), context.Canceled)
}

func TestLogDispatcher(t *testing.T) {
	d := NewLogDispatcher(nil)
	assert.Equal(t, "log", d.Name())
	assert.NoError(t, d.Send(context.Background(), notification()))
}
