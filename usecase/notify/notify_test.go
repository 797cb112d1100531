package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastygo/taskhub/domain"
)

var asOf = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

func due(days int) *time.Time {
	d := time.Date(2025, 3, 10+days, 0, 0, 0, 0, time.UTC)
	return &d
}

func fixtureTasks() []domain.Task {
	return []domain.Task{
		{ID: "1", Title: "low today", Priority: domain.PriorityLow, Status: domain.StatusTodo, DueDate: due(0)},
		{ID: "2", Title: "urgent today", Priority: domain.PriorityUrgent, Status: domain.StatusInProgress, DueDate: due(0)},
		{ID: "3", Title: "done today", Priority: domain.PriorityHigh, Status: domain.StatusDone, DueDate: due(0)},
		{ID: "4", Title: "late", Priority: domain.PriorityMedium, Status: domain.StatusBlocked, DueDate: due(-3)},
		{ID: "5", Title: "later", Priority: domain.PriorityMedium, Status: domain.StatusTodo, DueDate: due(2)},
		{ID: "6", Title: "someday", Priority: domain.PriorityHigh, Status: domain.StatusTodo},
	}
}

func ids(n domain.Notification) []domain.TaskID {
	out := make([]domain.TaskID, 0, len(n.Tasks))
	for _, t := range n.Tasks {
		out = append(out, t.ID)
	}
	return out
}

func TestEvaluate(t *testing.T) {
	tests := []struct {
		kind domain.NotificationKind
		want []domain.TaskID
	}{
		{domain.NotificationDueToday, []domain.TaskID{"2", "1"}},
		{domain.NotificationOverdue, []domain.TaskID{"4"}},
		{domain.NotificationSummary, []domain.TaskID{"4", "2", "1", "5", "6"}},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			n := Evaluate(fixtureTasks(), tt.kind, asOf)
			assert.Equal(t, tt.kind, n.Kind)
			assert.Equal(t, asOf, n.GeneratedAt)
			assert.Equal(t, tt.want, ids(n))
		})
	}
}

func TestEvaluateUsesCalendarDayOfAsOf(t *testing.T) {
	// 23:30 on March 9th in New York is already March 10th in UTC.
	ny := time.FixedZone("EST", -5*3600)
	evening := time.Date(2025, 3, 9, 23, 30, 0, 0, ny)

	n := Evaluate(fixtureTasks(), domain.NotificationDueToday, evening)
	assert.Empty(t, n.Tasks)
	n = Evaluate(fixtureTasks(), domain.NotificationDueToday, evening.UTC())
	assert.Len(t, n.Tasks, 2)
}

func TestEvaluateDoesNotModifyInput(t *testing.T) {
	tasks := fixtureTasks()
	n := Evaluate(tasks, domain.NotificationSummary, asOf)
	n.Tasks[0].Title = "changed"
	*n.Tasks[0].DueDate = time.Time{}
	assert.Equal(t, fixtureTasks(), tasks)
}

type staticTasks []domain.Task

func (s staticTasks) ListTasks(context.Context, domain.TaskFilter) ([]domain.Task, error) {
	return s, nil
}

type recorder struct {
	name string
	err  error
	sent []domain.Notification
}

func (r *recorder) Name() string { return r.name }

func (r *recorder) Send(_ context.Context, n domain.Notification) error {
	r.sent = append(r.sent, n)
	return r.err
}

func TestNotifySkipsEmptyAlerts(t *testing.T) {
	d := &recorder{name: "log"}
	uc := New(staticTasks{}, []Dispatcher{d}, nil, WithClock(func() time.Time { return asOf }))

	for _, kind := range []domain.NotificationKind{domain.NotificationDueToday, domain.NotificationOverdue} {
		n, err := uc.Notify(context.Background(), kind)
		require.NoError(t, err)
		assert.Empty(t, n.Tasks)
	}
	assert.Empty(t, d.sent)

	_, err := uc.Notify(context.Background(), domain.NotificationSummary)
	require.NoError(t, err)
	assert.Len(t, d.sent, 1)
}

func TestNotifyReportsEveryFailedDispatcher(t *testing.T) {
	boom := errors.New("boom")
	ok := &recorder{name: "log"}
	broken := &recorder{name: "webhook", err: boom}
	uc := New(staticTasks(fixtureTasks()), []Dispatcher{broken, ok}, nil, WithClock(func() time.Time { return asOf }))

	n, err := uc.Notify(context.Background(), domain.NotificationOverdue)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "webhook")
	assert.Len(t, n.Tasks, 1)
	assert.Len(t, ok.sent, 1, "a failing dispatcher does not stop the others")
}

func TestPreviewRejectsUnknownKind(t *testing.T) {
	uc := New(staticTasks{}, nil, nil)
	_, err := uc.Preview(context.Background(), "weekly")
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeInvalid))
}

func TestNotifyHonoursLocation(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*3600)
	// 20:00 UTC on March 9th is March 10th in Tokyo.
	clock := func() time.Time { return time.Date(2025, 3, 9, 20, 0, 0, 0, time.UTC) }

	n, err := New(staticTasks(fixtureTasks()), nil, nil, WithClock(clock), WithLocation(tokyo)).
		Preview(context.Background(), domain.NotificationDueToday)
	require.NoError(t, err)
	assert.Equal(t, []domain.TaskID{"2", "1"}, ids(n))
}
