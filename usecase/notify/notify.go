package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/fastygo/taskhub/domain"
)

// Dispatcher delivers a notification. Rendering is up to the implementation.
type Dispatcher interface {
	Name() string
	Send(ctx context.Context, n domain.Notification) error
}

// Lister supplies the current task set.
type Lister interface {
	ListTasks(ctx context.Context, filter domain.TaskFilter) ([]domain.Task, error)
}

type UseCase struct {
	tasks       Lister
	dispatchers []Dispatcher
	location    *time.Location
	now         func() time.Time
	logger      *zap.Logger
}

type Option func(*UseCase)

func WithClock(now func() time.Time) Option {
	return func(uc *UseCase) { uc.now = now }
}

// WithLocation sets the zone whose calendar day decides "today".
func WithLocation(loc *time.Location) Option {
	return func(uc *UseCase) {
		if loc != nil {
			uc.location = loc
		}
	}
}

func New(tasks Lister, dispatchers []Dispatcher, logger *zap.Logger, opts ...Option) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	uc := &UseCase{
		tasks:       tasks,
		dispatchers: dispatchers,
		location:    time.UTC,
		now:         time.Now,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// Preview evaluates kind against the cached tasks without dispatching.
func (uc *UseCase) Preview(ctx context.Context, kind domain.NotificationKind) (domain.Notification, error) {
	if !kind.Valid() {
		return domain.Notification{}, domain.NewError(domain.ErrCodeInvalid, fmt.Sprintf("unknown notification kind %q", kind))
	}
	tasks, err := uc.tasks.ListTasks(ctx, domain.TaskFilter{})
	if err != nil {
		return domain.Notification{}, err
	}
	return Evaluate(tasks, kind, uc.now().In(uc.location)), nil
}

// Notify evaluates kind and hands the result to every dispatcher. Empty due
// and overdue notifications are not sent; the summary always is.
func (uc *UseCase) Notify(ctx context.Context, kind domain.NotificationKind) (domain.Notification, error) {
	n, err := uc.Preview(ctx, kind)
	if err != nil {
		return n, err
	}
	logger := uc.logger.With(zap.String("kind", string(kind)), zap.Int("tasks", len(n.Tasks)))
	if len(n.Tasks) == 0 && kind != domain.NotificationSummary {
		logger.Debug("nothing to notify")
		return n, nil
	}

	var result error
	for _, d := range uc.dispatchers {
		if err := d.Send(ctx, n); err != nil {
			logger.Error("dispatch failed", zap.String("dispatcher", d.Name()), zap.Error(err))
			result = errors.Join(result, fmt.Errorf("%s: %w", d.Name(), err))
			continue
		}
		logger.Info("notification dispatched", zap.String("dispatcher", d.Name()))
	}
	return n, result
}
