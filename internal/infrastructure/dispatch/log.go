package dispatch

import (
	"context"

	"go.uber.org/zap"

	"github.com/fastygo/taskhub/domain"
)

// LogDispatcher writes notifications to the structured log. It is the
// fallback when no delivery channel is configured.
type LogDispatcher struct {
	logger *zap.Logger
}

func NewLogDispatcher(logger *zap.Logger) *LogDispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogDispatcher{logger: logger}
}

func (d *LogDispatcher) Name() string { return "log" }

func (d *LogDispatcher) Send(_ context.Context, n domain.Notification) error {
	ids := make([]string, 0, len(n.Tasks))
	for _, t := range n.Tasks {
		ids = append(ids, string(t.ID))
	}
	d.logger.Info("notification",
		zap.String("kind", string(n.Kind)),
		zap.Int("tasks", len(n.Tasks)),
		zap.Strings("task_ids", ids),
		zap.Time("generated_at", n.GeneratedAt))
	return nil
}
