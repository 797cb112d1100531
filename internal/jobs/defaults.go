package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/fastygo/taskhub/domain"
	"github.com/fastygo/taskhub/internal/config"
	"github.com/fastygo/taskhub/internal/scheduler"
)

const (
	SyncTeamTasks            = "sync_team_tasks"
	SyncPersonalTasks        = "sync_personal_tasks"
	SendDueNotifications     = "send_due_notifications"
	SendOverdueNotifications = "send_overdue_notifications"
	SendDailySummary         = "send_daily_summary"
	PruneJobHistory          = "prune_job_history"
)

type Syncer interface {
	Sources() []domain.Source
	Sync(ctx context.Context, source domain.Source) (int, error)
}

type Notifier interface {
	Notify(ctx context.Context, kind domain.NotificationKind) (domain.Notification, error)
}

// Pruner drops run history older than a cutoff.
type Pruner interface {
	Cleanup(before time.Time) (int, error)
}

// Deps are the collaborators the default jobs drive. Pruner may be nil.
type Deps struct {
	Tasks     Syncer
	Notifier  Notifier
	Pruner    Pruner
	Retention time.Duration
	Logger    *zap.Logger
}

// Defaults returns the standard job table. Sync jobs exist only for the
// sources the task service has configured.
func Defaults(cfg config.SchedulerConfig, deps Deps) []scheduler.Job {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	var out []scheduler.Job
	syncSchedules := map[domain.Source]struct{ name, cron string }{
		domain.SourceTeam:     {SyncTeamTasks, cfg.SyncTeamCron},
		domain.SourcePersonal: {SyncPersonalTasks, cfg.SyncPersonalCron},
	}
	if deps.Tasks != nil {
		for _, source := range deps.Tasks.Sources() {
			sched, ok := syncSchedules[source]
			if !ok {
				continue
			}
			out = append(out, scheduler.Job{
				Name:        sched.name,
				Schedule:    sched.cron,
				Description: "Refresh the " + string(source) + " task cache from Notion",
				Run:         syncJob(deps.Tasks, source),
			})
		}
	}

	if deps.Notifier != nil {
		out = append(out,
			scheduler.Job{
				Name:        SendDueNotifications,
				Schedule:    cfg.DueCron,
				Description: "Notify tasks due today",
				Run:         notifyJob(deps.Notifier, domain.NotificationDueToday),
			},
			scheduler.Job{
				Name:        SendOverdueNotifications,
				Schedule:    cfg.OverdueCron,
				Description: "Notify overdue tasks",
				Run:         notifyJob(deps.Notifier, domain.NotificationOverdue),
			},
			scheduler.Job{
				Name:        SendDailySummary,
				Schedule:    cfg.SummaryCron,
				Description: "Send the open task digest",
				Run:         notifyJob(deps.Notifier, domain.NotificationSummary),
			},
		)
	}

	if deps.Pruner != nil && deps.Retention > 0 {
		out = append(out, scheduler.Job{
			Name:        PruneJobHistory,
			Schedule:    cfg.PruneCron,
			Description: "Drop job run history past retention",
			Run: func(ctx context.Context) error {
				removed, err := deps.Pruner.Cleanup(time.Now().Add(-deps.Retention))
				if err != nil {
					return err
				}
				logger.Info("job history pruned", zap.String("job", PruneJobHistory), zap.Int("removed", removed))
				return nil
			},
		})
	}
	return out
}

// Register adds every job to s, stopping at the first conflict.
func Register(s *scheduler.Scheduler, jobs []scheduler.Job) error {
	for _, job := range jobs {
		if err := s.Register(job); err != nil {
			return err
		}
	}
	return nil
}

func syncJob(tasks Syncer, source domain.Source) scheduler.Func {
	return func(ctx context.Context) error {
		_, err := tasks.Sync(ctx, source)
		return err
	}
}

func notifyJob(n Notifier, kind domain.NotificationKind) scheduler.Func {
	return func(ctx context.Context) error {
		_, err := n.Notify(ctx, kind)
		return err
	}
}
