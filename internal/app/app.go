package app

import (
	"context"
	"fmt"
	"time"

	redislib "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/fastygo/taskhub/domain"
	"github.com/fastygo/taskhub/internal/config"
	"github.com/fastygo/taskhub/internal/infrastructure/dispatch"
	"github.com/fastygo/taskhub/internal/infrastructure/history"
	"github.com/fastygo/taskhub/internal/infrastructure/monitor"
	redisInfra "github.com/fastygo/taskhub/internal/infrastructure/redis"
	"github.com/fastygo/taskhub/internal/jobs"
	"github.com/fastygo/taskhub/internal/scheduler"
	"github.com/fastygo/taskhub/internal/services/lifecycle"
	"github.com/fastygo/taskhub/repository"
	"github.com/fastygo/taskhub/repository/memory"
	"github.com/fastygo/taskhub/repository/notion"
	redisRepo "github.com/fastygo/taskhub/repository/redis"
	authUC "github.com/fastygo/taskhub/usecase/auth"
	mentionUC "github.com/fastygo/taskhub/usecase/mention"
	notifyUC "github.com/fastygo/taskhub/usecase/notify"
	taskUC "github.com/fastygo/taskhub/usecase/task"
)

// Options toggles the stateful dependencies a process needs. The CLI runs
// without the run history file and the shared key store.
type Options struct {
	History bool
	Redis   bool
	// Sources overrides the Notion-backed sources, mainly for tests.
	Sources []repository.TaskSource
}

// App is the explicitly constructed object graph of one process.
type App struct {
	Config    *config.Config
	Logger    *zap.Logger
	Lifecycle *lifecycle.Manager

	Auth      *authUC.UseCase
	Cache     *memory.TaskCache
	Tasks     *taskUC.UseCase
	Mentions  *mentionUC.UseCase
	Notifier  *notifyUC.UseCase
	Scheduler *scheduler.Scheduler
	Jobs      []scheduler.Job

	History *history.Store
	Redis   *redislib.Client
	Monitor *monitor.Monitor
}

func New(cfg *config.Config, logger *zap.Logger, opts Options) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{
		Config:    cfg,
		Logger:    logger,
		Lifecycle: lifecycle.New(cfg.Context.ShutdownTimeout, logger),
		Auth:      authUC.New(cfg.JWT.Secret, cfg.JWT.Issuer, logger.Named("auth")),
		Cache:     memory.NewTaskCache(),
	}

	sources := opts.Sources
	if sources == nil {
		var err error
		if sources, err = notionSources(cfg, logger); err != nil {
			return nil, err
		}
	}
	a.Tasks = taskUC.New(a.Cache, sources, logger.Named("tasks"))

	var keys repository.KeyStore
	if opts.Redis {
		client, err := redisInfra.NewClient(cfg.Redis, logger.Named("redis"))
		if err != nil {
			return nil, fmt.Errorf("redis: %w", err)
		}
		if client != nil {
			a.Redis = client
			a.Lifecycle.RegisterCloser("redis", client)
			keys = redisRepo.NewKeyStore(client, cfg.Redis.IdempotencyTTL)
		}
	}
	mentionOpts := []mentionUC.Option{mentionUC.WithTitleMax(cfg.Mention.TitleMaxLength)}
	if keys != nil {
		mentionOpts = append(mentionOpts, mentionUC.WithKeyStore(keys))
	}
	a.Mentions = mentionUC.New(a.Tasks, logger.Named("mentions"), mentionOpts...)

	dispatchers := []notifyUC.Dispatcher{dispatch.NewLogDispatcher(logger.Named("notify"))}
	if cfg.Notify.WebhookURL != "" {
		dispatchers = append(dispatchers,
			dispatch.NewWebhookDispatcher(cfg.Notify.WebhookURL, cfg.Notify.Timeout, nil, logger.Named("notify")))
	}
	loc := cfg.Location()
	a.Notifier = notifyUC.New(a.Tasks, dispatchers, logger.Named("notify"), notifyUC.WithLocation(loc))

	schedOpts := []scheduler.Option{scheduler.WithLocation(loc)}
	var pruner jobs.Pruner
	if opts.History {
		store, err := history.Open(cfg.History.Path)
		if err != nil {
			a.Lifecycle.Shutdown(context.Background())
			return nil, fmt.Errorf("history store: %w", err)
		}
		a.History = store
		a.Lifecycle.RegisterCloser("history", store)
		schedOpts = append(schedOpts, scheduler.WithRecorder(store))
		pruner = store
	}
	a.Scheduler = scheduler.New(logger.Named("scheduler"), schedOpts...)
	a.Lifecycle.Register("scheduler", func(ctx context.Context) error {
		a.Scheduler.Stop(ctx)
		return nil
	})

	a.Jobs = jobs.Defaults(cfg.Scheduler, jobs.Deps{
		Tasks:     a.Tasks,
		Notifier:  a.Notifier,
		Pruner:    pruner,
		Retention: time.Duration(cfg.History.RetentionHours) * time.Hour,
		Logger:    logger.Named("jobs"),
	})
	if err := jobs.Register(a.Scheduler, a.Jobs); err != nil {
		a.Lifecycle.Shutdown(context.Background())
		return nil, err
	}

	monOpts := monitor.Options{
		Redis:      a.Redis,
		Syncs:      a.Cache,
		Sources:    a.Tasks.Sources(),
		StaleAfter: cfg.Sync.StaleAfter,
	}
	if a.History != nil {
		monOpts.History = a.History
	}
	a.Monitor = monitor.New(monOpts, logger.Named("monitor"))

	return a, nil
}

// Start warms the cache and, when enabled, starts the cron loop and the
// health monitor. A failed initial sync is logged, not fatal.
func (a *App) Start(ctx context.Context) {
	if _, err := a.Tasks.SyncAll(ctx); err != nil {
		a.Logger.Warn("initial sync incomplete", zap.Error(err))
	}
	a.Monitor.Start()
	a.Lifecycle.Register("monitor", func(context.Context) error {
		a.Monitor.Stop()
		return nil
	})
	if a.Config.Scheduler.Enabled {
		a.Scheduler.Start()
	} else {
		a.Logger.Info("scheduler disabled, jobs run only on trigger")
	}
}

// Close runs every registered shutdown hook.
func (a *App) Close(ctx context.Context) error {
	return a.Lifecycle.Shutdown(ctx)
}

func notionSources(cfg *config.Config, logger *zap.Logger) ([]repository.TaskSource, error) {
	dbs := []struct {
		kind domain.Source
		db   config.NotionDatabase
	}{
		{domain.SourceTeam, cfg.Notion.Team},
		{domain.SourcePersonal, cfg.Notion.Personal},
	}
	var out []repository.TaskSource
	for _, entry := range dbs {
		if !entry.db.Enabled(cfg.Notion.APIKey) {
			continue
		}
		src, err := notion.NewSource(entry.kind, cfg.Notion, entry.db, nil, logger.Named("notion"))
		if err != nil {
			return nil, fmt.Errorf("%s source: %w", entry.kind, err)
		}
		out = append(out, src)
	}
	return out, nil
}
