package task

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fastygo/taskhub/domain"
	applog "github.com/fastygo/taskhub/pkg/logger"
	"github.com/fastygo/taskhub/repository"
)

// UseCase is the only writer to the task cache and the remote sources.
// Every mutation is fail-closed: the cache changes only after the owning
// source accepted the change.
type UseCase struct {
	cache   repository.TaskCache
	sources map[domain.Source]repository.TaskSource
	logger  *zap.Logger
	now     func() time.Time
	newID   func() string
}

type Option func(*UseCase)

// WithClock overrides the time source used for fetched_at and local timestamps.
func WithClock(now func() time.Time) Option {
	return func(uc *UseCase) { uc.now = now }
}

// WithIDGenerator overrides how manual task ids are minted.
func WithIDGenerator(newID func() string) Option {
	return func(uc *UseCase) { uc.newID = newID }
}

func New(cache repository.TaskCache, sources []repository.TaskSource, logger *zap.Logger, opts ...Option) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	uc := &UseCase{
		cache:   cache,
		sources: make(map[domain.Source]repository.TaskSource, len(sources)),
		logger:  logger,
		now:     time.Now,
		newID:   uuid.NewString,
	}
	for _, src := range sources {
		if src != nil {
			uc.sources[src.Kind()] = src
		}
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// Sources lists the configured remote sources in a stable order.
func (uc *UseCase) Sources() []domain.Source {
	var out []domain.Source
	for _, kind := range []domain.Source{domain.SourceTeam, domain.SourcePersonal} {
		if _, ok := uc.sources[kind]; ok {
			out = append(out, kind)
		}
	}
	return out
}

func (uc *UseCase) ListTasks(_ context.Context, filter domain.TaskFilter) ([]domain.Task, error) {
	return uc.cache.List(filter), nil
}

func (uc *UseCase) GetTask(_ context.Context, id domain.TaskID) (*domain.Task, error) {
	entry, err := uc.resolve(id)
	if err != nil {
		return nil, err
	}
	return &entry.Task, nil
}

func (uc *UseCase) CreateTask(ctx context.Context, task *domain.Task) (*domain.Task, error) {
	if task == nil {
		return nil, domain.ErrInvalidPayload
	}
	draft := task.Clone()
	if draft.Source == "" {
		draft.Source = domain.SourceManual
	}
	if draft.Status == "" {
		draft.Status = domain.StatusTodo
	}
	if draft.Priority == "" {
		draft.Priority = domain.PriorityMedium
	}
	draft.Title = strings.TrimSpace(draft.Title)
	draft.Tags = domain.NormalizeTags(draft.Tags)
	draft.Metadata = domain.NormalizeMetadata(draft.Metadata)
	draft.DueDate = domain.DatePtr(draft.DueDate)
	if err := draft.Validate(); err != nil {
		return nil, err
	}

	now := uc.now()
	if !draft.Source.Remote() {
		draft.ID = domain.TaskID(uc.newID())
		if draft.CreatedAt.IsZero() {
			draft.CreatedAt = now.UTC()
		}
		draft.UpdatedAt = draft.CreatedAt
		uc.cache.Put(draft, now)
		uc.logger.Info("manual task created", zap.String("task_id", string(draft.ID)))
		return &draft, nil
	}

	src, err := uc.source(draft.Source)
	if err != nil {
		return nil, err
	}
	draft.ID = ""
	created, err := src.Create(ctx, &draft)
	if err != nil {
		uc.logger.Error("remote create failed", zap.String("source", string(draft.Source)), zap.Error(err))
		return nil, err
	}
	created.Source = draft.Source
	uc.cache.Put(*created, now)
	uc.logger.Info("task created",
		zap.String("task_id", string(created.ID)),
		zap.String("source", string(created.Source)))
	return created, nil
}

func (uc *UseCase) UpdateTask(ctx context.Context, id domain.TaskID, patch domain.TaskPatch) (*domain.Task, error) {
	entry, err := uc.resolve(id)
	if err != nil {
		return nil, err
	}
	if err := validatePatch(patch); err != nil {
		return nil, err
	}

	now := uc.now()
	current := entry.Task
	if !current.Source.Remote() {
		// Applied under the cache lock so a concurrent delete is not undone.
		updated, err := uc.cache.Update(current.Key(), func(t domain.Task) (domain.Task, error) {
			t = patch.Apply(t)
			t.UpdatedAt = now.UTC()
			return t, t.Validate()
		}, now)
		if err != nil {
			return nil, err
		}
		uc.logger.Info("manual task updated", zap.String("task_id", string(id)))
		return &updated, nil
	}

	src, err := uc.source(current.Source)
	if err != nil {
		return nil, err
	}
	updated, err := src.Update(ctx, id, patch)
	if err != nil {
		uc.logger.Error("remote update failed",
			zap.String("task_id", string(id)),
			zap.String("source", string(current.Source)),
			zap.Error(err))
		return nil, err
	}
	updated.Source = current.Source
	uc.cache.Put(*updated, now)
	uc.logger.Info("task updated", zap.String("task_id", string(id)), zap.String("source", string(current.Source)))
	return updated, nil
}

func (uc *UseCase) CompleteTask(ctx context.Context, id domain.TaskID) (*domain.Task, error) {
	done := domain.StatusDone
	return uc.UpdateTask(ctx, id, domain.TaskPatch{Status: &done})
}

func (uc *UseCase) DeleteTask(ctx context.Context, id domain.TaskID) error {
	entry, err := uc.resolve(id)
	if err != nil {
		return err
	}
	key := entry.Task.Key()
	if key.Source.Remote() {
		src, err := uc.source(key.Source)
		if err != nil {
			return err
		}
		if err := src.Delete(ctx, id); err != nil {
			uc.logger.Error("remote delete failed",
				zap.String("task_id", string(id)),
				zap.String("source", string(key.Source)),
				zap.Error(err))
			return err
		}
	}
	uc.cache.Invalidate(key)
	uc.logger.Info("task deleted", zap.String("task_id", string(id)), zap.String("source", string(key.Source)))
	return nil
}

// Sync replaces the cached tasks of source with its complete remote listing.
// A failed listing leaves the cache untouched.
func (uc *UseCase) Sync(ctx context.Context, kind domain.Source) (int, error) {
	src, err := uc.source(kind)
	if err != nil {
		return 0, err
	}
	logger := applog.FromContext(ctx, uc.logger).With(zap.String("source", string(kind)))
	started := uc.now()
	tasks, err := src.List(ctx)
	if err != nil {
		logger.Error("sync failed", zap.Error(err))
		return 0, fmt.Errorf("sync %s: %w", kind, err)
	}
	for i := range tasks {
		tasks[i].Source = kind
	}
	uc.cache.ReplaceAll(kind, tasks, uc.now())
	logger.Info("sync completed",
		zap.Int("tasks", len(tasks)),
		zap.Duration("took", uc.now().Sub(started)))
	return len(tasks), nil
}

// SyncAll syncs every configured source; one failing source does not stop the others.
func (uc *UseCase) SyncAll(ctx context.Context) (map[domain.Source]int, error) {
	counts := make(map[domain.Source]int)
	var result error
	for _, kind := range uc.Sources() {
		n, err := uc.Sync(ctx, kind)
		if err != nil {
			result = errors.Join(result, err)
			continue
		}
		counts[kind] = n
	}
	return counts, result
}

func (uc *UseCase) resolve(id domain.TaskID) (repository.CacheEntry, error) {
	if id == "" {
		return repository.CacheEntry{}, domain.ErrTaskNotFound
	}
	entries := uc.cache.Lookup(id)
	switch len(entries) {
	case 0:
		return repository.CacheEntry{}, domain.ErrTaskNotFound
	case 1:
		return entries[0], nil
	default:
		return repository.CacheEntry{}, domain.ErrAmbiguousTask
	}
}

func (uc *UseCase) source(kind domain.Source) (repository.TaskSource, error) {
	if !kind.Remote() {
		return nil, domain.NewError(domain.ErrCodeInvalid, fmt.Sprintf("%s is not a remote source", kind))
	}
	src, ok := uc.sources[kind]
	if !ok {
		return nil, domain.NewError(domain.ErrCodeInvalid, fmt.Sprintf("%s source is not configured", kind))
	}
	return src, nil
}

func validatePatch(patch domain.TaskPatch) error {
	if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
		return domain.NewError(domain.ErrCodeInvalid, "task title is required")
	}
	if patch.Status != nil && !patch.Status.Valid() {
		return domain.NewError(domain.ErrCodeInvalid, "unknown task status "+string(*patch.Status))
	}
	if patch.Priority != nil && !patch.Priority.Valid() {
		return domain.NewError(domain.ErrCodeInvalid, "unknown task priority "+string(*patch.Priority))
	}
	return nil
}
