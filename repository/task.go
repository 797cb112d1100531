package repository

import (
	"context"

	"github.com/fastygo/taskhub/domain"
)

// TaskSource is one remote task database. Implementations own no cache and
// report failures as REMOTE_UNAVAILABLE, NOT_FOUND or MAPPING domain errors.
type TaskSource interface {
	Kind() domain.Source
	// List returns the complete result set, paginating internally.
	List(ctx context.Context) ([]domain.Task, error)
	Get(ctx context.Context, id domain.TaskID) (*domain.Task, error)
	Create(ctx context.Context, task *domain.Task) (*domain.Task, error)
	Update(ctx context.Context, id domain.TaskID, patch domain.TaskPatch) (*domain.Task, error)
	Delete(ctx context.Context, id domain.TaskID) error
}
