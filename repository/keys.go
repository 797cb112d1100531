package repository

import (
	"context"

	"github.com/fastygo/taskhub/domain"
)

// KeyStore remembers which task an idempotency key produced so redelivered
// events can be answered without creating a duplicate.
type KeyStore interface {
	// Lookup returns nil, nil when the key is unknown.
	Lookup(ctx context.Context, key string) (*domain.Task, error)
	Remember(ctx context.Context, key string, task domain.Task) error
}
