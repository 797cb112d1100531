package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	redislib "github.com/redis/go-redis/v9"

	"github.com/fastygo/taskhub/domain"
	"github.com/fastygo/taskhub/repository"
)

type keyStore struct {
	client *redislib.Client
	prefix string
	ttl    time.Duration
}

// NewKeyStore creates a Redis-backed idempotency key store shared by every
// running instance.
func NewKeyStore(client *redislib.Client, ttl time.Duration) repository.KeyStore {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &keyStore{
		client: client,
		prefix: "mention:",
		ttl:    ttl,
	}
}

func (s *keyStore) Lookup(ctx context.Context, key string) (*domain.Task, error) {
	result, err := s.client.Get(ctx, s.key(key)).Result()
	if err != nil {
		if errors.Is(err, redislib.Nil) {
			return nil, nil
		}
		return nil, domain.RemoteUnavailable("idempotency lookup failed", err)
	}

	var task domain.Task
	if err := json.Unmarshal([]byte(result), &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// Remember keeps the first task recorded for key; later writes are ignored.
func (s *keyStore) Remember(ctx context.Context, key string, task domain.Task) error {
	if key == "" {
		return domain.ErrInvalidPayload
	}
	payload, err := json.Marshal(task)
	if err != nil {
		return err
	}
	if err := s.client.SetNX(ctx, s.key(key), payload, s.ttl).Err(); err != nil {
		return domain.RemoteUnavailable("idempotency write failed", err)
	}
	return nil
}

func (s *keyStore) key(id string) string {
	return fmt.Sprintf("%s%s", s.prefix, id)
}
