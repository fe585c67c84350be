package session

import (
	"context"
	"errors"
	"time"

	"readmegen/internal/models"
	"readmegen/internal/redis"
)

// RedisStore keeps state under readmegen:session:<id> and lets redis expire idle keys.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	cipher *Cipher
}

func NewRedisStore(client *redis.Client, ttl time.Duration, c *Cipher) *RedisStore {
	return &RedisStore{client: client, ttl: ttl, cipher: c}
}

func (r *RedisStore) key(id string) string {
	return r.client.Key("session", id)
}

func (r *RedisStore) Load(ctx context.Context, id string) (*models.SessionState, error) {
	payload, err := r.client.Get(ctx, r.key(id))
	if err != nil {
		if errors.Is(err, redis.ErrCacheMiss) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return decodeState(r.cipher, payload)
}

func (r *RedisStore) Save(ctx context.Context, state *models.SessionState) error {
	payload, err := encodeState(r.cipher, state)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, r.key(state.ID), payload, r.ttl)
}

func (r *RedisStore) Delete(ctx context.Context, id string) error {
	return r.client.Del(ctx, r.key(id))
}

// DeleteExpired is a no-op; keys carry their own TTL.
func (r *RedisStore) DeleteExpired(context.Context, time.Time) (int, error) {
	return 0, nil
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}
