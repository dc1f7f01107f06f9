package stateinfra

import (
	"context"
	"time"

	"github.com/Abraxas-365/jobgrid/pkg/iam/state"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "jobgrid:state:"

// RedisStore shares issued nonces between instances.
type RedisStore struct {
	rdb *redis.Client
}

func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func (s *RedisStore) Issue(ctx context.Context, nonce string, ttl time.Duration) error {
	ok, err := s.rdb.SetNX(ctx, keyPrefix+nonce, "1", ttl).Result()
	if err != nil {
		return state.ErrStore().WithCause(err).WithDetail("op", "issue")
	}
	if !ok {
		return state.ErrNonceExists()
	}
	return nil
}

func (s *RedisStore) Consume(ctx context.Context, nonce string) (bool, error) {
	_, err := s.rdb.GetDel(ctx, keyPrefix+nonce).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, state.ErrStore().WithCause(err).WithDetail("op", "consume")
	}
	return true, nil
}
