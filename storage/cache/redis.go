package cache

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/darulhuda/madrasa/core"
)

type redisStore struct {
	client *redis.Client
	prefix string
}

var _ Store = (*redisStore)(nil)

// OpenRedis connects to the Redis server of conf and waits for it to answer.
func OpenRedis(ctx context.Context, conf *core.Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     conf.Redis.Addr,
		Password: conf.Redis.Password,
		DB:       conf.Redis.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "redis ping")
	}
	return client, nil
}

// NewRedisStore namespaces every key with prefix.
func NewRedisStore(client *redis.Client, prefix string) Store {
	return &redisStore{client: client, prefix: prefix}
}

func (s *redisStore) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if err == redis.Nil {
		return nil, ErrMiss
	}
	return val, trapClosed(err)
}

func (s *redisStore) Set(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	return trapClosed(s.client.Set(ctx, s.prefix+key, val, ttl).Err())
}

func (s *redisStore) SetNX(ctx context.Context, key string, val []byte, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, s.prefix+key, val, ttl).Result()
	return ok, trapClosed(err)
}

func (s *redisStore) Expire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := s.client.Expire(ctx, s.prefix+key, ttl).Result()
	return ok, trapClosed(err)
}

func (s *redisStore) TTL(ctx context.Context, key string) (time.Duration, error) {
	ttl, err := s.client.TTL(ctx, s.prefix+key).Result()
	if err != nil {
		return 0, trapClosed(err)
	}
	switch {
	case ttl == -2: // no such key
		return 0, ErrMiss
	case ttl < 0: // no expiry
		return 0, nil
	}
	return ttl, nil
}

func (s *redisStore) Delete(ctx context.Context, key string) error {
	return trapClosed(s.client.Del(ctx, s.prefix+key).Err())
}

func (s *redisStore) Ping(ctx context.Context) error {
	return trapClosed(s.client.Ping(ctx).Err())
}

// trapClosed turns the errors of a closed client into shutdown errors: lockouts cannot be enforced without the store.
func trapClosed(err error) error {
	if errors.Is(err, redis.ErrClosed) {
		return core.NewShutdownError("redis client closed")
	}
	return err
}
