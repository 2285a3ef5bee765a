package store

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

const (
	redisTimeout   = 2 * time.Second
	redisScanCount = 200
)

// RedisStore keeps entries as plain redis strings. Several processes can share
// it, but notifications still stay inside the publishing process.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects and pings the server
func NewRedisStore(addr, password string, db int) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrapf(err, "redis: connect %s", addr)
	}
	return &RedisStore{client: client}, nil
}

// NewRedisStoreWithClient wraps an existing client
func NewRedisStoreWithClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Get(key string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
	defer cancel()
	v, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "redis: get %s", key)
	}
	return v, nil
}

func (s *RedisStore) Set(key string, value []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
	defer cancel()
	return errors.Wrapf(s.client.Set(ctx, key, value, 0).Err(), "redis: set %s", key)
}

func (s *RedisStore) ScanPrefix(prefix string) ([]Entry, error) {
	ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
	defer cancel()

	var keys []string
	seen := make(map[string]struct{})
	iter := s.client.Scan(ctx, 0, escapeGlob(prefix)+"*", redisScanCount).Iterator()
	for iter.Next(ctx) {
		// SCAN may return a key more than once
		k := iter.Val()
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
	}
	if err := iter.Err(); err != nil {
		return nil, errors.Wrapf(err, "redis: scan %s", prefix)
	}
	if len(keys) == 0 {
		return nil, nil
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, errors.Wrapf(err, "redis: mget %s", prefix)
	}
	out := make([]Entry, 0, len(keys))
	for i, v := range values {
		// deleted between SCAN and MGET
		if v == nil {
			continue
		}
		switch val := v.(type) {
		case string:
			out = append(out, Entry{Key: keys[i], Value: []byte(val)})
		case []byte:
			out = append(out, Entry{Key: keys[i], Value: copyBytes(val)})
		}
	}
	return out, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
