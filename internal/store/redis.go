package store

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// KeyPrefix Redis 토큰 키 접두사
const KeyPrefix = "blok:token:"

// Cmdable is the subset of *redis.Client used by RedisStore
type Cmdable interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisStore 프로필별 Redis 키에 토큰 저장
type RedisStore struct {
	client Cmdable
	key    string
	ttl    time.Duration
}

// NewRedisStore 생성자. ttl 0 은 만료 없음
func NewRedisStore(client Cmdable, profile string, ttl time.Duration) *RedisStore {
	if profile == "" {
		profile = "default"
	}
	return &RedisStore{client: client, key: KeyPrefix + profile, ttl: ttl}
}

// Key 사용 중인 Redis 키
func (s *RedisStore) Key() string {
	return s.key
}

func (s *RedisStore) Load(ctx context.Context) (string, error) {
	token, err := s.client.Get(ctx, s.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", wrap("load", err)
	}
	return token, nil
}

func (s *RedisStore) Save(ctx context.Context, token string) error {
	return wrap("save", s.client.Set(ctx, s.key, token, s.ttl).Err())
}

func (s *RedisStore) Clear(ctx context.Context) error {
	return wrap("clear", s.client.Del(ctx, s.key).Err())
}
