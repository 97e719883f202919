package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Options Redis 접속 설정
type Options struct {
	Host     string
	Port     int
	Password string
	DB       int
	PoolSize int
}

// NewClient Redis 클라이언트 생성
func NewClient(ctx context.Context, opts Options) (*redis.Client, error) {
	poolSize := opts.PoolSize
	if poolSize <= 0 {
		poolSize = 4
	}
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", opts.Host, opts.Port),
		Password: opts.Password,
		DB:       opts.DB,
		PoolSize: poolSize,
	})

	// 연결 테스트
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return client, nil
}
