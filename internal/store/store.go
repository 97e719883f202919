// Package store persists the session token between CLI invocations.
package store

import (
	"context"
	"fmt"
)

// TokenStore 인증 토큰 저장소.
// Load returns "" and a nil error when no token is stored.
type TokenStore interface {
	Load(ctx context.Context) (string, error)
	Save(ctx context.Context, token string) error
	Clear(ctx context.Context) error
}

// 저장소 종류
const (
	KindFile   = "file"
	KindRedis  = "redis"
	KindMemory = "memory"
)

// ValidKind reports whether kind names a known store
func ValidKind(kind string) bool {
	switch kind {
	case KindFile, KindRedis, KindMemory:
		return true
	}
	return false
}

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("token store %s: %w", op, err)
}
