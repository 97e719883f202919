package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestFileStore(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "token")
	s := NewFileStore(path)

	token, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, token, "missing file means no token")

	require.NoError(t, s.Save(ctx, "abc.def.ghi"))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	token, err = s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "abc.def.ghi", token)

	require.NoError(t, s.Clear(ctx))
	require.NoError(t, s.Clear(ctx), "clearing twice is fine")
	token, err = s.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, token)
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.Save(ctx, "tok"))
	token, _ := s.Load(ctx)
	assert.Equal(t, "tok", token)

	require.NoError(t, s.Clear(ctx))
	token, _ = s.Load(ctx)
	assert.Empty(t, token)
}

func TestValidKind(t *testing.T) {
	assert.True(t, ValidKind(KindFile))
	assert.True(t, ValidKind(KindRedis))
	assert.True(t, ValidKind(KindMemory))
	assert.False(t, ValidKind("s3"))
}

// --- Mock redis client ---

type mockRedis struct {
	mock.Mock
}

func (m *mockRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	args := m.Called(key)
	return redis.NewStringResult(args.String(0), args.Error(1))
}

func (m *mockRedis) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	args := m.Called(key, value, expiration)
	return redis.NewStatusResult("OK", args.Error(0))
}

func (m *mockRedis) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	args := m.Called(keys)
	return redis.NewIntResult(1, args.Error(0))
}

func TestRedisStore(t *testing.T) {
	ctx := context.Background()

	t.Run("save and load", func(t *testing.T) {
		client := new(mockRedis)
		client.On("Set", "blok:token:work", "tok", time.Hour).Return(nil)
		client.On("Get", "blok:token:work").Return("tok", nil)

		s := NewRedisStore(client, "work", time.Hour)
		require.NoError(t, s.Save(ctx, "tok"))
		token, err := s.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, "tok", token)
		client.AssertExpectations(t)
	})

	t.Run("missing key", func(t *testing.T) {
		client := new(mockRedis)
		client.On("Get", "blok:token:default").Return("", redis.Nil)

		s := NewRedisStore(client, "", 0)
		assert.Equal(t, "blok:token:default", s.Key())
		token, err := s.Load(ctx)
		require.NoError(t, err)
		assert.Empty(t, token)
	})

	t.Run("connection error", func(t *testing.T) {
		client := new(mockRedis)
		client.On("Get", "blok:token:default").Return("", errors.New("dial tcp: connection refused"))

		_, err := NewRedisStore(client, "default", 0).Load(ctx)
		assert.ErrorContains(t, err, "token store load")
	})

	t.Run("clear", func(t *testing.T) {
		client := new(mockRedis)
		client.On("Del", []string{"blok:token:default"}).Return(nil)

		require.NoError(t, NewRedisStore(client, "default", 0).Clear(ctx))
		client.AssertExpectations(t)
	})
}
