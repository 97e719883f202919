package store

import (
	"context"
	"sync"
)

// MemoryStore 프로세스 메모리 저장소 (테스트, 일회성 실행)
type MemoryStore struct {
	mu    sync.RWMutex
	token string
}

// NewMemoryStore 생성자
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Load(_ context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token, nil
}

func (s *MemoryStore) Save(_ context.Context, token string) error {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Clear(_ context.Context) error {
	return s.Save(context.Background(), "")
}
