package auth

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/damoang/blok-client/internal/domain"
	"github.com/damoang/blok-client/internal/store"
	"github.com/damoang/blok-client/pkg/jwt"
)

// Session 인메모리 토큰 + 영속 저장소.
// Every request reads the token through Token(); only login and logout write it.
type Session struct {
	mu    sync.RWMutex
	token string
	user  *domain.User
	store store.TokenStore
	log   zerolog.Logger
}

// NewSession 생성자
func NewSession(st store.TokenStore, log zerolog.Logger) *Session {
	if st == nil {
		st = store.NewMemoryStore()
	}
	return &Session{store: st, log: log}
}

// Token implements apiclient.TokenSource
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Authenticated 세션 토큰 보유 여부
func (s *Session) Authenticated() bool {
	return s.Token() != ""
}

// User 현재 사용자 복사본. 로그인 전이면 nil
func (s *Session) User() *domain.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// IsAdmin 관리자 여부
func (s *Session) IsAdmin() bool {
	return s.User().IsAdmin()
}

func (s *Session) load(ctx context.Context) (string, error) {
	token, err := s.store.Load(ctx)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
	return token, nil
}

func (s *Session) setToken(ctx context.Context, token string) {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
	if err := s.store.Save(ctx, token); err != nil {
		s.log.Warn().Err(err).Msg("failed to persist token")
	}
}

func (s *Session) setUser(u *domain.User) {
	s.mu.Lock()
	s.user = u
	s.mu.Unlock()
}

func (s *Session) clear(ctx context.Context) error {
	s.mu.Lock()
	s.token = ""
	s.user = nil
	s.mu.Unlock()
	return s.store.Clear(ctx)
}

// RoleFromToken JWT roles 클레임에서 역할 추출. ADMIN 우선.
// Returns "" when the token cannot be read or carries no known role.
func RoleFromToken(token string) domain.Role {
	claims, err := jwt.ParseUnverified(token)
	if err != nil {
		return ""
	}
	switch {
	case claims.HasRole(string(domain.RoleAdmin)):
		return domain.RoleAdmin
	case claims.HasRole(string(domain.RoleUser)):
		return domain.RoleUser
	}
	return ""
}
