package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/damoang/blok-client/internal/common"
	"github.com/damoang/blok-client/internal/domain"
	"github.com/damoang/blok-client/internal/mapper"
	"github.com/damoang/blok-client/pkg/apiclient"
)

const (
	pathLogin      = "/api/auth/login"
	pathAdminLogin = "/api/auth/admin/login"
	pathRegister   = "/api/auth/register"
	pathForgot     = "/api/auth/forgot-password"
	pathProfile    = "/api/user/profile"
)

// ErrAdminOnly 관리자 전용 로그인에 일반 계정 사용
var ErrAdminOnly = errors.New("only admins can sign in here")

// Service 인증 API 호출
type Service struct {
	api     *apiclient.Client
	session *Session
	log     zerolog.Logger
}

// NewService 생성자
func NewService(api *apiclient.Client, session *Session, log zerolog.Logger) *Service {
	return &Service{api: api, session: session, log: log}
}

// Session returns the session the service writes to
func (s *Service) Session() *Session {
	return s.session
}

// Restore 저장된 토큰으로 세션 복원.
// A rejected token (401/403 or a profile without data) clears the session;
// transport failures, 5xx and rate limiting keep the stored token for the
// next attempt.
func (s *Service) Restore(ctx context.Context) (*domain.User, error) {
	token, err := s.session.load(ctx)
	if err != nil {
		return nil, fmt.Errorf("restore session: %w", err)
	}
	if token == "" {
		return nil, nil
	}
	user, err := s.Profile(ctx)
	if err != nil {
		var appErr *common.AppError
		if errors.As(err, &appErr) && (appErr.Category == common.CategoryNetwork || errors.Is(appErr, common.ErrRateLimited)) {
			return nil, err
		}
		s.log.Info().Msg("stored token rejected, signing out")
		_ = s.Logout(ctx)
		return nil, err
	}
	return user, nil
}

// Login 일반 로그인
func (s *Service) Login(ctx context.Context, username, password string) (*domain.User, error) {
	req := domain.LoginRequest{Username: strings.TrimSpace(username), Password: password}
	if appErr := common.ValidateRequest(&req); appErr != nil {
		return nil, appErr
	}
	resp := s.api.Post(ctx, pathLogin, req)
	if appErr := common.FromResponse(resp); appErr != nil {
		return nil, appErr
	}
	rec := mapper.DecodeRecord(resp.Body)
	token := rec.String("token")
	if token == "" {
		return nil, common.ClassifyResponse(resp.Status, apiclient.ParseError)
	}

	basic := &domain.User{
		ID:       rec.ID("id"),
		Username: rec.String("username"),
		Email:    rec.String("email"),
		Role:     domain.ParseRole(rec.String(mapper.RoleFields...)),
	}
	s.session.setToken(ctx, token)
	s.session.setUser(basic)
	s.log.Info().Str("username", username).Msg("signed in")

	user, err := s.Profile(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("profile fetch after login failed")
		return s.session.User(), nil
	}
	return user, nil
}

// AdminLogin 관리자 로그인. 토큰에 ADMIN 역할이 없으면 로그아웃
func (s *Service) AdminLogin(ctx context.Context, username, password string) (*domain.User, error) {
	req := domain.LoginRequest{Username: strings.TrimSpace(username), Password: password}
	if appErr := common.ValidateRequest(&req); appErr != nil {
		return nil, appErr
	}
	resp := s.api.Post(ctx, pathAdminLogin, req)
	if appErr := common.FromResponse(resp); appErr != nil {
		return nil, appErr
	}
	token := mapper.DecodeRecord(resp.Body).String("token")
	if token == "" {
		return nil, common.ClassifyResponse(resp.Status, apiclient.ParseError)
	}

	s.session.setToken(ctx, token)
	isAdmin := RoleFromToken(token) == domain.RoleAdmin

	user, err := s.Profile(ctx)
	if !isAdmin {
		_ = s.Logout(ctx)
		return nil, &common.AppError{Category: common.CategoryError, Message: ErrAdminOnly.Error(), Status: http.StatusForbidden, Err: ErrAdminOnly}
	}
	return user, err
}

// Register 회원가입 후 자동 로그인
func (s *Service) Register(ctx context.Context, req domain.RegisterRequest) (*domain.User, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	if appErr := common.ValidateRequest(&req); appErr != nil {
		return nil, appErr
	}
	resp := s.api.Post(ctx, pathRegister, req)
	if appErr := common.FromResponse(resp); appErr != nil {
		return nil, appErr
	}
	if !resp.HasData() {
		return nil, common.ClassifyResponse(resp.Status, apiclient.ParseError)
	}
	return s.Login(ctx, req.Username, req.Password)
}

// ForgotPassword 비밀번호 재설정 요청. 서버가 발급한 임시 비밀번호 반환.
// The session is not touched; the user signs in with the returned password.
func (s *Service) ForgotPassword(ctx context.Context, email string) (string, error) {
	req := domain.ForgotPasswordRequest{Email: strings.TrimSpace(email)}
	if appErr := common.ValidateRequest(&req); appErr != nil {
		return "", appErr
	}
	resp := s.api.Post(ctx, pathForgot, req)
	if appErr := common.FromResponse(resp); appErr != nil {
		return "", appErr
	}
	password := mapper.DecodeRecord(resp.Body).String("password")
	if password == "" {
		return "", common.ClassifyResponse(resp.Status, apiclient.ParseError)
	}
	s.log.Info().Msg("password reset issued")
	return password, nil
}

// Logout 메모리 + 저장소 토큰 삭제
func (s *Service) Logout(ctx context.Context) error {
	if err := s.session.clear(ctx); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

// Profile 프로필 조회 후 세션 사용자 갱신.
// The role comes from the token's roles claim, then the previously known role.
func (s *Service) Profile(ctx context.Context) (*domain.User, error) {
	if !s.session.Authenticated() {
		return nil, common.NotPermitted()
	}
	resp := s.api.Get(ctx, pathProfile)
	if appErr := common.FromResponse(resp); appErr != nil {
		return nil, appErr
	}
	if !resp.HasData() {
		return nil, common.ClassifyResponse(http.StatusUnauthorized, "")
	}
	user := s.mergeRole(mapper.MapUser(mapper.DecodeRecord(resp.Body)))
	s.session.setUser(&user)
	return &user, nil
}

func (s *Service) mergeRole(u domain.User) domain.User {
	role := RoleFromToken(s.session.Token())
	if role == "" {
		if prev := s.session.User(); prev != nil && prev.Role != "" {
			role = prev.Role
		} else {
			role = domain.RoleUser
		}
	}
	u.Role = role
	return u
}

// UpdateProfile 프로필 수정
func (s *Service) UpdateProfile(ctx context.Context, req domain.UpdateProfileRequest) (*domain.User, error) {
	if !s.session.Authenticated() {
		return nil, common.NotPermitted()
	}
	resp := s.api.Put(ctx, pathProfile, req)
	if appErr := common.FromResponse(resp); appErr != nil {
		return nil, appErr
	}
	user := s.mergeRole(mapper.MapUser(mapper.DecodeRecord(resp.Body)))
	s.session.setUser(&user)
	return &user, nil
}

// UploadProfileImage 프로필 이미지 업로드, 새 이미지 URL 반환
func (s *Service) UploadProfileImage(ctx context.Context, filename string, content io.Reader) (string, error) {
	user := s.session.User()
	if user == nil || user.ID == "" {
		return "", common.NotPermitted()
	}
	resp := s.api.UploadFile(ctx, "/api/user/"+user.ID+"/profile-image", "file", filename, content)
	if appErr := common.FromResponse(resp); appErr != nil {
		return "", appErr
	}
	url := mapper.DecodeRecord(resp.Body).String("imageUrl")
	if url == "" {
		url = resp.Text()
	}

	updated := *user
	updated.ProfileImgURL = url
	s.session.setUser(&updated)
	return url, nil
}
