// Package fakeapi is an in-memory blok REST backend served by gin.
// Tests and local demos run the SDK against it through net/http/httptest.
package fakeapi

import (
	"bytes"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/damoang/blok-client/pkg/jwt"
)

const (
	ctxViewerID = "viewer_id"
	tokenSecret = "fakeapi-secret"
	tokenTTL    = 24 * time.Hour
)

// Call 기록된 요청
type Call struct {
	Method string
	Path   string
	Query  string
	Body   []byte
}

type failure struct {
	status  int
	message string
	drop    bool
}

// Server 인메모리 백엔드
type Server struct {
	mu       sync.Mutex
	state    *state
	failures map[string][]failure // path -> queued failures
	calls    []Call
	hook     func(method, path string)
	tokens   *jwt.Manager
	router   *gin.Engine
	log      zerolog.Logger
}

// Option 서버 옵션
type Option func(*Server)

// WithLogger 요청 로그 출력
func WithLogger(log zerolog.Logger) Option {
	return func(s *Server) { s.log = log }
}

// WithoutSeed 빈 상태로 시작
func WithoutSeed() Option {
	return func(s *Server) { s.state = newState() }
}

// New 시드 데이터가 채워진 서버 생성
func New(opts ...Option) *Server {
	gin.SetMode(gin.TestMode)
	registerBindingRules()

	st := newState()
	st.seed()
	s := &Server{
		state:    st,
		failures: make(map[string][]failure),
		tokens:   jwt.NewManager(tokenSecret, tokenTTL),
		log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(s.log), metrics(), s.record(), s.inject(), s.authenticate())
	s.routes(r)
	s.router = r
	return s
}

// Handler http.Handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Router gin 엔진 (추가 라우트 등록용)
func (s *Server) Router() *gin.Engine {
	return s.router
}

// FailNext 다음 요청 하나를 status 로 실패시킴
func (s *Server) FailNext(path string, status int) {
	s.FailNextWith(path, status, http.StatusText(status))
}

// FailNextWith 메시지 지정 실패
func (s *Server) FailNextWith(path string, status int, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[path] = append(s.failures[path], failure{status: status, message: message})
}

// DropNext 다음 요청의 연결을 응답 없이 끊음 (네트워크 오류)
func (s *Server) DropNext(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[path] = append(s.failures[path], failure{drop: true})
}

// SetHook 라우팅 전에 호출되는 훅. 테스트에서 요청 순서 제어용
func (s *Server) SetHook(hook func(method, path string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hook = hook
}

// Calls method + path prefix 로 기록된 요청 조회. 빈 method 는 전체
func (s *Server) Calls(method, pathPrefix string) []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Call
	for _, c := range s.calls {
		if (method == "" || c.Method == method) && strings.HasPrefix(c.Path, pathPrefix) {
			out = append(out, c)
		}
	}
	return out
}

// ResetCalls 요청 기록 초기화
func (s *Server) ResetCalls() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = nil
}

// Token 시드 사용자의 유효한 토큰 발급
func (s *Server) Token(username string) string {
	s.mu.Lock()
	u := s.state.userByName(username)
	s.mu.Unlock()
	if u == nil {
		return ""
	}
	token, err := s.tokens.Issue(u.Username, rolesFor(u))
	if err != nil {
		return ""
	}
	return token
}

func rolesFor(u *user) []string {
	return []string{u.Role}
}

func (s *Server) record() gin.HandlerFunc {
	return func(c *gin.Context) {
		var body []byte
		if c.Request.Body != nil {
			body, _ = io.ReadAll(c.Request.Body)
			c.Request.Body = io.NopCloser(bytes.NewReader(body))
		}

		s.mu.Lock()
		s.calls = append(s.calls, Call{
			Method: c.Request.Method,
			Path:   c.Request.URL.Path,
			Query:  c.Request.URL.RawQuery,
			Body:   body,
		})
		hook := s.hook
		s.mu.Unlock()

		if hook != nil {
			hook(c.Request.Method, c.Request.URL.Path)
		}
		c.Next()
	}
}

func (s *Server) inject() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path

		s.mu.Lock()
		queue := s.failures[path]
		var f *failure
		if len(queue) > 0 {
			f = &queue[0]
			s.failures[path] = queue[1:]
		}
		s.mu.Unlock()

		if f == nil {
			c.Next()
			return
		}
		if f.drop {
			if conn, _, err := c.Writer.Hijack(); err == nil {
				_ = conn.Close()
			}
			c.Abort()
			return
		}
		errorResponse(c, f.status, f.message)
	}
}

// authenticate Bearer 토큰이 유효하면 viewer 설정. 검증 실패는 익명으로 처리
func (s *Server) authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			c.Next()
			return
		}
		claims, err := s.tokens.Verify(token)
		if err != nil {
			c.Next()
			return
		}
		s.mu.Lock()
		u := s.state.userByName(claims.Subject)
		s.mu.Unlock()
		if u != nil {
			c.Set(ctxViewerID, u.ID)
		}
		c.Next()
	}
}

// viewer 인증된 사용자 ID, 없으면 0
func viewer(c *gin.Context) int64 {
	if v, ok := c.Get(ctxViewerID); ok {
		if id, ok := v.(int64); ok {
			return id
		}
	}
	return 0
}

// requireAuth 인증 필수 핸들러 래퍼
func requireAuth(h gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if viewer(c) == 0 {
			errorResponse(c, http.StatusUnauthorized, "authentication required")
			return
		}
		h(c)
	}
}

// requireAdmin 관리자 전용 핸들러 래퍼
func (s *Server) requireAdmin(h gin.HandlerFunc) gin.HandlerFunc {
	return requireAuth(func(c *gin.Context) {
		s.mu.Lock()
		u := s.state.users[viewer(c)]
		isAdmin := u != nil && u.Role == "ADMIN"
		s.mu.Unlock()
		if !isAdmin {
			errorResponse(c, http.StatusForbidden, "Access Denied")
			return
		}
		h(c)
	})
}
