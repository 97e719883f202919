package jwt

import (
	"errors"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
)

// Claims blok API JWT 페이로드 구조.
// The subject is the username; roles lists authority names (USER, ADMIN).
type Claims struct {
	jwt.RegisteredClaims
	Roles []string `json:"roles"`
}

// HasRole reports whether the claims grant role
func (c *Claims) HasRole(role string) bool {
	return c != nil && slices.Contains(c.Roles, role)
}

// ParseUnverified 서명 검증 없이 페이로드만 읽음.
// Clients cannot verify the server's signature; they only read role hints.
func ParseUnverified(tokenString string) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Manager HMAC 서명 토큰 발급/검증
type Manager struct {
	secretKey []byte
	ttl       time.Duration
}

// NewManager 생성자
func NewManager(secret string, ttl time.Duration) *Manager {
	return &Manager{secretKey: []byte(secret), ttl: ttl}
}

// Issue 토큰 발급
func (m *Manager) Issue(username string, roles []string) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
		Roles: roles,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secretKey)
}

// Verify 토큰 검증
func (m *Manager) Verify(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		// Validate signing method
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return m.secretKey, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}

	return nil, ErrInvalidToken
}
