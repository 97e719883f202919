package domain

import "time"

// Role of a user account
type Role string

const (
	RoleGuest Role = "GUEST"
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// ParseRole normalizes a role name; unknown values map to RoleUser
func ParseRole(s string) Role {
	switch Role(s) {
	case RoleAdmin, "ROLE_ADMIN":
		return RoleAdmin
	case RoleGuest, "ROLE_GUEST":
		return RoleGuest
	default:
		return RoleUser
	}
}

// User is the signed-in user's profile
type User struct {
	ID            string `json:"id"`
	Username      string `json:"username"`
	Email         string `json:"email"`
	Bio           string `json:"bio,omitempty"`
	ProfileImgURL string `json:"profileImgUrl,omitempty"`
	Role          Role   `json:"roleName"`
}

// IsAdmin reports whether the user has the admin role
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// AdminUser is a row of the admin user list
type AdminUser struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Role      Role      `json:"roleName"`
	IsOnline  bool      `json:"isOnline"`
	CreatedAt time.Time `json:"createdAt"`
}

// AdminPost is a row of the admin post list
type AdminPost struct {
	ID             int64     `json:"id"`
	Title          string    `json:"title"`
	Slug           string    `json:"slug"`
	AuthorUsername string    `json:"authorUsername"`
	Published      bool      `json:"published"`
	CreatedAt      time.Time `json:"createdAt"`
}

// LoginRequest is the body of the login endpoints
type LoginRequest struct {
	Username string `json:"username" binding:"required" validate:"notblank"`
	Password string `json:"password" binding:"required" validate:"required"`
}

// LoginResponse is returned by POST /api/auth/login
type LoginResponse struct {
	Token    string `json:"token"`
	Username string `json:"username"`
	RoleName string `json:"roleName"`
}

// RegisterRequest is the body of POST /api/auth/register
type RegisterRequest struct {
	Username      string `json:"username" binding:"required" validate:"notblank,max=50"`
	Email         string `json:"email" binding:"required,email" validate:"required,email"`
	Password      string `json:"password" binding:"required" validate:"required"`
	ProfileImgURL string `json:"profileImgUrl,omitempty"`
	Bio           string `json:"bio,omitempty"`
}

// ForgotPasswordRequest is the body of POST /api/auth/forgot-password
type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email" validate:"required,email"`
}

// UpdateProfileRequest is the body of PUT /api/user/profile
type UpdateProfileRequest struct {
	Username        string `json:"username,omitempty"`
	Email           string `json:"email,omitempty"`
	Bio             string `json:"bio,omitempty"`
	ProfileImgURL   string `json:"profileImgUrl,omitempty"`
	Password        string `json:"password,omitempty"`
	CurrentPassword string `json:"currentPassword,omitempty"`
}
