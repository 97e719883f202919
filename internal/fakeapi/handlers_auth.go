package fakeapi

import (
	"fmt"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/damoang/blok-client/internal/domain"
)

func (s *Server) credentials(c *gin.Context) (*user, bool) {
	var req domain.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "username and password are required")
		return nil, false
	}
	s.mu.Lock()
	u := s.state.userByName(req.Username)
	s.mu.Unlock()
	if u == nil || u.Password != req.Password {
		errorResponse(c, http.StatusUnauthorized, "Invalid username or password")
		return nil, false
	}
	return u, true
}

func (s *Server) login(c *gin.Context) {
	u, ok := s.credentials(c)
	if !ok {
		return
	}
	token, err := s.tokens.Issue(u.Username, rolesFor(u))
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}

	s.mu.Lock()
	u.Online = true
	s.mu.Unlock()

	c.JSON(http.StatusOK, gin.H{
		"id":       u.ID,
		"username": u.Username,
		"email":    u.Email,
		"roleName": u.Role,
		"isOnline": true,
		"token":    token,
	})
}

func (s *Server) adminLogin(c *gin.Context) {
	u, ok := s.credentials(c)
	if !ok {
		return
	}
	if u.Role != "ADMIN" {
		errorResponse(c, http.StatusForbidden, "Only admins can sign in.")
		return
	}
	token, err := s.tokens.Issue(u.Username, rolesFor(u))
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}

func (s *Server) register(c *gin.Context) {
	var req domain.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "A valid username, email and password are required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.userByName(req.Username) != nil {
		errorResponse(c, http.StatusBadRequest, "Username is already taken")
		return
	}
	u := s.state.addUser(req.Username, req.Email, req.Password, "USER")
	u.Bio = req.Bio
	u.ProfileImgURL = req.ProfileImgURL

	c.JSON(http.StatusOK, gin.H{"id": u.ID, "username": u.Username, "email": u.Email})
}

// forgotPassword 임시 비밀번호 발급. 메일 발송 대신 응답으로 반환
func (s *Server) forgotPassword(c *gin.Context) {
	var req domain.ForgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "A valid email is required")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.state.userByEmail(req.Email)
	if u == nil {
		errorResponse(c, http.StatusBadRequest, "No user is registered with this email")
		return
	}
	u.Password = uuid.NewString()[:8]
	c.JSON(http.StatusOK, gin.H{"password": u.Password})
}

func (s *Server) getProfile(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.JSON(http.StatusOK, s.profileDTO(s.state.users[viewer(c)]))
}

func (s *Server) updateProfile(c *gin.Context) {
	var req domain.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.state.users[viewer(c)]
	if req.Password != "" && req.CurrentPassword != u.Password {
		errorResponse(c, http.StatusBadRequest, "Current password is incorrect")
		return
	}
	if req.Username != "" && req.Username != u.Username {
		if s.state.userByName(req.Username) != nil {
			errorResponse(c, http.StatusBadRequest, "Username is already taken")
			return
		}
		u.Username = req.Username
	}
	if req.Email != "" {
		u.Email = req.Email
	}
	if req.Bio != "" {
		u.Bio = req.Bio
	}
	if req.ProfileImgURL != "" {
		u.ProfileImgURL = req.ProfileImgURL
	}
	if req.Password != "" {
		u.Password = req.Password
	}
	c.JSON(http.StatusOK, s.profileDTO(u))
}

func (s *Server) uploadProfileImage(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		errorResponse(c, http.StatusBadRequest, "invalid user id")
		return
	}
	url, ok := storedFileURL(c, "profile")
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.state.users[id]
	if u == nil {
		errorResponse(c, http.StatusNotFound, "User not found")
		return
	}
	u.ProfileImgURL = url
	c.JSON(http.StatusOK, gin.H{"imageUrl": url})
}

// storedFileURL multipart "file" 파트를 받아 가상의 업로드 URL 생성
func storedFileURL(c *gin.Context, kind string) (string, bool) {
	fh, err := c.FormFile("file")
	if err != nil {
		errorResponse(c, http.StatusBadRequest, "file is required")
		return "", false
	}
	return fmt.Sprintf("/uploads/%s/%s%s", kind, uuid.NewString(), filepath.Ext(fh.Filename)), true
}
