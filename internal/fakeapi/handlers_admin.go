package fakeapi

import (
	"net/http"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"
)

// adminUsers q 는 username/email 부분 일치, 가입일 내림차순
func (s *Server) adminUsers(c *gin.Context) {
	q := strings.ToLower(strings.TrimSpace(c.Query("q")))
	s.mu.Lock()
	defer s.mu.Unlock()

	users := make([]*user, 0, len(s.state.users))
	for _, u := range s.state.users {
		if q == "" || strings.Contains(strings.ToLower(u.Username), q) || strings.Contains(strings.ToLower(u.Email), q) {
			users = append(users, u)
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].CreatedAt.After(users[j].CreatedAt) })

	items := make([]gin.H, 0, len(users))
	for _, u := range users {
		items = append(items, adminUserDTO(u))
	}
	c.JSON(http.StatusOK, pageResponse(items, queryInt(c, "page", 0), queryInt(c, "size", 20)))
}

func (s *Server) adminPosts(c *gin.Context) {
	q := strings.ToLower(strings.TrimSpace(c.Query("q")))
	s.mu.Lock()
	defer s.mu.Unlock()

	posts := s.state.sortedPosts(func(p *post) bool {
		return q == "" || strings.Contains(strings.ToLower(p.Title), q)
	})
	items := make([]gin.H, 0, len(posts))
	for _, p := range posts {
		items = append(items, s.adminPostDTO(p))
	}
	c.JSON(http.StatusOK, pageResponse(items, queryInt(c, "page", 0), queryInt(c, "size", 20)))
}

func (s *Server) adminDeleteUser(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		errorResponse(c, http.StatusBadRequest, "invalid user id")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.users[id] == nil {
		errorResponse(c, http.StatusNotFound, "User not found")
		return
	}
	s.state.removeUser(id)
	c.Status(http.StatusNoContent)
}
