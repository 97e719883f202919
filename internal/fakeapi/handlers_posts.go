package fakeapi

import (
	"net/http"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/damoang/blok-client/internal/domain"
)

func (s *Server) listPosts(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.JSON(http.StatusOK, s.postDTOs(s.state.sortedPosts(nil), viewer(c)))
}

func (s *Server) myPosts(c *gin.Context) {
	id := viewer(c)
	s.mu.Lock()
	defer s.mu.Unlock()
	posts := s.state.sortedPosts(func(p *post) bool { return p.AuthorID == id })
	c.JSON(http.StatusOK, s.postDTOs(posts, id))
}

// topLiked 좋아요 상위 5개
func (s *Server) topLiked(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	posts := s.state.sortedPosts(nil)
	sort.SliceStable(posts, func(i, j int) bool { return len(posts[i].likes) > len(posts[j].likes) })
	if len(posts) > 5 {
		posts = posts[:5]
	}
	c.JSON(http.StatusOK, s.postDTOs(posts, viewer(c)))
}

func (s *Server) getPost(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		errorResponse(c, http.StatusBadRequest, "invalid post id")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.state.posts[id]
	if p == nil {
		errorResponse(c, http.StatusNotFound, "Post not found")
		return
	}
	c.JSON(http.StatusOK, s.postDTO(p, viewer(c)))
}

func (s *Server) createPost(c *gin.Context) {
	var req domain.CreatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "Title and content are required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	author := s.state.users[viewer(c)]
	var cat *category
	if len(s.state.categories) > 0 {
		cat = s.state.categories[0]
	}
	p := s.state.addPost(author, cat, req.Title, req.Content, req.TagNames...)
	if req.Summary != "" {
		p.Summary = req.Summary
	}
	p.CoverImageURL = req.CoverImageURL
	c.JSON(http.StatusOK, s.postDTO(p, author.ID))
}

func (s *Server) deletePost(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		errorResponse(c, http.StatusBadRequest, "invalid post id")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.state.posts[id]
	if p == nil {
		errorResponse(c, http.StatusNotFound, "Post not found")
		return
	}
	if p.AuthorID != viewer(c) {
		errorResponse(c, http.StatusForbidden, "You can only delete your own posts")
		return
	}
	s.state.removePost(id)
	c.String(http.StatusOK, "Post deleted.")
}

func (s *Server) listCategories(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]gin.H, 0, len(s.state.categories))
	for _, cat := range s.state.categories {
		out = append(out, gin.H{"id": cat.ID, "name": cat.Name, "slug": cat.Slug, "description": cat.Description})
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) createCategory(c *gin.Context) {
	var req domain.CreateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "Category name is required")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, cat := range s.state.categories {
		if strings.EqualFold(cat.Name, req.Name) {
			errorResponse(c, http.StatusBadRequest, "Category already exists")
			return
		}
	}
	cat := s.state.addCategory(req.Name, req.Description)
	c.JSON(http.StatusOK, gin.H{"id": cat.ID, "name": cat.Name, "slug": cat.Slug, "description": cat.Description})
}

func (s *Server) listTags(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]gin.H, 0, len(s.state.tags))
	for _, t := range s.state.tags {
		out = append(out, gin.H{"id": t.ID, "name": t.Name, "slug": t.Slug})
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) upload(c *gin.Context) {
	url, ok := storedFileURL(c, "posts")
	if !ok {
		return
	}
	c.String(http.StatusOK, url)
}

// recordViews 사용자별 1회만 조회수 증가
func (s *Server) recordViews(c *gin.Context) {
	var req domain.PostViewsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	id := viewer(c)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, pid := range req.PostIDs {
		p := s.state.posts[pid]
		if p == nil || p.viewers[id] {
			continue
		}
		p.viewers[id] = true
		p.Views++
	}
	c.Status(http.StatusOK)
}

func (s *Server) togglePostLike(c *gin.Context) {
	s.toggle(c, func(p *post) map[int64]bool { return p.likes }, "Post liked", "Like removed")
}

func (s *Server) toggleSave(c *gin.Context) {
	s.toggle(c, func(p *post) map[int64]bool { return p.saves }, "Post saved", "Save removed")
}

// toggle ToggleLikeResponse {postId, liked, message}
func (s *Server) toggle(c *gin.Context, set func(*post) map[int64]bool, on, off string) {
	id, ok := paramID(c, "id")
	if !ok {
		errorResponse(c, http.StatusBadRequest, "invalid post id")
		return
	}
	uid := viewer(c)
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.state.posts[id]
	if p == nil {
		errorResponse(c, http.StatusNotFound, "Post not found")
		return
	}
	m := set(p)
	liked := !m[uid]
	if liked {
		m[uid] = true
	} else {
		delete(m, uid)
	}
	msg := off
	if liked {
		msg = on
	}
	c.JSON(http.StatusOK, gin.H{"postId": id, "liked": liked, "message": msg})
}

func (s *Server) saveStatus(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		errorResponse(c, http.StatusBadRequest, "invalid post id")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.state.posts[id]
	if p == nil {
		errorResponse(c, http.StatusNotFound, "Post not found")
		return
	}
	c.JSON(http.StatusOK, p.saves[viewer(c)])
}

func (s *Server) likedPosts(c *gin.Context) {
	id := viewer(c)
	s.mu.Lock()
	defer s.mu.Unlock()
	posts := s.state.sortedPosts(func(p *post) bool { return p.likes[id] })
	c.JSON(http.StatusOK, s.postDTOs(posts, id))
}

func (s *Server) savedPosts(c *gin.Context) {
	id := viewer(c)
	s.mu.Lock()
	defer s.mu.Unlock()
	posts := s.state.sortedPosts(func(p *post) bool { return p.saves[id] })
	c.JSON(http.StatusOK, s.postDTOs(posts, id))
}
