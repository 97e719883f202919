package fakeapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/damoang/blok-client/internal/domain"
)

func (s *Server) listComments(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		errorResponse(c, http.StatusBadRequest, "invalid post id")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.posts[id] == nil {
		errorResponse(c, http.StatusNotFound, "Post not found")
		return
	}
	c.JSON(http.StatusOK, s.commentTree(id, viewer(c)))
}

func (s *Server) createComment(c *gin.Context) {
	var req domain.CreateCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "Comment content is required")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.state.posts[req.PostID]
	if p == nil {
		errorResponse(c, http.StatusNotFound, "Post not found")
		return
	}
	var parentID int64
	if req.ParentCommentID != nil {
		parent := s.state.comments[*req.ParentCommentID]
		if parent == nil || parent.PostID != p.ID {
			errorResponse(c, http.StatusBadRequest, "Parent comment not found")
			return
		}
		parentID = parent.ID
	}
	cm := s.state.addComment(s.state.users[viewer(c)], p, parentID, req.Content)
	dto := gin.H{
		"id":        cm.ID,
		"content":   cm.Content,
		"postId":    cm.PostID,
		"author":    s.authorDTO(cm.AuthorID),
		"createdAt": cm.CreatedAt.Format(localDateTime),
		"likeCount": 0,
		"replies":   []gin.H{},
	}
	if parentID != 0 {
		dto["parentCommentId"] = parentID
	}
	c.JSON(http.StatusOK, dto)
}

func (s *Server) deleteComment(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		errorResponse(c, http.StatusBadRequest, "invalid comment id")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cm := s.state.comments[id]
	if cm == nil {
		errorResponse(c, http.StatusNotFound, "Comment not found")
		return
	}
	if cm.AuthorID != viewer(c) {
		errorResponse(c, http.StatusForbidden, "You can only delete your own comments")
		return
	}
	s.state.removeComment(id)
	c.Status(http.StatusNoContent)
}

func (s *Server) toggleCommentLike(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		errorResponse(c, http.StatusBadRequest, "invalid comment id")
		return
	}
	uid := viewer(c)
	s.mu.Lock()
	defer s.mu.Unlock()
	cm := s.state.comments[id]
	if cm == nil {
		errorResponse(c, http.StatusNotFound, "Comment not found")
		return
	}
	if cm.likes[uid] {
		delete(cm.likes, uid)
		c.String(http.StatusOK, "Like removed")
		return
	}
	cm.likes[uid] = true
	c.String(http.StatusOK, "Comment liked")
}

// commentedPosts 사용자가 댓글 단 게시글
func (s *Server) commentedPosts(c *gin.Context) {
	id := viewer(c)
	s.mu.Lock()
	defer s.mu.Unlock()
	commented := make(map[int64]bool)
	for _, cm := range s.state.comments {
		if cm.AuthorID == id {
			commented[cm.PostID] = true
		}
	}
	posts := s.state.sortedPosts(func(p *post) bool { return commented[p.ID] })
	c.JSON(http.StatusOK, s.postDTOs(posts, id))
}
