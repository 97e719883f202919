package fakeapi

import (
	"sort"

	"github.com/gin-gonic/gin"
)

func (s *Server) authorDTO(id int64) gin.H {
	u := s.state.users[id]
	if u == nil {
		return gin.H{"id": id, "username": ""}
	}
	return gin.H{"id": u.ID, "username": u.Username, "profileImgUrl": u.ProfileImgURL}
}

// postDTO PostResponseDto. saved 상태는 포함하지 않음 (status 엔드포인트 전용)
func (s *Server) postDTO(p *post, viewerID int64) gin.H {
	tags := p.Tags
	if tags == nil {
		tags = []string{}
	}
	return gin.H{
		"id":                 p.ID,
		"title":              p.Title,
		"slug":               p.Slug,
		"summary":            p.Summary,
		"content":            p.Content,
		"coverImageUrl":      p.CoverImageURL,
		"published":          p.Published,
		"viewsCount":         p.Views,
		"createdAt":          p.CreatedAt.Format(localDateTime),
		"updatedAt":          p.UpdatedAt.Format(localDateTime),
		"author":             s.authorDTO(p.AuthorID),
		"categoryName":       s.state.categoryName(p.CategoryID),
		"tagNames":           tags,
		"likeCount":          len(p.likes),
		"commentCount":       s.state.commentCount(p.ID),
		"likedByCurrentUser": viewerID != 0 && p.likes[viewerID],
	}
}

func (s *Server) postDTOs(posts []*post, viewerID int64) []gin.H {
	out := make([]gin.H, 0, len(posts))
	for _, p := range posts {
		out = append(out, s.postDTO(p, viewerID))
	}
	return out
}

// commentTree 게시글의 댓글 트리 (작성순)
func (s *Server) commentTree(postID, viewerID int64) []gin.H {
	children := make(map[int64][]*comment)
	for _, c := range s.state.comments {
		if c.PostID == postID {
			children[c.ParentID] = append(children[c.ParentID], c)
		}
	}
	for _, list := range children {
		sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	}

	var build func(parentID int64) []gin.H
	build = func(parentID int64) []gin.H {
		out := make([]gin.H, 0, len(children[parentID]))
		for _, c := range children[parentID] {
			dto := gin.H{
				"id":                 c.ID,
				"content":            c.Content,
				"postId":             c.PostID,
				"author":             s.authorDTO(c.AuthorID),
				"createdAt":          c.CreatedAt.Format(localDateTime),
				"likeCount":          len(c.likes),
				"likedByCurrentUser": viewerID != 0 && c.likes[viewerID],
				"replies":            build(c.ID),
			}
			if c.ParentID != 0 {
				dto["parentCommentId"] = c.ParentID
			}
			out = append(out, dto)
		}
		return out
	}
	return build(0)
}

func (s *Server) profileDTO(u *user) gin.H {
	posts, likes := 0, 0
	for _, p := range s.state.posts {
		if p.AuthorID == u.ID {
			posts++
			likes += len(p.likes)
		}
	}
	return gin.H{
		"id":            u.ID,
		"username":      u.Username,
		"email":         u.Email,
		"profileImgUrl": u.ProfileImgURL,
		"bio":           u.Bio,
		"isOnline":      u.Online,
		"createdAt":     u.CreatedAt.Format(localDateTime),
		"updatedAt":     u.CreatedAt.Format(localDateTime),
		"postsCount":    posts,
		"likesReceived": likes,
	}
}

func adminUserDTO(u *user) gin.H {
	return gin.H{
		"id":        u.ID,
		"username":  u.Username,
		"email":     u.Email,
		"roleName":  u.Role,
		"isOnline":  u.Online,
		"createdAt": u.CreatedAt.Format(localDateTime),
	}
}

func (s *Server) adminPostDTO(p *post) gin.H {
	author := ""
	if u := s.state.users[p.AuthorID]; u != nil {
		author = u.Username
	}
	return gin.H{
		"id":             p.ID,
		"title":          p.Title,
		"slug":           p.Slug,
		"authorUsername": author,
		"published":      p.Published,
		"createdAt":      p.CreatedAt.Format(localDateTime),
	}
}
