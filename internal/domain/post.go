package domain

import "time"

// Author is the public identity attached to posts and comments
type Author struct {
	ID            string `json:"id"`
	Username      string `json:"username"`
	ProfileImgURL string `json:"profileImgUrl,omitempty"`
}

// Category a post belongs to
type Category struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Slug        string `json:"slug,omitempty"`
	Description string `json:"description,omitempty"`
}

// Tag attached to a post
type Tag struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Post is the view-model of a feed entry.
// IsLiked and IsSaved are only meaningful for an authenticated caller.
type Post struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Slug          string    `json:"slug,omitempty"`
	Summary       string    `json:"summary,omitempty"`
	Content       string    `json:"content"`
	CoverImageURL string    `json:"coverImageUrl,omitempty"`
	Author        Author    `json:"author"`
	Category      Category  `json:"category"`
	Tags          []Tag     `json:"tags"`
	LikeCount     int       `json:"likeCount"`
	CommentCount  int       `json:"commentCount"`
	ViewsCount    int       `json:"viewsCount"`
	IsLiked       bool      `json:"isLiked"`
	IsSaved       bool      `json:"isSaved"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// TagNames returns the tag names in order
func (p Post) TagNames() []string {
	names := make([]string, 0, len(p.Tags))
	for _, t := range p.Tags {
		names = append(names, t.Name)
	}
	return names
}

// Clone returns a copy that shares no slices with p
func (p Post) Clone() Post {
	out := p
	if p.Tags != nil {
		out.Tags = append([]Tag(nil), p.Tags...)
	}
	return out
}

// ToggleResponse is the body of like/save toggle endpoints
type ToggleResponse struct {
	PostID  int64  `json:"postId"`
	Liked   bool   `json:"liked"`
	Message string `json:"message"`
}

// CreatePostRequest is the body of POST /api/posts.
// TagNames are plain names; the server creates missing tags.
type CreatePostRequest struct {
	Title         string   `json:"title" binding:"notblank" validate:"required,max=100"`
	Content       string   `json:"content" binding:"notblank" validate:"required,max=1000"`
	Summary       string   `json:"summary,omitempty"`
	CoverImageURL string   `json:"coverImageUrl,omitempty" validate:"omitempty,coverurl"`
	TagNames      []string `json:"tagNames" validate:"max=10"`
}

// CreateCategoryRequest is the body of POST /api/categories
type CreateCategoryRequest struct {
	Name        string `json:"name" binding:"notblank" validate:"notblank,max=50"`
	Description string `json:"description,omitempty" validate:"max=255"`
}

// PostViewsRequest is the body of POST /api/posts/views
type PostViewsRequest struct {
	PostIDs []int64 `json:"postIds"`
}
