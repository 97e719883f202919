package domain

import "time"

// Comment is the view-model of a comment; Replies nest recursively
type Comment struct {
	ID              string    `json:"id"`
	Content         string    `json:"content"`
	Author          Author    `json:"author"`
	PostID          string    `json:"postId"`
	ParentCommentID string    `json:"parentCommentId,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
	LikeCount       int       `json:"likeCount"`
	IsLiked         bool      `json:"isLiked"`
	Replies         []Comment `json:"replies"`
}

// CreateCommentRequest is the body of POST /api/comments
type CreateCommentRequest struct {
	PostID          int64  `json:"postId" validate:"required"`
	Content         string `json:"content" binding:"notblank" validate:"notblank"`
	ParentCommentID *int64 `json:"parentCommentId,omitempty"`
}
