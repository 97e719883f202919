// Package mapper converts loosely shaped API records into view-model types.
// Every field with alternate spellings is resolved through an explicit
// fallback table; the first entry present wins.
package mapper

import (
	"github.com/damoang/blok-client/internal/domain"
)

// 필드별 우선순위 테이블
var (
	CoverFields        = []string{"coverImageUrl", "coverImageURL", "coverImage"}
	AvatarFields       = []string{"profileImgUrl", "profileImgURL", "avatarUrl"}
	LikedFields        = []string{"likedByCurrentUser", "isLiked", "liked"}
	SavedFields        = []string{"savedByCurrentUser", "isSaved", "saved"}
	CategoryNameFields = []string{"categoryName", "category.name", "category"}
	CategoryIDFields   = []string{"categoryId", "category.id"}
	TagFields          = []string{"tagNames", "tags"}
	LikeCountFields    = []string{"likeCount", "likesCount"}
	CommentCountFields = []string{"commentCount", "commentsCount"}
	ViewsCountFields   = []string{"viewsCount", "viewCount"}
	ParentFields       = []string{"parentCommentId", "parentId"}
	RoleFields         = []string{"roleName", "role.name", "role"}
	PostIDFields       = []string{"postId", "post.id"}
	PublishedFields    = []string{"published", "isPublished"}
)

// MapAuthor 작성자 매핑
func MapAuthor(rec Record) domain.Author {
	return domain.Author{
		ID:            rec.ID("id"),
		Username:      rec.String("username"),
		ProfileImgURL: rec.String(AvatarFields...),
	}
}

// MapCategory 카테고리 매핑
func MapCategory(rec Record) domain.Category {
	return domain.Category{
		ID:          rec.Int64("id"),
		Name:        rec.String("name"),
		Slug:        rec.String("slug"),
		Description: rec.String("description"),
	}
}

// MapTag 태그 매핑
func MapTag(rec Record) domain.Tag {
	return domain.Tag{ID: rec.Int64("id"), Name: rec.String("name")}
}

// MapTags 태그 목록. tagNames 는 인덱스를 ID 로 사용
func MapTags(rec Record) []domain.Tag {
	for _, key := range TagFields {
		if objs := rec.Children(key); len(objs) > 0 {
			tags := make([]domain.Tag, 0, len(objs))
			for _, o := range objs {
				tags = append(tags, MapTag(o))
			}
			return tags
		}
		if names, ok := rec.Strings(key); ok {
			tags := make([]domain.Tag, 0, len(names))
			for i, name := range names {
				tags = append(tags, domain.Tag{ID: int64(i), Name: name})
			}
			return tags
		}
	}
	return []domain.Tag{}
}

// MapPost 게시글 매핑
func MapPost(rec Record) domain.Post {
	p := domain.Post{
		ID:            rec.ID("id"),
		Title:         rec.String("title"),
		Slug:          rec.String("slug"),
		Summary:       rec.String("summary"),
		Content:       rec.String("content"),
		CoverImageURL: rec.String(CoverFields...),
		Category: domain.Category{
			ID:   rec.Int64(CategoryIDFields...),
			Name: rec.String(CategoryNameFields...),
		},
		Tags:         MapTags(rec),
		LikeCount:    rec.Count(LikeCountFields...),
		CommentCount: rec.Count(CommentCountFields...),
		ViewsCount:   rec.Count(ViewsCountFields...),
		IsLiked:      rec.Bool(LikedFields...),
		IsSaved:      rec.Bool(SavedFields...),
		CreatedAt:    rec.Time("createdAt"),
		UpdatedAt:    rec.Time("updatedAt"),
	}
	if author := rec.Child("author"); author != nil {
		p.Author = MapAuthor(author)
	} else {
		p.Author = domain.Author{ID: rec.ID("authorId"), Username: rec.String("authorUsername")}
	}
	return p
}

// MapPosts 게시글 목록 매핑
func MapPosts(recs []Record) []domain.Post {
	posts := make([]domain.Post, 0, len(recs))
	for _, rec := range recs {
		posts = append(posts, MapPost(rec))
	}
	return posts
}

// MapComment 댓글 매핑 (replies 재귀).
// postID is used when the record itself does not carry one.
func MapComment(rec Record, postID string) domain.Comment {
	c := domain.Comment{
		ID:              rec.ID("id"),
		Content:         rec.String("content"),
		Author:          MapAuthor(rec.Child("author")),
		PostID:          rec.ID(PostIDFields...),
		ParentCommentID: rec.ID(ParentFields...),
		CreatedAt:       rec.Time("createdAt"),
		LikeCount:       rec.Count(LikeCountFields...),
		IsLiked:         rec.Bool(LikedFields...),
	}
	if c.PostID == "" {
		c.PostID = postID
	}
	replies := rec.Children("replies")
	c.Replies = make([]domain.Comment, 0, len(replies))
	for _, r := range replies {
		reply := MapComment(r, c.PostID)
		if reply.ParentCommentID == "" {
			reply.ParentCommentID = c.ID
		}
		c.Replies = append(c.Replies, reply)
	}
	return c
}

// MapComments 댓글 목록 매핑
func MapComments(recs []Record, postID string) []domain.Comment {
	comments := make([]domain.Comment, 0, len(recs))
	for _, rec := range recs {
		comments = append(comments, MapComment(rec, postID))
	}
	return comments
}

// MapUser 로그인 사용자 프로필 매핑
func MapUser(rec Record) domain.User {
	return domain.User{
		ID:            rec.ID("id"),
		Username:      rec.String("username"),
		Email:         rec.String("email"),
		Bio:           rec.String("bio"),
		ProfileImgURL: rec.String(AvatarFields...),
		Role:          domain.ParseRole(rec.String(RoleFields...)),
	}
}

// MapAdminUser 관리자 사용자 목록 행
func MapAdminUser(rec Record) domain.AdminUser {
	return domain.AdminUser{
		ID:        rec.Int64("id"),
		Username:  rec.String("username"),
		Email:     rec.String("email"),
		Role:      domain.ParseRole(rec.String(RoleFields...)),
		IsOnline:  rec.Bool("isOnline", "online"),
		CreatedAt: rec.Time("createdAt"),
	}
}

// MapAdminPost 관리자 게시글 목록 행
func MapAdminPost(rec Record) domain.AdminPost {
	author := rec.String("authorUsername", "author.username")
	return domain.AdminPost{
		ID:             rec.Int64("id"),
		Title:          rec.String("title"),
		Slug:           rec.String("slug"),
		AuthorUsername: author,
		Published:      rec.Bool(PublishedFields...),
		CreatedAt:      rec.Time("createdAt"),
	}
}

// MapPage Spring 페이지 응답 매핑.
// Metadata is read from the top level first, then from a nested "page" object.
// Missing first/last flags are derived from number and totalPages.
func MapPage[T any](rec Record, item func(Record) T) domain.PageResult[T] {
	content := rec.Children("content")
	out := domain.PageResult[T]{
		Content:       make([]T, 0, len(content)),
		Number:        rec.Int("number", "page.number"),
		Size:          rec.Int("size", "page.size"),
		TotalElements: rec.Int64("totalElements", "page.totalElements"),
		TotalPages:    rec.Int("totalPages", "page.totalPages"),
	}
	for _, c := range content {
		out.Content = append(out.Content, item(c))
	}

	if rec.HasBool("first") {
		out.First = rec.Bool("first")
	} else {
		out.First = out.Number == 0
	}
	if rec.HasBool("last") {
		out.Last = rec.Bool("last")
	} else {
		out.Last = out.TotalPages == 0 || out.Number >= out.TotalPages-1
	}
	if rec.HasBool("empty") {
		out.Empty = rec.Bool("empty")
	} else {
		out.Empty = len(out.Content) == 0
	}
	return out
}
