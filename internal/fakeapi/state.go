package fakeapi

import (
	"sort"
	"strings"
	"time"
)

// localDateTime Spring LocalDateTime 직렬화 형식
const localDateTime = "2006-01-02T15:04:05.000000"

type user struct {
	ID            int64
	Username      string
	Email         string
	Password      string
	Bio           string
	ProfileImgURL string
	Role          string
	Online        bool
	CreatedAt     time.Time
}

type post struct {
	ID            int64
	Title         string
	Slug          string
	Summary       string
	Content       string
	CoverImageURL string
	AuthorID      int64
	CategoryID    int64
	Tags          []string
	Views         int
	Published     bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
	likes         map[int64]bool
	saves         map[int64]bool
	viewers       map[int64]bool
}

type comment struct {
	ID        int64
	PostID    int64
	ParentID  int64
	AuthorID  int64
	Content   string
	CreatedAt time.Time
	likes     map[int64]bool
}

type category struct {
	ID          int64
	Name        string
	Slug        string
	Description string
}

type tag struct {
	ID   int64
	Name string
	Slug string
}

// state 인메모리 백엔드 데이터. Server.mu 로 보호
type state struct {
	users      map[int64]*user
	posts      map[int64]*post
	comments   map[int64]*comment
	categories []*category
	tags       []*tag
	seq        map[string]int64
	clock      time.Time
}

func newState() *state {
	return &state{
		users:    make(map[int64]*user),
		posts:    make(map[int64]*post),
		comments: make(map[int64]*comment),
		seq:      make(map[string]int64),
		clock:    time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC),
	}
}

// id 테이블별 auto increment
func (s *state) id(table string) int64 {
	s.seq[table]++
	return s.seq[table]
}

// now 단조 증가 시각 (정렬 안정성)
func (s *state) now() time.Time {
	s.clock = s.clock.Add(time.Minute)
	return s.clock
}

func (s *state) addUser(username, email, password, role string) *user {
	u := &user{
		ID:        s.id("users"),
		Username:  username,
		Email:     email,
		Password:  password,
		Role:      role,
		CreatedAt: s.now(),
	}
	s.users[u.ID] = u
	return u
}

func (s *state) userByName(username string) *user {
	for _, u := range s.users {
		if u.Username == username {
			return u
		}
	}
	return nil
}

func (s *state) userByEmail(email string) *user {
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return u
		}
	}
	return nil
}

func (s *state) addCategory(name, description string) *category {
	c := &category{ID: s.id("categories"), Name: name, Slug: slugify(name), Description: description}
	s.categories = append(s.categories, c)
	return c
}

func (s *state) ensureTag(name string) {
	for _, t := range s.tags {
		if t.Name == name {
			return
		}
	}
	s.tags = append(s.tags, &tag{ID: s.id("tags"), Name: name, Slug: slugify(name)})
}

func (s *state) addPost(author *user, cat *category, title, content string, tags ...string) *post {
	now := s.now()
	p := &post{
		ID:        s.id("posts"),
		Title:     title,
		Slug:      slugify(title),
		Summary:   summarize(content),
		Content:   content,
		AuthorID:  author.ID,
		Tags:      tags,
		Published: true,
		CreatedAt: now,
		UpdatedAt: now,
		likes:     make(map[int64]bool),
		saves:     make(map[int64]bool),
		viewers:   make(map[int64]bool),
	}
	if cat != nil {
		p.CategoryID = cat.ID
	}
	for _, t := range tags {
		s.ensureTag(t)
	}
	s.posts[p.ID] = p
	return p
}

func (s *state) addComment(author *user, p *post, parentID int64, content string) *comment {
	c := &comment{
		ID:        s.id("comments"),
		PostID:    p.ID,
		ParentID:  parentID,
		AuthorID:  author.ID,
		Content:   content,
		CreatedAt: s.now(),
		likes:     make(map[int64]bool),
	}
	s.comments[c.ID] = c
	return c
}

func (s *state) removePost(id int64) {
	delete(s.posts, id)
	for cid, c := range s.comments {
		if c.PostID == id {
			delete(s.comments, cid)
		}
	}
}

// removeComment 댓글과 하위 답글 삭제
func (s *state) removeComment(id int64) {
	delete(s.comments, id)
	for cid, c := range s.comments {
		if c.ParentID == id {
			s.removeComment(cid)
		}
	}
}

func (s *state) removeUser(id int64) {
	delete(s.users, id)
	for pid, p := range s.posts {
		if p.AuthorID == id {
			s.removePost(pid)
			continue
		}
		delete(p.likes, id)
		delete(p.saves, id)
	}
	for cid, c := range s.comments {
		if c.AuthorID == id {
			s.removeComment(cid)
		}
	}
}

func (s *state) commentCount(postID int64) int {
	n := 0
	for _, c := range s.comments {
		if c.PostID == postID {
			n++
		}
	}
	return n
}

// sortedPosts 최신순 게시글 목록
func (s *state) sortedPosts(keep func(*post) bool) []*post {
	out := make([]*post, 0, len(s.posts))
	for _, p := range s.posts {
		if keep == nil || keep(p) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func (s *state) categoryName(id int64) string {
	for _, c := range s.categories {
		if c.ID == id {
			return c.Name
		}
	}
	return ""
}

func slugify(s string) string {
	fields := strings.Fields(strings.ToLower(s))
	return strings.Join(fields, "-")
}

func summarize(content string) string {
	r := []rune(content)
	if len(r) <= 120 {
		return content
	}
	return string(r[:120]) + "..."
}

// 시드 데이터 ID
const (
	SeedAdminID  int64 = 1
	SeedAyseID   int64 = 2
	SeedMehmetID int64 = 3

	// SeedPostChannels is liked by mehmet and admin and has a comment tree
	SeedPostChannels int64 = 1
	// SeedPostPagination is liked by ayse
	SeedPostPagination int64 = 2
	// SeedPostRelease is saved by ayse
	SeedPostRelease int64 = 3

	SeedCommentRoot   int64 = 1
	SeedCommentReply  int64 = 2 // reply to SeedCommentRoot, liked by mehmet
	SeedCommentPinned int64 = 3
)

// 시드 계정 비밀번호
const (
	SeedAdminPassword = "admin123"
	SeedUserPassword  = "secret"
)

// seed 기본 데이터: admin, 일반 사용자 2명, 게시글 3개, 댓글 트리
func (s *state) seed() {
	admin := s.addUser("admin", "admin@blok.dev", SeedAdminPassword, "ADMIN")
	ayse := s.addUser("ayse", "ayse@blok.dev", SeedUserPassword, "USER")
	mehmet := s.addUser("mehmet", "mehmet@blok.dev", SeedUserPassword, "USER")

	golang := s.addCategory("Go", "Go programming")
	web := s.addCategory("Web", "Frontend and APIs")

	p1 := s.addPost(ayse, golang, "Channels in practice", "Buffered and unbuffered channels compared.", "go", "concurrency")
	p2 := s.addPost(mehmet, web, "REST pagination", "Zero-based pages and first/last flags.", "api")
	p3 := s.addPost(admin, golang, "Release notes", "What changed this week.", "news")

	p1.likes[mehmet.ID] = true
	p1.likes[admin.ID] = true
	p2.likes[ayse.ID] = true
	p3.saves[ayse.ID] = true

	root := s.addComment(mehmet, p1, 0, "Great write-up")
	reply := s.addComment(ayse, p1, root.ID, "Thanks!")
	reply.likes[mehmet.ID] = true
	s.addComment(admin, p1, 0, "Pinned")
	s.addComment(ayse, p2, 0, "What about cursors?")
}
