package fakeapi

import "strconv"

// LikeAs 다른 클라이언트의 좋아요를 흉내냄 (동시 변경 시뮬레이션)
func (s *Server) LikeAs(username string, postID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.state.userByName(username)
	p := s.state.posts[postID]
	if u == nil || p == nil {
		return false
	}
	p.likes[u.ID] = true
	return true
}

// LikeCount 게시글 좋아요 수
func (s *Server) LikeCount(postID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p := s.state.posts[postID]; p != nil {
		return len(p.likes)
	}
	return -1
}

// Views 게시글 조회수
func (s *Server) Views(postID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p := s.state.posts[postID]; p != nil {
		return p.Views
	}
	return -1
}

// HasPost 게시글 존재 여부
func (s *Server) HasPost(postID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.posts[postID] != nil
}

// HasComment 댓글 존재 여부
func (s *Server) HasComment(commentID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.comments[commentID] != nil
}

// AddUsers 페이지네이션 테스트용 사용자 일괄 추가
func (s *Server) AddUsers(prefix string, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := 0; i < n; i++ {
		name := prefix + strconv.Itoa(i)
		s.state.addUser(name, name+"@blok.dev", SeedUserPassword, "USER")
	}
}

