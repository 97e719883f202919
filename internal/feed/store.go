package feed

import (
	"sync"

	"github.com/damoang/blok-client/internal/domain"
)

// Tab 게시글 컬렉션 이름
type Tab string

const (
	TabPosts    Tab = "posts"    // feed or own posts
	TabLikes    Tab = "likes"    // posts the user liked
	TabSaved    Tab = "saved"    // saved posts
	TabComments Tab = "comments" // posts the user commented on
	TabCurrent  Tab = "current"  // detail view, zero or one post
)

// Tabs lists every collection the store holds
var Tabs = []Tab{TabPosts, TabLikes, TabSaved, TabComments, TabCurrent}

// Store 탭별 게시글 컬렉션.
// Reads return copies; only the engine mutates.
type Store struct {
	mu   sync.RWMutex
	tabs map[Tab][]domain.Post
}

// NewStore 생성자
func NewStore() *Store {
	return &Store{tabs: make(map[Tab][]domain.Post)}
}

// Posts 탭 컬렉션 복사본
func (s *Store) Posts(tab Tab) []domain.Post {
	s.mu.RLock()
	defer s.mu.RUnlock()
	src := s.tabs[tab]
	out := make([]domain.Post, 0, len(src))
	for _, p := range src {
		out = append(out, p.Clone())
	}
	return out
}

// Find 첫 번째로 발견된 게시글 (current 우선)
func (s *Store) Find(id string) (domain.Post, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, tab := range []Tab{TabCurrent, TabPosts, TabLikes, TabSaved, TabComments} {
		for _, p := range s.tabs[tab] {
			if p.ID == id {
				return p.Clone(), true
			}
		}
	}
	return domain.Post{}, false
}

func (s *Store) set(tab Tab, posts []domain.Post) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tabs[tab] = posts
}

// snapshot holds the pre-mutation copy of a post per tab
type snapshot map[Tab]domain.Post

// update applies fn to every copy of id and returns the previous copies
func (s *Store) update(id string, fn func(p *domain.Post)) snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := snapshot{}
	for tab, posts := range s.tabs {
		for i := range posts {
			if posts[i].ID != id {
				continue
			}
			if _, seen := prev[tab]; !seen {
				prev[tab] = posts[i].Clone()
			}
			fn(&posts[i])
		}
	}
	return prev
}

// restore copies the fields selected by fn from the snapshot back into each tab
func (s *Store) restore(id string, prev snapshot, fn func(dst *domain.Post, old domain.Post)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for tab, old := range prev {
		posts := s.tabs[tab]
		for i := range posts {
			if posts[i].ID == id {
				fn(&posts[i], old)
			}
		}
	}
}

// include 탭 소속 조정: in 이면 교체 또는 앞에 추가, 아니면 제거
func (s *Store) include(tab Tab, p domain.Post, in bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	posts := s.tabs[tab]
	idx := -1
	for i := range posts {
		if posts[i].ID == p.ID {
			idx = i
			break
		}
	}
	switch {
	case in && idx >= 0:
		posts[idx] = p.Clone()
	case in:
		s.tabs[tab] = append([]domain.Post{p.Clone()}, posts...)
	case idx >= 0:
		s.tabs[tab] = append(posts[:idx:idx], posts[idx+1:]...)
	}
}

// prepend adds p at the head of tab
func (s *Store) prepend(tab Tab, p domain.Post) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tabs[tab] = append([]domain.Post{p.Clone()}, s.tabs[tab]...)
}

// remove drops id from every tab and returns how many copies were removed
func (s *Store) remove(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for tab, posts := range s.tabs {
		kept := posts[:0:0]
		for _, p := range posts {
			if p.ID == id {
				removed++
				continue
			}
			kept = append(kept, p)
		}
		s.tabs[tab] = kept
	}
	return removed
}
