package comments

import (
	"fmt"

	"github.com/damoang/blok-client/internal/common"
	"github.com/damoang/blok-client/internal/domain"
)

type node struct {
	comment  domain.Comment // Replies always nil; children holds the tree
	children []string
}

// arena 댓글 트리: id -> node, 루트 id 순서 유지
type arena struct {
	nodes map[string]*node
	roots []string
}

func newArena() *arena {
	return &arena{nodes: make(map[string]*node)}
}

// buildArena flattens nested replies and links flat entries by parent id.
// Entries whose parent is unknown, or whose parent chain loops, become roots.
func buildArena(list []domain.Comment) *arena {
	a := newArena()
	var order []string
	var collect func(c domain.Comment, parent string)
	collect = func(c domain.Comment, parent string) {
		if c.ID == "" {
			return
		}
		if _, dup := a.nodes[c.ID]; dup {
			return
		}
		if c.ParentCommentID == "" {
			c.ParentCommentID = parent
		}
		replies := c.Replies
		c.Replies = nil
		a.nodes[c.ID] = &node{comment: c}
		order = append(order, c.ID)
		for _, r := range replies {
			collect(r, c.ID)
		}
	}
	for _, c := range list {
		collect(c, "")
	}

	for _, id := range order {
		n := a.nodes[id]
		parent := n.comment.ParentCommentID
		if parent == "" || a.nodes[parent] == nil || a.loops(id, parent) {
			n.comment.ParentCommentID = ""
			a.roots = append(a.roots, id)
			continue
		}
		p := a.nodes[parent]
		p.children = append(p.children, id)
	}
	return a
}

// loops reports whether walking up from parent reaches id
func (a *arena) loops(id, parent string) bool {
	seen := map[string]bool{}
	for cur := parent; cur != ""; {
		if cur == id || seen[cur] {
			return true
		}
		seen[cur] = true
		n := a.nodes[cur]
		if n == nil {
			return false
		}
		cur = n.comment.ParentCommentID
	}
	return false
}

// insert 새 댓글 추가. 부모가 없으면 ErrCommentNotFound
func (a *arena) insert(c domain.Comment) error {
	if c.ID == "" {
		return fmt.Errorf("insert comment: %w", common.ErrInvalidInput)
	}
	if _, dup := a.nodes[c.ID]; dup {
		return fmt.Errorf("insert comment %s: duplicate id: %w", c.ID, common.ErrInvalidInput)
	}
	if c.ParentCommentID != "" {
		p := a.nodes[c.ParentCommentID]
		if p == nil {
			return fmt.Errorf("insert reply to %s: %w", c.ParentCommentID, common.ErrCommentNotFound)
		}
		p.children = append(p.children, c.ID)
	} else {
		a.roots = append(a.roots, c.ID)
	}
	c.Replies = nil
	a.nodes[c.ID] = &node{comment: c}
	return nil
}

// remove drops id and its subtree; returns the number of removed comments
func (a *arena) remove(id string) int {
	n := a.nodes[id]
	if n == nil {
		return 0
	}
	if parent := n.comment.ParentCommentID; parent != "" {
		if p := a.nodes[parent]; p != nil {
			p.children = without(p.children, id)
		}
	} else {
		a.roots = without(a.roots, id)
	}
	return a.drop(id)
}

func (a *arena) drop(id string) int {
	n := a.nodes[id]
	if n == nil {
		return 0
	}
	removed := 1
	for _, child := range n.children {
		removed += a.drop(child)
	}
	delete(a.nodes, id)
	return removed
}

func without(ids []string, id string) []string {
	out := ids[:0:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

// tree materialises the nested view
func (a *arena) tree() []domain.Comment {
	return a.materialise(a.roots)
}

func (a *arena) materialise(ids []string) []domain.Comment {
	out := make([]domain.Comment, 0, len(ids))
	for _, id := range ids {
		n := a.nodes[id]
		if n == nil {
			continue
		}
		c := n.comment
		c.Replies = a.materialise(n.children)
		out = append(out, c)
	}
	return out
}

// depth of id, roots are 0
func (a *arena) depth(id string) int {
	d := 0
	for n := a.nodes[id]; n != nil && n.comment.ParentCommentID != ""; n = a.nodes[n.comment.ParentCommentID] {
		d++
	}
	return d
}
