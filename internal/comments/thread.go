package comments

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/damoang/blok-client/internal/common"
	"github.com/damoang/blok-client/internal/domain"
	"github.com/damoang/blok-client/internal/events"
	"github.com/damoang/blok-client/internal/mapper"
	"github.com/damoang/blok-client/pkg/apiclient"
)

const (
	pathComments = "/api/comments"
	eventSource  = "comments"
)

func listPath(postID string) string { return "/api/comments/post/" + postID }
func likePath(id string) string     { return "/api/like/comment/" + id + "/toggle" }
func deletePath(id string) string   { return "/api/comments/delete/comment/" + id }

// Authenticator reports whether a session token is present
type Authenticator interface {
	Authenticated() bool
}

// Thread 게시글 하나의 댓글 트리
type Thread struct {
	mu     sync.RWMutex
	postID string
	tree   *arena
	loaded bool

	api  *apiclient.Client
	auth Authenticator
	bus  *events.Bus
	log  zerolog.Logger
}

// NewThread 생성자
func NewThread(api *apiclient.Client, auth Authenticator, bus *events.Bus, postID string, log zerolog.Logger) *Thread {
	return &Thread{
		postID: postID,
		tree:   newArena(),
		api:    api,
		auth:   auth,
		bus:    bus,
		log:    log.With().Str("post_id", postID).Logger(),
	}
}

// PostID returns the post this thread belongs to
func (t *Thread) PostID() string {
	return t.postID
}

// Loaded reports whether a Load has succeeded
func (t *Thread) Loaded() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.loaded
}

// Load 댓글 트리 조회. 실패 시 기존 트리 유지
func (t *Thread) Load(ctx context.Context) error {
	resp := t.api.Get(ctx, listPath(t.postID))
	if appErr := common.FromResponse(resp); appErr != nil {
		t.log.Warn().Err(appErr).Msg("comment load failed")
		return appErr
	}
	list := mapper.MapComments(mapper.DecodeRecords(resp.Body), t.postID)

	t.mu.Lock()
	t.tree = buildArena(list)
	t.loaded = true
	count := len(t.tree.nodes)
	t.mu.Unlock()

	t.publish("", "loaded", count)
	return nil
}

// Snapshot 중첩 댓글 트리 복사본
func (t *Thread) Snapshot() []domain.Comment {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.tree.tree()
}

// Get 댓글 조회 (replies 포함)
func (t *Thread) Get(id string) (domain.Comment, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	n := t.tree.nodes[id]
	if n == nil {
		return domain.Comment{}, false
	}
	c := n.comment
	c.Replies = t.tree.materialise(n.children)
	return c, true
}

// Len 전체 댓글 수 (답글 포함)
func (t *Thread) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.tree.nodes)
}

// Depth 댓글 깊이, 루트는 0. 없으면 -1
func (t *Thread) Depth(id string) int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.tree.nodes[id] == nil {
		return -1
	}
	return t.tree.depth(id)
}

func (t *Thread) requireSession() *common.AppError {
	if t.auth == nil || !t.auth.Authenticated() {
		return common.NotPermitted()
	}
	return nil
}

func (t *Thread) publish(commentID, phase string, count int) {
	t.bus.Publish(eventSource, events.CommentsUpdated{PostID: t.postID, CommentID: commentID, Phase: phase, Count: count})
}

// ToggleLike 댓글 좋아요 낙관적 토글.
// On success the whole thread is re-fetched; when that fetch fails the
// optimistic state stays.
func (t *Thread) ToggleLike(ctx context.Context, commentID string) (*domain.Comment, error) {
	if appErr := t.requireSession(); appErr != nil {
		return nil, appErr
	}

	t.mu.Lock()
	n := t.tree.nodes[commentID]
	if n == nil {
		t.mu.Unlock()
		return nil, fmt.Errorf("toggle like %s: %w", commentID, common.ErrCommentNotFound)
	}
	prevLiked, prevCount := n.comment.IsLiked, n.comment.LikeCount
	if prevLiked {
		n.comment.LikeCount = max(prevCount-1, 0)
	} else {
		n.comment.LikeCount = prevCount + 1
	}
	n.comment.IsLiked = !prevLiked
	t.mu.Unlock()
	t.publish(commentID, "optimistic", 1)

	resp := t.api.Patch(ctx, likePath(commentID), nil)
	if appErr := common.FromResponse(resp); appErr != nil {
		t.mu.Lock()
		// the node may have been replaced by a concurrent Load
		if cur := t.tree.nodes[commentID]; cur != nil {
			cur.comment.IsLiked, cur.comment.LikeCount = prevLiked, prevCount
		}
		t.mu.Unlock()
		t.publish(commentID, "rollback", 1)
		t.log.Warn().Str("comment_id", commentID).Err(appErr).Msg("comment like failed, rolled back")
		return nil, appErr
	}

	if err := t.Load(ctx); err != nil {
		t.log.Warn().Str("comment_id", commentID).Err(err).Msg("comment reconciliation failed, keeping local state")
	}
	c, ok := t.Get(commentID)
	if !ok {
		return nil, nil
	}
	return &c, nil
}

// Create 댓글/답글 작성. parentID 가 비어 있으면 루트 댓글
func (t *Thread) Create(ctx context.Context, content, parentID string) (*domain.Comment, error) {
	if appErr := t.requireSession(); appErr != nil {
		return nil, appErr
	}
	postID, err := strconv.ParseInt(t.postID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("create comment: post id %q: %w", t.postID, common.ErrInvalidInput)
	}
	req := domain.CreateCommentRequest{PostID: postID, Content: strings.TrimSpace(content)}
	if appErr := common.ValidateRequest(&req); appErr != nil {
		return nil, appErr
	}
	if parentID != "" {
		t.mu.RLock()
		known := t.tree.nodes[parentID] != nil
		t.mu.RUnlock()
		if !known {
			return nil, fmt.Errorf("reply to %s: %w", parentID, common.ErrCommentNotFound)
		}
		pid, err := strconv.ParseInt(parentID, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("reply to %q: %w", parentID, common.ErrInvalidInput)
		}
		req.ParentCommentID = &pid
	}

	resp := t.api.Post(ctx, pathComments, req)
	if appErr := common.FromResponse(resp); appErr != nil {
		return nil, appErr
	}
	if !resp.HasData() {
		return nil, common.ClassifyResponse(resp.Status, apiclient.ParseError)
	}
	created := mapper.MapComment(mapper.DecodeRecord(resp.Body), t.postID)
	if created.ParentCommentID == "" {
		created.ParentCommentID = parentID
	}

	t.mu.Lock()
	insertErr := t.tree.insert(created)
	t.mu.Unlock()
	if insertErr != nil {
		t.log.Warn().Err(insertErr).Str("comment_id", created.ID).Msg("created comment not inserted locally")
	}
	t.publish(created.ID, "created", 1)

	if err := t.Load(ctx); err != nil {
		t.log.Warn().Err(err).Msg("comment refresh after create failed")
	}
	return &created, nil
}

// Delete 삭제 확인 후 서브트리 제거 + 재조회
func (t *Thread) Delete(ctx context.Context, commentID string) error {
	if appErr := t.requireSession(); appErr != nil {
		return appErr
	}
	resp := t.api.Delete(ctx, deletePath(commentID))
	if appErr := common.FromResponse(resp); appErr != nil {
		return appErr
	}
	if resp.Status != http.StatusOK && resp.Status != http.StatusNoContent {
		return common.ClassifyResponse(resp.Status, resp.Text())
	}

	t.mu.Lock()
	removed := t.tree.remove(commentID)
	t.mu.Unlock()
	t.publish(commentID, "deleted", removed)

	if err := t.Load(ctx); err != nil {
		t.log.Warn().Err(err).Msg("comment refresh after delete failed")
	}
	return nil
}
