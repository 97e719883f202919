package feed

import (
	"context"
	"io"
	"net/http"
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
	pathPosts        = "/api/posts"
	pathMyPosts      = "/api/posts/me"
	pathTopLiked     = "/api/posts/top-liked"
	pathLiked        = "/api/like/my-liked-posts"
	pathSaved        = "/api/saved-posts/my-saved-posts"
	pathCommented    = "/api/comments/user-posts"
	pathUploadImage  = "/api/posts/upload-image"
	pathUploadMedia  = "/api/posts/upload-media"
	eventSource      = "feed"
	actionLike       = "like"
	actionSave       = "save"
	uploadFieldName  = "file"
	reconcileApplied = "applied"
	reconcileStale   = "stale"
	reconcileFailed  = "failed"
)

func postPath(id string) string       { return "/api/posts/" + id }
func likePath(id string) string       { return "/api/like/post/" + id + "/toggle" }
func savePath(id string) string       { return "/api/saved-posts/post/" + id + "/toggle" }
func saveStatusPath(id string) string { return "/api/saved-posts/post/" + id + "/status" }
func deletePath(id string) string     { return "/api/posts/posts/delete/" + id }

// Authenticator reports whether a session token is present
type Authenticator interface {
	Authenticated() bool
}

// Options 엔진 설정
type Options struct {
	// DropStaleReconciliation discards a reconciliation fetch when a newer
	// toggle on the same post was started after it
	DropStaleReconciliation bool
}

// Engine 게시글 낙관적 변경 + 서버 재조정
type Engine struct {
	api   *apiclient.Client
	auth  Authenticator
	store *Store
	bus   *events.Bus
	opts  Options
	log   zerolog.Logger

	seqMu sync.Mutex
	seq   map[string]uint64

	retryMu sync.Mutex
	retry   func(context.Context) error
}

// NewEngine 생성자. bus 는 nil 가능
func NewEngine(api *apiclient.Client, auth Authenticator, bus *events.Bus, opts Options, log zerolog.Logger) *Engine {
	return &Engine{
		api:   api,
		auth:  auth,
		store: NewStore(),
		bus:   bus,
		opts:  opts,
		log:   log,
		seq:   make(map[string]uint64),
	}
}

// Store returns the engine's collections
func (e *Engine) Store() *Store {
	return e.store
}

// CurrentPosts 해당 탭 컬렉션 복사본
func (e *Engine) CurrentPosts(tab Tab) []domain.Post {
	return e.store.Posts(tab)
}

func (e *Engine) publish(payload events.Payload) {
	e.bus.Publish(eventSource, payload)
}

func (e *Engine) requireSession() *common.AppError {
	if e.auth == nil || !e.auth.Authenticated() {
		return common.NotPermitted()
	}
	return nil
}

func (e *Engine) nextSeq(id string) uint64 {
	e.seqMu.Lock()
	defer e.seqMu.Unlock()
	e.seq[id]++
	return e.seq[id]
}

func (e *Engine) latest(id string, seq uint64) bool {
	e.seqMu.Lock()
	defer e.seqMu.Unlock()
	return e.seq[id] == seq
}

// ---- loads ----

func (e *Engine) load(ctx context.Context, tab Tab, path string, personal bool) error {
	run := func(ctx context.Context) error {
		if personal {
			if appErr := e.requireSession(); appErr != nil {
				return appErr
			}
		}
		resp := e.api.Get(ctx, path)
		if appErr := common.FromResponse(resp); appErr != nil {
			e.log.Warn().Str("tab", string(tab)).Str("path", path).Err(appErr).Msg("load failed")
			return appErr
		}
		posts := mapper.MapPosts(mapper.DecodeRecords(resp.Body))
		if tab == TabSaved {
			for i := range posts {
				posts[i].IsSaved = true
			}
		}
		e.store.set(tab, posts)
		e.publish(events.CollectionLoaded{Tab: string(tab), Count: len(posts)})
		return nil
	}
	return e.tracked(ctx, run)
}

// tracked runs a load and remembers it for Retry when it fails
func (e *Engine) tracked(ctx context.Context, run func(context.Context) error) error {
	err := run(ctx)
	e.retryMu.Lock()
	if err != nil {
		e.retry = run
	} else {
		e.retry = nil
	}
	e.retryMu.Unlock()
	return err
}

// Retry 마지막 실패한 로드 재실행. 실패한 로드가 없으면 nil
func (e *Engine) Retry(ctx context.Context) error {
	e.retryMu.Lock()
	run := e.retry
	e.retryMu.Unlock()
	if run == nil {
		return nil
	}
	return e.tracked(ctx, run)
}

// LoadFeed 전체 피드 -> posts 탭
func (e *Engine) LoadFeed(ctx context.Context) error {
	return e.load(ctx, TabPosts, pathPosts, false)
}

// LoadMine 내 게시글 -> posts 탭
func (e *Engine) LoadMine(ctx context.Context) error {
	return e.load(ctx, TabPosts, pathMyPosts, true)
}

// LoadLiked 좋아요한 게시글 -> likes 탭
func (e *Engine) LoadLiked(ctx context.Context) error {
	return e.load(ctx, TabLikes, pathLiked, true)
}

// LoadSaved 저장한 게시글 -> saved 탭
func (e *Engine) LoadSaved(ctx context.Context) error {
	return e.load(ctx, TabSaved, pathSaved, true)
}

// LoadCommented 댓글 단 게시글 -> comments 탭
func (e *Engine) LoadCommented(ctx context.Context) error {
	return e.load(ctx, TabComments, pathCommented, true)
}

// LoadProfile 프로필 화면: 내 게시글, 좋아요, 댓글 단 게시글.
// Every load runs; the first failure is returned.
func (e *Engine) LoadProfile(ctx context.Context) error {
	var first error
	for _, load := range []func(context.Context) error{e.LoadMine, e.LoadLiked, e.LoadCommented} {
		if err := load(ctx); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// LoadPost 상세 게시글 -> current 탭
func (e *Engine) LoadPost(ctx context.Context, id string) (*domain.Post, error) {
	var out *domain.Post
	err := e.tracked(ctx, func(ctx context.Context) error {
		p, appErr := e.fetchPost(ctx, id)
		if appErr != nil {
			return appErr
		}
		if local, ok := e.store.Find(id); ok && !p.savedKnown {
			p.post.IsSaved = local.IsSaved
		}
		e.store.set(TabCurrent, []domain.Post{p.post})
		e.publish(events.CollectionLoaded{Tab: string(TabCurrent), Count: 1})
		out = &p.post
		return nil
	})
	return out, err
}

// LoadTopLiked 좋아요 상위 게시글. 탭에 저장하지 않음
func (e *Engine) LoadTopLiked(ctx context.Context) ([]domain.Post, error) {
	resp := e.api.Get(ctx, pathTopLiked)
	if appErr := common.FromResponse(resp); appErr != nil {
		return nil, appErr
	}
	return mapper.MapPosts(mapper.DecodeRecords(resp.Body)), nil
}

type fetched struct {
	post       domain.Post
	savedKnown bool // record carried a saved flag
}

func (e *Engine) fetchPost(ctx context.Context, id string) (fetched, *common.AppError) {
	resp := e.api.Get(ctx, postPath(id))
	if appErr := common.FromResponse(resp); appErr != nil {
		return fetched{}, appErr
	}
	if !resp.HasData() {
		return fetched{}, common.ClassifyResponse(http.StatusNotFound, "")
	}
	rec := mapper.DecodeRecord(resp.Body)
	post := mapper.MapPost(rec)
	if post.ID == "" {
		post.ID = id
	}
	return fetched{post: post, savedKnown: rec.HasBool(mapper.SavedFields...)}, nil
}

// ---- toggles ----

// ToggleLike 좋아요 토글.
// The local flip is applied to every tab at once; a failed request restores
// the previous (IsLiked, LikeCount) and a successful one is overwritten by the
// server copy of the post.
func (e *Engine) ToggleLike(ctx context.Context, id string) (*domain.Post, error) {
	if appErr := e.requireSession(); appErr != nil {
		return nil, appErr
	}

	prev := e.store.update(id, func(p *domain.Post) {
		if p.IsLiked {
			p.LikeCount = max(p.LikeCount-1, 0)
		} else {
			p.LikeCount++
		}
		p.IsLiked = !p.IsLiked
	})
	e.publishUpdated(id, actionLike, "optimistic")
	seq := e.nextSeq(id)

	resp := e.api.Patch(ctx, likePath(id), nil)
	if appErr := common.FromResponse(resp); appErr != nil {
		e.store.restore(id, prev, func(dst *domain.Post, old domain.Post) {
			dst.IsLiked = old.IsLiked
			dst.LikeCount = old.LikeCount
		})
		rollbacksTotal.WithLabelValues(actionLike).Inc()
		e.publishUpdated(id, actionLike, "rollback")
		e.log.Warn().Str("post_id", id).Err(appErr).Msg("like toggle failed, rolled back")
		return nil, appErr
	}

	f, appErr := e.fetchPost(ctx, id)
	if appErr != nil {
		reconciliationsTotal.WithLabelValues(actionLike, reconcileFailed).Inc()
		e.log.Warn().Str("post_id", id).Err(appErr).Msg("like reconciliation fetch failed, keeping local state")
		return e.found(id), nil
	}
	if e.opts.DropStaleReconciliation && !e.latest(id, seq) {
		reconciliationsTotal.WithLabelValues(actionLike, reconcileStale).Inc()
		e.log.Debug().Str("post_id", id).Uint64("seq", seq).Msg("stale like reconciliation dropped")
		return e.found(id), nil
	}

	canonical := e.overwrite(id, f)
	e.store.include(TabLikes, canonical, canonical.IsLiked)
	reconciliationsTotal.WithLabelValues(actionLike, reconcileApplied).Inc()
	e.publishUpdated(id, actionLike, "reconciled")
	return &canonical, nil
}

// ToggleSave 저장 토글. 카운터 없이 IsSaved 만 변경.
// The returned post is nil when no copy is held and the post fetch failed.
func (e *Engine) ToggleSave(ctx context.Context, id string) (*domain.Post, error) {
	if appErr := e.requireSession(); appErr != nil {
		return nil, appErr
	}

	prev := e.store.update(id, func(p *domain.Post) { p.IsSaved = !p.IsSaved })
	e.publishUpdated(id, actionSave, "optimistic")
	seq := e.nextSeq(id)

	resp := e.api.Patch(ctx, savePath(id), nil)
	if appErr := common.FromResponse(resp); appErr != nil {
		e.store.restore(id, prev, func(dst *domain.Post, old domain.Post) { dst.IsSaved = old.IsSaved })
		rollbacksTotal.WithLabelValues(actionSave).Inc()
		e.publishUpdated(id, actionSave, "rollback")
		e.log.Warn().Str("post_id", id).Err(appErr).Msg("save toggle failed, rolled back")
		return nil, appErr
	}

	saved, statusErr := e.IsSaved(ctx, id)
	f, fetchErr := e.fetchPost(ctx, id)
	if statusErr != nil && fetchErr != nil {
		reconciliationsTotal.WithLabelValues(actionSave, reconcileFailed).Inc()
		e.log.Warn().Str("post_id", id).Err(fetchErr).Msg("save reconciliation failed, keeping local state")
		return e.found(id), nil
	}
	if e.opts.DropStaleReconciliation && !e.latest(id, seq) {
		reconciliationsTotal.WithLabelValues(actionSave, reconcileStale).Inc()
		return e.found(id), nil
	}

	if fetchErr != nil {
		// status only: apply the flag to whatever copies are held
		e.store.update(id, func(p *domain.Post) { p.IsSaved = saved })
		local := e.found(id)
		if local != nil {
			e.store.include(TabSaved, *local, saved)
		}
		reconciliationsTotal.WithLabelValues(actionSave, reconcileApplied).Inc()
		e.publishUpdated(id, actionSave, "reconciled")
		return local, nil
	}
	if statusErr == nil {
		f.post.IsSaved = saved
		f.savedKnown = true
	}
	canonical := e.overwrite(id, f)
	e.store.include(TabSaved, canonical, canonical.IsSaved)
	reconciliationsTotal.WithLabelValues(actionSave, reconcileApplied).Inc()
	e.publishUpdated(id, actionSave, "reconciled")
	return &canonical, nil
}

// IsSaved 저장 여부 조회
func (e *Engine) IsSaved(ctx context.Context, id string) (bool, error) {
	if appErr := e.requireSession(); appErr != nil {
		return false, appErr
	}
	resp := e.api.Get(ctx, saveStatusPath(id))
	if appErr := common.FromResponse(resp); appErr != nil {
		return false, appErr
	}
	switch strings.TrimSpace(resp.Text()) {
	case "true":
		return true, nil
	case "false":
		return false, nil
	}
	var wrapped struct {
		Saved bool `json:"saved"`
	}
	if err := resp.Decode(&wrapped); err != nil {
		return false, common.ClassifyResponse(resp.Status, apiclient.ParseError)
	}
	return wrapped.Saved, nil
}

// overwrite replaces every copy of id with the server copy.
// A server copy without a saved flag keeps each local IsSaved.
func (e *Engine) overwrite(id string, f fetched) domain.Post {
	canonical := f.post
	if !f.savedKnown {
		if local, ok := e.store.Find(id); ok {
			canonical.IsSaved = local.IsSaved
		}
	}
	e.store.update(id, func(p *domain.Post) {
		isSaved := p.IsSaved
		*p = canonical.Clone()
		if !f.savedKnown {
			p.IsSaved = isSaved
		}
	})
	return canonical
}

func (e *Engine) found(id string) *domain.Post {
	if p, ok := e.store.Find(id); ok {
		return &p
	}
	return nil
}

func (e *Engine) publishUpdated(id, action, phase string) {
	e.publish(events.PostUpdated{PostID: id, Action: action, Phase: phase})
}

// ---- structural changes ----

// DeletePost 삭제 확인 후 모든 탭에서 제거
func (e *Engine) DeletePost(ctx context.Context, id string) error {
	if appErr := e.requireSession(); appErr != nil {
		return appErr
	}
	resp := e.api.Delete(ctx, deletePath(id))
	if appErr := common.FromResponse(resp); appErr != nil {
		return appErr
	}
	if resp.Status != http.StatusOK && resp.Status != http.StatusNoContent {
		return common.ClassifyResponse(resp.Status, resp.Text())
	}
	removed := e.store.remove(id)
	e.publish(events.PostRemoved{PostID: id, Copies: removed})
	e.log.Info().Str("post_id", id).Msg("post deleted")
	return nil
}

// CreatePost 생성 확인 후 posts 탭 앞에 추가.
// The draft is validated locally first; an invalid draft sends nothing.
func (e *Engine) CreatePost(ctx context.Context, req domain.CreatePostRequest) (*domain.Post, error) {
	if appErr := e.requireSession(); appErr != nil {
		return nil, appErr
	}
	req, appErr := common.ValidatePostDraft(req)
	if appErr != nil {
		return nil, appErr
	}
	resp := e.api.Post(ctx, pathPosts, req)
	if appErr := common.FromResponse(resp); appErr != nil {
		return nil, appErr
	}
	if !resp.HasData() {
		return nil, common.ClassifyResponse(resp.Status, apiclient.ParseError)
	}
	post := mapper.MapPost(mapper.DecodeRecord(resp.Body))
	if post.ID == "" {
		return nil, common.ClassifyResponse(resp.Status, apiclient.ParseError)
	}
	e.store.prepend(TabPosts, post)
	e.publish(events.PostCreated{PostID: post.ID})
	return &post, nil
}

// UploadImage 게시글 이미지 업로드, URL 반환
func (e *Engine) UploadImage(ctx context.Context, filename string, content io.Reader) (string, error) {
	return e.upload(ctx, pathUploadImage, filename, content)
}

// UploadMedia 게시글 미디어 업로드, URL 반환
func (e *Engine) UploadMedia(ctx context.Context, filename string, content io.Reader) (string, error) {
	return e.upload(ctx, pathUploadMedia, filename, content)
}

func (e *Engine) upload(ctx context.Context, path, filename string, content io.Reader) (string, error) {
	if appErr := e.requireSession(); appErr != nil {
		return "", appErr
	}
	resp := e.api.UploadFile(ctx, path, uploadFieldName, filename, content)
	if appErr := common.FromResponse(resp); appErr != nil {
		return "", appErr
	}
	url := uploadedURL(resp)
	if url == "" {
		return "", common.ClassifyResponse(resp.Status, apiclient.ParseError)
	}
	return url, nil
}

// uploadedURL reads a URL from a text body, a JSON string or a {url} object
func uploadedURL(resp *apiclient.Response) string {
	if resp.IsJSON {
		var s string
		if err := resp.Decode(&s); err == nil {
			return s
		}
		return mapper.DecodeRecord(resp.Body).String("url", "imageUrl", "mediaUrl")
	}
	return strings.TrimSpace(resp.Text())
}
