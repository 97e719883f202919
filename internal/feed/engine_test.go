package feed

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/damoang/blok-client/internal/common"
	"github.com/damoang/blok-client/internal/domain"
	"github.com/damoang/blok-client/internal/events"
	"github.com/damoang/blok-client/internal/fakeapi"
	"github.com/damoang/blok-client/pkg/apiclient"
)

// tokenAuth is a fixed session token
type tokenAuth string

func (t tokenAuth) Token() string       { return string(t) }
func (t tokenAuth) Authenticated() bool { return t != "" }

var (
	channels   = strconv.FormatInt(fakeapi.SeedPostChannels, 10)
	pagination = strconv.FormatInt(fakeapi.SeedPostPagination, 10)
	release    = strconv.FormatInt(fakeapi.SeedPostRelease, 10)
)

func setup(t *testing.T, username string, opts Options) (*fakeapi.Server, *Engine, *events.Bus) {
	t.Helper()
	srv, ts := fakeapi.Start(t)
	var auth tokenAuth
	if username != "" {
		auth = tokenAuth(srv.Token(username))
	}
	api := apiclient.New(apiclient.Config{BaseURL: ts.URL}, auth, zerolog.Nop())
	bus := events.NewBus(zerolog.Nop())
	return srv, NewEngine(api, auth, bus, opts, zerolog.Nop()), bus
}

func postByID(t *testing.T, posts []domain.Post, id string) domain.Post {
	t.Helper()
	for _, p := range posts {
		if p.ID == id {
			return p
		}
	}
	t.Fatalf("post %s not in collection", id)
	return domain.Post{}
}

func ids(posts []domain.Post) []string {
	out := make([]string, 0, len(posts))
	for _, p := range posts {
		out = append(out, p.ID)
	}
	return out
}

func TestEngine_LoadFeed(t *testing.T) {
	_, e, _ := setup(t, "ayse", Options{})

	require.NoError(t, e.LoadFeed(context.Background()))

	posts := e.CurrentPosts(TabPosts)
	assert.Equal(t, []string{release, pagination, channels}, ids(posts))
	p := postByID(t, posts, pagination)
	assert.True(t, p.IsLiked)
	assert.Equal(t, 1, p.LikeCount)
	assert.Equal(t, "mehmet", p.Author.Username)
	assert.Equal(t, "Web", p.Category.Name)
}

func TestEngine_ToggleLikeRequiresSession(t *testing.T) {
	srv, e, bus := setup(t, "", Options{})
	ctx := context.Background()
	require.NoError(t, e.LoadFeed(ctx))
	before := e.CurrentPosts(TabPosts)
	srv.ResetCalls()

	var published int
	events.On(bus, "test", func(string, events.PostUpdated) { published++ })

	post, err := e.ToggleLike(ctx, channels)
	assert.Nil(t, post)
	assert.ErrorIs(t, err, common.ErrNotPermitted)
	assert.Empty(t, srv.Calls("", ""))
	assert.Equal(t, before, e.CurrentPosts(TabPosts))
	assert.Zero(t, published)
}

func TestEngine_ToggleLikeReconcilesWithServer(t *testing.T) {
	srv, e, bus := setup(t, "ayse", Options{})
	ctx := context.Background()
	require.NoError(t, e.LoadFeed(ctx))
	srv.AddUsers("reader", 1)

	// another client likes the post while ours is in flight
	srv.SetHook(func(method, path string) {
		if method == http.MethodPatch && path == likePath(channels) {
			srv.LikeAs("reader0", fakeapi.SeedPostChannels)
		}
	})

	var phases []string
	var optimistic domain.Post
	events.On(bus, "test", func(_ string, ev events.PostUpdated) {
		phases = append(phases, ev.Phase)
		if ev.Phase == "optimistic" {
			optimistic, _ = e.Store().Find(channels)
		}
	})

	post, err := e.ToggleLike(ctx, channels)
	require.NoError(t, err)

	assert.True(t, optimistic.IsLiked)
	assert.Equal(t, 3, optimistic.LikeCount)

	// server is authority: 2 seeded + reader0 + ayse
	assert.True(t, post.IsLiked)
	assert.Equal(t, 4, post.LikeCount)
	assert.Equal(t, srv.LikeCount(fakeapi.SeedPostChannels), post.LikeCount)
	assert.Equal(t, 4, postByID(t, e.CurrentPosts(TabPosts), channels).LikeCount)
	assert.Equal(t, []string{"optimistic", "reconciled"}, phases)

	liked := e.CurrentPosts(TabLikes)
	require.NotEmpty(t, liked)
	assert.Equal(t, channels, liked[0].ID)
}

func TestEngine_UnlikeLeavesLikesTab(t *testing.T) {
	_, e, _ := setup(t, "ayse", Options{})
	ctx := context.Background()
	require.NoError(t, e.LoadFeed(ctx))
	require.NoError(t, e.LoadLiked(ctx))
	require.Equal(t, []string{pagination}, ids(e.CurrentPosts(TabLikes)))

	post, err := e.ToggleLike(ctx, pagination)
	require.NoError(t, err)
	assert.False(t, post.IsLiked)
	assert.Equal(t, 0, post.LikeCount)
	assert.Empty(t, e.CurrentPosts(TabLikes))
	assert.False(t, postByID(t, e.CurrentPosts(TabPosts), pagination).IsLiked)
}

func TestEngine_ToggleLikeRollback(t *testing.T) {
	tests := []struct {
		name     string
		fail     func(srv *fakeapi.Server)
		category common.Category
		message  string
		sentinel error
	}{
		{
			name:     "server error",
			fail:     func(srv *fakeapi.Server) { srv.FailNext(likePath(channels), http.StatusInternalServerError) },
			category: common.CategoryNetwork,
			message:  common.MsgServerError,
			sentinel: common.ErrServer,
		},
		{
			name: "client error keeps server message",
			fail: func(srv *fakeapi.Server) {
				srv.FailNextWith(likePath(channels), http.StatusBadRequest, "You cannot like this post")
			},
			category: common.CategoryError,
			message:  "You cannot like this post",
			sentinel: common.ErrInvalidInput,
		},
		{
			name:     "connection dropped",
			fail:     func(srv *fakeapi.Server) { srv.DropNext(likePath(channels)) },
			category: common.CategoryNetwork,
			message:  common.MsgConnection,
			sentinel: common.ErrNetwork,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, e, _ := setup(t, "ayse", Options{})
			ctx := context.Background()
			require.NoError(t, e.LoadFeed(ctx))
			require.NoError(t, e.LoadCommented(ctx))
			beforePosts := e.CurrentPosts(TabPosts)
			beforeCommented := e.CurrentPosts(TabComments)
			rollbacks := testutil.ToFloat64(rollbacksTotal.WithLabelValues(actionLike))
			tt.fail(srv)

			post, err := e.ToggleLike(ctx, channels)
			assert.Nil(t, post)
			require.Error(t, err)

			var appErr *common.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, tt.category, appErr.Category)
			assert.Equal(t, tt.message, appErr.Message)
			assert.ErrorIs(t, err, tt.sentinel)

			assert.Equal(t, beforePosts, e.CurrentPosts(TabPosts))
			assert.Equal(t, beforeCommented, e.CurrentPosts(TabComments))
			assert.Equal(t, rollbacks+1, testutil.ToFloat64(rollbacksTotal.WithLabelValues(actionLike)))
			assert.Empty(t, srv.Calls(http.MethodGet, postPath(channels)), "no reconciliation after failure")
		})
	}
}

func TestEngine_ReconcileFetchFailureKeepsOptimisticState(t *testing.T) {
	srv, e, _ := setup(t, "ayse", Options{})
	ctx := context.Background()
	require.NoError(t, e.LoadFeed(ctx))
	srv.FailNext(postPath(channels), http.StatusServiceUnavailable)

	post, err := e.ToggleLike(ctx, channels)
	require.NoError(t, err)
	assert.True(t, post.IsLiked)
	assert.Equal(t, 3, post.LikeCount)
	assert.Empty(t, e.CurrentPosts(TabLikes))
}

func TestEngine_ToggleLikeOnPostNotHeld(t *testing.T) {
	_, e, _ := setup(t, "ayse", Options{})

	post, err := e.ToggleLike(context.Background(), release)
	require.NoError(t, err)
	assert.True(t, post.IsLiked)
	assert.Equal(t, []string{release}, ids(e.CurrentPosts(TabLikes)))
	assert.Empty(t, e.CurrentPosts(TabPosts))
}

func TestEngine_ToggleLikeUpdatesCurrent(t *testing.T) {
	_, e, _ := setup(t, "mehmet", Options{})
	ctx := context.Background()
	_, err := e.LoadPost(ctx, channels)
	require.NoError(t, err)
	require.True(t, e.CurrentPosts(TabCurrent)[0].IsLiked)

	_, err = e.ToggleLike(ctx, channels)
	require.NoError(t, err)

	current := e.CurrentPosts(TabCurrent)
	require.Len(t, current, 1)
	assert.False(t, current[0].IsLiked)
	assert.Equal(t, 1, current[0].LikeCount)
}

func TestEngine_StaleReconciliation(t *testing.T) {
	// A second toggle starts while the first is fetching the post. The
	// first reconciliation then belongs to an older toggle.
	run := func(t *testing.T, drop bool) (applied, stale float64) {
		srv, e, _ := setup(t, "ayse", Options{DropStaleReconciliation: drop})
		ctx := context.Background()
		require.NoError(t, e.LoadFeed(ctx))

		var fired atomic.Bool
		srv.SetHook(func(method, path string) {
			if method == http.MethodGet && path == postPath(channels) && fired.CompareAndSwap(false, true) {
				_, err := e.ToggleLike(ctx, channels)
				assert.NoError(t, err)
			}
		})

		appliedBefore := testutil.ToFloat64(reconciliationsTotal.WithLabelValues(actionLike, reconcileApplied))
		staleBefore := testutil.ToFloat64(reconciliationsTotal.WithLabelValues(actionLike, reconcileStale))

		_, err := e.ToggleLike(ctx, channels)
		require.NoError(t, err)

		final := postByID(t, e.CurrentPosts(TabPosts), channels)
		assert.False(t, final.IsLiked)
		assert.Equal(t, 2, final.LikeCount)

		applied = testutil.ToFloat64(reconciliationsTotal.WithLabelValues(actionLike, reconcileApplied)) - appliedBefore
		stale = testutil.ToFloat64(reconciliationsTotal.WithLabelValues(actionLike, reconcileStale)) - staleBefore
		return applied, stale
	}

	t.Run("guard off applies both", func(t *testing.T) {
		applied, stale := run(t, false)
		assert.Equal(t, 2.0, applied)
		assert.Zero(t, stale)
	})
	t.Run("guard on drops the older one", func(t *testing.T) {
		applied, stale := run(t, true)
		assert.Equal(t, 1.0, applied)
		assert.Equal(t, 1.0, stale)
	})
}

func TestEngine_ToggleSave(t *testing.T) {
	_, e, _ := setup(t, "ayse", Options{})
	ctx := context.Background()
	require.NoError(t, e.LoadFeed(ctx))

	post, err := e.ToggleSave(ctx, channels)
	require.NoError(t, err)
	assert.True(t, post.IsSaved)
	assert.Equal(t, 2, post.LikeCount, "save has no counter")
	assert.True(t, postByID(t, e.CurrentPosts(TabPosts), channels).IsSaved)
	assert.Equal(t, []string{channels}, ids(e.CurrentPosts(TabSaved)))

	saved, err := e.IsSaved(ctx, channels)
	require.NoError(t, err)
	assert.True(t, saved)

	require.NoError(t, e.LoadSaved(ctx))
	for _, p := range e.CurrentPosts(TabSaved) {
		assert.True(t, p.IsSaved, p.ID)
	}
	assert.ElementsMatch(t, []string{channels, release}, ids(e.CurrentPosts(TabSaved)))

	// unsave from the saved tab
	post, err = e.ToggleSave(ctx, release)
	require.NoError(t, err)
	assert.False(t, post.IsSaved)
	assert.Equal(t, []string{channels}, ids(e.CurrentPosts(TabSaved)))
}

func TestEngine_ToggleSaveRollback(t *testing.T) {
	srv, e, _ := setup(t, "ayse", Options{})
	ctx := context.Background()
	require.NoError(t, e.LoadSaved(ctx))
	before := e.CurrentPosts(TabSaved)
	srv.FailNext(savePath(release), http.StatusTooManyRequests)

	_, err := e.ToggleSave(ctx, release)
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, common.CategoryWarning, appErr.Category)
	assert.Equal(t, before, e.CurrentPosts(TabSaved))
}

func TestEngine_ToggleSaveStatusOnly(t *testing.T) {
	srv, e, _ := setup(t, "ayse", Options{})
	ctx := context.Background()
	require.NoError(t, e.LoadFeed(ctx))
	srv.FailNext(postPath(pagination), http.StatusInternalServerError)

	post, err := e.ToggleSave(ctx, pagination)
	require.NoError(t, err)
	assert.True(t, post.IsSaved)
	assert.Equal(t, []string{pagination}, ids(e.CurrentPosts(TabSaved)))
}

func TestEngine_DeletePost(t *testing.T) {
	srv, e, bus := setup(t, "ayse", Options{})
	ctx := context.Background()
	require.NoError(t, e.LoadFeed(ctx))
	require.NoError(t, e.LoadCommented(ctx))

	var removed []string
	events.On(bus, "test", func(_ string, ev events.PostRemoved) {
		removed = append(removed, ev.PostID)
	})

	require.NoError(t, e.DeletePost(ctx, channels))
	assert.NotContains(t, ids(e.CurrentPosts(TabPosts)), channels)
	assert.NotContains(t, ids(e.CurrentPosts(TabComments)), channels)
	assert.False(t, srv.HasPost(fakeapi.SeedPostChannels))
	assert.Equal(t, []string{channels}, removed)
}

func TestEngine_DeletePostFailureLeavesState(t *testing.T) {
	_, e, _ := setup(t, "ayse", Options{})
	ctx := context.Background()
	require.NoError(t, e.LoadFeed(ctx))
	before := e.CurrentPosts(TabPosts)

	err := e.DeletePost(ctx, pagination) // mehmet's post
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, http.StatusForbidden, appErr.Status)
	assert.Equal(t, "You can only delete your own posts", appErr.Message)
	assert.Equal(t, before, e.CurrentPosts(TabPosts))
}

func TestEngine_CreatePost(t *testing.T) {
	_, e, _ := setup(t, "ayse", Options{})
	ctx := context.Background()
	require.NoError(t, e.LoadFeed(ctx))
	require.NoError(t, e.LoadLiked(ctx))
	liked := e.CurrentPosts(TabLikes)

	post, err := e.CreatePost(ctx, domain.CreatePostRequest{
		Title:    "Context cancellation",
		Content:  "Pass ctx to every blocking call.",
		TagNames: []string{"go", "context"},
	})
	require.NoError(t, err)
	assert.Equal(t, "ayse", post.Author.Username)
	assert.Equal(t, []string{"go", "context"}, post.TagNames())

	posts := e.CurrentPosts(TabPosts)
	require.Len(t, posts, 4)
	assert.Equal(t, post.ID, posts[0].ID)
	assert.Equal(t, liked, e.CurrentPosts(TabLikes), "likes tab unaffected")
}

func TestEngine_CreatePostValidation(t *testing.T) {
	srv, e, _ := setup(t, "ayse", Options{})
	ctx := context.Background()
	require.NoError(t, e.LoadFeed(ctx))

	_, err := e.CreatePost(ctx, domain.CreatePostRequest{Title: "no content"})
	assert.ErrorIs(t, err, common.ErrInvalidInput)
	assert.Len(t, e.CurrentPosts(TabPosts), 3)
	assert.Empty(t, srv.Calls(http.MethodPost, pathPosts), "invalid draft is not sent")
}

func TestEngine_CreatePostServerRejects(t *testing.T) {
	srv, e, _ := setup(t, "ayse", Options{})
	ctx := context.Background()
	require.NoError(t, e.LoadFeed(ctx))
	srv.FailNextWith(pathPosts, http.StatusBadRequest, "Category is required")

	_, err := e.CreatePost(ctx, domain.CreatePostRequest{Title: "t", Content: "c"})
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "Category is required", appErr.Message)
	assert.Len(t, e.CurrentPosts(TabPosts), 3)
}

func TestEngine_LoadFailureAndRetry(t *testing.T) {
	srv, e, _ := setup(t, "ayse", Options{})
	ctx := context.Background()
	require.NoError(t, e.LoadFeed(ctx))
	require.NoError(t, e.Retry(ctx), "nothing to retry")

	srv.FailNext(pathPosts, http.StatusBadGateway)
	err := e.LoadFeed(ctx)
	assert.ErrorIs(t, err, common.ErrServer)
	assert.Len(t, e.CurrentPosts(TabPosts), 3, "previous collection kept")

	srv.ResetCalls()
	require.NoError(t, e.Retry(ctx))
	assert.Len(t, srv.Calls(http.MethodGet, pathPosts), 1)
	require.NoError(t, e.Retry(ctx))
	assert.Len(t, srv.Calls(http.MethodGet, pathPosts), 1, "retry cleared after success")
}

func TestEngine_PersonalLoadsRequireSession(t *testing.T) {
	srv, e, _ := setup(t, "", Options{})
	ctx := context.Background()

	assert.ErrorIs(t, e.LoadLiked(ctx), common.ErrNotPermitted)
	assert.ErrorIs(t, e.LoadProfile(ctx), common.ErrNotPermitted)
	assert.Empty(t, srv.Calls("", ""))
	require.NoError(t, e.LoadFeed(ctx))
}

func TestEngine_LoadProfile(t *testing.T) {
	_, e, _ := setup(t, "ayse", Options{})

	require.NoError(t, e.LoadProfile(context.Background()))
	assert.Equal(t, []string{channels}, ids(e.CurrentPosts(TabPosts)))
	assert.Equal(t, []string{pagination}, ids(e.CurrentPosts(TabLikes)))
	assert.Equal(t, []string{pagination, channels}, ids(e.CurrentPosts(TabComments)))
}

func TestEngine_LoadTopLiked(t *testing.T) {
	_, e, _ := setup(t, "", Options{})

	top, err := e.LoadTopLiked(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, top)
	assert.Equal(t, channels, top[0].ID)
	assert.Empty(t, e.CurrentPosts(TabPosts))
}

func TestEngine_LoadPostNotFound(t *testing.T) {
	_, e, _ := setup(t, "ayse", Options{})

	_, err := e.LoadPost(context.Background(), "999")
	assert.ErrorIs(t, err, common.ErrNotFound)
	assert.Empty(t, e.CurrentPosts(TabCurrent))
}

func TestEngine_Upload(t *testing.T) {
	_, e, _ := setup(t, "ayse", Options{})
	ctx := context.Background()

	url, err := e.UploadImage(ctx, "cover.png", strings.NewReader("png"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "/uploads/posts/"), url)
	assert.True(t, strings.HasSuffix(url, ".png"), url)

	url, err = e.UploadMedia(ctx, "clip.mp4", strings.NewReader("mp4"))
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(url, ".mp4"), url)
}

func TestEngine_UploadRequiresSession(t *testing.T) {
	_, e, _ := setup(t, "", Options{})
	_, err := e.UploadImage(context.Background(), "cover.png", strings.NewReader("png"))
	assert.ErrorIs(t, err, common.ErrNotPermitted)
}
