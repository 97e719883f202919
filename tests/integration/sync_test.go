package integration

import (
	"context"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/suite"

	"github.com/damoang/blok-client/internal/auth"
	"github.com/damoang/blok-client/internal/comments"
	"github.com/damoang/blok-client/internal/common"
	"github.com/damoang/blok-client/internal/dantry"
	"github.com/damoang/blok-client/internal/events"
	"github.com/damoang/blok-client/internal/fakeapi"
	"github.com/damoang/blok-client/internal/feed"
	"github.com/damoang/blok-client/internal/store"
	"github.com/damoang/blok-client/internal/viewtrack"
	"github.com/damoang/blok-client/pkg/apiclient"
)

// SyncSuite wires every client component against one fake backend
type SyncSuite struct {
	suite.Suite
	srv      *fakeapi.Server
	tokens   *store.MemoryStore
	session  *auth.Session
	auth     *auth.Service
	api      *apiclient.Client
	bus      *events.Bus
	engine   *feed.Engine
	reports  *dantry.GormSink
	reporter *dantry.Reporter

	mu     sync.Mutex
	events []events.Event
}

func TestSyncSuite(t *testing.T) {
	suite.Run(t, new(SyncSuite))
}

func (s *SyncSuite) SetupTest() {
	srv, ts := fakeapi.Start(s.T())
	s.srv = srv
	s.tokens = store.NewMemoryStore()
	s.session = auth.NewSession(s.tokens, zerolog.Nop())
	s.api = apiclient.New(apiclient.Config{BaseURL: ts.URL}, s.session, zerolog.Nop())
	s.auth = auth.NewService(s.api, s.session, zerolog.Nop())

	s.events = nil
	s.bus = events.NewBus(zerolog.Nop())
	for _, topic := range []events.Topic{events.TopicPostUpdated, events.TopicPostRemoved, events.TopicCommentsUpdated, events.TopicViewsFlushed} {
		s.bus.Subscribe("suite", topic, func(e events.Event) {
			s.mu.Lock()
			s.events = append(s.events, e)
			s.mu.Unlock()
		})
	}
	s.engine = feed.NewEngine(s.api, s.session, s.bus, feed.Options{}, zerolog.Nop())

	sink, err := dantry.OpenGormSink(filepath.Join(s.T().TempDir(), "reports.db"), 20)
	s.Require().NoError(err)
	s.reports = sink
	s.reporter = dantry.NewReporter(dantry.Options{Source: "integration", Sinks: []dantry.Sink{sink}, Log: zerolog.Nop()})
	s.T().Cleanup(func() { _ = sink.Close() })
}

func (s *SyncSuite) login(username string) {
	_, err := s.auth.Login(context.Background(), username, fakeapi.SeedUserPassword)
	s.Require().NoError(err)
}

func (s *SyncSuite) postPhases() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, e := range s.events {
		if p, ok := e.Payload.(events.PostUpdated); ok {
			out = append(out, p.Phase)
		}
	}
	return out
}

func (s *SyncSuite) TestLikePropagatesAcrossTabs() {
	ctx := context.Background()
	s.login("ayse")
	s.Require().NoError(s.engine.LoadFeed(ctx))
	s.Require().NoError(s.engine.LoadLiked(ctx))
	_, err := s.engine.LoadPost(ctx, "1")
	s.Require().NoError(err)

	post, err := s.engine.ToggleLike(ctx, "1")
	s.Require().NoError(err)
	s.True(post.IsLiked)
	s.Equal(3, post.LikeCount)

	for _, tab := range []feed.Tab{feed.TabPosts, feed.TabLikes, feed.TabCurrent} {
		var found bool
		for _, p := range s.engine.CurrentPosts(tab) {
			if p.ID == "1" {
				found = true
				s.True(p.IsLiked, tab)
				s.Equal(3, p.LikeCount, tab)
			}
		}
		s.True(found, tab)
	}
	s.Equal([]string{"optimistic", "reconciled"}, s.postPhases())
}

func (s *SyncSuite) TestRollbackIsReported() {
	ctx := context.Background()
	s.login("ayse")
	s.Require().NoError(s.engine.LoadFeed(ctx))
	s.srv.FailNext("/api/like/post/2/toggle", 500)

	_, err := s.engine.ToggleLike(ctx, "2")
	s.Require().ErrorIs(err, common.ErrServer)
	s.reporter.ReportAPIError(err, "like post 2")

	for _, p := range s.engine.CurrentPosts(feed.TabPosts) {
		if p.ID == "2" {
			s.True(p.IsLiked)
			s.Equal(1, p.LikeCount)
		}
	}
	s.Equal([]string{"optimistic", "rollback"}, s.postPhases())

	closeCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	s.Require().NoError(s.reporter.Close(closeCtx))
	stored, err := s.reports.List(ctx)
	s.Require().NoError(err)
	s.Require().Len(stored, 1)
	s.Equal(dantry.SeverityHigh, stored[0].Severity)
	s.Equal("like post 2", stored[0].Context)
}

func (s *SyncSuite) TestDeleteRemovesEverywhere() {
	ctx := context.Background()
	s.login("ayse")
	s.Require().NoError(s.engine.LoadFeed(ctx))
	s.Require().NoError(s.engine.LoadMine(ctx))
	_, err := s.engine.LoadPost(ctx, "1")
	s.Require().NoError(err)

	s.Require().NoError(s.engine.DeletePost(ctx, "1"))
	for _, tab := range feed.Tabs {
		for _, p := range s.engine.CurrentPosts(tab) {
			s.NotEqual("1", p.ID, tab)
		}
	}
	s.False(s.srv.HasPost(1))
}

func (s *SyncSuite) TestCommentThreadAndViews() {
	ctx := context.Background()
	s.login("mehmet")

	thread := comments.NewThread(s.api, s.session, s.bus, "2", zerolog.Nop())
	s.Require().NoError(thread.Load(ctx))
	s.Equal(1, thread.Len())

	created, err := thread.Create(ctx, "Cursor pagination is next", "")
	s.Require().NoError(err)
	s.Equal(2, thread.Len())
	s.Equal(0, thread.Depth(created.ID))
	id, err := strconv.ParseInt(created.ID, 10, 64)
	s.Require().NoError(err)
	s.True(s.srv.HasComment(id))

	tracker := viewtrack.New(viewtrack.NewAPISender(s.api), s.session, viewtrack.Options{Debounce: 20 * time.Millisecond, Bus: s.bus}, zerolog.Nop())
	before := s.srv.Views(2)
	s.True(tracker.Observe("2", 0.9))
	s.Eventually(func() bool { return tracker.State("2") == viewtrack.Flushed }, time.Second, 10*time.Millisecond)
	tracker.Close(ctx)
	s.Equal(before+1, s.srv.Views(2))

	s.mu.Lock()
	defer s.mu.Unlock()
	var flushed bool
	for _, e := range s.events {
		if p, ok := e.Payload.(events.ViewsFlushed); ok {
			flushed = true
			s.Equal([]int64{2}, p.PostIDs)
		}
	}
	s.True(flushed)
}

func (s *SyncSuite) TestRestoreWithRejectedTokenSignsOut() {
	ctx := context.Background()
	s.Require().NoError(s.tokens.Save(ctx, "not-a-token"))

	user, err := s.auth.Restore(ctx)
	s.Error(err)
	s.Nil(user)
	s.False(s.session.Authenticated())
	stored, err := s.tokens.Load(ctx)
	s.Require().NoError(err)
	s.Empty(stored)
}

func (s *SyncSuite) TestRestoreKeepsTokenWhenOffline() {
	ctx := context.Background()
	token := s.srv.Token("ayse")
	s.Require().NoError(s.tokens.Save(ctx, token))
	s.srv.DropNext("/api/user/profile")

	_, err := s.auth.Restore(ctx)
	s.ErrorIs(err, common.ErrNetwork)
	stored, err := s.tokens.Load(ctx)
	s.Require().NoError(err)
	s.Equal(token, stored)
}
