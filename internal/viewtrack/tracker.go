package viewtrack

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/damoang/blok-client/internal/events"
)

const (
	DefaultDebounce     = 500 * time.Millisecond
	DefaultThreshold    = 0.5
	DefaultFlushTimeout = 10 * time.Second
	eventSource         = "viewtrack"
)

// State 게시글별 추적 상태
type State int

const (
	Unseen State = iota
	PendingFlush
	Flushed
)

func (s State) String() string {
	switch s {
	case PendingFlush:
		return "pending"
	case Flushed:
		return "flushed"
	default:
		return "unseen"
	}
}

// Sender reports a batch of viewed post ids
type Sender interface {
	RecordViews(ctx context.Context, postIDs []int64) error
}

// Authenticator reports whether a session token is present
type Authenticator interface {
	Authenticated() bool
}

// Options 트래커 설정
type Options struct {
	Debounce     time.Duration
	Threshold    float64 // minimum visible ratio, inclusive
	FlushTimeout time.Duration
	Bus          *events.Bus
}

// Tracker 화면에 보인 게시글을 모아 한 번에 보고.
// One debounce timer is shared by every post; a post is sent at most once
// per tracker lifetime. Close flushes what is pending.
type Tracker struct {
	mu      sync.Mutex
	states  map[string]State
	pending []string
	timer   *time.Timer
	closed  bool
	sendMu  sync.Mutex // one batch in flight at a time

	sender Sender
	auth   Authenticator
	opts   Options
	log    zerolog.Logger
}

// New 생성자
func New(sender Sender, auth Authenticator, opts Options, log zerolog.Logger) *Tracker {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Threshold <= 0 || opts.Threshold > 1 {
		opts.Threshold = DefaultThreshold
	}
	if opts.FlushTimeout <= 0 {
		opts.FlushTimeout = DefaultFlushTimeout
	}
	return &Tracker{
		states: make(map[string]State),
		sender: sender,
		auth:   auth,
		opts:   opts,
		log:    log,
	}
}

// Observe 가시성 신호. 게시글이 pending 으로 전이되면 true
func (t *Tracker) Observe(postID string, visibleRatio float64) bool {
	if postID == "" || visibleRatio < t.opts.Threshold {
		return false
	}
	if t.auth == nil || !t.auth.Authenticated() {
		return false
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed || t.states[postID] != Unseen {
		return false
	}
	t.states[postID] = PendingFlush
	t.pending = append(t.pending, postID)

	if t.timer == nil {
		t.timer = time.AfterFunc(t.opts.Debounce, t.onTimer)
	} else {
		t.timer.Reset(t.opts.Debounce)
	}
	return true
}

// State 게시글 상태
func (t *Tracker) State(postID string) State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.states[postID]
}

// Pending 전송 대기 중인 id 복사본 (관측 순서)
func (t *Tracker) Pending() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.pending...)
}

func (t *Tracker) onTimer() {
	ctx, cancel := context.WithTimeout(context.Background(), t.opts.FlushTimeout)
	defer cancel()
	t.flush(ctx)
}

// Flush 대기 중인 id 즉시 전송
func (t *Tracker) Flush(ctx context.Context) {
	t.mu.Lock()
	if t.timer != nil {
		t.timer.Stop()
	}
	t.mu.Unlock()
	t.flush(ctx)
}

func (t *Tracker) flush(ctx context.Context) {
	t.sendMu.Lock()
	defer t.sendMu.Unlock()

	t.mu.Lock()
	batch := t.pending
	t.pending = nil
	for _, id := range batch {
		t.states[id] = Flushed
	}
	t.mu.Unlock()

	if len(batch) == 0 {
		return
	}

	ids := make([]int64, 0, len(batch))
	for _, id := range batch {
		n, err := strconv.ParseInt(id, 10, 64)
		if err != nil {
			t.log.Warn().Str("post_id", id).Msg("non-numeric post id skipped")
			continue
		}
		ids = append(ids, n)
	}
	if len(ids) == 0 {
		batchesTotal.WithLabelValues(resultSkipped).Inc()
		return
	}

	if err := t.sender.RecordViews(ctx, ids); err != nil {
		batchesTotal.WithLabelValues(resultFailed).Inc()
		t.log.Warn().Err(err).Int("ids", len(ids)).Msg("view batch failed, dropped")
		return
	}
	batchesTotal.WithLabelValues(resultSent).Inc()
	idsTotal.Add(float64(len(ids)))
	t.log.Debug().Int("ids", len(ids)).Msg("view batch sent")
	t.opts.Bus.Publish(eventSource, events.ViewsFlushed{PostIDs: ids})
}

// Close 대기 중인 id 를 동기적으로 전송한 뒤 트래커를 비활성화.
// A batch already being sent by the timer finishes before Close returns.
func (t *Tracker) Close(ctx context.Context) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	if t.timer != nil {
		t.timer.Stop()
	}
	t.mu.Unlock()

	t.flush(ctx)
}
