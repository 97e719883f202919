// Package events carries state-change notifications from the sync engines
// to whatever renders them. Each payload type owns exactly one topic.
package events

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Topic 이벤트 종류
type Topic string

const (
	TopicPostUpdated      Topic = "post.updated"
	TopicPostRemoved      Topic = "post.removed"
	TopicPostCreated      Topic = "post.created"
	TopicCollectionLoaded Topic = "collection.loaded"
	TopicCommentsUpdated  Topic = "comments.updated"
	TopicViewsFlushed     Topic = "views.flushed"
)

// Topics lists every topic a payload type publishes on
var Topics = []Topic{
	TopicPostUpdated, TopicPostRemoved, TopicPostCreated,
	TopicCollectionLoaded, TopicCommentsUpdated, TopicViewsFlushed,
}

// Payload is an event body; the body decides its topic
type Payload interface {
	Topic() Topic
}

// PostUpdated 낙관적 변경 단계 (optimistic, rollback, reconciled)
type PostUpdated struct {
	PostID string `json:"postId"`
	Action string `json:"action"`
	Phase  string `json:"phase"`
}

// PostRemoved 모든 탭에서 게시글 제거
type PostRemoved struct {
	PostID string `json:"postId"`
	Copies int    `json:"copies"`
}

// PostCreated posts 탭에 새 게시글 추가
type PostCreated struct {
	PostID string `json:"postId"`
}

// CollectionLoaded 탭 로드 완료
type CollectionLoaded struct {
	Tab   string `json:"tab"`
	Count int    `json:"count"`
}

// CommentsUpdated 댓글 트리 변경
type CommentsUpdated struct {
	PostID    string `json:"postId"`
	CommentID string `json:"commentId,omitempty"`
	Phase     string `json:"phase"`
	Count     int    `json:"count"`
}

// ViewsFlushed 조회수 배치 전송 완료
type ViewsFlushed struct {
	PostIDs []int64 `json:"postIds"`
}

func (PostUpdated) Topic() Topic      { return TopicPostUpdated }
func (PostRemoved) Topic() Topic      { return TopicPostRemoved }
func (PostCreated) Topic() Topic      { return TopicPostCreated }
func (CollectionLoaded) Topic() Topic { return TopicCollectionLoaded }
func (CommentsUpdated) Topic() Topic  { return TopicCommentsUpdated }
func (ViewsFlushed) Topic() Topic     { return TopicViewsFlushed }

// Event 발행된 알림
type Event struct {
	Topic     Topic     `json:"topic"`
	Source    string    `json:"source"` // 발행 컴포넌트
	Payload   Payload   `json:"payload"`
	Timestamp time.Time `json:"timestamp"`
}

// Handler 이벤트 핸들러 함수
type Handler func(event Event)

type subscription struct {
	id         uint64
	subscriber string
	handler    Handler
}

// Bus 동기식 토픽 pub/sub. Handlers run in subscription order on the
// publishing goroutine; a panicking handler is logged and skipped.
// A nil *Bus is valid and drops every event.
type Bus struct {
	mu     sync.RWMutex
	topics map[Topic][]subscription
	nextID uint64
	log    zerolog.Logger
}

// NewBus 생성자
func NewBus(log zerolog.Logger) *Bus {
	return &Bus{topics: make(map[Topic][]subscription), log: log}
}

// Subscribe registers handler for topic. The returned func removes exactly
// this subscription and is safe to call more than once.
func (b *Bus) Subscribe(subscriber string, topic Topic, handler Handler) (cancel func()) {
	if b == nil {
		return func() {}
	}
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.topics[topic] = append(b.topics[topic], subscription{id: id, subscriber: subscriber, handler: handler})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(topic, id) })
	}
}

// On subscribes fn to the topic of payload type P
func On[P Payload](b *Bus, subscriber string, fn func(source string, payload P)) (cancel func()) {
	var zero P
	return b.Subscribe(subscriber, zero.Topic(), func(e Event) {
		if p, ok := e.Payload.(P); ok {
			fn(e.Source, p)
		}
	})
}

func (b *Bus) remove(topic Topic, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.topics[topic]
	for i, s := range subs {
		if s.id == id {
			b.topics[topic] = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}
	if len(b.topics[topic]) == 0 {
		delete(b.topics, topic)
	}
}

// Publish delivers payload on its own topic
func (b *Bus) Publish(source string, payload Payload) {
	if b == nil || payload == nil {
		return
	}
	topic := payload.Topic()
	b.mu.RLock()
	subs := b.topics[topic]
	b.mu.RUnlock()
	if len(subs) == 0 {
		return
	}

	event := Event{Topic: topic, Source: source, Payload: payload, Timestamp: time.Now()}
	for _, s := range subs {
		b.dispatch(s, event)
	}
}

func (b *Bus) dispatch(s subscription, event Event) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error().
				Str("source", event.Source).
				Str("topic", string(event.Topic)).
				Str("subscriber", s.subscriber).
				Interface("panic", r).
				Msg("event handler panicked")
		}
	}()
	s.handler(event)
}
