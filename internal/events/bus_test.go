package events

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBus_PublishSubscribe(t *testing.T) {
	b := NewBus(zerolog.Nop())

	var received Event
	b.Subscribe("ui", TopicPostUpdated, func(e Event) { received = e })

	b.Publish("feed", PostUpdated{PostID: "12", Action: "like", Phase: "optimistic"})

	assert.Equal(t, TopicPostUpdated, received.Topic)
	assert.Equal(t, "feed", received.Source)
	assert.Equal(t, PostUpdated{PostID: "12", Action: "like", Phase: "optimistic"}, received.Payload)
	assert.False(t, received.Timestamp.IsZero())
}

func TestBus_PayloadPicksTopic(t *testing.T) {
	b := NewBus(zerolog.Nop())

	got := map[Topic]int{}
	for _, topic := range Topics {
		b.Subscribe("ui", topic, func(e Event) { got[e.Topic]++ })
	}

	b.Publish("feed", PostRemoved{PostID: "1", Copies: 2})
	b.Publish("feed", CollectionLoaded{Tab: "posts", Count: 3})
	b.Publish("viewtrack", ViewsFlushed{PostIDs: []int64{1}})

	assert.Equal(t, map[Topic]int{TopicPostRemoved: 1, TopicCollectionLoaded: 1, TopicViewsFlushed: 1}, got)
}

func TestOn_TypedPayload(t *testing.T) {
	b := NewBus(zerolog.Nop())

	var sources []string
	var flushed [][]int64
	On(b, "ui", func(source string, p ViewsFlushed) {
		sources = append(sources, source)
		flushed = append(flushed, p.PostIDs)
	})

	b.Publish("viewtrack", ViewsFlushed{PostIDs: []int64{3, 4}})
	b.Publish("feed", PostCreated{PostID: "9"})

	assert.Equal(t, []string{"viewtrack"}, sources)
	assert.Equal(t, [][]int64{{3, 4}}, flushed)
}

func TestBus_SubscribersRunInOrder(t *testing.T) {
	b := NewBus(zerolog.Nop())

	var order []string
	for _, name := range []string{"a", "b", "c"} {
		b.Subscribe(name, TopicCollectionLoaded, func(Event) { order = append(order, name) })
	}
	b.Publish("feed", CollectionLoaded{Tab: "likes"})

	assert.Equal(t, []string{"a", "b", "c"}, order)
}

func TestBus_Cancel(t *testing.T) {
	b := NewBus(zerolog.Nop())

	var first, second int
	cancel := b.Subscribe("a", TopicPostRemoved, func(Event) { first++ })
	b.Subscribe("a", TopicPostRemoved, func(Event) { second++ })

	cancel()
	cancel()
	b.Publish("feed", PostRemoved{PostID: "1"})

	assert.Zero(t, first)
	assert.Equal(t, 1, second, "only the cancelled subscription is removed")
}

func TestBus_CancelLastRemovesTopic(t *testing.T) {
	b := NewBus(zerolog.Nop())
	cancel := On(b, "a", func(string, PostCreated) {})
	require.Len(t, b.topics[TopicPostCreated], 1)

	cancel()
	assert.NotContains(t, b.topics, TopicPostCreated)
}

func TestBus_HandlerPanic(t *testing.T) {
	b := NewBus(zerolog.Nop())

	var secondCalled bool
	b.Subscribe("bad", TopicViewsFlushed, func(Event) { panic("handler crash") })
	b.Subscribe("good", TopicViewsFlushed, func(Event) { secondCalled = true })

	assert.NotPanics(t, func() { b.Publish("viewtrack", ViewsFlushed{}) })
	assert.True(t, secondCalled)
}

func TestBus_NilIsInert(t *testing.T) {
	var b *Bus
	assert.NotPanics(t, func() {
		b.Publish("feed", PostCreated{PostID: "1"})
		b.Subscribe("ui", TopicPostCreated, func(Event) {})()
	})

	live := NewBus(zerolog.Nop())
	assert.NotPanics(t, func() { live.Publish("feed", nil) })
}
