package events

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBusDeliversInOrder(t *testing.T) {
	bus := NewEventBus(16)
	defer bus.Stop()

	var mu sync.Mutex
	var got []int
	done := make(chan struct{})
	bus.Subscribe(EventTypeJobStarted, func(e Event) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, e.Data["seq"].(int))
		if len(got) == 50 {
			close(done)
		}
	})

	for i := 1; i <= 50; i++ {
		bus.Publish(Event{Type: EventTypeJobStarted, Data: map[string]interface{}{"seq": i}})
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for events")
	}
	for i, seq := range got {
		assert.Equal(t, i+1, seq)
	}
}

func TestWildcardAndUnsubscribe(t *testing.T) {
	bus := NewEventBus(16)

	var mu sync.Mutex
	var typed, all []EventType
	typedID := bus.Subscribe(EventTypeJobFailed, func(e Event) {
		mu.Lock()
		typed = append(typed, e.Type)
		mu.Unlock()
	})
	bus.Subscribe(EventTypeAll, func(e Event) {
		mu.Lock()
		all = append(all, e.Type)
		mu.Unlock()
	})

	bus.Publish(Event{Type: EventTypeJobFailed})
	bus.Publish(Event{Type: EventTypeJobCreated})
	bus.Stop()

	assert.Equal(t, []EventType{EventTypeJobFailed}, typed)
	assert.Equal(t, []EventType{EventTypeJobFailed, EventTypeJobCreated}, all)

	bus.Unsubscribe(typedID)
	assert.Equal(t, 0, bus.GetSubscriberCount(EventTypeJobFailed))
	assert.Equal(t, 1, bus.GetSubscriberCount(EventTypeAll))
}

func TestHandlerPanicDoesNotStopBus(t *testing.T) {
	bus := NewEventBus(4)

	var delivered []string
	bus.Subscribe(EventTypeError, func(e Event) { panic("boom") })
	bus.Subscribe(EventTypeError, func(e Event) { delivered = append(delivered, e.Source) })

	bus.Publish(Event{Type: EventTypeError, Source: "a"})
	bus.Publish(Event{Type: EventTypeError, Source: "b"})
	bus.Stop()

	require.Equal(t, []string{"a", "b"}, delivered)
}

func TestPublishAfterStopIsDropped(t *testing.T) {
	bus := NewEventBus(1)
	bus.Stop()
	bus.Stop()

	called := false
	bus.Subscribe(EventTypeAll, func(Event) { called = true })
	bus.Publish(Event{Type: EventTypeError})
	assert.False(t, called)
}
