package game

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEventBus_SubscribeUnsubscribe(t *testing.T) {
	bus := NewEventBus()
	first, second := &eventLog{}, &eventLog{}
	bus.Subscribe(first)
	bus.Subscribe(second)

	event := RoundStartedEvent{eventBase: eventBase{Session: "s1", At: time.Unix(100, 0)}, Round: 1}
	bus.Publish(event)
	assert.Len(t, first.events, 1)
	assert.Len(t, second.events, 1)

	bus.Unsubscribe(first)
	bus.Publish(event)
	assert.Len(t, first.events, 1)
	assert.Len(t, second.events, 2)

	got := second.events[0]
	assert.Equal(t, EventTypeRoundStarted, got.EventType())
	assert.Equal(t, "s1", got.SessionID())
	assert.Equal(t, time.Unix(100, 0), got.Timestamp())
}

type lockedCounter struct {
	mu sync.Mutex
	n  int
}

func (c *lockedCounter) OnEvent(Event) {
	c.mu.Lock()
	c.n++
	c.mu.Unlock()
}

func TestEventBus_ConcurrentPublish(t *testing.T) {
	bus := NewEventBus()
	counter := &lockedCounter{}
	bus.Subscribe(counter)

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				bus.Publish(HintRevealedEvent{Round: i})
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 800, counter.n)
}

func TestEventType_String(t *testing.T) {
	assert.Equal(t, "guess_evaluated", EventTypeGuessEvaluated.String())
	assert.Equal(t, EventTypeSessionAbandoned, SessionAbandonedEvent{}.EventType())
}
