package game

import (
	"slices"
	"sync"
	"time"
)

// EventType identifies a session event.
type EventType string

const (
	EventTypeSessionStarted   EventType = "session_started"
	EventTypeRoundStarted     EventType = "round_started"
	EventTypeHintRevealed     EventType = "hint_revealed"
	EventTypeGuessEvaluated   EventType = "guess_evaluated"
	EventTypeRoundFinished    EventType = "round_finished"
	EventTypeSessionCompleted EventType = "session_completed"
	EventTypeSessionAbandoned EventType = "session_abandoned"
)

func (et EventType) String() string {
	return string(et)
}

// Event is anything published by a session.
type Event interface {
	EventType() EventType
	SessionID() string
	Timestamp() time.Time
}

type eventBase struct {
	Session string
	At      time.Time
}

func (e eventBase) SessionID() string { return e.Session }
func (e eventBase) Timestamp() time.Time { return e.At }

// SessionStartedEvent is published once a session has drawn its targets.
type SessionStartedEvent struct {
	eventBase
	Player string
	Rounds int
}

func (e SessionStartedEvent) EventType() EventType { return EventTypeSessionStarted }

// RoundStartedEvent is published when a round opens. Hints holds the opening
// hint, if any.
type RoundStartedEvent struct {
	eventBase
	Round      int
	Difficulty int
	Hints      []Hint
}

func (e RoundStartedEvent) EventType() EventType { return EventTypeRoundStarted }

// HintRevealedEvent is published for every hint granted by RequestHint.
type HintRevealedEvent struct {
	eventBase
	Round        int
	Hint         Hint
	Difficulty   int
	PendingScore int
}

func (e HintRevealedEvent) EventType() EventType { return EventTypeHintRevealed }

// GuessEvaluatedEvent is published for every non-empty guess.
type GuessEvaluatedEvent struct {
	eventBase
	Round        int
	Guess        string
	Correct      bool
	Similarity   float64
	AttemptsLeft int
}

func (e GuessEvaluatedEvent) EventType() EventType { return EventTypeGuessEvaluated }

// RoundFinishedEvent is published when a round reaches Finished.
type RoundFinishedEvent struct {
	eventBase
	Round   int
	Target  string
	Outcome Outcome
	Points  int
	Score   int
}

func (e RoundFinishedEvent) EventType() EventType { return EventTypeRoundFinished }

// SessionCompletedEvent is published after the last round, once the final
// score has been recorded.
type SessionCompletedEvent struct {
	eventBase
	Player   string
	Score    int
	MaxScore int
	Best     int
	Improved bool
}

func (e SessionCompletedEvent) EventType() EventType { return EventTypeSessionCompleted }

// SessionAbandonedEvent is published when a session is cancelled.
type SessionAbandonedEvent struct {
	eventBase
	Player string
	Score  int
	Round  int
}

func (e SessionAbandonedEvent) EventType() EventType { return EventTypeSessionAbandoned }

// EventSubscriber receives session events.
type EventSubscriber interface {
	OnEvent(event Event)
}

// EventBus manages event publishing and subscription.
type EventBus interface {
	Subscribe(subscriber EventSubscriber)
	Unsubscribe(subscriber EventSubscriber)
	Publish(event Event)
}

// SimpleEventBus delivers events synchronously, in subscription order. It
// may be shared by sessions on different goroutines; subscribers then see
// concurrent OnEvent calls.
type SimpleEventBus struct {
	mu          sync.RWMutex
	subscribers []EventSubscriber
}

// NewEventBus creates a new event bus.
func NewEventBus() *SimpleEventBus {
	return &SimpleEventBus{}
}

func (bus *SimpleEventBus) Subscribe(subscriber EventSubscriber) {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	bus.subscribers = append(bus.subscribers, subscriber)
}

// Unsubscribe removes the first registration of subscriber.
func (bus *SimpleEventBus) Unsubscribe(subscriber EventSubscriber) {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	for i, sub := range bus.subscribers {
		if sub == subscriber {
			bus.subscribers = slices.Delete(bus.subscribers, i, i+1)
			break
		}
	}
}

func (bus *SimpleEventBus) Publish(event Event) {
	bus.mu.RLock()
	subs := slices.Clone(bus.subscribers)
	bus.mu.RUnlock()
	for _, subscriber := range subs {
		subscriber.OnEvent(event)
	}
}
