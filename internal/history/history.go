// Package history records session transcripts from game events and exports
// them as JSON. Transcripts are write-only logs; nothing reads them back.
package history

import (
	"fmt"
	"io"
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/lox/hintquiz/internal/fileutil"
	"github.com/lox/hintquiz/internal/game"
)

// HintRecord is one hint shown during a round.
type HintRecord struct {
	Category   string `json:"category"`
	Text       string `json:"text"`
	Difficulty int    `json:"difficulty"`
}

// GuessRecord is one evaluated guess.
type GuessRecord struct {
	Text       string    `json:"text"`
	Correct    bool      `json:"correct"`
	Similarity float64   `json:"similarity"`
	At         time.Time `json:"at"`
}

// RoundRecord is the history of one round.
type RoundRecord struct {
	Number     int           `json:"number"`
	Target     string        `json:"target,omitempty"`
	Hints      []HintRecord  `json:"hints"`
	Guesses    []GuessRecord `json:"guesses"`
	Outcome    game.Outcome  `json:"outcome,omitempty"`
	Points     int           `json:"points"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at,omitzero"`
}

// Transcript is the history of one session.
type Transcript struct {
	SessionID  string        `json:"session_id"`
	Player     string        `json:"player"`
	Status     string        `json:"status"`
	Rounds     int           `json:"rounds"`
	Score      int           `json:"score"`
	MaxScore   int           `json:"max_score,omitempty"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at,omitzero"`
	RoundLog   []RoundRecord `json:"round_log"`
}

const (
	StatusActive    = "active"
	StatusComplete  = "complete"
	StatusAbandoned = "abandoned"
)

func (t *Transcript) clone() Transcript {
	c := *t
	c.RoundLog = make([]RoundRecord, len(t.RoundLog))
	for i, r := range t.RoundLog {
		r.Hints = slices.Clone(r.Hints)
		r.Guesses = slices.Clone(r.Guesses)
		c.RoundLog[i] = r
	}
	return c
}

func (t *Transcript) round(number int) *RoundRecord {
	for i := range t.RoundLog {
		if t.RoundLog[i].Number == number {
			return &t.RoundLog[i]
		}
	}
	return nil
}

// Recorder builds transcripts from game events. It is safe to subscribe one
// Recorder to sessions running on different goroutines.
type Recorder struct {
	logger *log.Logger

	mu       sync.Mutex
	sessions map[string]*Transcript
	order    []string
	limit    int
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithLimit caps the number of finished transcripts kept in memory. The
// oldest finished transcripts are dropped first. Zero keeps everything.
func WithLimit(n int) Option {
	return func(r *Recorder) {
		r.limit = n
	}
}

// NewRecorder creates an empty recorder.
func NewRecorder(logger *log.Logger, opts ...Option) *Recorder {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	r := &Recorder{
		logger:   logger.WithPrefix("history"),
		sessions: make(map[string]*Transcript),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// OnEvent implements game.EventSubscriber.
func (r *Recorder) OnEvent(event game.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := event.SessionID()
	if e, ok := event.(game.SessionStartedEvent); ok {
		r.sessions[id] = &Transcript{
			SessionID: id,
			Player:    e.Player,
			Status:    StatusActive,
			Rounds:    e.Rounds,
			StartedAt: e.Timestamp(),
			RoundLog:  []RoundRecord{},
		}
		r.order = append(r.order, id)
		return
	}

	t, ok := r.sessions[id]
	if !ok {
		r.logger.Debug("Event for unknown session", "session", id, "type", event.EventType())
		return
	}

	switch e := event.(type) {
	case game.RoundStartedEvent:
		rec := RoundRecord{Number: e.Round, StartedAt: e.Timestamp(), Hints: []HintRecord{}, Guesses: []GuessRecord{}}
		for _, h := range e.Hints {
			rec.Hints = append(rec.Hints, HintRecord{Category: h.Category, Text: h.Text, Difficulty: e.Difficulty})
		}
		t.RoundLog = append(t.RoundLog, rec)
	case game.HintRevealedEvent:
		if rec := t.round(e.Round); rec != nil {
			rec.Hints = append(rec.Hints, HintRecord{Category: e.Hint.Category, Text: e.Hint.Text, Difficulty: e.Difficulty})
		}
	case game.GuessEvaluatedEvent:
		if rec := t.round(e.Round); rec != nil {
			rec.Guesses = append(rec.Guesses, GuessRecord{Text: e.Guess, Correct: e.Correct, Similarity: e.Similarity, At: e.Timestamp()})
		}
	case game.RoundFinishedEvent:
		if rec := t.round(e.Round); rec != nil {
			rec.Target = e.Target
			rec.Outcome = e.Outcome
			rec.Points = e.Points
			rec.FinishedAt = e.Timestamp()
		}
		t.Score = e.Score
	case game.SessionCompletedEvent:
		t.Status = StatusComplete
		t.Score = e.Score
		t.MaxScore = e.MaxScore
		t.FinishedAt = e.Timestamp()
		r.prune()
	case game.SessionAbandonedEvent:
		t.Status = StatusAbandoned
		t.Score = e.Score
		t.FinishedAt = e.Timestamp()
		r.prune()
	}
}

// prune drops the oldest finished transcripts beyond the limit.
func (r *Recorder) prune() {
	if r.limit <= 0 {
		return
	}
	finished := 0
	for _, id := range r.order {
		if r.sessions[id].Status != StatusActive {
			finished++
		}
	}
	for i := 0; finished > r.limit && i < len(r.order); {
		id := r.order[i]
		if r.sessions[id].Status == StatusActive {
			i++
			continue
		}
		delete(r.sessions, id)
		r.order = slices.Delete(r.order, i, i+1)
		finished--
	}
}

// Transcript returns a copy of the transcript for a session.
func (r *Recorder) Transcript(sessionID string) (Transcript, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.sessions[sessionID]
	if !ok {
		return Transcript{}, false
	}
	return t.clone(), true
}

// Completed returns copies of all completed transcripts in start order.
func (r *Recorder) Completed() []Transcript {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []Transcript{}
	for _, id := range r.order {
		if t := r.sessions[id]; t.Status == StatusComplete {
			out = append(out, t.clone())
		}
	}
	return out
}

// Len returns the number of transcripts held, in any state.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Export atomically writes all completed transcripts to path as indented
// JSON and returns how many were written.
func (r *Recorder) Export(path string) (int, error) {
	transcripts := r.Completed()
	if err := fileutil.WriteJSONAtomic(path, transcripts, 0o644); err != nil {
		return 0, fmt.Errorf("export history: %w", err)
	}
	r.logger.Info("Exported transcripts", "path", path, "count", len(transcripts))
	return len(transcripts), nil
}
