package game

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/lox/hintquiz/internal/randutil"
	"github.com/lox/hintquiz/internal/sessionid"
)

// Catalog is the catalog view a session needs.
type Catalog interface {
	HintSource
	Items() []string
}

// Recorder stores final session scores. Implementations are shared across
// sessions and must be safe for concurrent use.
type Recorder interface {
	Record(player string, score int) (best int, improved bool)
}

// SessionStatus is the lifecycle state of a session.
type SessionStatus int

const (
	SessionActive SessionStatus = iota
	SessionComplete
	SessionAbandoned
)

func (s SessionStatus) String() string {
	switch s {
	case SessionActive:
		return "active"
	case SessionComplete:
		return "complete"
	case SessionAbandoned:
		return "abandoned"
	default:
		return fmt.Sprintf("session_status(%d)", int(s))
	}
}

// Session plays a fixed sequence of rounds for one player and records the
// final score once. It is not safe for concurrent use.
type Session struct {
	id      string
	player  string
	targets []string
	index   int
	score   int
	round   *Round
	status  SessionStatus

	startedAt   time.Time
	nextRoundAt time.Time

	finalized bool
	best      int
	improved  bool

	rules   Config
	catalog Catalog
	board   Recorder
	clock   quartz.Clock
	rng     *rand.Rand
	bus     EventBus
	logger  *log.Logger
}

// NewSession validates the request, draws distinct targets and opens the
// first round. A blank player name, a round count outside the allowed
// counts or more rounds than the catalog has items yield a *ConfigError and
// no session. board may be nil, in which case final scores are not kept.
func NewSession(cat Catalog, board Recorder, player string, rounds int, opts ...Option) (*Session, error) {
	cfg := defaultSessionConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if err := cfg.rules.Validate(); err != nil {
		return nil, err
	}

	player = strings.TrimSpace(player)
	if player == "" {
		return nil, &ConfigError{Field: "player", Reason: "name must not be empty"}
	}
	if !cfg.rules.AllowsRounds(rounds) {
		return nil, &ConfigError{Field: "rounds", Reason: fmt.Sprintf("%d is not an allowed round count %v", rounds, cfg.rules.RoundCounts)}
	}
	items := cat.Items()
	if rounds > len(items) {
		return nil, &ConfigError{Field: "rounds", Reason: fmt.Sprintf("%d rounds requested but the catalog has %d items", rounds, len(items))}
	}

	now := cfg.clock.Now("session", "start")
	if cfg.rng == nil {
		cfg.rng = randutil.New(now.UnixNano())
	}
	if cfg.id == "" {
		cfg.id = sessionid.NewGenerator(cfg.clock, cfg.rng).Next()
	}

	s := &Session{
		id:        cfg.id,
		player:    player,
		targets:   randutil.Sample(cfg.rng, items, rounds),
		status:    SessionActive,
		startedAt: now,
		rules:     cfg.rules,
		catalog:   cat,
		board:     board,
		clock:     cfg.clock,
		rng:       cfg.rng,
		bus:       cfg.bus,
		logger:    cfg.logger.WithPrefix("session").With("session", cfg.id, "player", player),
	}

	s.logger.Info("Session started", "rounds", rounds)
	s.publish(SessionStartedEvent{eventBase: s.base(now), Player: player, Rounds: rounds})
	s.startRound()
	return s, nil
}

func (s *Session) base(at time.Time) eventBase {
	return eventBase{Session: s.id, At: at}
}

func (s *Session) publish(event Event) {
	if s.bus != nil {
		s.bus.Publish(event)
	}
}

func (s *Session) startRound() {
	s.round = NewRound(s.index+1, s.targets[s.index], s.rules, s.catalog, s.clock, s.rng, s.logger)
	s.nextRoundAt = time.Time{}
	s.publish(RoundStartedEvent{
		eventBase:  s.base(s.round.StartedAt()),
		Round:      s.round.Number(),
		Difficulty: s.round.Difficulty(),
		Hints:      s.round.Hints(),
	})
}

func (s *Session) checkActive(op string) error {
	if s.status != SessionActive {
		return &StateError{Op: op, State: s.status.String()}
	}
	return nil
}

// expire times out the current round if its deadline passed since the last
// tick, so input arriving late is rejected rather than scored.
func (s *Session) expire(op string) {
	s.Tick(s.clock.Now("session", op))
}

// SubmitGuess forwards a guess to the current round and adds awarded
// points to the session score. A guess after the round deadline finishes
// the round with a timeout and returns a *StateError.
func (s *Session) SubmitGuess(text string) (GuessResult, error) {
	if err := s.checkActive("submit guess"); err != nil {
		return GuessResult{}, err
	}
	s.expire("guess")
	res, err := s.round.SubmitGuess(text)
	if err != nil || res.Ignored {
		return res, err
	}
	if res.Correct {
		s.score += res.Points
	}
	s.publish(GuessEvaluatedEvent{
		eventBase:    s.base(s.clock.Now("session", "guess")),
		Round:        s.round.Number(),
		Guess:        strings.TrimSpace(text),
		Correct:      res.Correct,
		Similarity:   res.Similarity,
		AttemptsLeft: res.AttemptsLeft,
	})
	if res.Finished {
		s.roundFinished()
	}
	return res, nil
}

// RequestHint forwards a hint request to the current round. Like
// SubmitGuess it times out an overdue round first.
func (s *Session) RequestHint() (Hint, error) {
	if err := s.checkActive("request hint"); err != nil {
		return Hint{}, err
	}
	s.expire("hint")
	h, err := s.round.RequestHint()
	if err != nil {
		return h, err
	}
	s.publish(HintRevealedEvent{
		eventBase:    s.base(s.clock.Now("session", "hint")),
		Round:        s.round.Number(),
		Hint:         h,
		Difficulty:   s.round.Difficulty(),
		PendingScore: s.round.PendingScore(),
	})
	return h, nil
}

// Tick delivers the current time to the active round. It reports whether
// the round timed out on this call; ticks on a finished round or an
// inactive session are no-ops.
func (s *Session) Tick(now time.Time) bool {
	if s.status != SessionActive || !s.round.Tick(now) {
		return false
	}
	s.roundFinished()
	return true
}

func (s *Session) roundFinished() {
	r := s.round
	s.nextRoundAt = r.FinishedAt().Add(s.rules.TransitionDelay)
	s.logger.Info("Round finished", "round", r.Number(), "outcome", r.Outcome(), "points", r.Points(), "score", s.score)
	s.publish(RoundFinishedEvent{
		eventBase: s.base(r.FinishedAt()),
		Round:     r.Number(),
		Target:    r.Target(),
		Outcome:   r.Outcome(),
		Points:    r.Points(),
		Score:     s.score,
	})
}

// NextRoundAt is the earliest time a driver should advance past the
// finished current round. It is zero while the round is in progress.
func (s *Session) NextRoundAt() time.Time {
	return s.nextRoundAt
}

// ReadyToAdvance reports whether the current round has finished and the
// transition delay has elapsed at now.
func (s *Session) ReadyToAdvance(now time.Time) bool {
	return s.status == SessionActive && s.round.Status() == Finished && !now.Before(s.nextRoundAt)
}

// AdvanceRound moves to the next round, or completes the session and
// records the final score after the last one. The current round must have
// finished. Drivers decide when to call it; ReadyToAdvance honours the
// transition delay.
func (s *Session) AdvanceRound() error {
	if err := s.checkActive("advance round"); err != nil {
		return err
	}
	if s.round.Status() != Finished {
		return &StateError{Op: "advance round", State: s.round.Status().String()}
	}

	s.index++
	if s.index < len(s.targets) {
		s.startRound()
		return nil
	}

	s.index = len(s.targets) - 1
	s.status = SessionComplete
	return s.Finalize()
}

// Finalize records the final score on the leaderboard. It only acts on a
// complete session and writes at most once; later calls are no-ops.
func (s *Session) Finalize() error {
	if s.status != SessionComplete {
		return &StateError{Op: "finalize", State: s.status.String()}
	}
	if s.finalized {
		return nil
	}
	s.finalized = true
	if s.board != nil {
		s.best, s.improved = s.board.Record(s.player, s.score)
	} else {
		s.best, s.improved = s.score, true
	}
	s.logger.Info("Session completed", "score", s.score, "max", s.MaxScore(), "best", s.best)
	s.publish(SessionCompletedEvent{
		eventBase: s.base(s.clock.Now("session", "complete")),
		Player:    s.player,
		Score:     s.score,
		MaxScore:  s.MaxScore(),
		Best:      s.best,
		Improved:  s.improved,
	})
	return nil
}

// Abandon cancels an active session without touching the leaderboard.
// Abandoning a complete or already abandoned session does nothing.
func (s *Session) Abandon() {
	if s.status != SessionActive {
		return
	}
	s.status = SessionAbandoned
	s.logger.Info("Session abandoned", "round", s.index+1, "score", s.score)
	s.publish(SessionAbandonedEvent{
		eventBase: s.base(s.clock.Now("session", "abandon")),
		Player:    s.player,
		Score:     s.score,
		Round:     s.index + 1,
	})
}

func (s *Session) ID() string { return s.id }
func (s *Session) Player() string { return s.player }
func (s *Session) Score() int { return s.score }
func (s *Session) Status() SessionStatus { return s.status }
func (s *Session) Rounds() int { return len(s.targets) }
func (s *Session) Round() *Round { return s.round }
func (s *Session) RoundNumber() int { return s.index + 1 }
func (s *Session) StartedAt() time.Time { return s.startedAt }
func (s *Session) Rules() Config { return s.rules }

// MaxScore is the best achievable score: every round guessed from the
// opening hint.
func (s *Session) MaxScore() int {
	return len(s.targets) * s.rules.MaxDifficulty
}

// SessionSnapshot is a read-only view of a session for rendering.
type SessionSnapshot struct {
	ID          string        `json:"id"`
	Player      string        `json:"player"`
	Status      string        `json:"status"`
	RoundNumber int           `json:"round_number"`
	Rounds      int           `json:"rounds"`
	Score       int           `json:"score"`
	MaxScore    int           `json:"max_score"`
	Round       RoundSnapshot `json:"round"`
	NextRoundAt time.Time     `json:"next_round_at,omitzero"`
	Best        int           `json:"best,omitempty"`
	Improved    bool          `json:"improved,omitempty"`
}

// Snapshot returns the session as seen now by the session clock.
func (s *Session) Snapshot() SessionSnapshot {
	return s.SnapshotAt(s.clock.Now("session", "snapshot"))
}

// SnapshotAt returns the session as seen at now.
func (s *Session) SnapshotAt(now time.Time) SessionSnapshot {
	return SessionSnapshot{
		ID:          s.id,
		Player:      s.player,
		Status:      s.status.String(),
		RoundNumber: s.index + 1,
		Rounds:      len(s.targets),
		Score:       s.score,
		MaxScore:    s.MaxScore(),
		Round:       s.round.Snapshot(now),
		NextRoundAt: s.nextRoundAt,
		Best:        s.best,
		Improved:    s.improved,
	}
}
