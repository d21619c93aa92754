package game

import (
	"fmt"
	"io"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/lox/hintquiz/internal/catalog"
	"github.com/lox/hintquiz/internal/match"
	"github.com/lox/hintquiz/internal/randutil"
)

// Hint is a hint shown to the player.
type Hint = catalog.Hint

// HintSource is the read-only catalog view a round draws hints from.
type HintSource interface {
	HintsFor(item string, difficulty int) []catalog.Entry
	HintsBelow(item string, maxDifficulty int, excluding map[catalog.Hint]bool) []catalog.Entry
}

// Status is the lifecycle state of a round.
type Status int

const (
	AwaitingFirstHint Status = iota
	InProgress
	Finished
)

func (s Status) String() string {
	switch s {
	case AwaitingFirstHint:
		return "awaiting_first_hint"
	case InProgress:
		return "in_progress"
	case Finished:
		return "finished"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Outcome records why a round finished.
type Outcome string

const (
	OutcomeNone      Outcome = ""
	OutcomeCorrect   Outcome = "correct"
	OutcomeExhausted Outcome = "exhausted"
	OutcomeTimeout   Outcome = "timeout"
)

// GuessResult describes the effect of one SubmitGuess call.
type GuessResult struct {
	Ignored      bool    // empty guess, nothing changed
	Correct      bool
	Similarity   float64 // 0-100
	Points       int     // awarded when Correct
	AttemptsLeft int
	Finished     bool
	Outcome      Outcome
}

// Round is a single hidden-item round. It is not safe for concurrent use.
type Round struct {
	number       int
	target       string
	difficulty   int
	pendingScore int
	hints        []Hint
	shown        map[Hint]bool
	attemptsLeft int
	startedAt    time.Time
	finishedAt   time.Time
	status       Status
	outcome      Outcome
	points       int
	feedback     string
	reveal       string

	rules   Config
	source  HintSource
	matcher match.Matcher
	clock   quartz.Clock
	rng     *rand.Rand
	logger  *log.Logger
}

// NewRound starts a round for target at the clock's current time and shows the opening hint, one
// picked at random among the target's hints at the maximum difficulty. A
// target without such a hint starts with no hints; this is logged, not an
// error.
func NewRound(number int, target string, rules Config, source HintSource, clock quartz.Clock, rng *rand.Rand, logger *log.Logger) *Round {
	if clock == nil {
		clock = quartz.NewReal()
	}
	now := clock.Now("round", "start")
	if rng == nil {
		rng = randutil.New(now.UnixNano())
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	r := &Round{
		number:       number,
		target:       target,
		difficulty:   rules.MaxDifficulty,
		pendingScore: rules.MaxDifficulty,
		shown:        make(map[Hint]bool),
		attemptsLeft: rules.StartingAttempts,
		startedAt:    now,
		status:       AwaitingFirstHint,
		rules:        rules,
		source:       source,
		matcher:      match.NewMatcher(rules.FuzzyThreshold),
		clock:        clock,
		rng:          rng,
		logger:       logger,
	}

	if entry, ok := randutil.Pick(rng, source.HintsFor(target, rules.MaxDifficulty)); ok {
		r.show(entry.Hint())
	} else {
		logger.Warn("No opening hint for item", "item", target, "difficulty", rules.MaxDifficulty)
	}
	r.status = InProgress
	return r
}

func (r *Round) show(h Hint) {
	r.hints = append(r.hints, h)
	r.shown[h] = true
}

// SubmitGuess evaluates a guess against the target. An empty guess is
// ignored and consumes no attempt.
func (r *Round) SubmitGuess(text string) (GuessResult, error) {
	if r.status == Finished {
		return GuessResult{}, &StateError{Op: "submit guess", State: r.status.String()}
	}
	if match.Normalize(text) == "" {
		return GuessResult{Ignored: true, AttemptsLeft: r.attemptsLeft}, nil
	}

	correct, similarity := r.matcher.Match(text, r.target)
	if correct {
		r.points = r.pendingScore
		r.finish(OutcomeCorrect, fmt.Sprintf("Correct! You earned %d points.", r.points), r.clock.Now("round", "finish"))
	} else {
		r.attemptsLeft--
		if r.attemptsLeft <= 0 {
			r.attemptsLeft = 0
			r.finish(OutcomeExhausted, "No attempts left.", r.clock.Now("round", "finish"))
		} else {
			r.feedback = fmt.Sprintf("Wrong guess. %d attempt(s) left.", r.attemptsLeft)
		}
	}

	return GuessResult{
		Correct:      correct,
		Similarity:   similarity,
		Points:       r.points,
		AttemptsLeft: r.attemptsLeft,
		Finished:     r.status == Finished,
		Outcome:      r.outcome,
	}, nil
}

// RequestHint reveals one unseen hint from the nearest easier tier that has
// one and lowers the pending score to that tier (minimum 1). When no easier
// tier has an unseen hint it returns ErrNoMoreHints and the round is
// unchanged.
func (r *Round) RequestHint() (Hint, error) {
	if r.status == Finished {
		return Hint{}, &StateError{Op: "request hint", State: r.status.String()}
	}
	for level := r.difficulty - 1; level >= catalog.MinDifficulty; level-- {
		unseen := slices.DeleteFunc(r.source.HintsFor(r.target, level), func(e catalog.Entry) bool {
			return r.shown[e.Hint()]
		})
		entry, ok := randutil.Pick(r.rng, unseen)
		if !ok {
			continue
		}
		h := entry.Hint()
		r.show(h)
		r.difficulty = level
		r.pendingScore = max(1, level)
		return h, nil
	}
	return Hint{}, ErrNoMoreHints
}

// Tick finishes the round with a timeout once now is at least the time
// limit past the start. It reports whether this call finished the round.
func (r *Round) Tick(now time.Time) bool {
	if r.status == Finished {
		return false
	}
	if now.Sub(r.startedAt) < r.rules.RoundTimeLimit {
		return false
	}
	r.finish(OutcomeTimeout, "Time's up!", r.startedAt.Add(r.rules.RoundTimeLimit))
	return true
}

func (r *Round) finish(outcome Outcome, feedback string, at time.Time) {
	r.status = Finished
	r.outcome = outcome
	r.feedback = feedback
	r.finishedAt = at
	if outcome != OutcomeCorrect {
		r.reveal = "The correct answer was: " + r.target
	}
	r.logger.Debug("Round finished", "round", r.number, "outcome", outcome, "points", r.points)
}

func (r *Round) Number() int { return r.number }
func (r *Round) Status() Status { return r.status }
func (r *Round) Outcome() Outcome { return r.outcome }
func (r *Round) Points() int { return r.points }
func (r *Round) Difficulty() int { return r.difficulty }
func (r *Round) PendingScore() int { return r.pendingScore }
func (r *Round) AttemptsLeft() int { return r.attemptsLeft }
func (r *Round) StartedAt() time.Time { return r.startedAt }

// FinishedAt is zero until the round has finished. A timed-out round
// finishes exactly at its deadline.
func (r *Round) FinishedAt() time.Time { return r.finishedAt }

// Hints returns a copy of the hints shown so far, oldest first.
func (r *Round) Hints() []Hint {
	return slices.Clone(r.hints)
}

// Target returns the hidden item.
func (r *Round) Target() string { return r.target }

// RoundSnapshot is a read-only view of a round for rendering. Target is
// only set once the round has finished.
type RoundSnapshot struct {
	Number        int           `json:"number"`
	Status        string        `json:"status"`
	Difficulty    int           `json:"difficulty"`
	PendingScore  int           `json:"pending_score"`
	Hints         []Hint        `json:"hints"`
	AttemptsLeft  int           `json:"attempts_left"`
	TimeRemaining time.Duration `json:"time_remaining"`
	MoreHints     bool          `json:"more_hints"`
	Feedback      string        `json:"feedback,omitempty"`
	Reveal        string        `json:"reveal,omitempty"`
	Outcome       Outcome       `json:"outcome,omitempty"`
	Points        int           `json:"points"`
	Target        string        `json:"target,omitempty"`
}

// Snapshot returns the round as seen at now.
func (r *Round) Snapshot(now time.Time) RoundSnapshot {
	snap := RoundSnapshot{
		Number:       r.number,
		Status:       r.status.String(),
		Difficulty:   r.difficulty,
		PendingScore: r.pendingScore,
		Hints:        r.Hints(),
		AttemptsLeft: r.attemptsLeft,
		Feedback:     r.feedback,
		Reveal:       r.reveal,
		Outcome:      r.outcome,
		Points:       r.points,
	}
	if snap.Hints == nil {
		snap.Hints = []Hint{}
	}

	elapsed := now.Sub(r.startedAt)
	if r.status == Finished {
		elapsed = r.finishedAt.Sub(r.startedAt)
		snap.Target = r.target
	} else {
		snap.MoreHints = len(r.source.HintsBelow(r.target, r.difficulty, r.shown)) > 0
	}
	snap.TimeRemaining = max(0, r.rules.RoundTimeLimit-elapsed)
	return snap
}
