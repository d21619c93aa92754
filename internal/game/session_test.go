package game

import (
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/hintquiz/internal/catalog"
	"github.com/lox/hintquiz/internal/leaderboard"
	"github.com/lox/hintquiz/internal/randutil"
)

func fourItemCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	var entries []catalog.Entry
	for _, item := range []string{"Bern", "Uri", "Zug", "Jura"} {
		entries = append(entries, fullTiers(item)...)
	}
	return newTestCatalog(t, entries...)
}

func newTestSession(t *testing.T, cat Catalog, board Recorder, rounds int, opts ...Option) (*Session, *quartz.Mock) {
	t.Helper()
	clock := quartz.NewMock(t)
	opts = append([]Option{WithClock(clock), WithRNG(randutil.New(42)), WithLogger(testLogger())}, opts...)
	s, err := NewSession(cat, board, "ana", rounds, opts...)
	require.NoError(t, err)
	return s, clock
}

func TestNewSession_ConfigErrors(t *testing.T) {
	t.Parallel()
	cat := defaultCatalog(t)

	tests := []struct {
		name   string
		player string
		rounds int
		opts   []Option
		field  string
	}{
		{"empty player", "", 4, nil, "player"},
		{"blank player", "   ", 4, nil, "player"},
		{"disallowed count", "ana", 5, []Option{WithRoundCounts(StandardRoundCounts()...)}, "rounds"},
		{"zero rounds", "ana", 0, nil, "rounds"},
		{"more rounds than items", "ana", 27, nil, "rounds"},
		{"bad attempts", "ana", 4, []Option{WithAttempts(0)}, "attempts"},
		{"bad threshold", "ana", 4, []Option{WithFuzzyThreshold(101)}, "fuzzy_threshold"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewSession(cat, leaderboard.New(), tt.player, tt.rounds, tt.opts...)
			assert.Nil(t, s)
			var cfgErr *ConfigError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.field, cfgErr.Field)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestNewSession_AllowedCounts(t *testing.T) {
	t.Parallel()
	cat := defaultCatalog(t)

	for _, rounds := range []int{4, 8, 12} {
		s, err := NewSession(cat, nil, "ana", rounds, WithLogger(testLogger()))
		require.NoError(t, err)
		assert.Equal(t, rounds, s.Rounds())
		assert.Equal(t, rounds*10, s.MaxScore())
	}

	for _, rounds := range []int{1, 5, 26} {
		s, err := NewSession(cat, nil, "ana", rounds, WithLogger(testLogger()))
		require.NoError(t, err)
		assert.Equal(t, rounds, s.Rounds())
	}

	single := newTestCatalog(t, fullTiers("Bern")...)
	s, err := NewSession(single, nil, "ana", 1, WithLogger(testLogger()))
	require.NoError(t, err)
	assert.Equal(t, "Bern", s.Round().Target())

	_, err = NewSession(single, nil, "ana", 2, WithLogger(testLogger()))
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestNewSession_DistinctDeterministicTargets(t *testing.T) {
	t.Parallel()
	cat := defaultCatalog(t)

	a, _ := newTestSession(t, cat, nil, 12)
	b, _ := newTestSession(t, cat, nil, 12)
	assert.Equal(t, a.targets, b.targets)

	seen := map[string]bool{}
	for _, target := range a.targets {
		assert.False(t, seen[target], "target %s repeated", target)
		assert.Contains(t, cat.Items(), target)
		seen[target] = true
	}

	assert.Equal(t, "ana", a.Player())
	assert.NotEmpty(t, a.ID())
	assert.Equal(t, SessionActive, a.Status())
	assert.Equal(t, 1, a.RoundNumber())
	assert.Equal(t, InProgress, a.Round().Status())
}

func TestSession_TrimsPlayerName(t *testing.T) {
	t.Parallel()
	s, err := NewSession(defaultCatalog(t), nil, "  ana ", 4, WithLogger(testLogger()))
	require.NoError(t, err)
	assert.Equal(t, "ana", s.Player())
}

func TestSession_PerfectGame(t *testing.T) {
	t.Parallel()
	board := leaderboard.New()
	s, clock := newTestSession(t, fourItemCatalog(t), board, 4)

	for i := range 4 {
		assert.Equal(t, i+1, s.RoundNumber())
		res, err := s.SubmitGuess(s.Round().Target())
		require.NoError(t, err)
		require.True(t, res.Correct)
		assert.Equal(t, (i+1)*10, s.Score())

		advance(t, clock, 2*time.Second)
		require.NoError(t, s.AdvanceRound())
	}

	assert.Equal(t, SessionComplete, s.Status())
	assert.Equal(t, 40, s.Score())
	assert.Equal(t, 40, s.MaxScore())
	best, ok := board.Best("ana")
	require.True(t, ok)
	assert.Equal(t, 40, best)

	snap := s.Snapshot()
	assert.Equal(t, "complete", snap.Status)
	assert.Equal(t, 4, snap.RoundNumber)
	assert.Equal(t, 40, snap.Best)
	assert.True(t, snap.Improved)
}

func TestSession_ScoreIsSumOfRoundPoints(t *testing.T) {
	t.Parallel()
	s, clock := newTestSession(t, fourItemCatalog(t), nil, 4)

	// round 1: three hints then correct (7 points)
	for range 3 {
		_, err := s.RequestHint()
		require.NoError(t, err)
	}
	_, err := s.SubmitGuess(s.Round().Target())
	require.NoError(t, err)
	advance(t, clock, 2*time.Second)
	require.NoError(t, s.AdvanceRound())

	// round 2: exhausted
	for range 2 {
		_, err := s.SubmitGuess("nowhere")
		require.NoError(t, err)
	}
	assert.Equal(t, OutcomeExhausted, s.Round().Outcome())
	advance(t, clock, 2*time.Second)
	require.NoError(t, s.AdvanceRound())

	// round 3: timeout
	assert.True(t, s.Tick(s.Round().StartedAt().Add(45*time.Second)))
	advance(t, clock, 47*time.Second)
	require.NoError(t, s.AdvanceRound())

	// round 4: all hints then correct (1 point)
	for {
		if _, err := s.RequestHint(); err != nil {
			break
		}
	}
	_, err = s.SubmitGuess(s.Round().Target())
	require.NoError(t, err)

	assert.Equal(t, 8, s.Score())
	assert.LessOrEqual(t, s.Score(), s.MaxScore())
}

func TestSession_AdvanceRequiresFinishedRound(t *testing.T) {
	t.Parallel()
	s, _ := newTestSession(t, fourItemCatalog(t), nil, 4)

	err := s.AdvanceRound()
	var stateErr *StateError
	require.ErrorAs(t, err, &stateErr)
	assert.Equal(t, "in_progress", stateErr.State)
	assert.Equal(t, 1, s.RoundNumber())
}

func TestSession_TransitionDelay(t *testing.T) {
	t.Parallel()
	s, clock := newTestSession(t, fourItemCatalog(t), nil, 4)
	assert.True(t, s.NextRoundAt().IsZero())
	assert.False(t, s.ReadyToAdvance(clock.Now()))

	_, err := s.SubmitGuess(s.Round().Target())
	require.NoError(t, err)
	finished := clock.Now()
	assert.Equal(t, finished.Add(2*time.Second), s.NextRoundAt())

	assert.False(t, s.ReadyToAdvance(finished.Add(1999*time.Millisecond)))
	assert.True(t, s.ReadyToAdvance(finished.Add(2*time.Second)))

	advance(t, clock, 2*time.Second)
	require.NoError(t, s.AdvanceRound())
	assert.True(t, s.NextRoundAt().IsZero())
	assert.Equal(t, clock.Now(), s.Round().StartedAt())
}

func TestSession_TimeoutViaMockClock(t *testing.T) {
	t.Parallel()
	s, clock := newTestSession(t, fourItemCatalog(t), nil, 4)

	advance(t, clock, 30*time.Second)
	assert.False(t, s.Tick(clock.Now()))
	assert.Equal(t, 15*time.Second, s.Snapshot().Round.TimeRemaining)

	advance(t, clock, 15*time.Second)
	assert.True(t, s.Tick(clock.Now()))
	assert.Equal(t, OutcomeTimeout, s.Round().Outcome())
	assert.Equal(t, 0, s.Score())
	assert.False(t, s.Tick(clock.Now()))
}

func TestSession_LateInputTimesOut(t *testing.T) {
	t.Parallel()

	t.Run("guess", func(t *testing.T) {
		bus := NewEventBus()
		events := &eventLog{}
		bus.Subscribe(events)
		s, clock := newTestSession(t, fourItemCatalog(t), nil, 4, WithEventBus(bus))
		target := s.Round().Target()

		advance(t, clock, 45500*time.Millisecond)
		_, err := s.SubmitGuess(target)
		var stateErr *StateError
		require.ErrorAs(t, err, &stateErr)
		assert.ErrorIs(t, err, ErrInvalidState)

		assert.Equal(t, OutcomeTimeout, s.Round().Outcome())
		assert.Equal(t, 0, s.Round().Points())
		assert.Equal(t, 0, s.Score())
		assert.Equal(t, s.Round().StartedAt().Add(45*time.Second), s.Round().FinishedAt())
		assert.Contains(t, events.types(), EventTypeRoundFinished)
		assert.NotContains(t, events.types(), EventTypeGuessEvaluated)
	})

	t.Run("hint", func(t *testing.T) {
		s, clock := newTestSession(t, fourItemCatalog(t), nil, 4)

		advance(t, clock, 45*time.Second)
		_, err := s.RequestHint()
		assert.ErrorIs(t, err, ErrInvalidState)
		assert.Equal(t, OutcomeTimeout, s.Round().Outcome())
		assert.Len(t, s.Round().Hints(), 1)
	})

	t.Run("just before the deadline", func(t *testing.T) {
		s, clock := newTestSession(t, fourItemCatalog(t), nil, 4)

		advance(t, clock, 44900*time.Millisecond)
		res, err := s.SubmitGuess(s.Round().Target())
		require.NoError(t, err)
		assert.True(t, res.Correct)
		assert.Equal(t, 10, s.Score())
	})
}

func TestSession_FinalizeWritesOnce(t *testing.T) {
	t.Parallel()
	board := &countingBoard{}
	s, clock := newTestSession(t, fourItemCatalog(t), board, 4)

	err := s.Finalize()
	assert.ErrorIs(t, err, ErrInvalidState, "finalize before completion")

	for range 4 {
		_, err := s.SubmitGuess(s.Round().Target())
		require.NoError(t, err)
		advance(t, clock, 2*time.Second)
		require.NoError(t, s.AdvanceRound())
	}

	require.NoError(t, s.Finalize())
	require.NoError(t, s.Finalize())
	assert.Equal(t, []int{40}, board.writes)

	assert.ErrorIs(t, s.AdvanceRound(), ErrInvalidState)
	_, err = s.SubmitGuess("bern")
	assert.ErrorIs(t, err, ErrInvalidState)
	_, err = s.RequestHint()
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestSession_AbandonSkipsLeaderboard(t *testing.T) {
	t.Parallel()
	board := &countingBoard{}
	s, _ := newTestSession(t, fourItemCatalog(t), board, 4)

	_, err := s.SubmitGuess(s.Round().Target())
	require.NoError(t, err)
	s.Abandon()
	s.Abandon()

	assert.Equal(t, SessionAbandoned, s.Status())
	assert.Empty(t, board.writes)
	assert.False(t, s.Tick(time.Now().Add(time.Hour)))
	assert.ErrorIs(t, s.AdvanceRound(), ErrInvalidState)
	assert.ErrorIs(t, s.Finalize(), ErrInvalidState)
}

func TestSession_SharedLeaderboardKeepsBest(t *testing.T) {
	t.Parallel()
	board := leaderboard.New()
	cat := fourItemCatalog(t)

	play := func(correct bool) {
		s, clock := newTestSession(t, cat, board, 4)
		for range 4 {
			guess := "nowhere"
			if correct {
				guess = s.Round().Target()
			}
			for s.Round().Status() != Finished {
				_, err := s.SubmitGuess(guess)
				require.NoError(t, err)
			}
			advance(t, clock, 2*time.Second)
			require.NoError(t, s.AdvanceRound())
		}
	}

	play(true)
	play(false)

	best, ok := board.Best("ana")
	require.True(t, ok)
	assert.Equal(t, 40, best)
}

func TestSession_PublishesEvents(t *testing.T) {
	t.Parallel()
	bus := NewEventBus()
	events := &eventLog{}
	bus.Subscribe(events)

	s, clock := newTestSession(t, fourItemCatalog(t), leaderboard.New(), 4, WithEventBus(bus), WithID("session-1"))

	_, err := s.RequestHint()
	require.NoError(t, err)
	_, err = s.SubmitGuess("")
	require.NoError(t, err)
	_, err = s.SubmitGuess("nowhere")
	require.NoError(t, err)
	_, err = s.SubmitGuess(s.Round().Target())
	require.NoError(t, err)
	advance(t, clock, 2*time.Second)
	require.NoError(t, s.AdvanceRound())

	assert.Equal(t, []EventType{
		EventTypeSessionStarted,
		EventTypeRoundStarted,
		EventTypeHintRevealed,
		EventTypeGuessEvaluated,
		EventTypeGuessEvaluated,
		EventTypeRoundFinished,
		EventTypeRoundStarted,
	}, events.types())

	for _, e := range events.events {
		assert.Equal(t, "session-1", e.SessionID())
	}

	finished := events.events[5].(RoundFinishedEvent)
	assert.Equal(t, OutcomeCorrect, finished.Outcome)
	assert.Equal(t, 9, finished.Points)
	assert.Equal(t, 9, finished.Score)

	bus.Unsubscribe(events)
	s.Abandon()
	assert.Len(t, events.events, 7)
}
