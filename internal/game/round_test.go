package game

import (
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/hintquiz/internal/catalog"
	"github.com/lox/hintquiz/internal/randutil"
)

func TestNewRound_ShowsOpeningHint(t *testing.T) {
	t.Parallel()
	clock := quartz.NewMock(t)
	r := newTestRound(t, defaultCatalog(t), "Bern", clock)

	assert.Equal(t, InProgress, r.Status())
	assert.Equal(t, 10, r.Difficulty())
	assert.Equal(t, 10, r.PendingScore())
	assert.Equal(t, 2, r.AttemptsLeft())
	require.Len(t, r.Hints(), 1)
	assert.Equal(t, clock.Now(), r.StartedAt())
	assert.True(t, r.FinishedAt().IsZero())
}

func TestNewRound_MissingOpeningHint(t *testing.T) {
	t.Parallel()
	cat := newTestCatalog(t, catalog.Entry{Item: "Jura", Difficulty: 5, Category: "Geography", Text: "Borders France"})
	r := newTestRound(t, cat, "Jura", quartz.NewMock(t))

	assert.Equal(t, InProgress, r.Status())
	assert.Empty(t, r.Hints())
	assert.Equal(t, 10, r.PendingScore())

	h, err := r.RequestHint()
	require.NoError(t, err)
	assert.Equal(t, "Geography: Borders France", h.String())
	assert.Equal(t, 5, r.Difficulty())
	assert.Equal(t, 5, r.PendingScore())
}

func TestRound_CorrectGuessAwardsPendingScore(t *testing.T) {
	t.Parallel()
	r := newTestRound(t, defaultCatalog(t), "Bern", quartz.NewMock(t))

	res, err := r.SubmitGuess("bern")
	require.NoError(t, err)
	assert.True(t, res.Correct)
	assert.True(t, res.Finished)
	assert.Equal(t, 10, res.Points)
	assert.Equal(t, OutcomeCorrect, r.Outcome())
	assert.Equal(t, Finished, r.Status())

	snap := r.Snapshot(r.StartedAt())
	assert.Equal(t, "Correct! You earned 10 points.", snap.Feedback)
	assert.Empty(t, snap.Reveal)
	assert.Equal(t, "Bern", snap.Target)
}

func TestRound_GuessMatching(t *testing.T) {
	t.Parallel()
	cat := defaultCatalog(t)

	tests := []struct {
		name    string
		target  string
		guess   string
		correct bool
	}{
		{"exact", "Bern", "Bern", true},
		{"case and spaces", "Bern", "  BERN ", true},
		{"diacritics", "Genève", "geneve", true},
		{"typo", "Zürich", "zurch", true},
		{"wrong canton", "Bern", "uri", false},
		{"partial name", "Basel-Stadt", "basel", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRound(t, cat, tt.target, quartz.NewMock(t))
			res, err := r.SubmitGuess(tt.guess)
			require.NoError(t, err)
			assert.Equal(t, tt.correct, res.Correct, "similarity %.2f", res.Similarity)
		})
	}
}

func TestRound_EmptyGuessIsIgnored(t *testing.T) {
	t.Parallel()
	r := newTestRound(t, defaultCatalog(t), "Bern", quartz.NewMock(t))

	for _, guess := range []string{"", "   ", "\t"} {
		res, err := r.SubmitGuess(guess)
		require.NoError(t, err)
		assert.True(t, res.Ignored)
	}
	assert.Equal(t, 2, r.AttemptsLeft())
	assert.Equal(t, InProgress, r.Status())
}

func TestRound_WrongGuessesExhaustAttempts(t *testing.T) {
	t.Parallel()
	r := newTestRound(t, defaultCatalog(t), "Bern", quartz.NewMock(t))

	res, err := r.SubmitGuess("Uri")
	require.NoError(t, err)
	assert.False(t, res.Correct)
	assert.False(t, res.Finished)
	assert.Equal(t, 1, res.AttemptsLeft)
	assert.Equal(t, "Wrong guess. 1 attempt(s) left.", r.Snapshot(r.StartedAt()).Feedback)

	res, err = r.SubmitGuess("Luzern")
	require.NoError(t, err)
	assert.True(t, res.Finished)
	assert.Equal(t, OutcomeExhausted, res.Outcome)
	assert.Equal(t, 0, res.Points)

	snap := r.Snapshot(r.StartedAt())
	assert.Equal(t, 0, snap.AttemptsLeft)
	assert.Equal(t, "No attempts left.", snap.Feedback)
	assert.Equal(t, "The correct answer was: Bern", snap.Reveal)
}

func TestRound_RequestHintsDownToOne(t *testing.T) {
	t.Parallel()
	r := newTestRound(t, defaultCatalog(t), "Bern", quartz.NewMock(t))

	for i := 1; i <= 9; i++ {
		_, err := r.RequestHint()
		require.NoError(t, err)
		assert.Equal(t, 10-i, r.Difficulty())
		assert.Equal(t, max(1, 10-i), r.PendingScore())
	}
	assert.Equal(t, 1, r.Difficulty())
	assert.Equal(t, 1, r.PendingScore())
	assert.Len(t, r.Hints(), 10)
	assert.False(t, r.Snapshot(r.StartedAt()).MoreHints)

	_, err := r.RequestHint()
	require.ErrorIs(t, err, ErrNoMoreHints)
	assert.Equal(t, 1, r.Difficulty())
	assert.Equal(t, 1, r.PendingScore())
	assert.Len(t, r.Hints(), 10)

	res, err := r.SubmitGuess("bern")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Points)
}

func TestRound_RequestHintSkipsEmptyTiers(t *testing.T) {
	t.Parallel()
	cat := newTestCatalog(t,
		catalog.Entry{Item: "Uri", Difficulty: 10, Category: "History", Text: "Founding canton"},
		catalog.Entry{Item: "Uri", Difficulty: 7, Category: "Geography", Text: "Gotthard"},
		catalog.Entry{Item: "Uri", Difficulty: 2, Category: "Capital", Text: "Altdorf"},
	)
	r := newTestRound(t, cat, "Uri", quartz.NewMock(t))

	h, err := r.RequestHint()
	require.NoError(t, err)
	assert.Equal(t, "Gotthard", h.Text)
	assert.Equal(t, 7, r.PendingScore())
	assert.True(t, r.Snapshot(r.StartedAt()).MoreHints)

	h, err = r.RequestHint()
	require.NoError(t, err)
	assert.Equal(t, "Altdorf", h.Text)
	assert.Equal(t, 2, r.PendingScore())

	_, err = r.RequestHint()
	assert.ErrorIs(t, err, ErrNoMoreHints)
	assert.Equal(t, 2, r.Difficulty())
}

func TestRound_RequestHintNeverRepeats(t *testing.T) {
	t.Parallel()
	cat := newTestCatalog(t,
		catalog.Entry{Item: "Zug", Difficulty: 10, Category: "Economy", Text: "Low taxes"},
		catalog.Entry{Item: "Zug", Difficulty: 10, Category: "Economy", Text: "Crypto Valley"},
		catalog.Entry{Item: "Zug", Difficulty: 9, Category: "Economy", Text: "Low taxes"},
		catalog.Entry{Item: "Zug", Difficulty: 9, Category: "Geography", Text: "Smallest full canton"},
	)

	for seed := range 20 {
		r := NewRound(1, "Zug", DefaultConfig(), cat, quartz.NewMock(t), randutil.New(int64(seed)), testLogger())
		for {
			if _, err := r.RequestHint(); err != nil {
				require.ErrorIs(t, err, ErrNoMoreHints)
				break
			}
		}
		seen := map[Hint]bool{}
		for _, h := range r.Hints() {
			assert.False(t, seen[h], "hint %q shown twice", h)
			seen[h] = true
		}
	}
}

func TestRound_TickTimesOut(t *testing.T) {
	t.Parallel()
	clock := quartz.NewMock(t)
	r := newTestRound(t, defaultCatalog(t), "Bern", clock)
	start := r.StartedAt()

	assert.False(t, r.Tick(start.Add(44*time.Second+999*time.Millisecond)))
	assert.Equal(t, InProgress, r.Status())
	assert.Equal(t, time.Millisecond, r.Snapshot(start.Add(44*time.Second+999*time.Millisecond)).TimeRemaining)

	assert.True(t, r.Tick(start.Add(45*time.Second)))
	assert.Equal(t, OutcomeTimeout, r.Outcome())
	assert.Equal(t, start.Add(45*time.Second), r.FinishedAt())

	snap := r.Snapshot(start.Add(time.Minute))
	assert.Equal(t, "Time's up!", snap.Feedback)
	assert.Equal(t, "The correct answer was: Bern", snap.Reveal)
	assert.Zero(t, snap.TimeRemaining)

	assert.False(t, r.Tick(start.Add(2*time.Minute)), "tick on a finished round is a no-op")
}

func TestRound_FinishedRejectsOperations(t *testing.T) {
	t.Parallel()
	r := newTestRound(t, defaultCatalog(t), "Bern", quartz.NewMock(t))
	_, err := r.SubmitGuess("Bern")
	require.NoError(t, err)
	before := r.Snapshot(r.StartedAt())

	_, err = r.SubmitGuess("Bern")
	var stateErr *StateError
	require.ErrorAs(t, err, &stateErr)
	assert.Equal(t, "finished", stateErr.State)
	assert.ErrorIs(t, err, ErrInvalidState)

	_, err = r.RequestHint()
	assert.ErrorIs(t, err, ErrInvalidState)

	assert.Equal(t, before, r.Snapshot(r.StartedAt()))
}

func TestRound_SnapshotHidesTargetWhileInProgress(t *testing.T) {
	t.Parallel()
	r := newTestRound(t, defaultCatalog(t), "Bern", quartz.NewMock(t))

	snap := r.Snapshot(r.StartedAt().Add(10 * time.Second))
	assert.Empty(t, snap.Target)
	assert.Equal(t, "in_progress", snap.Status)
	assert.Equal(t, 35*time.Second, snap.TimeRemaining)
	assert.True(t, snap.MoreHints)

	snap.Hints[0] = Hint{Category: "changed"}
	assert.NotEqual(t, "changed", r.Hints()[0].Category)
}

func TestStatus_String(t *testing.T) {
	assert.Equal(t, "awaiting_first_hint", AwaitingFirstHint.String())
	assert.Equal(t, "in_progress", InProgress.String())
	assert.Equal(t, "finished", Finished.String())
	assert.Equal(t, "status(9)", Status(9).String())
}
