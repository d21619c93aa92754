package history

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/hintquiz/internal/catalog"
	"github.com/lox/hintquiz/internal/game"
	"github.com/lox/hintquiz/internal/leaderboard"
	"github.com/lox/hintquiz/internal/randutil"
)

func testLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.ErrorLevel})
}

type fixture struct {
	cat      *catalog.Catalog
	bus      *game.SimpleEventBus
	recorder *Recorder
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	cat, err := catalog.Default()
	require.NoError(t, err)
	bus := game.NewEventBus()
	recorder := NewRecorder(testLogger(), opts...)
	bus.Subscribe(recorder)
	return &fixture{cat: cat, bus: bus, recorder: recorder}
}

func (f *fixture) session(t *testing.T, id string, seed int64) (*game.Session, *quartz.Mock) {
	t.Helper()
	clock := quartz.NewMock(t)
	s, err := game.NewSession(f.cat, leaderboard.New(), "ana", 4,
		game.WithClock(clock),
		game.WithRNG(randutil.New(seed)),
		game.WithLogger(testLogger()),
		game.WithEventBus(f.bus),
		game.WithID(id))
	require.NoError(t, err)
	return s, clock
}

func playOut(t *testing.T, s *game.Session, clock *quartz.Mock) {
	t.Helper()
	for s.Status() == game.SessionActive {
		_, err := s.SubmitGuess(s.Round().Target())
		require.NoError(t, err)
		clock.Advance(2 * time.Second).MustWait(context.Background())
		require.NoError(t, s.AdvanceRound())
	}
}

func TestRecorder_BuildsTranscript(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	s, clock := f.session(t, "s1", 1)

	_, err := s.RequestHint()
	require.NoError(t, err)
	_, err = s.SubmitGuess("atlantis")
	require.NoError(t, err)
	target := s.Round().Target()
	_, err = s.SubmitGuess(target)
	require.NoError(t, err)

	tr, ok := f.recorder.Transcript("s1")
	require.True(t, ok)
	assert.Equal(t, "ana", tr.Player)
	assert.Equal(t, StatusActive, tr.Status)
	assert.Equal(t, 4, tr.Rounds)
	require.Len(t, tr.RoundLog, 1)

	round := tr.RoundLog[0]
	assert.Equal(t, target, round.Target)
	assert.Equal(t, game.OutcomeCorrect, round.Outcome)
	assert.Equal(t, 9, round.Points)
	require.Len(t, round.Hints, 2)
	assert.Equal(t, 10, round.Hints[0].Difficulty)
	assert.Equal(t, 9, round.Hints[1].Difficulty)
	require.Len(t, round.Guesses, 2)
	assert.False(t, round.Guesses[0].Correct)
	assert.True(t, round.Guesses[1].Correct)

	clock.Advance(2 * time.Second).MustWait(context.Background())
	require.NoError(t, s.AdvanceRound())
	playOut(t, s, clock)

	tr, _ = f.recorder.Transcript("s1")
	assert.Equal(t, StatusComplete, tr.Status)
	assert.Equal(t, 39, tr.Score)
	assert.Equal(t, 40, tr.MaxScore)
	assert.Len(t, tr.RoundLog, 4)
}

func TestRecorder_TranscriptIsACopy(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.session(t, "s1", 1)

	tr, _ := f.recorder.Transcript("s1")
	tr.RoundLog[0].Hints[0].Text = "changed"

	again, _ := f.recorder.Transcript("s1")
	assert.NotEqual(t, "changed", again.RoundLog[0].Hints[0].Text)

	_, ok := f.recorder.Transcript("missing")
	assert.False(t, ok)
}

func TestRecorder_Export(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	done, clock := f.session(t, "done", 1)
	playOut(t, done, clock)
	abandoned, _ := f.session(t, "gone", 2)
	abandoned.Abandon()
	f.session(t, "live", 3)

	path := filepath.Join(t.TempDir(), "history.json")
	n, err := f.recorder.Export(path)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var got []Transcript
	require.NoError(t, json.Unmarshal(data, &got))
	require.Len(t, got, 1)
	assert.Equal(t, "done", got[0].SessionID)
	assert.Equal(t, 40, got[0].Score)

	tr, _ := f.recorder.Transcript("gone")
	assert.Equal(t, StatusAbandoned, tr.Status)
}

func TestRecorder_ExportEmpty(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	path := filepath.Join(t.TempDir(), "history.json")

	n, err := f.recorder.Export(path)
	require.NoError(t, err)
	assert.Zero(t, n)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, "[]", string(data))
}

func TestRecorder_Limit(t *testing.T) {
	t.Parallel()
	f := newFixture(t, WithLimit(2))

	live, _ := f.session(t, "live", 0)
	for i, id := range []string{"a", "b", "c"} {
		s, clock := f.session(t, id, int64(i+1))
		playOut(t, s, clock)
	}

	assert.Equal(t, 3, f.recorder.Len())
	_, ok := f.recorder.Transcript("a")
	assert.False(t, ok, "oldest finished transcript dropped")
	_, ok = f.recorder.Transcript("live")
	assert.True(t, ok, "active transcript kept")
	assert.Equal(t, game.SessionActive, live.Status())
}

func TestRecorder_IgnoresUnknownSessions(t *testing.T) {
	t.Parallel()
	r := NewRecorder(nil)
	r.OnEvent(game.RoundFinishedEvent{Round: 1})
	assert.Zero(t, r.Len())
}
