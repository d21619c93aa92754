package game

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/stretchr/testify/require"

	"github.com/lox/hintquiz/internal/catalog"
	"github.com/lox/hintquiz/internal/randutil"
)

func testLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.ErrorLevel})
}

// fullTiers builds one hint per difficulty from 10 down to 1 for item.
func fullTiers(item string) []catalog.Entry {
	entries := make([]catalog.Entry, 0, catalog.MaxDifficulty)
	for d := catalog.MaxDifficulty; d >= catalog.MinDifficulty; d-- {
		entries = append(entries, catalog.Entry{
			Item:       item,
			Difficulty: d,
			Category:   "Clue",
			Text:       item + " clue " + string(rune('A'+d)),
		})
	}
	return entries
}

func newTestCatalog(t *testing.T, entries ...catalog.Entry) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.New(entries)
	require.NoError(t, err)
	return cat
}

func defaultCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.Default()
	require.NoError(t, err)
	return cat
}

func newTestRound(t *testing.T, cat HintSource, target string, clock quartz.Clock) *Round {
	t.Helper()
	return NewRound(1, target, DefaultConfig(), cat, clock, randutil.New(7), testLogger())
}

func advance(t *testing.T, clock *quartz.Mock, d time.Duration) {
	t.Helper()
	clock.Advance(d).MustWait(context.Background())
}

// countingBoard records every write.
type countingBoard struct {
	writes []int
}

func (b *countingBoard) Record(player string, score int) (int, bool) {
	b.writes = append(b.writes, score)
	best := 0
	for _, s := range b.writes {
		best = max(best, s)
	}
	return best, best == score
}

// eventLog collects published events.
type eventLog struct {
	events []Event
}

func (l *eventLog) OnEvent(event Event) {
	l.events = append(l.events, event)
}

func (l *eventLog) types() []EventType {
	types := make([]EventType, len(l.events))
	for i, e := range l.events {
		types[i] = e.EventType()
	}
	return types
}
