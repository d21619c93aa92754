// Package leaderboard keeps each player's best session score for the life of
// the process. It is the only state shared between sessions, so every access
// goes through a mutex.
package leaderboard

import (
	"sort"
	"sync"
)

// DefaultTop is how many entries the start screen shows.
const DefaultTop = 5

// Entry is one player's best score.
type Entry struct {
	Player string `json:"player"`
	Score  int    `json:"score"`
}

// Board maps player names to their best cumulative score.
type Board struct {
	mu     sync.RWMutex
	scores map[string]int
}

// New returns an empty board.
func New() *Board {
	return &Board{scores: make(map[string]int)}
}

// Record stores max(existing, score) for player. It returns the player's
// best score after the write and whether this call raised it.
func (b *Board) Record(player string, score int) (best int, improved bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	prev, ok := b.scores[player]
	if ok && prev >= score {
		return prev, false
	}
	b.scores[player] = score
	return score, true
}

// Best returns the best score recorded for player.
func (b *Board) Best(player string) (int, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	s, ok := b.scores[player]
	return s, ok
}

// Top returns up to n entries ordered by score descending, ties broken by
// player name. n <= 0 returns every entry.
func (b *Board) Top(n int) []Entry {
	b.mu.RLock()
	entries := make([]Entry, 0, len(b.scores))
	for p, s := range b.scores {
		entries = append(entries, Entry{Player: p, Score: s})
	}
	b.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].Player < entries[j].Player
	})

	if n > 0 && n < len(entries) {
		entries = entries[:n]
	}
	return entries
}

// Len returns the number of players on the board.
func (b *Board) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.scores)
}
