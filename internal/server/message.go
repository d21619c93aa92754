package server

import (
	"encoding/json"
	"time"

	"github.com/lox/hintquiz/internal/game"
	"github.com/lox/hintquiz/internal/leaderboard"
)

// Message represents the base WebSocket message structure
type Message struct {
	Type      MessageType     `json:"type"`
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
	RequestID string          `json:"requestId,omitempty"`
}

// NewMessage creates a new message with the current timestamp
func NewMessage(messageType MessageType, data any) (*Message, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Message{
		Type:      messageType,
		Data:      dataBytes,
		Timestamp: time.Now(),
	}, nil
}

// Client → Server Messages

type StartSessionData struct {
	Player string `json:"player"`
	Rounds int    `json:"rounds"`
}

type SubmitGuessData struct {
	Guess string `json:"guess"`
}

type GetLeaderboardData struct {
	Limit int `json:"limit,omitempty"`
}

// Server → Client Messages

type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type SessionStartedData struct {
	Session game.SessionSnapshot `json:"session"`
}

// Round state reasons
const (
	ReasonHint    = "hint"
	ReasonGuess   = "guess"
	ReasonTimeout = "timeout"
	ReasonAdvance = "advance"
	ReasonAbandon = "abandon"
)

type GuessResultData struct {
	Guess      string  `json:"guess"`
	Correct    bool    `json:"correct"`
	Similarity float64 `json:"similarity"`
	Points     int     `json:"points"`
}

type RoundStateData struct {
	Reason  string               `json:"reason"`
	Session game.SessionSnapshot `json:"session"`
	Guess   *GuessResultData     `json:"guess,omitempty"`
	Hint    *game.Hint           `json:"hint,omitempty"`
}

type SessionCompleteData struct {
	Session     game.SessionSnapshot `json:"session"`
	Leaderboard []leaderboard.Entry  `json:"leaderboard"`
}

type LeaderboardData struct {
	Entries []leaderboard.Entry `json:"entries"`
}
