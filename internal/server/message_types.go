package server

// MessageType represents a WebSocket message type
type MessageType string

const (
	// Client to server messages
	MessageTypeStartSession   MessageType = "start_session"
	MessageTypeSubmitGuess    MessageType = "submit_guess"
	MessageTypeRequestHint    MessageType = "request_hint"
	MessageTypeNextRound      MessageType = "next_round"
	MessageTypeGetLeaderboard MessageType = "get_leaderboard"
	MessageTypeAbandon        MessageType = "abandon"

	// Server to client messages
	MessageTypeSessionStarted  MessageType = "session_started"
	MessageTypeRoundState      MessageType = "round_state"
	MessageTypeSessionComplete MessageType = "session_complete"
	MessageTypeLeaderboard     MessageType = "leaderboard"
	MessageTypeError           MessageType = "error"
)

// String returns the string representation of the message type
func (mt MessageType) String() string {
	return string(mt)
}

// Error codes sent in ErrorData.Code
const (
	ErrCodeInvalidMessage = "invalid_message"
	ErrCodeUnknownType    = "unknown_message_type"
	ErrCodeInvalidConfig  = "invalid_config"
	ErrCodeInvalidState   = "invalid_state"
	ErrCodeNoMoreHints    = "no_more_hints"
	ErrCodeNoSession      = "no_session"
	ErrCodeSessionActive  = "session_active"
	ErrCodeInternal       = "internal_error"
)
