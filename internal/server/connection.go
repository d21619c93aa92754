package server

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/lox/hintquiz/internal/game"
)

// Connection represents a WebSocket connection to a client. It owns at most
// one session at a time; every operation on that session, ticks included,
// happens under mu.
type Connection struct {
	conn      *websocket.Conn
	send      chan *Message
	logger    *log.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
	server    *Server

	mu         sync.Mutex
	session    *game.Session
	stopTicker context.CancelFunc
}

// NewConnection creates a new connection wrapper
func NewConnection(conn *websocket.Conn, server *Server) *Connection {
	ctx, cancel := context.WithCancel(context.Background())

	return &Connection{
		conn:   conn,
		send:   make(chan *Message, 256),
		logger: server.logger.WithPrefix("conn"),
		ctx:    ctx,
		cancel: cancel,
		server: server,
	}
}

// Start begins handling the connection
func (c *Connection) Start() {
	go c.writePump()
	go c.readPump()
}

// Close closes the connection
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.cancel()
		err = c.conn.Close()
	})
	return err
}

// SendMessage queues a message for the client
func (c *Connection) SendMessage(msg *Message) error {
	select {
	case <-c.ctx.Done():
		return ErrConnectionClosed
	default:
	}

	select {
	case c.send <- msg:
		return nil
	case <-c.ctx.Done():
		return ErrConnectionClosed
	default:
		c.logger.Warn("Connection send buffer full, closing connection")
		_ = c.Close() // Ignore close errors
		return ErrConnectionClosed
	}
}

// ActivePlayer returns the player of the active session, if any.
func (c *Connection) ActivePlayer() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil || c.session.Status() != game.SessionActive {
		return ""
	}
	return c.session.Player()
}

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 8192
)

var (
	ErrConnectionClosed = websocket.ErrCloseSent
)

// readPump handles incoming messages from the client
func (c *Connection) readPump() {
	defer func() { _ = c.Close() }() // Ignore close errors during cleanup

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var msg Message
		err := c.conn.ReadJSON(&msg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.logger.Error("WebSocket error", "error", err)
			}
			return
		}

		c.handleMessage(&msg)
	}
}

// writePump handles outgoing messages to the client
func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close() // Ignore close errors during cleanup
	}()

	for {
		select {
		case message := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(message); err != nil {
				c.logger.Error("Failed to write message", "error", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.ctx.Done():
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// handleMessage processes incoming messages from the client
func (c *Connection) handleMessage(msg *Message) {
	c.logger.Debug("Received message", "type", msg.Type)

	switch msg.Type {
	case MessageTypeStartSession:
		var data StartSessionData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError(ErrCodeInvalidMessage, "Failed to parse start session data")
			return
		}
		c.handleStartSession(data)

	case MessageTypeSubmitGuess:
		var data SubmitGuessData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError(ErrCodeInvalidMessage, "Failed to parse guess data")
			return
		}
		c.handleSubmitGuess(data)

	case MessageTypeRequestHint:
		c.handleRequestHint()

	case MessageTypeNextRound:
		c.handleNextRound()

	case MessageTypeGetLeaderboard:
		var data GetLeaderboardData
		if len(msg.Data) > 0 && string(msg.Data) != "null" {
			if err := json.Unmarshal(msg.Data, &data); err != nil {
				c.sendError(ErrCodeInvalidMessage, "Failed to parse leaderboard request")
				return
			}
		}
		c.handleGetLeaderboard(data)

	case MessageTypeAbandon:
		c.handleAbandon()

	default:
		c.sendError(ErrCodeUnknownType, "Unknown message type: "+msg.Type.String())
	}
}

// sendError sends an error message to the client
func (c *Connection) sendError(code, message string) {
	errorMsg, err := NewMessage(MessageTypeError, ErrorData{
		Code:    code,
		Message: message,
	})
	if err != nil {
		c.logger.Error("Failed to create error message", "error", err)
		return
	}

	_ = c.SendMessage(errorMsg) // Ignore send errors during error handling
}

// sendSessionError maps engine errors to error codes.
func (c *Connection) sendSessionError(err error) {
	var cfgErr *game.ConfigError
	switch {
	case errors.As(err, &cfgErr):
		c.sendError(ErrCodeInvalidConfig, err.Error())
	case errors.Is(err, game.ErrNoMoreHints):
		c.sendError(ErrCodeNoMoreHints, "No more hints available.")
	case errors.Is(err, game.ErrInvalidState):
		c.sendError(ErrCodeInvalidState, err.Error())
	default:
		c.logger.Error("Session operation failed", "error", err)
		c.sendError(ErrCodeInternal, err.Error())
	}
}

func (c *Connection) reply(msgType MessageType, data any) {
	msg, err := NewMessage(msgType, data)
	if err != nil {
		c.logger.Error("Failed to create message", "type", msgType, "error", err)
		return
	}
	_ = c.SendMessage(msg) // Ignore send errors
}

// activeSession returns the session if it is active, or sends an error.
// Callers hold mu.
func (c *Connection) activeSession() *game.Session {
	if c.session == nil || c.session.Status() != game.SessionActive {
		c.sendError(ErrCodeNoSession, "No active session")
		return nil
	}
	return c.session
}

func (c *Connection) handleStartSession(data StartSessionData) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session != nil && c.session.Status() == game.SessionActive {
		c.sendError(ErrCodeSessionActive, "A session is already in progress")
		return
	}

	srv := c.server
	opts := []game.Option{
		game.WithConfig(srv.rules),
		game.WithClock(srv.clock),
		game.WithLogger(c.logger),
	}
	if srv.bus != nil {
		opts = append(opts, game.WithEventBus(srv.bus))
	}

	session, err := game.NewSession(srv.currentCatalog(), srv.board, data.Player, data.Rounds, opts...)
	if err != nil {
		c.sendSessionError(err)
		return
	}
	c.session = session
	c.logger.Info("Session started", "session", session.ID(), "player", session.Player(), "rounds", session.Rounds())

	c.startTicker()
	c.reply(MessageTypeSessionStarted, SessionStartedData{Session: session.Snapshot()})
}

// startTicker delivers ticks to the current session until it ends or the
// connection closes. Callers hold mu.
func (c *Connection) startTicker() {
	if c.stopTicker != nil {
		c.stopTicker()
	}
	ctx, cancel := context.WithCancel(c.ctx)
	c.stopTicker = cancel
	session := c.session

	c.server.clock.TickerFunc(ctx, c.server.tickInterval, func() error {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.session != session || session.Status() != game.SessionActive {
			return context.Canceled
		}
		c.tick(session)
		return nil
	}, "server", "tick")
}

// tick times out the current round and advances past finished rounds once
// the transition delay has passed. Callers hold mu.
func (c *Connection) tick(session *game.Session) {
	now := c.server.clock.Now("server", "tick")
	c.expire(session, now)
	if session.ReadyToAdvance(now) {
		c.advance(session)
	}
}

// expire reports a timeout if the round deadline passed before now.
// Callers hold mu.
func (c *Connection) expire(session *game.Session, now time.Time) bool {
	if !session.Tick(now) {
		return false
	}
	c.reply(MessageTypeRoundState, RoundStateData{Reason: ReasonTimeout, Session: session.SnapshotAt(now)})
	return true
}

// advance moves the session on and reports the new state. Callers hold mu.
func (c *Connection) advance(session *game.Session) {
	if err := session.AdvanceRound(); err != nil {
		c.sendSessionError(err)
		return
	}
	if session.Status() == game.SessionComplete {
		c.logger.Info("Session complete", "session", session.ID(), "score", session.Score())
		c.reply(MessageTypeSessionComplete, SessionCompleteData{
			Session:     session.Snapshot(),
			Leaderboard: c.server.board.Top(c.server.top),
		})
		return
	}
	c.reply(MessageTypeRoundState, RoundStateData{Reason: ReasonAdvance, Session: session.Snapshot()})
}

func (c *Connection) handleSubmitGuess(data SubmitGuessData) {
	c.mu.Lock()
	defer c.mu.Unlock()

	session := c.activeSession()
	if session == nil {
		return
	}
	if c.expire(session, c.server.clock.Now("server", "guess")) {
		return
	}
	res, err := session.SubmitGuess(data.Guess)
	if err != nil {
		c.sendSessionError(err)
		return
	}
	c.reply(MessageTypeRoundState, RoundStateData{
		Reason:  ReasonGuess,
		Session: session.Snapshot(),
		Guess: &GuessResultData{
			Guess:      data.Guess,
			Correct:    res.Correct,
			Similarity: res.Similarity,
			Points:     res.Points,
		},
	})
}

func (c *Connection) handleRequestHint() {
	c.mu.Lock()
	defer c.mu.Unlock()

	session := c.activeSession()
	if session == nil {
		return
	}
	if c.expire(session, c.server.clock.Now("server", "hint")) {
		return
	}
	hint, err := session.RequestHint()
	if err != nil {
		c.sendSessionError(err)
		return
	}
	c.reply(MessageTypeRoundState, RoundStateData{Reason: ReasonHint, Session: session.Snapshot(), Hint: &hint})
}

// handleNextRound advances without waiting for the transition delay.
func (c *Connection) handleNextRound() {
	c.mu.Lock()
	defer c.mu.Unlock()

	session := c.activeSession()
	if session == nil {
		return
	}
	c.advance(session)
}

func (c *Connection) handleGetLeaderboard(data GetLeaderboardData) {
	limit := data.Limit
	if limit == 0 {
		limit = c.server.top
	}
	c.reply(MessageTypeLeaderboard, LeaderboardData{Entries: c.server.board.Top(limit)})
}

func (c *Connection) handleAbandon() {
	c.mu.Lock()
	defer c.mu.Unlock()

	session := c.activeSession()
	if session == nil {
		return
	}
	c.abandonLocked()
	c.reply(MessageTypeRoundState, RoundStateData{Reason: ReasonAbandon, Session: session.Snapshot()})
}

// abandon cancels the active session, if any, without a leaderboard write.
func (c *Connection) abandon() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.abandonLocked()
}

func (c *Connection) abandonLocked() {
	if c.stopTicker != nil {
		c.stopTicker()
		c.stopTicker = nil
	}
	if c.session != nil && c.session.Status() == game.SessionActive {
		c.logger.Info("Session abandoned", "session", c.session.ID(), "player", c.session.Player())
		c.session.Abandon()
	}
}
