package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/lox/hintquiz/internal/server" // Reuse message types
)

// Client is a WebSocket client for a quiz server.
type Client struct {
	serverURL      string
	connectTimeout time.Duration
	requestTimeout time.Duration
	conn           *websocket.Conn
	send           chan *server.Message
	receive        chan *server.Message
	logger         *log.Logger
	ctx            context.Context
	cancel         context.CancelFunc
	mu             sync.RWMutex
	connected      bool
	closeOnce      sync.Once

	// Event handlers
	eventHandlers map[server.MessageType][]EventHandler
	waiters       map[server.MessageType][]chan *server.Message
}

// EventHandler handles one incoming message. Handlers run on the client's
// dispatch goroutine, in arrival order.
type EventHandler func(*server.Message)

// NewClient creates a new WebSocket client
func NewClient(serverURL string, logger *log.Logger) *Client {
	ctx, cancel := context.WithCancel(context.Background())

	return &Client{
		serverURL:      serverURL,
		connectTimeout: 10 * time.Second,
		requestTimeout: 10 * time.Second,
		send:           make(chan *server.Message, 256),
		receive:        make(chan *server.Message, 256),
		logger:         logger.WithPrefix("client"),
		ctx:            ctx,
		cancel:         cancel,
		eventHandlers:  make(map[server.MessageType][]EventHandler),
		waiters:        make(map[server.MessageType][]chan *server.Message),
	}
}

// SetConnectTimeout bounds the WebSocket handshake.
func (c *Client) SetConnectTimeout(d time.Duration) {
	c.connectTimeout = d
}

// SetRequestTimeout bounds how long writing one request to the server may
// take before the connection is dropped.
func (c *Client) SetRequestTimeout(d time.Duration) {
	c.requestTimeout = d
}

// wsURL converts an http(s) or ws(s) base URL to the /ws endpoint.
func wsURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid server URL: %w", err)
	}

	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("invalid server URL scheme %q", u.Scheme)
	}

	u.Path = strings.TrimSuffix(u.Path, "/") + "/ws"
	return u.String(), nil
}

// Connect establishes a WebSocket connection to the server
func (c *Client) Connect() error {
	c.logger.Info("Connecting to server", "url", c.serverURL)

	target, err := wsURL(c.serverURL)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.ctx, c.connectTimeout)
	defer cancel()
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, target, nil)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()

	go c.readPump()
	go c.writePump()
	go c.eventProcessor()

	c.logger.Info("Connected to server")
	return nil
}

// Disconnect closes the WebSocket connection
func (c *Client) Disconnect() error {
	c.closeOnce.Do(func() {
		c.cancel()

		c.mu.Lock()
		defer c.mu.Unlock()

		if c.conn != nil {
			_ = c.conn.Close() // Ignore close errors during shutdown
			c.connected = false
		}

		c.logger.Info("Disconnected from server")
	})
	return nil
}

// Done is closed once the client has disconnected.
func (c *Client) Done() <-chan struct{} {
	return c.ctx.Done()
}

// IsConnected returns whether the client is connected
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// SendMessage sends a message to the server
func (c *Client) SendMessage(msg *server.Message) error {
	select {
	case c.send <- msg:
		return nil
	case <-c.ctx.Done():
		return c.ctx.Err()
	default:
		return fmt.Errorf("send buffer full")
	}
}

// readPump handles incoming messages from the server
func (c *Client) readPump() {
	defer func() {
		c.mu.Lock()
		c.connected = false
		c.mu.Unlock()
		_ = c.Disconnect()
	}()

	for {
		var msg server.Message
		err := c.conn.ReadJSON(&msg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.logger.Error("WebSocket error", "error", err)
			}
			return
		}

		c.logger.Debug("Received message", "type", msg.Type)

		select {
		case c.receive <- &msg:
		case <-c.ctx.Done():
			return
		}
	}
}

// writePump handles outgoing messages to the server
func (c *Client) writePump() {
	ticker := time.NewTicker(54 * time.Second) // Ping interval
	defer func() {
		ticker.Stop()
		_ = c.conn.Close() // Ignore close errors during cleanup
	}()

	for {
		select {
		case message := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.requestTimeout))
			if err := c.conn.WriteJSON(message); err != nil {
				c.logger.Error("Failed to write message", "error", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.ctx.Done():
			_ = c.conn.SetWriteDeadline(time.Now().Add(time.Second))
			_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// eventProcessor processes incoming messages and dispatches to handlers
func (c *Client) eventProcessor() {
	for {
		select {
		case msg := <-c.receive:
			c.handleMessage(msg)
		case <-c.ctx.Done():
			return
		}
	}
}

// handleMessage dispatches messages to registered handlers and waiters
func (c *Client) handleMessage(msg *server.Message) {
	c.mu.Lock()
	handlers := c.eventHandlers[msg.Type]
	waiters := c.waiters[msg.Type]
	delete(c.waiters, msg.Type)
	c.mu.Unlock()

	for _, w := range waiters {
		w <- msg
	}
	for _, handler := range handlers {
		handler(msg)
	}
	if len(handlers) == 0 && len(waiters) == 0 {
		c.logger.Debug("No handler for message type", "type", msg.Type)
	}
}

// AddEventHandler adds an event handler for a specific message type
func (c *Client) AddEventHandler(messageType server.MessageType, handler EventHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.eventHandlers[messageType] = append(c.eventHandlers[messageType], handler)
}

// WaitForMessage waits for the next message of a type. Only messages that
// arrive after the call are considered.
func (c *Client) WaitForMessage(messageType server.MessageType, timeout time.Duration) (*server.Message, error) {
	ch := make(chan *server.Message, 1)
	c.mu.Lock()
	c.waiters[messageType] = append(c.waiters[messageType], ch)
	c.mu.Unlock()

	select {
	case msg := <-ch:
		return msg, nil
	case <-time.After(timeout):
		return nil, fmt.Errorf("timeout waiting for %s", messageType)
	case <-c.ctx.Done():
		return nil, c.ctx.Err()
	}
}

func (c *Client) request(msgType server.MessageType, data any) error {
	msg, err := server.NewMessage(msgType, data)
	if err != nil {
		return err
	}
	return c.SendMessage(msg)
}

// StartSession asks the server to start a session.
func (c *Client) StartSession(player string, rounds int) error {
	return c.request(server.MessageTypeStartSession, server.StartSessionData{Player: player, Rounds: rounds})
}

// SubmitGuess sends a guess for the current round.
func (c *Client) SubmitGuess(guess string) error {
	return c.request(server.MessageTypeSubmitGuess, server.SubmitGuessData{Guess: guess})
}

// RequestHint asks for an easier hint.
func (c *Client) RequestHint() error {
	return c.request(server.MessageTypeRequestHint, struct{}{})
}

// NextRound advances past a finished round without waiting for the
// transition delay.
func (c *Client) NextRound() error {
	return c.request(server.MessageTypeNextRound, struct{}{})
}

// GetLeaderboard requests the top limit entries; zero uses the server
// default.
func (c *Client) GetLeaderboard(limit int) error {
	return c.request(server.MessageTypeGetLeaderboard, server.GetLeaderboardData{Limit: limit})
}

// Abandon cancels the current session.
func (c *Client) Abandon() error {
	return c.request(server.MessageTypeAbandon, struct{}{})
}

// Decode unmarshals a message payload.
func Decode[T any](msg *server.Message) (T, error) {
	var data T
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		return data, fmt.Errorf("failed to decode %s: %w", msg.Type, err)
	}
	return data, nil
}
