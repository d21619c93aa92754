package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/gorilla/websocket"

	"github.com/lox/hintquiz/internal/game"
	"github.com/lox/hintquiz/internal/leaderboard"
)

// Server hosts one quiz session per WebSocket connection. All sessions share
// the catalog, the leaderboard and the event bus.
type Server struct {
	addr        string
	upgrader    websocket.Upgrader
	connections map[*Connection]bool
	register    chan *Connection
	unregister  chan *Connection
	logger      *log.Logger
	mu          sync.RWMutex
	ctx         context.Context
	cancel      context.CancelFunc
	httpServer  *http.Server

	catalogMu    sync.RWMutex
	catalog      game.Catalog
	board        *leaderboard.Board
	rules        game.Config
	clock        quartz.Clock
	bus          game.EventBus
	tickInterval time.Duration
	top          int
}

// Option configures a Server.
type Option func(*Server)

// WithRules sets the quiz rules for every session.
func WithRules(rules game.Config) Option {
	return func(s *Server) { s.rules = rules }
}

// WithClock sets the clock used for sessions and tick delivery.
func WithClock(clock quartz.Clock) Option {
	return func(s *Server) { s.clock = clock }
}

// WithEventBus publishes every session's events on bus.
func WithEventBus(bus game.EventBus) Option {
	return func(s *Server) { s.bus = bus }
}

// WithTickInterval sets how often active sessions are ticked.
func WithTickInterval(d time.Duration) Option {
	return func(s *Server) { s.tickInterval = d }
}

// WithLeaderboardTop sets the default number of leaderboard entries sent.
func WithLeaderboardTop(n int) Option {
	return func(s *Server) { s.top = n }
}

func defaultRules() game.Config {
	rules := game.DefaultConfig()
	rules.RoundCounts = game.StandardRoundCounts()
	return rules
}

// NewServer creates a new WebSocket server
func NewServer(addr string, cat game.Catalog, board *leaderboard.Board, logger *log.Logger, opts ...Option) *Server {
	ctx, cancel := context.WithCancel(context.Background())

	s := &Server{
		addr: addr,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		connections:  make(map[*Connection]bool),
		register:     make(chan *Connection),
		unregister:   make(chan *Connection),
		logger:       logger.WithPrefix("server"),
		ctx:          ctx,
		cancel:       cancel,
		catalog:      cat,
		board:        board,
		rules:        defaultRules(),
		clock:        quartz.NewReal(),
		tickInterval: time.Second,
		top:          leaderboard.DefaultTop,
	}
	for _, opt := range opts {
		opt(s)
	}

	go s.run()
	return s
}

// SetCatalog replaces the catalog used for new sessions. Running sessions
// keep the catalog they started with.
func (s *Server) SetCatalog(cat game.Catalog) {
	s.catalogMu.Lock()
	defer s.catalogMu.Unlock()
	s.catalog = cat
}

func (s *Server) currentCatalog() game.Catalog {
	s.catalogMu.RLock()
	defer s.catalogMu.RUnlock()
	return s.catalog
}

// Handler returns the HTTP routes served by the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/leaderboard", s.handleLeaderboard)
	return mux
}

// Start serves until Stop is called.
func (s *Server) Start() error {
	s.mu.Lock()
	s.httpServer = &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	srv := s.httpServer
	s.mu.Unlock()

	s.logger.Info("Starting WebSocket server", "addr", s.addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Stop closes every connection, abandoning their sessions, and shuts the
// HTTP server down.
func (s *Server) Stop(ctx context.Context) error {
	s.cancel()

	s.mu.Lock()
	for conn := range s.connections {
		conn.abandon()
		_ = conn.Close() // Ignore close errors during shutdown
	}
	srv := s.httpServer
	s.mu.Unlock()

	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

// run handles connection lifecycle
func (s *Server) run() {
	for {
		select {
		case conn := <-s.register:
			s.mu.Lock()
			s.connections[conn] = true
			total := len(s.connections)
			s.mu.Unlock()
			s.logger.Info("Client connected", "total", total)

		case conn := <-s.unregister:
			s.mu.Lock()
			if _, ok := s.connections[conn]; ok {
				delete(s.connections, conn)
				conn.abandon()
				_ = conn.Close() // Ignore close errors during unregistration
			}
			total := len(s.connections)
			s.mu.Unlock()
			s.logger.Info("Client disconnected", "total", total)

		case <-s.ctx.Done():
			return
		}
	}
}

// handleWebSocket handles WebSocket upgrade requests
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("Failed to upgrade connection", "error", err)
		return
	}

	client := NewConnection(conn, s)
	select {
	case s.register <- client:
	case <-s.ctx.Done():
		_ = client.Close()
		return
	}
	client.Start()

	go func() {
		<-client.ctx.Done()
		select {
		case s.unregister <- client:
		case <-s.ctx.Done():
		}
	}()
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "OK") // Ignore write errors for health check
}

// handleLeaderboard serves the top entries as JSON. The optional n query
// parameter overrides the default size; n=0 returns every entry.
func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	n := s.top
	if raw := r.URL.Query().Get("n"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			http.Error(w, "invalid n", http.StatusBadRequest)
			return
		}
		n = parsed
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(LeaderboardData{Entries: s.board.Top(n)}); err != nil {
		s.logger.Error("Failed to encode leaderboard", "error", err)
	}
}

// ConnectionCount returns the number of registered connections.
func (s *Server) ConnectionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.connections)
}

// ActivePlayers returns the players with an active session.
func (s *Server) ActivePlayers() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var players []string
	for conn := range s.connections {
		if player := conn.ActivePlayer(); player != "" {
			players = append(players, player)
		}
	}
	return players
}
