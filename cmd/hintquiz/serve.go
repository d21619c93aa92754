package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"

	"github.com/lox/hintquiz/cmd/hintquiz/shared"
	"github.com/lox/hintquiz/internal/catalog"
	"github.com/lox/hintquiz/internal/game"
	"github.com/lox/hintquiz/internal/history"
	"github.com/lox/hintquiz/internal/leaderboard"
	"github.com/lox/hintquiz/internal/server"
)

// ServeCmd runs the WebSocket server. Flags override the HCL config file.
type ServeCmd struct {
	Config      string `short:"c" default:"hintquiz-server.hcl" help:"Path to HCL configuration file"`
	Addr        string `short:"a" help:"Address to bind to (overrides config)"`
	Port        int    `short:"p" help:"Port to listen on (overrides config)"`
	LogLevel    string `short:"l" help:"Log level (overrides config)"`
	CatalogPath string `name:"catalog" help:"Hint catalog file, CSV or HCL (overrides config)"`
	History     string `help:"Write completed session transcripts here on shutdown (overrides config)"`
}

func (c *ServeCmd) Run() error {
	cfg, err := server.LoadServerConfig(c.Config)
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}

	if c.Addr != "" {
		cfg.Server.Address = c.Addr
	}
	if c.Port != 0 {
		cfg.Server.Port = c.Port
	}
	if c.LogLevel != "" {
		cfg.Server.LogLevel = c.LogLevel
	}
	if c.CatalogPath != "" {
		cfg.Catalog.Path = c.CatalogPath
	}
	if c.History != "" {
		cfg.Server.HistoryFile = c.History
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	rules, err := cfg.Rules()
	if err != nil {
		return err
	}
	tick, err := cfg.Tick()
	if err != nil {
		return err
	}

	logger, err := shared.SetupLogger(os.Stderr, cfg.Server.LogLevel)
	if err != nil {
		return err
	}

	loader := catalog.NewLoader(cfg.Catalog.Path)
	cat, err := loader.Get()
	if err != nil {
		return err
	}
	auditCatalog(logger, cat)

	bus := game.NewEventBus()
	recorder := historyRecorder(cfg.Server, logger)
	if recorder != nil {
		bus.Subscribe(recorder)
	}

	addr := cfg.GetServerAddress()
	srv := server.NewServer(addr, cat, leaderboard.New(), logger,
		server.WithRules(rules),
		server.WithEventBus(bus),
		server.WithTickInterval(tick),
		server.WithLeaderboardTop(cfg.Server.LeaderboardTop),
	)

	logger.Info("Starting hint quiz server",
		"addr", addr,
		"items", len(cat.Items()),
		"hints", cat.Len(),
		"round_time_limit", rules.RoundTimeLimit,
		"attempts", rules.StartingAttempts,
		"round_counts", rules.RoundCounts)

	ctx := shared.SetupSignalHandlerWithLogger(logger)
	go watchReload(ctx, shared.ReloadSignals(ctx), loader, srv, logger)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- srv.Start()
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutting down server...")
	case err := <-serverErr:
		if err != nil {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		logger.Error("Shutdown failed", "error", err)
	}

	if recorder != nil {
		n, err := recorder.Export(cfg.Server.HistoryFile)
		if err != nil {
			return fmt.Errorf("failed to export history: %w", err)
		}
		logger.Info("Exported session history", "file", cfg.Server.HistoryFile, "sessions", n)
	}
	return nil
}

// catalogSwapper is the part of the server a catalog reload updates.
type catalogSwapper interface {
	SetCatalog(cat game.Catalog)
}

// watchReload rereads the catalog on every signal until ctx is done.
func watchReload(ctx context.Context, signals <-chan os.Signal, loader *catalog.Loader, srv catalogSwapper, logger *log.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-signals:
			reloadCatalog(loader, srv, logger)
		}
	}
}

// reloadCatalog hands new sessions a freshly loaded catalog. A failed
// reload keeps the current one.
func reloadCatalog(loader *catalog.Loader, srv catalogSwapper, logger *log.Logger) bool {
	cat, err := loader.Reload()
	if err != nil {
		logger.Error("Catalog reload failed, keeping current catalog", "error", err)
		return false
	}
	auditCatalog(logger, cat)
	srv.SetCatalog(cat)
	logger.Info("Catalog reloaded", "items", len(cat.Items()), "hints", cat.Len())
	return true
}

// historyRecorder returns a bounded transcript recorder when a history file
// is configured, and nil otherwise.
func historyRecorder(settings server.ServerSettings, logger *log.Logger) *history.Recorder {
	if settings.HistoryFile == "" {
		return nil
	}
	return history.NewRecorder(logger, history.WithLimit(settings.HistoryLimit))
}

// auditCatalog logs data problems the engine tolerates.
func auditCatalog(logger *log.Logger, cat *catalog.Catalog) {
	for _, issue := range cat.Audit() {
		logger.Warn("Catalog issue", "item", issue.Item, "difficulty", issue.Difficulty, "kind", issue.Kind)
	}
}
