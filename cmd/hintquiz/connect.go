package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/coder/quartz"

	"github.com/lox/hintquiz/cmd/hintquiz/shared"
	"github.com/lox/hintquiz/internal/client"
	"github.com/lox/hintquiz/internal/game"
	"github.com/lox/hintquiz/internal/server"
	"github.com/lox/hintquiz/internal/tui"
)

// ConnectCmd plays against a remote server. Flags override the HCL config
// file.
type ConnectCmd struct {
	Config   string        `short:"c" default:"hintquiz-client.hcl" help:"Path to HCL configuration file"`
	Server   string        `short:"s" help:"Server URL to connect to (overrides config)"`
	Player   string        `short:"p" help:"Player name (overrides config)"`
	Rounds   int           `short:"r" help:"Number of rounds (overrides config)"`
	LogLevel string        `short:"l" help:"Log level (overrides config)"`
	LogFile  string        `help:"Log file path (overrides config)"`
	NoColor  bool          `help:"Disable colors"`
	Wait     time.Duration `help:"Wait up to this long for the server to become healthy"`
}

func (c *ConnectCmd) Run() error {
	cfg, err := client.LoadClientConfig(c.Config)
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}

	if c.Server != "" {
		cfg.Server.URL = c.Server
	}
	if c.Player != "" {
		cfg.Player.Name = c.Player
	}
	if c.Rounds != 0 {
		cfg.Player.Rounds = c.Rounds
	}
	if c.LogLevel != "" {
		cfg.UI.LogLevel = c.LogLevel
	}
	if c.LogFile != "" {
		cfg.UI.LogFile = c.LogFile
	}
	if c.NoColor {
		cfg.UI.NoColor = true
	}

	if cfg.Player.Name == "" {
		fmt.Print("Enter your player name: ")
		var input string
		_, _ = fmt.Scanln(&input)
		cfg.Player.Name = strings.TrimSpace(input)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logFile, err := shared.OpenLogFile(cfg.UI.LogFile)
	if err != nil {
		return err
	}
	defer func() { _ = logFile.Close() }()

	logger, err := shared.SetupLogger(logFile, cfg.UI.LogLevel)
	if err != nil {
		return err
	}
	logger.Info("Starting hint quiz client", "server", cfg.Server.URL, "player", cfg.Player.Name, "config", c.Config)

	if cfg.UI.NoColor {
		tui.DisableColor()
	}

	if c.Wait > 0 {
		ctx, cancel := context.WithTimeout(context.Background(), c.Wait)
		err := server.WaitForHealthy(ctx, cfg.Server.URL)
		cancel()
		if err != nil {
			return err
		}
	}

	wsClient := client.NewClient(cfg.Server.URL, logger)
	wsClient.SetConnectTimeout(cfg.ConnectTimeout())
	wsClient.SetRequestTimeout(cfg.RequestTimeout())
	if err := wsClient.Connect(); err != nil {
		return err
	}

	driver := tui.NewRemoteDriver(wsClient, logger)
	defer func() { _ = driver.Close() }()

	model := tui.NewModel(driver, quartz.NewReal(), logger, game.StandardRoundCounts())
	model.SetPlayer(cfg.Player.Name)
	model.StartWith(cfg.Player.Rounds)

	_, err = tea.NewProgram(model, tea.WithAltScreen()).Run()
	return err
}
