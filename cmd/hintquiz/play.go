package main

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/coder/quartz"

	"github.com/lox/hintquiz/cmd/hintquiz/shared"
	"github.com/lox/hintquiz/internal/catalog"
	"github.com/lox/hintquiz/internal/game"
	"github.com/lox/hintquiz/internal/leaderboard"
	"github.com/lox/hintquiz/internal/randutil"
	"github.com/lox/hintquiz/internal/tui"
)

// PlayCmd runs a session in-process with the terminal UI.
type PlayCmd struct {
	Player      string        `short:"p" help:"Player name (prompted if empty)"`
	Rounds      int           `short:"r" help:"Number of rounds; starts immediately when a player is set"`
	CatalogPath string        `name:"catalog" help:"Hint catalog file, CSV or HCL"`
	TimeLimit   time.Duration `default:"45s" help:"Time limit per round"`
	Attempts    int           `default:"2" help:"Wrong guesses allowed per round"`
	Seed        *int64        `help:"Deterministic RNG seed (optional)"`
	LogLevel    string        `short:"l" default:"info" help:"Log level"`
	LogFile     string        `default:"hintquiz.log" help:"Log file path"`
	NoColor     bool          `help:"Disable colors"`
}

func (c *PlayCmd) Run() error {
	logFile, err := shared.OpenLogFile(c.LogFile)
	if err != nil {
		return err
	}
	defer func() { _ = logFile.Close() }()

	logger, err := shared.SetupLogger(logFile, c.LogLevel)
	if err != nil {
		return err
	}

	cat, err := catalog.NewLoader(c.CatalogPath).Get()
	if err != nil {
		return err
	}
	auditCatalog(logger, cat)

	rules := game.DefaultConfig()
	rules.RoundTimeLimit = c.TimeLimit
	rules.StartingAttempts = c.Attempts
	rules.RoundCounts = game.StandardRoundCounts()
	if err := rules.Validate(); err != nil {
		return fmt.Errorf("invalid game settings: %w", err)
	}

	opts := []game.Option{game.WithConfig(rules)}
	if c.Seed != nil {
		logger.Info("Using deterministic seed", "seed", *c.Seed)
		opts = append(opts, game.WithRNG(randutil.New(*c.Seed)))
	}

	if c.NoColor {
		tui.DisableColor()
	}

	clock := quartz.NewReal()
	driver := tui.NewLocalDriver(cat, leaderboard.New(), clock, logger, opts...)
	defer func() { _ = driver.Close() }()

	model := tui.NewModel(driver, clock, logger, rules.RoundCounts)
	model.SetPlayer(c.Player)
	if c.Rounds > 0 {
		model.StartWith(c.Rounds)
	}

	_, err = tea.NewProgram(model, tea.WithAltScreen()).Run()
	return err
}
