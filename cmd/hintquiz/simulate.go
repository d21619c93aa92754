package main

import (
	"fmt"
	"os"
	"time"

	"github.com/lox/hintquiz/cmd/hintquiz/shared"
	"github.com/lox/hintquiz/internal/catalog"
	"github.com/lox/hintquiz/internal/game"
	"github.com/lox/hintquiz/internal/leaderboard"
	"github.com/lox/hintquiz/internal/simulator"
)

// SimulateCmd plays bot sessions concurrently against one leaderboard.
type SimulateCmd struct {
	Sessions    int           `short:"n" default:"30" help:"Number of sessions to play"`
	Rounds      int           `short:"r" default:"4" help:"Rounds per session"`
	Strategies  []string      `short:"s" default:"oracle,random,patient" help:"Bot strategies, assigned round-robin"`
	Workers     int           `short:"w" help:"Concurrent sessions (defaults to CPU count)"`
	Seed        *int64        `help:"Deterministic RNG seed (optional)"`
	Timeout     time.Duration `default:"1m" help:"Abort the run after this long"`
	CatalogPath string        `name:"catalog" help:"Hint catalog file, CSV or HCL"`
	Debug       bool          `help:"Enable debug logging"`
}

func (c *SimulateCmd) Run() error {
	level := "warn"
	if c.Debug {
		level = "debug"
	}
	logger, err := shared.SetupLogger(os.Stderr, level)
	if err != nil {
		return err
	}

	cat, err := catalog.NewLoader(c.CatalogPath).Get()
	if err != nil {
		return err
	}
	auditCatalog(logger, cat)

	seed := time.Now().UnixNano()
	if c.Seed != nil {
		seed = *c.Seed
	}

	sim := simulator.New(simulator.Config{
		Sessions:   c.Sessions,
		Rounds:     c.Rounds,
		Strategies: c.Strategies,
		Seed:       seed,
		Workers:    c.Workers,
		Timeout:    c.Timeout,
		Rules:      game.DefaultConfig(),
		Logger:     logger,
	}, cat, leaderboard.New())

	ctx := shared.SetupSignalHandlerWithLogger(logger)
	report, err := sim.Run(ctx)
	if err != nil {
		return fmt.Errorf("simulation failed: %w", err)
	}

	fmt.Printf("Seed: %d\n", seed)
	simulator.PrintSummary(os.Stdout, report)
	return nil
}
