package server

import (
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/lox/hintquiz/internal/game"
	"github.com/lox/hintquiz/internal/leaderboard"
)

// ServerConfig represents the complete server configuration
type ServerConfig struct {
	Server  ServerSettings   `hcl:"server,block"`
	Game    *GameSettings    `hcl:"game,block"`
	Catalog *CatalogSettings `hcl:"catalog,block"`
}

// ServerSettings contains server-level configuration
type ServerSettings struct {
	Address        string `hcl:"address,optional"`
	Port           int    `hcl:"port,optional"`
	LogLevel       string `hcl:"log_level,optional"`
	TickInterval   string `hcl:"tick_interval,optional"`
	LeaderboardTop int    `hcl:"leaderboard_top,optional"`
	HistoryFile    string `hcl:"history_file,optional"`
	HistoryLimit   int    `hcl:"history_limit,optional"`
}

// GameSettings overrides the quiz rules. Durations use Go syntax ("45s").
type GameSettings struct {
	RoundTimeLimit  string  `hcl:"round_time_limit,optional"`
	Attempts        int     `hcl:"attempts,optional"`
	FuzzyThreshold  float64 `hcl:"fuzzy_threshold,optional"`
	TransitionDelay string  `hcl:"transition_delay,optional"`
	RoundCounts     []int   `hcl:"round_counts,optional"`
}

// CatalogSettings selects the hint catalog. An empty path uses the built-in
// canton catalog.
type CatalogSettings struct {
	Path string `hcl:"path,optional"`
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() *ServerConfig {
	rules := game.DefaultConfig()
	return &ServerConfig{
		Server: ServerSettings{
			Address:        "localhost",
			Port:           8080,
			LogLevel:       "info",
			TickInterval:   "1s",
			LeaderboardTop: leaderboard.DefaultTop,
			HistoryLimit:   1000,
		},
		Game: &GameSettings{
			RoundTimeLimit:  rules.RoundTimeLimit.String(),
			Attempts:        rules.StartingAttempts,
			FuzzyThreshold:  rules.FuzzyThreshold,
			TransitionDelay: rules.TransitionDelay.String(),
			RoundCounts:     game.StandardRoundCounts(),
		},
		Catalog: &CatalogSettings{},
	}
}

// LoadServerConfig loads server configuration from HCL file. A missing file
// yields the defaults.
func LoadServerConfig(filename string) (*ServerConfig, error) {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return DefaultServerConfig(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var config ServerConfig
	diags = gohcl.DecodeBody(file.Body, nil, &config)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	config.applyDefaults()
	return &config, nil
}

func (c *ServerConfig) applyDefaults() {
	defaults := DefaultServerConfig()

	if c.Server.Address == "" {
		c.Server.Address = defaults.Server.Address
	}
	if c.Server.Port == 0 {
		c.Server.Port = defaults.Server.Port
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = defaults.Server.LogLevel
	}
	if c.Server.TickInterval == "" {
		c.Server.TickInterval = defaults.Server.TickInterval
	}
	if c.Server.LeaderboardTop == 0 {
		c.Server.LeaderboardTop = defaults.Server.LeaderboardTop
	}
	if c.Server.HistoryLimit == 0 {
		c.Server.HistoryLimit = defaults.Server.HistoryLimit
	}

	if c.Game == nil {
		c.Game = defaults.Game
	} else {
		if c.Game.RoundTimeLimit == "" {
			c.Game.RoundTimeLimit = defaults.Game.RoundTimeLimit
		}
		if c.Game.Attempts == 0 {
			c.Game.Attempts = defaults.Game.Attempts
		}
		if c.Game.FuzzyThreshold == 0 {
			c.Game.FuzzyThreshold = defaults.Game.FuzzyThreshold
		}
		if c.Game.TransitionDelay == "" {
			c.Game.TransitionDelay = defaults.Game.TransitionDelay
		}
		if c.Game.RoundCounts == nil {
			c.Game.RoundCounts = defaults.Game.RoundCounts
		}
	}

	if c.Catalog == nil {
		c.Catalog = defaults.Catalog
	}
}

// Validate validates the server configuration
func (c *ServerConfig) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}
	if _, err := c.Tick(); err != nil {
		return err
	}
	if c.Server.LeaderboardTop < 1 {
		return fmt.Errorf("leaderboard_top must be positive, got %d", c.Server.LeaderboardTop)
	}
	if c.Server.HistoryLimit < 1 {
		return fmt.Errorf("history_limit must be positive, got %d", c.Server.HistoryLimit)
	}
	if _, err := c.Rules(); err != nil {
		return err
	}
	return nil
}

// Tick returns the parsed tick interval.
func (c *ServerConfig) Tick() (time.Duration, error) {
	d, err := time.ParseDuration(c.Server.TickInterval)
	if err != nil {
		return 0, fmt.Errorf("invalid tick_interval %q: %w", c.Server.TickInterval, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("tick_interval must be positive, got %s", d)
	}
	return d, nil
}

// Rules converts the game block into validated quiz rules.
func (c *ServerConfig) Rules() (game.Config, error) {
	rules := game.DefaultConfig()
	if c.Game == nil {
		rules.RoundCounts = game.StandardRoundCounts()
		return rules, nil
	}

	limit, err := time.ParseDuration(c.Game.RoundTimeLimit)
	if err != nil {
		return rules, fmt.Errorf("invalid round_time_limit %q: %w", c.Game.RoundTimeLimit, err)
	}
	delay, err := time.ParseDuration(c.Game.TransitionDelay)
	if err != nil {
		return rules, fmt.Errorf("invalid transition_delay %q: %w", c.Game.TransitionDelay, err)
	}

	rules.RoundTimeLimit = limit
	rules.TransitionDelay = delay
	rules.StartingAttempts = c.Game.Attempts
	rules.FuzzyThreshold = c.Game.FuzzyThreshold
	rules.RoundCounts = c.Game.RoundCounts
	if err := rules.Validate(); err != nil {
		return rules, fmt.Errorf("invalid game block: %w", err)
	}
	return rules, nil
}

// GetServerAddress returns the full server address
func (c *ServerConfig) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Address, c.Server.Port)
}
