package game

import (
	"fmt"
	"io"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/lox/hintquiz/internal/catalog"
	"github.com/lox/hintquiz/internal/match"
)

// Config holds the tunable rules of a quiz.
type Config struct {
	MaxDifficulty    int           // opening tier and starting pending score
	StartingAttempts int           // wrong guesses allowed per round
	RoundTimeLimit   time.Duration // time budget per round
	FuzzyThreshold   float64       // token-set similarity accepted as correct (0-100)
	TransitionDelay  time.Duration // pause between a finished round and the next
	RoundCounts      []int         // allowed rounds per session; empty allows any
}

// DefaultConfig returns the standard rules. Any round count up to the
// catalog size is allowed; front-ends narrow it to StandardRoundCounts.
func DefaultConfig() Config {
	return Config{
		MaxDifficulty:    catalog.MaxDifficulty,
		StartingAttempts: 2,
		RoundTimeLimit:   45 * time.Second,
		FuzzyThreshold:   match.DefaultThreshold,
		TransitionDelay:  2 * time.Second,
	}
}

// StandardRoundCounts returns the session lengths offered to players.
func StandardRoundCounts() []int {
	return []int{4, 8, 12}
}

// Validate checks that the rules are playable.
func (c Config) Validate() error {
	if c.MaxDifficulty < catalog.MinDifficulty || c.MaxDifficulty > catalog.MaxDifficulty {
		return &ConfigError{Field: "max_difficulty", Reason: fmt.Sprintf("must be between %d and %d", catalog.MinDifficulty, catalog.MaxDifficulty)}
	}
	if c.StartingAttempts < 1 {
		return &ConfigError{Field: "attempts", Reason: "must be at least 1"}
	}
	if c.RoundTimeLimit <= 0 {
		return &ConfigError{Field: "round_time_limit", Reason: "must be positive"}
	}
	if c.FuzzyThreshold <= 0 || c.FuzzyThreshold > 100 {
		return &ConfigError{Field: "fuzzy_threshold", Reason: "must be in (0, 100]"}
	}
	if c.TransitionDelay < 0 {
		return &ConfigError{Field: "transition_delay", Reason: "must not be negative"}
	}
	for _, n := range c.RoundCounts {
		if n < 1 {
			return &ConfigError{Field: "round_counts", Reason: fmt.Sprintf("invalid round count %d", n)}
		}
	}
	return nil
}

// AllowsRounds reports whether a session of n rounds may be started.
func (c Config) AllowsRounds(n int) bool {
	if n < 1 {
		return false
	}
	return len(c.RoundCounts) == 0 || slices.Contains(c.RoundCounts, n)
}

// Option configures a Session during creation.
type Option func(*sessionConfig)

type sessionConfig struct {
	rules  Config
	clock  quartz.Clock
	rng    *rand.Rand
	logger *log.Logger
	bus    EventBus
	id     string
}

func defaultSessionConfig() *sessionConfig {
	return &sessionConfig{
		rules:  DefaultConfig(),
		clock:  quartz.NewReal(),
		logger: log.New(io.Discard),
	}
}

// WithConfig replaces the default rules.
func WithConfig(cfg Config) Option {
	return func(c *sessionConfig) {
		c.rules = cfg
	}
}

// WithClock sets the clock used for round start times and ticks without an
// explicit time.
func WithClock(clock quartz.Clock) Option {
	return func(c *sessionConfig) {
		c.clock = clock
	}
}

// WithRNG sets the RNG used for target sampling and hint picks.
func WithRNG(rng *rand.Rand) Option {
	return func(c *sessionConfig) {
		c.rng = rng
	}
}

// WithLogger sets the logger.
func WithLogger(logger *log.Logger) Option {
	return func(c *sessionConfig) {
		c.logger = logger
	}
}

// WithEventBus publishes session events on bus.
func WithEventBus(bus EventBus) Option {
	return func(c *sessionConfig) {
		c.bus = bus
	}
}

// WithID sets the session ID instead of generating one.
func WithID(id string) Option {
	return func(c *sessionConfig) {
		c.id = id
	}
}

// WithRoundTimeLimit sets the time budget per round.
func WithRoundTimeLimit(d time.Duration) Option {
	return func(c *sessionConfig) {
		c.rules.RoundTimeLimit = d
	}
}

// WithAttempts sets the number of wrong guesses allowed per round.
func WithAttempts(n int) Option {
	return func(c *sessionConfig) {
		c.rules.StartingAttempts = n
	}
}

// WithFuzzyThreshold sets the similarity score a guess needs to count as
// correct.
func WithFuzzyThreshold(threshold float64) Option {
	return func(c *sessionConfig) {
		c.rules.FuzzyThreshold = threshold
	}
}

// WithTransitionDelay sets the pause between rounds.
func WithTransitionDelay(d time.Duration) Option {
	return func(c *sessionConfig) {
		c.rules.TransitionDelay = d
	}
}

// WithRoundCounts restricts the allowed session lengths. No counts allows
// any length the catalog can serve.
func WithRoundCounts(counts ...int) Option {
	return func(c *sessionConfig) {
		c.rules.RoundCounts = slices.Clone(counts)
	}
}
