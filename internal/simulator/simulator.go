package simulator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/lox/hintquiz/internal/catalog"
	"github.com/lox/hintquiz/internal/game"
	"github.com/lox/hintquiz/internal/leaderboard"
	"github.com/lox/hintquiz/internal/randutil"
)

// Config holds configuration for running simulations
type Config struct {
	Sessions   int
	Rounds     int
	Strategies []string
	Seed       int64
	Workers    int
	Timeout    time.Duration
	Rules      game.Config
	Logger     *log.Logger
}

// Report is the outcome of a simulation run.
type Report struct {
	Sessions    []SessionResult
	Strategies  []string
	Stats       map[string]*Statistics
	Leaderboard []leaderboard.Entry
	Duration    time.Duration
}

// Simulator plays bot sessions against a catalog, all recording into one
// leaderboard.
type Simulator struct {
	config    Config
	catalog   *catalog.Catalog
	board     *leaderboard.Board
	knowledge *Knowledge
}

// New creates a new simulator with the given configuration
func New(config Config, cat *catalog.Catalog, board *leaderboard.Board) *Simulator {
	if len(config.Strategies) == 0 {
		config.Strategies = Strategies
	}
	if config.Rules.MaxDifficulty == 0 {
		config.Rules = game.DefaultConfig()
	}
	if config.Rounds == 0 {
		config.Rounds = game.StandardRoundCounts()[0]
		if len(config.Rules.RoundCounts) > 0 {
			config.Rounds = config.Rules.RoundCounts[0]
		}
	}
	if config.Workers <= 0 {
		config.Workers = runtime.NumCPU()
	}
	if config.Logger == nil {
		config.Logger = log.New(io.Discard)
	}
	if board == nil {
		board = leaderboard.New()
	}
	return &Simulator{
		config:    config,
		catalog:   cat,
		board:     board,
		knowledge: NewKnowledge(cat),
	}
}

// Run plays every session, Workers at a time, and aggregates the results
// per strategy. Each session is owned by exactly one goroutine.
func (s *Simulator) Run(ctx context.Context) (*Report, error) {
	if s.config.Sessions <= 0 {
		return nil, errors.New("sessions must be positive")
	}
	for _, strategy := range s.config.Strategies {
		if _, err := NewBot(strategy, s.knowledge, randutil.New(0)); err != nil {
			return nil, err
		}
	}
	if s.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.Timeout)
		defer cancel()
	}

	start := time.Now()
	results := make([]SessionResult, s.config.Sessions)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.config.Workers)
	for i := range s.config.Sessions {
		strategy := s.config.Strategies[i%len(s.config.Strategies)]
		seed := s.config.Seed + int64(i)
		g.Go(func() error {
			result, err := s.playSession(ctx, i, strategy, seed)
			if err != nil {
				return fmt.Errorf("session %d (%s, seed %d): %w", i+1, strategy, seed, err)
			}
			results[i] = result
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report := &Report{
		Sessions:    results,
		Strategies:  s.config.Strategies,
		Stats:       make(map[string]*Statistics),
		Leaderboard: s.board.Top(10),
		Duration:    time.Since(start),
	}
	for _, strategy := range s.config.Strategies {
		report.Stats[strategy] = &Statistics{}
	}
	for _, r := range results {
		report.Stats[r.Strategy].Add(r)
	}
	for strategy, stats := range report.Stats {
		if err := stats.Validate(); err != nil {
			return nil, fmt.Errorf("statistics validation failed for %s: %w", strategy, err)
		}
	}
	return report, nil
}

// playSession drives one session to completion with a single bot. Bots
// act instantly, so rounds end by guess or exhaustion and the driver
// advances without waiting for the transition delay.
func (s *Simulator) playSession(ctx context.Context, index int, strategy string, seed int64) (SessionResult, error) {
	rng := randutil.New(seed)
	bot, err := NewBot(strategy, s.knowledge, rng)
	if err != nil {
		return SessionResult{}, err
	}

	player := fmt.Sprintf("%s-%03d", strategy, index+1)
	session, err := game.NewSession(s.catalog, s.board, player, s.config.Rounds,
		game.WithConfig(s.config.Rules),
		game.WithRNG(rng),
		game.WithLogger(s.config.Logger),
	)
	if err != nil {
		return SessionResult{}, err
	}

	result := SessionResult{Strategy: strategy, Player: player, Seed: seed, MaxScore: session.MaxScore()}
	for session.Status() == game.SessionActive {
		if err := ctx.Err(); err != nil {
			session.Abandon()
			return SessionResult{}, err
		}
		round := session.Round()
		guesses, err := s.playRound(session, bot)
		if err != nil {
			session.Abandon()
			return SessionResult{}, err
		}
		result.Rounds = append(result.Rounds, RoundResult{
			Outcome: round.Outcome(),
			Points:  round.Points(),
			Hints:   len(round.Hints()),
			Guesses: guesses,
		})
		if err := session.AdvanceRound(); err != nil {
			return SessionResult{}, err
		}
	}
	result.Score = session.Score()
	return result, nil
}

func (s *Simulator) playRound(session *game.Session, bot Bot) (int, error) {
	guesses := 0
	for session.Round().Status() != game.Finished {
		snap := session.Round().Snapshot(time.Now())
		action := bot.Act(snap)
		if action.Hint {
			if _, err := session.RequestHint(); err != nil {
				return guesses, fmt.Errorf("%s requested a hint: %w", bot.Name(), err)
			}
			continue
		}
		res, err := session.SubmitGuess(action.Guess)
		if err != nil {
			return guesses, err
		}
		if res.Ignored {
			return guesses, fmt.Errorf("%s made no move", bot.Name())
		}
		guesses++
	}
	return guesses, nil
}

// PrintSummary writes a per-strategy summary of a simulation run.
func PrintSummary(w io.Writer, report *Report) {
	fmt.Fprintf(w, "\n=== SIMULATION RESULTS ===\n")
	fmt.Fprintf(w, "Sessions played: %d in %v\n", len(report.Sessions), report.Duration.Round(time.Millisecond))

	for _, strategy := range report.Strategies {
		stats := report.Stats[strategy]
		if stats.Sessions == 0 {
			continue
		}
		low, high := stats.ConfidenceInterval95()
		fmt.Fprintf(w, "\n--- %s (%d sessions) ---\n", strategy, stats.Sessions)
		fmt.Fprintf(w, "Mean score: %.2f / %d\n", stats.Mean(), stats.MaxScore)
		fmt.Fprintf(w, "Median: %.2f  Std Dev: %.2f\n", stats.Median(), stats.StdDev())
		fmt.Fprintf(w, "95%% CI: [%.2f, %.2f]\n", low, high)
		fmt.Fprintf(w, "Rounds won: %d / %d (%.1f%%)\n", stats.Correct, stats.Rounds, stats.WinRate()*100)
		fmt.Fprintf(w, "Exhausted: %d  Timed out: %d\n", stats.Exhausted, stats.TimedOut)
		fmt.Fprintf(w, "Hints per round: %.2f\n", stats.HintsPerRound())
	}

	if len(report.Leaderboard) > 0 {
		fmt.Fprintf(w, "\n=== LEADERBOARD ===\n")
		for i, e := range report.Leaderboard {
			fmt.Fprintf(w, "%2d. %-16s %d\n", i+1, e.Player, e.Score)
		}
	}
}
