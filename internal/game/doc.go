// Package game implements the round state machine and session orchestration
// of the hint quiz.
//
// A Session plays a fixed number of rounds for one player. Each Round hides a
// target item drawn from a catalog, opens with a hardest-tier hint and then
// moves through three states:
//
//	AwaitingFirstHint -> InProgress -> Finished
//
// While InProgress the round accepts SubmitGuess, RequestHint and Tick. A
// correct guess awards the pending score, which starts at the maximum
// difficulty and drops to the tier of every easier hint requested (never
// below 1). Running out of attempts or time finishes the round and reveals
// the target.
//
// # Basic Usage
//
//	cat, _ := catalog.Default()
//	board := leaderboard.New()
//	s, err := game.NewSession(cat, board, "ana", 4)
//	if err != nil {
//	    // *game.ConfigError: re-prompt the player
//	}
//	s.RequestHint()
//	s.SubmitGuess("bern")
//	s.Tick(time.Now())
//	if s.ReadyToAdvance(time.Now()) {
//	    s.AdvanceRound()
//	}
//
// # Ownership
//
// A Session and its current Round are not safe for concurrent use; the
// driver that owns the session (a server connection, the TUI, a simulated
// bot) serializes every call, including ticks. The engine never schedules
// ticks or sleeps; it only compares the times it is handed. The leaderboard
// passed to NewSession is shared between sessions and must be safe for
// concurrent use.
//
// # Deterministic Testing
//
// Inject the clock and the RNG:
//
//	clock := quartz.NewMock(t)
//	s, _ := game.NewSession(cat, board, "ana", 4,
//	    game.WithClock(clock),
//	    game.WithRNG(randutil.New(42)))
package game
