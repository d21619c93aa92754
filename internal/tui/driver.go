package tui

import (
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/lox/hintquiz/internal/game"
	"github.com/lox/hintquiz/internal/leaderboard"
)

// Update is a state change pushed from a Driver to the model.
type Update struct {
	Session     *game.SessionSnapshot
	Message     string
	Err         error
	Leaderboard []leaderboard.Entry
	Complete    bool
}

// Driver runs a quiz session on behalf of the model. Calls are made from
// the Bubble Tea update loop; results arrive on Updates.
type Driver interface {
	Start(player string, rounds int)
	Guess(text string)
	Hint()
	Next()
	Tick(now time.Time)
	Abandon()
	Leaderboard(limit int)
	Updates() <-chan Update
	Close() error
}

const updateBuffer = 64

// LocalDriver plays a session in-process against a catalog and
// leaderboard.
type LocalDriver struct {
	catalog game.Catalog
	board   *leaderboard.Board
	clock   quartz.Clock
	logger  *log.Logger
	opts    []game.Option

	session *game.Session
	updates chan Update
}

// NewLocalDriver creates a driver that owns its sessions directly.
func NewLocalDriver(cat game.Catalog, board *leaderboard.Board, clock quartz.Clock, logger *log.Logger, opts ...game.Option) *LocalDriver {
	return &LocalDriver{
		catalog: cat,
		board:   board,
		clock:   clock,
		logger:  logger.WithPrefix("local"),
		opts:    opts,
		updates: make(chan Update, updateBuffer),
	}
}

func (d *LocalDriver) Updates() <-chan Update { return d.updates }

// push never blocks the update loop; a full buffer drops the update.
func (d *LocalDriver) push(u Update) {
	select {
	case d.updates <- u:
	default:
		d.logger.Warn("Dropping update, buffer full")
	}
}

func (d *LocalDriver) snapshot(msg string) Update {
	snap := d.session.Snapshot()
	u := Update{Session: &snap, Message: msg}
	if d.session.Status() == game.SessionComplete {
		u.Complete = true
		u.Leaderboard = d.board.Top(5)
	}
	return u
}

func (d *LocalDriver) Start(player string, rounds int) {
	if d.session != nil {
		d.session.Abandon()
	}
	opts := append([]game.Option{game.WithClock(d.clock), game.WithLogger(d.logger)}, d.opts...)
	s, err := game.NewSession(d.catalog, d.board, player, rounds, opts...)
	if err != nil {
		d.session = nil
		d.push(Update{Err: err})
		return
	}
	d.session = s
	d.push(d.snapshot(fmt.Sprintf("Starting %d rounds for %s.", s.Rounds(), s.Player())))
}

// expire reports a timeout that fell between ticks before input is
// applied, so a late guess cannot score.
func (d *LocalDriver) expire() bool {
	if !d.session.Tick(d.clock.Now("tui", "input")) {
		return false
	}
	d.push(d.snapshot(""))
	return true
}

func (d *LocalDriver) Guess(text string) {
	if d.session == nil || d.expire() {
		return
	}
	res, err := d.session.SubmitGuess(text)
	if err != nil {
		d.push(Update{Err: err})
		return
	}
	if res.Ignored {
		return
	}
	d.push(d.snapshot(""))
}

func (d *LocalDriver) Hint() {
	if d.session == nil || d.expire() {
		return
	}
	if _, err := d.session.RequestHint(); err != nil {
		d.push(Update{Err: err})
		return
	}
	d.push(d.snapshot(""))
}

func (d *LocalDriver) Next() {
	if d.session == nil {
		return
	}
	if err := d.session.AdvanceRound(); err != nil {
		d.push(Update{Err: err})
		return
	}
	d.push(d.snapshot(""))
}

// Tick delivers the clock to the session and advances finished rounds
// once the transition delay has passed. Every tick pushes a snapshot so
// the countdown stays current.
func (d *LocalDriver) Tick(now time.Time) {
	if d.session == nil || d.session.Status() != game.SessionActive {
		return
	}
	d.session.Tick(now)
	if d.session.ReadyToAdvance(now) {
		if err := d.session.AdvanceRound(); err != nil {
			d.logger.Error("Failed to advance round", "error", err)
		}
	}
	d.push(d.snapshot(""))
}

func (d *LocalDriver) Abandon() {
	if d.session != nil {
		d.session.Abandon()
	}
}

func (d *LocalDriver) Leaderboard(limit int) {
	d.push(Update{Leaderboard: d.board.Top(limit)})
}

func (d *LocalDriver) Close() error {
	d.Abandon()
	return nil
}

// describeError turns engine errors into the line shown to the player.
func describeError(err error) string {
	var cfgErr *game.ConfigError
	switch {
	case errors.Is(err, game.ErrNoMoreHints):
		return "No more hints available."
	case errors.As(err, &cfgErr):
		return fmt.Sprintf("Cannot start: %s", cfgErr.Reason)
	case errors.Is(err, game.ErrInvalidState):
		return "That is not possible right now."
	default:
		return err.Error()
	}
}
