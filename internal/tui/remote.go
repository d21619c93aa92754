package tui

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/log"
	"github.com/lox/hintquiz/internal/client"
	"github.com/lox/hintquiz/internal/game"
	"github.com/lox/hintquiz/internal/server"
)

// RemoteError is an error reported by the quiz server.
type RemoteError struct {
	Code    string
	Message string
}

func (e *RemoteError) Error() string { return e.Message }

// Is maps server error codes onto the engine's sentinels.
func (e *RemoteError) Is(target error) bool {
	switch target {
	case game.ErrNoMoreHints:
		return e.Code == server.ErrCodeNoMoreHints
	case game.ErrInvalidState:
		return e.Code == server.ErrCodeInvalidState || e.Code == server.ErrCodeNoSession
	}
	return false
}

// RemoteDriver plays a session hosted by a quiz server. The server owns
// the clock, so Tick is a no-op.
type RemoteDriver struct {
	client  *client.Client
	logger  *log.Logger
	updates chan Update
}

// NewRemoteDriver registers handlers on a connected client.
func NewRemoteDriver(c *client.Client, logger *log.Logger) *RemoteDriver {
	d := &RemoteDriver{
		client:  c,
		logger:  logger.WithPrefix("remote"),
		updates: make(chan Update, updateBuffer),
	}
	d.registerHandlers()
	return d
}

func (d *RemoteDriver) registerHandlers() {
	d.client.AddEventHandler(server.MessageTypeSessionStarted, func(msg *server.Message) {
		data, err := client.Decode[server.SessionStartedData](msg)
		if err != nil {
			d.push(Update{Err: err})
			return
		}
		d.push(Update{Session: &data.Session})
	})
	d.client.AddEventHandler(server.MessageTypeRoundState, func(msg *server.Message) {
		data, err := client.Decode[server.RoundStateData](msg)
		if err != nil {
			d.push(Update{Err: err})
			return
		}
		d.push(Update{Session: &data.Session})
	})
	d.client.AddEventHandler(server.MessageTypeSessionComplete, func(msg *server.Message) {
		data, err := client.Decode[server.SessionCompleteData](msg)
		if err != nil {
			d.push(Update{Err: err})
			return
		}
		d.push(Update{Session: &data.Session, Complete: true, Leaderboard: data.Leaderboard})
	})
	d.client.AddEventHandler(server.MessageTypeLeaderboard, func(msg *server.Message) {
		data, err := client.Decode[server.LeaderboardData](msg)
		if err != nil {
			d.push(Update{Err: err})
			return
		}
		d.push(Update{Leaderboard: data.Entries})
	})
	d.client.AddEventHandler(server.MessageTypeError, func(msg *server.Message) {
		data, err := client.Decode[server.ErrorData](msg)
		if err != nil {
			d.push(Update{Err: err})
			return
		}
		d.push(Update{Err: &RemoteError{Code: data.Code, Message: data.Message}})
	})
}

func (d *RemoteDriver) push(u Update) {
	select {
	case d.updates <- u:
	default:
		d.logger.Warn("Dropping update, buffer full")
	}
}

func (d *RemoteDriver) report(err error) {
	if err != nil {
		d.push(Update{Err: err})
	}
}

func (d *RemoteDriver) Updates() <-chan Update { return d.updates }

func (d *RemoteDriver) Start(player string, rounds int) {
	d.report(d.client.StartSession(player, rounds))
}

func (d *RemoteDriver) Guess(text string) { d.report(d.client.SubmitGuess(text)) }
func (d *RemoteDriver) Hint()             { d.report(d.client.RequestHint()) }
func (d *RemoteDriver) Next()             { d.report(d.client.NextRound()) }
func (d *RemoteDriver) Tick(time.Time)    {}

func (d *RemoteDriver) Abandon() {
	if err := d.client.Abandon(); err != nil && !errors.Is(err, context.Canceled) {
		d.logger.Debug("Abandon failed", "error", err)
	}
}

func (d *RemoteDriver) Leaderboard(limit int) { d.report(d.client.GetLeaderboard(limit)) }

func (d *RemoteDriver) Close() error {
	return d.client.Disconnect()
}
