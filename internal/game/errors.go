package game

import (
	"errors"
	"fmt"
)

var (
	// ErrNoMoreHints is returned by RequestHint when no unseen hint exists at
	// any easier tier. The round is left untouched.
	ErrNoMoreHints = errors.New("no more hints available")

	// ErrInvalidState matches every *StateError via errors.Is.
	ErrInvalidState = errors.New("operation not allowed in current state")

	// ErrInvalidConfig matches every *ConfigError via errors.Is.
	ErrInvalidConfig = errors.New("invalid session configuration")
)

// StateError reports an operation invoked in the wrong state. The operation
// had no effect.
type StateError struct {
	Op    string
	State string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("%s: not allowed while %s", e.Op, e.State)
}

func (e *StateError) Is(target error) bool {
	return target == ErrInvalidState
}

// ConfigError reports a session that could not be created from the given
// parameters. It is recoverable: the caller should ask again.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ConfigError) Is(target error) bool {
	return target == ErrInvalidConfig
}
