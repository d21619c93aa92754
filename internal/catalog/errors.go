package catalog

import (
	"errors"
	"fmt"
)

var (
	ErrEmpty           = errors.New("catalog has no entries")
	ErrMissingColumn   = errors.New("missing required column")
	ErrEmptyField      = errors.New("empty field")
	ErrDifficultyRange = errors.New("difficulty out of range")
	ErrBadDifficulty   = errors.New("difficulty is not a number")
	ErrUnknownFormat   = errors.New("unknown catalog format")
)

// DataError is returned when a catalog source cannot be read or is malformed.
// It is fatal at startup.
type DataError struct {
	Source string
	Row    int // 1-based data row, 0 when the error is not row specific
	Err    error
}

func (e *DataError) Error() string {
	src := e.Source
	if src == "" {
		src = "catalog"
	}
	if e.Row > 0 {
		return fmt.Sprintf("%s: row %d: %v", src, e.Row, e.Err)
	}
	return fmt.Sprintf("%s: %v", src, e.Err)
}

func (e *DataError) Unwrap() error {
	return e.Err
}

// IssueKind classifies a tolerated data-quality problem.
type IssueKind string

const (
	IssueMissingOpeningHint IssueKind = "missing_opening_hint"
	IssueMissingTier        IssueKind = "missing_tier"
)

// Issue is a degenerate-data finding. Rounds still run; the player just sees
// fewer hints.
type Issue struct {
	Kind       IssueKind
	Item       string
	Difficulty int
}

func (i Issue) String() string {
	return fmt.Sprintf("%s: %s (difficulty %d)", i.Item, i.Kind, i.Difficulty)
}
