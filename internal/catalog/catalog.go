// Package catalog holds the immutable hint index a quiz draws from.
//
// A Catalog is built once from (item, difficulty, category, text) rows and is
// read-only afterwards, so a single instance is safely shared by every
// session in the process.
package catalog

import (
	"fmt"
	"sort"
	"strings"
)

const (
	// MinDifficulty is the easiest hint tier.
	MinDifficulty = 1
	// MaxDifficulty is the hardest tier; every round opens with a hint from it.
	MaxDifficulty = 10
)

// Hint is the (category, text) pair shown to a player.
type Hint struct {
	Category string `json:"category"`
	Text     string `json:"text"`
}

// String renders the hint the way it is displayed.
func (h Hint) String() string {
	return h.Category + ": " + h.Text
}

// Entry is one catalog row.
type Entry struct {
	Item       string `json:"item"`
	Difficulty int    `json:"difficulty"`
	Category   string `json:"category"`
	Text       string `json:"text"`
}

// Hint returns the displayable part of the entry.
func (e Entry) Hint() Hint {
	return Hint{Category: e.Category, Text: e.Text}
}

type levelKey struct {
	item       string
	difficulty int
}

// Catalog indexes entries by item and by (item, difficulty).
type Catalog struct {
	entries []Entry
	items   []string
	byItem  map[string][]Entry
	byLevel map[levelKey][]Entry
}

// New validates entries and builds the indexes. Items keep the order in which
// they first appear. Any malformed entry fails the whole catalog: no partial
// catalog is ever returned.
func New(entries []Entry) (*Catalog, error) {
	if len(entries) == 0 {
		return nil, &DataError{Err: ErrEmpty}
	}

	c := &Catalog{
		entries: make([]Entry, 0, len(entries)),
		byItem:  make(map[string][]Entry),
		byLevel: make(map[levelKey][]Entry),
	}

	for i, e := range entries {
		e.Item = strings.TrimSpace(e.Item)
		e.Category = strings.TrimSpace(e.Category)
		e.Text = strings.TrimSpace(e.Text)

		if err := validate(e); err != nil {
			return nil, &DataError{Row: i + 1, Err: err}
		}

		if _, seen := c.byItem[e.Item]; !seen {
			c.items = append(c.items, e.Item)
		}
		c.entries = append(c.entries, e)
		c.byItem[e.Item] = append(c.byItem[e.Item], e)
		k := levelKey{e.Item, e.Difficulty}
		c.byLevel[k] = append(c.byLevel[k], e)
	}

	return c, nil
}

func validate(e Entry) error {
	switch {
	case e.Item == "":
		return fmt.Errorf("%w: item", ErrEmptyField)
	case e.Category == "":
		return fmt.Errorf("%w: category", ErrEmptyField)
	case e.Text == "":
		return fmt.Errorf("%w: text", ErrEmptyField)
	case e.Difficulty < MinDifficulty || e.Difficulty > MaxDifficulty:
		return fmt.Errorf("%w: %d", ErrDifficultyRange, e.Difficulty)
	}
	return nil
}

// HintsFor returns every entry for item at exactly difficulty. The result is
// a copy and is empty when nothing exists at that tier.
func (c *Catalog) HintsFor(item string, difficulty int) []Entry {
	return clone(c.byLevel[levelKey{item, difficulty}])
}

// HintsBelow returns the entries for item with a difficulty strictly below
// maxDifficulty whose hint is not in excluding.
func (c *Catalog) HintsBelow(item string, maxDifficulty int, excluding map[Hint]bool) []Entry {
	var out []Entry
	for _, e := range c.byItem[item] {
		if e.Difficulty >= maxDifficulty || excluding[e.Hint()] {
			continue
		}
		out = append(out, e)
	}
	return out
}

// Items returns the distinct items in first-seen order.
func (c *Catalog) Items() []string {
	return append([]string(nil), c.items...)
}

// Len returns the number of entries.
func (c *Catalog) Len() int {
	return len(c.entries)
}

// Difficulties returns the distinct tiers present for item, hardest first.
func (c *Catalog) Difficulties(item string) []int {
	seen := make(map[int]bool)
	var out []int
	for _, e := range c.byItem[item] {
		if !seen[e.Difficulty] {
			seen[e.Difficulty] = true
			out = append(out, e.Difficulty)
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(out)))
	return out
}

// Audit reports data-quality problems the engine tolerates: items without an
// opening hint and items with gaps in their tiers.
func (c *Catalog) Audit() []Issue {
	var issues []Issue
	for _, item := range c.items {
		for d := MaxDifficulty; d >= MinDifficulty; d-- {
			if len(c.byLevel[levelKey{item, d}]) > 0 {
				continue
			}
			kind := IssueMissingTier
			if d == MaxDifficulty {
				kind = IssueMissingOpeningHint
			}
			issues = append(issues, Issue{Kind: kind, Item: item, Difficulty: d})
		}
	}
	return issues
}

func clone(entries []Entry) []Entry {
	if len(entries) == 0 {
		return []Entry{}
	}
	return append([]Entry(nil), entries...)
}
