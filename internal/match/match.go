// Package match decides whether a typed guess names the target item.
package match

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/agext/levenshtein"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// DefaultThreshold is the minimum token-set similarity accepted as correct.
const DefaultThreshold = 85

// Indel distance: substitutions cost a delete plus an insert.
var indel = levenshtein.NewParams().InsCost(1).DelCost(1).SubCost(2)

// Normalize trims surrounding whitespace and lower-cases s.
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Fold normalizes s and strips combining marks, so "Genève" and "geneve"
// fold to the same string.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, Normalize(s))
	if err != nil {
		return Normalize(s)
	}
	return out
}

// Ratio returns the normalized indel similarity of a and b in [0, 100].
func Ratio(a, b string) float64 {
	total := utf8.RuneCountInString(a) + utf8.RuneCountInString(b)
	if total == 0 {
		return 100
	}
	return similarity(levenshtein.Distance(a, b, indel), total)
}

// TokenSetRatio compares the whitespace-separated token sets of a and b.
// Shared tokens are compared against each side's leftovers and the best of
// the three pairings wins; when one set contains the other the result is 100.
func TokenSetRatio(a, b string) float64 {
	ta, tb := tokenSet(a), tokenSet(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}

	var sect, onlyA, onlyB []string
	for tok := range ta {
		if tb[tok] {
			sect = append(sect, tok)
		} else {
			onlyA = append(onlyA, tok)
		}
	}
	for tok := range tb {
		if !ta[tok] {
			onlyB = append(onlyB, tok)
		}
	}

	if len(sect) > 0 && (len(onlyA) == 0 || len(onlyB) == 0) {
		return 100
	}

	diffA, diffB := joinSorted(onlyA), joinSorted(onlyB)
	lenA, lenB := utf8.RuneCountInString(diffA), utf8.RuneCountInString(diffB)

	dist := levenshtein.Distance(diffA, diffB, indel)
	if len(sect) == 0 {
		return similarity(dist, lenA+lenB)
	}

	// Both sides are compared as "sect diff", so the shared prefix and its
	// separator count towards the length but not the distance.
	sectLen := utf8.RuneCountInString(joinSorted(sect))
	best := similarity(dist, 2*sectLen+2+lenA+lenB)

	// "sect" against "sect diff": the distance is the diff plus its separator.
	for _, n := range []int{lenA, lenB} {
		d := n + 1
		if r := similarity(d, 2*sectLen+d); r > best {
			best = r
		}
	}
	return best
}

func similarity(dist, total int) float64 {
	if total == 0 {
		return 100
	}
	return 100 * (1 - float64(dist)/float64(total))
}

func tokenSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, tok := range strings.Fields(s) {
		set[tok] = true
	}
	return set
}

func joinSorted(tokens []string) string {
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}

// Matcher accepts a guess on exact normalized equality or on a token-set
// similarity at or above Threshold.
type Matcher struct {
	Threshold float64
}

// NewMatcher returns a matcher with the given threshold; values <= 0 use
// DefaultThreshold.
func NewMatcher(threshold float64) Matcher {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return Matcher{Threshold: threshold}
}

// Match reports whether guess names target, and the similarity score used.
// An empty guess never matches.
func (m Matcher) Match(guess, target string) (bool, float64) {
	g, t := Normalize(guess), Normalize(target)
	if g == "" {
		return false, 0
	}
	if g == t {
		return true, 100
	}
	score := TokenSetRatio(Fold(guess), Fold(target))
	return score >= m.Threshold, score
}
