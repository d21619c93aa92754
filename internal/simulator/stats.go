package simulator

import (
	"fmt"
	"math"
	"sort"

	"github.com/lox/hintquiz/internal/game"
)

// RoundResult is the outcome of one simulated round.
type RoundResult struct {
	Outcome game.Outcome
	Points  int
	Hints   int
	Guesses int
}

// SessionResult is the outcome of one simulated session.
type SessionResult struct {
	Strategy string
	Player   string
	Seed     int64
	Score    int
	MaxScore int
	Rounds   []RoundResult
}

// Statistics aggregates session scores for one strategy.
type Statistics struct {
	Sessions int
	SumScore float64
	SumSq    float64
	Values   []float64
	MaxScore int

	Rounds    int
	Correct   int
	Exhausted int
	TimedOut  int
	Hints     int
	Guesses   int
}

// Add incorporates a session result.
func (s *Statistics) Add(result SessionResult) {
	score := float64(result.Score)
	s.Sessions++
	s.SumScore += score
	s.SumSq += score * score
	s.Values = append(s.Values, score)
	s.MaxScore = max(s.MaxScore, result.MaxScore)

	for _, r := range result.Rounds {
		s.Rounds++
		s.Hints += r.Hints
		s.Guesses += r.Guesses
		switch r.Outcome {
		case game.OutcomeCorrect:
			s.Correct++
		case game.OutcomeExhausted:
			s.Exhausted++
		case game.OutcomeTimeout:
			s.TimedOut++
		}
	}
}

// Mean returns the mean session score.
func (s *Statistics) Mean() float64 {
	if s.Sessions == 0 {
		return 0
	}
	return s.SumScore / float64(s.Sessions)
}

// Variance returns the sample variance of session scores
func (s *Statistics) Variance() float64 {
	if s.Sessions < 2 {
		return 0
	}
	mean := s.Mean()
	return (s.SumSq - float64(s.Sessions)*mean*mean) / float64(s.Sessions-1)
}

func (s *Statistics) StdDev() float64 {
	return math.Sqrt(max(s.Variance(), 0))
}

func (s *Statistics) StdError() float64 {
	if s.Sessions == 0 {
		return 0
	}
	return s.StdDev() / math.Sqrt(float64(s.Sessions))
}

// ConfidenceInterval95 returns the 95% confidence interval for the mean
func (s *Statistics) ConfidenceInterval95() (float64, float64) {
	mean := s.Mean()
	margin := 1.96 * s.StdError()
	return mean - margin, mean + margin
}

// Median returns the median session score.
func (s *Statistics) Median() float64 {
	return s.Percentile(0.5)
}

// Percentile returns the interpolated score at p in [0, 1].
func (s *Statistics) Percentile(p float64) float64 {
	if len(s.Values) == 0 {
		return 0
	}
	sorted := make([]float64, len(s.Values))
	copy(sorted, s.Values)
	sort.Float64s(sorted)

	index := p * float64(len(sorted)-1)
	lower := int(index)
	upper := lower + 1
	if upper >= len(sorted) {
		return sorted[len(sorted)-1]
	}
	weight := index - float64(lower)
	return sorted[lower]*(1-weight) + sorted[upper]*weight
}

// WinRate is the share of rounds answered correctly.
func (s *Statistics) WinRate() float64 {
	if s.Rounds == 0 {
		return 0
	}
	return float64(s.Correct) / float64(s.Rounds)
}

// HintsPerRound is the mean number of hints shown per round, opening hint included.
func (s *Statistics) HintsPerRound() float64 {
	if s.Rounds == 0 {
		return 0
	}
	return float64(s.Hints) / float64(s.Rounds)
}

// Validate checks that round outcomes account for every round.
func (s *Statistics) Validate() error {
	if s.Correct+s.Exhausted+s.TimedOut != s.Rounds {
		return fmt.Errorf("outcome mismatch: %d correct + %d exhausted + %d timed out != %d rounds",
			s.Correct, s.Exhausted, s.TimedOut, s.Rounds)
	}
	if s.Sessions != len(s.Values) {
		return fmt.Errorf("session mismatch: %d sessions, %d values", s.Sessions, len(s.Values))
	}
	return nil
}
