package simulator

import (
	"fmt"
	"math/rand/v2"
	"slices"

	"github.com/lox/hintquiz/internal/catalog"
	"github.com/lox/hintquiz/internal/game"
	"github.com/lox/hintquiz/internal/randutil"
)

// Strategy names accepted by NewBot.
const (
	StrategyOracle  = "oracle"
	StrategyRandom  = "random"
	StrategyPatient = "patient"
)

// Strategies lists every built-in strategy.
var Strategies = []string{StrategyOracle, StrategyRandom, StrategyPatient}

// Action is a bot's move: a hint request or a guess.
type Action struct {
	Hint  bool
	Guess string
}

// Bot decides the next move from what a player can see of the round.
type Bot interface {
	Name() string
	Act(round game.RoundSnapshot) Action
}

// Knowledge maps every hint in a catalog to the items that carry it.
type Knowledge struct {
	items   []string
	holders map[game.Hint][]string
}

// NewKnowledge indexes cat.
func NewKnowledge(cat *catalog.Catalog) *Knowledge {
	k := &Knowledge{
		items:   cat.Items(),
		holders: make(map[game.Hint][]string),
	}
	for _, item := range k.items {
		for _, d := range cat.Difficulties(item) {
			for _, e := range cat.HintsFor(item, d) {
				h := e.Hint()
				if !slices.Contains(k.holders[h], item) {
					k.holders[h] = append(k.holders[h], item)
				}
			}
		}
	}
	return k
}

// Candidates returns the items consistent with every hint, in catalog order.
func (k *Knowledge) Candidates(hints []game.Hint) []string {
	out := slices.Clone(k.items)
	for _, h := range hints {
		holders := k.holders[h]
		out = slices.DeleteFunc(out, func(item string) bool {
			return !slices.Contains(holders, item)
		})
	}
	return out
}

// memory tracks the guesses made in the current round.
type memory struct {
	round   int
	guessed []string
}

func (m *memory) observe(round int) {
	if round != m.round {
		m.round = round
		m.guessed = m.guessed[:0]
	}
}

func (m *memory) guess(item string) Action {
	m.guessed = append(m.guessed, item)
	return Action{Guess: item}
}

func (m *memory) untried(items []string) []string {
	return slices.DeleteFunc(slices.Clone(items), func(item string) bool {
		return slices.Contains(m.guessed, item)
	})
}

// oracleBot guesses as soon as the hints identify a single item.
type oracleBot struct {
	memory
	knowledge *Knowledge
	rng       *rand.Rand
}

func (b *oracleBot) Name() string { return StrategyOracle }

func (b *oracleBot) Act(round game.RoundSnapshot) Action {
	b.observe(round.Number)
	candidates := b.untried(b.knowledge.Candidates(round.Hints))
	if len(candidates) > 1 && round.MoreHints {
		return Action{Hint: true}
	}
	return b.pick(candidates)
}

func (b *oracleBot) pick(candidates []string) Action {
	if item, ok := randutil.Pick(b.rng, candidates); ok {
		return b.guess(item)
	}
	item, _ := randutil.Pick(b.rng, b.untried(b.knowledge.items))
	return b.guess(item)
}

// randomBot ignores hints and guesses untried items at random.
type randomBot struct {
	memory
	knowledge *Knowledge
	rng       *rand.Rand
}

func (b *randomBot) Name() string { return StrategyRandom }

func (b *randomBot) Act(round game.RoundSnapshot) Action {
	b.observe(round.Number)
	item, _ := randutil.Pick(b.rng, b.untried(b.knowledge.items))
	return b.guess(item)
}

// patientBot asks for hints until the pending score drops to stopAt, then
// guesses like the oracle.
type patientBot struct {
	oracleBot
	stopAt int
}

func (b *patientBot) Name() string { return StrategyPatient }

func (b *patientBot) Act(round game.RoundSnapshot) Action {
	b.observe(round.Number)
	if round.MoreHints && round.Difficulty > b.stopAt {
		return Action{Hint: true}
	}
	return b.pick(b.untried(b.knowledge.Candidates(round.Hints)))
}

// NewBot creates a bot for strategy.
func NewBot(strategy string, knowledge *Knowledge, rng *rand.Rand) (Bot, error) {
	switch strategy {
	case StrategyOracle:
		return &oracleBot{knowledge: knowledge, rng: rng}, nil
	case StrategyRandom:
		return &randomBot{knowledge: knowledge, rng: rng}, nil
	case StrategyPatient:
		return &patientBot{oracleBot: oracleBot{knowledge: knowledge, rng: rng}, stopAt: 5}, nil
	default:
		return nil, fmt.Errorf("unknown strategy %q", strategy)
	}
}
