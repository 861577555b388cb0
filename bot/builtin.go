package bot

import (
	"math/rand"

	"github.com/flipstack/flipsim/cards"
)

func init() {
	Register("random", func(seed int64) Strategy {
		return &randomStrategy{randGen: rand.New(rand.NewSource(seed))}
	})
	Register("hit17", func(seed int64) Strategy {
		return &thresholdStrategy{name: "hit17", threshold: 17}
	})
	Register("scaredy", func(seed int64) Strategy {
		return &scaredyStrategy{}
	})
	Register("always-hit", func(seed int64) Strategy {
		return &alwaysHitStrategy{}
	})
}

func handSum(view TableauView) int {
	sum := 0
	for _, v := range view.Numbers {
		sum += v
	}
	return sum
}

// randomStrategy flips a seeded coin for every decision.
type randomStrategy struct {
	randGen *rand.Rand
}

func (s *randomStrategy) Name() string { return "random" }

func (s *randomStrategy) DecideHitOrPass(ctx *DecisionContext) Decision {
	if s.randGen.Intn(2) == 0 {
		return Hit
	}
	return Pass
}

func (s *randomStrategy) DecideUseSecondChance(ctx *DecisionContext, duplicate int) bool {
	return s.randGen.Intn(2) == 0
}

func (s *randomStrategy) ChooseActionTarget(ctx *DecisionContext, action cards.ActionKind, eligible []string) string {
	return eligible[s.randGen.Intn(len(eligible))]
}

// thresholdStrategy hits until its hand sum reaches the threshold.
type thresholdStrategy struct {
	name      string
	threshold int
}

func (s *thresholdStrategy) Name() string { return s.name }

func (s *thresholdStrategy) DecideHitOrPass(ctx *DecisionContext) Decision {
	if handSum(ctx.Self) < s.threshold {
		return Hit
	}
	return Pass
}

func (s *thresholdStrategy) DecideUseSecondChance(ctx *DecisionContext, duplicate int) bool {
	return true
}

func (s *thresholdStrategy) ChooseActionTarget(ctx *DecisionContext, action cards.ActionKind, eligible []string) string {
	switch action {
	case cards.ActionFreeze:
		// Freeze the opponent with the biggest hand; self only if forced.
		return pickOpponent(ctx, eligible, true)
	case cards.ActionFlipThree:
		// Forcing draws on a big hand risks a bust for them.
		return pickOpponent(ctx, eligible, true)
	default:
		// Keep Second Chance for ourselves when allowed.
		for _, id := range eligible {
			if id == ctx.Self.PlayerID {
				return id
			}
		}
		return eligible[0]
	}
}

// scaredyStrategy banks early: it hits only while holding fewer than
// two number cards, then passes.
type scaredyStrategy struct{}

func (s *scaredyStrategy) Name() string { return "scaredy" }

func (s *scaredyStrategy) DecideHitOrPass(ctx *DecisionContext) Decision {
	if len(ctx.Self.Numbers) < 2 {
		return Hit
	}
	return Pass
}

func (s *scaredyStrategy) DecideUseSecondChance(ctx *DecisionContext, duplicate int) bool {
	return true
}

func (s *scaredyStrategy) ChooseActionTarget(ctx *DecisionContext, action cards.ActionKind, eligible []string) string {
	if action == cards.ActionSecondChance {
		for _, id := range eligible {
			if id == ctx.Self.PlayerID {
				return id
			}
		}
	}
	return pickOpponent(ctx, eligible, false)
}

// alwaysHitStrategy never passes. Useful as a stress baseline: it busts
// or flips seven, nothing in between.
type alwaysHitStrategy struct{}

func (s *alwaysHitStrategy) Name() string { return "always-hit" }

func (s *alwaysHitStrategy) DecideHitOrPass(ctx *DecisionContext) Decision {
	return Hit
}

func (s *alwaysHitStrategy) DecideUseSecondChance(ctx *DecisionContext, duplicate int) bool {
	return true
}

func (s *alwaysHitStrategy) ChooseActionTarget(ctx *DecisionContext, action cards.ActionKind, eligible []string) string {
	return eligible[0]
}

// pickOpponent returns an eligible opponent, preferring the one with
// the largest hand sum when byHand is set. Falls back to the first
// eligible id (which may be self) when no opponent is eligible.
func pickOpponent(ctx *DecisionContext, eligible []string, byHand bool) string {
	sums := make(map[string]int, len(ctx.Opponents))
	for _, opp := range ctx.Opponents {
		sums[opp.PlayerID] = handSum(opp)
	}
	best := ""
	bestSum := -1
	for _, id := range eligible {
		if id == ctx.Self.PlayerID {
			continue
		}
		sum, known := sums[id]
		if !known {
			continue
		}
		if !byHand {
			return id
		}
		if sum > bestSum {
			best = id
			bestSum = sum
		}
	}
	if best == "" {
		return eligible[0]
	}
	return best
}
