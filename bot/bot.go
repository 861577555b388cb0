// Package bot defines the strategy protocol and the invocation boundary
// between the game engine and untrusted strategy code.
package bot

import (
	"github.com/flipstack/flipsim/cards"
)

// Decision is a hit-or-pass answer. Anything other than the two
// constants below is a protocol violation.
type Decision string

const (
	Hit  Decision = "hit"
	Pass Decision = "pass"
)

// TableauView is a read-only copy of one player's tableau.
type TableauView struct {
	PlayerID        string
	Numbers         []int
	Modifiers       []cards.ModifierKind
	HasSecondChance bool
	Status          string
}

// DecisionContext is the snapshot handed to a strategy for one decision.
// It is rebuilt, with fresh backing arrays, for every call; a strategy
// that retains and mutates it cannot affect the live game.
type DecisionContext struct {
	Self           TableauView
	Opponents      []TableauView
	DeckRemaining  int
	SelfScore      int
	OpponentScores map[string]int
	Round          int
	TargetScore    int
}

// Strategy is the capability interface every bot implements. The engine
// never calls these methods directly; all calls go through a Boundary.
//
// Implementations must be deterministic for a given construction seed
// and sequence of contexts, or seeded replays will diverge.
type Strategy interface {
	Name() string

	// DecideHitOrPass is asked on the strategy's turn while its player
	// is still active.
	DecideHitOrPass(ctx *DecisionContext) Decision

	// DecideUseSecondChance is asked when drawing duplicate would bust
	// the player and a Second Chance card is held. Returning true spends
	// the card, discards the duplicate and ends the turn.
	DecideUseSecondChance(ctx *DecisionContext, duplicate int) bool

	// ChooseActionTarget is asked when the player draws an action card.
	// The returned id must be a member of eligible, which is never empty.
	ChooseActionTarget(ctx *DecisionContext, action cards.ActionKind, eligible []string) string
}
