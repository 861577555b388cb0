package game

import (
	"github.com/flipstack/flipsim/bot"
	"github.com/flipstack/flipsim/cards"
)

// PlayerStatus is a player's state within the current round. Exactly
// one status holds at any time; Active is the pre-resolution default.
type PlayerStatus int32

const (
	StatusActive PlayerStatus = iota + 1
	StatusPassed
	StatusBusted
	StatusFrozen
)

func (s PlayerStatus) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusPassed:
		return "passed"
	case StatusBusted:
		return "busted"
	case StatusFrozen:
		return "frozen"
	}
	return "unknown"
}

// Tableau is one player's holdings and status for the current round.
// Created fresh at round start, mutated only by the engine, discarded
// at round end.
type Tableau struct {
	PlayerID        string
	Numbers         []cards.Card
	Modifiers       []cards.Card
	HasSecondChance bool
	Status          PlayerStatus

	// BankedScore is fixed the moment the player leaves Active.
	BankedScore int
}

func NewTableau(playerID string) *Tableau {
	return &Tableau{
		PlayerID: playerID,
		Status:   StatusActive,
	}
}

// HoldsValue reports whether a number card of the given value is held.
func (t *Tableau) HoldsValue(value int) bool {
	for _, c := range t.Numbers {
		if c.Value == value {
			return true
		}
	}
	return false
}

// AddNumber appends a number card. The caller checks HoldsValue first;
// duplicates are a bust condition, not a tableau state.
func (t *Tableau) AddNumber(c cards.Card) {
	t.Numbers = append(t.Numbers, c)
}

func (t *Tableau) AddModifier(c cards.Card) {
	t.Modifiers = append(t.Modifiers, c)
}

// UniqueValues counts distinct number values held. Bust rules keep the
// count equal to len(t.Numbers), but scoring does not rely on that.
func (t *Tableau) UniqueValues() int {
	seen := make(map[int]bool, len(t.Numbers))
	for _, c := range t.Numbers {
		seen[c.Value] = true
	}
	return len(seen)
}

func (t *Tableau) HasX2() bool {
	for _, c := range t.Modifiers {
		if c.Modifier == cards.ModifierX2 {
			return true
		}
	}
	return false
}

// CardCount is the number of physical cards the tableau accounts for,
// including a held Second Chance.
func (t *Tableau) CardCount() int {
	count := len(t.Numbers) + len(t.Modifiers)
	if t.HasSecondChance {
		count++
	}
	return count
}

// Cards returns every physical card held, for returning to the discard
// pile at round end.
func (t *Tableau) Cards() []cards.Card {
	out := make([]cards.Card, 0, t.CardCount())
	out = append(out, t.Numbers...)
	out = append(out, t.Modifiers...)
	if t.HasSecondChance {
		out = append(out, cards.NewActionCard(cards.ActionSecondChance))
	}
	return out
}

// View builds a defensive copy for the bot decision context.
func (t *Tableau) View() bot.TableauView {
	numbers := make([]int, len(t.Numbers))
	for i, c := range t.Numbers {
		numbers[i] = c.Value
	}
	modifiers := make([]cards.ModifierKind, len(t.Modifiers))
	for i, c := range t.Modifiers {
		modifiers[i] = c.Modifier
	}
	return bot.TableauView{
		PlayerID:        t.PlayerID,
		Numbers:         numbers,
		Modifiers:       modifiers,
		HasSecondChance: t.HasSecondChance,
		Status:          t.Status.String(),
	}
}
