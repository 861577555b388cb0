package cards

import (
	"math/rand"

	"github.com/pkg/errors"
)

// TotalCards is the size of the fixed deck multiset: 79 number cards
// (one 0, one 1, then n copies of n up to 12), 6 modifiers, 9 actions.
const TotalCards = 94

var modifierKinds = []ModifierKind{
	ModifierPlus2, ModifierPlus4, ModifierPlus6, ModifierPlus8, ModifierPlus10, ModifierX2,
}

var actionKinds = []ActionKind{ActionFreeze, ActionFlipThree, ActionSecondChance}

// copies of each action card in the deck
const actionCopies = 3

func fullComposition() []Card {
	cards := make([]Card, 0, TotalCards)
	for value := MinNumberValue; value <= MaxNumberValue; value++ {
		copies := value
		if value == 0 {
			copies = 1
		}
		for i := 0; i < copies; i++ {
			cards = append(cards, NewNumberCard(value))
		}
	}
	for _, kind := range modifierKinds {
		cards = append(cards, NewModifierCard(kind))
	}
	for _, kind := range actionKinds {
		for i := 0; i < actionCopies; i++ {
			cards = append(cards, NewActionCard(kind))
		}
	}
	return cards
}

// Deck is the draw pile plus the two discard piles of one game. It is
// owned by exactly one game engine and is not safe for concurrent use.
//
// Discards are split in two: priorDiscard holds cards discarded in
// completed rounds and is the only pile a mid-round reshuffle may use;
// roundDiscard quarantines the current round's discards (used action
// cards, Second Chance pairs) until FlushRound moves them over.
type Deck struct {
	draw         []Card
	priorDiscard []Card
	roundDiscard []Card
	total        int
	randGen      *rand.Rand
}

// NewDeck builds the full 94-card deck and shuffles it with the given
// source. The source drives every later reshuffle too, so a deck built
// from the same seed replays identically.
func NewDeck(source rand.Source) *Deck {
	deck := &Deck{
		draw:    fullComposition(),
		total:   TotalCards,
		randGen: rand.New(source),
	}
	deck.shuffle(deck.draw)
	return deck
}

// NewStackedDeck builds a deck whose draw pile is exactly the given
// cards, top first, with no shuffling. Used by tests and scripted
// scenarios the way scripted poker hands stack the deal.
func NewStackedDeck(top []Card) *Deck {
	draw := make([]Card, len(top))
	copy(draw, top)
	return &Deck{
		draw:    draw,
		total:   len(draw),
		randGen: rand.New(rand.NewSource(0)),
	}
}

// Total is the number of cards the deck was built with. Every card is
// always in the draw pile, a discard pile, or a tableau; engines check
// the sum against Total after every draw resolves.
func (d *Deck) Total() int {
	return d.total
}

func (d *Deck) shuffle(cards []Card) {
	d.randGen.Shuffle(len(cards), func(i, j int) {
		cards[i], cards[j] = cards[j], cards[i]
	})
}

// Remaining is the number of cards left in the draw pile.
func (d *Deck) Remaining() int {
	return len(d.draw)
}

// Empty reports whether the draw pile is exhausted.
func (d *Deck) Empty() bool {
	return len(d.draw) == 0
}

// CanReshuffle reports whether a mid-round reshuffle would produce any
// cards to draw.
func (d *Deck) CanReshuffle() bool {
	return len(d.priorDiscard) > 0
}

// PriorDiscards returns how many cards a reshuffle would recover.
func (d *Deck) PriorDiscards() int {
	return len(d.priorDiscard)
}

// Reshuffle rebuilds the draw pile from prior rounds' discards. The
// current round's quarantined discards and cards in tableaus are never
// touched. Returns the number of cards reshuffled.
func (d *Deck) Reshuffle() int {
	n := len(d.priorDiscard)
	d.draw = d.priorDiscard
	d.priorDiscard = nil
	d.shuffle(d.draw)
	return n
}

// Draw removes and returns the top card. The caller is responsible for
// reshuffling first when the pile is empty, so the reshuffle can be
// observed (and logged) as its own state transition.
func (d *Deck) Draw() (Card, error) {
	if len(d.draw) == 0 {
		return Card{}, errors.New("draw pile is empty")
	}
	card := d.draw[0]
	d.draw = d.draw[1:]
	return card, nil
}

// DiscardCurrent quarantines cards discarded during the current round.
func (d *Deck) DiscardCurrent(cards ...Card) {
	d.roundDiscard = append(d.roundDiscard, cards...)
}

// FlushRound moves the round's quarantined discards and the given
// tableau cards into the reshufflable discard pile. Called once at
// round end.
func (d *Deck) FlushRound(tableauCards []Card) {
	d.priorDiscard = append(d.priorDiscard, d.roundDiscard...)
	d.roundDiscard = nil
	d.priorDiscard = append(d.priorDiscard, tableauCards...)
}

// CardsHeld is the number of cards the deck itself accounts for. Adding
// the cards in all tableaus must always yield TotalCards; the engine
// verifies that after every draw.
func (d *Deck) CardsHeld() int {
	return len(d.draw) + len(d.priorDiscard) + len(d.roundDiscard)
}
