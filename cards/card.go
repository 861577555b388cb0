package cards

import "fmt"

// Kind discriminates the three card variants.
type Kind int32

const (
	KindNumber   Kind = 1
	KindModifier Kind = 2
	KindAction   Kind = 3
)

func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "NUMBER"
	case KindModifier:
		return "MODIFIER"
	case KindAction:
		return "ACTION"
	}
	return fmt.Sprintf("KIND(%d)", int32(k))
}

// ModifierKind identifies a modifier card.
type ModifierKind int32

const (
	ModifierPlus2  ModifierKind = 2
	ModifierPlus4  ModifierKind = 4
	ModifierPlus6  ModifierKind = 6
	ModifierPlus8  ModifierKind = 8
	ModifierPlus10 ModifierKind = 10
	ModifierX2     ModifierKind = -2
)

// Flat returns the additive value of the modifier. X2 has no additive value.
func (m ModifierKind) Flat() int {
	if m == ModifierX2 {
		return 0
	}
	return int(m)
}

func (m ModifierKind) String() string {
	if m == ModifierX2 {
		return "x2"
	}
	return fmt.Sprintf("+%d", int32(m))
}

// ActionKind identifies an action card.
type ActionKind int32

const (
	ActionFreeze ActionKind = iota + 1
	ActionFlipThree
	ActionSecondChance
)

func (a ActionKind) String() string {
	switch a {
	case ActionFreeze:
		return "FREEZE"
	case ActionFlipThree:
		return "FLIP_THREE"
	case ActionSecondChance:
		return "SECOND_CHANCE"
	}
	return fmt.Sprintf("ACTION(%d)", int32(a))
}

// Card is an immutable card value. Identity does not matter, only
// kind and value; comparing two Card values with == compares what they
// depict, which is all duplicate detection needs.
type Card struct {
	Kind     Kind         `json:"kind"`
	Value    int          `json:"value,omitempty"`
	Modifier ModifierKind `json:"modifier,omitempty"`
	Action   ActionKind   `json:"action,omitempty"`
}

const (
	MinNumberValue = 0
	MaxNumberValue = 12
)

func NewNumberCard(value int) Card {
	if value < MinNumberValue || value > MaxNumberValue {
		panic(fmt.Sprintf("invalid number card value %d", value))
	}
	return Card{Kind: KindNumber, Value: value}
}

func NewModifierCard(kind ModifierKind) Card {
	return Card{Kind: KindModifier, Modifier: kind}
}

func NewActionCard(kind ActionKind) Card {
	return Card{Kind: KindAction, Action: kind}
}

func (c Card) IsNumber() bool   { return c.Kind == KindNumber }
func (c Card) IsModifier() bool { return c.Kind == KindModifier }
func (c Card) IsAction() bool   { return c.Kind == KindAction }

func (c Card) String() string {
	switch c.Kind {
	case KindNumber:
		return fmt.Sprintf("%d", c.Value)
	case KindModifier:
		return c.Modifier.String()
	case KindAction:
		return c.Action.String()
	}
	return fmt.Sprintf("CARD(%d)", int32(c.Kind))
}

func CardsToString(cards []Card) string {
	out := "["
	for i, c := range cards {
		if i > 0 {
			out += " "
		}
		out += c.String()
	}
	return out + "]"
}
