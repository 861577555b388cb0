package game

import (
	"fmt"
	"time"
)

// Rules are the immutable constants of a game. A Rules value is passed
// explicitly into every constructor; there is no ambient rule state.
type Rules struct {
	// TargetScore ends the game once a round closes with some player at
	// or above it (ties at the top force extra rounds).
	TargetScore int

	// FlipSevenBonus is added when a tableau holds exactly
	// FlipSevenThreshold unique number values.
	FlipSevenBonus     int
	FlipSevenThreshold int

	// DecisionTimeout bounds each strategy call.
	DecisionTimeout time.Duration
}

func DefaultRules() Rules {
	return Rules{
		TargetScore:        200,
		FlipSevenBonus:     15,
		FlipSevenThreshold: 7,
		DecisionTimeout:    2 * time.Second,
	}
}

func (r Rules) Validate() error {
	if r.TargetScore <= 0 {
		return ConfigError{Msg: fmt.Sprintf("invalid target score [%d]", r.TargetScore)}
	}
	if r.FlipSevenThreshold <= 0 {
		return ConfigError{Msg: fmt.Sprintf("invalid flip-seven threshold [%d]", r.FlipSevenThreshold)}
	}
	if r.FlipSevenBonus < 0 {
		return ConfigError{Msg: fmt.Sprintf("invalid flip-seven bonus [%d]", r.FlipSevenBonus)}
	}
	if r.DecisionTimeout <= 0 {
		return ConfigError{Msg: fmt.Sprintf("invalid decision timeout [%s]", r.DecisionTimeout)}
	}
	return nil
}
