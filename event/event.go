// Package event provides the append-only, ordered record of every state
// transition in a game. A log plus the game seed plus the recorded bot
// decisions reproduces a game exactly; the log alone supports post-hoc
// behavioral analysis.
package event

import (
	"encoding/json"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
)

// The standard-library compatible config sorts map keys, which keeps
// serialized logs byte-identical across runs of the same seed.
var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// Type names a state transition.
type Type string

const (
	TypeGameStarted       Type = "game_started"
	TypeRoundStarted      Type = "round_started"
	TypeDeal              Type = "deal"
	TypeDraw              Type = "draw"
	TypePlayerPassed      Type = "player_passed"
	TypeBust              Type = "bust"
	TypeSecondChanceUsed  Type = "second_chance_used"
	TypeSecondChanceHeld  Type = "second_chance_held"
	TypeActionResolved    Type = "action_resolved"
	TypeFreezeApplied     Type = "freeze_applied"
	TypeFlipThreeStarted  Type = "flip_three_started"
	TypeFlipSevenAchieved Type = "flip_seven_achieved"
	TypeViolation         Type = "protocol_violation"
	TypeReshuffle         Type = "reshuffle"
	TypeRoundScored       Type = "round_scored"
	TypeGameEnded         Type = "game_ended"
)

// Event is one immutable log record. Events carry no wall-clock data;
// two runs of the same seed must produce identical logs.
type Event struct {
	Seq      uint64          `json:"seq"`
	Round    int             `json:"round"`
	Type     Type            `json:"type"`
	PlayerID string          `json:"player_id,omitempty"`
	Payload  json.RawMessage `json:"payload,omitempty"`
}

// DecodePayload unmarshals the event payload into out.
func (e Event) DecodePayload(out interface{}) error {
	if len(e.Payload) == 0 {
		return errors.Errorf("event %d (%s) has no payload", e.Seq, e.Type)
	}
	if err := jsonAPI.Unmarshal(e.Payload, out); err != nil {
		return errors.Wrapf(err, "unable to decode %s payload", e.Type)
	}
	return nil
}

// Payload shapes. Cards are referenced by their display string plus the
// fields analysis needs, not by live engine types.

type GameStartedPayload struct {
	Players     []string `json:"players"`
	TargetScore int      `json:"target_score"`
	Seed        int64    `json:"seed"`
}

type RoundStartedPayload struct {
	Dealer        string         `json:"dealer"`
	DeckRemaining int            `json:"deck_remaining"`
	Cumulative    map[string]int `json:"cumulative"`
}

type CardPayload struct {
	Card          string `json:"card"`
	DeckRemaining int    `json:"deck_remaining"`
	Forced        bool   `json:"forced,omitempty"`
}

type PassedPayload struct {
	BankedScore int    `json:"banked_score"`
	Reason      string `json:"reason"`
}

type BustPayload struct {
	Duplicate int    `json:"duplicate"`
	Reason    string `json:"reason"`
}

type SecondChancePayload struct {
	Duplicate int `json:"duplicate"`
}

type ActionPayload struct {
	Action string `json:"action"`
	Drawer string `json:"drawer"`
	Target string `json:"target"`
}

type ViolationPayload struct {
	Bot    string `json:"bot"`
	Op     string `json:"op"`
	Reason string `json:"reason"`
}

type ReshufflePayload struct {
	Cards int `json:"cards"`
}

type RoundScoredPayload struct {
	Scores     map[string]int `json:"scores"`
	Cumulative map[string]int `json:"cumulative"`
}

type GameEndedPayload struct {
	Winner       string         `json:"winner"`
	FinalScores  map[string]int `json:"final_scores"`
	RoundsPlayed int            `json:"rounds_played"`
}
