package event

import (
	"github.com/pkg/errors"
)

// PlayerActivity is the per-player behavioral tally a log yields
// without re-simulation.
type PlayerActivity struct {
	Hits             int            `json:"hits"`
	Passes           int            `json:"passes"`
	ForcedDraws      int            `json:"forced_draws"`
	Busts            int            `json:"busts"`
	SecondChanceUses int            `json:"second_chance_uses"`
	FlipSevens       int            `json:"flip_sevens"`
	Violations       int            `json:"violations"`
	TargetsChosen    map[string]int `json:"targets_chosen"` // action kind -> times this player chose a target
}

// GameSummary is the state a log replays into: final result fields plus
// behavioral tallies. It is a value; Apply returns an updated copy.
type GameSummary struct {
	Players      []string
	Scores       map[string]int
	RoundsPlayed int
	Complete     bool
	Winner       string
	Activity     map[string]*PlayerActivity
}

func newSummary() GameSummary {
	return GameSummary{
		Scores:   make(map[string]int),
		Activity: make(map[string]*PlayerActivity),
	}
}

func (s GameSummary) activity(playerID string) *PlayerActivity {
	a, exists := s.Activity[playerID]
	if !exists {
		a = &PlayerActivity{TargetsChosen: make(map[string]int)}
		s.Activity[playerID] = a
	}
	return a
}

// Apply folds one event into the summary. It is a pure function of its
// inputs as far as callers can observe: unknown event types pass
// through unchanged so logs stay forward-compatible with analysis
// tooling.
func Apply(s GameSummary, ev Event) (GameSummary, error) {
	switch ev.Type {
	case TypeGameStarted:
		var p GameStartedPayload
		if err := ev.DecodePayload(&p); err != nil {
			return s, err
		}
		s.Players = p.Players
		for _, id := range p.Players {
			s.Scores[id] = 0
			s.activity(id)
		}

	case TypeRoundStarted:
		s.RoundsPlayed = ev.Round

	case TypeDraw:
		var p CardPayload
		if err := ev.DecodePayload(&p); err != nil {
			return s, err
		}
		a := s.activity(ev.PlayerID)
		if p.Forced {
			a.ForcedDraws++
		} else {
			a.Hits++
		}

	case TypePlayerPassed:
		s.activity(ev.PlayerID).Passes++

	case TypeBust:
		s.activity(ev.PlayerID).Busts++

	case TypeSecondChanceUsed:
		s.activity(ev.PlayerID).SecondChanceUses++

	case TypeFlipSevenAchieved:
		s.activity(ev.PlayerID).FlipSevens++

	case TypeViolation:
		s.activity(ev.PlayerID).Violations++

	case TypeActionResolved:
		var p ActionPayload
		if err := ev.DecodePayload(&p); err != nil {
			return s, err
		}
		s.activity(p.Drawer).TargetsChosen[p.Action]++

	case TypeRoundScored:
		var p RoundScoredPayload
		if err := ev.DecodePayload(&p); err != nil {
			return s, err
		}
		for id, score := range p.Cumulative {
			s.Scores[id] = score
		}

	case TypeGameEnded:
		var p GameEndedPayload
		if err := ev.DecodePayload(&p); err != nil {
			return s, err
		}
		s.Complete = true
		s.Winner = p.Winner
		s.RoundsPlayed = p.RoundsPlayed
		for id, score := range p.FinalScores {
			s.Scores[id] = score
		}
	}
	return s, nil
}

// Replay folds a full event log into a GameSummary, validating the
// basic shape of the sequence.
func Replay(events []Event) (GameSummary, error) {
	if len(events) == 0 {
		return GameSummary{}, errors.New("cannot replay an empty event log")
	}
	if events[0].Type != TypeGameStarted {
		return GameSummary{}, errors.Errorf("expected first event to be %s, got %s", TypeGameStarted, events[0].Type)
	}
	for i := 1; i < len(events); i++ {
		if events[i].Seq != events[i-1].Seq+1 {
			return GameSummary{}, errors.Errorf("event sequence gap at index %d (%d -> %d)", i, events[i-1].Seq, events[i].Seq)
		}
	}

	summary := newSummary()
	var err error
	for _, ev := range events {
		summary, err = Apply(summary, ev)
		if err != nil {
			return GameSummary{}, err
		}
	}
	return summary, nil
}
