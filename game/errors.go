package game

import "fmt"

// ConfigError reports an invalid game or rules configuration. It is
// fatal at setup time, before any card is dealt.
type ConfigError struct {
	Msg string
}

func (e ConfigError) Error() string {
	return e.Msg
}

// InvariantError reports an internal engine defect: deck accounting
// off, an impossible state transition, zero active players mid-turn.
// It aborts the single game it occurred in; a corrupted game must never
// leak into tournament statistics.
type InvariantError struct {
	GameID string
	Round  int
	Msg    string
}

func (e InvariantError) Error() string {
	return fmt.Sprintf("engine invariant violated in game %s round %d: %s", e.GameID, e.Round, e.Msg)
}

func (g *Game) invariantErr(format string, args ...interface{}) error {
	return InvariantError{
		GameID: g.gameID,
		Round:  g.round,
		Msg:    fmt.Sprintf(format, args...),
	}
}
