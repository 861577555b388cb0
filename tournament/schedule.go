package tournament

import (
	"fmt"
)

// Matchup is one scheduled game: the entrants seated, in seating order,
// and the derived seed that makes the game reproducible on its own.
type Matchup struct {
	Ordinal  int
	GameID   string
	Entrants []Entrant
	Seed     int64
}

// DeriveSeed maps the tournament seed and a game ordinal to an
// independent game seed. The mix is a splitmix64 step, so neighboring
// ordinals land far apart and a single game can be re-run from its
// (topSeed, ordinal) pair without replaying the whole schedule.
func DeriveSeed(topSeed int64, ordinal int) int64 {
	z := uint64(topSeed) + uint64(ordinal+1)*0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return int64(z ^ (z >> 31))
}

// BuildSchedule expands a script into its full game list. Pairwise mode
// schedules every unordered entrant pair games-per-pair times;
// all-together mode seats the whole field together for the same count.
// The schedule depends only on the script, never on run order.
func BuildSchedule(script *Script) []Matchup {
	var groups [][]Entrant
	switch script.Mode {
	case ModeAllTogether:
		group := make([]Entrant, len(script.Entrants))
		copy(group, script.Entrants)
		groups = append(groups, group)
	default:
		for i := 0; i < len(script.Entrants); i++ {
			for j := i + 1; j < len(script.Entrants); j++ {
				groups = append(groups, []Entrant{script.Entrants[i], script.Entrants[j]})
			}
		}
	}

	var matchups []Matchup
	ordinal := 0
	for rep := 0; rep < script.GamesPerPair; rep++ {
		for _, group := range groups {
			matchups = append(matchups, Matchup{
				Ordinal:  ordinal,
				GameID:   fmt.Sprintf("%s-g%06d", script.Name, ordinal),
				Entrants: group,
				Seed:     DeriveSeed(script.Seed, ordinal),
			})
			ordinal++
		}
	}
	return matchups
}
