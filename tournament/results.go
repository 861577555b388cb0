package tournament

import (
	"sort"
	"sync"

	"github.com/pkg/errors"

	"github.com/flipstack/flipsim/event"
	"github.com/flipstack/flipsim/game"
)

// BotStats is one entrant's aggregated tournament line. Rates are
// derived on read so the fold stays a plain counter update.
type BotStats struct {
	Name         string
	GamesPlayed  int
	Wins         int
	TotalScore   int
	RoundsPlayed int
	Hits         int
	Passes       int
	Busts        int
	FlipSevens   int
	SecondChance int
	Violations   int

	// Targets counts action-card targeting choices by action kind.
	Targets map[string]int
}

// WinRate is wins over games played.
func (s BotStats) WinRate() float64 {
	if s.GamesPlayed == 0 {
		return 0
	}
	return float64(s.Wins) / float64(s.GamesPlayed)
}

// AvgScore is the mean final cumulative score per game.
func (s BotStats) AvgScore() float64 {
	if s.GamesPlayed == 0 {
		return 0
	}
	return float64(s.TotalScore) / float64(s.GamesPlayed)
}

// Aggregator folds finished games into per-entrant stats. Many workers
// record concurrently; reads see a consistent snapshot.
type Aggregator struct {
	mu             sync.Mutex
	stats          map[string]*BotStats
	gamesRecorded  int
	roundsRecorded int
}

func NewAggregator() *Aggregator {
	return &Aggregator{stats: make(map[string]*BotStats)}
}

// RecordGame folds one completed game in. Behavioral tallies (busts,
// flip sevens, violations) come from replaying the game's event log,
// not from live engine state, so the same numbers are recoverable from
// stored replays.
func (a *Aggregator) RecordGame(result *game.Result) error {
	summary, err := event.Replay(result.Events)
	if err != nil {
		return errors.Wrapf(err, "unable to replay game [%s]", result.GameID)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.gamesRecorded++
	a.roundsRecorded += result.RoundsPlayed
	for name, score := range result.FinalScores {
		s := a.botStats(name)
		s.GamesPlayed++
		s.TotalScore += score
		s.RoundsPlayed += result.RoundsPlayed
		if name == result.Winner {
			s.Wins++
		}
		if activity := summary.Activity[name]; activity != nil {
			s.Hits += activity.Hits
			s.Passes += activity.Passes
			s.Busts += activity.Busts
			s.FlipSevens += activity.FlipSevens
			s.SecondChance += activity.SecondChanceUses
			s.Violations += activity.Violations
			for action, n := range activity.TargetsChosen {
				s.Targets[action] += n
			}
		}
	}
	return nil
}

func (a *Aggregator) botStats(name string) *BotStats {
	s, exists := a.stats[name]
	if !exists {
		s = &BotStats{Name: name, Targets: make(map[string]int)}
		a.stats[name] = s
	}
	return s
}

// GamesRecorded is the number of games folded in so far.
func (a *Aggregator) GamesRecorded() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.gamesRecorded
}

// Leaderboard returns every entrant's stats ordered by wins, then
// average score, then name. Ties on every key are impossible to break
// meaningfully, so the name keeps output stable.
func (a *Aggregator) Leaderboard() []BotStats {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]BotStats, 0, len(a.stats))
	for _, s := range a.stats {
		snapshot := *s
		snapshot.Targets = make(map[string]int, len(s.Targets))
		for action, n := range s.Targets {
			snapshot.Targets[action] = n
		}
		out = append(out, snapshot)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Wins != out[j].Wins {
			return out[i].Wins > out[j].Wins
		}
		if out[i].AvgScore() != out[j].AvgScore() {
			return out[i].AvgScore() > out[j].AvgScore()
		}
		return out[i].Name < out[j].Name
	})
	return out
}
