package tournament

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flipstack/flipsim/event"
)

func runnerScript() *Script {
	return &Script{
		Name: "mini",
		Mode: ModePairwise,
		Seed: 7,
		Entrants: []Entrant{
			{Name: "cautious", Strategy: "hit17"},
			{Name: "timid", Strategy: "scaredy"},
			{Name: "coinflip", Strategy: "random"},
		},
		GamesPerPair: 2,
		Workers:      3,
		TargetScore:  100,
	}
}

func TestRunnerPlaysFullSchedule(t *testing.T) {
	r, err := NewRunner(runnerScript())
	require.NoError(t, err)

	report, err := r.Run(context.Background())
	require.NoError(t, err)

	// 3 pairs, two games each.
	assert.Equal(t, 6, report.GamesScheduled)
	assert.Equal(t, 6, report.GamesCompleted)
	assert.Zero(t, report.GamesAborted)
	assert.Equal(t, "mini", report.Tournament)
	assert.NotEmpty(t, report.RunID)
	assert.Positive(t, report.RoundsPlayed)

	require.Len(t, report.Leaderboard, 3)
	totalWins := 0
	totalGames := 0
	for _, s := range report.Leaderboard {
		totalWins += s.Wins
		totalGames += s.GamesPlayed
		assert.Equal(t, 4, s.GamesPlayed, "entrant %s", s.Name)
	}
	// Every game has exactly one winner and two seats.
	assert.Equal(t, 6, totalWins)
	assert.Equal(t, 12, totalGames)
}

func TestRunnerKeepsReplaysForCompletedGames(t *testing.T) {
	script := runnerScript()
	script.KeepReplays = 16
	r, err := NewRunner(script)
	require.NoError(t, err)

	report, err := r.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, report.GamesScheduled, report.GamesCompleted)

	for _, m := range BuildSchedule(script) {
		events, exists := r.Replay(m.GameID)
		require.True(t, exists, "missing replay for %s", m.GameID)
		summary, err := event.Replay(events)
		require.NoError(t, err)
		assert.True(t, summary.Complete)
	}
	_, exists := r.Replay("mini-g999999")
	assert.False(t, exists)
}

func TestRunnerWritesReplayFiles(t *testing.T) {
	script := runnerScript()
	script.GamesPerPair = 1
	script.ReplayDir = t.TempDir()
	r, err := NewRunner(script)
	require.NoError(t, err)

	report, err := r.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, report.GamesCompleted)

	for _, m := range BuildSchedule(script) {
		f, err := os.Open(filepath.Join(script.ReplayDir, m.GameID+".jsonl"))
		require.NoError(t, err)
		events, err := event.ReadJSONL(f)
		require.NoError(t, err)
		require.NoError(t, f.Close())

		summary, err := event.Replay(events)
		require.NoError(t, err)
		assert.True(t, summary.Complete)
		assert.Equal(t, []string{m.Entrants[0].Name, m.Entrants[1].Name}, summary.Players)
	}
}

func TestRunnerIsDeterministicAcrossRuns(t *testing.T) {
	run := func() []BotStats {
		r, err := NewRunner(runnerScript())
		require.NoError(t, err)
		report, err := r.Run(context.Background())
		require.NoError(t, err)
		return report.Leaderboard
	}

	first := run()
	second := run()
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("leaderboards differ for identical scripts (-first +second):\n%s", diff)
	}
}

func TestRunnerStopsOnCancelledContext(t *testing.T) {
	r, err := NewRunner(runnerScript())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	report, err := r.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, report)
	assert.Zero(t, report.GamesCompleted)
}

func TestNewRunnerDoesNotMutateCallerScript(t *testing.T) {
	script := runnerScript()
	script.Seed = 0
	script.GamesPerPair = 1

	r, err := NewRunner(script)
	require.NoError(t, err)
	// The generated seed stays on the runner's copy.
	assert.Zero(t, script.Seed)

	report, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, report.GamesCompleted)
	assert.Zero(t, script.Seed)
}

func TestNewRunnerRejectsInvalidScript(t *testing.T) {
	script := runnerScript()
	script.Entrants = script.Entrants[:1]
	_, err := NewRunner(script)
	require.Error(t, err)
}
