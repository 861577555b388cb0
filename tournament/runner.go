package tournament

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/flipstack/flipsim/bot"
	"github.com/flipstack/flipsim/event"
	"github.com/flipstack/flipsim/game"
	"github.com/flipstack/flipsim/logging"
	"github.com/flipstack/flipsim/util/random"
)

var runnerLogger = log.With().Str("logger_name", "tournament::runner").Logger()

const (
	defaultWorkers     = 4
	defaultKeepReplays = 128
)

// Report is the terminal outcome of a tournament run.
type Report struct {
	RunID          string
	Tournament     string
	GamesScheduled int
	GamesCompleted int
	GamesAborted   int
	RoundsPlayed   int
	Leaderboard    []BotStats
	Violations     map[string]int
	Elapsed        time.Duration
}

// Runner plays a tournament schedule across a worker pool. Games are
// independent: each gets its own deck seeded from the schedule, so the
// final stats do not depend on which worker ran which game, or in what
// order games finished.
type Runner struct {
	script   *Script
	rules    game.Rules
	boundary *bot.Boundary
	agg      *Aggregator
	replays  *lru.Cache
	progress *rate.Limiter
	runID    string

	mu        sync.Mutex
	completed int
	aborted   int
	rounds    int
	firstErr  error
}

func NewRunner(script *Script) (*Runner, error) {
	if err := script.Validate(); err != nil {
		return nil, err
	}
	// The runner works on its own copy so the caller's script is never
	// written to, even when a seed has to be generated.
	s := *script
	script = &s
	if script.Seed == 0 {
		// Unseeded scripts still get a reproducible run: the chosen seed
		// is reported so the run can be replayed by pinning it.
		script.Seed = random.NewSeed()
	}
	rules := script.Rules()

	keep := script.KeepReplays
	if keep <= 0 {
		keep = defaultKeepReplays
	}
	replays, err := lru.New(keep)
	if err != nil {
		return nil, errors.Wrap(err, "unable to create replay cache")
	}

	return &Runner{
		script:   script,
		rules:    rules,
		boundary: bot.NewBoundary(rules.DecisionTimeout),
		agg:      NewAggregator(),
		replays:  replays,
		progress: rate.NewLimiter(rate.Every(2*time.Second), 1),
		runID:    uuid.New().String(),
	}, nil
}

// Run plays the whole schedule and returns the aggregated report.
// Cancelling the context stops cleanly: in-flight games abort, queued
// games never start, and the report covers what finished.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	start := time.Now()
	matchups := BuildSchedule(r.script)

	workers := r.script.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}
	if workers > len(matchups) {
		workers = len(matchups)
	}

	runnerLogger.Info().
		Str(logging.TournamentKey, r.script.Name).
		Str("run_id", r.runID).
		Int64(logging.SeedKey, r.script.Seed).
		Msgf("Starting tournament: %d games across %d workers", len(matchups), workers)

	jobs := make(chan Matchup)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for m := range jobs {
				r.playGame(ctx, m, len(matchups))
			}
		}()
	}

dispatch:
	for _, m := range matchups {
		select {
		case jobs <- m:
		case <-ctx.Done():
			break dispatch
		}
	}
	close(jobs)
	wg.Wait()

	r.mu.Lock()
	completed, aborted, rounds := r.completed, r.aborted, r.rounds
	firstErr := r.firstErr
	r.mu.Unlock()

	report := &Report{
		RunID:          r.runID,
		Tournament:     r.script.Name,
		GamesScheduled: len(matchups),
		GamesCompleted: completed,
		GamesAborted:   aborted,
		RoundsPlayed:   rounds,
		Leaderboard:    r.agg.Leaderboard(),
		Violations:     r.boundary.Violations(),
		Elapsed:        time.Since(start),
	}

	runnerLogger.Info().
		Str(logging.TournamentKey, r.script.Name).
		Str("run_id", r.runID).
		Msgf("Tournament finished: %d/%d games completed in %s", completed, len(matchups), report.Elapsed)

	if err := ctx.Err(); err != nil {
		return report, err
	}
	return report, firstErr
}

// Replay returns a finished game's event log if it is still in the
// bounded in-memory store. Evicted games remain on disk when the script
// configured a replay directory.
func (r *Runner) Replay(gameID string) ([]event.Event, bool) {
	cached, exists := r.replays.Get(gameID)
	if !exists {
		return nil, false
	}
	return cached.([]event.Event), true
}

// RunID identifies this run in logs and replay metadata.
func (r *Runner) RunID() string {
	return r.runID
}

func (r *Runner) playGame(ctx context.Context, m Matchup, total int) {
	if ctx.Err() != nil {
		return
	}

	result, err := r.runMatchup(ctx, m)
	if err != nil {
		r.recordAbort(m, err)
		return
	}

	if err := r.agg.RecordGame(result); err != nil {
		r.recordAbort(m, err)
		return
	}
	r.replays.Add(m.GameID, result.Events)

	r.mu.Lock()
	r.completed++
	r.rounds += result.RoundsPlayed
	completed := r.completed
	r.mu.Unlock()

	if r.progress.Allow() {
		runnerLogger.Info().
			Str(logging.TournamentKey, r.script.Name).
			Msgf("Progress: %d/%d games completed", completed, total)
	}
}

func (r *Runner) runMatchup(ctx context.Context, m Matchup) (*game.Result, error) {
	players := make([]game.Player, 0, len(m.Entrants))
	for seat, e := range m.Entrants {
		// Seat-salted seeds keep two entrants of the same strategy from
		// mirroring each other within a game.
		strategy, err := bot.New(e.Strategy, DeriveSeed(m.Seed, seat))
		if err != nil {
			return nil, errors.Wrapf(err, "unable to build strategy for entrant [%s]", e.Name)
		}
		players = append(players, game.Player{ID: e.Name, Strategy: strategy})
	}

	sink, closeSink, err := r.openSink(m.GameID)
	if err != nil {
		return nil, err
	}
	defer closeSink()

	g, err := game.NewGame(game.Config{
		GameID:   m.GameID,
		Players:  players,
		Rules:    r.rules,
		Seed:     m.Seed,
		Sink:     sink,
		Boundary: r.boundary,
	})
	if err != nil {
		return nil, err
	}
	return g.Run(ctx)
}

// openSink builds the per-game replay sink: a JSONL file under the
// configured replay directory, or no sink at all.
func (r *Runner) openSink(gameID string) (event.Sink, func(), error) {
	if r.script.ReplayDir == "" {
		return nil, func() {}, nil
	}
	path := filepath.Join(r.script.ReplayDir, gameID+".jsonl")
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "unable to create replay file [%s]", path)
	}
	return event.NewJSONLSink(f), func() { _ = f.Close() }, nil
}

func (r *Runner) recordAbort(m Matchup, err error) {
	r.mu.Lock()
	r.aborted++
	if r.firstErr == nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		r.firstErr = err
	}
	r.mu.Unlock()

	runnerLogger.Warn().
		Str(logging.TournamentKey, r.script.Name).
		Str(logging.GameIDKey, m.GameID).
		Int64(logging.SeedKey, m.Seed).
		Msgf("Game aborted: %v", err)
}
