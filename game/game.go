package game

import (
	"context"
	"math/rand"

	"github.com/looplab/fsm"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/flipstack/flipsim/bot"
	"github.com/flipstack/flipsim/cards"
	"github.com/flipstack/flipsim/event"
	"github.com/flipstack/flipsim/logging"
	"github.com/flipstack/flipsim/util"
)

var gameLogger = log.With().Str("logger_name", "game::game").Logger()

// Phases of a running game. Every round walks initial_deal ->
// turn_cycle -> round_scoring, then either loops back for another round
// or ends the game.
const (
	PhaseInitialDeal  = "initial_deal"
	PhaseTurnCycle    = "turn_cycle"
	PhaseRoundScoring = "round_scoring"
	PhaseGameEnd      = "game_end"

	phaseEventDealDone  = "deal_done"
	phaseEventCycleDone = "cycle_done"
	phaseEventNextRound = "next_round"
	phaseEventFinish    = "finish"
)

// Player binds a seat to a decision strategy. Seating order is the
// order of Config.Players; the first seat deals round one.
type Player struct {
	ID       string
	Strategy bot.Strategy
}

// Config fully determines a game. Two configs with the same players,
// rules, and seed produce byte-identical event logs.
type Config struct {
	GameID  string
	Players []Player
	Rules   Rules
	Seed    int64

	// Sink receives events as they are emitted. Nil means log-in-memory
	// only.
	Sink event.Sink

	// Boundary guards strategy calls. Nil builds a private one from
	// Rules.DecisionTimeout; tournaments share one across games to
	// aggregate violation counts.
	Boundary *bot.Boundary
}

// Result is the terminal outcome of a completed game.
type Result struct {
	GameID       string
	Winner       string
	FinalScores  map[string]int
	RoundsPlayed int
	Events       []event.Event
}

// Game is a single deterministic match. It is not safe for concurrent
// use; run many Games, not one Game from many goroutines.
type Game struct {
	logger     zerolog.Logger
	gameID     string
	players    []Player
	strategies map[string]bot.Strategy
	rules      Rules
	seed       int64
	deck       *cards.Deck
	scores     map[string]int
	dealerIdx  int
	round      int
	log        *event.Log
	boundary   *bot.Boundary
	phases     *fsm.FSM
}

func NewGame(conf Config) (*Game, error) {
	if conf.GameID == "" {
		return nil, ConfigError{Msg: "game id must not be empty"}
	}
	if len(conf.Players) < 2 {
		return nil, ConfigError{Msg: "a game needs at least two players"}
	}
	if err := conf.Rules.Validate(); err != nil {
		return nil, err
	}

	strategies := make(map[string]bot.Strategy, len(conf.Players))
	scores := make(map[string]int, len(conf.Players))
	for _, p := range conf.Players {
		if p.ID == "" {
			return nil, ConfigError{Msg: "player id must not be empty"}
		}
		if p.Strategy == nil {
			return nil, ConfigError{Msg: "player " + p.ID + " has no strategy"}
		}
		if _, dup := strategies[p.ID]; dup {
			return nil, ConfigError{Msg: "duplicate player id " + p.ID}
		}
		strategies[p.ID] = p.Strategy
		scores[p.ID] = 0
	}

	boundary := conf.Boundary
	if boundary == nil {
		boundary = bot.NewBoundary(conf.Rules.DecisionTimeout)
	}

	g := &Game{
		logger: gameLogger.With().
			Str(logging.GameIDKey, conf.GameID).
			Int64(logging.SeedKey, conf.Seed).
			Logger(),
		gameID:     conf.GameID,
		players:    append([]Player(nil), conf.Players...),
		strategies: strategies,
		rules:      conf.Rules,
		seed:       conf.Seed,
		deck:       cards.NewDeck(rand.NewSource(conf.Seed)),
		scores:     scores,
		log:        event.NewLog(conf.GameID, conf.Sink),
		boundary:   boundary,
	}
	g.phases = fsm.NewFSM(
		PhaseInitialDeal,
		fsm.Events{
			{Name: phaseEventDealDone, Src: []string{PhaseInitialDeal}, Dst: PhaseTurnCycle},
			{Name: phaseEventCycleDone, Src: []string{PhaseTurnCycle}, Dst: PhaseRoundScoring},
			{Name: phaseEventNextRound, Src: []string{PhaseRoundScoring}, Dst: PhaseInitialDeal},
			{Name: phaseEventFinish, Src: []string{PhaseRoundScoring}, Dst: PhaseGameEnd},
		},
		fsm.Callbacks{
			"enter_state": func(e *fsm.Event) {
				g.logger.Debug().Int(logging.RoundKey, g.round).Msgf("Phase %s -> %s", e.Src, e.Dst)
			},
		},
	)
	return g, nil
}

func (g *Game) transition(phaseEvent string) error {
	if err := g.phases.Event(phaseEvent); err != nil {
		return g.invariantErr("illegal phase transition %s from %s: %v", phaseEvent, g.phases.Current(), err)
	}
	return nil
}

// Phase returns the current phase name.
func (g *Game) Phase() string {
	return g.phases.Current()
}

// Events returns the event log accumulated so far.
func (g *Game) Events() []event.Event {
	return g.log.Events()
}

// Run plays rounds until one player alone holds the top score at or
// above the target. A context error aborts the game without a Result;
// bot misbehavior never does.
func (g *Game) Run(ctx context.Context) (*Result, error) {
	util.Metrics.GameStarted()
	g.logger.Info().Msgf("Starting game with %d players, target %d", len(g.players), g.rules.TargetScore)

	playerIDs := make([]string, 0, len(g.players))
	for _, p := range g.players {
		playerIDs = append(playerIDs, p.ID)
	}
	g.log.Emit(0, event.TypeGameStarted, "", &event.GameStartedPayload{
		Players:     playerIDs,
		TargetScore: g.rules.TargetScore,
		Seed:        g.seed,
	})

	for {
		if err := ctx.Err(); err != nil {
			util.Metrics.GameAborted()
			return nil, err
		}

		g.round++
		util.Metrics.RoundPlayed()
		r := newRound(g)
		if err := r.run(ctx); err != nil {
			util.Metrics.GameAborted()
			return nil, err
		}

		if winner, decided := g.winnerIfDecided(); decided {
			if err := g.transition(phaseEventFinish); err != nil {
				util.Metrics.GameAborted()
				return nil, err
			}
			g.log.Emit(g.round, event.TypeGameEnded, winner, &event.GameEndedPayload{
				Winner:       winner,
				FinalScores:  g.copyScores(),
				RoundsPlayed: g.round,
			})
			g.logger.Info().
				Str(logging.PlayerIDKey, winner).
				Int(logging.RoundKey, g.round).
				Msgf("Game over, %s wins with %d", winner, g.scores[winner])
			util.Metrics.GameCompleted()
			return &Result{
				GameID:       g.gameID,
				Winner:       winner,
				FinalScores:  g.copyScores(),
				RoundsPlayed: g.round,
				Events:       g.log.Events(),
			}, nil
		}

		g.dealerIdx = (g.dealerIdx + 1) % len(g.players)
		if err := g.transition(phaseEventNextRound); err != nil {
			util.Metrics.GameAborted()
			return nil, err
		}
	}
}

// winnerIfDecided reports the sole leader at or above the target score.
// A tie at the top keeps the game going for another round.
func (g *Game) winnerIfDecided() (string, bool) {
	best := -1
	leaders := 0
	var winner string
	for _, p := range g.players {
		score := g.scores[p.ID]
		switch {
		case score > best:
			best = score
			leaders = 1
			winner = p.ID
		case score == best:
			leaders++
		}
	}
	if best >= g.rules.TargetScore && leaders == 1 {
		return winner, true
	}
	return "", false
}

func (g *Game) copyScores() map[string]int {
	out := make(map[string]int, len(g.scores))
	for id, score := range g.scores {
		out[id] = score
	}
	return out
}
