package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	gameStartedCounter   prometheus.Counter
	gameCompletedCounter prometheus.Counter
	gameAbortedCounter   prometheus.Counter
	botViolationCounter  prometheus.Counter
	activeGamesGauge     prometheus.Gauge
	roundsPlayedCounter  prometheus.Counter
	deckReshuffleCounter prometheus.Counter
}

func (m *metrics) GameStarted() {
	m.gameStartedCounter.Inc()
	m.activeGamesGauge.Inc()
}

func (m *metrics) GameCompleted() {
	m.gameCompletedCounter.Inc()
	m.activeGamesGauge.Dec()
}

func (m *metrics) GameAborted() {
	m.gameAbortedCounter.Inc()
	m.activeGamesGauge.Dec()
}

func (m *metrics) BotViolation() {
	m.botViolationCounter.Inc()
}

func (m *metrics) RoundPlayed() {
	m.roundsPlayedCounter.Inc()
}

func (m *metrics) DeckReshuffled() {
	m.deckReshuffleCounter.Inc()
}

var Metrics = &metrics{
	gameStartedCounter: promauto.NewCounter(prometheus.CounterOpts{
		Name: "games_started_total",
		Help: "Total number of games started",
	}),
	gameCompletedCounter: promauto.NewCounter(prometheus.CounterOpts{
		Name: "games_completed_total",
		Help: "Total number of games run to completion",
	}),
	gameAbortedCounter: promauto.NewCounter(prometheus.CounterOpts{
		Name: "games_aborted_total",
		Help: "Total number of games aborted due to an engine defect or cancellation",
	}),
	botViolationCounter: promauto.NewCounter(prometheus.CounterOpts{
		Name: "bot_protocol_violations_total",
		Help: "Total number of bot protocol violations (timeout, panic, bad return value)",
	}),
	activeGamesGauge: promauto.NewGauge(prometheus.GaugeOpts{
		Name: "active_games_count",
		Help: "Count of games currently being simulated",
	}),
	roundsPlayedCounter: promauto.NewCounter(prometheus.CounterOpts{
		Name: "rounds_played_total",
		Help: "Total number of rounds played across all games",
	}),
	deckReshuffleCounter: promauto.NewCounter(prometheus.CounterOpts{
		Name: "deck_reshuffles_total",
		Help: "Total number of mid-round discard pile reshuffles",
	}),
}
