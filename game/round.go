package game

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/flipstack/flipsim/bot"
	"github.com/flipstack/flipsim/cards"
	"github.com/flipstack/flipsim/event"
	"github.com/flipstack/flipsim/logging"
	"github.com/flipstack/flipsim/util"
)

var roundLogger = log.With().Str("logger_name", "game::round").Logger()

// pendingAction is an action card waiting in the resolution queue. The
// physical card is already in the discard quarantine; only the effect
// is pending. drawer is the player who revealed the card and therefore
// chooses its target.
type pendingAction struct {
	drawer string
	kind   cards.ActionKind
}

// round drives one round from initial deal to scoring. It owns the
// tableaus; the deck and cumulative scores belong to the Game.
type round struct {
	g        *Game
	number   int
	order    []string
	tableaus map[string]*Tableau

	// pending holds queued action effects. Non-empty only while action
	// resolution is in flight; drained before control returns to the
	// turn cycle.
	pending []pendingAction

	// flipDepth > 0 while forced Flip Three draws are in progress, which
	// defers newly revealed Freeze/FlipThree effects to the queue.
	flipDepth int

	// dealing is set during the initial deal so the one face-up card each
	// player receives is logged as a deal, not a voluntary hit.
	dealing bool
}

func newRound(g *Game) *round {
	// Turn order is clockwise starting left of the dealer.
	order := make([]string, 0, len(g.players))
	for i := 1; i <= len(g.players); i++ {
		order = append(order, g.players[(g.dealerIdx+i)%len(g.players)].ID)
	}
	tableaus := make(map[string]*Tableau, len(g.players))
	for _, p := range g.players {
		tableaus[p.ID] = NewTableau(p.ID)
	}
	return &round{
		g:        g,
		number:   g.round,
		order:    order,
		tableaus: tableaus,
	}
}

func (r *round) run(ctx context.Context) error {
	g := r.g
	g.log.Emit(r.number, event.TypeRoundStarted, "", &event.RoundStartedPayload{
		Dealer:        g.players[g.dealerIdx].ID,
		DeckRemaining: g.deck.Remaining(),
		Cumulative:    g.copyScores(),
	})

	if err := r.initialDeal(ctx); err != nil {
		return err
	}
	if err := g.transition(phaseEventDealDone); err != nil {
		return err
	}
	if err := r.turnCycle(ctx); err != nil {
		return err
	}
	if err := g.transition(phaseEventCycleDone); err != nil {
		return err
	}
	return r.scoreRound()
}

// initialDeal flips one card to each player in turn order. Action and
// modifier cards resolve exactly as on a normal turn, so a player can
// be frozen, or even busted by a Flip Three chain, before their first
// real turn; such players are skipped for the rest of the deal.
func (r *round) initialDeal(ctx context.Context) error {
	r.dealing = true
	defer func() { r.dealing = false }()
	for _, pid := range r.order {
		if err := ctx.Err(); err != nil {
			return err
		}
		if r.tableaus[pid].Status != StatusActive {
			continue
		}
		card, err := r.drawCard(pid, false)
		if err != nil {
			return err
		}
		if err := r.applyCard(ctx, pid, card); err != nil {
			return err
		}
	}
	return nil
}

func (r *round) turnCycle(ctx context.Context) error {
	for r.anyActive() {
		acted := false
		for _, pid := range r.order {
			if err := ctx.Err(); err != nil {
				return err
			}
			if r.tableaus[pid].Status != StatusActive {
				continue
			}
			acted = true
			if err := r.takeTurn(ctx, pid); err != nil {
				return err
			}
		}
		if !acted {
			return r.g.invariantErr("turn cycle found active players but visited none")
		}
	}
	return nil
}

// takeTurn runs one player's whole turn. Turns are multi-draw: the
// player keeps hitting until they pass, bust, flip seven, or spend a
// Second Chance.
func (r *round) takeTurn(ctx context.Context, pid string) error {
	g := r.g
	for r.tableaus[pid].Status == StatusActive {
		if err := ctx.Err(); err != nil {
			return err
		}

		decision, err := g.boundary.HitOrPass(ctx, g.strategies[pid], r.decisionContext(pid))
		if err != nil {
			return r.handleDecisionError(pid, err)
		}
		if decision == bot.Pass {
			r.bank(pid, StatusPassed, "pass")
			return nil
		}

		card, err := r.drawCard(pid, false)
		if err != nil {
			return err
		}
		if err := r.applyCard(ctx, pid, card); err != nil {
			return err
		}
	}
	return nil
}

// drawCard removes the top card, reshuffling prior-round discards first
// if the pile is empty, and verifies deck accounting. The draw event is
// emitted before the card's effect mutates any tableau.
func (r *round) drawCard(pid string, forced bool) (cards.Card, error) {
	g := r.g
	if g.deck.Empty() {
		if !g.deck.CanReshuffle() {
			return cards.Card{}, g.invariantErr("draw pile and prior discards are both empty")
		}
		g.log.Emit(r.number, event.TypeReshuffle, "", &event.ReshufflePayload{
			Cards: g.deck.PriorDiscards(),
		})
		n := g.deck.Reshuffle()
		util.Metrics.DeckReshuffled()
		roundLogger.Debug().
			Str(logging.GameIDKey, g.gameID).
			Int(logging.RoundKey, r.number).
			Msgf("Reshuffled %d cards into the draw pile", n)
	}

	card, err := g.deck.Draw()
	if err != nil {
		return cards.Card{}, g.invariantErr("draw failed: %v", err)
	}
	typ := event.TypeDraw
	if r.dealing && !forced {
		typ = event.TypeDeal
	}
	g.log.Emit(r.number, typ, pid, &event.CardPayload{
		Card:          card.String(),
		DeckRemaining: g.deck.Remaining(),
		Forced:        forced,
	})
	return card, nil
}

// applyCard routes a drawn card to its effect. By the time it returns,
// the card is accounted for in a tableau or a discard pile.
func (r *round) applyCard(ctx context.Context, pid string, card cards.Card) error {
	var err error
	switch card.Kind {
	case cards.KindNumber:
		err = r.applyNumber(ctx, pid, card)
	case cards.KindModifier:
		r.tableaus[pid].AddModifier(card)
	case cards.KindAction:
		err = r.applyAction(ctx, pid, card)
	default:
		return r.g.invariantErr("drew card of unknown kind %d", card.Kind)
	}
	if err != nil {
		return err
	}
	return r.checkAccounting()
}

func (r *round) applyNumber(ctx context.Context, pid string, card cards.Card) error {
	g := r.g
	t := r.tableaus[pid]

	if t.HoldsValue(card.Value) {
		// Bust condition. A held Second Chance can avert it.
		if t.HasSecondChance {
			use, err := g.boundary.UseSecondChance(ctx, g.strategies[pid], r.decisionContext(pid), card.Value)
			if err != nil {
				if derr := r.handleDecisionError(pid, err); derr != nil {
					return derr
				}
				g.deck.DiscardCurrent(card)
				return nil
			}
			if use {
				g.log.Emit(r.number, event.TypeSecondChanceUsed, pid, &event.SecondChancePayload{
					Duplicate: card.Value,
				})
				t.HasSecondChance = false
				g.deck.DiscardCurrent(card, cards.NewActionCard(cards.ActionSecondChance))
				// The save ends the turn immediately; the score banks normally.
				r.bank(pid, StatusPassed, "second_chance")
				return nil
			}
		}
		r.bust(pid, card.Value, "duplicate")
		g.deck.DiscardCurrent(card)
		return nil
	}

	t.AddNumber(card)
	if t.UniqueValues() == g.rules.FlipSevenThreshold {
		g.log.Emit(r.number, event.TypeFlipSevenAchieved, pid, nil)
		r.bank(pid, StatusPassed, "flip_seven")
	}
	return nil
}

// applyAction quarantines or grants the physical card and either
// resolves the effect now or defers it to the queue, depending on
// whether forced Flip Three draws are in progress.
func (r *round) applyAction(ctx context.Context, pid string, card cards.Card) error {
	if card.Action == cards.ActionSecondChance {
		// Second Chance is never queued: granted mid Flip Three it can
		// still save a bust later in the sequence.
		if r.flipDepth > 0 {
			return r.grantSecondChanceDirect(ctx, pid)
		}
		return r.grantSecondChance(ctx, pid)
	}

	r.g.deck.DiscardCurrent(card)
	r.pending = append(r.pending, pendingAction{drawer: pid, kind: card.Action})
	if r.flipDepth > 0 {
		return nil
	}
	return r.processPending(ctx)
}

// processPending drains the action resolution queue. Effects queued
// during a Flip Three sequence land here and run only after the
// sequence completes; an effect whose drawer busted in the meantime is
// dropped with its card already discarded.
func (r *round) processPending(ctx context.Context) error {
	for len(r.pending) > 0 {
		pa := r.pending[0]
		r.pending = r.pending[1:]

		if err := ctx.Err(); err != nil {
			return err
		}
		if r.tableaus[pa.drawer].Status == StatusBusted {
			roundLogger.Debug().
				Str(logging.GameIDKey, r.g.gameID).
				Str(logging.PlayerIDKey, pa.drawer).
				Msgf("Dropping queued %s: drawer busted before resolution", pa.kind)
			continue
		}
		if err := r.resolveAction(ctx, pa.drawer, pa.kind); err != nil {
			return err
		}
	}
	return nil
}

// resolveAction has the drawer pick a target and applies a Freeze or
// Flip Three. The physical card is already discarded.
func (r *round) resolveAction(ctx context.Context, drawer string, kind cards.ActionKind) error {
	g := r.g
	eligible := r.activePlayers()
	if len(eligible) == 0 {
		// A queued effect can outlive the whole active set: its drawer
		// may have flip-sevened or spent a Second Chance mid sequence
		// while everyone else had already banked. The card is already
		// discarded; the effect fizzles.
		roundLogger.Debug().
			Str(logging.GameIDKey, g.gameID).
			Str(logging.PlayerIDKey, drawer).
			Msgf("Dropping queued %s: no eligible targets remain", kind)
		return nil
	}

	target, err := g.boundary.ActionTarget(ctx, g.strategies[drawer], r.decisionContext(drawer), kind, eligible)
	if err != nil {
		return r.handleDecisionError(drawer, err)
	}

	g.log.Emit(r.number, event.TypeActionResolved, target, &event.ActionPayload{
		Action: kind.String(),
		Drawer: drawer,
		Target: target,
	})

	switch kind {
	case cards.ActionFreeze:
		g.log.Emit(r.number, event.TypeFreezeApplied, target, nil)
		r.bank(target, StatusFrozen, "freeze")
		return nil
	case cards.ActionFlipThree:
		return r.resolveFlipThree(ctx, target)
	}
	return g.invariantErr("unexpected queued action kind %s", kind)
}

// resolveFlipThree forces the target to draw three cards, stopping
// early on a bust or a flip seven. Freeze and Flip Three cards revealed
// during the sequence are queued; the caller's processPending loop
// resolves them afterwards.
func (r *round) resolveFlipThree(ctx context.Context, target string) error {
	g := r.g
	g.log.Emit(r.number, event.TypeFlipThreeStarted, target, nil)

	r.flipDepth++
	defer func() { r.flipDepth-- }()

	for i := 0; i < 3; i++ {
		if r.tableaus[target].Status != StatusActive {
			break
		}
		card, err := r.drawCard(target, true)
		if err != nil {
			return err
		}
		if err := r.applyCard(ctx, target, card); err != nil {
			return err
		}
	}
	return nil
}

// grantSecondChance resolves a Second Chance drawn on a normal turn:
// the drawer picks any active player; a target already holding one
// forces a redirect to a different active non-holder, or a discard when
// none exists.
func (r *round) grantSecondChance(ctx context.Context, drawer string) error {
	g := r.g
	eligible := r.activePlayers()
	if len(eligible) == 0 {
		return g.invariantErr("no eligible targets for second chance drawn by %s", drawer)
	}

	target, err := g.boundary.ActionTarget(ctx, g.strategies[drawer], r.decisionContext(drawer), cards.ActionSecondChance, eligible)
	if err != nil {
		if derr := r.handleDecisionError(drawer, err); derr != nil {
			return derr
		}
		g.deck.DiscardCurrent(cards.NewActionCard(cards.ActionSecondChance))
		return nil
	}

	if !r.tableaus[target].HasSecondChance {
		r.holdSecondChance(drawer, target)
		return nil
	}
	return r.redirectSecondChance(ctx, drawer, target)
}

// grantSecondChanceDirect handles a Second Chance revealed during
// forced Flip Three draws: it goes straight to the drawing player so it
// can save a bust later in the sequence. If they already hold one, the
// normal redirect applies.
func (r *round) grantSecondChanceDirect(ctx context.Context, drawer string) error {
	if !r.tableaus[drawer].HasSecondChance {
		r.holdSecondChance(drawer, drawer)
		return nil
	}
	return r.redirectSecondChance(ctx, drawer, drawer)
}

// redirectSecondChance re-targets a Second Chance whose target already
// holds one. Eligible recipients are active players other than the
// original target who do not hold one; with none, the card is
// discarded.
func (r *round) redirectSecondChance(ctx context.Context, drawer, original string) error {
	g := r.g
	var eligible []string
	for _, pid := range r.order {
		if pid == original {
			continue
		}
		t := r.tableaus[pid]
		if t.Status == StatusActive && !t.HasSecondChance {
			eligible = append(eligible, pid)
		}
	}
	if len(eligible) == 0 {
		g.deck.DiscardCurrent(cards.NewActionCard(cards.ActionSecondChance))
		return nil
	}

	target, err := g.boundary.ActionTarget(ctx, g.strategies[drawer], r.decisionContext(drawer), cards.ActionSecondChance, eligible)
	if err != nil {
		if derr := r.handleDecisionError(drawer, err); derr != nil {
			return derr
		}
		g.deck.DiscardCurrent(cards.NewActionCard(cards.ActionSecondChance))
		return nil
	}
	r.holdSecondChance(drawer, target)
	return nil
}

func (r *round) holdSecondChance(drawer, target string) {
	g := r.g
	g.log.Emit(r.number, event.TypeActionResolved, target, &event.ActionPayload{
		Action: cards.ActionSecondChance.String(),
		Drawer: drawer,
		Target: target,
	})
	g.log.Emit(r.number, event.TypeSecondChanceHeld, target, nil)
	r.tableaus[target].HasSecondChance = true
}

// bank locks in a player's round score and moves them out of Active.
// Freeze banks whatever the hand holds right now, including an empty
// hand, which scores 0.
func (r *round) bank(pid string, status PlayerStatus, reason string) {
	t := r.tableaus[pid]
	breakdown := ScoreTableau(t, r.g.rules)
	r.g.log.Emit(r.number, event.TypePlayerPassed, pid, &event.PassedPayload{
		BankedScore: breakdown.FinalScore,
		Reason:      reason,
	})
	t.Status = status
	t.BankedScore = breakdown.FinalScore
}

func (r *round) bust(pid string, duplicate int, reason string) {
	t := r.tableaus[pid]
	r.g.log.Emit(r.number, event.TypeBust, pid, &event.BustPayload{
		Duplicate: duplicate,
		Reason:    reason,
	})
	t.Status = StatusBusted
	t.BankedScore = 0
}

// handleDecisionError converts a protocol violation into a forfeit for
// the offending player and keeps the game going. Any other error
// (cancellation, engine defect) propagates.
func (r *round) handleDecisionError(pid string, err error) error {
	verr, isViolation := err.(*bot.ViolationError)
	if !isViolation {
		return err
	}
	g := r.g
	roundLogger.Warn().
		Str(logging.GameIDKey, g.gameID).
		Str(logging.PlayerIDKey, pid).
		Int(logging.RoundKey, r.number).
		Msgf("Protocol violation, forfeiting round: %v", verr)
	g.log.Emit(r.number, event.TypeViolation, pid, &event.ViolationPayload{
		Bot:    verr.Bot,
		Op:     verr.Op,
		Reason: verr.Reason,
	})
	t := r.tableaus[pid]
	if t.Status != StatusBusted {
		r.bust(pid, 0, "protocol_violation")
	}
	return nil
}

// scoreRound adds each banked score to the cumulative totals, returns
// every tableau card to the discard pile, and emits the scoring event.
func (r *round) scoreRound() error {
	g := r.g

	scores := make(map[string]int, len(r.order))
	for _, pid := range r.order {
		t := r.tableaus[pid]
		if t.Status == StatusActive {
			return g.invariantErr("player %s still active at round scoring", pid)
		}
		scores[pid] = t.BankedScore
	}

	cumulative := make(map[string]int, len(r.order))
	for _, pid := range r.order {
		cumulative[pid] = g.scores[pid] + scores[pid]
	}
	g.log.Emit(r.number, event.TypeRoundScored, "", &event.RoundScoredPayload{
		Scores:     scores,
		Cumulative: cumulative,
	})
	for pid, total := range cumulative {
		g.scores[pid] = total
	}

	var returned []cards.Card
	for _, pid := range r.order {
		returned = append(returned, r.tableaus[pid].Cards()...)
	}
	g.deck.FlushRound(returned)

	if g.deck.CardsHeld() != g.deck.Total() {
		return g.invariantErr("deck accounting mismatch after round flush: %d cards", g.deck.CardsHeld())
	}
	return nil
}

// checkAccounting verifies the full-deck multiset invariant at a point
// where no card is in flight.
func (r *round) checkAccounting() error {
	total := r.g.deck.CardsHeld()
	for _, t := range r.tableaus {
		total += t.CardCount()
	}
	if total != r.g.deck.Total() {
		return r.g.invariantErr("deck accounting mismatch: %d cards across piles and tableaus", total)
	}
	return nil
}

func (r *round) anyActive() bool {
	for _, t := range r.tableaus {
		if t.Status == StatusActive {
			return true
		}
	}
	return false
}

// activePlayers returns active player ids in turn order. This is the
// eligible target set for action cards.
func (r *round) activePlayers() []string {
	var out []string
	for _, pid := range r.order {
		if r.tableaus[pid].Status == StatusActive {
			out = append(out, pid)
		}
	}
	return out
}

// decisionContext snapshots the game for one strategy call. Everything
// is copied; the strategy can never reach live engine state through it.
func (r *round) decisionContext(pid string) *bot.DecisionContext {
	g := r.g
	self := r.tableaus[pid].View()
	opponents := make([]bot.TableauView, 0, len(r.order)-1)
	opponentScores := make(map[string]int, len(r.order)-1)
	for _, other := range r.order {
		if other == pid {
			continue
		}
		opponents = append(opponents, r.tableaus[other].View())
		opponentScores[other] = g.scores[other]
	}
	return &bot.DecisionContext{
		Self:           self,
		Opponents:      opponents,
		DeckRemaining:  g.deck.Remaining(),
		SelfScore:      g.scores[pid],
		OpponentScores: opponentScores,
		Round:          r.number,
		TargetScore:    g.rules.TargetScore,
	}
}
