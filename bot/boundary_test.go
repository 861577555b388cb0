package bot

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flipstack/flipsim/cards"
)

// misbehavingStrategy can be tuned to violate the protocol in each of
// the ways the boundary must catch.
type misbehavingStrategy struct {
	name        string
	decision    Decision
	target      string
	sleep       time.Duration
	panicOnCall bool
}

func (s *misbehavingStrategy) Name() string { return s.name }

func (s *misbehavingStrategy) DecideHitOrPass(ctx *DecisionContext) Decision {
	s.misbehave()
	return s.decision
}

func (s *misbehavingStrategy) DecideUseSecondChance(ctx *DecisionContext, duplicate int) bool {
	s.misbehave()
	return true
}

func (s *misbehavingStrategy) ChooseActionTarget(ctx *DecisionContext, action cards.ActionKind, eligible []string) string {
	s.misbehave()
	return s.target
}

func (s *misbehavingStrategy) misbehave() {
	if s.panicOnCall {
		panic("strategy exploded")
	}
	if s.sleep > 0 {
		time.Sleep(s.sleep)
	}
}

func testContext() *DecisionContext {
	return &DecisionContext{
		Self:        TableauView{PlayerID: "p1", Status: "active"},
		Round:       1,
		TargetScore: 200,
	}
}

func TestHitOrPassValid(t *testing.T) {
	b := NewBoundary(time.Second)
	s := &misbehavingStrategy{name: "ok", decision: Hit}

	decision, err := b.HitOrPass(context.Background(), s, testContext())
	require.NoError(t, err)
	assert.Equal(t, Hit, decision)
	assert.Empty(t, b.Violations())
}

func TestHitOrPassInvalidDecision(t *testing.T) {
	b := NewBoundary(time.Second)
	s := &misbehavingStrategy{name: "bad", decision: Decision("fold")}

	_, err := b.HitOrPass(context.Background(), s, testContext())
	require.Error(t, err)
	var violation *ViolationError
	require.ErrorAs(t, err, &violation)
	assert.Equal(t, "bad", violation.Bot)
	assert.Equal(t, 1, b.Violations()["bad"])
}

func TestHitOrPassTimeout(t *testing.T) {
	b := NewBoundary(50 * time.Millisecond)
	s := &misbehavingStrategy{name: "slow", decision: Hit, sleep: 2 * time.Second}

	start := time.Now()
	_, err := b.HitOrPass(context.Background(), s, testContext())
	elapsed := time.Since(start)

	var violation *ViolationError
	require.ErrorAs(t, err, &violation)
	// The engine side must be released at the deadline, not when the
	// runaway strategy eventually returns.
	assert.Less(t, elapsed, time.Second)
	assert.Equal(t, 1, b.Violations()["slow"])
}

func TestHitOrPassPanic(t *testing.T) {
	b := NewBoundary(time.Second)
	s := &misbehavingStrategy{name: "panicky", panicOnCall: true}

	_, err := b.HitOrPass(context.Background(), s, testContext())
	var violation *ViolationError
	require.ErrorAs(t, err, &violation)
	assert.Contains(t, violation.Reason, "panic")
}

func TestActionTargetNotEligible(t *testing.T) {
	b := NewBoundary(time.Second)
	s := &misbehavingStrategy{name: "cheater", target: "p9"}

	_, err := b.ActionTarget(context.Background(), s, testContext(), cards.ActionFreeze, []string{"p1", "p2"})
	var violation *ViolationError
	require.ErrorAs(t, err, &violation)
	assert.Contains(t, violation.Reason, "not in eligible set")
}

func TestActionTargetValid(t *testing.T) {
	b := NewBoundary(time.Second)
	s := &misbehavingStrategy{name: "ok", target: "p2"}

	target, err := b.ActionTarget(context.Background(), s, testContext(), cards.ActionFlipThree, []string{"p1", "p2"})
	require.NoError(t, err)
	assert.Equal(t, "p2", target)
}

func TestUseSecondChanceValid(t *testing.T) {
	b := NewBoundary(time.Second)
	s := &misbehavingStrategy{name: "ok"}

	use, err := b.UseSecondChance(context.Background(), s, testContext(), 7)
	require.NoError(t, err)
	assert.True(t, use)
}

func TestCancelledContextIsNotViolation(t *testing.T) {
	b := NewBoundary(time.Second)
	s := &misbehavingStrategy{name: "slow", decision: Hit, sleep: 2 * time.Second}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := b.HitOrPass(ctx, s, testContext())
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, b.Violations(), "cancellation must not count against the bot")
}

func TestViolationCountsAccumulate(t *testing.T) {
	b := NewBoundary(time.Second)
	s := &misbehavingStrategy{name: "bad", decision: Decision("nope")}

	for i := 0; i < 3; i++ {
		_, err := b.HitOrPass(context.Background(), s, testContext())
		require.Error(t, err)
	}
	assert.Equal(t, 3, b.Violations()["bad"])
}
