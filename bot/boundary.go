package bot

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/flipstack/flipsim/cards"
	"github.com/flipstack/flipsim/logging"
	"github.com/flipstack/flipsim/util"
)

var boundaryLogger = log.With().Str("logger_name", "bot::boundary").Logger()

// DefaultDecisionTimeout bounds a single strategy call.
const DefaultDecisionTimeout = 2 * time.Second

// ViolationError reports an out-of-contract strategy response: a
// timeout, a panic, or a return value outside the documented domain.
// The engine converts it into a forfeit for the offending player; it is
// never fatal to a game or a tournament.
type ViolationError struct {
	Bot    string
	Op     string
	Reason string
}

func (e *ViolationError) Error() string {
	return fmt.Sprintf("bot %s violated protocol in %s: %s", e.Bot, e.Op, e.Reason)
}

// Boundary wraps every call into strategy code with a wall-clock
// deadline and return-value validation. One Boundary may be shared by
// many concurrent games; violation counts are aggregated per bot name.
type Boundary struct {
	timeout time.Duration

	mu         sync.Mutex
	violations map[string]int
}

func NewBoundary(timeout time.Duration) *Boundary {
	if timeout <= 0 {
		timeout = DefaultDecisionTimeout
	}
	return &Boundary{
		timeout:    timeout,
		violations: make(map[string]int),
	}
}

// HitOrPass asks the strategy for a turn decision.
func (b *Boundary) HitOrPass(ctx context.Context, s Strategy, dc *DecisionContext) (Decision, error) {
	out, err := b.invoke(ctx, s, "DecideHitOrPass", func() interface{} {
		return s.DecideHitOrPass(dc)
	})
	if err != nil {
		return "", err
	}
	decision, ok := out.(Decision)
	if !ok || (decision != Hit && decision != Pass) {
		return "", b.violation(s, "DecideHitOrPass", fmt.Sprintf("invalid decision %q", out))
	}
	return decision, nil
}

// UseSecondChance asks the strategy whether to spend a held Second
// Chance on the given duplicate value.
func (b *Boundary) UseSecondChance(ctx context.Context, s Strategy, dc *DecisionContext, duplicate int) (bool, error) {
	out, err := b.invoke(ctx, s, "DecideUseSecondChance", func() interface{} {
		return s.DecideUseSecondChance(dc, duplicate)
	})
	if err != nil {
		return false, err
	}
	use, ok := out.(bool)
	if !ok {
		return false, b.violation(s, "DecideUseSecondChance", fmt.Sprintf("invalid answer %v", out))
	}
	return use, nil
}

// ActionTarget asks the strategy to pick an action-card target from the
// eligible set.
func (b *Boundary) ActionTarget(ctx context.Context, s Strategy, dc *DecisionContext, action cards.ActionKind, eligible []string) (string, error) {
	if len(eligible) == 0 {
		// The engine never builds an empty eligible set; reaching here
		// is an engine defect, not a bot violation.
		return "", fmt.Errorf("empty eligible set for %s", action)
	}
	// The strategy gets its own copy so it cannot reorder the engine's set.
	eligibleCopy := make([]string, len(eligible))
	copy(eligibleCopy, eligible)

	out, err := b.invoke(ctx, s, "ChooseActionTarget", func() interface{} {
		return s.ChooseActionTarget(dc, action, eligibleCopy)
	})
	if err != nil {
		return "", err
	}
	target, ok := out.(string)
	if !ok {
		return "", b.violation(s, "ChooseActionTarget", fmt.Sprintf("invalid target %v", out))
	}
	for _, id := range eligible {
		if id == target {
			return target, nil
		}
	}
	return "", b.violation(s, "ChooseActionTarget", fmt.Sprintf("target %q not in eligible set", target))
}

// Violations returns a copy of the per-bot violation counts.
func (b *Boundary) Violations() map[string]int {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make(map[string]int, len(b.violations))
	for name, n := range b.violations {
		out[name] = n
	}
	return out
}

type callOutcome struct {
	value    interface{}
	panicked interface{}
}

// invoke runs fn in its own goroutine and waits at most the configured
// timeout. An expired call is abandoned: the result channel is buffered
// so the runaway goroutine can finish and be collected without anyone
// reading from it, and the engine side never blocks past the deadline.
func (b *Boundary) invoke(ctx context.Context, s Strategy, op string, fn func() interface{}) (interface{}, error) {
	ch := make(chan callOutcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				boundaryLogger.Warn().
					Str(logging.BotNameKey, s.Name()).
					Str("op", op).
					Msgf("Strategy panicked: %v\nStack Trace:\n%s", r, string(debug.Stack()))
				ch <- callOutcome{panicked: r}
			}
		}()
		ch <- callOutcome{value: fn()}
	}()

	timer := time.NewTimer(b.timeout)
	defer timer.Stop()

	select {
	case outcome := <-ch:
		if outcome.panicked != nil {
			return nil, b.violation(s, op, fmt.Sprintf("panic: %v", outcome.panicked))
		}
		return outcome.value, nil
	case <-timer.C:
		return nil, b.violation(s, op, fmt.Sprintf("deadline of %s exceeded", b.timeout))
	case <-ctx.Done():
		// Tournament cancellation, not a bot fault.
		return nil, ctx.Err()
	}
}

func (b *Boundary) violation(s Strategy, op string, reason string) *ViolationError {
	b.mu.Lock()
	b.violations[s.Name()]++
	b.mu.Unlock()
	util.Metrics.BotViolation()
	return &ViolationError{Bot: s.Name(), Op: op, Reason: reason}
}
