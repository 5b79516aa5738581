package truncate

import (
	"context"
	"fmt"

	"github.com/forge-ai/forge-core/pkg/models"
)

// Strategy names a fitting policy, per the strategy table.
type Strategy string

const (
	SlidingWindow Strategy = "sliding-window"
	TokenBudget   Strategy = "token-budget"
	Smart         Strategy = "smart"
	Selective     Strategy = "selective"
	Summarize     Strategy = "summarize"
	Composite     Strategy = "composite"
)

// TokenCounter counts tokens for a single message; callers normally back
// this with a tokenbudget.Budgeter bound to a specific model.
type TokenCounter func(models.Message) int

// Summarizer compresses a contiguous band of dropped messages into a
// single assistant note. It is invoked by the Summarize strategy with a
// direct, non-looping LLM call and must not itself call back into
// anything that re-enters the truncator.
type Summarizer interface {
	Summarize(ctx context.Context, dropped []models.Message) (summary string, usedTokens int, err error)
}

// Options parameterises a Fit call.
type Options struct {
	Strategy Strategy
	// Window is the N parameter for SlidingWindow: number of trailing
	// units to keep.
	Window int
	// KeepLast is the number of trailing units Smart always retains.
	KeepLast int
	// Predicate is consulted by Selective; a unit matching it is dropped.
	Predicate func(models.Message) bool
	// Chain lists the strategies Composite applies in order until the
	// budget is met.
	Chain []Options
	// Summarizer backs the Summarize strategy.
	Summarizer Summarizer
	// OnTokensConsumed receives the token cost of a Summarize LLM call so
	// the caller can charge it against the enclosing Agent Run's usage.
	OnTokensConsumed func(tokens int)
}

// Result reports what Fit did.
type Result struct {
	WasTruncated bool
	DroppedCount int
}

// Fit applies opts.Strategy to messages so the result's token total is at
// most budget, counting tokens with count. It never breaks the invariant
// that a tool-role message and its originating assistant tool call are
// dropped or kept together: truncate.groupUnits pre-partitions messages
// into atomic units before any strategy touches them.
func Fit(ctx context.Context, messages []models.Message, budget int, count TokenCounter, opts Options) ([]models.Message, Result, error) {
	units := groupUnits(messages, count)
	if sumTokens(units) <= budget {
		return flatten(units), Result{}, nil
	}

	originalCount := countMessages(units)

	var (
		out []unit
		err error
	)
	switch opts.Strategy {
	case SlidingWindow:
		out = slidingWindow(units, opts.Window)
	case TokenBudget:
		out = tokenBudgetDrop(units, budget)
	case Smart:
		out = smart(units, opts.KeepLast, count)
	case Selective:
		out = selective(units, opts.Predicate)
	case Summarize:
		out, err = summarize(ctx, units, budget, opts, count)
	case Composite:
		out, err = composite(ctx, units, budget, count, opts.Chain)
	default:
		return nil, Result{}, fmt.Errorf("truncate: unknown strategy %q", opts.Strategy)
	}
	if err != nil {
		return nil, Result{}, err
	}

	result := Result{
		WasTruncated: countMessages(out) < originalCount,
		DroppedCount: originalCount - countMessages(out),
	}
	return flatten(out), result, nil
}

// slidingWindow keeps the last n units, always preserving any leading
// system unit.
func slidingWindow(units []unit, n int) []unit {
	if n <= 0 || len(units) <= n {
		return units
	}
	var lead []unit
	rest := units
	if len(units) > 0 && units[0].isSystem() {
		lead = units[:1]
		rest = units[1:]
	}
	if len(rest) <= n {
		return append(lead, rest...)
	}
	return append(lead, rest[len(rest)-n:]...)
}

// tokenBudgetDrop drops the oldest non-system units until the total fits.
func tokenBudgetDrop(units []unit, budget int) []unit {
	total := sumTokens(units)
	start := 0
	for start < len(units) && total > budget {
		if units[start].pinned {
			start++
			continue
		}
		total -= units[start].tokens
		start++
	}
	kept := make([]unit, 0, len(units)-start)
	for i, u := range units {
		if i < start && !u.pinned {
			continue
		}
		kept = append(kept, u)
	}
	return kept
}

// smart keeps the first system unit plus the last keepLast units,
// collapsing the dropped middle band into one placeholder unit.
func smart(units []unit, keepLast int, count TokenCounter) []unit {
	if keepLast <= 0 {
		keepLast = 4
	}
	var lead []unit
	rest := units
	if len(units) > 0 && units[0].isSystem() {
		lead = units[:1]
		rest = units[1:]
	}
	if len(rest) <= keepLast {
		return append(lead, rest...)
	}
	dropped := rest[:len(rest)-keepLast]
	tail := rest[len(rest)-keepLast:]

	droppedMessages := 0
	for _, u := range dropped {
		droppedMessages += len(u.messages)
	}
	out := append(append([]unit{}, lead...), placeholderUnit(droppedMessages, count))
	return append(out, tail...)
}

// selective drops any unit whose lead message matches predicate.
func selective(units []unit, predicate func(models.Message) bool) []unit {
	if predicate == nil {
		return units
	}
	kept := make([]unit, 0, len(units))
	for _, u := range units {
		if !u.pinned && len(u.messages) > 0 && predicate(u.messages[0]) {
			continue
		}
		kept = append(kept, u)
	}
	return kept
}

// summarize compresses the oldest non-system units into a single
// assistant note placed after the leading system unit and before the
// retained tail, stopping once the budget is met.
func summarize(ctx context.Context, units []unit, budget int, opts Options, count TokenCounter) ([]unit, error) {
	if opts.Summarizer == nil {
		return nil, fmt.Errorf("truncate: summarize strategy requires a Summarizer")
	}
	var lead []unit
	rest := units
	if len(units) > 0 && units[0].isSystem() {
		lead = units[:1]
		rest = units[1:]
	}

	total := sumTokens(lead) + sumTokens(rest)
	cut := 0
	for cut < len(rest) && total > budget {
		total -= rest[cut].tokens
		cut++
	}
	if cut == 0 {
		return units, nil
	}

	dropped := flatten(rest[:cut])
	tail := rest[cut:]

	summaryText, usedTokens, err := opts.Summarizer.Summarize(ctx, dropped)
	if err != nil {
		return nil, fmt.Errorf("truncate: summarize: %w", err)
	}
	if opts.OnTokensConsumed != nil {
		opts.OnTokensConsumed(usedTokens)
	}

	summaryMsg := models.Message{Role: models.RoleAssistant, Content: summaryText}
	summaryUnit := unit{messages: []models.Message{summaryMsg}, tokens: count(summaryMsg), pinned: true}

	out := append(append([]unit{}, lead...), summaryUnit)
	return append(out, tail...), nil
}

// composite applies each strategy in chain in order, stopping as soon as
// the running total fits under budget.
func composite(ctx context.Context, units []unit, budget int, count TokenCounter, chain []Options) ([]unit, error) {
	current := units
	for _, step := range chain {
		if sumTokens(current) <= budget {
			break
		}
		var (
			next []unit
			err  error
		)
		switch step.Strategy {
		case SlidingWindow:
			next = slidingWindow(current, step.Window)
		case TokenBudget:
			next = tokenBudgetDrop(current, budget)
		case Smart:
			next = smart(current, step.KeepLast, count)
		case Selective:
			next = selective(current, step.Predicate)
		case Summarize:
			stepOpts := step
			next, err = summarize(ctx, current, budget, stepOpts, count)
		default:
			return nil, fmt.Errorf("truncate: composite: unknown strategy %q", step.Strategy)
		}
		if err != nil {
			return nil, err
		}
		current = next
	}
	return current, nil
}
