package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/forge-ai/forge-core/internal/tokenbudget"
	"github.com/forge-ai/forge-core/internal/truncate"
	"github.com/forge-ai/forge-core/pkg/models"
)

// defaultTruncateOptions applies the Context Truncator's sliding-window
// strategy followed by a hard token-budget drop, the same two-strategy
// fallback chain as the teacher's context pruning falls back to a coarser
// strategy when a finer one still leaves the window over budget.
func defaultTruncateOptions() truncate.Options {
	return truncate.Options{
		Strategy: truncate.Composite,
		Chain: []truncate.Options{
			{Strategy: truncate.SlidingWindow, Window: 40},
			{Strategy: truncate.TokenBudget},
		},
	}
}

// SetBudgeter attaches the token budgeter used to size the Context
// Truncator's budget for each model before a run's history is packed.
// A nil budgeter (the default) disables the truncation pass entirely,
// leaving history sizing to the context packer alone.
func (r *Runtime) SetBudgeter(b *tokenbudget.Budgeter) {
	r.budgeter = b
}

// SetTruncateOptions overrides the strategy the Context Truncator applies
// once a run's history exceeds its conversation budget. Ignored while no
// Budgeter is set.
func (r *Runtime) SetTruncateOptions(opts truncate.Options) {
	r.truncateOpts = &opts
}

// fitHistoryToBudget applies the Context Truncator (C2) to history, sizing
// the budget from the Token Budgeter's (C1) per-model conversation split.
// It is a no-op when no Budgeter has been configured.
func (r *Runtime) fitHistoryToBudget(ctx context.Context, model string, history []*models.Message) ([]*models.Message, error) {
	if r.budgeter == nil || len(history) == 0 {
		return history, nil
	}

	budget := r.budgeter.Budget(model)
	counter := func(m models.Message) int { return r.budgeter.Count(model, m.Content) }

	flat := make([]models.Message, len(history))
	for i, m := range history {
		flat[i] = *m
	}

	opts := defaultTruncateOptions()
	if r.truncateOpts != nil {
		opts = *r.truncateOpts
	}
	opts.Summarizer = &llmTruncateSummarizer{runtime: r, model: model}
	opts.OnTokensConsumed = func(tokens int) {
		if tokens > 0 && r.opts.Logger != nil {
			r.opts.Logger.Info("context truncator consumed summarize tokens", "model", model, "tokens", tokens)
		}
	}

	fitted, result, err := truncate.Fit(ctx, flat, budget.Conversation, counter, opts)
	if err != nil {
		return nil, fmt.Errorf("agent: fit history to budget: %w", err)
	}
	if !result.WasTruncated {
		return history, nil
	}

	out := make([]*models.Message, len(fitted))
	for i := range fitted {
		m := fitted[i]
		out[i] = &m
	}
	return out, nil
}

// llmTruncateSummarizer backs the "summarize" truncation strategy with a
// single, non-looping call through the same LLMProvider the Agent Runtime
// already uses, per the decision that a truncation-triggered summary must
// not re-enter the agentic loop.
type llmTruncateSummarizer struct {
	runtime *Runtime
	model   string
}

func (s *llmTruncateSummarizer) Summarize(ctx context.Context, dropped []models.Message) (string, int, error) {
	req := &CompletionRequest{
		Model:  s.model,
		System: "You compress dropped conversation history into one short note preserving durable facts. Return only the note.",
		Messages: []CompletionMessage{
			{Role: "user", Content: buildTruncationSummaryPrompt(dropped)},
		},
		MaxTokens: 512,
	}

	ch, err := s.runtime.provider.Complete(ctx, req)
	if err != nil {
		return "", 0, fmt.Errorf("agent: truncation summarizer: %w", err)
	}

	var text strings.Builder
	tokens := 0
	for chunk := range ch {
		if chunk == nil {
			continue
		}
		if chunk.Error != nil {
			return "", 0, fmt.Errorf("agent: truncation summarizer: %w", chunk.Error)
		}
		if chunk.Text != "" {
			text.WriteString(chunk.Text)
		}
		if chunk.Done {
			tokens = chunk.InputTokens + chunk.OutputTokens
		}
	}
	return strings.TrimSpace(text.String()), tokens, nil
}

func buildTruncationSummaryPrompt(dropped []models.Message) string {
	var b strings.Builder
	b.WriteString("Summarize the durable facts from these messages in a few sentences:\n\n")
	for _, m := range dropped {
		if m.Content == "" {
			continue
		}
		b.WriteString(string(m.Role))
		b.WriteString(": ")
		b.WriteString(m.Content)
		b.WriteString("\n")
	}
	return b.String()
}
