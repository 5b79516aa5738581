// Package tokenbudget counts tokens per model and splits a model's context
// window into per-section budgets for the prompt assembly step of the
// agent runtime.
package tokenbudget

import (
	"strings"
	"unicode/utf8"
)

// Default context window sizes, used when a model isn't in modelContextWindows
// and no override is configured.
const (
	DefaultContextWindow = 128000
	tokensPerChar        = 0.25
)

// modelContextWindows maps known model IDs (or prefixes) to their context
// window size in tokens.
var modelContextWindows = map[string]int{
	"claude-3-opus":     200000,
	"claude-3-sonnet":   200000,
	"claude-3-5-sonnet": 200000,
	"claude-3-5-haiku":  200000,
	"claude-opus-4":     200000,
	"claude-sonnet":     200000,

	"gpt-4":             8192,
	"gpt-4-32k":         32768,
	"gpt-4-turbo":       128000,
	"gpt-4o":            128000,
	"gpt-4o-mini":       128000,
	"gpt-3.5-turbo":     16385,
	"o1":                200000,
	"o1-mini":           128000,
	"o3-mini":           200000,
}

// ContextWindowFor returns the known context window for modelID, falling
// back to the longest matching registered prefix, then to
// DefaultContextWindow.
func ContextWindowFor(modelID string) int {
	if tokens, ok := modelContextWindows[modelID]; ok {
		return tokens
	}
	bestPrefix, bestTokens := "", 0
	for prefix, tokens := range modelContextWindows {
		if strings.HasPrefix(modelID, prefix) && len(prefix) > len(bestPrefix) {
			bestPrefix, bestTokens = prefix, tokens
		}
	}
	if bestPrefix != "" {
		return bestTokens
	}
	return DefaultContextWindow
}

// RegisterModel records a context window size for a model id, for use by
// callers that learn about a new model at runtime (e.g. from provider
// metadata) rather than a hardcoded table entry.
func RegisterModel(modelID string, tokens int) {
	modelContextWindows[modelID] = tokens
}

// estimateTokens approximates the number of tokens in text by a
// conservative characters-per-token ratio. It always over-counts rather
// than under-counts: an underestimate risks overflowing the real provider
// context window, which is worse than a slightly smaller effective budget.
func estimateTokens(text string) int {
	chars := utf8.RuneCountInString(text)
	tokens := int(float64(chars) * tokensPerChar)
	if tokens == 0 && chars > 0 {
		return 1
	}
	return tokens
}
