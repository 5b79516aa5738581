package tokenbudget

import (
	"container/list"
	"crypto/sha256"
	"encoding/hex"
	"sync"

	"github.com/forge-ai/forge-core/pkg/models"
)

// ContextBudget is the per-section token allocation computed from a
// model's total context window.
type ContextBudget struct {
	System       int
	Conversation int
	Tools        int
	Response     int
}

// Split holds the fractional allocation applied to a model's total window
// when no per-model override exists. It must sum to 1.0.
type Split struct {
	System       float64
	Conversation float64
	Tools        float64
	Response     float64
}

// DefaultSplit is the default 10/60/10/20 allocation.
var DefaultSplit = Split{System: 0.10, Conversation: 0.60, Tools: 0.10, Response: 0.20}

// Warner receives a single warning when an unknown model falls back to
// approximate counting. Budgeter never fails outright; Warner is optional.
type Warner interface {
	Warn(message string)
}

// Budgeter counts tokens for a model and derives ContextBudgets from its
// context window. Counts are cached by content hash in a bounded LRU; the
// Budgeter is safe for concurrent use.
type Budgeter struct {
	mu       sync.Mutex
	cache    map[string]*list.Element
	order    *list.List
	capacity int

	splits map[string]Split
	warner Warner
}

type cacheEntry struct {
	key    string
	tokens int
}

// New constructs a Budgeter with the given LRU cache capacity (0 uses the
// default of 1000 entries) and an optional warner for unknown-model
// fallback notices.
func New(capacity int, warner Warner) *Budgeter {
	if capacity <= 0 {
		capacity = 1000
	}
	return &Budgeter{
		cache:    make(map[string]*list.Element),
		order:    list.New(),
		capacity: capacity,
		splits:   make(map[string]Split),
		warner:   warner,
	}
}

// SetSplit overrides the section-allocation fractions for a specific
// model id.
func (b *Budgeter) SetSplit(modelID string, split Split) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.splits[modelID] = split
}

// Count returns the token count for text, an exact count when a precise
// tokenizer is wired in by a future provider-specific Budgeter, and a
// conservative over-estimate otherwise. Never fails.
func (b *Budgeter) Count(modelID, text string) int {
	if text == "" {
		return 0
	}
	key := cacheKey(modelID, text)

	b.mu.Lock()
	if el, ok := b.cache[key]; ok {
		b.order.MoveToFront(el)
		b.mu.Unlock()
		return el.Value.(*cacheEntry).tokens
	}
	b.mu.Unlock()

	tokens := estimateTokens(text)
	if _, known := modelContextWindows[modelID]; !known && b.warner != nil {
		b.warner.Warn("tokenbudget: unknown model " + modelID + ", using approximate counting")
	}

	b.mu.Lock()
	b.insert(key, tokens)
	b.mu.Unlock()
	return tokens
}

// CountMessages sums the token count for a batch of messages, including a
// small fixed per-message overhead for role/formatting tokens the raw text
// count misses.
func (b *Budgeter) CountMessages(modelID string, messages []models.Message) int {
	total := 0
	for _, m := range messages {
		total += b.Count(modelID, m.Content)
		for _, tc := range m.ToolCalls {
			total += b.Count(modelID, string(tc.Input)) + b.Count(modelID, tc.Name)
		}
		total += 4
	}
	return total
}

// Budget returns the ContextBudget derived from modelID's context window,
// using the registered Split for modelID if one was set via SetSplit, else
// DefaultSplit.
func (b *Budgeter) Budget(modelID string) ContextBudget {
	window := ContextWindowFor(modelID)

	b.mu.Lock()
	split, ok := b.splits[modelID]
	b.mu.Unlock()
	if !ok {
		split = DefaultSplit
	}

	return ContextBudget{
		System:       int(float64(window) * split.System),
		Conversation: int(float64(window) * split.Conversation),
		Tools:        int(float64(window) * split.Tools),
		Response:     int(float64(window) * split.Response),
	}
}

func (b *Budgeter) insert(key string, tokens int) {
	if el, ok := b.cache[key]; ok {
		el.Value.(*cacheEntry).tokens = tokens
		b.order.MoveToFront(el)
		return
	}
	el := b.order.PushFront(&cacheEntry{key: key, tokens: tokens})
	b.cache[key] = el
	if b.order.Len() > b.capacity {
		oldest := b.order.Back()
		if oldest != nil {
			b.order.Remove(oldest)
			delete(b.cache, oldest.Value.(*cacheEntry).key)
		}
	}
}

func cacheKey(modelID, text string) string {
	h := sha256.Sum256([]byte(modelID + "\x00" + text))
	return hex.EncodeToString(h[:])
}
