// Package truncate applies strategies that fit a message list under a
// token budget without ever splitting a tool call from its result.
package truncate

import (
	"strconv"

	"github.com/forge-ai/forge-core/pkg/models"
)

// unit is the smallest block truncate can drop as a whole: either a single
// message with no tool calls, or an assistant message carrying tool calls
// together with every tool-role message that answers one of those calls.
// Grouping messages this way is what keeps the tool-call/tool-result
// pairing invariant intact under every strategy below.
type unit struct {
	messages []models.Message
	tokens   int
	pinned   bool // system messages and synthetic placeholders are never dropped
}

func (u unit) isSystem() bool {
	return len(u.messages) == 1 && u.messages[0].Role == models.RoleSystem
}

// groupUnits partitions messages into units, pairing each tool-calling
// assistant message with its answering tool messages.
func groupUnits(messages []models.Message, tokenOf func(models.Message) int) []unit {
	units := make([]unit, 0, len(messages))
	i := 0
	for i < len(messages) {
		m := messages[i]
		if m.Role == models.RoleAssistant && len(m.ToolCalls) > 0 {
			ids := make(map[string]bool, len(m.ToolCalls))
			for _, tc := range m.ToolCalls {
				ids[tc.ID] = true
			}
			group := []models.Message{m}
			tok := tokenOf(m)
			j := i + 1
			for j < len(messages) && len(ids) > 0 {
				next := messages[j]
				if next.Role != models.RoleTool || !ids[next.ToolCallID] {
					break
				}
				group = append(group, next)
				tok += tokenOf(next)
				delete(ids, next.ToolCallID)
				j++
			}
			units = append(units, unit{messages: group, tokens: tok, pinned: m.Role == models.RoleSystem})
			i = j
			continue
		}
		units = append(units, unit{messages: []models.Message{m}, tokens: tokenOf(m), pinned: m.Role == models.RoleSystem})
		i++
	}
	return units
}

func flatten(units []unit) []models.Message {
	total := 0
	for _, u := range units {
		total += len(u.messages)
	}
	out := make([]models.Message, 0, total)
	for _, u := range units {
		out = append(out, u.messages...)
	}
	return out
}

func sumTokens(units []unit) int {
	total := 0
	for _, u := range units {
		total += u.tokens
	}
	return total
}

func countMessages(units []unit) int {
	n := 0
	for _, u := range units {
		n += len(u.messages)
	}
	return n
}

func placeholderUnit(elided int, tokenOf func(models.Message) int) unit {
	m := models.Message{
		Role:    models.RoleAssistant,
		Content: elidedPlaceholder(elided),
	}
	return unit{messages: []models.Message{m}, tokens: tokenOf(m), pinned: true}
}

func elidedPlaceholder(n int) string {
	if n == 1 {
		return "[... 1 message elided ...]"
	}
	return "[... " + strconv.Itoa(n) + " messages elided ...]"
}
