// Package models holds the wire and storage types shared by every
// component of the agent execution substrate: messages, sessions, tool
// calls, and the permission/hook/workflow records derived from them.
package models

import (
	"encoding/json"
	"time"
)

// ChannelType represents the transport a session's messages arrive on.
type ChannelType string

const (
	ChannelCLI       ChannelType = "cli"
	ChannelAPI       ChannelType = "api"
	ChannelTelegram  ChannelType = "telegram"
	ChannelDiscord   ChannelType = "discord"
	ChannelSlack     ChannelType = "slack"
	ChannelWorkflow  ChannelType = "workflow"
	ChannelSubagent  ChannelType = "subagent"
)

// Direction indicates whether a message flowed into or out of the runtime.
type Direction string

const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
)

// Role identifies who authored a Message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleTool      Role = "tool"
)

// Message is one turn of dialogue in a Session.
//
// Invariant: every tool-role message's ToolCallID references a ToolCalls[i].ID
// on an earlier assistant message in the same session, and each assistant
// tool call is answered by exactly one tool message before the next
// assistant turn. Callers must not construct a Session that violates this
// without going through sessions.RepairTranscript first.
type Message struct {
	ID        string      `json:"id"`
	SessionID string      `json:"session_id"`
	Channel   ChannelType `json:"channel"`
	ChannelID string      `json:"channel_id,omitempty"`
	Direction Direction   `json:"direction,omitempty"`
	Role      Role        `json:"role"`
	Content   string      `json:"content"`

	Attachments []Attachment `json:"attachments,omitempty"`
	ToolCalls   []ToolCall   `json:"tool_calls,omitempty"`
	ToolResults []ToolResult `json:"tool_results,omitempty"`

	// ToolCallID is set only on role=tool messages.
	ToolCallID string `json:"tool_call_id,omitempty"`

	Metadata map[string]any `json:"metadata,omitempty"`

	// Incomplete marks an assistant message whose stream was cut short by
	// a provider error or cancellation; the prefix collected so far is kept.
	Incomplete bool `json:"incomplete,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// Attachment represents a file or media attachment on a message or tool
// result.
type Attachment struct {
	ID       string `json:"id"`
	Type     string `json:"type"` // image, audio, video, document
	URL      string `json:"url"`
	Filename string `json:"filename,omitempty"`
	MimeType string `json:"mime_type,omitempty"`
	Size     int64  `json:"size,omitempty"`
}

// ToolCall represents an LLM's request to execute a tool.
type ToolCall struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Input json.RawMessage `json:"input"`
}

// ToolResult represents the output of a tool execution, as persisted on a
// tool-role Message.
type ToolResult struct {
	ToolCallID  string       `json:"tool_call_id"`
	Content     string       `json:"content"`
	IsError     bool         `json:"is_error,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// TokenUsage is cumulative prompt/completion token spend for a Session.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

// Total returns the sum of prompt and completion tokens.
func (u TokenUsage) Total() int {
	return u.PromptTokens + u.CompletionTokens
}

// Add accumulates another usage delta into u.
func (u *TokenUsage) Add(delta TokenUsage) {
	u.PromptTokens += delta.PromptTokens
	u.CompletionTokens += delta.CompletionTokens
}

// Session represents a conversation thread.
type Session struct {
	ID        string         `json:"id"`
	AgentID   string         `json:"agent_id"`
	Channel   ChannelType    `json:"channel"`
	ChannelID string         `json:"channel_id"`
	Key       string         `json:"key"`
	Title     string         `json:"title,omitempty"`
	ModelID   string         `json:"model_id,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`

	TokenUsage TokenUsage `json:"token_usage,omitempty"`

	// Recovered is set by the Session Store when this copy was
	// reconstructed from a backup after the primary file failed to parse.
	Recovered bool `json:"recovered,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// User represents an authenticated user.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name,omitempty"`
	AvatarURL string    `json:"avatar_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Agent represents a configured AI agent.
type Agent struct {
	ID           string         `json:"id"`
	UserID       string         `json:"user_id"`
	Name         string         `json:"name"`
	SystemPrompt string         `json:"system_prompt,omitempty"`
	Model        string         `json:"model"`
	Provider     string         `json:"provider"`
	Tools        []string       `json:"tools,omitempty"`
	Config       map[string]any `json:"config,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// APIKey represents an API key for programmatic access.
type APIKey struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	Name       string    `json:"name"`
	Prefix     string    `json:"prefix"` // First 8 chars for identification
	Scopes     []string  `json:"scopes,omitempty"`
	LastUsedAt time.Time `json:"last_used_at,omitempty"`
	ExpiresAt  time.Time `json:"expires_at,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// LastAssistantMessage returns a pointer to the most recent assistant
// message in messages, or nil if none exists.
func LastAssistantMessage(messages []Message) *Message {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == RoleAssistant {
			return &messages[i]
		}
	}
	return nil
}
