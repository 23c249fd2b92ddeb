package model

import (
	"encoding/json"
	"time"
)

// Message role constants.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
	RoleTool      = "tool"
)

// PartType identifies a message part kind.
type PartType string

const (
	PartText       PartType = "text"
	PartToolCall   PartType = "tool-call"
	PartToolResult PartType = "tool-result"
	PartReasoning  PartType = "reasoning"
	PartSource     PartType = "source"
)

// MessagePart is one typed segment of a message body.
type MessagePart struct {
	Type       PartType        `json:"type"`
	Text       string          `json:"text,omitempty"`
	ToolCallID string          `json:"tool_call_id,omitempty"`
	ToolName   string          `json:"tool_name,omitempty"`
	Input      json.RawMessage `json:"input,omitempty"`
	Output     json.RawMessage `json:"output,omitempty"`
	SourceURL  string          `json:"source_url,omitempty"`
}

// Message is one persisted chat message. IDs are model/client supplied and
// opaque; seq is assigned by the store at persistence time and is strictly
// increasing per conversation. Messages are immutable once persisted.
type Message struct {
	CreatedAt      time.Time       `json:"created_at"`
	ID             string          `json:"id"`
	Role           string          `json:"role"`
	Parts          []MessagePart   `json:"parts"`
	Metadata       json.RawMessage `json:"metadata,omitempty"`
	ConversationID int64           `json:"conversation_id"`
	Seq            int32           `json:"seq"`
}

// TextContent concatenates the text parts of a message.
func (m Message) TextContent() string {
	var out string
	for _, p := range m.Parts {
		if p.Type == PartText {
			out += p.Text
		}
	}
	return out
}
