package dto

import "encoding/json"

// ChatMessagePart is one client-supplied part of the inbound message. Only
// text parts are accepted on input.
type ChatMessagePart struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// ChatMessage is the inbound user message. Metadata is the opaque workflow
// document; the campaign reference travels inside it as campaign_id.
type ChatMessage struct {
	ID       string            `json:"id" binding:"required"`
	Role     string            `json:"role"`
	Parts    []ChatMessagePart `json:"parts" binding:"required"`
	Metadata json.RawMessage   `json:"metadata"`
}

type ChatRequest struct {
	Message        ChatMessage `json:"message" binding:"required"`
	ConversationID *int64      `json:"conversationId"`
}

// Text concatenates the message's text parts.
func (m ChatMessage) Text() string {
	var out string
	for _, p := range m.Parts {
		if p.Type == "text" {
			out += p.Text
		}
	}
	return out
}
