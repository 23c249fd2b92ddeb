package model

import "time"

// ConversationMetadata is the durable metadata document on a conversation.
// current_goal, once set, is authoritative over any goal guessed from a
// single inbound message.
type ConversationMetadata struct {
	CurrentGoal  string `json:"current_goal,omitempty"`
	WorkflowMode string `json:"workflow_mode,omitempty"`
}

// Conversation is one chat thread, optionally bound to a campaign under
// construction. At most one conversation exists per campaign; the store
// enforces this with a unique constraint.
type Conversation struct {
	CreatedAt    time.Time            `json:"created_at"`
	UpdatedAt    time.Time            `json:"updated_at"`
	Metadata     ConversationMetadata `json:"metadata"`
	Title        *string              `json:"title,omitempty"`
	CampaignID   *int64               `json:"campaign_id,omitempty"`
	Summary      *string              `json:"summary,omitempty"`
	ID           int64                `json:"id"`
	UserID       int64                `json:"user_id"`
	MessageCount int32                `json:"message_count"`
}
