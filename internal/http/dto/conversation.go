package dto

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/jackhunterking/adpilot/internal/model"
)

// Conversation ids are int64s; they cross the wire as strings so JavaScript
// clients do not silently truncate them.
type ConversationResponse struct {
	ID           string  `json:"id"`
	CampaignID   *string `json:"campaign_id,omitempty"`
	Title        *string `json:"title,omitempty"`
	CurrentGoal  string  `json:"current_goal,omitempty"`
	MessageCount int32   `json:"message_count"`
	CreatedAt    string  `json:"created_at"`
	UpdatedAt    string  `json:"updated_at"`
}

type MessageResponse struct {
	ID        string              `json:"id"`
	Role      string              `json:"role"`
	Parts     []model.MessagePart `json:"parts"`
	Metadata  json.RawMessage     `json:"metadata,omitempty"`
	Seq       int32               `json:"seq"`
	CreatedAt string              `json:"created_at"`
}

func ToConversationResponse(conv *model.Conversation) ConversationResponse {
	resp := ConversationResponse{
		ID:           strconv.FormatInt(conv.ID, 10),
		Title:        conv.Title,
		CurrentGoal:  conv.Metadata.CurrentGoal,
		MessageCount: conv.MessageCount,
		CreatedAt:    conv.CreatedAt.Format(time.RFC3339),
		UpdatedAt:    conv.UpdatedAt.Format(time.RFC3339),
	}
	if conv.CampaignID != nil {
		campaignID := strconv.FormatInt(*conv.CampaignID, 10)
		resp.CampaignID = &campaignID
	}
	return resp
}

func ToMessageResponses(messages []model.Message) []MessageResponse {
	out := make([]MessageResponse, len(messages))
	for i, msg := range messages {
		out[i] = MessageResponse{
			ID:        msg.ID,
			Role:      msg.Role,
			Parts:     msg.Parts,
			Metadata:  msg.Metadata,
			Seq:       msg.Seq,
			CreatedAt: msg.CreatedAt.Format(time.RFC3339),
		}
	}
	return out
}
