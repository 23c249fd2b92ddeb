package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackhunterking/adpilot/core/db/sqlc"
	"github.com/jackhunterking/adpilot/internal/model"
)

type messageStore struct {
	queries *sqlc.Queries
}

func newMessageStore(queries *sqlc.Queries) MessageStore {
	return &messageStore{queries: queries}
}

func (s *messageStore) Insert(ctx context.Context, msg *model.Message) (bool, error) {
	parts, err := json.Marshal(msg.Parts)
	if err != nil {
		return false, fmt.Errorf("marshaling parts: %w", err)
	}

	metadata := msg.Metadata
	if metadata == nil {
		metadata = json.RawMessage(`{}`)
	}

	affected, err := s.queries.InsertMessage(ctx, sqlc.InsertMessageParams{
		ID:             msg.ID,
		ConversationID: msg.ConversationID,
		Role:           msg.Role,
		Parts:          parts,
		Metadata:       metadata,
		Seq:            msg.Seq,
	})
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (s *messageStore) Exists(ctx context.Context, id string) (bool, error) {
	return s.queries.MessageExists(ctx, id)
}

func (s *messageStore) ListRecent(ctx context.Context, conversationID int64, limit int32) ([]model.Message, error) {
	rows, err := s.queries.ListRecentMessages(ctx, sqlc.ListRecentMessagesParams{
		ConversationID: conversationID,
		Limit:          limit,
	})
	if err != nil {
		return nil, err
	}

	// Query returns newest first; callers want chronological order.
	messages := make([]model.Message, len(rows))
	for i, row := range rows {
		msg, err := toMessageModel(row)
		if err != nil {
			return nil, err
		}
		messages[len(rows)-1-i] = *msg
	}
	return messages, nil
}

func (s *messageStore) List(ctx context.Context, conversationID int64) ([]model.Message, error) {
	rows, err := s.queries.ListMessages(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	messages := make([]model.Message, len(rows))
	for i, row := range rows {
		msg, err := toMessageModel(row)
		if err != nil {
			return nil, err
		}
		messages[i] = *msg
	}
	return messages, nil
}

func toMessageModel(row sqlc.Message) (*model.Message, error) {
	var parts []model.MessagePart
	if len(row.Parts) > 0 {
		if err := json.Unmarshal(row.Parts, &parts); err != nil {
			return nil, fmt.Errorf("unmarshaling message parts: %w", err)
		}
	}

	return &model.Message{
		ID:             row.ID,
		ConversationID: row.ConversationID,
		Role:           row.Role,
		Parts:          parts,
		Metadata:       row.Metadata,
		Seq:            row.Seq,
		CreatedAt:      row.CreatedAt.Time,
	}, nil
}
