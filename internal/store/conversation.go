package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jackhunterking/adpilot/core/db/sqlc"
	"github.com/jackhunterking/adpilot/internal/model"
)

type conversationStore struct {
	queries *sqlc.Queries
}

func newConversationStore(queries *sqlc.Queries) ConversationStore {
	return &conversationStore{queries: queries}
}

func (s *conversationStore) GetByID(ctx context.Context, id int64) (*model.Conversation, error) {
	row, err := s.queries.GetConversation(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return toConversationModel(row)
}

func (s *conversationStore) GetByCampaign(ctx context.Context, campaignID int64) (*model.Conversation, error) {
	row, err := s.queries.GetConversationByCampaign(ctx, &campaignID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return toConversationModel(row)
}

func (s *conversationStore) GetForUpdate(ctx context.Context, id int64) (*model.Conversation, error) {
	row, err := s.queries.GetConversationForUpdate(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return toConversationModel(row)
}

func (s *conversationStore) Create(ctx context.Context, conv *model.Conversation) error {
	metadata, err := json.Marshal(conv.Metadata)
	if err != nil {
		return fmt.Errorf("marshaling metadata: %w", err)
	}

	row, err := s.queries.CreateConversation(ctx, sqlc.CreateConversationParams{
		ID:         conv.ID,
		UserID:     conv.UserID,
		CampaignID: conv.CampaignID,
		Metadata:   metadata,
	})
	if err != nil {
		// ON CONFLICT DO NOTHING returns no row when the campaign
		// already has a conversation.
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrConflict
		}
		return err
	}

	created, err := toConversationModel(row)
	if err != nil {
		return err
	}
	*conv = *created
	return nil
}

func (s *conversationStore) SetTitle(ctx context.Context, id int64, title string) (bool, error) {
	affected, err := s.queries.SetConversationTitle(ctx, sqlc.SetConversationTitleParams{
		ID:    id,
		Title: &title,
	})
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (s *conversationStore) UpdateMetadata(ctx context.Context, id int64, md model.ConversationMetadata) error {
	metadata, err := json.Marshal(md)
	if err != nil {
		return fmt.Errorf("marshaling metadata: %w", err)
	}
	return s.queries.UpdateConversationMetadata(ctx, sqlc.UpdateConversationMetadataParams{
		ID:       id,
		Metadata: metadata,
	})
}

func (s *conversationStore) SetSummary(ctx context.Context, id int64, summary string) error {
	return s.queries.SetConversationSummary(ctx, sqlc.SetConversationSummaryParams{
		ID:      id,
		Summary: &summary,
	})
}

func (s *conversationStore) BumpMessageCount(ctx context.Context, id int64) (int32, error) {
	count, err := s.queries.BumpMessageCount(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, err
	}
	return count, nil
}

func toConversationModel(row sqlc.Conversation) (*model.Conversation, error) {
	var md model.ConversationMetadata
	if len(row.Metadata) > 0 {
		if err := json.Unmarshal(row.Metadata, &md); err != nil {
			return nil, fmt.Errorf("unmarshaling conversation metadata: %w", err)
		}
	}

	return &model.Conversation{
		ID:           row.ID,
		UserID:       row.UserID,
		CampaignID:   row.CampaignID,
		Title:        row.Title,
		Metadata:     md,
		MessageCount: row.MessageCount,
		Summary:      row.Summary,
		CreatedAt:    row.CreatedAt.Time,
		UpdatedAt:    row.UpdatedAt.Time,
	}, nil
}
