package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackhunterking/adpilot/common/id"
	"github.com/jackhunterking/adpilot/common/logger"
	"github.com/jackhunterking/adpilot/internal/model"
	"github.com/jackhunterking/adpilot/internal/store"
)

// ResolveInput identifies the conversation a turn belongs to. At least one of
// the two references must be set.
type ResolveInput struct {
	ConversationID *int64
	CampaignID     *int64
}

// ConversationService resolves and reads conversations. Every operation is
// scoped to the calling user; a conversation owned by someone else behaves
// exactly like one that does not exist.
type ConversationService interface {
	// Resolve finds the conversation for a turn, creating one for the
	// campaign if none exists yet. Concurrent creates for the same campaign
	// converge on a single conversation.
	Resolve(ctx context.Context, userID int64, in ResolveInput) (*model.Conversation, error)
	Get(ctx context.Context, userID, conversationID int64) (*model.Conversation, error)
	ListMessages(ctx context.Context, userID, conversationID int64) ([]model.Message, error)
}

type conversationService struct {
	conversations store.ConversationStore
	messages      store.MessageStore
}

func NewConversationService(conversations store.ConversationStore, messages store.MessageStore) ConversationService {
	return &conversationService{
		conversations: conversations,
		messages:      messages,
	}
}

func (s *conversationService) Resolve(ctx context.Context, userID int64, in ResolveInput) (*model.Conversation, error) {
	if in.ConversationID != nil {
		conv, err := s.conversations.GetByID(ctx, *in.ConversationID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, ErrConversationNotFound
			}
			return nil, fmt.Errorf("loading conversation: %w", err)
		}
		if conv.UserID != userID {
			return nil, ErrConversationNotFound
		}
		return conv, nil
	}

	if in.CampaignID == nil {
		return nil, ErrMissingCampaignReference
	}
	campaignID := *in.CampaignID

	conv, err := s.conversations.GetByCampaign(ctx, campaignID)
	if err == nil {
		if conv.UserID != userID {
			return nil, ErrConversationNotFound
		}
		return conv, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("looking up conversation by campaign: %w", err)
	}

	created := &model.Conversation{
		ID:         id.New(),
		UserID:     userID,
		CampaignID: &campaignID,
	}
	if err := s.conversations.Create(ctx, created); err != nil {
		if errors.Is(err, store.ErrConflict) {
			// Lost the race: another turn created the conversation for this
			// campaign between our lookup and insert. Use theirs.
			slog.InfoContext(ctx, "conversation create lost race, reusing existing",
				"campaign_id", campaignID)
			return s.resolveExisting(ctx, userID, campaignID)
		}
		return nil, fmt.Errorf("creating conversation: %w", err)
	}

	slog.InfoContext(ctx, "conversation created",
		"conversation_id", created.ID,
		"campaign_id", campaignID)
	return created, nil
}

func (s *conversationService) resolveExisting(ctx context.Context, userID, campaignID int64) (*model.Conversation, error) {
	conv, err := s.conversations.GetByCampaign(ctx, campaignID)
	if err != nil {
		return nil, fmt.Errorf("re-reading conversation after conflict: %w", err)
	}
	if conv.UserID != userID {
		return nil, ErrConversationNotFound
	}
	return conv, nil
}

func (s *conversationService) Get(ctx context.Context, userID, conversationID int64) (*model.Conversation, error) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{ConversationID: &conversationID})

	conv, err := s.conversations.GetByID(ctx, conversationID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrConversationNotFound
		}
		return nil, fmt.Errorf("loading conversation: %w", err)
	}
	if conv.UserID != userID {
		return nil, ErrConversationNotFound
	}
	return conv, nil
}

func (s *conversationService) ListMessages(ctx context.Context, userID, conversationID int64) ([]model.Message, error) {
	if _, err := s.Get(ctx, userID, conversationID); err != nil {
		return nil, err
	}
	return s.messages.List(ctx, conversationID)
}
