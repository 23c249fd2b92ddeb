package store

import (
	"context"
	"errors"

	"github.com/jackhunterking/adpilot/internal/model"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when an insert lost a uniqueness race
// (e.g. a second conversation for the same campaign).
var ErrConflict = errors.New("conflict")

// ConversationStore defines the contract for conversation data access
type ConversationStore interface {
	GetByID(ctx context.Context, id int64) (*model.Conversation, error)
	GetByCampaign(ctx context.Context, campaignID int64) (*model.Conversation, error)
	// GetForUpdate locks the conversation row for the duration of the
	// enclosing transaction, serializing seq assignment per conversation.
	GetForUpdate(ctx context.Context, id int64) (*model.Conversation, error)
	// Create inserts a conversation; returns ErrConflict if the campaign
	// already has one.
	Create(ctx context.Context, conv *model.Conversation) error
	// SetTitle sets the title only if it is still null. Returns true if
	// this call won the set-once race.
	SetTitle(ctx context.Context, id int64, title string) (bool, error)
	UpdateMetadata(ctx context.Context, id int64, md model.ConversationMetadata) error
	SetSummary(ctx context.Context, id int64, summary string) error
	// BumpMessageCount atomically increments and returns the message
	// counter that seq assignment is derived from.
	BumpMessageCount(ctx context.Context, id int64) (int32, error)
}

// SessionStore defines the contract for session data access
type SessionStore interface {
	Get(ctx context.Context, id int64) (*model.Session, error)
	Create(ctx context.Context, sess *model.Session) error
	Delete(ctx context.Context, id int64) error
}

// MessageStore defines the contract for message data access
type MessageStore interface {
	// Insert persists a message with its assigned seq. Re-inserting an
	// already-stored message id is a no-op; Insert reports whether the
	// row was actually written.
	Insert(ctx context.Context, msg *model.Message) (bool, error)
	Exists(ctx context.Context, id string) (bool, error)
	// ListRecent returns the most recent limit messages in ascending
	// seq order.
	ListRecent(ctx context.Context, conversationID int64, limit int32) ([]model.Message, error)
	List(ctx context.Context, conversationID int64) ([]model.Message, error)
}
