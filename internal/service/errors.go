package service

import "errors"

var (
	// ErrMissingCampaignReference means a turn arrived with neither a
	// conversation id nor a campaign id to resolve one from.
	ErrMissingCampaignReference = errors.New("missing conversation or campaign reference")

	// ErrConversationNotFound covers both a genuinely absent conversation and
	// one owned by a different user; callers must not be able to tell the
	// two apart.
	ErrConversationNotFound = errors.New("conversation not found")

	// ErrEmptyMessage means the inbound message has no usable text content.
	ErrEmptyMessage = errors.New("message has no text content")
)
