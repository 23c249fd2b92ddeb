package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackhunterking/adpilot/internal/store"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExpired  = errors.New("session expired")
)

// AuthService validates sessions for the HTTP surface. Session issuance lives
// with the identity provider; this service only answers "who is this".
type AuthService interface {
	// ValidateSession returns the owning user id for a live session.
	ValidateSession(ctx context.Context, sessionID int64) (int64, error)
}

type authService struct {
	sessions store.SessionStore
}

func NewAuthService(sessions store.SessionStore) AuthService {
	return &authService{sessions: sessions}
}

func (s *authService) ValidateSession(ctx context.Context, sessionID int64) (int64, error) {
	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return 0, ErrSessionNotFound
		}
		return 0, fmt.Errorf("loading session: %w", err)
	}

	if sess.Expired(time.Now()) {
		// Lazy cleanup; a background sweep is not worth the moving parts.
		if delErr := s.sessions.Delete(ctx, sessionID); delErr != nil {
			slog.WarnContext(ctx, "failed to delete expired session", "error", delErr)
		}
		return 0, ErrSessionExpired
	}

	return sess.UserID, nil
}
