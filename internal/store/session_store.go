package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/menuhub/menuhub/internal/models"
)

// Sentinel errors for session store operations
var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExpired  = errors.New("session expired")
)

// SessionStore defines the interface for session storage operations.
// Sessions are server-side; the cookie carries only the opaque session ID.
type SessionStore interface {
	// Create creates a new session.
	Create(ctx context.Context, session *models.Session) error

	// Get retrieves a session by ID.
	// Returns ErrSessionNotFound if the session doesn't exist and
	// ErrSessionExpired if it exists but has expired.
	Get(ctx context.Context, sessionID uuid.UUID) (*models.Session, error)

	// Delete deletes a session by ID (logout).
	// Returns ErrSessionNotFound if the session doesn't exist.
	Delete(ctx context.Context, sessionID uuid.UUID) error

	// DeleteByUser deletes all sessions for a user (logout everywhere,
	// account removal). Returns the number of sessions deleted.
	DeleteByUser(ctx context.Context, userID uuid.UUID) (int, error)

	// DeleteExpired deletes all expired sessions (cleanup job).
	DeleteExpired(ctx context.Context) (int, error)
}
