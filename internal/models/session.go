package models

import (
	"time"

	"github.com/google/uuid"
)

// Session represents an authenticated session. The session ID is the only
// value stored in the cookie; all session state lives server-side.
type Session struct {
	SessionID uuid.UUID // UUIDv7 - opaque cookie value
	UserID    uuid.UUID // who is logged in

	CreatedAt  time.Time
	ExpiresAt  time.Time
	LastUsedAt time.Time

	// Optional audit metadata
	UserAgent string
	IPAddress string
}

// IsExpired returns true if the session has expired.
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}
