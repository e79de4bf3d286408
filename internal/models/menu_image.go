package models

import (
	"time"

	"github.com/google/uuid"
)

// MenuImage is one published menu image belonging to an organization. Images
// are created by an authorized upload and destroyed by an authorized delete,
// never mutated in place.
type MenuImage struct {
	ID             uuid.UUID // UUIDv7
	OrganizationID uuid.UUID // owner, immutable
	ImageURL       string    // public blob reference
	CreatedAt      time.Time
}
