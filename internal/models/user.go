package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidAccountScope is returned when a user account is neither scoped to
// exactly one organization nor marked as a master account.
var ErrInvalidAccountScope = errors.New("account must be either master or scoped to one organization")

// UserAccount represents a login-capable account. An account is either scoped
// to a single organization or is a platform-wide master account, never both
// and never neither. Email lives with the identity provider and is not
// duplicated here.
type UserAccount struct {
	ID             uuid.UUID  // subject id issued by the identity provider
	OrganizationID *uuid.UUID // nil only for master accounts
	IsMaster       bool
	CreatedAt      time.Time
}

// Validate enforces the master/organization discriminator invariant.
func (u *UserAccount) Validate() error {
	if u.IsMaster == (u.OrganizationID != nil) {
		return ErrInvalidAccountScope
	}
	return nil
}
