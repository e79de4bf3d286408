package models

import (
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
)

// slugPattern matches URL-safe slugs: lowercase letters, digits and hyphens.
var slugPattern = regexp.MustCompile(`^[a-z0-9-]+$`)

// MinSlugLength is the minimum number of characters in an organization slug.
const MinSlugLength = 3

var (
	ErrSlugTooShort = errors.New("slug must be at least 3 characters")
	ErrSlugInvalid  = errors.New("slug may only contain lowercase letters, digits and hyphens")
)

// Organization represents a tenant in the system. Each organization owns a
// public menu page addressed by its slug and a private admin area.
type Organization struct {
	ID        uuid.UUID // UUIDv7
	Slug      string    // globally unique, immutable once published
	Name      string
	WhatsApp  string // optional contact handle
	Instagram string // optional contact handle
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ValidateSlug checks that a slug is URL-safe and long enough to be routable.
func ValidateSlug(slug string) error {
	if len(slug) < MinSlugLength {
		return ErrSlugTooShort
	}
	if !slugPattern.MatchString(slug) {
		return ErrSlugInvalid
	}
	return nil
}

// Validate checks the organization's invariants before it is persisted.
func (o *Organization) Validate() error {
	if err := ValidateSlug(o.Slug); err != nil {
		return err
	}
	if o.Name == "" {
		return fmt.Errorf("organization name is required")
	}
	return nil
}
