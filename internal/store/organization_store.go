package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/menuhub/menuhub/internal/models"
)

// Sentinel errors for organization store operations
var (
	ErrOrganizationNotFound = errors.New("organization not found")
	ErrSlugAlreadyExists    = errors.New("organization slug already exists")
)

// OrganizationStore defines the interface for organization storage operations.
// Organizations are tenants; the slug is the sole tenant discriminator in URLs.
type OrganizationStore interface {
	// Create creates a new organization in the store.
	// Returns ErrSlugAlreadyExists if an organization with the same slug exists.
	Create(ctx context.Context, org *models.Organization) error

	// Get retrieves an organization by ID.
	// Returns ErrOrganizationNotFound if the organization doesn't exist.
	Get(ctx context.Context, orgID uuid.UUID) (*models.Organization, error)

	// GetBySlug retrieves an organization by its URL slug.
	// Returns ErrOrganizationNotFound if no organization matches the slug.
	GetBySlug(ctx context.Context, slug string) (*models.Organization, error)

	// List returns all organizations, newest first. Used by the master area.
	List(ctx context.Context) ([]*models.Organization, error)

	// Update updates an organization's mutable fields (name, contact handles).
	// The slug is immutable once published-to and is never updated.
	// Returns ErrOrganizationNotFound if the organization doesn't exist.
	Update(ctx context.Context, org *models.Organization) error

	// Delete deletes an organization by ID.
	// Returns ErrOrganizationNotFound if the organization doesn't exist.
	Delete(ctx context.Context, orgID uuid.UUID) error
}
