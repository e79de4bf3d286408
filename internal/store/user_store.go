package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/menuhub/menuhub/internal/models"
)

// Sentinel errors for user store operations
var (
	ErrUserNotFound      = errors.New("user not found")
	ErrUserAlreadyExists = errors.New("user already exists")
)

// UserStore defines the interface for user account storage operations.
// Accounts are keyed by the subject id issued by the identity provider.
type UserStore interface {
	// Create creates a new user account.
	// Returns ErrUserAlreadyExists if an account with the same ID already exists.
	Create(ctx context.Context, user *models.UserAccount) error

	// Get retrieves a user account by ID.
	// Returns ErrUserNotFound if the account doesn't exist.
	Get(ctx context.Context, userID uuid.UUID) (*models.UserAccount, error)

	// ListByOrganization returns all accounts scoped to an organization.
	ListByOrganization(ctx context.Context, orgID uuid.UUID) ([]*models.UserAccount, error)

	// Delete deletes a user account by ID.
	// Returns ErrUserNotFound if the account doesn't exist.
	Delete(ctx context.Context, userID uuid.UUID) error
}
