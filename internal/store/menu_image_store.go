package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/menuhub/menuhub/internal/models"
)

// ErrMenuImageNotFound is returned when a menu image doesn't exist.
var ErrMenuImageNotFound = errors.New("menu image not found")

// UnlockFunc releases a per-organization lock acquired via MenuImageStore.Lock.
type UnlockFunc func()

// MenuImageStore defines the interface for menu image metadata storage.
// The image set of one organization is bounded; callers serialize quota
// checks against concurrent writers with Lock.
type MenuImageStore interface {
	// Insert registers a new menu image record.
	Insert(ctx context.Context, img *models.MenuImage) error

	// Get retrieves a menu image by ID.
	// Returns ErrMenuImageNotFound if the image doesn't exist.
	Get(ctx context.Context, imageID uuid.UUID) (*models.MenuImage, error)

	// Delete deletes a menu image record by ID.
	// Returns ErrMenuImageNotFound if the image doesn't exist.
	Delete(ctx context.Context, imageID uuid.UUID) error

	// ListByOrganization returns an organization's images, newest first.
	// The same ordering drives both quota accounting and display.
	ListByOrganization(ctx context.Context, orgID uuid.UUID) ([]*models.MenuImage, error)

	// CountByOrganization returns the current number of images for an
	// organization. Quota decisions must recount via this method rather than
	// trusting a cached value.
	CountByOrganization(ctx context.Context, orgID uuid.UUID) (int, error)

	// Lock acquires a serialized critical section for one organization,
	// blocking until it is available. The lock must span the quota check and
	// every insert of an upload batch so concurrent uploads cannot jointly
	// exceed the quota. The returned UnlockFunc must always be called.
	Lock(ctx context.Context, orgID uuid.UUID) (UnlockFunc, error)
}
