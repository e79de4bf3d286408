package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/menuhub/menuhub/internal/models"
	"github.com/menuhub/menuhub/internal/store"
)

// MenuImageStore implements store.MenuImageStore using in-memory storage.
// This implementation is for testing and development only - data is lost on restart.
type MenuImageStore struct {
	mu sync.RWMutex

	images map[uuid.UUID]*models.MenuImage // image_id -> MenuImage

	lockMu   sync.Mutex
	orgLocks map[uuid.UUID]*sync.Mutex // org_id -> upload critical section
}

// NewMenuImageStore creates a new in-memory menu image store.
func NewMenuImageStore() *MenuImageStore {
	return &MenuImageStore{
		images:   make(map[uuid.UUID]*models.MenuImage),
		orgLocks: make(map[uuid.UUID]*sync.Mutex),
	}
}

// Insert registers a new menu image record.
func (s *MenuImageStore) Insert(ctx context.Context, img *models.MenuImage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Clone to avoid external modifications
	clone := *img
	s.images[img.ID] = &clone

	return nil
}

// Get retrieves a menu image by ID.
func (s *MenuImageStore) Get(ctx context.Context, imageID uuid.UUID) (*models.MenuImage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	img, exists := s.images[imageID]
	if !exists {
		return nil, store.ErrMenuImageNotFound
	}

	clone := *img
	return &clone, nil
}

// Delete deletes a menu image record by ID.
func (s *MenuImageStore) Delete(ctx context.Context, imageID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.images[imageID]; !exists {
		return store.ErrMenuImageNotFound
	}

	delete(s.images, imageID)

	return nil
}

// ListByOrganization returns an organization's images, newest first.
func (s *MenuImageStore) ListByOrganization(ctx context.Context, orgID uuid.UUID) ([]*models.MenuImage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*models.MenuImage
	for _, img := range s.images {
		if img.OrganizationID == orgID {
			clone := *img
			result = append(result, &clone)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	return result, nil
}

// CountByOrganization returns the current number of images for an organization.
func (s *MenuImageStore) CountByOrganization(ctx context.Context, orgID uuid.UUID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, img := range s.images {
		if img.OrganizationID == orgID {
			count++
		}
	}

	return count, nil
}

// Lock acquires the per-organization upload critical section.
func (s *MenuImageStore) Lock(ctx context.Context, orgID uuid.UUID) (store.UnlockFunc, error) {
	s.lockMu.Lock()
	orgLock, exists := s.orgLocks[orgID]
	if !exists {
		orgLock = &sync.Mutex{}
		s.orgLocks[orgID] = orgLock
	}
	s.lockMu.Unlock()

	orgLock.Lock()
	return orgLock.Unlock, nil
}
