package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/menuhub/menuhub/internal/models"
	"github.com/menuhub/menuhub/internal/store"
)

// UserStore implements store.UserStore using in-memory storage.
// This implementation is for testing and development only - data is lost on restart.
type UserStore struct {
	mu sync.RWMutex

	users map[uuid.UUID]*models.UserAccount // user_id -> UserAccount
}

// NewUserStore creates a new in-memory user store.
func NewUserStore() *UserStore {
	return &UserStore{
		users: make(map[uuid.UUID]*models.UserAccount),
	}
}

// Create creates a new user account in memory.
func (s *UserStore) Create(ctx context.Context, user *models.UserAccount) error {
	if err := user.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[user.ID]; exists {
		return store.ErrUserAlreadyExists
	}

	// Clone to avoid external modifications
	clone := *user
	if user.OrganizationID != nil {
		orgID := *user.OrganizationID
		clone.OrganizationID = &orgID
	}
	s.users[user.ID] = &clone

	return nil
}

// Get retrieves a user account by ID.
func (s *UserStore) Get(ctx context.Context, userID uuid.UUID) (*models.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, exists := s.users[userID]
	if !exists {
		return nil, store.ErrUserNotFound
	}

	clone := *user
	if user.OrganizationID != nil {
		orgID := *user.OrganizationID
		clone.OrganizationID = &orgID
	}
	return &clone, nil
}

// ListByOrganization returns all accounts scoped to an organization.
func (s *UserStore) ListByOrganization(ctx context.Context, orgID uuid.UUID) ([]*models.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*models.UserAccount
	for _, user := range s.users {
		if user.OrganizationID != nil && *user.OrganizationID == orgID {
			clone := *user
			id := *user.OrganizationID
			clone.OrganizationID = &id
			result = append(result, &clone)
		}
	}

	return result, nil
}

// Delete deletes a user account by ID.
func (s *UserStore) Delete(ctx context.Context, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[userID]; !exists {
		return store.ErrUserNotFound
	}

	delete(s.users, userID)

	return nil
}
