package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/menuhub/menuhub/internal/models"
	memorystore "github.com/menuhub/menuhub/internal/store/memory"
)

func newResolverFixture(t *testing.T) (*Resolver, *memorystore.SessionStore, *memorystore.UserStore) {
	t.Helper()

	sessions := memorystore.NewSessionStore()
	users := memorystore.NewUserStore()
	return NewResolver(sessions, users), sessions, users
}

func issueSession(t *testing.T, sessions *memorystore.SessionStore, userID uuid.UUID, ttl time.Duration) uuid.UUID {
	t.Helper()

	now := time.Now()
	sessionID := uuid.New()
	require.NoError(t, sessions.Create(context.Background(), &models.Session{
		SessionID:  sessionID,
		UserID:     userID,
		CreatedAt:  now,
		ExpiresAt:  now.Add(ttl),
		LastUsedAt: now,
	}))
	return sessionID
}

// downSessionStore and downUserStore simulate unreachable backing stores;
// lookups fail with an outage-class error rather than a not-found sentinel.
type downSessionStore struct {
	*memorystore.SessionStore
}

func (s *downSessionStore) Get(ctx context.Context, sessionID uuid.UUID) (*models.Session, error) {
	return nil, errors.New("connection refused")
}

type downUserStore struct {
	*memorystore.UserStore
}

func (s *downUserStore) Get(ctx context.Context, userID uuid.UUID) (*models.UserAccount, error) {
	return nil, errors.New("connection refused")
}

func TestResolver_Resolve(t *testing.T) {
	ctx := context.Background()

	t.Run("empty token", func(t *testing.T) {
		resolver, _, _ := newResolverFixture(t)
		require.Equal(t, Anonymous, resolver.Resolve(ctx, ""))
	})

	t.Run("malformed token", func(t *testing.T) {
		resolver, _, _ := newResolverFixture(t)
		require.Equal(t, Anonymous, resolver.Resolve(ctx, "not-a-uuid"))
	})

	t.Run("unknown session", func(t *testing.T) {
		resolver, _, _ := newResolverFixture(t)
		require.Equal(t, Anonymous, resolver.Resolve(ctx, uuid.NewString()))
	})

	t.Run("expired session", func(t *testing.T) {
		resolver, sessions, users := newResolverFixture(t)

		userID := uuid.New()
		require.NoError(t, users.Create(ctx, &models.UserAccount{ID: userID, IsMaster: true}))
		sessionID := issueSession(t, sessions, userID, -time.Minute)

		require.Equal(t, Anonymous, resolver.Resolve(ctx, sessionID.String()))
	})

	t.Run("organization user", func(t *testing.T) {
		resolver, sessions, users := newResolverFixture(t)

		orgID := uuid.New()
		userID := uuid.New()
		require.NoError(t, users.Create(ctx, &models.UserAccount{ID: userID, OrganizationID: &orgID}))
		sessionID := issueSession(t, sessions, userID, time.Hour)

		principal := resolver.Resolve(ctx, sessionID.String())
		require.Equal(t, KindOrgUser, principal.Kind)
		require.Equal(t, userID, principal.UserID)
		require.Equal(t, orgID, principal.OrganizationID)
	})

	t.Run("master user", func(t *testing.T) {
		resolver, sessions, users := newResolverFixture(t)

		userID := uuid.New()
		require.NoError(t, users.Create(ctx, &models.UserAccount{ID: userID, IsMaster: true}))
		sessionID := issueSession(t, sessions, userID, time.Hour)

		principal := resolver.Resolve(ctx, sessionID.String())
		require.True(t, principal.IsMaster())
		require.Equal(t, userID, principal.UserID)
	})

	t.Run("session store unavailable resolves to anonymous", func(t *testing.T) {
		_, sessions, users := newResolverFixture(t)

		userID := uuid.New()
		require.NoError(t, users.Create(ctx, &models.UserAccount{ID: userID, IsMaster: true}))
		sessionID := issueSession(t, sessions, userID, time.Hour)

		resolver := NewResolver(&downSessionStore{SessionStore: sessions}, users)
		require.Equal(t, Anonymous, resolver.Resolve(ctx, sessionID.String()))
	})

	t.Run("user store unavailable resolves to anonymous", func(t *testing.T) {
		_, sessions, users := newResolverFixture(t)

		userID := uuid.New()
		require.NoError(t, users.Create(ctx, &models.UserAccount{ID: userID, IsMaster: true}))
		sessionID := issueSession(t, sessions, userID, time.Hour)

		resolver := NewResolver(sessions, &downUserStore{UserStore: users})
		require.Equal(t, Anonymous, resolver.Resolve(ctx, sessionID.String()))
	})

	t.Run("orphaned session resolves to anonymous", func(t *testing.T) {
		resolver, sessions, users := newResolverFixture(t)

		userID := uuid.New()
		require.NoError(t, users.Create(ctx, &models.UserAccount{ID: userID, IsMaster: true}))
		sessionID := issueSession(t, sessions, userID, time.Hour)

		// Account removed while the session is still live
		require.NoError(t, users.Delete(ctx, userID))

		require.Equal(t, Anonymous, resolver.Resolve(ctx, sessionID.String()))
	})
}
