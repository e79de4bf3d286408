package memory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/menuhub/menuhub/internal/models"
	"github.com/menuhub/menuhub/internal/store"
)

func newSession(userID uuid.UUID, ttl time.Duration) *models.Session {
	now := time.Now()
	return &models.Session{
		SessionID:  uuid.New(),
		UserID:     userID,
		CreatedAt:  now,
		ExpiresAt:  now.Add(ttl),
		LastUsedAt: now,
		UserAgent:  "test-agent",
		IPAddress:  "192.0.2.1",
	}
}

func TestSessionStore_Get(t *testing.T) {
	st := NewSessionStore()
	ctx := context.Background()

	t.Run("live session", func(t *testing.T) {
		session := newSession(uuid.New(), time.Hour)
		require.NoError(t, st.Create(ctx, session))

		got, err := st.Get(ctx, session.SessionID)
		require.NoError(t, err)
		require.Equal(t, session.UserID, got.UserID)
		require.Equal(t, "test-agent", got.UserAgent)
	})

	t.Run("unknown session", func(t *testing.T) {
		_, err := st.Get(ctx, uuid.New())
		require.ErrorIs(t, err, store.ErrSessionNotFound)
	})

	t.Run("expired session", func(t *testing.T) {
		session := newSession(uuid.New(), -time.Minute)
		require.NoError(t, st.Create(ctx, session))

		_, err := st.Get(ctx, session.SessionID)
		require.ErrorIs(t, err, store.ErrSessionExpired)
	})
}

func TestSessionStore_Delete(t *testing.T) {
	st := NewSessionStore()
	ctx := context.Background()

	session := newSession(uuid.New(), time.Hour)
	require.NoError(t, st.Create(ctx, session))

	require.NoError(t, st.Delete(ctx, session.SessionID))
	require.ErrorIs(t, st.Delete(ctx, session.SessionID), store.ErrSessionNotFound)
}

func TestSessionStore_DeleteByUser(t *testing.T) {
	st := NewSessionStore()
	ctx := context.Background()

	userID := uuid.New()
	require.NoError(t, st.Create(ctx, newSession(userID, time.Hour)))
	require.NoError(t, st.Create(ctx, newSession(userID, time.Hour)))

	other := newSession(uuid.New(), time.Hour)
	require.NoError(t, st.Create(ctx, other))

	count, err := st.DeleteByUser(ctx, userID)
	require.NoError(t, err)
	require.Equal(t, 2, count)

	// Other user's session survives
	_, err = st.Get(ctx, other.SessionID)
	require.NoError(t, err)
}

func TestSessionStore_DeleteExpired(t *testing.T) {
	st := NewSessionStore()
	ctx := context.Background()

	live := newSession(uuid.New(), time.Hour)
	require.NoError(t, st.Create(ctx, live))
	require.NoError(t, st.Create(ctx, newSession(uuid.New(), -time.Minute)))
	require.NoError(t, st.Create(ctx, newSession(uuid.New(), -time.Hour)))

	count, err := st.DeleteExpired(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, count)

	_, err = st.Get(ctx, live.SessionID)
	require.NoError(t, err)
}
