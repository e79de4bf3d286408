//go:build integration

package postgres

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/menuhub/menuhub/internal/models"
	"github.com/menuhub/menuhub/internal/store"
)

func setupPostgresPool(t *testing.T, ctx context.Context) (*pgxpool.Pool, func()) {
	// Start postgres container
	req := testcontainers.ContainerRequest{
		Image:        "postgres:18-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)

	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	connString := fmt.Sprintf("postgres://test:test@%s:%s/testdb?sslmode=disable", host, port.Port())

	pool, err := NewPool(ctx, &PoolConfig{ConnString: connString})
	require.NoError(t, err)

	require.NoError(t, RunMigrations(ctx, pool))

	cleanup := func() {
		pool.Close()
		_ = container.Terminate(ctx)
	}

	return pool, cleanup
}

func createOrganization(t *testing.T, ctx context.Context, orgs *OrganizationStore, slug string) *models.Organization {
	t.Helper()

	now := time.Now()
	org := &models.Organization{
		ID:        uuid.New(),
		Slug:      slug,
		Name:      "Test Restaurant",
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, orgs.Create(ctx, org))
	return org
}

func TestIntegration_OrganizationStore(t *testing.T) {
	ctx := context.Background()
	pool, cleanup := setupPostgresPool(t, ctx)
	defer cleanup()

	orgs := NewOrganizationStore(pool)

	t.Run("create and get by slug", func(t *testing.T) {
		org := createOrganization(t, ctx, orgs, "pizzaria-praca")

		got, err := orgs.GetBySlug(ctx, "pizzaria-praca")
		require.NoError(t, err)
		require.Equal(t, org.ID, got.ID)
	})

	t.Run("duplicate slug conflicts", func(t *testing.T) {
		err := orgs.Create(ctx, &models.Organization{
			ID:        uuid.New(),
			Slug:      "pizzaria-praca",
			Name:      "Impostor",
			CreatedAt: time.Now(),
		})
		require.ErrorIs(t, err, store.ErrSlugAlreadyExists)
	})

	t.Run("update keeps slug", func(t *testing.T) {
		org := createOrganization(t, ctx, orgs, "update-me")

		org.Slug = "changed"
		org.Name = "Renamed"
		require.NoError(t, orgs.Update(ctx, org))

		got, err := orgs.Get(ctx, org.ID)
		require.NoError(t, err)
		require.Equal(t, "update-me", got.Slug)
		require.Equal(t, "Renamed", got.Name)
	})

	t.Run("unknown slug", func(t *testing.T) {
		_, err := orgs.GetBySlug(ctx, "does-not-exist")
		require.ErrorIs(t, err, store.ErrOrganizationNotFound)
	})
}

func TestIntegration_UserStore(t *testing.T) {
	ctx := context.Background()
	pool, cleanup := setupPostgresPool(t, ctx)
	defer cleanup()

	orgs := NewOrganizationStore(pool)
	users := NewUserStore(pool)

	org := createOrganization(t, ctx, orgs, "pizzaria-praca")

	t.Run("organization user round trip", func(t *testing.T) {
		user := &models.UserAccount{ID: uuid.New(), OrganizationID: &org.ID, CreatedAt: time.Now()}
		require.NoError(t, users.Create(ctx, user))

		got, err := users.Get(ctx, user.ID)
		require.NoError(t, err)
		require.NotNil(t, got.OrganizationID)
		require.Equal(t, org.ID, *got.OrganizationID)
		require.False(t, got.IsMaster)
	})

	t.Run("master user round trip", func(t *testing.T) {
		user := &models.UserAccount{ID: uuid.New(), IsMaster: true, CreatedAt: time.Now()}
		require.NoError(t, users.Create(ctx, user))

		got, err := users.Get(ctx, user.ID)
		require.NoError(t, err)
		require.True(t, got.IsMaster)
		require.Nil(t, got.OrganizationID)
	})

	t.Run("deleting the organization cascades to its users", func(t *testing.T) {
		doomed := createOrganization(t, ctx, orgs, "doomed-org")
		user := &models.UserAccount{ID: uuid.New(), OrganizationID: &doomed.ID, CreatedAt: time.Now()}
		require.NoError(t, users.Create(ctx, user))

		require.NoError(t, orgs.Delete(ctx, doomed.ID))

		_, err := users.Get(ctx, user.ID)
		require.ErrorIs(t, err, store.ErrUserNotFound)
	})
}

func TestIntegration_SessionStore(t *testing.T) {
	ctx := context.Background()
	pool, cleanup := setupPostgresPool(t, ctx)
	defer cleanup()

	users := NewUserStore(pool)
	sessions := NewSessionStore(pool)

	user := &models.UserAccount{ID: uuid.New(), IsMaster: true, CreatedAt: time.Now()}
	require.NoError(t, users.Create(ctx, user))

	t.Run("live session round trip", func(t *testing.T) {
		now := time.Now()
		session := &models.Session{
			SessionID:  uuid.New(),
			UserID:     user.ID,
			CreatedAt:  now,
			ExpiresAt:  now.Add(time.Hour),
			LastUsedAt: now,
			UserAgent:  "test-agent",
			IPAddress:  "192.0.2.1",
		}
		require.NoError(t, sessions.Create(ctx, session))

		got, err := sessions.Get(ctx, session.SessionID)
		require.NoError(t, err)
		require.Equal(t, user.ID, got.UserID)
		require.Equal(t, "test-agent", got.UserAgent)
	})

	t.Run("expired session", func(t *testing.T) {
		now := time.Now()
		session := &models.Session{
			SessionID:  uuid.New(),
			UserID:     user.ID,
			CreatedAt:  now.Add(-2 * time.Hour),
			ExpiresAt:  now.Add(-time.Hour),
			LastUsedAt: now.Add(-2 * time.Hour),
		}
		require.NoError(t, sessions.Create(ctx, session))

		_, err := sessions.Get(ctx, session.SessionID)
		require.ErrorIs(t, err, store.ErrSessionExpired)

		count, err := sessions.DeleteExpired(ctx)
		require.NoError(t, err)
		require.Equal(t, 1, count)
	})
}

func TestIntegration_MenuImageStore(t *testing.T) {
	ctx := context.Background()
	pool, cleanup := setupPostgresPool(t, ctx)
	defer cleanup()

	orgs := NewOrganizationStore(pool)
	images := NewMenuImageStore(pool)

	org := createOrganization(t, ctx, orgs, "pizzaria-praca")

	t.Run("insert, list newest first, count", func(t *testing.T) {
		base := time.Now()
		var ids []uuid.UUID
		for i := range 3 {
			img := &models.MenuImage{
				ID:             uuid.New(),
				OrganizationID: org.ID,
				ImageURL:       fmt.Sprintf("https://cdn.example.com/pizzaria-praca/%d.jpg", i),
				CreatedAt:      base.Add(time.Duration(i) * time.Second),
			}
			require.NoError(t, images.Insert(ctx, img))
			ids = append(ids, img.ID)
		}

		list, err := images.ListByOrganization(ctx, org.ID)
		require.NoError(t, err)
		require.Len(t, list, 3)
		require.Equal(t, ids[2], list[0].ID)

		count, err := images.CountByOrganization(ctx, org.ID)
		require.NoError(t, err)
		require.Equal(t, 3, count)
	})

	t.Run("insert for unknown organization fails", func(t *testing.T) {
		err := images.Insert(ctx, &models.MenuImage{
			ID:             uuid.New(),
			OrganizationID: uuid.New(),
			ImageURL:       "https://cdn.example.com/ghost/1.jpg",
			CreatedAt:      time.Now(),
		})
		require.ErrorIs(t, err, store.ErrOrganizationNotFound)
	})

	t.Run("advisory lock serializes one organization", func(t *testing.T) {
		unlock, err := images.Lock(ctx, org.ID)
		require.NoError(t, err)

		acquired := make(chan struct{})
		go func() {
			secondUnlock, err := images.Lock(ctx, org.ID)
			if err == nil {
				secondUnlock()
			}
			close(acquired)
		}()

		select {
		case <-acquired:
			t.Fatal("second lock acquired while first was held")
		case <-time.After(200 * time.Millisecond):
		}

		unlock()

		select {
		case <-acquired:
		case <-time.After(2 * time.Second):
			t.Fatal("second lock never acquired after unlock")
		}
	})

	t.Run("lock does not starve other organizations", func(t *testing.T) {
		other := createOrganization(t, ctx, orgs, "cantina-bella")

		unlock, err := images.Lock(ctx, org.ID)
		require.NoError(t, err)
		defer unlock()

		var wg sync.WaitGroup
		wg.Add(1)
		done := make(chan struct{})
		go func() {
			defer wg.Done()
			otherUnlock, err := images.Lock(ctx, other.ID)
			if err == nil {
				otherUnlock()
			}
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("lock on a different organization blocked")
		}
		wg.Wait()
	})
}
