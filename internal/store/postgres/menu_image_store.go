package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/menuhub/menuhub/internal/models"
	"github.com/menuhub/menuhub/internal/store"
)

// MenuImageStore implements store.MenuImageStore using PostgreSQL.
//
// The per-organization critical section uses a session-level advisory lock
// held on a dedicated pool connection. Advisory locks are cluster-wide, so
// the quota check stays serialized across multiple server instances.
type MenuImageStore struct {
	pool *pgxpool.Pool
}

// NewMenuImageStore creates a new PostgreSQL-backed menu image store.
func NewMenuImageStore(pool *pgxpool.Pool) *MenuImageStore {
	return &MenuImageStore{
		pool: pool,
	}
}

// Insert registers a new menu image record.
func (s *MenuImageStore) Insert(ctx context.Context, img *models.MenuImage) error {
	query := `
		INSERT INTO menu_images (image_id, org_id, image_url, created_at)
		VALUES ($1, $2, $3, $4)
	`

	_, err := s.pool.Exec(ctx, query,
		img.ID,
		img.OrganizationID,
		img.ImageURL,
		img.CreatedAt,
	)

	if err != nil {
		if isForeignKeyViolation(err) {
			return store.ErrOrganizationNotFound
		}
		return fmt.Errorf("failed to insert menu image: %w", err)
	}

	log.Debug().
		Str("image_id", img.ID.String()).
		Str("org_id", img.OrganizationID.String()).
		Msg("Inserted menu image")

	return nil
}

// Get retrieves a menu image by ID.
func (s *MenuImageStore) Get(ctx context.Context, imageID uuid.UUID) (*models.MenuImage, error) {
	query := `
		SELECT image_id, org_id, image_url, created_at
		FROM menu_images
		WHERE image_id = $1
	`

	var img models.MenuImage
	err := s.pool.QueryRow(ctx, query, imageID).Scan(
		&img.ID,
		&img.OrganizationID,
		&img.ImageURL,
		&img.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrMenuImageNotFound
		}
		return nil, fmt.Errorf("failed to get menu image: %w", err)
	}

	return &img, nil
}

// Delete deletes a menu image record by ID.
func (s *MenuImageStore) Delete(ctx context.Context, imageID uuid.UUID) error {
	query := `DELETE FROM menu_images WHERE image_id = $1`

	result, err := s.pool.Exec(ctx, query, imageID)
	if err != nil {
		return fmt.Errorf("failed to delete menu image: %w", err)
	}

	if result.RowsAffected() == 0 {
		return store.ErrMenuImageNotFound
	}

	log.Debug().
		Str("image_id", imageID.String()).
		Msg("Deleted menu image")

	return nil
}

// ListByOrganization returns an organization's images, newest first.
func (s *MenuImageStore) ListByOrganization(ctx context.Context, orgID uuid.UUID) ([]*models.MenuImage, error) {
	query := `
		SELECT image_id, org_id, image_url, created_at
		FROM menu_images
		WHERE org_id = $1
		ORDER BY created_at DESC
	`

	rows, err := s.pool.Query(ctx, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list menu images: %w", err)
	}
	defer rows.Close()

	var images []*models.MenuImage
	for rows.Next() {
		var img models.MenuImage
		err := rows.Scan(
			&img.ID,
			&img.OrganizationID,
			&img.ImageURL,
			&img.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan menu image: %w", err)
		}
		images = append(images, &img)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating menu images: %w", err)
	}

	return images, nil
}

// CountByOrganization returns the current number of images for an organization.
func (s *MenuImageStore) CountByOrganization(ctx context.Context, orgID uuid.UUID) (int, error) {
	query := `SELECT COUNT(*) FROM menu_images WHERE org_id = $1`

	var count int
	if err := s.pool.QueryRow(ctx, query, orgID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count menu images: %w", err)
	}

	return count, nil
}

// Lock acquires a session-level advisory lock keyed by the organization ID.
// The lock is held on a dedicated connection until the returned UnlockFunc
// runs; releasing the connection without unlocking would leak the lock to the
// next pool user, so both happen together.
func (s *MenuImageStore) Lock(ctx context.Context, orgID uuid.UUID) (store.UnlockFunc, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire connection for advisory lock: %w", err)
	}

	if _, err := conn.Exec(ctx, `SELECT pg_advisory_lock(hashtextextended($1, 0))`, orgID.String()); err != nil {
		conn.Release()
		return nil, fmt.Errorf("failed to acquire advisory lock: %w", err)
	}

	unlock := func() {
		// Unlock with a fresh context: the request context may already be
		// canceled and the lock must still be released.
		if _, err := conn.Exec(context.Background(), `SELECT pg_advisory_unlock(hashtextextended($1, 0))`, orgID.String()); err != nil {
			log.Error().
				Err(err).
				Str("org_id", orgID.String()).
				Msg("Failed to release advisory lock")
		}
		conn.Release()
	}

	return unlock, nil
}
