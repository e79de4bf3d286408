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

// UserStore implements store.UserStore using PostgreSQL.
type UserStore struct {
	pool *pgxpool.Pool
}

// NewUserStore creates a new PostgreSQL-backed user store.
func NewUserStore(pool *pgxpool.Pool) *UserStore {
	return &UserStore{
		pool: pool,
	}
}

// Create creates a new user account in the database.
// The users_scope_xor check constraint backs up UserAccount.Validate.
func (s *UserStore) Create(ctx context.Context, user *models.UserAccount) error {
	if err := user.Validate(); err != nil {
		return err
	}

	query := `
		INSERT INTO users (user_id, org_id, is_master, created_at)
		VALUES ($1, $2, $3, $4)
	`

	_, err := s.pool.Exec(ctx, query,
		user.ID,
		user.OrganizationID,
		user.IsMaster,
		user.CreatedAt,
	)

	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrUserAlreadyExists
		}
		if isForeignKeyViolation(err) {
			return store.ErrOrganizationNotFound
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	log.Debug().
		Str("user_id", user.ID.String()).
		Bool("is_master", user.IsMaster).
		Msg("Created user")

	return nil
}

// Get retrieves a user account by ID.
func (s *UserStore) Get(ctx context.Context, userID uuid.UUID) (*models.UserAccount, error) {
	query := `
		SELECT user_id, org_id, is_master, created_at
		FROM users
		WHERE user_id = $1
	`

	var user models.UserAccount
	err := s.pool.QueryRow(ctx, query, userID).Scan(
		&user.ID,
		&user.OrganizationID,
		&user.IsMaster,
		&user.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return &user, nil
}

// ListByOrganization returns all accounts scoped to an organization.
func (s *UserStore) ListByOrganization(ctx context.Context, orgID uuid.UUID) ([]*models.UserAccount, error) {
	query := `
		SELECT user_id, org_id, is_master, created_at
		FROM users
		WHERE org_id = $1
		ORDER BY created_at DESC
	`

	rows, err := s.pool.Query(ctx, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*models.UserAccount
	for rows.Next() {
		var user models.UserAccount
		err := rows.Scan(
			&user.ID,
			&user.OrganizationID,
			&user.IsMaster,
			&user.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, &user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}

	return users, nil
}

// Delete deletes a user account by ID.
func (s *UserStore) Delete(ctx context.Context, userID uuid.UUID) error {
	query := `DELETE FROM users WHERE user_id = $1`

	result, err := s.pool.Exec(ctx, query, userID)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	if result.RowsAffected() == 0 {
		return store.ErrUserNotFound
	}

	log.Debug().
		Str("user_id", userID.String()).
		Msg("Deleted user")

	return nil
}
