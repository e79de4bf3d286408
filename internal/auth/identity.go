package auth

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/menuhub/menuhub/internal/store"
)

// Resolver resolves an opaque session token to a Principal.
//
// Resolution never fails: an absent, malformed or expired session, a deleted
// account, or an unavailable store all deterministically yield Anonymous. In
// particular an orphaned session (account deleted after session issuance)
// must not keep behaving as an upgraded-privilege ghost.
type Resolver struct {
	sessions store.SessionStore
	users    store.UserStore
}

// NewResolver creates a new identity resolver over the given stores.
func NewResolver(sessions store.SessionStore, users store.UserStore) *Resolver {
	return &Resolver{
		sessions: sessions,
		users:    users,
	}
}

// Resolve looks up the account behind sessionToken and returns the caller's
// Principal. The token is treated as an opaque string; only the session store
// gives it meaning.
func (r *Resolver) Resolve(ctx context.Context, sessionToken string) Principal {
	if sessionToken == "" {
		return Anonymous
	}

	sessionID, err := uuid.Parse(sessionToken)
	if err != nil {
		log.Debug().Msg("Malformed session token")
		return Anonymous
	}

	session, err := r.sessions.Get(ctx, sessionID)
	if err != nil {
		if !errors.Is(err, store.ErrSessionNotFound) && !errors.Is(err, store.ErrSessionExpired) {
			log.Warn().Err(err).Msg("Session lookup failed, treating caller as anonymous")
		}
		return Anonymous
	}

	user, err := r.users.Get(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			log.Debug().
				Str("user_id", session.UserID.String()).
				Msg("Session references a deleted account")
		} else {
			log.Warn().Err(err).Msg("User lookup failed, treating caller as anonymous")
		}
		return Anonymous
	}

	switch {
	case user.IsMaster:
		return Master(user.ID)
	case user.OrganizationID != nil:
		return OrgUser(user.ID, *user.OrganizationID)
	default:
		// Account violates the master/organization invariant; safest to
		// treat it as unauthenticated.
		log.Warn().
			Str("user_id", user.ID.String()).
			Msg("Account has no organization and is not master")
		return Anonymous
	}
}
