// Package login issues and revokes sessions. Credential verification lives
// with an external identity provider; this package only exchanges a verified
// subject id for a server-side session and an opaque cookie.
package login

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/menuhub/menuhub/internal/auth"
	httpmiddleware "github.com/menuhub/menuhub/internal/http"
	"github.com/menuhub/menuhub/internal/models"
	"github.com/menuhub/menuhub/internal/store"
	"github.com/menuhub/menuhub/internal/telemetry"
)

// ErrInvalidCredentials is returned by identity providers when the presented
// credentials don't match an account.
var ErrInvalidCredentials = errors.New("invalid credentials")

// IdentityProvider verifies credentials and returns the stable subject id of
// the account. Email addresses and password material live with the provider;
// this service never stores them.
type IdentityProvider interface {
	Authenticate(ctx context.Context, email, password string) (uuid.UUID, error)
}

// Stores bundles the stores the login handlers need.
type Stores struct {
	Sessions store.SessionStore
	Users    store.UserStore
	Orgs     store.OrganizationStore
}

// Handler serves the login and logout endpoints.
type Handler struct {
	provider   IdentityProvider
	stores     Stores
	sessionTTL time.Duration
}

// NewHandler creates a new login handler.
func NewHandler(provider IdentityProvider, stores Stores, sessionTTL time.Duration) (*Handler, error) {
	if provider == nil {
		return nil, errors.New("identity provider is required")
	}
	if sessionTTL <= 0 {
		return nil, errors.New("session TTL must be greater than 0")
	}

	return &Handler{
		provider:   provider,
		stores:     stores,
		sessionTTL: sessionTTL,
	}, nil
}

// LoginHandler verifies credentials with the identity provider, creates a
// server-side session and sets the opaque session cookie. On success the
// caller is sent to their admin area: masters to /admin/master, organization
// users to /admin/{slug}.
func (h *Handler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	email := r.FormValue("email")
	password := r.FormValue("password")

	if email == "" || password == "" {
		http.Error(w, "email and password are required", http.StatusBadRequest)
		return
	}

	ctx := r.Context()

	subjectID, err := h.provider.Authenticate(ctx, email, password)
	if err != nil {
		if !errors.Is(err, ErrInvalidCredentials) {
			log.Warn().Err(err).Msg("Identity provider unavailable")
		}
		http.Error(w, "authentication failed", http.StatusUnauthorized)
		return
	}

	user, err := h.stores.Users.Get(ctx, subjectID)
	if err != nil {
		// Credentials verified but the account is gone from this store;
		// don't issue a session for a ghost.
		log.Warn().
			Err(err).
			Str("user_id", subjectID.String()).
			Msg("Authenticated subject has no account")
		http.Error(w, "authentication failed", http.StatusUnauthorized)
		return
	}

	sessionID, err := uuid.NewV7()
	if err != nil {
		http.Error(w, "failed to create session", http.StatusInternalServerError)
		return
	}

	now := time.Now()
	session := &models.Session{
		SessionID:  sessionID,
		UserID:     user.ID,
		CreatedAt:  now,
		ExpiresAt:  now.Add(h.sessionTTL),
		LastUsedAt: now,
		UserAgent:  r.UserAgent(),
		IPAddress:  httpmiddleware.ClientIPFromContext(ctx),
	}

	if err := h.stores.Sessions.Create(ctx, session); err != nil {
		log.Error().Err(err).Msg("Failed to create session")
		http.Error(w, "failed to create session", http.StatusInternalServerError)
		return
	}

	setSessionCookie(w, sessionID.String(), int(h.sessionTTL.Seconds()))

	telemetry.GetMetrics().SessionsCreatedTotal.Add(ctx, 1)

	log.Info().
		Str("user_id", user.ID.String()).
		Bool("is_master", user.IsMaster).
		Msg("User logged in")

	http.Redirect(w, r, h.adminTarget(ctx, user), http.StatusFound)
}

// adminTarget picks the post-login destination for an account.
func (h *Handler) adminTarget(ctx context.Context, user *models.UserAccount) string {
	if user.IsMaster {
		return "/admin/master"
	}

	if user.OrganizationID != nil {
		org, err := h.stores.Orgs.Get(ctx, *user.OrganizationID)
		if err == nil {
			return "/admin/" + org.Slug
		}
		log.Warn().
			Err(err).
			Str("org_id", user.OrganizationID.String()).
			Msg("Failed to resolve organization for login redirect")
	}

	return auth.RedirectHome
}

// LogoutHandler revokes the current session and clears the cookie. It
// succeeds even when the session is already gone.
func (h *Handler) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(auth.SessionCookieName); err == nil {
		if sessionID, err := uuid.Parse(cookie.Value); err == nil {
			if err := h.stores.Sessions.Delete(r.Context(), sessionID); err != nil &&
				!errors.Is(err, store.ErrSessionNotFound) {
				log.Warn().Err(err).Msg("Failed to delete session on logout")
			}
		}
	}

	setSessionCookie(w, "", -1)

	http.Redirect(w, r, auth.RedirectHome, http.StatusFound)
}

func setSessionCookie(w http.ResponseWriter, value string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookieName,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   maxAge,
	})
}

// StartSessionCleanup deletes expired sessions on a fixed interval until ctx
// is canceled.
func StartSessionCleanup(ctx context.Context, sessions store.SessionStore, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				removed, err := sessions.DeleteExpired(ctx)
				if err != nil {
					log.Warn().Err(err).Msg("Session cleanup failed")
					continue
				}
				telemetry.GetMetrics().SessionsExpiredTotal.Add(ctx, int64(removed))
			}
		}
	}()
}
