package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/menuhub/menuhub/internal/store"
)

// Path scopes and redirect targets. /admin/master is matched before the
// generic /admin/{slug} pattern.
const (
	AdminPrefix = "/admin"
	masterScope = "/admin/master"

	// RedirectLogin is where anonymous callers are sent.
	RedirectLogin = "/login"
	// RedirectHome is where authenticated-but-unauthorized callers are sent.
	// It is also used when the requested slug does not exist, so the response
	// cannot distinguish "forbidden" from "not found".
	RedirectHome = "/"
)

// Decision is the outcome of an authorization check: either the request
// passes through, or it is terminated with a redirect. The engine never
// returns anything else.
type Decision struct {
	Allowed  bool
	Redirect string // target when denied
}

// Allow passes the request through to its handler.
func Allow() Decision {
	return Decision{Allowed: true}
}

// DenyRedirect terminates the request with a redirect to target.
func DenyRedirect(target string) Decision {
	return Decision{Redirect: target}
}

// Engine decides whether a principal may access a tenant-scoped path.
//
// Master accounts bypass per-tenant scoping entirely; organization accounts
// are strictly confined to their own slug. Denials for a slug that doesn't
// exist and a slug the caller doesn't own are identical, so slugs cannot be
// enumerated via response variance.
type Engine struct {
	orgs store.OrganizationStore
}

// NewEngine creates a new authorization engine over the organization store.
func NewEngine(orgs store.OrganizationStore) *Engine {
	return &Engine{
		orgs: orgs,
	}
}

// Authorize evaluates the access rules for path in precedence order, first
// match wins. It never returns an error: a failing organization lookup is a
// denial (fail closed), never an allow.
func (e *Engine) Authorize(ctx context.Context, principal Principal, path string) Decision {
	// Rule 1: public pages are open
	if !isAdminPath(path) {
		return Allow()
	}

	// Rule 2: admin scope requires a session
	if principal.IsAnonymous() {
		return DenyRedirect(RedirectLogin)
	}

	// Rule 3: the master sub-scope is master-only
	if isMasterPath(path) {
		if principal.IsMaster() {
			return Allow()
		}
		return DenyRedirect(RedirectHome)
	}

	// Rule 4: organization sub-scope, discriminated by the slug segment
	slug := slugSegment(path)
	if slug == "" {
		// Bare /admin carries no tenant scope; any authenticated caller may
		// reach it (it only forwards to the caller's own admin page).
		return Allow()
	}

	org, err := e.orgs.GetBySlug(ctx, slug)
	if err != nil {
		if !errors.Is(err, store.ErrOrganizationNotFound) {
			log.Warn().Err(err).Str("slug", slug).Msg("Organization lookup failed, denying access")
		}
		// Same redirect for "not found" and lookup failure as for
		// "forbidden" below.
		return DenyRedirect(RedirectHome)
	}

	if principal.IsMaster() {
		return Allow()
	}

	if principal.Kind == KindOrgUser && principal.OrganizationID == org.ID {
		return Allow()
	}

	return DenyRedirect(RedirectHome)
}

// isAdminPath reports whether path is under the admin scope.
func isAdminPath(path string) bool {
	return path == AdminPrefix || strings.HasPrefix(path, AdminPrefix+"/")
}

// isMasterPath reports whether path is under the master-only sub-scope.
func isMasterPath(path string) bool {
	return path == masterScope || strings.HasPrefix(path, masterScope+"/")
}

// slugSegment extracts the tenant slug from an admin path:
// "/admin/{slug}/..." -> "{slug}". Returns "" for bare /admin.
func slugSegment(path string) string {
	rest := strings.TrimPrefix(path, AdminPrefix)
	rest = strings.TrimPrefix(rest, "/")
	if idx := strings.IndexByte(rest, '/'); idx != -1 {
		rest = rest[:idx]
	}
	return rest
}
