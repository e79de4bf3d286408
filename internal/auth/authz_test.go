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

func seedOrg(t *testing.T, orgs *memorystore.OrganizationStore, slug string) *models.Organization {
	t.Helper()

	org := &models.Organization{
		ID:        uuid.New(),
		Slug:      slug,
		Name:      "Test Restaurant",
		CreatedAt: time.Now(),
	}
	require.NoError(t, orgs.Create(context.Background(), org))
	return org
}

func TestEngine_Authorize(t *testing.T) {
	ctx := context.Background()

	orgs := memorystore.NewOrganizationStore()
	orgA := seedOrg(t, orgs, "pizzaria-praca")
	orgB := seedOrg(t, orgs, "cantina-bella")

	engine := NewEngine(orgs)

	userA := OrgUser(uuid.New(), orgA.ID)
	userB := OrgUser(uuid.New(), orgB.ID)
	master := Master(uuid.New())

	tests := []struct {
		name         string
		principal    Principal
		path         string
		wantAllowed  bool
		wantRedirect string
	}{
		// Public pages are open to everyone
		{name: "anonymous public page", principal: Anonymous, path: "/", wantAllowed: true},
		{name: "anonymous menu page", principal: Anonymous, path: "/api/menus/pizzaria-praca", wantAllowed: true},
		{name: "org user public page", principal: userA, path: "/api/menus/cantina-bella", wantAllowed: true},

		// Admin scope requires a session
		{name: "anonymous admin root", principal: Anonymous, path: "/admin", wantRedirect: RedirectLogin},
		{name: "anonymous admin tenant", principal: Anonymous, path: "/admin/pizzaria-praca", wantRedirect: RedirectLogin},
		{name: "anonymous admin master", principal: Anonymous, path: "/admin/master", wantRedirect: RedirectLogin},

		// Master sub-scope is master-only
		{name: "master in master scope", principal: master, path: "/admin/master", wantAllowed: true},
		{name: "master in nested master scope", principal: master, path: "/admin/master/organizations", wantAllowed: true},
		{name: "org user in master scope", principal: userA, path: "/admin/master", wantRedirect: RedirectHome},

		// Organization sub-scope is confined to the caller's own slug
		{name: "org user own tenant", principal: userA, path: "/admin/pizzaria-praca", wantAllowed: true},
		{name: "org user own nested path", principal: userA, path: "/admin/pizzaria-praca/images", wantAllowed: true},
		{name: "org user other tenant", principal: userA, path: "/admin/cantina-bella", wantRedirect: RedirectHome},
		{name: "other org user symmetric", principal: userB, path: "/admin/pizzaria-praca", wantRedirect: RedirectHome},

		// Master reaches every tenant
		{name: "master any tenant", principal: master, path: "/admin/pizzaria-praca", wantAllowed: true},

		// Bare /admin is reachable by any authenticated caller
		{name: "org user bare admin", principal: userA, path: "/admin", wantAllowed: true},
		{name: "master bare admin", principal: master, path: "/admin", wantAllowed: true},

		// Unknown slugs deny exactly like foreign ones
		{name: "org user unknown slug", principal: userA, path: "/admin/does-not-exist", wantRedirect: RedirectHome},
		{name: "master unknown slug", principal: master, path: "/admin/does-not-exist", wantRedirect: RedirectHome},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decision := engine.Authorize(ctx, tt.principal, tt.path)
			require.Equal(t, tt.wantAllowed, decision.Allowed)
			if !tt.wantAllowed {
				require.Equal(t, tt.wantRedirect, decision.Redirect)
			}
		})
	}
}

// downOrgStore simulates an unreachable backing store; every lookup fails
// with an outage-class error rather than a not-found sentinel.
type downOrgStore struct {
	*memorystore.OrganizationStore
}

func (s *downOrgStore) GetBySlug(ctx context.Context, slug string) (*models.Organization, error) {
	return nil, errors.New("connection refused")
}

// A failing organization lookup must deny, never allow, even for callers who
// would pass with the store healthy.
func TestEngine_Authorize_StoreUnavailable(t *testing.T) {
	ctx := context.Background()

	orgs := memorystore.NewOrganizationStore()
	org := seedOrg(t, orgs, "pizzaria-praca")

	engine := NewEngine(&downOrgStore{OrganizationStore: orgs})

	tests := []struct {
		name      string
		principal Principal
	}{
		{name: "org user own tenant", principal: OrgUser(uuid.New(), org.ID)},
		{name: "master", principal: Master(uuid.New())},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decision := engine.Authorize(ctx, tt.principal, "/admin/pizzaria-praca")
			require.False(t, decision.Allowed)
			require.Equal(t, RedirectHome, decision.Redirect)
		})
	}
}

// A denial for a foreign tenant must be byte-identical to a denial for a slug
// that does not exist, or responses leak which slugs are taken.
func TestEngine_Authorize_NoSlugEnumeration(t *testing.T) {
	ctx := context.Background()

	orgs := memorystore.NewOrganizationStore()
	orgA := seedOrg(t, orgs, "pizzaria-praca")
	seedOrg(t, orgs, "cantina-bella")

	engine := NewEngine(orgs)
	userA := OrgUser(uuid.New(), orgA.ID)

	foreign := engine.Authorize(ctx, userA, "/admin/cantina-bella")
	missing := engine.Authorize(ctx, userA, "/admin/does-not-exist")

	require.Equal(t, foreign, missing)
}

func TestSlugSegment(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{path: "/admin", want: ""},
		{path: "/admin/", want: ""},
		{path: "/admin/pizzaria-praca", want: "pizzaria-praca"},
		{path: "/admin/pizzaria-praca/images", want: "pizzaria-praca"},
		{path: "/admin/pizzaria-praca/images/123", want: "pizzaria-praca"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			require.Equal(t, tt.want, slugSegment(tt.path))
		})
	}
}
