package auth

import (
	"github.com/google/uuid"
)

// PrincipalKind discriminates the resolved identity of a caller.
type PrincipalKind string

const (
	// KindAnonymous is a caller with no valid session.
	KindAnonymous PrincipalKind = "anonymous"
	// KindOrgUser is an account scoped to a single organization.
	KindOrgUser PrincipalKind = "org_user"
	// KindMaster is a platform-wide operator account.
	KindMaster PrincipalKind = "master"
)

// Principal is the resolved identity of the current request's caller.
// Exactly one kind holds at a time. A Principal is derived fresh per request
// and never persisted beyond the request lifetime.
type Principal struct {
	Kind           PrincipalKind
	UserID         uuid.UUID
	OrganizationID uuid.UUID // set only for org users
}

// Anonymous is the principal of a caller with no valid session.
var Anonymous = Principal{Kind: KindAnonymous}

// OrgUser returns a principal scoped to one organization.
func OrgUser(userID, orgID uuid.UUID) Principal {
	return Principal{Kind: KindOrgUser, UserID: userID, OrganizationID: orgID}
}

// Master returns a platform-wide operator principal.
func Master(userID uuid.UUID) Principal {
	return Principal{Kind: KindMaster, UserID: userID}
}

// IsAnonymous reports whether the principal has no authenticated identity.
func (p Principal) IsAnonymous() bool {
	return p.Kind == KindAnonymous
}

// IsMaster reports whether the principal is a platform-wide operator.
func (p Principal) IsMaster() bool {
	return p.Kind == KindMaster
}
