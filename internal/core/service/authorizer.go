package service

import (
	"github.com/programacion-segura/secure-api/internal/api/metrics"
	"github.com/programacion-segura/secure-api/internal/core/domain"
)

// MaxPageSize bounds every paginated listing.
const MaxPageSize = 100

// Authorizer holds the access policies. It has no state: every method is a
// pure function of the caller and the target it is given. Services look up
// targets first, so a missing resource is reported as not found before any
// ownership rule runs.
type Authorizer struct{}

func NewAuthorizer() Authorizer { return Authorizer{} }

// ListUsers is admin only and bounds the page.
func (Authorizer) ListUsers(caller domain.Principal, skip, limit int) domain.Decision {
	if d := requireAdmin(domain.ActionListUsers, caller); !d.Allowed {
		return d
	}
	if !pageInBounds(skip, limit) {
		return domain.Deny(domain.ActionListUsers, domain.ErrInvalidPagination)
	}
	return domain.Allow(domain.ActionListUsers)
}

// ViewUser lets admins see any identity and everyone else only their own.
func (Authorizer) ViewUser(caller domain.Principal, target *domain.User) domain.Decision {
	if !authenticated(caller) {
		return domain.Deny(domain.ActionViewUser, domain.ErrNotAuthenticated)
	}
	if caller.IsAdmin() || caller.ID == target.ID {
		return domain.Allow(domain.ActionViewUser)
	}
	return domain.Deny(domain.ActionViewUser, domain.ErrNotOwner)
}

// DeleteUser refuses self-deletion for every role, then requires admin.
func (Authorizer) DeleteUser(caller domain.Principal, targetID int64) domain.Decision {
	if !authenticated(caller) {
		return domain.Deny(domain.ActionDeleteUser, domain.ErrNotAuthenticated)
	}
	if targetID == caller.ID {
		return domain.Deny(domain.ActionDeleteUser, domain.ErrSelfDeletion)
	}
	return requireAdmin(domain.ActionDeleteUser, caller)
}

// ChangeRole requires admin and a whitelisted role value.
func (Authorizer) ChangeRole(caller domain.Principal, newRole string) domain.Decision {
	if d := requireAdmin(domain.ActionChangeRole, caller); !d.Allowed {
		return d
	}
	if !domain.ValidRole(newRole) {
		return domain.Deny(domain.ActionChangeRole, domain.ErrInvalidRole)
	}
	return domain.Allow(domain.ActionChangeRole)
}

// ListVulnerabilities is open to any authenticated caller and bounds the page.
func (Authorizer) ListVulnerabilities(caller domain.Principal, page, limit int) domain.Decision {
	if !authenticated(caller) {
		return domain.Deny(domain.ActionListVulnerabilities, domain.ErrNotAuthenticated)
	}
	if page < 1 || !pageInBounds(0, limit) {
		return domain.Deny(domain.ActionListVulnerabilities, domain.ErrInvalidPagination)
	}
	return domain.Allow(domain.ActionListVulnerabilities)
}

func (Authorizer) ViewVulnerability(caller domain.Principal) domain.Decision {
	if !authenticated(caller) {
		return domain.Deny(domain.ActionViewVulnerability, domain.ErrNotAuthenticated)
	}
	return domain.Allow(domain.ActionViewVulnerability)
}

func (Authorizer) CreateVulnerability(caller domain.Principal) domain.Decision {
	return requireAdmin(domain.ActionCreateVulnerability, caller)
}

func (Authorizer) DeleteVulnerability(caller domain.Principal) domain.Decision {
	return requireAdmin(domain.ActionDeleteVulnerability, caller)
}

func requireAdmin(action domain.Action, caller domain.Principal) domain.Decision {
	if !authenticated(caller) {
		return domain.Deny(action, domain.ErrNotAuthenticated)
	}
	if !caller.IsAdmin() {
		return domain.Deny(action, domain.ErrAdminRequired)
	}
	return domain.Allow(action)
}

// authenticated rejects the zero Principal and unknown roles.
func authenticated(caller domain.Principal) bool {
	return caller.ID > 0 && domain.ValidRole(caller.Role)
}

func pageInBounds(offset, limit int) bool {
	return offset >= 0 && limit >= 1 && limit <= MaxPageSize
}

// observe counts a decision and hands it back.
func observe(d domain.Decision) domain.Decision {
	outcome := string(domain.OutcomeAllowed)
	if !d.Allowed {
		outcome = string(domain.OutcomeDenied)
	}
	metrics.AuthzDecisionsTotal.WithLabelValues(string(d.Action), outcome).Inc()
	return d
}
