package auth

import "strings"

// OIDC scopes requested during login.
const (
	ScopeOpenID  = "openid"
	ScopeProfile = "profile"
	ScopeEmail   = "email"
)

// Roles known to the pipeline service. Task ownership uses these strings;
// tenants may introduce additional role strings of their own.
const (
	RoleAdmin          = "admin"
	RoleSuperAdmin     = "super_admin"
	RoleAccountManager = "account_manager"
	RoleRecruiter      = "recruiter"
	RoleClientReviewer = "client_reviewer"
)

// AdministrativeRoles may mutate the workflow catalog and complete any task
// regardless of the task's responsible role.
var AdministrativeRoles = []string{RoleAdmin, RoleSuperAdmin}

// IsAdministrative reports whether the role carries the administrative
// override. Comparison is case-insensitive.
func IsAdministrative(role string) bool {
	for _, r := range AdministrativeRoles {
		if strings.EqualFold(role, r) {
			return true
		}
	}
	return false
}
