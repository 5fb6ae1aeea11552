package auth

import (
	"github.com/spec-kit/helpdesk-client/internal/domain"
	"github.com/spec-kit/helpdesk-client/pkg/util/errorutil"
)

// RequireAdmin ensures the actor holds the admin role.
func RequireAdmin(role domain.Role) error {
	if role != domain.RoleAdmin {
		return errorutil.NewForbidden("admin role required")
	}
	return nil
}

// RequireSession ensures a bearer token is present.
func RequireSession(session domain.SessionContext) error {
	if !session.Authenticated() {
		return errorutil.NewUnauthorized("no saved session, please sign in")
	}
	return nil
}
