package domain

// Actor is the signed-in person. It is loaded once per session and never
// mutated by the core.
type Actor struct {
	ID   string
	Name string
	Role Role
}

// IsAdmin reports whether the actor acts with the admin role.
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// SessionContext is the read-only session handed to every component at
// construction.
type SessionContext struct {
	Token string
	Actor Actor
}

// Authenticated reports whether a bearer token is present.
func (s SessionContext) Authenticated() bool {
	return s.Token != ""
}
