// Package session owns the client's view of "who is logged in": the current
// user, the credential pair, and the primitive auth operations against the
// backend.
package session

import "github.com/motohub/go-motohub-client/internal/apierrors"

// Role is the closed set of account roles. Unknown values decoded from the
// server satisfy no role predicate.
type Role string

const (
	RoleCustomer  Role = "customer"
	RoleAdmin     Role = "admin"
	RoleDeveloper Role = "developer"
)

// Known reports whether the role is one of the defined variants. New roles
// must be added here and to every predicate switch.
func (r Role) Known() bool {
	switch r {
	case RoleCustomer, RoleAdmin, RoleDeveloper:
		return true
	}
	return false
}

// User is the profile record returned by the backend. Email and role are
// immutable from the client's side.
type User struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Mobile     string `json:"mobile"`
	Role       Role   `json:"role"`
	IsActive   bool   `json:"is_active"`
	IsVerified bool   `json:"is_verified"`
	CreatedAt  string `json:"created_at,omitempty"`
}

// Session is the in-memory representation of the authenticated principal:
// the user record plus the opaque credential pair. It is authenticated only
// when both the user and the access token are present.
type Session struct {
	User         User
	AccessToken  string
	RefreshToken string
}

// State describes where the manager is in its lifecycle. Guards defer their
// decision while StateLoading to avoid redirect flicker.
type State int

const (
	StateLoading State = iota
	StateAnonymous
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateAnonymous:
		return "anonymous"
	case StateAuthenticated:
		return "authenticated"
	}
	return "unknown"
}

// Result is the uniform outcome of a Manager operation. Manager methods
// never panic or leak raw errors past this boundary.
type Result struct {
	OK      bool
	Message string
	User    *User
}

func success(user *User, message string) Result {
	return Result{OK: true, Message: message, User: user}
}

func failure(err error) Result {
	return Result{OK: false, Message: apierrors.Message(err)}
}

func failureMessage(message string) Result {
	return Result{OK: false, Message: message}
}
