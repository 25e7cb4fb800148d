// Package guards decides whether a navigation target may render, must
// redirect, or should wait for the session to resolve. Guards never error:
// an undecidable state defaults to waiting.
package guards

import (
	"net/url"

	"github.com/motohub/go-motohub-client/session"
)

// Well-known navigation targets.
const (
	LoginRoute             = "/login"
	RegisterRoute          = "/register"
	CustomerDashboardRoute = "/customer/dashboard"
	AdminDashboardRoute    = "/admin/dashboard"
)

// Session is the slice of the session manager guards consult.
type Session interface {
	State() session.State
	IsAuthenticated() bool
	IsAdmin() bool
	PendingVerificationEmail() string
}

// Kind is the outcome category of a guard decision.
type Kind int

const (
	// KindWait defers the decision; render a neutral waiting indicator.
	KindWait Kind = iota
	// KindRender permits the requested content.
	KindRender
	// KindRedirect forces navigation to Decision.Target.
	KindRedirect
)

// Decision is the resolved outcome for one navigation. Guards are
// re-evaluated on every navigation event and on session changes.
type Decision struct {
	Kind   Kind
	Target string
}

func wait() Decision {
	return Decision{Kind: KindWait}
}

func render() Decision {
	return Decision{Kind: KindRender}
}

func redirect(target string) Decision {
	return Decision{Kind: KindRedirect, Target: target}
}

// Guard decides the fate of a navigation to destination.
type Guard interface {
	Decide(s Session, destination string) Decision
}

// Authenticated gates routes that require a logged-in user. With
// RequireAdmin set, non-admin users are sent to their own dashboard rather
// than an error page.
type Authenticated struct {
	RequireAdmin bool
}

var _ Guard = Authenticated{}

func (g Authenticated) Decide(s Session, destination string) Decision {
	if s.State() == session.StateLoading {
		return wait()
	}
	if !s.IsAuthenticated() {
		return redirect(loginWithNext(destination))
	}
	if g.RequireAdmin && !s.IsAdmin() {
		return redirect(CustomerDashboardRoute)
	}
	return render()
}

// Public gates routes that only make sense while logged out (login,
// register). A logged-in user is sent straight to their dashboard.
type Public struct{}

var _ Guard = Public{}

func (Public) Decide(s Session, _ string) Decision {
	if s.State() == session.StateLoading {
		return wait()
	}
	if s.IsAuthenticated() {
		return redirect(DefaultLanding(s))
	}
	return render()
}

// PendingVerification gates the OTP entry screen: it renders only while a
// registration is awaiting confirmation, otherwise the user is sent back to
// registration.
type PendingVerification struct{}

var _ Guard = PendingVerification{}

func (PendingVerification) Decide(s Session, _ string) Decision {
	if s.State() == session.StateLoading {
		return wait()
	}
	if s.PendingVerificationEmail() == "" {
		return redirect(RegisterRoute)
	}
	return render()
}

// DefaultLanding returns the role-appropriate dashboard route.
func DefaultLanding(s Session) string {
	if s.IsAdmin() {
		return AdminDashboardRoute
	}
	return CustomerDashboardRoute
}

// loginWithNext carries the originally intended destination so login can
// return the user there.
func loginWithNext(destination string) string {
	if destination == "" {
		return LoginRoute
	}
	return LoginRoute + "?next=" + url.QueryEscape(destination)
}
