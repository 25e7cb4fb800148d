package guards_test

import (
	"testing"

	"github.com/motohub/go-motohub-client/guards"
	"github.com/motohub/go-motohub-client/session"
	"github.com/stretchr/testify/require"
)

type fakeSession struct {
	state         session.State
	authenticated bool
	admin         bool
	pendingEmail  string
}

func (f fakeSession) State() session.State             { return f.state }
func (f fakeSession) IsAuthenticated() bool            { return f.authenticated }
func (f fakeSession) IsAdmin() bool                    { return f.admin }
func (f fakeSession) PendingVerificationEmail() string { return f.pendingEmail }

var (
	loading       = fakeSession{state: session.StateLoading}
	anonymous     = fakeSession{state: session.StateAnonymous}
	customer      = fakeSession{state: session.StateAuthenticated, authenticated: true}
	administrator = fakeSession{state: session.StateAuthenticated, authenticated: true, admin: true}
)

func TestAuthenticated(t *testing.T) {
	guard := guards.Authenticated{}

	t.Run("waits while the session is loading", func(t *testing.T) {
		decision := guard.Decide(loading, guards.CustomerDashboardRoute)
		require.Equal(t, guards.KindWait, decision.Kind)
	})

	t.Run("redirects anonymous users to login with the destination", func(t *testing.T) {
		decision := guard.Decide(anonymous, "/customer/purchases")
		require.Equal(t, guards.KindRedirect, decision.Kind)
		require.Equal(t, "/login?next=%2Fcustomer%2Fpurchases", decision.Target)
	})

	t.Run("plain login redirect when the destination is unknown", func(t *testing.T) {
		decision := guard.Decide(anonymous, "")
		require.Equal(t, guards.KindRedirect, decision.Kind)
		require.Equal(t, guards.LoginRoute, decision.Target)
	})

	t.Run("renders for any authenticated user", func(t *testing.T) {
		require.Equal(t, guards.KindRender, guard.Decide(customer, guards.CustomerDashboardRoute).Kind)
		require.Equal(t, guards.KindRender, guard.Decide(administrator, guards.CustomerDashboardRoute).Kind)
	})
}

func TestAuthenticated_RequireAdmin(t *testing.T) {
	guard := guards.Authenticated{RequireAdmin: true}

	t.Run("sends non-admins to their own dashboard", func(t *testing.T) {
		decision := guard.Decide(customer, guards.AdminDashboardRoute)
		require.Equal(t, guards.KindRedirect, decision.Kind)
		require.Equal(t, guards.CustomerDashboardRoute, decision.Target)
	})

	t.Run("renders for admins", func(t *testing.T) {
		decision := guard.Decide(administrator, guards.AdminDashboardRoute)
		require.Equal(t, guards.KindRender, decision.Kind)
	})

	t.Run("anonymous users go to login, not the customer dashboard", func(t *testing.T) {
		decision := guard.Decide(anonymous, guards.AdminDashboardRoute)
		require.Equal(t, guards.KindRedirect, decision.Kind)
		require.Equal(t, "/login?next=%2Fadmin%2Fdashboard", decision.Target)
	})
}

func TestPublic(t *testing.T) {
	guard := guards.Public{}

	t.Run("waits while the session is loading", func(t *testing.T) {
		require.Equal(t, guards.KindWait, guard.Decide(loading, guards.LoginRoute).Kind)
	})

	t.Run("renders for anonymous users", func(t *testing.T) {
		require.Equal(t, guards.KindRender, guard.Decide(anonymous, guards.LoginRoute).Kind)
	})

	t.Run("sends authenticated users to their landing page", func(t *testing.T) {
		decision := guard.Decide(customer, guards.LoginRoute)
		require.Equal(t, guards.KindRedirect, decision.Kind)
		require.Equal(t, guards.CustomerDashboardRoute, decision.Target)

		decision = guard.Decide(administrator, guards.LoginRoute)
		require.Equal(t, guards.KindRedirect, decision.Kind)
		require.Equal(t, guards.AdminDashboardRoute, decision.Target)
	})
}

func TestPendingVerification(t *testing.T) {
	guard := guards.PendingVerification{}

	t.Run("renders while a registration awaits its code", func(t *testing.T) {
		pending := anonymous
		pending.pendingEmail = "jane@example.com"
		require.Equal(t, guards.KindRender, guard.Decide(pending, "/verify-otp").Kind)
	})

	t.Run("redirects to registration when nothing is pending", func(t *testing.T) {
		decision := guard.Decide(anonymous, "/verify-otp")
		require.Equal(t, guards.KindRedirect, decision.Kind)
		require.Equal(t, guards.RegisterRoute, decision.Target)
	})

	t.Run("waits while the session is loading", func(t *testing.T) {
		require.Equal(t, guards.KindWait, guard.Decide(loading, "/verify-otp").Kind)
	})
}

func TestDefaultLanding(t *testing.T) {
	require.Equal(t, guards.CustomerDashboardRoute, guards.DefaultLanding(customer))
	require.Equal(t, guards.AdminDashboardRoute, guards.DefaultLanding(administrator))
}
