package session

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/motohub/go-motohub-client/store"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Auth endpoint paths, relative to the API base URL.
const (
	RegisterPath  = "/auth/register/"
	LoginPath     = "/auth/login/"
	LogoutPath    = "/auth/logout/"
	VerifyOTPPath = "/auth/verify-otp/"
	ResendOTPPath = "/auth/otp/resend/"
	ProfilePath   = "/auth/me/"
)

const defaultResendCooldown = 30 * time.Second

// API is the transport surface the manager calls through.
type API interface {
	Get(ctx context.Context, path string, query url.Values, out any) error
	Post(ctx context.Context, path string, body any, out any) error
	Patch(ctx context.Context, path string, body any, out any) error
}

// SessionStore is the persistence delegate for the session. Only this
// manager and the transport touch persisted keys.
type SessionStore interface {
	Save(rec store.Record) error
	Load() *store.Record
	Clear() error
	AccessToken() string
	RefreshToken() string
	SetUserJSON(userJSON []byte) error
	SetPendingVerification(email string) error
	PendingVerification() string
	ClearPendingVerification() error
}

// Manager is the single authority on the current session. It starts in the
// loading state; Rehydrate resolves it exactly once from the store.
type Manager struct {
	api   API
	store SessionStore
	log   zerolog.Logger

	resendLimiter *rate.Limiter

	lock        sync.RWMutex
	current     *User
	state       State
	subscribers []func()

	rehydrateOnce sync.Once
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithLogger sets the structured logger.
func WithLogger(log zerolog.Logger) ManagerOption {
	return func(m *Manager) {
		m.log = log
	}
}

// WithResendCooldown overrides the minimum interval between OTP resends.
func WithResendCooldown(cooldown time.Duration) ManagerOption {
	return func(m *Manager) {
		m.resendLimiter = rate.NewLimiter(rate.Every(cooldown), 1)
	}
}

// NewManager creates a Manager in the loading state.
func NewManager(api API, sessionStore SessionStore, options ...ManagerOption) (*Manager, error) {
	if api == nil {
		return nil, errors.New("[NewManager] api is required")
	}
	if sessionStore == nil {
		return nil, errors.New("[NewManager] session store is required")
	}

	m := &Manager{
		api:           api,
		store:         sessionStore,
		log:           zerolog.Nop(),
		state:         StateLoading,
		resendLimiter: rate.NewLimiter(rate.Every(defaultResendCooldown), 1),
	}
	for _, opt := range options {
		opt(m)
	}
	return m, nil
}

// Rehydrate resolves the loading state from persisted storage. Safe to call
// more than once; only the first call reads the store.
func (m *Manager) Rehydrate() {
	m.rehydrateOnce.Do(func() {
		rec := m.store.Load()
		if rec == nil {
			m.setSession(nil, StateAnonymous)
			return
		}

		var user User
		if err := json.Unmarshal(rec.UserJSON, &user); err != nil {
			// The store validated JSON syntax but the shape is wrong.
			// Same treatment as any corrupted state: purge, no session.
			m.log.Warn().Err(err).Msg("purging undecodable persisted user record")
			_ = m.store.Clear()
			m.setSession(nil, StateAnonymous)
			return
		}

		m.log.Debug().Str("email", user.Email).Msg("session rehydrated")
		m.setSession(&user, StateAuthenticated)
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	User   User `json:"user"`
	Tokens struct {
		Access  string `json:"access"`
		Refresh string `json:"refresh"`
	} `json:"tokens"`
}

// Login authenticates against the backend and establishes a session on
// success. Failures come back as a Result carrying the server's message.
func (m *Manager) Login(ctx context.Context, email, password string) Result {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return failureMessage("Email and password are required")
	}

	var resp loginResponse
	if err := m.api.Post(ctx, LoginPath, loginRequest{Email: email, Password: password}, &resp); err != nil {
		m.log.Debug().Err(err).Str("email", email).Msg("login failed")
		return failure(err)
	}

	userJSON, err := json.Marshal(resp.User)
	if err != nil {
		return failure(errors.Wrap(err, "[Manager.Login] encoding user record"))
	}
	if err := m.store.Save(store.Record{
		AccessToken:  resp.Tokens.Access,
		RefreshToken: resp.Tokens.Refresh,
		UserJSON:     userJSON,
	}); err != nil {
		return failure(errors.Wrap(err, "[Manager.Login] persisting session"))
	}

	user := resp.User
	m.setSession(&user, StateAuthenticated)
	m.log.Info().Str("email", user.Email).Str("role", string(user.Role)).Msg("logged in")
	return success(&user, "Login successful")
}

type registerRequest struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Mobile          string `json:"mobile"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm"`
}

// Register submits a new account. It establishes no session: the account
// must be confirmed with a one-time code, then logged into explicitly. On
// success the pending verification marker is set for the OTP screen.
func (m *Manager) Register(ctx context.Context, reg Registration) Result {
	if err := ValidateRegistration(reg); err != nil {
		return failureMessage(err.Error())
	}

	req := registerRequest{
		Name:            strings.TrimSpace(reg.Name),
		Email:           strings.TrimSpace(reg.Email),
		Mobile:          strings.TrimSpace(reg.Mobile),
		Password:        reg.Password,
		PasswordConfirm: reg.PasswordConfirm,
	}
	if err := m.api.Post(ctx, RegisterPath, req, nil); err != nil {
		m.log.Debug().Err(err).Str("email", req.Email).Msg("registration failed")
		return failure(err)
	}

	if err := m.store.SetPendingVerification(req.Email); err != nil {
		return failure(errors.Wrap(err, "[Manager.Register] storing pending verification"))
	}
	m.log.Info().Str("email", req.Email).Msg("registered, awaiting verification")
	return success(nil, "Registration successful! Please verify your email with the code we sent.")
}

type verifyOTPRequest struct {
	Email   string `json:"email"`
	OTPCode string `json:"otp_code"`
}

// VerifyOTP confirms a pending registration. It consumes the pending
// verification marker but establishes no session; the user logs in as a
// separate step.
func (m *Manager) VerifyOTP(ctx context.Context, email, code string) Result {
	email = strings.TrimSpace(email)
	code = strings.TrimSpace(code)
	if email == "" || code == "" {
		return failureMessage("Email and verification code are required")
	}

	if err := m.api.Post(ctx, VerifyOTPPath, verifyOTPRequest{Email: email, OTPCode: code}, nil); err != nil {
		m.log.Debug().Err(err).Str("email", email).Msg("otp verification failed")
		return failure(err)
	}

	if err := m.store.ClearPendingVerification(); err != nil {
		return failure(errors.Wrap(err, "[Manager.VerifyOTP] clearing pending verification"))
	}
	m.log.Info().Str("email", email).Msg("account verified")
	return success(nil, "Email verified successfully! You can now log in.")
}

type resendOTPRequest struct {
	Email string `json:"email"`
}

// ResendOTP requests a fresh one-time code, subject to a client-side
// cooldown so repeated taps don't hammer the endpoint.
func (m *Manager) ResendOTP(ctx context.Context, email string) Result {
	email = strings.TrimSpace(email)
	if email == "" {
		return failureMessage("Email is required")
	}
	if !m.resendLimiter.Allow() {
		return failureMessage("Please wait before requesting another code")
	}

	if err := m.api.Post(ctx, ResendOTPPath, resendOTPRequest{Email: email}, nil); err != nil {
		m.log.Debug().Err(err).Str("email", email).Msg("otp resend failed")
		return failure(err)
	}
	return success(nil, "A new code has been sent to your email")
}

type logoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Logout invalidates the refresh token server-side on a best-effort basis,
// then unconditionally purges local state. Idempotent: calling it while
// already unauthenticated is a no-op.
func (m *Manager) Logout(ctx context.Context) Result {
	if refreshToken := m.store.RefreshToken(); refreshToken != "" {
		if err := m.api.Post(ctx, LogoutPath, logoutRequest{RefreshToken: refreshToken}, nil); err != nil {
			m.log.Warn().Err(err).Msg("server-side logout failed, clearing local session anyway")
		}
	}

	if err := m.store.Clear(); err != nil {
		m.log.Warn().Err(err).Msg("failed to clear session store")
	}
	m.setSession(nil, StateAnonymous)
	m.log.Info().Msg("logged out")
	return success(nil, "Logged out successfully")
}

// ProfileUpdate is a partial field set for PATCHing the profile. Email and
// role are immutable; only set fields are sent.
type ProfileUpdate struct {
	Name   *string `json:"name,omitempty"`
	Mobile *string `json:"mobile,omitempty"`
}

// UpdateProfile patches the profile and merges the returned record into the
// in-memory session and the store. On failure the existing session is left
// untouched.
func (m *Manager) UpdateProfile(ctx context.Context, update ProfileUpdate) Result {
	if update.Name == nil && update.Mobile == nil {
		return failureMessage("Nothing to update")
	}

	var updated User
	if err := m.api.Patch(ctx, ProfilePath, update, &updated); err != nil {
		m.log.Debug().Err(err).Msg("profile update failed")
		return failure(err)
	}

	if err := m.adoptUser(updated); err != nil {
		return failure(err)
	}
	m.log.Info().Msg("profile updated")
	return success(&updated, "Profile updated successfully")
}

// RefreshUser re-fetches the profile from the backend and merges it in.
func (m *Manager) RefreshUser(ctx context.Context) Result {
	var user User
	if err := m.api.Get(ctx, ProfilePath, nil, &user); err != nil {
		return failure(err)
	}
	if err := m.adoptUser(user); err != nil {
		return failure(err)
	}
	return success(&user, "")
}

func (m *Manager) adoptUser(user User) error {
	userJSON, err := json.Marshal(user)
	if err != nil {
		return errors.Wrap(err, "[Manager.adoptUser] encoding user record")
	}
	if err := m.store.SetUserJSON(userJSON); err != nil {
		return errors.Wrap(err, "[Manager.adoptUser] persisting user record")
	}
	m.setSession(&user, StateAuthenticated)
	return nil
}

// HandleAuthExpired resets the in-memory session after the transport purged
// the store on a failed refresh. Wire it to the transport's auth-expired
// handler.
func (m *Manager) HandleAuthExpired() {
	m.log.Info().Msg("session expired")
	m.setSession(nil, StateAnonymous)
}

// State reports the manager lifecycle state.
func (m *Manager) State() State {
	m.lock.RLock()
	defer m.lock.RUnlock()
	return m.state
}

// CurrentUser returns a copy of the current user, nil when unauthenticated.
func (m *Manager) CurrentUser() *User {
	m.lock.RLock()
	defer m.lock.RUnlock()
	if m.current == nil {
		return nil
	}
	user := *m.current
	return &user
}

// IsAuthenticated is true only when both the in-memory user and a stored
// access token are present. The store is consulted on every call to catch
// out-of-band purges such as the transport's failed-refresh path.
func (m *Manager) IsAuthenticated() bool {
	m.lock.RLock()
	defer m.lock.RUnlock()
	return m.current != nil && m.store.AccessToken() != ""
}

func (m *Manager) IsAdmin() bool     { return m.roleIs(RoleAdmin) }
func (m *Manager) IsCustomer() bool  { return m.roleIs(RoleCustomer) }
func (m *Manager) IsDeveloper() bool { return m.roleIs(RoleDeveloper) }

// roleIs matches the current role against the closed Role set. Roles the
// client does not know satisfy no predicate.
func (m *Manager) roleIs(want Role) bool {
	m.lock.RLock()
	defer m.lock.RUnlock()
	if m.current == nil {
		return false
	}
	switch role := m.current.Role; role {
	case RoleCustomer, RoleAdmin, RoleDeveloper:
		return role == want
	default:
		return false
	}
}

// PendingVerificationEmail returns the email of an in-progress registration
// awaiting OTP confirmation, "" when none is pending.
func (m *Manager) PendingVerificationEmail() string {
	return m.store.PendingVerification()
}

// Subscribe registers a callback fired on every session change (login,
// logout, rehydration, out-of-band expiry) so guards can re-evaluate.
func (m *Manager) Subscribe(fn func()) {
	m.lock.Lock()
	m.subscribers = append(m.subscribers, fn)
	m.lock.Unlock()
}

func (m *Manager) setSession(user *User, state State) {
	m.lock.Lock()
	m.current = user
	m.state = state
	subscribers := make([]func(), len(m.subscribers))
	copy(subscribers, m.subscribers)
	m.lock.Unlock()

	for _, fn := range subscribers {
		fn()
	}
}
