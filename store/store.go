// Package store is the single access point for the client's persisted
// session state. No other package reads or writes these keys directly.
package store

import "encoding/json"

// Persisted key names. They are part of the compatibility surface with other
// clients of the same backend and must not change.
const (
	KeyAccessToken         = "access_token"
	KeyRefreshToken        = "refresh_token"
	KeyUser                = "user"
	KeyPendingVerification = "pending_verification_email"
)

// KV is the raw durable key-value surface backing the store. Implementations
// must tolerate unknown keys and missing values; a missing key reads as "".
type KV interface {
	Get(key string) string
	Set(key, value string) error
	Delete(key string) error
}

// Record is a persisted session snapshot: the credential pair plus the
// serialized user profile.
type Record struct {
	AccessToken  string
	RefreshToken string
	UserJSON     []byte
}

// Store layers the session record contract over a raw KV. It never surfaces
// corruption to callers: any inconsistent or unparseable state degrades to
// "no session" and is purged.
type Store struct {
	kv KV
}

func New(kv KV) *Store {
	return &Store{kv: kv}
}

// Save persists the full record. No validation is applied.
func (s *Store) Save(rec Record) error {
	if err := s.kv.Set(KeyAccessToken, rec.AccessToken); err != nil {
		return err
	}
	if err := s.kv.Set(KeyRefreshToken, rec.RefreshToken); err != nil {
		return err
	}
	return s.kv.Set(KeyUser, string(rec.UserJSON))
}

// Load reads the persisted record. It returns nil when there is no usable
// session: user record absent, access token absent, or user record
// unparseable. Partial or corrupted state is purged before returning.
func (s *Store) Load() *Record {
	access := s.kv.Get(KeyAccessToken)
	refresh := s.kv.Get(KeyRefreshToken)
	userJSON := s.kv.Get(KeyUser)

	if userJSON == "" || access == "" {
		if userJSON != "" || access != "" || refresh != "" {
			_ = s.Clear()
		}
		return nil
	}
	if !json.Valid([]byte(userJSON)) {
		_ = s.Clear()
		return nil
	}

	return &Record{
		AccessToken:  access,
		RefreshToken: refresh,
		UserJSON:     []byte(userJSON),
	}
}

// Clear removes the credential pair and user record. Idempotent. The pending
// verification marker is independent and survives a session purge.
func (s *Store) Clear() error {
	if err := s.kv.Delete(KeyAccessToken); err != nil {
		return err
	}
	if err := s.kv.Delete(KeyRefreshToken); err != nil {
		return err
	}
	return s.kv.Delete(KeyUser)
}

// AccessToken reads the current access token, "" when absent.
func (s *Store) AccessToken() string {
	return s.kv.Get(KeyAccessToken)
}

// SetAccessToken replaces the access token only, leaving the refresh token
// in place. Used by the refresh protocol.
func (s *Store) SetAccessToken(token string) error {
	return s.kv.Set(KeyAccessToken, token)
}

// RefreshToken reads the current refresh token, "" when absent.
func (s *Store) RefreshToken() string {
	return s.kv.Get(KeyRefreshToken)
}

// SetRefreshToken replaces the refresh token. Used when the server rotates
// refresh tokens on refresh.
func (s *Store) SetRefreshToken(token string) error {
	return s.kv.Set(KeyRefreshToken, token)
}

// SetUserJSON replaces the persisted user record, tokens unaffected.
func (s *Store) SetUserJSON(userJSON []byte) error {
	return s.kv.Set(KeyUser, string(userJSON))
}

// SetPendingVerification records an in-progress registration awaiting OTP
// confirmation.
func (s *Store) SetPendingVerification(email string) error {
	return s.kv.Set(KeyPendingVerification, email)
}

// PendingVerification returns the email awaiting OTP confirmation, "" when
// none is pending.
func (s *Store) PendingVerification() string {
	return s.kv.Get(KeyPendingVerification)
}

// ClearPendingVerification consumes the marker.
func (s *Store) ClearPendingVerification() error {
	return s.kv.Delete(KeyPendingVerification)
}
