package session

import (
	"github.com/pkg/errors"
	"golang.org/x/oauth2"
)

// TokenSource exposes the session's bearer credentials as an
// oauth2.TokenSource so the session can feed oauth2-aware libraries. The
// token is re-read from the store on every call; refresh stays the
// transport's job.
func (m *Manager) TokenSource() oauth2.TokenSource {
	return &storeTokenSource{store: m.store}
}

type storeTokenSource struct {
	store SessionStore
}

func (s *storeTokenSource) Token() (*oauth2.Token, error) {
	access := s.store.AccessToken()
	if access == "" {
		return nil, errors.New("no access token available")
	}
	return &oauth2.Token{
		AccessToken: access,
		TokenType:   "Bearer",
	}, nil
}
