package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync"

	"github.com/motohub/go-motohub-client/internal/apierrors"
	"github.com/pkg/errors"
)

// RefreshPath is the unauthenticated endpoint that mints a new access token
// from a refresh token.
const RefreshPath = "/auth/token/refresh/"

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

type refreshResponse struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh,omitempty"` // only set when the server rotates refresh tokens
}

// refresher owns the REFRESHING state of the protocol. Concurrent 401 chains
// coalesce onto a single in-flight attempt and share its outcome, so the
// refresh token is presented to the server at most once per cycle.
type refresher struct {
	client        *Client
	onAuthExpired func()

	lock     sync.Mutex
	inflight *refreshAttempt
}

type refreshAttempt struct {
	done   chan struct{}
	access string
	err    error
}

// run returns the access token from the current or a newly started refresh
// attempt. On failure the token store has already been purged and the
// auth-expired handler invoked.
func (r *refresher) run(ctx context.Context) (string, error) {
	r.lock.Lock()
	if attempt := r.inflight; attempt != nil {
		r.lock.Unlock()
		select {
		case <-attempt.done:
			return attempt.access, attempt.err
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	attempt := &refreshAttempt{done: make(chan struct{})}
	r.inflight = attempt
	r.lock.Unlock()

	attempt.access, attempt.err = r.refresh(ctx)
	if attempt.err != nil {
		// Refresh failure is terminal for every chain waiting on this
		// attempt: purge the session and hand control back to login.
		_ = r.client.store.Clear()
		if r.onAuthExpired != nil {
			r.onAuthExpired()
		}
	}
	close(attempt.done)

	r.lock.Lock()
	r.inflight = nil
	r.lock.Unlock()

	return attempt.access, attempt.err
}

// refresh performs the dedicated unauthenticated call to the refresh
// endpoint and persists whatever tokens it returns. The refresh token is
// retained unless the server rotates it.
func (r *refresher) refresh(ctx context.Context) (string, error) {
	c := r.client

	refreshToken := c.store.RefreshToken()
	if refreshToken == "" {
		c.collector.RecordRefreshFailure()
		return "", apierrors.ErrNoRefreshToken
	}

	payload, err := json.Marshal(refreshRequest{Refresh: refreshToken})
	if err != nil {
		c.collector.RecordRefreshFailure()
		return "", errors.Wrap(err, "[refresher.refresh] encoding request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+RefreshPath, bytes.NewReader(payload))
	if err != nil {
		c.collector.RecordRefreshFailure()
		return "", errors.Wrap(err, "[refresher.refresh] building request")
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.collector.RecordRefreshFailure()
		return "", errors.Wrap(err, "[refresher.refresh] refresh call")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.collector.RecordRefreshFailure()
		return "", errors.Wrap(err, "[refresher.refresh] reading response")
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		c.collector.RecordRefreshFailure()
		c.log.Warn().Int("status", resp.StatusCode).Msg("token refresh rejected")
		return "", errors.Wrap(apierrors.New(resp.StatusCode, body), apierrors.ErrRefreshFailed.Error())
	}

	var tokens refreshResponse
	if err := json.Unmarshal(body, &tokens); err != nil {
		c.collector.RecordRefreshFailure()
		return "", errors.Wrap(err, "[refresher.refresh] decoding response")
	}
	if tokens.Access == "" {
		c.collector.RecordRefreshFailure()
		return "", errors.New("[refresher.refresh] refresh response missing access token")
	}

	if err := c.store.SetAccessToken(tokens.Access); err != nil {
		c.collector.RecordRefreshFailure()
		return "", errors.Wrap(err, "[refresher.refresh] storing access token")
	}
	if tokens.Refresh != "" {
		if err := c.store.SetRefreshToken(tokens.Refresh); err != nil {
			c.collector.RecordRefreshFailure()
			return "", errors.Wrap(err, "[refresher.refresh] storing rotated refresh token")
		}
	}

	c.collector.RecordRefreshSuccess()
	c.log.Debug().Msg("access token refreshed")
	return tokens.Access, nil
}
