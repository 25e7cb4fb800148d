// Package transport is the single chokepoint for outbound MotoHub API calls.
// It stamps bearer credentials on every request and implements the
// refresh-and-retry protocol on authorization failure.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/motohub/go-motohub-client/internal/apierrors"
	"github.com/motohub/go-motohub-client/internal/metrics"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// TokenStore is the slice of the session store the transport depends on.
type TokenStore interface {
	AccessToken() string
	RefreshToken() string
	SetAccessToken(token string) error
	SetRefreshToken(token string) error
	Clear() error
}

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

// Client wraps an http.Client with bearer authentication and the single
// silent refresh-and-replay cycle for 401 responses. All other failures pass
// through to the caller untouched.
type Client struct {
	baseURL    string
	httpClient *http.Client
	store      TokenStore
	log        zerolog.Logger
	collector  metrics.Collector
	refresher  *refresher
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithLogger sets the structured logger for request and refresh events.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Client) {
		c.log = log
	}
}

// WithMetrics wires a metrics collector into the request path.
func WithMetrics(collector metrics.Collector) Option {
	return func(c *Client) {
		c.collector = collector
	}
}

// WithAuthExpiredHandler sets the callback invoked when a refresh attempt
// fails and the session has been purged. Consumers navigate to the login
// entry point here.
func WithAuthExpiredHandler(handler func()) Option {
	return func(c *Client) {
		c.refresher.onAuthExpired = handler
	}
}

// New creates a Client rooted at baseURL (e.g. "http://localhost:8000/api").
func New(baseURL string, tokenStore TokenStore, options ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		store:      tokenStore,
		log:        zerolog.Nop(),
		collector:  metrics.Noop{},
	}
	c.refresher = &refresher{client: c}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// Get issues a GET request, decoding the JSON response into out.
func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) error {
	return c.do(ctx, request{method: http.MethodGet, path: path, query: query}, out)
}

// Post issues a JSON POST request.
func (c *Client) Post(ctx context.Context, path string, body any, out any) error {
	req, err := jsonRequest(http.MethodPost, path, body)
	if err != nil {
		return err
	}
	return c.do(ctx, req, out)
}

// Patch issues a JSON PATCH request.
func (c *Client) Patch(ctx context.Context, path string, body any, out any) error {
	req, err := jsonRequest(http.MethodPatch, path, body)
	if err != nil {
		return err
	}
	return c.do(ctx, req, out)
}

// Delete issues a DELETE request.
func (c *Client) Delete(ctx context.Context, path string) error {
	return c.do(ctx, request{method: http.MethodDelete, path: path}, nil)
}

// PostMultipart issues a multipart/form-data POST, used for file-bearing
// submissions such as vehicle image uploads.
func (c *Client) PostMultipart(ctx context.Context, path string, form *Form, out any) error {
	req, err := multipartRequest(http.MethodPost, path, form)
	if err != nil {
		return err
	}
	return c.do(ctx, req, out)
}

// PatchMultipart issues a multipart/form-data PATCH.
func (c *Client) PatchMultipart(ctx context.Context, path string, form *Form, out any) error {
	req, err := multipartRequest(http.MethodPatch, path, form)
	if err != nil {
		return err
	}
	return c.do(ctx, req, out)
}

// request carries one outbound call. Retry state is an explicit value here,
// never a marker mutated onto a shared request object.
type request struct {
	method      string
	path        string
	query       url.Values
	contentType string
	body        []byte
	attempt     int
}

func jsonRequest(method, path string, body any) (request, error) {
	req := request{method: method, path: path}
	if body == nil {
		return req, nil
	}
	encoded, err := json.Marshal(body)
	if err != nil {
		return request{}, errors.Wrapf(err, "[Client] encoding %s %s body", method, path)
	}
	req.body = encoded
	req.contentType = "application/json"
	return req, nil
}

func multipartRequest(method, path string, form *Form) (request, error) {
	contentType, body, err := form.encode()
	if err != nil {
		return request{}, errors.Wrapf(err, "[Client] encoding %s %s form", method, path)
	}
	return request{method: method, path: path, contentType: contentType, body: body}, nil
}

// do sends the request and runs the refresh protocol on a 401. A request is
// replayed at most once; the replay is guaranteed to carry the token the
// refresh returned.
func (c *Client) do(ctx context.Context, req request, out any) error {
	status, body, err := c.send(ctx, req, c.store.AccessToken())
	if err != nil {
		return err
	}

	if status == http.StatusUnauthorized && req.attempt == 0 {
		if c.store.RefreshToken() == "" {
			// Nothing to refresh with: either an unauthenticated call the
			// server rejected (e.g. bad login credentials) or stray partial
			// state. Purge and surface the server's own error.
			_ = c.store.Clear()
			return apierrors.New(status, body)
		}

		access, refreshErr := c.refresher.run(ctx)
		if refreshErr != nil {
			return errors.Wrapf(refreshErr, "[Client.do] refresh after 401 on %s %s", req.method, req.path)
		}

		req.attempt++
		status, body, err = c.send(ctx, req, access)
		if err != nil {
			return err
		}
	}

	if status < http.StatusOK || status >= http.StatusMultipleChoices {
		return apierrors.New(status, body)
	}
	if out != nil && len(body) > 0 {
		if err := json.Unmarshal(body, out); err != nil {
			return errors.Wrapf(err, "[Client.do] decoding %s %s response", req.method, req.path)
		}
	}
	return nil
}

// send performs one HTTP round trip. accessToken may be "" for
// unauthenticated calls, in which case no Authorization header is set.
func (c *Client) send(ctx context.Context, req request, accessToken string) (int, []byte, error) {
	target := c.baseURL + req.path
	if len(req.query) > 0 {
		target += "?" + req.query.Encode()
	}

	var bodyReader io.Reader
	if req.body != nil {
		bodyReader = bytes.NewReader(req.body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.method, target, bodyReader)
	if err != nil {
		return 0, nil, errors.Wrapf(err, "[Client.send] building %s %s", req.method, req.path)
	}

	requestID := uuid.New().String()
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Request-ID", requestID)
	if req.contentType != "" {
		httpReq.Header.Set("Content-Type", req.contentType)
	}
	if accessToken != "" {
		httpReq.Header.Set("Authorization", "Bearer "+accessToken)
	}

	started := NowTimeFunc()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return 0, nil, errors.Wrapf(err, "[Client.send] %s %s", req.method, req.path)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, errors.Wrapf(err, "[Client.send] reading %s %s response", req.method, req.path)
	}

	c.collector.RecordRequest(req.method, resp.StatusCode)
	c.collector.RecordRequestLatency(NowTimeFunc().Sub(started))
	c.log.Debug().
		Str("request_id", requestID).
		Str("method", req.method).
		Str("path", req.path).
		Int("status", resp.StatusCode).
		Int("attempt", req.attempt).
		Msg("api request")

	return resp.StatusCode, body, nil
}

// Form accumulates fields and file parts for a multipart submission.
type Form struct {
	fields []formField
	files  []formFile
}

type formField struct {
	name  string
	value string
}

type formFile struct {
	field    string
	filename string
	content  []byte
}

func NewForm() *Form {
	return &Form{}
}

func (f *Form) AddField(name, value string) {
	f.fields = append(f.fields, formField{name: name, value: value})
}

func (f *Form) AddFile(field, filename string, content []byte) {
	f.files = append(f.files, formFile{field: field, filename: filename, content: content})
}

func (f *Form) encode() (string, []byte, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for _, field := range f.fields {
		if err := writer.WriteField(field.name, field.value); err != nil {
			return "", nil, errors.Wrapf(err, "writing field %q", field.name)
		}
	}
	for _, file := range f.files {
		part, err := writer.CreateFormFile(file.field, file.filename)
		if err != nil {
			return "", nil, errors.Wrapf(err, "creating file part %q", file.field)
		}
		if _, err := part.Write(file.content); err != nil {
			return "", nil, errors.Wrapf(err, "writing file part %q", file.field)
		}
	}
	if err := writer.Close(); err != nil {
		return "", nil, errors.Wrap(err, "closing multipart writer")
	}
	return writer.FormDataContentType(), buf.Bytes(), nil
}
