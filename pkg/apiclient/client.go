// Package apiclient is a Go client for the CivicPulse REST API.
//
// A Client owns its token pair. When a call is rejected with TOKEN_EXPIRED the
// client refreshes once, shared by every caller that hit the same expired
// token, and replays the call with the new access token.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/angelmondragon/civicpulse-backend/pkg/types"
	"golang.org/x/sync/singleflight"
)

const (
	defaultTimeout    = 15 * time.Second
	reasonTokenExpiry = "TOKEN_EXPIRED"
	refreshPath       = "/auth/refresh"
)

// ErrNoRefreshToken is returned when a refresh is needed but none is held.
var ErrNoRefreshToken = errors.New("apiclient: no refresh token")

// Tokens is the credential pair held by a Client.
type Tokens struct {
	Access  string
	Refresh string
}

// APIError is a non-2xx response decoded from the error envelope.
type APIError struct {
	Status  int
	Code    string
	Message string
	Fields  []types.FieldError
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("apiclient: %d %s", e.Status, e.Message)
	}
	return fmt.Sprintf("apiclient: %d %s: %s", e.Status, e.Code, e.Message)
}

// IsCode reports whether err is an APIError with the given wire code.
func IsCode(err error, code string) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == code
}

type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTokens seeds the client with an existing token pair.
func WithTokens(t Tokens) Option {
	return func(c *Client) { c.tokens = t }
}

// OnTokensChanged is called after every successful login or refresh so the
// caller can persist the pair.
func OnTokensChanged(fn func(Tokens)) Option {
	return func(c *Client) { c.onTokens = fn }
}

type Client struct {
	base     *url.URL
	http     *http.Client
	onTokens func(Tokens)

	mu     sync.RWMutex
	tokens Tokens

	refreshes singleflight.Group
}

// New builds a client rooted at baseURL, e.g. https://host/api.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("apiclient: base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("apiclient: base url %q must be absolute", baseURL)
	}
	c := &Client{base: u, http: &http.Client{Timeout: defaultTimeout}}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) Tokens() Tokens {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tokens
}

func (c *Client) SetTokens(t Tokens) {
	c.mu.Lock()
	c.tokens = t
	c.mu.Unlock()
	if c.onTokens != nil {
		c.onTokens(t)
	}
}

// Do sends an authenticated JSON request and decodes the 2xx body into out.
// A TOKEN_EXPIRED rejection triggers one shared refresh and a single replay.
func (c *Client) Do(ctx context.Context, method, path string, in, out any) error {
	payload, err := encode(in)
	if err != nil {
		return err
	}

	access := c.Tokens().Access
	err = c.send(ctx, method, path, access, payload, out)
	if !IsCode(err, reasonTokenExpiry) {
		return err
	}

	fresh, rerr := c.refresh(ctx, access)
	if rerr != nil {
		return rerr
	}
	return c.send(ctx, method, path, fresh, payload, out)
}

// refresh exchanges the refresh token for a new access token. Callers that
// observed the same stale token share one in-flight request; a caller whose
// stale token was already replaced gets the current token without a call.
func (c *Client) refresh(ctx context.Context, stale string) (string, error) {
	if current := c.Tokens(); current.Access != "" && current.Access != stale {
		return current.Access, nil
	}

	v, err, _ := c.refreshes.Do(stale, func() (any, error) {
		current := c.Tokens()
		if current.Access != stale && current.Access != "" {
			return current.Access, nil
		}
		if current.Refresh == "" {
			return "", ErrNoRefreshToken
		}

		var resp struct {
			Token string `json:"token"`
		}
		body, err := encode(map[string]string{"refreshToken": current.Refresh})
		if err != nil {
			return "", err
		}
		if err := c.send(context.WithoutCancel(ctx), http.MethodPost, refreshPath, "", body, &resp); err != nil {
			return "", err
		}
		if resp.Token == "" {
			return "", errors.New("apiclient: refresh returned no token")
		}
		c.SetTokens(Tokens{Access: resp.Token, Refresh: current.Refresh})
		return resp.Token, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (c *Client) send(ctx context.Context, method, path, access string, payload []byte, out any) error {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path), body)
	if err != nil {
		return fmt.Errorf("apiclient: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if access != "" {
		req.Header.Set("Authorization", "Bearer "+access)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("apiclient: %s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("apiclient: decode %s %s: %w", method, path, err)
	}
	return nil
}

func (c *Client) endpoint(path string) string {
	u := *c.base
	rel, err := url.Parse(path)
	if err != nil {
		u.Path += "/" + strings.TrimLeft(path, "/")
		return u.String()
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/" + strings.TrimLeft(rel.Path, "/")
	u.RawQuery = rel.RawQuery
	return u.String()
}

func encode(in any) ([]byte, error) {
	if in == nil {
		return nil, nil
	}
	b, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("apiclient: encode body: %w", err)
	}
	return b, nil
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}
	var env types.ErrorEnvelope
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err := json.Unmarshal(raw, &env); err == nil {
		apiErr.Code = env.Error
		apiErr.Message = env.Message
		apiErr.Fields = env.Errors
	} else {
		apiErr.Message = strings.TrimSpace(string(raw))
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	return apiErr
}
