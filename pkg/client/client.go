// Package client is a Go client for the auth API. Calls to protected
// endpoints transparently rotate an expired token pair.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/fixora/authapi/application/port/inbound"
	"github.com/fixora/authapi/domain/valueobject"
)

// APIError is a non-2xx answer from the API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

type Client struct {
	baseURL string
	store   TokenStore
	plain   *http.Client
	authed  *http.Client
}

type Option func(*Client)

// WithHTTPClient sets the client used for unauthenticated calls. Its
// Transport is also the base of the refreshing transport.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.plain = hc }
}

func WithTokenStore(store TokenStore) Option {
	return func(c *Client) { c.store = store }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		store:   NewMemoryTokenStore(),
		plain:   &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}

	base := c.plain.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	c.authed = &http.Client{
		Timeout: c.plain.Timeout,
		Transport: &refreshingTransport{
			base:    base,
			store:   c.store,
			refresh: c.refresh,
		},
	}
	return c
}

func (c *Client) Tokens() TokenStore {
	return c.store
}

func (c *Client) Register(ctx context.Context, req inbound.RegisterRequest) error {
	return c.do(ctx, c.plain, http.MethodPost, "/api/user/register", req, nil)
}

// Authenticate logs in and stores the returned pair.
func (c *Client) Authenticate(ctx context.Context, username, password string) (*valueobject.TokenPair, error) {
	var pair valueobject.TokenPair
	req := inbound.AuthenticateRequest{Username: username, Password: password}
	if err := c.do(ctx, c.plain, http.MethodPost, "/api/user/authenticate", req, &pair); err != nil {
		return nil, err
	}
	c.store.Set(pair)
	return &pair, nil
}

// Refresh rotates the stored pair explicitly.
func (c *Client) Refresh(ctx context.Context) (*valueobject.TokenPair, error) {
	current, ok := c.store.Get()
	if !ok {
		return nil, ErrNotAuthenticated
	}
	fresh, err := c.refresh(ctx, current)
	if err != nil {
		return nil, err
	}
	c.store.Set(fresh)
	return &fresh, nil
}

func (c *Client) refresh(ctx context.Context, pair valueobject.TokenPair) (valueobject.TokenPair, error) {
	var fresh valueobject.TokenPair
	req := inbound.RefreshRequest{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken}
	if err := c.do(ctx, c.plain, http.MethodPost, "/api/user/refresh", req, &fresh); err != nil {
		return valueobject.TokenPair{}, err
	}
	return fresh, nil
}

func (c *Client) ListUsers(ctx context.Context) ([]inbound.UserListItem, error) {
	var users []inbound.UserListItem
	if err := c.do(ctx, c.authed, http.MethodGet, "/api/user/", nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (c *Client) SendResetEmail(ctx context.Context, email string) error {
	return c.do(ctx, c.plain, http.MethodPost, "/api/user/send-reset-email/"+url.PathEscape(email), nil, nil)
}

func (c *Client) ResetPassword(ctx context.Context, req inbound.ResetPasswordRequest) error {
	return c.do(ctx, c.plain, http.MethodPost, "/api/user/reset-password", req, nil)
}

// Logout forgets the stored pair.
func (c *Client) Logout() {
	c.store.Clear()
}

func (c *Client) do(ctx context.Context, hc *http.Client, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("client: encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("client: build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var msg struct {
			Message string `json:"message"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&msg); err == nil {
			apiErr.Message = msg.Message
		}
		return apiErr
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("client: decode response: %w", err)
	}
	return nil
}
