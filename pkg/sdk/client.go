// Package sdk provides the client-side library for interacting with the
// Provenix Store. It supports both remote connections over HTTP/TLS and
// local embedded mode.
package sdk

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/provenix-dev/provenix-store/internal/apperr"
	"github.com/provenix-dev/provenix-store/pkg/schema"
)

// Client is a remote client for the Provenix Store. It implements the
// ProfileStore interface; Login stores the returned token for subsequent
// authorized calls.
type Client struct {
	baseURL string
	http    *http.Client

	mu    sync.RWMutex
	token string
}

var _ ProfileStore = (*Client)(nil)

// Connect builds a client for the daemon at addr. A bare host:port is
// completed with https:// (or http:// when PROVENIX_DISABLE_TLS is "true"),
// matching the daemon's TLS convention.
func Connect(addr string) (*Client, error) {
	if addr == "" {
		return nil, fmt.Errorf("store address is required")
	}
	if !strings.Contains(addr, "://") {
		scheme := "https"
		if os.Getenv("PROVENIX_DISABLE_TLS") == "true" {
			scheme = "http"
		}
		addr = scheme + "://" + addr
	}

	return &Client{
		baseURL: strings.TrimRight(addr, "/"),
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{
					InsecureSkipVerify: true, // self-signed certs for internal traffic
				},
			},
		},
	}, nil
}

// SetToken installs a bearer token obtained out of band.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

// Token returns the bearer token currently in use.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// Login exchanges credentials for a bearer token and keeps it for later
// calls.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	var resp schema.TokenResponse
	err := c.do(ctx, http.MethodPost, "/token", map[string]string{
		"username": email,
		"password": password,
	}, &resp)
	if err != nil {
		return "", err
	}
	c.SetToken(resp.AccessToken)
	return resp.AccessToken, nil
}

// Create registers a new profile. No token is required.
func (c *Client) Create(ctx context.Context, name, email, password string) (schema.User, error) {
	var user schema.User
	err := c.do(ctx, http.MethodPost, "/users", schema.CreateUserRequest{
		Name: name, Email: email, Password: password,
	}, &user)
	return user, err
}

// Get fetches a live profile.
func (c *Client) Get(ctx context.Context, id int64) (schema.User, error) {
	var user schema.User
	err := c.do(ctx, http.MethodGet, "/users/"+strconv.FormatInt(id, 10), nil, &user)
	return user, err
}

// Update rewrites the profile fields.
func (c *Client) Update(ctx context.Context, id int64, name, email string) (schema.User, error) {
	var user schema.User
	err := c.do(ctx, http.MethodPut, "/users/"+strconv.FormatInt(id, 10), schema.UpdateUserRequest{
		Name: name, Email: email,
	}, &user)
	return user, err
}

// Delete removes the live profile. Its history remains readable.
func (c *Client) Delete(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, "/users/"+strconv.FormatInt(id, 10), nil, nil)
}

// History returns the audit trail, newest version first.
func (c *Client) History(ctx context.Context, id int64) ([]schema.AuditEntry, error) {
	var entries []schema.AuditEntry
	err := c.do(ctx, http.MethodGet, "/audit/users/"+strconv.FormatInt(id, 10), nil, &entries)
	return entries, err
}

// Restore copies the target version's snapshot back into the live record.
func (c *Client) Restore(ctx context.Context, id int64, version int) error {
	path := fmt.Sprintf("/audit/users/%d/restore/%d", id, version)
	return c.do(ctx, http.MethodPost, path, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// decodeError rebuilds the server's tagged error from the response envelope
// so callers can match with errors.Is against the apperr sentinels.
func decodeError(resp *http.Response) error {
	var envelope struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
			Status  int    `json:"status"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil || envelope.Error.Code == "" {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	kind := apperr.KindUnknown
	switch envelope.Error.Code {
	case apperr.CodeNotFound:
		kind = apperr.KindNotFound
	case apperr.CodeConflict:
		kind = apperr.KindConflict
	case apperr.CodeAuthentication:
		kind = apperr.KindAuthentication
	case apperr.CodeValidation:
		kind = apperr.KindValidation
	case apperr.CodeDatabase:
		kind = apperr.KindStorage
	}
	return &apperr.Error{Kind: kind, Code: envelope.Error.Code, Message: envelope.Error.Message}
}
