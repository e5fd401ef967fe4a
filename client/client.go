// Package client implements the portal API client and the session-aware
// navigation layer built on top of it.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/session"
	"github.com/darasahq/darasa/core/user"
)

type Client struct {
	baseURL string
	httpc   *http.Client
}

var _ session.WhoAmI = (*Client)(nil)

func New(conf core.ClientConfig) *Client {
	timeout := conf.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(conf.BaseURL, "/"),
		httpc:   &http.Client{Timeout: timeout},
	}
}

type (
	loginRequest struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}

	authResponse struct {
		Token string    `json:"token"`
		User  user.User `json:"user"`
	}

	apiError struct {
		Error string `json:"error"`
	}
)

// Login authenticates against the portal; on success it returns the account
// and its bearer token.
func (c *Client) Login(ctx context.Context, username, password string) (user.User, string, error) {
	var resp authResponse
	err := c.do(ctx, http.MethodPost, "/api/users/login", "", loginRequest{username, password}, &resp)
	if err != nil {
		return user.User{}, "", err
	}
	return resp.User, resp.Token, nil
}

// Register creates a self-service account; like Login it returns the new
// account and a token, since registration auto-authenticates.
func (c *Client) Register(ctx context.Context, ru user.RegisterUser) (user.User, string, error) {
	var resp authResponse
	err := c.do(ctx, http.MethodPost, "/api/users/register", "", ru, &resp)
	if err != nil {
		return user.User{}, "", err
	}
	return resp.User, resp.Token, nil
}

// Me confirms the token against the portal's identity endpoint. A 401 maps to
// session.ErrCredentialRejected; any other failure is reported as-is.
func (c *Client) Me(ctx context.Context, token string) (user.User, error) {
	var usr user.User
	if err := c.do(ctx, http.MethodGet, "/api/users/me", token, nil, &usr); err != nil {
		return user.User{}, err
	}
	return usr, nil
}

func (c *Client) do(ctx context.Context, method, path, token string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return errors.Wrap(err, "encoding request body")
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return errors.Wrap(err, "building request")
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return errors.Wrap(err, "calling portal API")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusUnauthorized {
		return session.ErrCredentialRejected
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr apiError
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error != "" {
			return errors.Errorf("portal API: %s (status %d)", apiErr.Error, resp.StatusCode)
		}
		return errors.Errorf("portal API: unexpected status %d", resp.StatusCode)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return errors.Wrap(err, "decoding response body")
		}
	}
	return nil
}
