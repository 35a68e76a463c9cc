// Package client talks to the SmartID API the way the web front end does:
// bearer tokens on every request, one refresh-and-retry on 401, and a
// concurrent bulk fetch of the data the reports need.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"smartid-server-go/auth"
	"smartid-server-go/logger"
	"smartid-server-go/models"
)

// ErrSessionExpired is returned when the refresh token is rejected. The
// client has forgotten its tokens by then and needs a new Login.
var ErrSessionExpired = errors.New("session expired, please log in again")

// APIError is a non-2xx response.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return http.StatusText(e.StatusCode) + ": " + e.Message
}

type Client struct {
	baseURL string
	http    *http.Client
	log     logger.Logger

	mu      sync.Mutex // guards the tokens
	access  string
	refresh string

	refreshMu sync.Mutex // serializes refreshes
}

type Option func(*Client)

// WithHTTPClient replaces the default client, which times out after 30s.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New returns a client for the API mounted at baseURL, e.g.
// http://localhost:8080/api.
func New(baseURL string, log logger.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
		log:     log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Tokens returns the current access and refresh tokens.
func (c *Client) Tokens() (access, refresh string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.access, c.refresh
}

// SetTokens installs tokens obtained elsewhere.
func (c *Client) SetTokens(access, refresh string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.access, c.refresh = access, refresh
}

func (c *Client) clearTokens() {
	c.SetTokens("", "")
}

type loginResponse struct {
	User   models.User    `json:"user"`
	Tokens auth.TokenPair `json:"tokens"`
}

// Login authenticates and keeps the returned tokens. role may be empty.
func (c *Client) Login(ctx context.Context, email, password string, role models.Role) (*models.User, error) {
	body := map[string]string{"email": email, "password": password}
	if role != models.RoleNone {
		body["role"] = string(role)
	}
	var res loginResponse
	if err := c.send(ctx, http.MethodPost, "/auth/users/login/", "", body, &res); err != nil {
		return nil, errors.Wrap(err, "login")
	}
	c.SetTokens(res.Tokens.Access, res.Tokens.Refresh)
	return &res.User, nil
}

// Refresh exchanges the refresh token for a new access token. On failure
// the tokens are cleared and ErrSessionExpired is returned.
func (c *Client) Refresh(ctx context.Context) error {
	_, refresh := c.Tokens()
	if refresh == "" {
		return ErrSessionExpired
	}
	var res struct {
		Access string `json:"access"`
	}
	if err := c.send(ctx, http.MethodPost, "/auth/token/refresh/", "", map[string]string{"refresh": refresh}, &res); err != nil {
		c.log.Warn("token refresh failed", err)
		c.clearTokens()
		return ErrSessionExpired
	}
	c.mu.Lock()
	c.access = res.Access
	c.mu.Unlock()
	return nil
}

// refreshAfter refreshes unless another request already replaced the
// rejected token.
func (c *Client) refreshAfter(ctx context.Context, rejected string) error {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()
	if access, _ := c.Tokens(); access != rejected && access != "" {
		return nil
	}
	return c.Refresh(ctx)
}

// do sends an authenticated request and retries it once after a refresh
// when the server answers 401.
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	access, _ := c.Tokens()
	err := c.send(ctx, method, path, access, body, out)
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusUnauthorized {
		return err
	}
	if err := c.refreshAfter(ctx, access); err != nil {
		return err
	}
	access, _ = c.Tokens()
	return c.send(ctx, method, path, access, body, out)
}

func (c *Client) send(ctx context.Context, method, path, token string, body, out interface{}) error {
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "encoding request")
		}
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return errors.Wrap(err, "building request")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s %s", method, path)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&e)
		return &APIError{StatusCode: resp.StatusCode, Message: e.Error}
	}
	if out == nil {
		return nil
	}
	return errors.Wrapf(json.NewDecoder(resp.Body).Decode(out), "decoding %s", path)
}

type page[T any] struct {
	Count   int `json:"count"`
	Results []T `json:"results"`
}

func getList[T any](ctx context.Context, c *Client, path string) ([]T, error) {
	var p page[T]
	if err := c.do(ctx, http.MethodGet, path, nil, &p); err != nil {
		return nil, err
	}
	if p.Results == nil {
		p.Results = []T{}
	}
	return p.Results, nil
}

func (c *Client) GetCourses(ctx context.Context) ([]models.Course, error) {
	return getList[models.Course](ctx, c, "/courses/")
}

// Users is the user list split by role.
type Users struct {
	Students   []models.User
	Professors []models.User
}

// GetUsers fetches every account and keeps students and professors.
func (c *Client) GetUsers(ctx context.Context) (Users, error) {
	all, err := getList[models.User](ctx, c, "/auth/users/")
	if err != nil {
		return Users{}, err
	}
	users := Users{Students: []models.User{}, Professors: []models.User{}}
	for _, u := range all {
		switch u.Role {
		case models.RoleStudent:
			users.Students = append(users.Students, u)
		case models.RoleProfessor:
			users.Professors = append(users.Professors, u)
		}
	}
	return users, nil
}

func (c *Client) GetSessions(ctx context.Context) ([]models.Session, error) {
	return getList[models.Session](ctx, c, "/attendance/sessions/")
}

func (c *Client) GetAttendanceRecords(ctx context.Context) ([]models.AttendanceRecord, error) {
	return getList[models.AttendanceRecord](ctx, c, "/attendance/records/")
}
