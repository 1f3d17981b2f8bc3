package userapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dusk-indust/usercrud/internal/user"
)

// Client is the interface for talking to a running users API.
type Client interface {
	List(ctx context.Context) ([]user.User, error)
	Get(ctx context.Context, id int64) (*user.User, error)
	Create(ctx context.Context, in user.CreateInput) (*user.User, error)
	// Update sends fields as the shallow-merge body.
	Update(ctx context.Context, id int64, fields map[string]any) (*user.User, error)
	Delete(ctx context.Context, id int64) error
	// Subscribe opens the change event stream.
	Subscribe(ctx context.Context) (<-chan Event, error)
}

// Compile-time interface check.
var _ Client = (*HTTPClient)(nil)

// HTTPClient implements Client over HTTP/JSON.
type HTTPClient struct {
	baseURL string
	http    *http.Client
}

// ClientOption configures an HTTPClient.
type ClientOption func(*HTTPClient)

// WithTimeout sets the HTTP client timeout. Streams opened by Subscribe are
// subject to it too, so leave it at zero for long-lived subscriptions.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.http.Timeout = d
	}
}

// WithHTTPClient replaces the underlying *http.Client entirely.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *HTTPClient) {
		c.http = hc
	}
}

// NewHTTPClient creates a client for the API rooted at baseURL, for example
// "http://localhost:3000".
func NewHTTPClient(baseURL string, opts ...ClientOption) *HTTPClient {
	c := &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// List fetches every user.
func (c *HTTPClient) List(ctx context.Context) ([]user.User, error) {
	var users []user.User
	if err := c.do(ctx, http.MethodGet, "/users", nil, http.StatusOK, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// Get fetches one user.
func (c *HTTPClient) Get(ctx context.Context, id int64) (*user.User, error) {
	var u user.User
	if err := c.do(ctx, http.MethodGet, userPath(id), nil, http.StatusOK, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Create posts a new user.
func (c *HTTPClient) Create(ctx context.Context, in user.CreateInput) (*user.User, error) {
	var u user.User
	if err := c.do(ctx, http.MethodPost, "/users", in, http.StatusCreated, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Update sends a partial update.
func (c *HTTPClient) Update(ctx context.Context, id int64, fields map[string]any) (*user.User, error) {
	if fields == nil {
		fields = map[string]any{}
	}
	var u user.User
	if err := c.do(ctx, http.MethodPut, userPath(id), fields, http.StatusOK, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Delete removes a user.
func (c *HTTPClient) Delete(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, userPath(id), nil, http.StatusNoContent, nil)
}

// Subscribe opens GET /users/events. The channel closes when ctx is
// cancelled or the server ends the stream.
func (c *HTTPClient) Subscribe(ctx context.Context) (<-chan Event, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/users/events", nil)
	if err != nil {
		return nil, fmt.Errorf("userapi: create request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("userapi: subscribe: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, decodeAPIError(resp)
	}
	return ReadEvents(ctx, resp.Body), nil
}

func userPath(id int64) string {
	return "/users/" + strconv.FormatInt(id, 10)
}

// do performs one JSON request and decodes the response into out when the
// status matches want.
func (c *HTTPClient) do(ctx context.Context, method, path string, in any, want int, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("userapi: marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("userapi: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("userapi: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != want {
		return decodeAPIError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("userapi: decode response: %w", err)
	}
	return nil
}

// APIError is a non-success response from the API.
type APIError struct {
	StatusCode int
	Message    string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("userapi: HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("userapi: HTTP %d: %s", e.StatusCode, e.Message)
}

// Is lets a 404 match user.ErrNotFound.
func (e *APIError) Is(target error) bool {
	return target == user.ErrNotFound && e.StatusCode == http.StatusNotFound
}

func decodeAPIError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	apiErr := &APIError{StatusCode: resp.StatusCode}

	var payload ErrorResponse
	if json.Unmarshal(body, &payload) == nil && payload.Error != "" {
		apiErr.Message = payload.Error
	} else {
		apiErr.Message = strings.TrimSpace(string(body))
	}
	return apiErr
}
