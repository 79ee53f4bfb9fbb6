// Package client provides typed access to the mern-links API for
// interactive tools.
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
)

// Client provides typed access to the API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option customises client instantiation.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.httpClient = h
		}
	}
}

// New constructs a Client pointing at the provided API base URL.
func New(base string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimSpace(base)
	if trimmed == "" {
		trimmed = "http://localhost:5000"
	}
	if !strings.HasPrefix(trimmed, "http://") && !strings.HasPrefix(trimmed, "https://") {
		trimmed = "http://" + trimmed
	}
	if _, err := url.Parse(trimmed); err != nil {
		return nil, fmt.Errorf("invalid api base url: %w", err)
	}
	cli := &Client{
		baseURL:    strings.TrimRight(trimmed, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(cli)
	}
	return cli, nil
}

// FieldIssue is one per-field validation failure reported by the API.
type FieldIssue struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// APIError represents an error response from the API.
type APIError struct {
	Status  int
	Message string
	Fields  []FieldIssue
}

func (e APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api request failed with status %d", e.Status)
	}
	if len(e.Fields) > 0 {
		parts := make([]string, 0, len(e.Fields))
		for _, f := range e.Fields {
			parts = append(parts, f.Field+": "+f.Message)
		}
		return fmt.Sprintf("api request failed (%d): %s (%s)", e.Status, e.Message, strings.Join(parts, "; "))
	}
	return fmt.Sprintf("api request failed (%d): %s", e.Status, e.Message)
}

func (c *Client) do(ctx context.Context, method, path string, body any, token string, v any) error {
	if c == nil {
		return fmt.Errorf("client is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	endpoint := c.baseURL + path
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if strings.TrimSpace(token) != "" {
		req.Header.Set("Authorization", "Bearer "+strings.TrimSpace(token))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("perform request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := extractError(resp.Body)
		apiErr.Status = resp.StatusCode
		return apiErr
	}

	if v == nil {
		return nil
	}
	decoder := json.NewDecoder(resp.Body)
	if err := decoder.Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func extractError(body io.Reader) APIError {
	if body == nil {
		return APIError{}
	}
	var payload struct {
		Message string       `json:"message"`
		Errors  []FieldIssue `json:"errors"`
	}
	data, err := io.ReadAll(body)
	if err != nil || len(data) == 0 {
		return APIError{}
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return APIError{Message: strings.TrimSpace(string(data))}
	}
	return APIError{Message: strings.TrimSpace(payload.Message), Fields: payload.Errors}
}

// Register creates a new account.
func (c *Client) Register(ctx context.Context, email, password string) error {
	body := map[string]string{
		"email":    email,
		"password": password,
	}
	return c.do(ctx, http.MethodPost, "/register", body, "", nil)
}

// LoginResponse captures the token payload emitted by the API.
type LoginResponse struct {
	Token     string `json:"token"`
	AccountID string `json:"accountId"`
}

// Login exchanges credentials for a bearer token.
func (c *Client) Login(ctx context.Context, email, password string) (LoginResponse, error) {
	body := map[string]string{
		"email":    email,
		"password": password,
	}
	var resp LoginResponse
	if err := c.do(ctx, http.MethodPost, "/login", body, "", &resp); err != nil {
		return LoginResponse{}, err
	}
	return resp, nil
}

// Link reflects API link payloads.
type Link struct {
	ID     string `json:"id"`
	Code   string `json:"code"`
	From   string `json:"from"`
	To     string `json:"to"`
	Owner  string `json:"owner"`
	Clicks int64  `json:"clicks"`
	Date   string `json:"date"`
}

// CreateLink shortens a target URL for the authenticated account.
func (c *Client) CreateLink(ctx context.Context, token, target string) (Link, error) {
	body := map[string]string{"from": target}
	var resp struct {
		Link Link `json:"link"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/link/generate", body, token, &resp); err != nil {
		return Link{}, err
	}
	return resp.Link, nil
}

// ListLinks returns all links of the authenticated account.
func (c *Client) ListLinks(ctx context.Context, token string) ([]Link, error) {
	var links []Link
	if err := c.do(ctx, http.MethodGet, "/api/link", nil, token, &links); err != nil {
		return nil, err
	}
	return links, nil
}

// GetLink fetches one link by identifier.
func (c *Client) GetLink(ctx context.Context, token, id string) (Link, error) {
	var resp struct {
		Link Link `json:"link"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/link/"+url.PathEscape(id), nil, token, &resp); err != nil {
		return Link{}, err
	}
	return resp.Link, nil
}
