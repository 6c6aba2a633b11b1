package client

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/signin-dev/signin/internal/session"
)

// DefaultTimeout bounds every request made by the client
const DefaultTimeout = 30 * time.Second

// ErrInvalidCredentials is returned when the backend rejects the email/password pair
var ErrInvalidCredentials = errors.New("invalid email or password")

// APIError is a non-success response from the identity backend
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("request failed (status %d)", e.StatusCode)
	}
	return fmt.Sprintf("request failed (status %d): %s", e.StatusCode, e.Message)
}

// Client represents an HTTP client for the identity API
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures a Client
type Option func(*Client)

// WithInsecure skips TLS verification, for self-signed development servers
func WithInsecure() Option {
	return func(c *Client) {
		c.httpClient.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: true,
			},
		}
	}
}

// WithTimeout overrides DefaultTimeout
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// New creates a new API client for the server at baseURL (scheme included)
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetHTTPClient sets a custom HTTP client
func (c *Client) SetHTTPClient(httpClient *http.Client) {
	c.httpClient = httpClient
}

// BaseURL returns the server URL requests are sent to
func (c *Client) BaseURL() string {
	return c.baseURL
}

// PrecheckRequest represents the pre-check request body
type PrecheckRequest struct {
	Email string `json:"email"`
}

// PrecheckResponse represents the pre-check verdict
type PrecheckResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// LoginRequest represents the login request body
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse represents the login response
type LoginResponse struct {
	Token string       `json:"token"`
	User  session.User `json:"user"`
}

// RegisterRequest represents the sign up request body
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type registerResponse struct {
	User session.User `json:"user"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Precheck asks the backend whether an identifier may proceed to login
func (c *Client) Precheck(ctx context.Context, email string) (*PrecheckResponse, error) {
	var out PrecheckResponse
	status, body, err := c.do(ctx, http.MethodPost, "/api/auth/precheck", "", PrecheckRequest{Email: email})
	if err != nil {
		return nil, err
	}

	// 400 carries a verdict body for malformed input
	if status != http.StatusOK && status != http.StatusBadRequest {
		return nil, newAPIError(status, body)
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &out, nil
}

// Login authenticates the user and returns a JWT token with the user's profile
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	status, body, err := c.do(ctx, http.MethodPost, "/api/auth/login", "", LoginRequest{
		Email:    email,
		Password: password,
	})
	if err != nil {
		return nil, err
	}

	switch status {
	case http.StatusOK:
	case http.StatusUnauthorized:
		return nil, ErrInvalidCredentials
	default:
		return nil, newAPIError(status, body)
	}

	var loginResp LoginResponse
	if err := json.Unmarshal(body, &loginResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if loginResp.User.ID == "" {
		return nil, errors.New("response is missing the user")
	}
	// A missing or null role never reaches UnmarshalText
	if _, err := session.ParseRole(string(loginResp.User.Role)); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &loginResp, nil
}

// Register creates a standard account
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*session.User, error) {
	status, body, err := c.do(ctx, http.MethodPost, "/api/auth/register", "", req)
	if err != nil {
		return nil, err
	}
	if status != http.StatusCreated {
		return nil, newAPIError(status, body)
	}

	var resp registerResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &resp.User, nil
}

// Me returns the user the token belongs to
func (c *Client) Me(ctx context.Context, token string) (*session.User, error) {
	status, body, err := c.do(ctx, http.MethodGet, "/api/auth/me", token, nil)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, newAPIError(status, body)
	}

	var user session.User
	if err := json.Unmarshal(body, &user); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &user, nil
}

func (c *Client) do(ctx context.Context, method, path, token string, reqBody interface{}) (int, []byte, error) {
	var reader io.Reader
	if reqBody != nil {
		jsonData, err := json.Marshal(reqBody)
		if err != nil {
			return 0, nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}

	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read response: %w", err)
	}

	return resp.StatusCode, body, nil
}

func newAPIError(status int, body []byte) *APIError {
	var errResp errorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
		return &APIError{StatusCode: status, Message: errResp.Error}
	}
	return &APIError{StatusCode: status, Message: strings.TrimSpace(string(body))}
}
