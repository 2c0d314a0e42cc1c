// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package client provides the HTTP client for the workspace API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/jeranaias/claudie-tui/internal/model"
)

// =============================================================================
// CREDENTIALS
// =============================================================================

// CredentialProvider supplies the bearer token for each request. The client
// never inspects the token.
type CredentialProvider interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a fixed bearer token.
type StaticToken string

// Token returns the token.
func (t StaticToken) Token(context.Context) (string, error) {
	return string(t), nil
}

// EnvToken reads the bearer token from the named environment variable on
// every request, so a refreshed token is picked up without a restart.
type EnvToken string

// Token returns the variable's current value.
func (e EnvToken) Token(context.Context) (string, error) {
	v := os.Getenv(string(e))
	if v == "" {
		return "", &ClientError{Type: ErrTypeUnauthorized, Message: "environment variable " + string(e) + " is not set"}
	}
	return v, nil
}

// =============================================================================
// CLIENT CONFIGURATION
// =============================================================================

// Config holds configuration options for the workspace client.
type Config struct {
	// BaseURL is the server root; API paths are appended (default: http://localhost:8001)
	BaseURL string

	// Timeout for non-streaming requests (default: 30s)
	Timeout time.Duration

	// ConnectTimeout bounds the wait for stream response headers (default: 30s)
	ConnectTimeout time.Duration

	// RequestsPerSecond paces outgoing requests (default: 5, burst 10)
	RequestsPerSecond float64
	Burst             int

	// Credentials supplies the bearer token (optional for login)
	Credentials CredentialProvider

	// UserAgent is sent with every request
	UserAgent string
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:           "http://localhost:8001",
		Timeout:           30 * time.Second,
		ConnectTimeout:    30 * time.Second,
		RequestsPerSecond: 5,
		Burst:             10,
		UserAgent:         "claudie-tui",
	}
}

// =============================================================================
// CLIENT
// =============================================================================

// Client talks to the workspace API: it opens chat streams, loads
// transcripts and manages conversations.
//
// The Client is safe for concurrent use.
//
// Example:
//
//	c := client.NewClient(&client.Config{
//	    BaseURL:     "https://workspace.example.com",
//	    Credentials: client.EnvToken("CLAUDIE_TOKEN"),
//	})
//	convs, err := c.ListConversations(ctx)
type Client struct {
	config       *Config
	httpClient   *http.Client
	streamClient *http.Client
	limiter      *rate.Limiter
}

// NewClient creates a client, filling in defaults for zero values.
func NewClient(config *Config) *Client {
	if config == nil {
		config = DefaultConfig()
	}
	defaults := DefaultConfig()

	if config.BaseURL == "" {
		config.BaseURL = defaults.BaseURL
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	if config.Timeout == 0 {
		config.Timeout = defaults.Timeout
	}
	if config.ConnectTimeout == 0 {
		config.ConnectTimeout = defaults.ConnectTimeout
	}
	if config.RequestsPerSecond == 0 {
		config.RequestsPerSecond = defaults.RequestsPerSecond
	}
	if config.Burst == 0 {
		config.Burst = defaults.Burst
	}
	if config.UserAgent == "" {
		config.UserAgent = defaults.UserAgent
	}

	// Streams have no overall timeout; only the header wait is bounded
	streamTransport := http.DefaultTransport.(*http.Transport).Clone()
	streamTransport.ResponseHeaderTimeout = config.ConnectTimeout

	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		streamClient: &http.Client{
			Transport: streamTransport,
		},
		limiter: rate.NewLimiter(rate.Limit(config.RequestsPerSecond), config.Burst),
	}
}

// BaseURL returns the configured server root.
func (c *Client) BaseURL() string {
	return c.config.BaseURL
}

// =============================================================================
// HEALTH CHECK
// =============================================================================

// CheckReachable verifies that the workspace API answers.
func (c *Client) CheckReachable(ctx context.Context) error {
	resp, err := c.do(ctx, c.httpClient, http.MethodGet, "/api/", nil, false)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// =============================================================================
// STREAMING CHAT
// =============================================================================

// OpenStream sends a chat request and returns the streaming body once the
// server has accepted it. The caller must close the body. Cancelling ctx
// aborts the exchange and unblocks pending reads.
func (c *Client) OpenStream(ctx context.Context, req model.ChatRequest) (io.ReadCloser, error) {
	if req.Model == "" {
		req.Model = model.DefaultModel
	}
	if req.TaskType == "" {
		req.TaskType = model.TaskGeneral
	}

	resp, err := c.do(ctx, c.streamClient, http.MethodPost, "/api/chat", req, true)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// =============================================================================
// CONVERSATIONS
// =============================================================================

// ListConversations returns the user's conversations, most recently updated
// first.
func (c *Client) ListConversations(ctx context.Context) ([]model.Conversation, error) {
	var wire []wireConversation
	if err := c.getJSON(ctx, "/api/conversations", &wire); err != nil {
		return nil, err
	}

	convs := make([]model.Conversation, len(wire))
	for i, w := range wire {
		convs[i] = w.toModel()
	}
	model.SortByUpdated(convs)
	return convs, nil
}

// CreateConversation creates a conversation. An empty title gets the
// server's default.
func (c *Client) CreateConversation(ctx context.Context, title string) (model.Conversation, error) {
	if title == "" {
		title = model.DefaultTitle
	}

	resp, err := c.do(ctx, c.httpClient, http.MethodPost, "/api/conversations", createConversationRequest{Title: title}, true)
	if err != nil {
		return model.Conversation{}, err
	}
	defer resp.Body.Close()

	var w wireConversation
	if err := json.NewDecoder(resp.Body).Decode(&w); err != nil {
		return model.Conversation{}, &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to decode response", Cause: err}
	}
	return w.toModel(), nil
}

// DeleteConversation removes a conversation and its messages.
func (c *Client) DeleteConversation(ctx context.Context, id string) error {
	resp, err := c.do(ctx, c.httpClient, http.MethodDelete, "/api/conversations/"+url.PathEscape(id), nil, true)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// ListMessages returns the persisted transcript of a conversation.
func (c *Client) ListMessages(ctx context.Context, conversationID string) ([]model.Message, error) {
	var wire []wireMessage
	path := "/api/conversations/" + url.PathEscape(conversationID) + "/messages"
	if err := c.getJSON(ctx, path, &wire); err != nil {
		return nil, err
	}

	msgs := make([]model.Message, len(wire))
	for i, w := range wire {
		msgs[i] = w.toModel()
	}
	return msgs, nil
}

// =============================================================================
// AUTHENTICATION
// =============================================================================

// Login exchanges credentials for a bearer token.
func (c *Client) Login(ctx context.Context, email, password string) (string, User, error) {
	resp, err := c.do(ctx, c.httpClient, http.MethodPost, "/api/auth/login", loginRequest{Email: email, Password: password}, false)
	if err != nil {
		return "", User{}, err
	}
	defer resp.Body.Close()

	var result loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", User{}, &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to decode response", Cause: err}
	}
	if result.Token == "" {
		return "", User{}, &ClientError{Type: ErrTypeInvalidResponse, Message: "login response carried no token"}
	}
	return result.Token, result.User, nil
}

// =============================================================================
// REQUEST PLUMBING
// =============================================================================

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	resp, err := c.do(ctx, c.httpClient, http.MethodGet, path, nil, true)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to decode response", Cause: err}
	}
	return nil
}

// do sends one request and returns the response for 2xx statuses. Any
// other status is turned into a *ClientError and the body is closed.
func (c *Client) do(ctx context.Context, hc *http.Client, method, path string, body any, auth bool) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, transportError(err)
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to marshal request", Cause: err}
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, reader)
	if err != nil {
		return nil, &ClientError{Type: ErrTypeConnection, Message: "failed to create request", Cause: err}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("User-Agent", c.config.UserAgent)

	if auth && c.config.Credentials != nil {
		token, err := c.config.Credentials.Token(ctx)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := hc.Do(req)
	if err != nil {
		return nil, transportError(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		return nil, statusError(resp)
	}
	return resp, nil
}

// transportError classifies a failure to get any response at all.
func transportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &ClientError{Type: ErrTypeTimeout, Message: "request timed out", Cause: err}
	}
	if errors.Is(err, context.Canceled) {
		return &ClientError{Type: ErrTypeConnection, Message: "request cancelled", Cause: err}
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &ClientError{Type: ErrTypeTimeout, Message: "request timed out", Cause: err}
	}
	return &ClientError{Type: ErrTypeUnavailable, Message: "workspace server is not reachable", Cause: err}
}

// statusError maps a non-2xx response to a typed error, using the server's
// detail message when it sends one.
func statusError(resp *http.Response) error {
	detail := resp.Status
	var apiErr apiError
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err := json.Unmarshal(data, &apiErr); err == nil && apiErr.Detail != "" {
		detail = apiErr.Detail
	}

	errType := ErrTypeInvalidResponse
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		errType = ErrTypeUnauthorized
	case resp.StatusCode == http.StatusNotFound:
		errType = ErrTypeNotFound
	case resp.StatusCode >= 500:
		errType = ErrTypeUnavailable
	}

	return &ClientError{
		Type:       errType,
		Message:    fmt.Sprintf("%s %s: %s", resp.Request.Method, resp.Request.URL.Path, detail),
		StatusCode: resp.StatusCode,
	}
}
