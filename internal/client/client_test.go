// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/claudie-tui/internal/model"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(&Config{
		BaseURL:           srv.URL + "/",
		Credentials:       StaticToken("tok-123"),
		RequestsPerSecond: 1000,
		Burst:             100,
	})
}

// =============================================================================
// CONFIG TESTS
// =============================================================================

func TestNewClient_Defaults(t *testing.T) {
	c := NewClient(nil)

	if c.BaseURL() != "http://localhost:8001" {
		t.Errorf("BaseURL = %q", c.BaseURL())
	}
	if c.config.Timeout != 30*time.Second {
		t.Errorf("Timeout = %v, want 30s", c.config.Timeout)
	}
	if c.config.UserAgent != "claudie-tui" {
		t.Errorf("UserAgent = %q", c.config.UserAgent)
	}
}

func TestNewClient_TrimsTrailingSlash(t *testing.T) {
	c := NewClient(&Config{BaseURL: "https://ws.example.com///"})
	if c.BaseURL() != "https://ws.example.com" {
		t.Errorf("BaseURL = %q", c.BaseURL())
	}
}

func TestEnvToken(t *testing.T) {
	t.Setenv("CLAUDIE_TEST_TOKEN", "from-env")

	tok, err := EnvToken("CLAUDIE_TEST_TOKEN").Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "from-env", tok)

	_, err = EnvToken("CLAUDIE_TEST_TOKEN_MISSING").Token(context.Background())
	assert.True(t, IsUnauthorized(err))
}

// =============================================================================
// STREAM TESTS
// =============================================================================

func TestOpenStream_SendsRequest(t *testing.T) {
	var got model.ChatRequest
	var auth, contentType string

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/chat" {
			http.NotFound(w, r)
			return
		}
		auth = r.Header.Get("Authorization")
		contentType = r.Header.Get("Content-Type")
		_ = json.NewDecoder(r.Body).Decode(&got)

		w.Header().Set("Content-Type", "text/event-stream")
		io.WriteString(w, "data: {\"content\":\"Hi\",\"done\":false}\n\n")
		io.WriteString(w, "data: {\"content\":\"\",\"done\":true,\"message_id\":\"m1\"}\n\n")
	})

	body, err := c.OpenStream(context.Background(), model.ChatRequest{
		Content:        "Hello",
		ConversationID: "c1",
	})
	require.NoError(t, err)
	defer body.Close()

	data, err := io.ReadAll(body)
	require.NoError(t, err)

	assert.Equal(t, "Bearer tok-123", auth)
	assert.Equal(t, "application/json", contentType)
	assert.Equal(t, "Hello", got.Content)
	assert.Equal(t, "c1", got.ConversationID)
	assert.Equal(t, model.DefaultModel, got.Model)
	assert.Equal(t, model.TaskGeneral, got.TaskType)
	assert.Contains(t, string(data), "\"message_id\":\"m1\"")
}

func TestOpenStream_StatusErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		want    error
		message string
	}{
		{"unauthorized", http.StatusUnauthorized, `{"detail":"Could not validate credentials"}`, ErrUnauthorized, "Could not validate credentials"},
		{"forbidden", http.StatusForbidden, `{"detail":"Not allowed"}`, ErrUnauthorized, "Not allowed"},
		{"not found", http.StatusNotFound, `{"detail":"Conversation not found"}`, ErrNotFound, "Conversation not found"},
		{"server error", http.StatusInternalServerError, `oops`, ErrUnavailable, "500 Internal Server Error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			})

			body, err := c.OpenStream(context.Background(), model.ChatRequest{Content: "x", ConversationID: "c1"})
			require.Error(t, err)
			assert.Nil(t, body)
			assert.True(t, errors.Is(err, tt.want), "err = %v", err)
			assert.Contains(t, err.Error(), tt.message)

			var ce *ClientError
			require.True(t, errors.As(err, &ce))
			assert.Equal(t, tt.status, ce.StatusCode)
		})
	}
}

func TestOpenStream_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewClient(&Config{BaseURL: url})
	_, err := c.OpenStream(context.Background(), model.ChatRequest{Content: "x", ConversationID: "c1"})
	assert.True(t, errors.Is(err, ErrUnavailable), "err = %v", err)
}

func TestOpenStream_ContextDeadline(t *testing.T) {
	release := make(chan struct{})
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.OpenStream(ctx, model.ChatRequest{Content: "x", ConversationID: "c1"})
	assert.True(t, errors.Is(err, ErrTimeout), "err = %v", err)
}

// =============================================================================
// CONVERSATION TESTS
// =============================================================================

func TestListConversations_SortedByUpdated(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/conversations", r.URL.Path)
		io.WriteString(w, `[
			{"id":"a","title":"Old","created_at":"2025-01-01T10:00:00","updated_at":"2025-01-01T10:00:00"},
			{"id":"b","title":"New","created_at":"2025-01-02T10:00:00","updated_at":"2025-01-03T10:00:00.123456"}
		]`)
	})

	convs, err := c.ListConversations(context.Background())
	require.NoError(t, err)
	require.Len(t, convs, 2)
	assert.Equal(t, "b", convs[0].ID)
	assert.Equal(t, "New", convs[0].Title)
	assert.Equal(t, 3, convs[0].UpdatedAt.Day())
	assert.Equal(t, "a", convs[1].ID)
}

func TestCreateConversation_DefaultTitle(t *testing.T) {
	var got createConversationRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		_ = json.NewDecoder(r.Body).Decode(&got)
		io.WriteString(w, `{"id":"new-1","title":"New Chat","created_at":"2025-02-01T09:00:00Z","updated_at":"2025-02-01T09:00:00Z"}`)
	})

	conv, err := c.CreateConversation(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, model.DefaultTitle, got.Title)
	assert.Equal(t, "new-1", conv.ID)
	assert.False(t, conv.CreatedAt.IsZero())
}

func TestDeleteConversation(t *testing.T) {
	var method, path string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		method, path = r.Method, r.URL.Path
		w.WriteHeader(http.StatusNoContent)
	})

	require.NoError(t, c.DeleteConversation(context.Background(), "c-9"))
	assert.Equal(t, http.MethodDelete, method)
	assert.Equal(t, "/api/conversations/c-9", path)
}

func TestListMessages(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/conversations/c1/messages" {
			w.WriteHeader(http.StatusNotFound)
			io.WriteString(w, `{"detail":"Conversation not found"}`)
			return
		}
		io.WriteString(w, `[
			{"id":"1","conversation_id":"c1","content":"Hi","role":"user","model_used":null,"timestamp":"2025-01-01T10:00:00"},
			{"id":"2","conversation_id":"c1","content":"Hello!","role":"assistant","model_used":"gpt-4o","timestamp":"2025-01-01T10:00:01"}
		]`)
	})

	msgs, err := c.ListMessages(context.Background(), "c1")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, model.RoleUser, msgs[0].Role)
	assert.Equal(t, "", msgs[0].ModelUsed)
	assert.Equal(t, "gpt-4o", msgs[1].ModelUsed)
	assert.True(t, msgs[1].Timestamp.After(msgs[0].Timestamp))

	_, err = c.ListMessages(context.Background(), "missing")
	assert.True(t, IsNotFound(err))
}

func TestListMessages_InvalidJSON(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `not json`)
	})

	_, err := c.ListMessages(context.Background(), "c1")
	var ce *ClientError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, ErrTypeInvalidResponse, ce.Type)
}

// =============================================================================
// AUTH TESTS
// =============================================================================

func TestLogin(t *testing.T) {
	var auth string
	var got loginRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&got)
		if got.Password != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			io.WriteString(w, `{"detail":"Incorrect email or password"}`)
			return
		}
		io.WriteString(w, `{"token":"jwt-abc","user":{"id":"u1","name":"Ada","email":"ada@example.com"}}`)
	})

	token, user, err := c.Login(context.Background(), "ada@example.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, "jwt-abc", token)
	assert.Equal(t, "Ada", user.Name)
	assert.Empty(t, auth, "login must not send a bearer token")

	_, _, err = c.Login(context.Background(), "ada@example.com", "wrong")
	assert.True(t, IsUnauthorized(err))
	assert.Contains(t, err.Error(), "Incorrect email or password")
}

func TestCheckReachable(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"message":"ok"}`)
	})
	assert.NoError(t, c.CheckReachable(context.Background()))
}

// =============================================================================
// ERROR TESTS
// =============================================================================

func TestClientError_Is(t *testing.T) {
	err := &ClientError{Type: ErrTypeNotFound, Message: "GET /x: gone"}

	if !errors.Is(err, ErrNotFound) {
		t.Error("expected errors.Is to match on type")
	}
	if errors.Is(err, ErrUnauthorized) {
		t.Error("different types must not match")
	}

	cause := errors.New("dial tcp: refused")
	wrapped := &ClientError{Type: ErrTypeUnavailable, Message: "unreachable", Cause: cause}
	if !errors.Is(wrapped, cause) {
		t.Error("expected Unwrap to expose the cause")
	}
	if wrapped.Error() != "unreachable: dial tcp: refused" {
		t.Errorf("Error() = %q", wrapped.Error())
	}
}
