package services_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/MegaGrindStone/docchat-web-ui/internal/models"
	"github.com/MegaGrindStone/docchat-web-ui/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBackend(t *testing.T, handler http.HandlerFunc) services.Backend {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return services.NewBackend(srv.URL+"/", 0, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestBackendChat(t *testing.T) {
	var got map[string]any
	backend := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/chat", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		_, _ = io.WriteString(w, `answer__CHAT_METADATA__{"id":"c1"}`)
	})

	body, err := backend.Chat(context.Background(), models.ChatRequest{
		URLs:     []string{"http://a"},
		Question: "q",
		UserID:   "u1",
	})
	require.NoError(t, err)
	defer body.Close()

	data, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, `answer__CHAT_METADATA__{"id":"c1"}`, string(data))

	assert.Equal(t, map[string]any{
		"urls":     []any{"http://a"},
		"question": "q",
		"userId":   "u1",
		"chatId":   nil,
	}, got, "new chats send an explicit null chat id")
}

func TestBackendChatErrors(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantMessage string
	}{
		{
			name:        "error field",
			status:      http.StatusBadRequest,
			body:        `{"error":"No URLs provided.","answer":"Please provide at least one URL."}`,
			wantMessage: "No URLs provided.",
		},
		{
			name:        "answer field only",
			status:      http.StatusInternalServerError,
			body:        `{"answer":"Failed to get a response from the AI."}`,
			wantMessage: "Failed to get a response from the AI.",
		},
		{
			name:        "plain text body",
			status:      http.StatusBadGateway,
			body:        "bad gateway\n",
			wantMessage: "bad gateway",
		},
		{
			name:   "empty body",
			status: http.StatusForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := newBackend(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})

			_, err := backend.Chat(context.Background(), models.ChatRequest{})

			var apiErr *models.APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, tt.wantMessage, apiErr.Message)
		})
	}
}

func TestBackendChats(t *testing.T) {
	backend := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/users/user 1/chats", r.URL.Path)

		_, _ = io.WriteString(w, `[{"id":"c2","title":null,"urls":["http://b"],"messages":[]},
			{"id":"c1","title":"Docs","urls":["http://a"],"messages":[{"role":"ai","content":"hi"}]}]`)
	})

	chats, err := backend.Chats(context.Background(), "user 1")

	require.NoError(t, err)
	require.Len(t, chats, 2)
	assert.Equal(t, "c2", chats[0].ID)
	assert.Equal(t, models.RoleAssistant, chats[1].Messages[0].Role)
}

func TestBackendRenameChat(t *testing.T) {
	backend := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/api/chats/c1/rename", r.URL.Path)

		var req models.RenameChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, models.RenameChatRequest{Title: "New", UserID: "u1"}, req)

		_, _ = io.WriteString(w, `{"id":"c1","title":"New","urls":["http://a"]}`)
	})

	chat, err := backend.RenameChat(context.Background(), "c1", "u1", "New")

	require.NoError(t, err)
	assert.Equal(t, "New", chat.Title)
}

func TestBackendDeleteChat(t *testing.T) {
	backend := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/api/chats/c1", r.URL.Path)

		var req models.DeleteChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "u1", req.UserID)

		_, _ = io.WriteString(w, `{"message":"Chat deleted successfully","chatId":"c1"}`)
	})

	require.NoError(t, backend.DeleteChat(context.Background(), "c1", "u1"))
}

func TestBackendDeleteChatNotFound(t *testing.T) {
	backend := newBackend(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"error":"Chat session not found."}`)
	})

	err := backend.DeleteChat(context.Background(), "c1", "u1")

	var apiErr *models.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
}
