package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/MegaGrindStone/docchat-web-ui/internal/models"
	"golang.org/x/time/rate"
)

// Backend is the client of the remote chat backend. The backend scrapes the registered documentation,
// generates answers and persists chats per user; this client only speaks its HTTP contract.
type Backend struct {
	baseURL string

	client  *http.Client
	limiter *rate.Limiter

	logger *slog.Logger
}

type backendErrorResponse struct {
	Error  string `json:"error"`
	Answer string `json:"answer"`
}

const maxErrorBodySize = 64 << 10

// NewBackend creates a new Backend client for the given base URL. requestsPerSecond throttles outgoing
// requests; zero or a negative value disables throttling. The HTTP client has no overall timeout because
// answers are streamed for as long as the backend needs.
func NewBackend(baseURL string, requestsPerSecond float64, logger *slog.Logger) Backend {
	limit := rate.Inf
	if requestsPerSecond > 0 {
		limit = rate.Limit(requestsPerSecond)
	}

	return Backend{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{},
		limiter: rate.NewLimiter(limit, 1),
		logger:  logger.With(slog.String("module", "backend")),
	}
}

// Chat sends a question and returns the streamed answer body. The caller must close it. A non-2xx
// response is returned as *models.APIError carrying the backend's error text.
func (b Backend) Chat(ctx context.Context, req models.ChatRequest) (io.ReadCloser, error) {
	resp, err := b.doRequest(ctx, http.MethodPost, "/api/chat", req)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// Chats lists the chats of a user, newest first.
func (b Backend) Chats(ctx context.Context, userID string) ([]models.Chat, error) {
	resp, err := b.doRequest(ctx, http.MethodGet, "/api/users/"+url.PathEscape(userID)+"/chats", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var chats []models.Chat
	if err := json.NewDecoder(resp.Body).Decode(&chats); err != nil {
		return nil, fmt.Errorf("error decoding chats: %w", err)
	}
	return chats, nil
}

// RenameChat renames a chat and returns the record the backend stored.
func (b Backend) RenameChat(ctx context.Context, chatID, userID, title string) (models.Chat, error) {
	resp, err := b.doRequest(ctx, http.MethodPut, "/api/chats/"+url.PathEscape(chatID)+"/rename",
		models.RenameChatRequest{Title: title, UserID: userID})
	if err != nil {
		return models.Chat{}, err
	}
	defer resp.Body.Close()

	var chat models.Chat
	if err := json.NewDecoder(resp.Body).Decode(&chat); err != nil {
		return models.Chat{}, fmt.Errorf("error decoding renamed chat: %w", err)
	}
	return chat, nil
}

// DeleteChat deletes a chat with all its messages.
func (b Backend) DeleteChat(ctx context.Context, chatID, userID string) error {
	resp, err := b.doRequest(ctx, http.MethodDelete, "/api/chats/"+url.PathEscape(chatID),
		models.DeleteChatRequest{UserID: userID})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var ack models.DeleteChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&ack); err != nil {
		return fmt.Errorf("error decoding delete acknowledgment: %w", err)
	}
	b.logger.Debug("Chat deleted", slog.String("chatID", chatID), slog.String("message", ack.Message))
	return nil
}

func (b Backend) doRequest(ctx context.Context, method, path string, body any) (*http.Response, error) {
	if err := b.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("error waiting for rate limiter: %w", err)
	}

	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("error marshaling request: %w", err)
		}
		b.logger.Debug("Request Body", slog.String("path", path), slog.String("body", string(jsonBody)))
		reqBody = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, b.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error sending request: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		return nil, apiError(resp)
	}

	return resp, nil
}

func apiError(resp *http.Response) error {
	apiErr := &models.APIError{StatusCode: resp.StatusCode}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
	if err != nil {
		return errors.Join(apiErr, fmt.Errorf("error reading error body: %w", err))
	}

	var res backendErrorResponse
	if err := json.Unmarshal(body, &res); err != nil {
		apiErr.Message = strings.TrimSpace(string(body))
		return apiErr
	}

	apiErr.Message = res.Error
	if apiErr.Message == "" {
		apiErr.Message = res.Answer
	}
	return apiErr
}
