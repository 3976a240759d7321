package models

import "fmt"

// ChatRequest is the body of a question sent to the backend. ChatID is nil for a chat the backend has
// not created yet, which is encoded as an explicit JSON null.
type ChatRequest struct {
	URLs     []string `json:"urls"`
	Question string   `json:"question"`
	UserID   string   `json:"userId"`
	ChatID   *string  `json:"chatId"`
}

// RenameChatRequest is the body of a chat rename.
type RenameChatRequest struct {
	Title  string `json:"title"`
	UserID string `json:"userId"`
}

// DeleteChatRequest is the body of a chat deletion.
type DeleteChatRequest struct {
	UserID string `json:"userId"`
}

// DeleteChatResponse acknowledges a deleted chat.
type DeleteChatResponse struct {
	Message string `json:"message"`
	ChatID  string `json:"chatId"`
}

// APIError is returned by the backend client when the backend answers with a non-2xx status. Message
// holds the text the backend supplied, if any.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("backend returned status %d: %s", e.StatusCode, e.Message)
}
