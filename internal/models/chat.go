package models

import (
	"encoding/json"
	"fmt"
	"slices"
)

// Chat represents a conversation persisted by the backend. It binds a set of documentation URLs to the
// ordered messages exchanged about them. The backend is authoritative for every field once it confirms a
// chat, so a confirmed record always replaces the local copy as a whole.
type Chat struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	URLs     []string  `json:"urls"`
	Messages []Message `json:"messages"`
}

// Message represents an individual entry within a chat.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Role represents the role of a message participant.
type Role string

const (
	// RoleUser represents a message typed by the user.
	RoleUser Role = "user"
	// RoleAssistant represents an answer produced by the backend. On the wire it is spelled "ai".
	RoleAssistant Role = "assistant"

	wireRoleAssistant = "ai"
)

// MarshalJSON encodes the role using the backend's spelling.
func (r Role) MarshalJSON() ([]byte, error) {
	if r == RoleAssistant {
		return json.Marshal(wireRoleAssistant)
	}
	return json.Marshal(string(r))
}

// UnmarshalJSON accepts both the backend spelling ("ai") and "assistant" for assistant messages.
func (r *Role) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("failed to unmarshal role: %w", err)
	}
	switch s {
	case string(RoleUser):
		*r = RoleUser
	case wireRoleAssistant, string(RoleAssistant):
		*r = RoleAssistant
	default:
		return fmt.Errorf("unknown role %q", s)
	}
	return nil
}

// DisplayTitle returns the title shown in the chat list. The backend titles new chats with their first
// URL, but older records may carry a null title.
func (c Chat) DisplayTitle() string {
	if c.Title != "" {
		return c.Title
	}
	if len(c.URLs) > 0 {
		return c.URLs[0]
	}
	return "New chat"
}

// Clone returns a deep copy of the chat, so callers can hand it out without sharing the backing arrays.
func (c Chat) Clone() Chat {
	c.URLs = slices.Clone(c.URLs)
	c.Messages = slices.Clone(c.Messages)
	return c
}
