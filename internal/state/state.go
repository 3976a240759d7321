// Package state holds the client working set of one user: the registry of known chats with the current
// selection, the transcript of the selected chat, the URL set bound to it, the pending input and the busy
// flag of an in-flight exchange.
//
// State is a plain serializable value. Every transition is a method with a value receiver that returns
// the next State and never mutates slices it shares with the previous one, so a State handed out by the
// session is safe to render while the next one is being computed.
package state

import (
	"errors"
	"slices"
	"strings"

	"github.com/MegaGrindStone/docchat-web-ui/internal/models"
)

var (
	// ErrBusy is returned for actions that are disabled while an exchange is in flight.
	ErrBusy = errors.New("an exchange is in progress")
	// ErrBlankURL is returned when the URL to add is empty after trimming.
	ErrBlankURL = errors.New("url is blank")
	// ErrDuplicateURL is returned when the URL is already bound.
	ErrDuplicateURL = errors.New("url is already added")
	// ErrURLNotFound is returned when removing a URL that is not bound.
	ErrURLNotFound = errors.New("url not found")
	// ErrURLsFrozen is returned when the URL set is changed after the chat has messages.
	ErrURLsFrozen = errors.New("urls cannot change once the chat has messages")
	// ErrChatNotFound is returned when a chat id is not in the registry.
	ErrChatNotFound = errors.New("chat not found")
	// ErrBlankQuestion is returned when the question is empty after trimming.
	ErrBlankQuestion = errors.New("question is blank")
	// ErrNoURLs is returned when a question is asked without any bound URL.
	ErrNoURLs = errors.New("no urls bound")
)

const noPlaceholder = -1

// State is the working set of one user.
type State struct {
	// Chats is the registry in display order, newest first.
	Chats []models.Chat `json:"chats"`
	// SelectedChatID is empty when the user edits a chat the backend has not created yet.
	SelectedChatID string `json:"selectedChatId,omitempty"`

	Transcript []models.Message `json:"transcript"`
	URLs       []string         `json:"urls"`
	Input      string           `json:"input"`

	Busy bool `json:"busy"`
	// Placeholder is the transcript index of the in-flight assistant message, or -1.
	Placeholder int `json:"placeholder"`
}

// New returns an empty state with no selected chat.
func New() State {
	return State{Placeholder: noPlaceholder}
}

// Restore normalizes a state loaded from a snapshot. An exchange never survives a restart, so the busy
// flag and the placeholder are cleared.
func (s State) Restore() State {
	s.Busy = false
	s.Placeholder = noPlaceholder
	return s
}

// Chat looks up a chat of the registry by id.
func (s State) Chat(id string) (models.Chat, bool) {
	idx := s.chatIndex(id)
	if idx == -1 {
		return models.Chat{}, false
	}
	return s.Chats[idx], true
}

// URLsFrozen reports whether the URL set can no longer change because the working transcript already
// has messages.
func (s State) URLsFrozen() bool {
	return len(s.Transcript) > 0
}

// SetInput records the pending question text.
func (s State) SetInput(input string) State {
	s.Input = input
	return s
}

// AddURL binds a URL to the working chat. The URL is trimmed; duplicates are compared case-sensitively.
func (s State) AddURL(raw string) (State, error) {
	if s.Busy {
		return s, ErrBusy
	}
	u := strings.TrimSpace(raw)
	if u == "" {
		return s, ErrBlankURL
	}
	if s.URLsFrozen() {
		return s, ErrURLsFrozen
	}
	if slices.Contains(s.URLs, u) {
		return s, ErrDuplicateURL
	}

	s.URLs = append(slices.Clone(s.URLs), u)
	return s, nil
}

// RemoveURL unbinds a URL from the working chat.
func (s State) RemoveURL(raw string) (State, error) {
	if s.Busy {
		return s, ErrBusy
	}
	if s.URLsFrozen() {
		return s, ErrURLsFrozen
	}
	idx := slices.Index(s.URLs, strings.TrimSpace(raw))
	if idx == -1 {
		return s, ErrURLNotFound
	}

	s.URLs = slices.Delete(slices.Clone(s.URLs), idx, idx+1)
	return s, nil
}

// SelectChat makes the given chat the active one, replacing the transcript and URL working copies with
// the values stored in the registry.
func (s State) SelectChat(id string) (State, error) {
	if s.Busy {
		return s, ErrBusy
	}
	chat, ok := s.Chat(id)
	if !ok {
		return s, ErrChatNotFound
	}
	return s.selectChat(chat), nil
}

// StartNewChat clears the selection and returns to a fresh editing state.
func (s State) StartNewChat() (State, error) {
	if s.Busy {
		return s, ErrBusy
	}
	return s.clearSelection(), nil
}

func (s State) selectChat(chat models.Chat) State {
	s.SelectedChatID = chat.ID
	s.Transcript = slices.Clone(chat.Messages)
	s.URLs = slices.Clone(chat.URLs)
	s.Input = ""
	return s
}

func (s State) clearSelection() State {
	s.SelectedChatID = ""
	s.Transcript = nil
	s.URLs = nil
	s.Input = ""
	return s
}

func (s State) chatIndex(id string) int {
	return slices.IndexFunc(s.Chats, func(c models.Chat) bool { return c.ID == id })
}
