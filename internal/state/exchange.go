package state

import (
	"slices"
	"strings"

	"github.com/MegaGrindStone/docchat-web-ui/internal/models"
)

// BeginExchange starts a question/answer exchange: it marks the state busy, appends the user's message
// to the transcript and clears the pending input. The user message is never rolled back.
func (s State) BeginExchange(question string) (State, error) {
	if s.Busy {
		return s, ErrBusy
	}
	q := strings.TrimSpace(question)
	if q == "" {
		return s, ErrBlankQuestion
	}
	if len(s.URLs) == 0 {
		return s, ErrNoURLs
	}

	s.Busy = true
	s.Placeholder = noPlaceholder
	s.Transcript = appendMessage(s.Transcript, models.Message{Role: models.RoleUser, Content: q})
	s.Input = ""
	return s, nil
}

// ChatRequest builds the backend request for a question asked in this state.
func (s State) ChatRequest(question, userID string) models.ChatRequest {
	req := models.ChatRequest{
		URLs:     slices.Clone(s.URLs),
		Question: strings.TrimSpace(question),
		UserID:   userID,
	}
	if s.SelectedChatID != "" {
		id := s.SelectedChatID
		req.ChatID = &id
	}
	return req
}

// AppendAssistant appends a complete assistant message.
func (s State) AppendAssistant(content string) State {
	s.Transcript = appendMessage(s.Transcript, models.Message{Role: models.RoleAssistant, Content: content})
	return s
}

// OpenPlaceholder appends the empty assistant message that the answer stream patches in place.
func (s State) OpenPlaceholder() State {
	s = s.AppendAssistant("")
	s.Placeholder = len(s.Transcript) - 1
	return s
}

// HasPlaceholder reports whether an in-flight assistant message exists.
func (s State) HasPlaceholder() bool {
	return s.Placeholder >= 0 && s.Placeholder < len(s.Transcript)
}

// PatchPlaceholder replaces the content of the in-flight assistant message, addressed by position.
func (s State) PatchPlaceholder(content string) State {
	if !s.HasPlaceholder() {
		return s
	}
	s.Transcript = slices.Clone(s.Transcript)
	s.Transcript[s.Placeholder].Content = content
	return s
}

// FailExchange reports a failure as assistant content: it overwrites the placeholder when one exists,
// otherwise it appends a new assistant message.
func (s State) FailExchange(content string) State {
	if s.HasPlaceholder() {
		return s.PatchPlaceholder(content)
	}
	return s.AppendAssistant(content)
}

// EndExchange clears the busy flag and forgets the placeholder.
func (s State) EndExchange() State {
	s.Busy = false
	s.Placeholder = noPlaceholder
	return s
}

func appendMessage(msgs []models.Message, msg models.Message) []models.Message {
	return append(slices.Clone(msgs), msg)
}
