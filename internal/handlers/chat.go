package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/MegaGrindStone/docchat-web-ui/internal/state"
)

// HandleChats asks a question in the selected chat, or in a new chat when none is selected. The question
// is read from the "question" form field.
//
// The user's message is appended and pushed to the browser right away, then the answer is streamed in
// the background through server-sent events; the handler answers 202 Accepted. When the question cannot
// be sent (blank question, no URL bound, no identified user, an exchange already running) nothing
// happens and the handler answers 204 No Content. Once shutdown has begun it answers 503.
func (m Main) HandleChats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		m.logger.Error("Method not allowed", slog.String("method", r.Method))
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userID, ok := m.identity.UserID(r)
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	sess, err := m.sessions.Get(r.Context(), userID)
	if err != nil {
		m.logger.Error("Failed to get session", slog.String(errLoggerKey, err.Error()))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if !m.exchanges.start() {
		http.Error(w, "Server is shutting down", http.StatusServiceUnavailable)
		return
	}

	req, ok := m.orchestrator.Begin(sess, r.FormValue("question"))
	if !ok {
		m.exchanges.done()
		w.WriteHeader(http.StatusNoContent)
		return
	}

	go func() {
		defer m.exchanges.done()
		m.orchestrator.Run(m.ctx, sess, req)
	}()

	w.WriteHeader(http.StatusAccepted)
}

// HandleInput keeps the question being typed, so it survives a page reload.
func (m Main) HandleInput(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	sess, ok := m.session(w, r)
	if !ok {
		return
	}

	sess.Update(func(s state.State) state.State { return s.SetInput(r.FormValue("question")) })
	m.save(r, sess)
	w.WriteHeader(http.StatusNoContent)
}

// HandleURLs adds or removes a documentation URL of the working chat, depending on the "action" form
// field. Rejected changes (duplicate, blank, chat already has messages, exchange in flight) leave the
// URL set as it is.
func (m Main) HandleURLs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	sess, ok := m.session(w, r)
	if !ok {
		return
	}

	u := r.FormValue("url")
	var transition func(state.State) (state.State, error)
	switch r.FormValue("action") {
	case "add":
		transition = func(s state.State) (state.State, error) { return s.AddURL(u) }
	case "remove":
		transition = func(s state.State) (state.State, error) { return s.RemoveURL(u) }
	default:
		http.Error(w, "Unknown action", http.StatusBadRequest)
		return
	}

	if _, err := sess.Apply(transition); err != nil {
		m.logger.Debug("URL change rejected",
			slog.String("url", u),
			slog.String(errLoggerKey, err.Error()))
	}
	m.save(r, sess)
	redirectHome(w, r)
}

// HandleSelectChat makes the chat in the "chat_id" form field the active one.
func (m Main) HandleSelectChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	sess, ok := m.session(w, r)
	if !ok {
		return
	}

	chatID := r.FormValue("chat_id")
	_, err := sess.Apply(func(s state.State) (state.State, error) { return s.SelectChat(chatID) })
	if errors.Is(err, state.ErrChatNotFound) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	if err != nil {
		m.logger.Debug("Chat not selected", slog.String(errLoggerKey, err.Error()))
	}
	m.save(r, sess)
	redirectHome(w, r)
}

// HandleNewChat leaves the selected chat for a fresh one. The backend creates the chat with the first
// answered question.
func (m Main) HandleNewChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	sess, ok := m.session(w, r)
	if !ok {
		return
	}

	if _, err := sess.Apply(state.State.StartNewChat); err != nil {
		m.logger.Debug("New chat rejected", slog.String(errLoggerKey, err.Error()))
	}
	m.save(r, sess)
	redirectHome(w, r)
}

// HandleRenameChat renames the chat in the "chat_id" form field to the "title" form field.
func (m Main) HandleRenameChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	sess, ok := m.session(w, r)
	if !ok {
		return
	}

	chatID := r.FormValue("chat_id")
	title := strings.TrimSpace(r.FormValue("title"))
	if title == "" {
		http.Error(w, "Title is required", http.StatusBadRequest)
		return
	}
	if _, found := sess.State().Chat(chatID); !found {
		http.Error(w, state.ErrChatNotFound.Error(), http.StatusNotFound)
		return
	}

	renamed, err := m.backend.RenameChat(r.Context(), chatID, sess.UserID(), title)
	if err != nil {
		m.logger.Error("Failed to rename chat",
			slog.String("chatID", chatID),
			slog.String(errLoggerKey, err.Error()))
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}

	st := sess.Update(func(s state.State) state.State { return s.ApplyRename(renamed.ID, renamed.Title) })
	m.publisher.PublishChats(sess.UserID(), st)
	m.save(r, sess)
	redirectHome(w, r)
}

// HandleDeleteChat deletes the chat in the "chat_id" form field. Deleting the selected chat selects the
// first remaining one, or a fresh chat when none remain.
func (m Main) HandleDeleteChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	sess, ok := m.session(w, r)
	if !ok {
		return
	}

	chatID := r.FormValue("chat_id")
	if err := sess.State().CheckDelete(chatID); err != nil {
		status := http.StatusConflict
		if errors.Is(err, state.ErrChatNotFound) {
			status = http.StatusNotFound
		}
		http.Error(w, err.Error(), status)
		return
	}

	if err := m.backend.DeleteChat(r.Context(), chatID, sess.UserID()); err != nil {
		m.logger.Error("Failed to delete chat",
			slog.String("chatID", chatID),
			slog.String(errLoggerKey, err.Error()))
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}

	st := sess.Update(func(s state.State) state.State { return s.ApplyDelete(chatID) })
	m.publisher.PublishChats(sess.UserID(), st)
	m.save(r, sess)
	redirectHome(w, r)
}
