package handlers

import (
	"log/slog"
	"net/http"

	"github.com/MegaGrindStone/docchat-web-ui/internal/state"
)

// HandleHome renders the chat page. The chat list is refreshed from the backend on every load unless an
// exchange is in flight, and an optional chat_id query parameter selects a chat.
func (m Main) HandleHome(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	userID, ok := m.identity.UserID(r)
	if !ok {
		m.render(w, homePageData{})
		return
	}

	sess, ok := m.session(w, r)
	if !ok {
		return
	}

	chats, err := m.backend.Chats(r.Context(), userID)
	if err != nil {
		m.logger.Error("Failed to list chats",
			slog.String("userID", userID),
			slog.String(errLoggerKey, err.Error()))
	} else {
		sess.Update(func(s state.State) state.State {
			if s.Busy {
				return s
			}
			return s.LoadChats(chats)
		})
	}

	if chatID := r.URL.Query().Get("chat_id"); chatID != "" {
		if _, err := sess.Apply(func(s state.State) (state.State, error) { return s.SelectChat(chatID) }); err != nil {
			m.logger.Debug("Chat not selected",
				slog.String("chatID", chatID),
				slog.String(errLoggerKey, err.Error()))
		}
	}

	data, err := pageData(sess.State())
	if err != nil {
		m.logger.Error("Failed to render page data", slog.String(errLoggerKey, err.Error()))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	m.render(w, data)
}

func (m Main) render(w http.ResponseWriter, data homePageData) {
	if err := m.templates.ExecuteTemplate(w, "home.html", data); err != nil {
		m.logger.Error("Failed to execute home template", slog.String(errLoggerKey, err.Error()))
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
