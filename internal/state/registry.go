package state

import (
	"slices"

	"github.com/MegaGrindStone/docchat-web-ui/internal/models"
)

// LoadChats replaces the registry with the chats listed by the backend. The selection and the working
// copies are left alone.
func (s State) LoadChats(chats []models.Chat) State {
	s.Chats = make([]models.Chat, len(chats))
	for i, c := range chats {
		s.Chats[i] = c.Clone()
	}
	return s
}

// Reconcile merges a chat record confirmed by the backend at the end of an exchange.
//
// When nothing is selected, or another chat is selected, the record is a newly created chat: it is
// prepended to the registry and selected. Otherwise the selected entry is replaced as a whole, since the
// backend is authoritative for its title, URLs and messages. A selected id missing from the registry is
// inserted.
func (s State) Reconcile(chat models.Chat) State {
	chat = chat.Clone()

	if s.SelectedChatID == "" || s.SelectedChatID != chat.ID {
		s.Chats = s.upsert(chat)
		s.SelectedChatID = chat.ID
		return s
	}

	idx := s.chatIndex(chat.ID)
	if idx == -1 {
		s.Chats = slices.Insert(slices.Clone(s.Chats), 0, chat)
		return s
	}
	s.Chats = slices.Clone(s.Chats)
	s.Chats[idx] = chat
	return s
}

// upsert prepends chat, dropping a stale entry with the same id so the registry never holds duplicates.
func (s State) upsert(chat models.Chat) []models.Chat {
	chats := slices.DeleteFunc(slices.Clone(s.Chats), func(c models.Chat) bool { return c.ID == chat.ID })
	return slices.Insert(chats, 0, chat)
}

// ApplyRename records a title confirmed by the backend.
func (s State) ApplyRename(id, title string) State {
	idx := s.chatIndex(id)
	if idx == -1 {
		return s
	}
	s.Chats = slices.Clone(s.Chats)
	s.Chats[idx].Title = title
	return s
}

// CheckDelete reports whether the chat may be deleted now. The selected chat cannot be deleted while its
// exchange is in flight.
func (s State) CheckDelete(id string) error {
	if s.chatIndex(id) == -1 {
		return ErrChatNotFound
	}
	if s.Busy && s.SelectedChatID == id {
		return ErrBusy
	}
	return nil
}

// ApplyDelete removes a chat whose deletion the backend confirmed. If it was the selected chat, the first
// remaining chat is selected, or the state falls back to a fresh editing state when none remain.
func (s State) ApplyDelete(id string) State {
	idx := s.chatIndex(id)
	if idx == -1 {
		return s
	}
	s.Chats = slices.Delete(slices.Clone(s.Chats), idx, idx+1)

	if s.SelectedChatID != id {
		return s
	}
	if len(s.Chats) == 0 {
		return s.clearSelection()
	}
	return s.selectChat(s.Chats[0])
}
