package handlers

import (
	"bytes"
	"html/template"

	"github.com/MegaGrindStone/docchat-web-ui/internal/models"
	"github.com/MegaGrindStone/docchat-web-ui/internal/state"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting"
)

type chat struct {
	ID    string
	Title string

	Active bool
}

type message struct {
	Index   int
	Role    string
	Content template.HTML

	Streaming bool
}

type urlList struct {
	URLs   []string
	Frozen bool
	Busy   bool
}

type homePageData struct {
	SignedIn bool

	Chats         []chat
	CurrentChatID string
	Messages      []message
	URLs          urlList
	Input         string
	Busy          bool
}

// Answers are markdown. Raw HTML in them is escaped since goldmark renders unsafe HTML only on request.
var markdown = goldmark.New(
	goldmark.WithExtensions(
		highlighting.NewHighlighting(highlighting.WithStyle("github")),
	),
)

var templateFuncs = template.FuncMap{
	"isUser": func(role string) bool { return role == string(models.RoleUser) },
}

func renderContent(msg models.Message) (template.HTML, error) {
	if msg.Role == models.RoleUser {
		return template.HTML(template.HTMLEscapeString(msg.Content)), nil
	}

	var buf bytes.Buffer
	if err := markdown.Convert([]byte(msg.Content), &buf); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}

func messageView(index int, msg models.Message, streaming bool) (message, error) {
	content, err := renderContent(msg)
	if err != nil {
		return message{}, err
	}
	return message{
		Index:     index,
		Role:      string(msg.Role),
		Content:   content,
		Streaming: streaming,
	}, nil
}

func chatViews(st state.State) []chat {
	chats := make([]chat, len(st.Chats))
	for i, c := range st.Chats {
		chats[i] = chat{
			ID:     c.ID,
			Title:  c.DisplayTitle(),
			Active: c.ID == st.SelectedChatID,
		}
	}
	return chats
}

func urlListView(st state.State) urlList {
	return urlList{
		URLs:   st.URLs,
		Frozen: st.URLsFrozen(),
		Busy:   st.Busy,
	}
}

func pageData(st state.State) (homePageData, error) {
	msgs := make([]message, len(st.Transcript))
	for i, msg := range st.Transcript {
		streaming := st.HasPlaceholder() && i == st.Placeholder
		view, err := messageView(i, msg, streaming)
		if err != nil {
			return homePageData{}, err
		}
		msgs[i] = view
	}

	return homePageData{
		SignedIn:      true,
		Chats:         chatViews(st),
		CurrentChatID: st.SelectedChatID,
		Messages:      msgs,
		URLs:          urlListView(st),
		Input:         st.Input,
		Busy:          st.Busy,
	}, nil
}
