package handlers

import (
	"html/template"
	"log/slog"
	"strings"

	"github.com/MegaGrindStone/docchat-web-ui/internal/models"
	"github.com/MegaGrindStone/docchat-web-ui/internal/state"
	"github.com/tmaxmax/go-sse"
)

// SSE event types for real-time updates.
var (
	chatsSSEType       = sse.Type("chats")
	messagesSSEType    = sse.Type("messages")
	urlsSSEType        = sse.Type("urls")
	exchangeEndSSEType = sse.Type("exchangeEnd")
)

// ssePublisher renders state changes of an exchange and pushes them to the browsers of the user.
type ssePublisher struct {
	srv       *sse.Server
	templates *template.Template

	logger *slog.Logger
}

func (p ssePublisher) PublishMessage(userID string, index int, msg models.Message, streaming bool) {
	view, err := messageView(index, msg, streaming)
	if err != nil {
		p.logger.Error("Failed to render message content",
			slog.Int("index", index),
			slog.String(errLoggerKey, err.Error()))
		return
	}
	p.publish(userID, messagesSSEType, "message", view)
}

func (p ssePublisher) PublishChats(userID string, st state.State) {
	p.publish(userID, chatsSSEType, "chat_list", chatViews(st))
}

func (p ssePublisher) PublishExchangeEnd(userID string, st state.State) {
	p.publish(userID, urlsSSEType, "url_list", urlListView(st))

	msg := sse.Message{Type: exchangeEndSSEType}
	msg.AppendData("done")
	if err := p.srv.Publish(&msg, userTopic(userID)); err != nil {
		p.logger.Error("Failed to publish exchange end",
			slog.String("userID", userID),
			slog.String(errLoggerKey, err.Error()))
	}
}

func (p ssePublisher) publish(userID string, typ sse.EventType, tmpl string, data any) {
	var sb strings.Builder
	if err := p.templates.ExecuteTemplate(&sb, tmpl, data); err != nil {
		p.logger.Error("Failed to execute template",
			slog.String("template", tmpl),
			slog.String(errLoggerKey, err.Error()))
		return
	}

	msg := sse.Message{Type: typ}
	msg.AppendData(sb.String())
	if err := p.srv.Publish(&msg, userTopic(userID)); err != nil {
		p.logger.Error("Failed to publish event",
			slog.String("userID", userID),
			slog.String("template", tmpl),
			slog.String(errLoggerKey, err.Error()))
	}
}
