// Package exchange drives one question/answer exchange between a user session and the chat backend.
package exchange

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/MegaGrindStone/docchat-web-ui/internal/models"
	"github.com/MegaGrindStone/docchat-web-ui/internal/session"
	"github.com/MegaGrindStone/docchat-web-ui/internal/state"
	"github.com/MegaGrindStone/docchat-web-ui/internal/stream"
)

// Backend sends a question to the chat backend and returns the streamed answer body. A failure status
// is reported as *models.APIError.
type Backend interface {
	Chat(ctx context.Context, req models.ChatRequest) (io.ReadCloser, error)
}

// Publisher pushes state changes to the user's browser.
type Publisher interface {
	// PublishMessage is called whenever the transcript message at index is appended or patched.
	// streaming is true while the message is the in-flight placeholder.
	PublishMessage(userID string, index int, msg models.Message, streaming bool)
	// PublishChats is called after the registry changed.
	PublishChats(userID string, st state.State)
	// PublishExchangeEnd is called once the busy flag is cleared.
	PublishExchangeEnd(userID string, st state.State)
}

// Saver persists a session.
type Saver interface {
	Save(ctx context.Context, sess *session.Session) error
}

// Texts shown to the user when an exchange fails.
const (
	FallbackErrorText = "Sorry, something went wrong while getting an answer. Please try again."
	ParseFailureNote  = "\n\n[Error: the chat details sent by the server could not be read.]"
)

// metadata is the terminal payload of the answer stream: either an error raised by the backend while
// streaming, or the chat record the exchange was persisted to.
type metadata struct {
	Error string `json:"error"`
	models.Chat
}

// Orchestrator executes exchanges. The zero value is not usable; create one with New.
type Orchestrator struct {
	backend   Backend
	framer    stream.Framer
	publisher Publisher
	saver     Saver

	// timeout bounds a whole exchange when positive.
	timeout time.Duration

	logger *slog.Logger
}

// New creates an Orchestrator. A zero timeout lets an exchange run for as long as the stream stays open.
func New(
	backend Backend,
	framer stream.Framer,
	publisher Publisher,
	saver Saver,
	timeout time.Duration,
	logger *slog.Logger,
) Orchestrator {
	return Orchestrator{
		backend:   backend,
		framer:    framer,
		publisher: publisher,
		saver:     saver,
		timeout:   timeout,
		logger:    logger.With(slog.String("module", "exchange")),
	}
}

// Begin checks the preconditions of an exchange and applies its optimistic part: the session turns busy,
// the user's message is appended and the pending input is cleared. It returns the request to hand to
// Run. When a precondition fails (blank question, no URL, no identified user, exchange already in
// flight) it reports false and leaves the session untouched.
func (o Orchestrator) Begin(sess *session.Session, question string) (models.ChatRequest, bool) {
	if sess == nil || sess.UserID() == "" {
		return models.ChatRequest{}, false
	}

	var req models.ChatRequest
	st, err := sess.Apply(func(s state.State) (state.State, error) {
		next, err := s.BeginExchange(question)
		if err != nil {
			return s, err
		}
		req = s.ChatRequest(question, sess.UserID())
		return next, nil
	})
	if err != nil {
		o.logger.Debug("Send ignored", slog.String("userID", sess.UserID()), slog.String(errLoggerKey, err.Error()))
		return models.ChatRequest{}, false
	}

	last := len(st.Transcript) - 1
	o.publisher.PublishMessage(sess.UserID(), last, st.Transcript[last], false)
	return req, true
}

// Run performs the network part of an exchange started with Begin. Every failure ends up as assistant
// content in the transcript; the busy flag is cleared exactly once when Run returns.
func (o Orchestrator) Run(ctx context.Context, sess *session.Session, req models.ChatRequest) {
	defer o.end(sess)

	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	body, err := o.backend.Chat(ctx, req)
	if err != nil {
		o.logger.Error("Chat request failed",
			slog.String("userID", sess.UserID()),
			slog.String(errLoggerKey, err.Error()))
		text := failureText(err)
		o.update(sess, func(s state.State) state.State { return s.FailExchange(text) })
		return
	}
	defer body.Close()

	o.update(sess, state.State.OpenPlaceholder)

	var acc strings.Builder
	for ev, err := range o.framer.Frames(ctx, body) {
		if err != nil {
			o.logger.Error("Failed to read answer stream",
				slog.String("userID", sess.UserID()),
				slog.String(errLoggerKey, err.Error()))
			o.update(sess, func(s state.State) state.State { return s.FailExchange(FallbackErrorText) })
			return
		}

		switch ev.Kind {
		case stream.EventContent:
			acc.WriteString(ev.Text)
			content := acc.String()
			o.update(sess, func(s state.State) state.State { return s.PatchPlaceholder(content) })
		case stream.EventMetadata:
			o.terminal(sess, ev, acc.String())
		}
	}
}

func (o Orchestrator) terminal(sess *session.Session, ev stream.Event, content string) {
	meta, err := parseMetadata(ev)
	if err != nil {
		o.logger.Warn("Invalid chat metadata",
			slog.String("userID", sess.UserID()),
			slog.String(errLoggerKey, err.Error()))
		o.update(sess, func(s state.State) state.State { return s.PatchPlaceholder(content + ParseFailureNote) })
		return
	}

	if meta.Error != "" {
		o.logger.Warn("Backend reported an error while streaming",
			slog.String("userID", sess.UserID()),
			slog.String("error", meta.Error))
		o.update(sess, func(s state.State) state.State { return s.PatchPlaceholder(meta.Error) })
		return
	}

	st := o.update(sess, func(s state.State) state.State {
		return s.Reconcile(meta.Chat).PatchPlaceholder(content)
	})
	o.publisher.PublishChats(sess.UserID(), st)
}

func parseMetadata(ev stream.Event) (metadata, error) {
	if ev.ParseErr != nil {
		return metadata{}, ev.ParseErr
	}

	var meta metadata
	if err := json.Unmarshal(ev.Metadata, &meta); err != nil {
		return metadata{}, fmt.Errorf("failed to decode metadata: %w", err)
	}
	if meta.Error == "" && meta.ID == "" {
		return metadata{}, errors.New("metadata carries neither an error nor a chat id")
	}
	return meta, nil
}

// update applies a transition and publishes the message it touched: the placeholder while one exists,
// otherwise the last transcript message.
func (o Orchestrator) update(sess *session.Session, fn func(state.State) state.State) state.State {
	st := sess.Update(fn)

	idx := len(st.Transcript) - 1
	streaming := st.HasPlaceholder()
	if streaming {
		idx = st.Placeholder
	}
	if idx >= 0 {
		o.publisher.PublishMessage(sess.UserID(), idx, st.Transcript[idx], streaming)
	}
	return st
}

func (o Orchestrator) end(sess *session.Session) {
	st := sess.Update(state.State.EndExchange)
	o.publisher.PublishExchangeEnd(sess.UserID(), st)

	if err := o.saver.Save(context.Background(), sess); err != nil {
		o.logger.Error("Failed to save session",
			slog.String("userID", sess.UserID()),
			slog.String(errLoggerKey, err.Error()))
	}
}

func failureText(err error) string {
	var apiErr *models.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return FallbackErrorText
}

const errLoggerKey = "err"
