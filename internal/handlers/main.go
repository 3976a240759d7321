package handlers

import (
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"sync"
	"time"

	docchatui "github.com/MegaGrindStone/docchat-web-ui"
	"github.com/MegaGrindStone/docchat-web-ui/internal/exchange"
	"github.com/MegaGrindStone/docchat-web-ui/internal/models"
	"github.com/MegaGrindStone/docchat-web-ui/internal/session"
	"github.com/MegaGrindStone/docchat-web-ui/internal/stream"
	"github.com/tmaxmax/go-sse"
)

// Backend is the remote chat backend. Besides answering questions, it lists, renames and deletes the
// chats it persisted for a user.
type Backend interface {
	exchange.Backend

	Chats(ctx context.Context, userID string) ([]models.Chat, error)
	RenameChat(ctx context.Context, chatID, userID, title string) (models.Chat, error)
	DeleteChat(ctx context.Context, chatID, userID string) error
}

// Identity resolves the user behind a request. It reports false when the request is not identified.
type Identity interface {
	UserID(r *http.Request) (string, bool)
}

// Main handles the web interface: it renders the pages, applies the user's actions to their session and
// starts question/answer exchanges whose progress is pushed to the browser through server-sent events.
type Main struct {
	sseSrv    *sse.Server
	templates *template.Template
	publisher ssePublisher

	backend      Backend
	sessions     *session.Manager
	identity     Identity
	orchestrator exchange.Orchestrator

	// ctx outlives requests and is canceled on shutdown, ending in-flight exchanges.
	ctx       context.Context
	cancel    context.CancelFunc
	exchanges *exchangeGroup

	logger *slog.Logger
}

const errLoggerKey = "err"

// NewMain creates a new Main instance. It parses the HTML templates from the embedded filesystem and
// configures the SSE server so every browser subscribes to the topic of its own user. framer selects how
// the answer stream of the backend is decoded; a positive streamTimeout bounds each exchange.
func NewMain(
	backend Backend,
	framer stream.Framer,
	sessions *session.Manager,
	identity Identity,
	streamTimeout time.Duration,
	logger *slog.Logger,
) (Main, error) {
	// We parse templates from three distinct directories to separate layout, pages, and partial views
	tmpl, err := template.New("").Funcs(templateFuncs).ParseFS(
		docchatui.TemplateFS,
		"templates/layout/*.html",
		"templates/pages/*.html",
		"templates/partials/*.html",
	)
	if err != nil {
		return Main{}, err
	}

	logger = logger.With(slog.String("module", "handlers"))

	sseSrv := &sse.Server{
		OnSession: func(s *sse.Session) (sse.Subscription, bool) {
			userID, ok := identity.UserID(s.Req)
			if !ok {
				return sse.Subscription{}, false
			}
			return sse.Subscription{
				Client:      s,
				LastEventID: s.LastEventID,
				Topics:      []string{sse.DefaultTopic, userTopic(userID)},
			}, true
		},
	}

	publisher := ssePublisher{
		srv:       sseSrv,
		templates: tmpl,
		logger:    logger,
	}

	ctx, cancel := context.WithCancel(context.Background())

	return Main{
		sseSrv:       sseSrv,
		templates:    tmpl,
		publisher:    publisher,
		backend:      backend,
		sessions:     sessions,
		identity:     identity,
		orchestrator: exchange.New(backend, framer, publisher, sessions, streamTimeout, logger),
		ctx:          ctx,
		cancel:       cancel,
		exchanges:    &exchangeGroup{},
		logger:       logger,
	}, nil
}

// exchangeGroup tracks running exchanges. Once closed, no new exchange may start.
type exchangeGroup struct {
	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

func (g *exchangeGroup) start() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return false
	}
	g.wg.Add(1)
	return true
}

func (g *exchangeGroup) done() {
	g.wg.Done()
}

func (g *exchangeGroup) close() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.closed = true
}

func (g *exchangeGroup) wait() {
	g.wg.Wait()
}

func userTopic(userID string) string {
	return fmt.Sprintf("user-%s", userID)
}

// HandleSSE serves the event stream the browser subscribes to.
func (m Main) HandleSSE(w http.ResponseWriter, r *http.Request) {
	m.sseSrv.ServeHTTP(w, r)
}

// Shutdown cancels in-flight exchanges and waits for them to record their outcome, persists every
// session, then terminates the SSE server. It broadcasts a close message to all connected clients and
// waits up to 5 seconds for connections to terminate.
func (m Main) Shutdown(ctx context.Context) error {
	m.exchanges.close()
	m.cancel()

	done := make(chan struct{})
	go func() {
		m.exchanges.wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		m.logger.Warn("Exchanges still running at shutdown")
	}

	if err := m.sessions.SaveAll(ctx); err != nil {
		m.logger.Error("Failed to save sessions", slog.String(errLoggerKey, err.Error()))
	}

	e := &sse.Message{Type: sse.Type("closeChat")}
	// Every SSE event must carry data
	e.AppendData("bye")

	// We ignore the error here since we're shutting down anyway
	_ = m.sseSrv.Publish(e)

	ctx, cancel := context.WithTimeout(ctx, time.Second*5)
	defer cancel()

	return m.sseSrv.Shutdown(ctx)
}

// session resolves the session of the identified user. It writes the error response and reports false
// when the request cannot be served.
func (m Main) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	userID, ok := m.identity.UserID(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return nil, false
	}

	sess, err := m.sessions.Get(r.Context(), userID)
	if err != nil {
		m.logger.Error("Failed to get session",
			slog.String("userID", userID),
			slog.String(errLoggerKey, err.Error()))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return nil, false
	}
	return sess, true
}

func (m Main) save(r *http.Request, sess *session.Session) {
	if err := m.sessions.Save(r.Context(), sess); err != nil {
		m.logger.Error("Failed to save session",
			slog.String("userID", sess.UserID()),
			slog.String(errLoggerKey, err.Error()))
	}
}

func redirectHome(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
