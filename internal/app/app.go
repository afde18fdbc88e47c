package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/cors"
	"golang.org/x/time/rate"

	"github.com/felixbrock/crayon/internal/domain"
)

const (
	sessionCookie    = "sessionId"
	sessionMaxAge    = 400 * 24 * 60 * 60
	jsonContentType  = "application/json"
	shutdownDeadline = 15 * time.Second

	// SessionIdleTimeout is how long a session's workflow is kept after its
	// last request.
	SessionIdleTimeout = 24 * time.Hour
	sweepInterval      = time.Hour
)

type App struct {
	Assistant Assistant
	Logger    Logger
	Config    Config

	mu       sync.Mutex
	sessions map[string]*sessionEntry
	now      func() time.Time
}

// sessionEntry holds the workflow of one browser tab's session and the
// limiter guarding its completion calls.
type sessionEntry struct {
	workflow *Workflow
	limiter  *rate.Limiter
	lastSeen time.Time
}

func New(assistant Assistant, logger Logger, config Config) *App {
	return &App{
		Assistant: assistant,
		Logger:    logger,
		Config:    config,
		sessions:  map[string]*sessionEntry{},
		now:       time.Now,
	}
}

func (a *App) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.Handle("/static/",
		http.StripPrefix("/static/", http.FileServer(http.Dir("static"))))
	mux.Handle("/", ComponentHandler(a.index))
	mux.Handle("/evaluate", ComponentHandler(a.evaluate))
	mux.Handle("/objectives", ComponentHandler(a.submitPurpose))
	mux.Handle("/objectives/toggle", ComponentHandler(a.toggleObjective))
	mux.Handle("/objectives/add", ComponentHandler(a.addObjective))
	mux.Handle("/prompt", ComponentHandler(a.generatePrompt))
	mux.Handle("/state", ComponentHandler(a.state))

	// Credentials are only allowed for explicitly configured origins.
	origins := a.Config.AllowedOrigins
	credentials := len(origins) > 0
	if !credentials {
		origins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "HX-Request", "HX-Target", "HX-Current-URL"},
		AllowCredentials: credentials,
	})

	return c.Handler(mux)
}

// Start serves until ctx is cancelled, then drains requests and pending
// interaction log writes.
func (a *App) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              ":" + a.Config.Port,
		Handler:           a.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go a.sweep(ctx, sweepInterval, SessionIdleTimeout)

	errCh := make(chan error, 1)
	go func() {
		slog.Info(fmt.Sprintf("App running on %s...", a.Config.Port))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownDeadline)
	defer cancel()

	err := srv.Shutdown(shutdownCtx)

	if w, ok := a.Logger.(interface{ Wait() }); ok {
		w.Wait()
	}

	return err
}

// sessionId returns the request's sessionId cookie, issuing a new id when
// the browser has none yet.
func (a *App) sessionId(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(sessionCookie); err == nil && c.Value != "" {
		return c.Value
	}

	id := uuid.New().String()
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    id,
		Path:     "/",
		MaxAge:   sessionMaxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

// lookup returns the entry of the request's session, or nil when it has no
// workflow yet. It never allocates one.
func (a *App) lookup(w http.ResponseWriter, r *http.Request) *sessionEntry {
	id := a.sessionId(w, r)

	a.mu.Lock()
	defer a.mu.Unlock()

	entry, ok := a.sessions[id]
	if !ok {
		return nil
	}
	entry.lastSeen = a.clock()
	return entry
}

// session returns the entry of the request's session, creating its workflow
// and limiter on first use.
func (a *App) session(w http.ResponseWriter, r *http.Request) *sessionEntry {
	id := a.sessionId(w, r)

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.sessions == nil {
		a.sessions = map[string]*sessionEntry{}
	}

	entry, ok := a.sessions[id]
	if !ok {
		session := domain.Session{Id: id, UserAgent: r.UserAgent()}
		entry = &sessionEntry{
			workflow: NewWorkflow(a.Assistant, a.Logger, session, a.Config.CompletionTimeout),
			limiter:  rate.NewLimiter(a.rateLimit(), a.Config.RateBurst),
		}
		a.sessions[id] = entry
	}
	entry.lastSeen = a.clock()

	return entry
}

// evictIdle drops sessions whose last request is older than maxIdle and
// returns how many were dropped. Sessions with a step in flight are kept.
func (a *App) evictIdle(maxIdle time.Duration) int {
	cutoff := a.clock().Add(-maxIdle)

	a.mu.Lock()
	defer a.mu.Unlock()

	evicted := 0
	for id, entry := range a.sessions {
		if entry.lastSeen.After(cutoff) || entry.workflow.Snapshot().State.busy() {
			continue
		}
		delete(a.sessions, id)
		evicted++
	}
	return evicted
}

func (a *App) sweep(ctx context.Context, interval time.Duration, maxIdle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := a.evictIdle(maxIdle); n > 0 {
				slog.Debug("evicted idle sessions", "count", n)
			}
		}
	}
}

func (a *App) clock() time.Time {
	if a.now == nil {
		return time.Now()
	}
	return a.now()
}

func (a *App) rateLimit() rate.Limit {
	if a.Config.RateLimit <= 0 {
		return rate.Inf
	}
	return rate.Limit(a.Config.RateLimit)
}
