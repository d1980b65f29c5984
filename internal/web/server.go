package web

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/PatrickWalther/wordle-timer-go/internal/config"
	"github.com/PatrickWalther/wordle-timer-go/internal/history"
	"github.com/PatrickWalther/wordle-timer-go/internal/puzzle"
)

// GameLister exposes the tracker's current games.
type GameLister interface {
	Snapshot() []puzzle.GameSummary
}

// CompletionStore reads recorded completions.
type CompletionStore interface {
	ByDay(ctx context.Context, day string) ([]history.Entry, error)
	Recent(ctx context.Context, limit int) ([]history.Entry, error)
}

type Server struct {
	host     string
	port     int
	location *time.Location
	now      func() time.Time

	games  GameLister
	store  CompletionStore
	hub    *history.Hub
	status *StatusBroadcaster
	server *http.Server
}

// NewServer builds the status server. store may be nil when history is
// disabled; the completion endpoints then report 503.
func NewServer(settings config.WebSettings, loc *time.Location, games GameLister, store CompletionStore, hub *history.Hub) *Server {
	if loc == nil {
		loc = time.UTC
	}
	if hub == nil {
		hub = history.NewHub()
	}
	return &Server{
		host:     settings.Host,
		port:     settings.Port,
		location: loc,
		now:      time.Now,
		games:    games,
		store:    store,
		hub:      hub,
		status:   NewStatusBroadcaster(),
	}
}

func (s *Server) GetStatusBroadcaster() *StatusBroadcaster {
	return s.status
}

func getAuthCredentials() (username, password string) {
	return os.Getenv("DASHBOARD_USERNAME"), os.Getenv("DASHBOARD_PASSWORD")
}

func authEnabled() bool {
	username, password := getAuthCredentials()
	return username != "" && password != ""
}

func basicAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		expectedUser, expectedPass := getAuthCredentials()
		if expectedUser == "" || expectedPass == "" {
			next.ServeHTTP(w, r)
			return
		}

		user, pass, ok := r.BasicAuth()
		if !ok || user != expectedUser || pass != expectedPass {
			w.Header().Set("WWW-Authenticate", `Basic realm="Wordle Timer"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Handler returns the router with every route mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	if authEnabled() {
		r.Use(basicAuthMiddleware)
		slog.Info("Web server authentication enabled")
	}

	r.Get("/api/status", s.handleAPIStatus)
	r.Get("/api/bot-status", s.handleAPIBotStatus)
	r.Get("/api/bot-status/stream", s.handleAPIBotStatusStream)

	r.Get("/api/games", s.handleAPIGames)
	r.Get("/api/completions", s.handleAPICompletions)
	r.Get("/api/completions/recent", s.handleAPIRecentCompletions)

	r.Get("/ws", s.handleWebsocket)

	return r
}

func (s *Server) Start() {
	addr := fmt.Sprintf("%s:%d", s.host, s.port)

	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	slog.Info("Web server starting", "url", "http://"+addr+"/")

	go func() {
		if err := s.server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Web server error", "error", err)
		}
	}()
}

func (s *Server) Stop(ctx context.Context) {
	if s.server == nil {
		return
	}
	if err := s.server.Shutdown(ctx); err != nil {
		slog.Warn("Web server shutdown incomplete", "error", err)
		_ = s.server.Close()
	}
}
