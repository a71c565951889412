package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/xwsync/internal/api/handler"
	"github.com/mcoot/xwsync/internal/api/middleware"
	"github.com/mcoot/xwsync/internal/api/sse"
	"github.com/mcoot/xwsync/internal/services/dictionary"
	"github.com/mcoot/xwsync/internal/services/session"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger     *slog.Logger
	Sessions   *session.Manager
	Dictionary *dictionary.Service
	// Events serves /games/{id}/events; nil disables the stream
	Events *sse.HubManager
}

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	// Create handlers
	gameHandler := handler.NewGameHandler(cfg.Sessions, cfg.Events, cfg.Logger)

	// Create middleware
	loggingMiddleware := middleware.Logging(cfg.Logger)
	recoveryMiddleware := middleware.Recovery(cfg.Logger)

	// API subrouter with common middleware
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(recoveryMiddleware)
	api.Use(loggingMiddleware)

	api.HandleFunc("/health", handler.Health(cfg.Dictionary)).Methods(http.MethodGet)

	games := api.PathPrefix("/games").Subrouter()
	games.HandleFunc("", gameHandler.List).Methods(http.MethodGet)
	games.HandleFunc("", gameHandler.Create).Methods(http.MethodPost)
	games.HandleFunc("/host", gameHandler.Host).Methods(http.MethodPost)
	games.HandleFunc("/join", gameHandler.Join).Methods(http.MethodPost)
	games.HandleFunc("/{id}", gameHandler.Get).Methods(http.MethodGet)
	games.HandleFunc("/{id}", gameHandler.Delete).Methods(http.MethodDelete)
	games.HandleFunc("/{id}/stack", gameHandler.Stack).Methods(http.MethodGet)
	games.HandleFunc("/{id}/play", gameHandler.Play).Methods(http.MethodPost)
	games.HandleFunc("/{id}/actions", gameHandler.Act).Methods(http.MethodPost)
	games.HandleFunc("/{id}/ws", gameHandler.Socket).Methods(http.MethodGet)
	games.HandleFunc("/{id}/events", gameHandler.Events).Methods(http.MethodGet)

	return r
}
