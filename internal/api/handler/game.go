package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/xwsync/internal/api/apierr"
	"github.com/mcoot/xwsync/internal/api/request"
	"github.com/mcoot/xwsync/internal/api/response"
	"github.com/mcoot/xwsync/internal/api/sse"
	"github.com/mcoot/xwsync/internal/model"
	"github.com/mcoot/xwsync/internal/services/session"
)

// GameHandler handles game-related endpoints
type GameHandler struct {
	sessions *session.Manager
	hubs     *sse.HubManager
	logger   *slog.Logger
}

// NewGameHandler creates a new game handler. hubs may be nil, which turns
// the event stream off.
func NewGameHandler(sessions *session.Manager, hubs *sse.HubManager, logger *slog.Logger) *GameHandler {
	return &GameHandler{
		sessions: sessions,
		hubs:     hubs,
		logger:   logger.With(slog.String("component", "game-handler")),
	}
}

func gameID(r *http.Request) model.GameID {
	return model.GameID(mux.Vars(r)["id"])
}

// decode reads an optional JSON body; an empty body leaves v untouched
func decode(r *http.Request, v any) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return NewInvalidRequestError("invalid request body")
}

func (h *GameHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if apierr.Status(err) >= http.StatusInternalServerError {
		h.logger.Error("request failed",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
	}
	WriteError(w, err)
}

// List handles GET /api/v1/games
func (h *GameHandler) List(w http.ResponseWriter, r *http.Request) {
	recs, err := h.sessions.List(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, response.GameListFromRecords(recs))
}

// Create handles POST /api/v1/games
func (h *GameHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req request.CreateGameRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	if len(req.Players) == 0 {
		h.fail(w, r, NewInvalidRequestError("at least one player is required"))
		return
	}

	s, err := h.sessions.Create(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.JSON(w, http.StatusCreated, s.Summary())
}

// Host handles POST /api/v1/games/host. Guests reach the game through
// /api/v1/games/{id}/ws or, over redis, through its host device channel.
func (h *GameHandler) Host(w http.ResponseWriter, r *http.Request) {
	var req request.CreateGameRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	s, err := h.sessions.Host(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.JSON(w, http.StatusCreated, s.Summary())
}

// Join handles POST /api/v1/games/join
func (h *GameHandler) Join(w http.ResponseWriter, r *http.Request) {
	var req request.JoinGameRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	if req.HostURL == "" && req.GameID == "" {
		h.fail(w, r, NewInvalidRequestError("host_url or game_id is required"))
		return
	}

	s, err := h.sessions.Join(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.JSON(w, http.StatusCreated, s.Summary())
}

// Get handles GET /api/v1/games/{id}
func (h *GameHandler) Get(w http.ResponseWriter, r *http.Request) {
	s, err := h.sessions.Get(r.Context(), gameID(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, s.Summary())
}

// Delete handles DELETE /api/v1/games/{id}
func (h *GameHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := gameID(r)
	if err := h.sessions.Delete(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	if h.hubs != nil {
		h.hubs.RemoveHub(id)
	}
	response.NoContent(w)
}

// Stack handles GET /api/v1/games/{id}/stack
func (h *GameHandler) Stack(w http.ResponseWriter, r *http.Request) {
	id := gameID(r)
	s, err := h.sessions.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, response.Stack{ID: string(id), Entries: s.Stack()})
}

// Play handles POST /api/v1/games/{id}/play, running robots until the game ends
func (h *GameHandler) Play(w http.ResponseWriter, r *http.Request) {
	s, err := h.sessions.PlayRobots(r.Context(), gameID(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, response.PlayResponse{Game: s.Summary(), Moves: s.Moves()})
}

// Act handles POST /api/v1/games/{id}/actions
func (h *GameHandler) Act(w http.ResponseWriter, r *http.Request) {
	var req request.ActionRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	if req.Kind == "" {
		h.fail(w, r, NewInvalidRequestError("kind is required"))
		return
	}

	s, err := h.sessions.Get(r.Context(), gameID(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := s.Play(r.Context(), req); err != nil {
		h.fail(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, response.PlayResponse{Game: s.Summary(), Moves: s.Moves()})
}

// Socket handles GET /api/v1/games/{id}/ws, upgrading a guest device's
// connection onto the hosted game's transport
func (h *GameHandler) Socket(w http.ResponseWriter, r *http.Request) {
	t, err := h.sessions.Transport(r.Context(), gameID(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	t.Handler().ServeHTTP(w, r)
}

// Events handles GET /api/v1/games/{id}/events, streaming each change to
// the game as a server-sent event
func (h *GameHandler) Events(w http.ResponseWriter, r *http.Request) {
	if h.hubs == nil {
		h.fail(w, r, fmt.Errorf("event streams are disabled: %w", model.ErrWrongState))
		return
	}
	id := gameID(r)
	s, err := h.sessions.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	sse.ServeSSE(w, r, h.hubs.GetOrCreateHub(id), sse.UpdateMessage(s.Current()))
}
