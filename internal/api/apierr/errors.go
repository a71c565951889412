package apierr

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mcoot/xwsync/internal/model"
)

// APIError represents an API error response
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse wraps an APIError
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// Common error codes
const (
	CodeInvalidRequest   = "INVALID_REQUEST"
	CodeInvalidPosition  = "INVALID_POSITION"
	CodeInvalidMove      = "INVALID_MOVE"
	CodeInvalidTiles     = "INVALID_TILES"
	CodeNotYourTurn      = "NOT_YOUR_TURN"
	CodeGameNotFound     = "GAME_NOT_FOUND"
	CodeGameOver         = "GAME_OVER"
	CodeWrongState       = "WRONG_STATE"
	CodeNothingToUndo    = "NOTHING_TO_UNDO"
	CodeGameStalled      = "GAME_STALLED"
	CodeSnapshotCorrupt  = "SNAPSHOT_CORRUPT"
	CodeSnapshotMismatch = "SNAPSHOT_MISMATCH"
	CodeInternalError    = "INTERNAL_ERROR"
)

// httpError combines an HTTP status code with an APIError
type httpError struct {
	status   int
	apiError APIError
}

// Error implements error interface
func (e *httpError) Error() string {
	return e.apiError.Message
}

// WriteError writes an error response to the response writer
func WriteError(w http.ResponseWriter, err error) {
	he := toHTTPError(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(he.status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: he.apiError})
}

// Status returns the HTTP status an error maps to
func Status(err error) int {
	return toHTTPError(err).status
}

// toHTTPError converts an error to an httpError. Move errors carry the
// model's message so players see why a placement was refused.
func toHTTPError(err error) *httpError {
	// Check for specific error types
	var he *httpError
	if errors.As(err, &he) {
		return he
	}

	// Map model errors
	switch {
	case errors.Is(err, model.ErrGameNotFound):
		return &httpError{http.StatusNotFound, APIError{CodeGameNotFound, "Game not found"}}
	case errors.Is(err, model.ErrNotYourTurn):
		return &httpError{http.StatusForbidden, APIError{CodeNotYourTurn, "Not your turn"}}
	case errors.Is(err, model.ErrGameOver):
		return &httpError{http.StatusConflict, APIError{CodeGameOver, "Game is over"}}
	case errors.Is(err, model.ErrGameStalled):
		return &httpError{http.StatusConflict, APIError{CodeGameStalled, "Game is waiting for a human player"}}
	case errors.Is(err, model.ErrNothingToUndo), errors.Is(err, model.ErrCantUndoTileAssign):
		return &httpError{http.StatusConflict, APIError{CodeNothingToUndo, err.Error()}}
	case errors.Is(err, model.ErrInvalidPosition), errors.Is(err, model.ErrCellOccupied):
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidPosition, err.Error()}}
	case errors.Is(err, model.ErrNoTilesPlaced),
		errors.Is(err, model.ErrTilesNotInLine),
		errors.Is(err, model.ErrNoEmptiesInTurn),
		errors.Is(err, model.ErrTwoTilesFirstMove),
		errors.Is(err, model.ErrTilesMustContact):
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidMove, err.Error()}}
	case errors.Is(err, model.ErrBadTrayIndex),
		errors.Is(err, model.ErrBlankFaceMissing),
		errors.Is(err, model.ErrTilesNotInPool),
		errors.Is(err, model.ErrTooFewTilesToTrade):
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidTiles, err.Error()}}
	case errors.Is(err, model.ErrInvalidPlayer),
		errors.Is(err, model.ErrNoPlayers),
		errors.Is(err, model.ErrTooManyPlayers):
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidRequest, err.Error()}}
	case errors.Is(err, model.ErrWrongState),
		errors.Is(err, model.ErrCantRematch),
		errors.Is(err, model.ErrRegistrationFull):
		return &httpError{http.StatusConflict, APIError{CodeWrongState, err.Error()}}
	case errors.Is(err, model.ErrSnapshotCorrupt):
		return &httpError{http.StatusInternalServerError, APIError{CodeSnapshotCorrupt, "Stored game is corrupt"}}
	case errors.Is(err, model.ErrBadVersion), errors.Is(err, model.ErrTileSetMismatch):
		return &httpError{http.StatusConflict, APIError{CodeSnapshotMismatch, err.Error()}}

	default:
		return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
	}
}

// NewInvalidRequestError creates an invalid request error
func NewInvalidRequestError(message string) error {
	return &httpError{http.StatusBadRequest, APIError{CodeInvalidRequest, message}}
}

// NewInternalError creates an internal server error
func NewInternalError() error {
	return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
}
