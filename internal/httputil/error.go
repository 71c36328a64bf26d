package httputil

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/npearse/matchhall/internal/game"
)

// inputErrs are reported to the caller verbatim and never retried.
var inputErrs = []error{
	game.ErrInvalidSizeFormat,
	game.ErrSideTooLarge,
	game.ErrTotalTooLarge,
	game.ErrInvalidDuration,
	game.ErrInvalidDrawSize,
	game.ErrUnknownTribe,
	game.ErrKickSelf,
}

// conflictErrs are expected outcomes of normal concurrent use.
var conflictErrs = []error{
	game.ErrMatchFull,
	game.ErrSideFull,
	game.ErrAlreadyJoined,
	game.ErrNotInMatch,
	game.ErrNotFull,
	game.ErrNotPending,
	game.ErrTooManyOpenGames,
	game.ErrNameRequired,
	game.ErrInsufficientPool,
	game.ErrPlayerUnavailable,
	game.ErrHostCannotLeave,
}

// WriteError maps a domain error onto an HTTP response. Conflicts and
// input errors carry their message; authorization failures carry none;
// anything unclassified is logged and reported generically.
func WriteError(w http.ResponseWriter, err error) {
	switch {
	case matches(err, inputErrs):
		writeJSONError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, game.ErrNotFound) || errors.Is(err, game.ErrSideNotFound):
		writeJSONError(w, http.StatusNotFound, err.Error())
	case matches(err, conflictErrs):
		writeJSONError(w, http.StatusConflict, err.Error())
	case errors.Is(err, game.ErrNotAuthorized):
		writeJSONError(w, http.StatusForbidden, "not permitted")
	default:
		slog.Error("internal error", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "internal server error")
	}
}

func BadRequest(w http.ResponseWriter, msg string, err error) {
	if err != nil {
		slog.Warn("bad request", "message", msg, "error", err)
	} else {
		slog.Warn("bad request", "message", msg)
	}
	writeJSONError(w, http.StatusBadRequest, msg)
}

func NotFound(w http.ResponseWriter, msg string) {
	writeJSONError(w, http.StatusNotFound, msg)
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	WriteJSON(w, status, map[string]string{"error": msg})
}

func matches(err error, targets []error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
