package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/mcdev12/retroboard/go/internal/board"
	"github.com/mcdev12/retroboard/go/internal/eventlog"
	"github.com/mcdev12/retroboard/go/internal/timer"
	"github.com/rs/zerolog/log"
)

const maxBodyBytes = 1 << 20

type errorResponse struct {
	Error        string  `json:"error"`
	ControlledBy *string `json:"controlled_by,omitempty"`
}

func respondJSON(w http.ResponseWriter, data any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

func respondError(w http.ResponseWriter, msg string, status int) {
	respondJSON(w, errorResponse{Error: msg}, status)
}

// respondErr maps a domain error onto a status code. Anything unrecognised
// is logged and reported as a 500 without leaking the cause.
func respondErr(w http.ResponseWriter, r *http.Request, err error) {
	var conflict *timer.ConflictError
	switch {
	case errors.As(err, &conflict):
		resp := errorResponse{Error: "timer is controlled by another client"}
		if conflict.Holder != "" {
			holder := conflict.Holder
			resp.ControlledBy = &holder
		} else {
			resp.Error = "no active timer for this client"
		}
		respondJSON(w, resp, http.StatusForbidden)
	case errors.Is(err, board.ErrInvalidArgument),
		errors.Is(err, timer.ErrInvalidArgument),
		errors.Is(err, eventlog.ErrInvalidSession):
		respondError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, board.ErrNotFound):
		respondError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, board.ErrDuplicateVote),
		errors.Is(err, timer.ErrInvalidState):
		respondError(w, err.Error(), http.StatusConflict)
	default:
		log.Error().
			Err(err).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Msg("request failed")
		respondError(w, "internal server error", http.StatusInternalServerError)
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: invalid request body", board.ErrInvalidArgument)
	}
	return nil
}
