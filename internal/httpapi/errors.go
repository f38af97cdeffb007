package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/park285/chess-coach/internal/archive"
	"github.com/park285/chess-coach/internal/coach"
	"github.com/park285/chess-coach/internal/rules"
	"github.com/park285/chess-coach/pkg/coachdto"
)

var (
	errBadRequest  = errors.New("invalid request body")
	errInvalidSide = errors.New("side must be white or black")

	errGameArchiveDisabled = errors.New("game archive is not configured")
)

type errorMapping struct {
	target error
	status int
	code   string
}

var errorTable = []errorMapping{
	{coach.ErrSessionNotFound, http.StatusNotFound, "session_not_found"},
	{archive.ErrNotFound, http.StatusNotFound, "game_not_found"},
	{errGameArchiveDisabled, http.StatusNotFound, "archive_disabled"},
	{errBadRequest, http.StatusBadRequest, "bad_request"},
	{coach.ErrInvalidMode, http.StatusBadRequest, "invalid_mode"},
	{errInvalidSide, http.StatusBadRequest, "invalid_side"},
	{coach.ErrEmptyMessage, http.StatusBadRequest, "empty_message"},
	{rules.ErrIllegalMove, http.StatusBadRequest, "illegal_move"},
	{coach.ErrNoMatch, http.StatusConflict, "no_match"},
	{coach.ErrGameOver, http.StatusConflict, "game_over"},
	{coach.ErrBusy, http.StatusConflict, "busy"},
	{coach.ErrNotYourTurn, http.StatusConflict, "not_your_turn"},
	{coach.ErrNoActiveContext, http.StatusConflict, "no_active_context"},
	{coach.ErrChatInFlight, http.StatusConflict, "chat_in_flight"},
	{coach.ErrRetryNotAllowed, http.StatusConflict, "retry_not_allowed"},
	{coach.ErrSessionCorrupted, http.StatusConflict, "session_corrupted"},
}

func classify(err error) (int, string) {
	for _, m := range errorTable {
		if errors.Is(err, m.target) {
			return m.status, m.code
		}
	}
	return http.StatusInternalServerError, "internal"
}

func writeError(w http.ResponseWriter, err error) {
	status, code := classify(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	writeJSON(w, status, coachdto.ErrorBody{Error: msg, Code: code})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10))
	if err := dec.Decode(dst); err != nil {
		return errBadRequest
	}
	return nil
}
