package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/Admissions/internal/scoring"
	"github.com/MikeSquared-Agency/Admissions/internal/store"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeError maps domain errors to status codes. Unexpected errors are
// logged and reported without detail.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	switch {
	case errors.Is(err, scoring.ErrInvalidInput):
		writeMessage(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrNotFound):
		writeMessage(w, http.StatusNotFound, err.Error())
	case errors.Is(err, store.ErrConflict):
		writeMessage(w, http.StatusConflict, err.Error())
	default:
		logger.Error("request failed", "error", err)
		writeMessage(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: invalid request body: %v", scoring.ErrInvalidInput, err)
	}
	return nil
}

func urlID(r *http.Request, param string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid %s", scoring.ErrInvalidInput, param)
	}
	return id, nil
}

// loadPeriod fetches a period, writing 404 when it does not exist.
func loadPeriod(w http.ResponseWriter, r *http.Request, s store.Store, logger *slog.Logger, id uuid.UUID) (*store.Period, bool) {
	p, err := s.GetPeriod(r.Context(), id)
	if err != nil {
		writeError(w, logger, err)
		return nil, false
	}
	if p == nil {
		writeMessage(w, http.StatusNotFound, "period not found")
		return nil, false
	}
	return p, true
}

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", scoring.ErrInvalidInput, fmt.Sprintf(format, args...))
}

var unsafeFilename = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

// attachment sets the headers for an xlsx download named after prefix and label.
func attachment(w http.ResponseWriter, prefix, label string) {
	name := prefix
	if s := unsafeFilename.ReplaceAllString(label, "-"); s != "" {
		name += "-" + s
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.xlsx"`, name))
}
