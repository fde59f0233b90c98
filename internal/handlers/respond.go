package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/Shreya-nipunge/Glowra/internal/models"
)

const maxBodyBytes = 1 << 20

// envelope is the shape of every API response.
type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data"`
	Message string `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondOK(w http.ResponseWriter, data any, message string) {
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: data, Message: message})
}

func respondFail(w http.ResponseWriter, status int, data any, message string) {
	writeJSON(w, status, envelope{Success: false, Data: data, Message: message})
}

// respondError maps service errors onto status codes. Unexpected errors are
// logged and reported with a generic message.
func respondError(w http.ResponseWriter, r *http.Request, log *zap.Logger, err error) {
	switch {
	case errors.Is(err, models.ErrValidation):
		respondFail(w, http.StatusBadRequest, nil, err.Error())
	case errors.Is(err, models.ErrNotFound):
		respondFail(w, http.StatusNotFound, nil, err.Error())
	case errors.Is(err, models.ErrAlreadyTerminal):
		respondFail(w, http.StatusConflict, nil, err.Error())
	case errors.Is(err, models.ErrDependencyUnavailable):
		log.Warn("dependency unavailable",
			zap.String("path", r.URL.Path),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(err),
		)
		respondFail(w, http.StatusServiceUnavailable, nil, "service temporarily unavailable, please retry")
	default:
		log.Error("request failed",
			zap.String("path", r.URL.Path),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(err),
		)
		respondFail(w, http.StatusInternalServerError, nil, "could not complete the operation")
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: invalid request body", models.ErrValidation)
	}
	return nil
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", models.ErrValidation, key)
	}
	return n, nil
}

// queryTime accepts RFC 3339 timestamps and YYYY-MM-DD dates.
func queryTime(r *http.Request, key string) (time.Time, error) {
	v := strings.TrimSpace(r.URL.Query().Get(key))
	if v == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse(time.DateOnly, v); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("%w: invalid '%s' date format", models.ErrValidation, key)
}

func timePtr(t time.Time) *string {
	if t.IsZero() {
		return nil
	}
	s := t.Format(time.RFC3339)
	return &s
}
