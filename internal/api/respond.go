package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/astrocast/astrocast/internal/ai"
	"github.com/astrocast/astrocast/internal/climate"
	"github.com/astrocast/astrocast/internal/geocoding"
	"github.com/astrocast/astrocast/internal/httputil"
	"github.com/astrocast/astrocast/internal/nasapower"
	"github.com/astrocast/astrocast/internal/openweather"
	"github.com/astrocast/astrocast/internal/planner"
)

type errorBody struct {
	Error     string   `json:"error"`
	Problems  []string `json:"problems,omitempty"`
	RequestID string   `json:"request_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	body := errorBody{Error: err.Error(), RequestID: RequestID(r.Context())}
	var verr *climate.ValidationError
	if errors.As(err, &verr) {
		body.Problems = verr.Problems
	}
	if status >= http.StatusInternalServerError {
		s.logger.Warn().Err(err).Str("request_id", body.RequestID).Str("path", r.URL.Path).Msg("request failed")
	}
	writeJSON(w, status, body)
}

// statusFor maps domain and upstream errors to HTTP statuses. Anything
// unrecognised is treated as an upstream failure.
func statusFor(err error) int {
	var verr *climate.ValidationError
	switch {
	case errors.As(err, &verr),
		errors.Is(err, planner.ErrCityRequired),
		errors.Is(err, planner.ErrInvalidDate),
		errors.Is(err, planner.ErrInvalidMonth),
		errors.Is(err, planner.ErrInvalidPoint),
		errors.Is(err, planner.ErrTooManyCities),
		errors.Is(err, planner.ErrQuestionRequired),
		errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, openweather.ErrCityNotFound),
		errors.Is(err, geocoding.ErrNotFound),
		errors.Is(err, planner.ErrNoForecast),
		errors.Is(err, planner.ErrInsufficientClimate),
		errors.Is(err, nasapower.ErrNoData):
		return http.StatusNotFound
	case errors.Is(err, openweather.ErrNotConfigured),
		errors.Is(err, ai.ErrNotConfigured),
		errors.Is(err, httputil.ErrCircuitOpen):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}
