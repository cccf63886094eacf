package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/astrocast/astrocast/internal/ai"
	"github.com/astrocast/astrocast/internal/climate"
	"github.com/astrocast/astrocast/internal/models"
	"github.com/astrocast/astrocast/internal/planner"
)

var errBadRequest = errors.New("bad request")

const maxAskBody = 16 << 10

func (s *Server) handleAPIPlan(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	p, err := s.planner.Plan(r.Context(), q.Get("city"), q.Get("date"), planner.PlanOptions{
		Summary: truthy(q.Get("summary")),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleAPICompare(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	day, err := planner.ParseWeekendDay(q.Get("day"))
	if err != nil {
		s.writeError(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	cmp, err := s.planner.Compare(r.Context(), cityList(q), day)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cmp)
}

func (s *Server) handleAPIHistorical(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	now := s.now()
	year, err := intParam(q, "year", now.Year())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	month, err := intParam(q, "month", int(now.Month()))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	h, err := s.planner.Historical(r.Context(), q.Get("city"), year, month)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h)
}

func (s *Server) handleAPIPollution(w http.ResponseWriter, r *http.Request) {
	aq, err := s.planner.Pollution(r.Context(), r.URL.Query().Get("city"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		*models.AirQuality
		Label string `json:"aqi_label"`
	}{aq, models.AQILabel(aq.AQI)})
}

func (s *Server) handleAPIClimate(w http.ResponseWriter, r *http.Request) {
	req, err := s.climateRequest(r.URL.Query())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.planner.Climate(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleAPIPin(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lat, err := floatParam(q, "lat")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	lon, err := floatParam(q, "lon")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	pin, err := s.planner.PinInfo(r.Context(), lat, lon)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pin)
}

type askRequest struct {
	City     string `json:"city"`
	Date     string `json:"date"`
	Question string `json:"question"`
}

func (s *Server) handleAPIAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxAskBody)).Decode(&req); err != nil {
		s.writeError(w, r, fmt.Errorf("%w: invalid JSON body: %v", errBadRequest, err))
		return
	}
	ans, err := s.planner.Ask(r.Context(), req.City, req.Date, req.Question)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ans)
}

func (s *Server) handleAPIAIHealth(w http.ResponseWriter, r *http.Request) {
	a := s.planner.Assistant()
	if a == nil {
		s.writeError(w, r, ai.ErrNotConfigured)
		return
	}
	writeJSON(w, http.StatusOK, a.Health(r.Context()))
}

func (s *Server) handleAPIDiagnostics(w http.ResponseWriter, r *http.Request) {
	a := s.planner.Assistant()
	if a == nil {
		s.writeError(w, r, ai.ErrNotConfigured)
		return
	}
	writeJSON(w, http.StatusOK, a.Diagnostics())
}

// handleAPIModelOverride pins the model tried first. An empty model clears
// the override.
func (s *Server) handleAPIModelOverride(w http.ResponseWriter, r *http.Request) {
	a := s.planner.Assistant()
	if a == nil {
		s.writeError(w, r, ai.ErrNotConfigured)
		return
	}
	var body struct {
		Model string `json:"model"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxAskBody)).Decode(&body); err != nil {
		s.writeError(w, r, fmt.Errorf("%w: invalid JSON body: %v", errBadRequest, err))
		return
	}
	a.Provider().SetModelOverride(strings.TrimSpace(body.Model))
	writeJSON(w, http.StatusOK, a.Provider().Models())
}

func (s *Server) climateRequest(q url.Values) (planner.ClimateRequest, error) {
	req := planner.ClimateRequest{
		City:       q.Get("city"),
		Historical: climate.DefaultHistorical,
		Recent:     climate.DefaultRecent,
		Commentary: truthy(q.Get("commentary")),
	}
	var err error
	if req.Month, err = intParam(q, "month", int(s.now().Month())); err != nil {
		return req, err
	}
	fields := []struct {
		name string
		dst  *int
	}{
		{"hist_start", &req.Historical.Start},
		{"hist_end", &req.Historical.End},
		{"recent_start", &req.Recent.Start},
		{"recent_end", &req.Recent.End},
	}
	for _, f := range fields {
		if *f.dst, err = intParam(q, f.name, *f.dst); err != nil {
			return req, err
		}
	}
	return req, nil
}

// cityList reads cities from repeated city params or a comma or newline
// separated cities param.
func cityList(q url.Values) []string {
	out := append([]string(nil), q["city"]...)
	for _, v := range q["cities"] {
		out = append(out, strings.FieldsFunc(v, func(r rune) bool { return r == ',' || r == '\n' })...)
	}
	return out
}

func intParam(q url.Values, name string, def int) (int, error) {
	v := strings.TrimSpace(q.Get(name))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", errBadRequest, name)
	}
	return n, nil
}

func floatParam(q url.Values, name string) (float64, error) {
	v := strings.TrimSpace(q.Get(name))
	if v == "" {
		return 0, fmt.Errorf("%w: %s is required", errBadRequest, name)
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be a number", errBadRequest, name)
	}
	return f, nil
}

func truthy(v string) bool {
	switch strings.ToLower(v) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
