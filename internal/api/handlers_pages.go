package api

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/astrocast/astrocast/internal/climate"
	"github.com/astrocast/astrocast/internal/forecast"
	"github.com/astrocast/astrocast/internal/models"
	"github.com/astrocast/astrocast/internal/planner"
)

type pageData struct {
	Title   string
	Palette forecast.Palette
	Today   string

	City   string
	Date   string
	Cities string
	Day    string

	Plan       *planner.Plan
	Pollution  *models.AirQuality
	Comparison *planner.Comparison
	Climate    *planner.ClimateResult
	ClimateReq planner.ClimateRequest
	Months     []time.Month

	AIProvider   string
	AIConfigured bool

	Error    string
	Problems []string
}

func (s *Server) newPage(r *http.Request, title string) *pageData {
	q := r.URL.Query()
	p := &pageData{
		Title:   title,
		Palette: forecast.DefaultPalette,
		Today:   s.now().Format(forecast.DateLayout),
		City:    q.Get("city"),
		Date:    q.Get("date"),
		Cities:  q.Get("cities"),
		Day:     q.Get("day"),
	}
	if a := s.planner.Assistant(); a != nil {
		p.AIProvider = a.Provider().Name()
		p.AIConfigured = a.Configured()
	}
	return p
}

func (p *pageData) fail(err error) int {
	p.Error = err.Error()
	var verr *climate.ValidationError
	if errors.As(err, &verr) {
		p.Problems = verr.Problems
	}
	return statusFor(err)
}

func (s *Server) render(w http.ResponseWriter, status int, name string, data *pageData) {
	var buf bytes.Buffer
	if err := s.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		s.logger.Error().Err(err).Str("template", name).Msg("template error")
		http.Error(w, "template error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.render(w, http.StatusOK, "index.html", s.newPage(r, "Plan an outdoor event"))
}

func (s *Server) handlePlanPage(w http.ResponseWriter, r *http.Request) {
	page := s.newPage(r, "Event plan")
	if page.City == "" {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	p, err := s.planner.Plan(r.Context(), page.City, page.Date, planner.PlanOptions{Summary: true})
	if err != nil {
		s.render(w, page.fail(err), "index.html", page)
		return
	}
	page.Plan = p
	page.Palette = p.Palette
	page.Title = p.City + " on " + p.UsedDate

	if aq, err := s.planner.Pollution(r.Context(), page.City); err == nil {
		page.Pollution = aq
	} else {
		s.logger.Debug().Err(err).Str("city", page.City).Msg("air quality unavailable")
	}
	s.render(w, http.StatusOK, "plan.html", page)
}

func (s *Server) handleComparePage(w http.ResponseWriter, r *http.Request) {
	page := s.newPage(r, "Weekend comparison")
	cities := cityList(r.URL.Query())
	if len(cities) == 0 {
		s.render(w, http.StatusOK, "compare.html", page)
		return
	}

	day, err := planner.ParseWeekendDay(page.Day)
	if err != nil {
		s.render(w, page.fail(fmt.Errorf("%w: %v", errBadRequest, err)), "compare.html", page)
		return
	}
	cmp, err := s.planner.Compare(r.Context(), cities, day)
	if err != nil {
		s.render(w, page.fail(err), "compare.html", page)
		return
	}
	page.Comparison = cmp
	s.render(w, http.StatusOK, "compare.html", page)
}

func (s *Server) handleClimatePage(w http.ResponseWriter, r *http.Request) {
	page := s.newPage(r, "Climate trend")
	for m := time.January; m <= time.December; m++ {
		page.Months = append(page.Months, m)
	}

	req, err := s.climateRequest(r.URL.Query())
	page.ClimateReq = req
	if err != nil {
		s.render(w, page.fail(err), "climate.html", page)
		return
	}
	if page.City == "" {
		s.render(w, http.StatusOK, "climate.html", page)
		return
	}

	req.Commentary = true
	res, err := s.planner.Climate(r.Context(), req)
	if err != nil {
		s.render(w, page.fail(err), "climate.html", page)
		return
	}
	page.Climate = res
	s.render(w, http.StatusOK, "climate.html", page)
}

// planLink builds the /plan URL for a city and date.
func planLink(city, date string) string {
	v := url.Values{"city": {city}}
	if date != "" {
		v.Set("date", date)
	}
	return "/plan?" + v.Encode()
}
