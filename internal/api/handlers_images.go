package api

import (
	"net/http"
	"strings"

	"github.com/astrocast/astrocast/internal/imagegen"
	"github.com/astrocast/astrocast/internal/planner"
)

// handleShareCard serves the PNG share card for ?city=&date=.
func (s *Server) handleShareCard(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	city, date := strings.TrimSpace(q.Get("city")), strings.TrimSpace(q.Get("date"))
	key := strings.ToLower(city) + "|" + date

	if data, ok := s.cards.Get(key); ok {
		writePNG(w, data)
		return
	}

	p, err := s.planner.Plan(r.Context(), city, date, planner.PlanOptions{})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	data, err := imagegen.Render(imagegen.CardData{
		City:        p.City,
		Date:        p.UsedDate,
		Temperature: p.Day.Temp,
		Condition:   p.Day.Condition + " · " + p.Day.Description,
		Score:       p.Result.Score,
		Verdict:     string(p.Result.Verdict),
		Suggestion:  p.Suggestion,
		Background:  p.Palette.Background,
		Accent:      p.Palette.Accent,
	})
	if err != nil {
		s.logger.Error().Err(err).Str("city", p.City).Msg("render share card")
		http.Error(w, "failed to render share card", http.StatusInternalServerError)
		return
	}
	s.cards.Set(key, data)
	writePNG(w, data)
}

func writePNG(w http.ResponseWriter, data []byte) {
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=600")
	_, _ = w.Write(data)
}
