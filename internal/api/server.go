// Package api serves the planning dashboard and its JSON endpoints.
package api

import (
	"context"
	"errors"
	"html/template"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/astrocast/astrocast/internal/imagegen"
	"github.com/astrocast/astrocast/internal/planner"
)

// Pinger reports database health.
type Pinger interface {
	Ping() error
}

type Config struct {
	Planner *planner.Service
	// DB is optional. When set /health pings it.
	DB     Pinger
	Logger zerolog.Logger
	Addr   string
	// AIRequestsPerMinute limits AI-backed endpoints per client IP. Default: 20
	AIRequestsPerMinute int
	// Now defaults to time.Now.
	Now func() time.Time
}

type Server struct {
	planner *planner.Service
	db      Pinger
	logger  zerolog.Logger
	addr    string
	aiLimit int
	tmpl    *template.Template
	cards   *imagegen.CardCache
	now     func() time.Time
}

func NewServer(cfg Config) *Server {
	s := &Server{
		planner: cfg.Planner,
		db:      cfg.DB,
		logger:  cfg.Logger.With().Str("component", "api").Logger(),
		addr:    cfg.Addr,
		aiLimit: cfg.AIRequestsPerMinute,
		tmpl:    newTemplates(),
		cards:   imagegen.NewCardCache(10*time.Minute, 256),
		now:     cfg.Now,
	}
	if s.aiLimit <= 0 {
		s.aiLimit = 20
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(requestID)
	r.Use(requestLogger(s.logger))
	r.Use(recoverer(s.logger))
	r.Use(chimiddleware.RealIP)

	r.Get("/", s.handleIndex)
	r.Get("/plan", s.handlePlanPage)
	r.Get("/compare", s.handleComparePage)
	r.Get("/climate", s.handleClimatePage)
	r.Get("/share.png", s.handleShareCard)
	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/plan", s.handleAPIPlan)
		r.Get("/compare", s.handleAPICompare)
		r.Get("/historical", s.handleAPIHistorical)
		r.Get("/pollution", s.handleAPIPollution)
		r.Get("/climate", s.handleAPIClimate)
		r.Get("/pin", s.handleAPIPin)
		r.Get("/ai/diagnostics", s.handleAPIDiagnostics)

		r.Group(func(r chi.Router) {
			r.Use(rateLimitByIP(s.aiLimit, time.Minute))
			r.Post("/ask", s.handleAPIAsk)
			r.Get("/ai/health", s.handleAPIAIHealth)
			r.Post("/ai/model", s.handleAPIModelOverride)
		})
	})
	return r
}

func (s *Server) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			s.logger.Error().Err(err).Msg("shutdown")
		}
	}()

	s.logger.Info().Str("addr", s.addr).Msg("listening")
	if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{"status": "ok"}
	code := http.StatusOK
	if s.db != nil {
		if err := s.db.Ping(); err != nil {
			status["status"] = "degraded"
			status["database"] = err.Error()
			code = http.StatusServiceUnavailable
		} else {
			status["database"] = "ok"
		}
	}
	if a := s.planner.Assistant(); a != nil {
		status["ai_provider"] = a.Provider().Name()
		status["ai_configured"] = a.Configured()
	}
	writeJSON(w, code, status)
}
