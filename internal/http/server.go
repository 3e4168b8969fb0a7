package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"painel/internal/auth"
	"painel/internal/dashboard"
	plog "painel/internal/log"
	"painel/internal/middleware/ratelimit"
	"painel/internal/middleware/security"
	"painel/internal/middleware/trace"
	"painel/internal/services"
)

// Deps are the collaborators the API needs.
type Deps struct {
	Sessions  *services.SessionManager
	Ledger    *services.LedgerService
	Dashboard *dashboard.Dashboard
	Auth      *auth.Manager

	// Now defaults to time.Now. Presets and report timestamps use it.
	Now func() time.Time
	// Location is the zone "today" is computed in. Defaults to UTC.
	Location *time.Location

	// RateLimitPerMinute caps mutating requests per user.
	RateLimitPerMinute int
	// TrustedProxies are CIDRs, beyond private networks, whose
	// forwarding headers are believed.
	TrustedProxies []string
	// Ready, when set, backs /readyz.
	Ready func(context.Context) error
}

type Server struct {
	http.Server
	deps     Deps
	logger   *plog.Logger
	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware

	shutdownOnce sync.Once
}

// NewServer wires the router and returns a server ready for ListenAndServe.
func NewServer(addr string, deps Deps) *Server {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Location == nil {
		deps.Location = time.UTC
	}
	cfg := ratelimit.DefaultConfig()
	if deps.RateLimitPerMinute > 0 {
		cfg.RequestsPerMinute = deps.RateLimitPerMinute
	}

	logger := plog.Default(plog.ComponentHTTP)
	detector := security.NewDetector()
	for _, cidr := range deps.TrustedProxies {
		if err := detector.AddTrustedProxy(cidr); err != nil {
			logger.Warn("Ignoring trusted proxy", plog.FieldError, err)
		}
	}
	s := &Server{
		deps:     deps,
		logger:   logger,
		limiter:  ratelimit.NewLimiter(cfg),
		detector: detector,
		tracer:   trace.NewMiddleware(logger, detector.ClientIP),
	}
	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.tracer.Handler)
	r.Use(middleware.Recoverer)
	r.Use(security.Headers(security.DefaultHeadersConfig()))
	r.Use(s.detector.Middleware)
	r.Use(middleware.Compress(5))

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)

	r.Route("/api", func(r chi.Router) {
		r.Use(s.authenticate)
		r.Use(s.limitWrites)

		r.Get("/dashboard", s.handleDashboard)
		r.Post("/sort/{col}", s.handleToggleSort)
		r.Put("/metrics/{index}", s.handleSetMetric)

		r.Get("/presets", s.handlePresets)
		r.Post("/config/preset/{name}", s.handleApplyPreset)
		r.Get("/config", s.handleGetConfig)
		r.Put("/config", s.handleSaveConfig)

		r.Get("/entries", s.handleListEntries)
		r.Post("/entries", s.handleCreateEntry)
		r.Put("/entries/{id}", s.handleUpdateEntry)
		r.Delete("/entries/{id}", s.handleDeleteEntry)
		r.Post("/entries/{id}/toggle", s.handleToggleEntry)

		r.Get("/categories", s.handleListCategories)
		r.Post("/categories", s.handleSaveCategory)
		r.Put("/categories/{id}", s.handleSaveCategory)
		r.Delete("/categories/{id}", s.handleDeleteCategory)

		r.Get("/subcategories", s.handleListSubcategories)
		r.Post("/subcategories", s.handleSaveSubcategory)
		r.Put("/subcategories/{id}", s.handleSaveSubcategory)
		r.Delete("/subcategories/{id}", s.handleDeleteSubcategory)

		r.Get("/accounts", s.handleListAccounts)
		r.Post("/accounts", s.handleSaveAccount)
		r.Put("/accounts/{id}", s.handleSaveAccount)
		r.Delete("/accounts/{id}", s.handleDeleteAccount)

		r.Get("/export.csv", s.handleExportCSV)
		r.Get("/export.xlsx", s.handleExportXLSX)
	})
	return r
}

// Shutdown stops the limiter and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func (s *Server) today() time.Time {
	return s.deps.Now().In(s.deps.Location)
}

type healthBody struct {
	Status      string `json:"status"`
	Requests    int64  `json:"requests"`
	AvgMicros   int64  `json:"avgResponseMicros"`
	RateLimited int64  `json:"rateLimited"`
	Suspicious  int64  `json:"suspicious"`
	Blocked     int64  `json:"blocked"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	traced := s.tracer.GetMetrics()
	limited := s.limiter.GetMetrics()
	detected := s.detector.GetMetrics()
	writeJSON(w, http.StatusOK, healthBody{
		Status:      "ok",
		Requests:    traced.TotalRequests,
		AvgMicros:   traced.AverageResponseMicros,
		RateLimited: limited.TotalHits,
		Suspicious:  detected.SuspiciousRequests,
		Blocked:     detected.BlockedRequests,
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.Ready != nil {
		if err := s.deps.Ready(r.Context()); err != nil {
			plog.FromContext(r.Context()).Warn("Readiness check failed", plog.FieldError, err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
