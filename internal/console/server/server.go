package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/xela07ax/site-overview/internal/console/handler"
	"github.com/xela07ax/site-overview/internal/domain"
	"github.com/xela07ax/site-overview/internal/engine"
	"github.com/xela07ax/site-overview/internal/infra/auth"
	"go.uber.org/zap"
)

type OverviewServer struct {
	router *chi.Mux
	logger *zap.Logger

	// Проверка токенов (RS256). nil — API открыт (локальный стенд)
	authValidator auth.TokenValidator
	metrics       http.Handler

	overviewHandler *handler.OverviewHandler // /api/v1/overview
	sitesHandler    *handler.SitesHandler    // /api/v1/sites
}

// NewOverviewServer инициализирует HTTP API со всеми зависимостями
func NewOverviewServer(
	logger *zap.Logger,
	validator auth.TokenValidator,
	metrics http.Handler,
	overviewH *handler.OverviewHandler,
	sitesH *handler.SitesHandler,
) *OverviewServer {
	s := &OverviewServer{
		router:          chi.NewRouter(),
		logger:          logger.Named("overview-api"),
		authValidator:   validator,
		metrics:         metrics,
		overviewHandler: overviewH,
		sitesHandler:    sitesH,
	}

	s.routes()
	return s
}

func (s *OverviewServer) routes() {
	r := s.router

	// --- 1. Глобальные инфраструктурные Middleware (для всех) ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(engine.TracingMiddleware)

	// --- 2. ПУБЛИЧНЫЕ РОУТЫ ---
	r.Group(func(r chi.Router) {
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
		if s.metrics != nil {
			r.Handle("/metrics", s.metrics)
		}
	})

	// --- 3. ЗАЩИЩЕННЫЙ ПЕРИМЕТР (RS256 токен, если настроен ключ) ---
	r.Group(func(r chi.Router) {
		if s.authValidator != nil {
			r.Use(auth.NewMiddleware(s.authValidator, domain.ScopeOverviewRead, s.logger))
		}

		r.Route("/api/v1/overview", func(r chi.Router) {
			r.Get("/", s.overviewHandler.Get)
			r.Post("/", s.overviewHandler.Post)
			r.Get("/host-tooltip", s.overviewHandler.HostTooltip)
		})
		r.Get("/api/v1/sites", s.sitesHandler.List)
	})
}

// ServeHTTP позволяет использовать OverviewServer как стандартный http.Handler
func (s *OverviewServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
