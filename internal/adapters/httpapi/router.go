package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/Guilhem-Bonnet/anivideo-sync/internal/app"
	"github.com/Guilhem-Bonnet/anivideo-sync/internal/ports"
	"github.com/Guilhem-Bonnet/anivideo-sync/internal/probe"
)

// Deps regroupe les services exposés. Tout champ nil désactive ses routes.
type Deps struct {
	Jobs          *app.JobService
	Catalog       *app.CatalogService
	Notifications *app.NotificationService
	Settings      *app.SettingsService
	Bus           ports.EventBus
	Health        *probe.Health
	// Metrics est monté sur /metrics (promhttp).
	Metrics http.Handler
}

type Server struct {
	logger zerolog.Logger
	deps   Deps
}

func NewServer(logger zerolog.Logger, deps Deps) *Server {
	return &Server{logger: logger, deps: deps}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(hlog.NewHandler(s.logger))
	r.Use(hlog.RequestIDHandler("request_id", "Request-Id"))
	r.Use(hlog.RemoteAddrHandler("remote_ip"))
	r.Use(hlog.UserAgentHandler("user_agent"))
	r.Use(hlog.AccessHandler(accessLogFn))

	if s.deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.deps.Metrics)
	}

	r.Route("/api/v1", func(r chi.Router) {
		// Le flux SSE reste ouvert: pas de timeout de requête.
		r.Get("/events", s.handleEvents)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(defaultRequestTimeout))

			r.Get("/health", s.handleHealth)
			r.Get("/version", s.handleVersion)
			r.Get("/openapi.json", s.handleOpenAPI)

			if s.deps.Jobs != nil {
				NewSyncRunsHandler(s.deps.Jobs).Routes(r)
			}
			if s.deps.Catalog != nil {
				NewShowsHandler(s.deps.Catalog, s.deps.Jobs).Routes(r)
			}
			if s.deps.Notifications != nil {
				NewNotificationsHandler(s.deps.Notifications).Routes(r)
			}
			if s.deps.Settings != nil {
				NewSettingsHandler(s.deps.Settings).Routes(r)
			}
		})
	})

	return r
}
