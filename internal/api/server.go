// Package api provides the HTTP API server and handlers for the cellar tag service.
package api

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/cellarclub/cellar-server/internal/auth"
	"github.com/cellarclub/cellar-server/internal/config"
	"github.com/cellarclub/cellar-server/internal/logger"
	"github.com/cellarclub/cellar-server/internal/ratelimit"
	"github.com/cellarclub/cellar-server/internal/store"
	"github.com/cellarclub/cellar-server/internal/validation"
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	config    *config.Config
	store     store.Store
	services  *Services
	tokens    *auth.TokenService
	router    *chi.Mux
	api       huma.API
	logger    *logger.Logger
	validator *validation.Validator

	// scanLimiter caps bulk-session scan throughput per operator.
	scanLimiter *ratelimit.KeyedRateLimiter
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(cfg *config.Config, st store.Store, services *Services, tokens *auth.TokenService, log *logger.Logger) *Server {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Compress(5))
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	humaConfig := huma.DefaultConfig(cfg.Server.Name, "1.0.0")
	humaConfig.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"bearer": {
			Type:         "http",
			Scheme:       "bearer",
			BearerFormat: "PASETO",
		},
	}
	humaConfig.Transformers = append(humaConfig.Transformers, EnvelopeTransformer)

	api := humachi.New(router, humaConfig)
	RegisterErrorHandler()

	s := &Server{
		config:      cfg,
		store:       st,
		services:    services,
		tokens:      tokens,
		router:      router,
		api:         api,
		logger:      log,
		validator:   validation.New(),
		scanLimiter: ratelimit.New(cfg.Bulk.ScanRatePerSecond, cfg.Bulk.ScanBurst),
	}

	s.registerHealthRoutes()
	s.registerTagRoutes()
	s.registerPackRoutes()
	s.registerSessionRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Close releases server-held resources.
func (s *Server) Close() {
	s.scanLimiter.Stop()
}
