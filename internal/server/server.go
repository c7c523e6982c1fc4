package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/IIExpanse/honest-sign-test-task/internal/config"
	apperrors "github.com/IIExpanse/honest-sign-test-task/internal/errors"
	"github.com/IIExpanse/honest-sign-test-task/internal/observability"
	"github.com/IIExpanse/honest-sign-test-task/internal/server/handlers"
	servermw "github.com/IIExpanse/honest-sign-test-task/internal/server/middleware"
)

const throttleJanitorEvery = 2 * time.Minute

// Server represents the HTTP server
type Server struct {
	router   *chi.Mux
	server   *http.Server
	cfg      config.ServerConfig
	api      *handlers.DocumentsAPI
	throttle *servermw.Throttle

	stopJanitor context.CancelFunc
}

// New creates a new HTTP server instance. api may be nil, in which case the
// document endpoints answer 503.
func New(cfg config.ServerConfig, api *handlers.DocumentsAPI) *Server {
	r := chi.NewRouter()

	// Standard chi middleware
	r.Use(middleware.RealIP)

	// Our custom middleware in correct order (RequestID → Metrics → Recovery)
	r.Use(servermw.RequestID)      // 1. Request ID (early for correlation)
	r.Use(servermw.RequestMetrics) // 2. Metrics (measure everything)
	r.Use(servermw.Recovery)       // 3. Panic recovery

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		HandleError(w, req, apperrors.NewNotFoundError("The requested resource was not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		HandleError(w, req, apperrors.NewMethodNotAllowedError("The requested method is not allowed for this resource"))
	})

	s := &Server{
		router:   r,
		cfg:      cfg,
		api:      api,
		throttle: servermw.NewThrottle(cfg.InboundRPS, cfg.InboundBurst),
	}

	// Ensure handlers use the centralized error responder
	handlers.SetHTTPErrorResponder(HandleError)

	s.registerRoutes()

	return s
}

// Start starts the HTTP server
func (s *Server) Start() error {
	addr := s.Addr()

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  orDefault(s.cfg.ReadTimeout, 30*time.Second),
		WriteTimeout: orDefault(s.cfg.WriteTimeout, config.DefaultWriteTimeout),
		IdleTimeout:  orDefault(s.cfg.IdleTimeout, 120*time.Second),
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.stopJanitor = cancel
	s.throttle.StartJanitor(ctx, throttleJanitorEvery)

	if observability.ServerLogger != nil {
		observability.ServerLogger.Info("Starting HTTP server",
			zap.String("host", s.cfg.Host),
			zap.Int("port", s.cfg.Port),
			zap.String("addr", addr),
			zap.Float64("inbound_rps", s.cfg.InboundRPS))
	}

	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	if observability.ServerLogger != nil {
		observability.ServerLogger.Info("Shutting down HTTP server")
	}
	if s.stopJanitor != nil {
		s.stopJanitor()
	}
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Handler exposes the underlying router for testing and instrumentation
func (s *Server) Handler() http.Handler {
	return s.router
}

// Addr returns the listen address
func (s *Server) Addr() string {
	return fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
}

// Port returns the server port for testing
func (s *Server) Port() int {
	return s.cfg.Port
}

func orDefault(value, fallback time.Duration) time.Duration {
	if value <= 0 {
		return fallback
	}
	return value
}
