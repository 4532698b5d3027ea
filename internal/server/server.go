package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
	"github.com/ums222/ClarityClaim-AI-sub001/internal/ai"
	"github.com/ums222/ClarityClaim-AI-sub001/internal/analytics"
	"github.com/ums222/ClarityClaim-AI-sub001/internal/appeals"
	"github.com/ums222/ClarityClaim-AI-sub001/internal/claims"
	"github.com/ums222/ClarityClaim-AI-sub001/internal/crm"
	"github.com/ums222/ClarityClaim-AI-sub001/internal/events"
	"github.com/ums222/ClarityClaim-AI-sub001/internal/patients"
	"github.com/ums222/ClarityClaim-AI-sub001/internal/profile"
	"github.com/ums222/ClarityClaim-AI-sub001/internal/tenant"
	"github.com/ums222/ClarityClaim-AI-sub001/pkg/config"
	"github.com/ums222/ClarityClaim-AI-sub001/pkg/httputil"
	"github.com/ums222/ClarityClaim-AI-sub001/pkg/logger"
	"github.com/ums222/ClarityClaim-AI-sub001/pkg/monitoring"
)

const (
	serviceVersion  = "1.0.0"
	cleanupInterval = 10 * time.Minute
	shutdownTimeout = 30 * time.Second
)

// Dependencies are the collaborators the server wires into its handlers
type Dependencies struct {
	DB        sqlx.ExtContext
	Health    monitoring.DBStatser
	Tokens    tenant.TokenVerifier
	Publisher events.Publisher
	Predictor ai.Predictor
	Metrics   *monitoring.MetricsCollector
	Tracer    *monitoring.Tracer
	Logger    *logger.Logger
}

// Server is the HTTP API
type Server struct {
	config  *config.Config
	router  *mux.Router
	server  *http.Server
	logger  *logger.Logger
	health  *monitoring.HealthManager
	limiter *tenant.RateLimiter
	done    chan struct{}
}

// New builds the repositories, services and routes of the API
func New(cfg *config.Config, deps Dependencies) *Server {
	s := &Server{
		config:  cfg,
		router:  mux.NewRouter(),
		logger:  deps.Logger,
		health:  monitoring.NewHealthManager("clarity-api", serviceVersion),
		limiter: tenant.NewRateLimiter(cfg.Server.DemoRateLimit, time.Minute),
		done:    make(chan struct{}),
	}

	if deps.Health != nil {
		s.health.RegisterChecker("database", monitoring.NewDatabaseHealthChecker(deps.Health))
	}
	if q, ok := deps.Publisher.(backlog); ok {
		s.health.RegisterChecker("events", monitoring.NewCustomHealthChecker(eventsCheck(q)))
	}

	s.setupRoutes(deps)

	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      s.router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	return s
}

// Handler returns the root handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until Stop is called. It returns http.ErrServerClosed after a clean stop.
func (s *Server) Start() error {
	go s.cleanupLoop()

	s.logger.WithComponent("server").WithField("addr", s.server.Addr).Info("Starting ClarityClaim API")
	return s.server.ListenAndServe()
}

// Stop drains in-flight requests
func (s *Server) Stop(ctx context.Context) error {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, shutdownTimeout)
		defer cancel()
	}

	close(s.done)
	s.logger.WithComponent("server").Info("Stopping ClarityClaim API")
	return s.server.Shutdown(ctx)
}

func (s *Server) cleanupLoop() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.limiter.Cleanup()
		case <-s.done:
			return
		}
	}
}

func (s *Server) setupRoutes(deps Dependencies) {
	mm := monitoring.NewMonitoringMiddleware(deps.Metrics, deps.Logger).WithTracer(deps.Tracer)

	patientRepo := patients.NewRepository(deps.DB, mm)
	claimRepo := claims.NewRepository(deps.DB, mm)
	appealRepo := appeals.NewRepository(deps.DB, mm)
	profileRepo := profile.NewRepository(deps.DB, mm)

	auth := tenant.NewAuthorizer(deps.Tokens, profileRepo, deps.Metrics, deps.Logger)

	patientService := patients.NewService(patientRepo, deps.Publisher, deps.Logger)
	claimService := claims.NewService(claimRepo, patientRepo, deps.Publisher, deps.Logger)
	appealService := appeals.NewService(appealRepo, appeals.NewActivityRepository(deps.DB, mm), claimRepo, deps.Publisher, deps.Logger)
	profileService := profile.NewService(profileRepo, deps.Logger)
	analyticsService := analytics.NewService(analytics.NewRepository(deps.DB, mm), deps.Logger)
	aiService := ai.NewService(deps.Predictor, ai.NewRepository(deps.DB, mm), claimRepo, appealRepo, deps.Logger)
	demoService := crm.NewDemoService(crm.NewRepository(deps.DB, mm), deps.Publisher, deps.Logger)

	if deps.Tracer != nil {
		s.router.Use(deps.Tracer.HTTPMiddleware)
	}
	s.router.Use(mm.HTTPMiddleware, tenant.SecurityHeaders, tenant.Recover(deps.Logger, deps.Metrics))
	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, http.StatusNotFound, httputil.ErrorResponse{Error: "Not found"})
	})

	if s.config.Monitoring.Enabled {
		s.router.Handle(s.config.Monitoring.MetricsPath, mm.Metrics().Handler()).Methods(http.MethodGet)
	}
	s.router.HandleFunc(s.config.Monitoring.HealthPath, s.health.HTTPHandler()).Methods(http.MethodGet)

	api := s.router.PathPrefix("/api").Subrouter()

	s.resource(api, "/patients", patientService.Methods(), auth.Require)
	s.resource(api, "/claims", claimService.Methods(), auth.Require)
	s.resource(api, "/appeals", appealService.Methods(), auth.Require)
	s.resource(api, "/analytics", analyticsService.Methods(), auth.Require)
	s.resource(api, "/ai/denial-risk", aiService.DenialRiskMethods(), auth.Require)
	s.resource(api, "/ai/appeal-draft", aiService.AppealDraftMethods(), auth.Require)
	s.resource(api, "/profile", profileService.Methods(), auth.Authenticated)
	s.resource(api, "/demo-requests", demoService.Methods(), s.limiter.Middleware)
}

// resource mounts one endpoint: CORS and preflight first, then guard, then method dispatch
func (s *Server) resource(r *mux.Router, path string, m tenant.Methods, guard mux.MiddlewareFunc) {
	h := guard(tenant.Dispatch(m, s.logger))
	h = tenant.CORS(s.config.Server.CORSOrigin, m.Allowed()...)(h)
	r.Handle(path, h)
}

// backlog is the part of the event bus the health check reads
type backlog interface {
	Pending() int
	Capacity() int
}

// eventsCheck reports degraded once the event buffer is full, since new events are dropped
func eventsCheck(q backlog) func(ctx context.Context) monitoring.HealthCheck {
	return func(ctx context.Context) monitoring.HealthCheck {
		pending, capacity := q.Pending(), q.Capacity()
		check := monitoring.HealthCheck{
			Status:  monitoring.HealthStatusHealthy,
			Message: "Event buffer has room",
			Details: map[string]interface{}{"pending": pending, "capacity": capacity},
		}
		if pending >= capacity {
			check.Status = monitoring.HealthStatusDegraded
			check.Message = "Event buffer full, events are being dropped"
		}
		return check
	}
}
