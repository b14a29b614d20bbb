package api

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/platinummonkey/verihub/pkg/httputil"
	"github.com/platinummonkey/verihub/pkg/observability"
	"github.com/platinummonkey/verihub/pkg/session"
)

// DefaultSessionLifetime bounds a new session when the deployment does
// not configure one.
const DefaultSessionLifetime = 90 * time.Minute

// Server is the HTTP resource layer over the session repository.
type Server struct {
	repo     *session.Repository
	router   *mux.Router
	log      *logrus.Logger
	metrics  *observability.Metrics
	now      func() time.Time
	lifetime time.Duration
}

// Option customizes a Server.
type Option func(*Server)

// WithLogger sets the request/recovery logger.
func WithLogger(log *logrus.Logger) Option {
	return func(s *Server) { s.log = log }
}

// WithMetrics instruments every route with the shared registry.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithClock overrides the clock used to stamp session deadlines.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// WithSessionLifetime sets how long a newly admitted session may run.
func WithSessionLifetime(d time.Duration) Option {
	return func(s *Server) { s.lifetime = d }
}

// NewServer creates the API server and registers its routes.
func NewServer(repo *session.Repository, opts ...Option) *Server {
	s := &Server{
		repo:     repo,
		router:   mux.NewRouter(),
		log:      logrus.StandardLogger(),
		now:      time.Now,
		lifetime: DefaultSessionLifetime,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures the session resource routes.
func (s *Server) setupRoutes() {
	s.route("/policy/session", s.createSession, "POST")
	s.route("/policy/session/{id}/select-idp", s.selectIdp, "POST")
	s.route("/policy/session/{id}/select-country", s.selectCountry, "POST")
	s.route("/policy/session/{id}/idp-response", s.handleIdpResponse, "POST")
	s.route("/policy/session/{id}/country-response", s.handleCountryResponse, "POST")
	s.route("/policy/session/{id}/ms-response", s.handleMatchingServiceResponse, "POST")
	s.route("/policy/session/{id}/cycle3", s.getCycle3, "GET")
	s.route("/policy/session/{id}/cycle3", s.submitCycle3, "POST")
	s.route("/policy/session/{id}/cycle3", s.cancelCycle3, "DELETE")
	s.route("/policy/session/{id}/error", s.handleRequesterError, "POST")
	s.route("/policy/session/{id}/loa", s.getLevelOfAssurance, "GET")
	s.route("/policy/session/{id}/response", s.getResponse, "GET")
	s.route("/policy/session/{id}/error-response", s.getErrorResponse, "GET")
}

// route registers one handler, instrumented per route template so path
// label cardinality stays bounded.
func (s *Server) route(path string, handler http.HandlerFunc, methods ...string) {
	var h http.Handler = handler
	if s.metrics != nil {
		h = s.metrics.Middleware(path, h)
	}
	s.router.Handle(path, h).Methods(methods...)
}

// ServeHTTP dispatches to the bare router, without the outer
// middleware stack. Tests use it directly.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Handler returns the fully wrapped handler for serving: request ids,
// access logging, panic recovery and OTel tracing around the router.
func (s *Server) Handler() http.Handler {
	chain := httputil.Chain(
		httputil.RequestIDMiddleware,
		httputil.LoggingMiddleware(s.log),
		httputil.RecoveryMiddleware(s.log),
	)
	return chain(otelhttp.NewHandler(s.router, "verihub-api"))
}
