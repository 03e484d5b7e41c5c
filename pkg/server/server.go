// Package server is the HTTP API the browser dashboard talks to: chart
// series and event endpoints backed by the data API, broker status from the
// probe, and ACL management backed by Postgres.
package server

import (
	"context"
	"net/http"

	"github.com/mqttscope/mqttscope/pkg/acl"
	"github.com/mqttscope/mqttscope/pkg/broker"
	"github.com/mqttscope/mqttscope/pkg/httputil"
	mw "github.com/mqttscope/mqttscope/pkg/httputil/middleware"
	"github.com/mqttscope/mqttscope/pkg/poller"
	"go.uber.org/zap"
)

// Options wires the server's collaborators. Source is required; the rest
// are optional and their endpoints respond 503 when absent.
type Options struct {
	Source poller.DataSource
	Poller *poller.Poller
	ACL    *acl.Store
	Probe  *broker.Probe
	Logger *zap.Logger
	CORS   *mw.CORSOptions

	// Defaults for on-demand series builds.
	ObservationsTable string
	EventsTable       string
	Series            []string
}

// Server serves the dashboard API.
type Server struct {
	router *httputil.Router
	opts   Options
	logger *zap.Logger
}

// New assembles the router, middleware chain, and routes.
func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		router: httputil.NewRouter(),
		opts:   opts,
		logger: logger,
	}

	s.router.Use(
		mw.RequestID,
		mw.CORSWithOptions(opts.CORS),
		mw.LoggerWithOptions(&mw.LoggerOptions{Logger: logger}),
	)

	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.HandleFunc("GET /healthz", s.handleHealthz)

	api := s.router.Group("/api")
	api.HandleFunc("GET /series", s.handleSeries)
	api.HandleFunc("GET /events", s.handleEvents)
	api.HandleFunc("GET /overview", s.handleOverview)
	api.HandleFunc("GET /broker", s.handleBroker)

	api.HandleFunc("GET /acl/users", s.handleListUsers)
	api.HandleFunc("POST /acl/users", s.handleCreateUser)
	api.HandleFunc("PATCH /acl/users/{username}", s.handleUpdateUser)
	api.HandleFunc("DELETE /acl/users/{username}", s.handleDeleteUser)

	api.HandleFunc("GET /acl/rules", s.handleListRules)
	api.HandleFunc("POST /acl/rules", s.handleCreateRule)
	api.HandleFunc("PATCH /acl/rules/{id}", s.handleUpdateRule)
	api.HandleFunc("DELETE /acl/rules/{id}", s.handleDeleteRule)
}

// Handler exposes the composed handler for tests.
func (s *Server) Handler() http.Handler {
	return s.router.Handler()
}

// Start serves on addr until the listener fails or Shutdown is called.
func (s *Server) Start(addr string) error {
	s.logger.Info("starting dashboard API server", zap.String("addr", addr))
	return s.router.ListenAndServe(addr)
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down dashboard API server")
	return s.router.Shutdown(ctx)
}
