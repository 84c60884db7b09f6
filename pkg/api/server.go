// Package api wires the HTTP surface: the router, the request gate stages,
// the login flow, and the CRUD handlers for the four protected resource
// types.
package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/edushield/edushield/pkg/auth"
	"github.com/edushield/edushield/pkg/authz"
	"github.com/edushield/edushield/pkg/config"
	"github.com/edushield/edushield/pkg/httputil"
	"github.com/edushield/edushield/pkg/middleware"
	"github.com/edushield/edushield/pkg/observability"
	"github.com/edushield/edushield/pkg/school"
	"github.com/edushield/edushield/pkg/sso"
)

// Server is the API server: router plus the collaborators the handlers need
type Server struct {
	cfg      *config.Config
	router   *mux.Router
	logger   *observability.Logger
	metrics  *observability.Metrics
	gate     *middleware.Gate
	sessions *auth.SessionManager
	repos    *school.Repositories
	provider *sso.Provider
}

// NewServer builds the server and registers all routes
func NewServer(
	cfg *config.Config,
	logger *observability.Logger,
	metrics *observability.Metrics,
	gate *middleware.Gate,
	sessions *auth.SessionManager,
	repos *school.Repositories,
	provider *sso.Provider,
) *Server {
	s := &Server{
		cfg:      cfg,
		router:   mux.NewRouter(),
		logger:   logger,
		metrics:  metrics,
		gate:     gate,
		sessions: sessions,
		repos:    repos,
		provider: provider,
	}
	s.routes()
	return s
}

// Router returns the configured handler for the HTTP server
func (s *Server) Router() http.Handler {
	return s.router
}

// routes registers the middleware chain and all endpoints. Chain order is
// the request gate contract: correlation, recovery, logging, metrics, rate
// limiting, session validation, then per-route authorization.
func (s *Server) routes() {
	s.router.Use(mux.MiddlewareFunc(s.gate.Correlation))
	s.router.Use(mux.MiddlewareFunc(httputil.RecoveryMiddleware(s.logger)))
	s.router.Use(mux.MiddlewareFunc(httputil.LoggingMiddleware(s.logger)))
	if s.metrics != nil {
		s.router.Use(mux.MiddlewareFunc(s.metrics.Middleware))
	}
	s.router.Use(mux.MiddlewareFunc(s.gate.RateLimit))
	s.router.Use(mux.MiddlewareFunc(s.gate.Session))

	api := s.router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	api.HandleFunc("/auth/login", s.handleLogin).Methods(http.MethodGet)
	api.HandleFunc("/auth/callback", s.handleCallback).Methods(http.MethodGet)
	api.HandleFunc("/auth/logout", s.handleLogout).Methods(http.MethodPost)
	api.HandleFunc("/auth/me", s.handleMe).Methods(http.MethodGet)

	s.resourceRoutes(api, "/students", authz.KindStudent, resourceHandlers{
		list:   s.listStudents,
		create: s.createStudent,
		get:    s.getStudent,
		update: s.updateStudent,
		delete: s.deleteStudent,
		load:   s.loadStudent,
	})
	s.resourceRoutes(api, "/faculty", authz.KindFaculty, resourceHandlers{
		list:   s.listFaculty,
		create: s.createFaculty,
		get:    s.getFaculty,
		update: s.updateFaculty,
		delete: s.deleteFaculty,
		load:   s.loadFaculty,
	})
	s.resourceRoutes(api, "/fees", authz.KindFee, resourceHandlers{
		list:   s.listFees,
		create: s.createFee,
		get:    s.getFee,
		update: s.updateFee,
		delete: s.deleteFee,
		load:   s.loadFee,
	})
	s.resourceRoutes(api, "/performance", authz.KindPerformance, resourceHandlers{
		list:   s.listPerformance,
		create: s.createPerformance,
		get:    s.getPerformance,
		update: s.updatePerformance,
		delete: s.deletePerformance,
		load:   s.loadPerformance,
	})
}

// resourceHandlers bundles one resource type's endpoint set
type resourceHandlers struct {
	list   http.HandlerFunc
	create http.HandlerFunc
	get    http.HandlerFunc
	update http.HandlerFunc
	delete http.HandlerFunc
	load   middleware.ResourceLoader
}

// resourceRoutes registers the standard CRUD layout for one resource type.
// List and create are admin-gated; id-scoped routes run the resource
// authorization check after loading the target instance.
func (s *Server) resourceRoutes(api *mux.Router, prefix string, kind authz.ResourceKind, h resourceHandlers) {
	adminOnly := s.gate.RequireRole(auth.RoleSchoolAdmin)

	api.Handle(prefix, adminOnly(h.list)).Methods(http.MethodGet)
	api.Handle(prefix, adminOnly(h.create)).Methods(http.MethodPost)

	read := s.gate.RequireResource(kind, authz.ActionRead, h.load)
	write := s.gate.RequireResource(kind, authz.ActionWrite, h.load)

	api.Handle(prefix+"/{id}", read(h.get)).Methods(http.MethodGet)
	api.Handle(prefix+"/{id}", write(h.update)).Methods(http.MethodPut)
	api.Handle(prefix+"/{id}", write(h.delete)).Methods(http.MethodDelete)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.WriteSuccess(w, map[string]string{"status": "ok"})
}

// handleMe returns the caller's bound identity
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	ident := auth.IdentityFromContext(r.Context())
	if ident == nil {
		httputil.WriteUnauthorized(w)
		return
	}
	httputil.WriteSuccess(w, map[string]interface{}{
		"user_id":      ident.UserID,
		"display_name": ident.DisplayName,
		"email":        ident.Email,
		"role":         ident.Role.String(),
	})
}
