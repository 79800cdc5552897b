package api

import (
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"fleetdesk/backend/dispatch"
	"fleetdesk/backend/handlers"
	"fleetdesk/backend/metrics"
	"fleetdesk/backend/middleware"
	"fleetdesk/backend/models"
	"fleetdesk/backend/services"
	"fleetdesk/backend/storage"
)

// Options are the deployment settings the router needs.
type Options struct {
	AllowedOrigins []string
	Development    bool
	// MetricsPath exposes prometheus metrics when set.
	MetricsPath   string
	MaxUploadSize int64
	// StaticDir holds the built web client; empty disables static serving.
	StaticDir string
}

// Dependencies are the collaborators behind the handlers.
type Dependencies struct {
	Logger   *logrus.Logger
	Auth     *middleware.Authenticator
	Registry *dispatch.Registry
	Store    storage.ObjectStore
	Geocoder services.Geocoder
	Renderer services.ReportRenderer
}

// Server represents the API server
type Server struct {
	router    *mux.Router
	handler   http.Handler
	opts      Options
	auth      *middleware.Authenticator
	dispatch  *handlers.DispatchHandler
	uploads   *handlers.UploadHandler
	locations *handlers.LocationHandler
	reports   *handlers.ReportHandler
}

// NewServer creates a new API server
func NewServer(deps Dependencies, opts Options) *Server {
	s := &Server{
		router:    mux.NewRouter(),
		opts:      opts,
		auth:      deps.Auth,
		dispatch:  handlers.NewDispatchHandler(deps.Registry),
		uploads:   handlers.NewUploadHandler(deps.Store, opts.MaxUploadSize),
		locations: handlers.NewLocationHandler(deps.Geocoder),
		reports:   handlers.NewReportHandler(deps.Renderer),
	}
	s.RegisterRoutes()

	// Preflight requests never match a route, so CORS wraps the router.
	s.handler = middleware.RequestLogger(deps.Logger)(middleware.CORS(opts.AllowedOrigins, opts.Development)(s.router))
	return s
}

// RegisterRoutes registers all API routes on the root and under /api.
func (s *Server) RegisterRoutes() {
	if s.opts.MetricsPath != "" {
		s.router.Handle(s.opts.MetricsPath, metrics.Handler()).Methods("GET")
	}

	s.registerRoutes(s.router)
	s.registerRoutes(s.router.PathPrefix("/api").Subrouter())

	if s.opts.StaticDir != "" {
		s.serveClient()
	}
}

func (s *Server) registerRoutes(r *mux.Router) {
	// Public routes (no auth required)
	r.HandleFunc("/health", handlers.HealthCheck).Methods("GET")

	protected := r.PathPrefix("").Subrouter()
	protected.Use(s.auth.Middleware)

	viewer := role(models.RoleViewer)
	dispatcher := role(models.RoleDispatcher)
	admin := role(models.RoleAdmin)

	protected.Handle("/me", viewer(handlers.GetMe)).Methods("GET")
	protected.Handle("/drivers", viewer(handlers.ListDrivers)).Methods("GET")

	// Jobs
	protected.Handle("/jobs", viewer(handlers.ListJobs)).Methods("GET")
	protected.Handle("/jobs/share-url", viewer(handlers.GetShareURL)).Methods("GET")
	protected.Handle("/jobs/{id}/location", dispatcher(s.locations.SetJobLocation)).Methods("PUT")

	// Filter presets
	protected.Handle("/presets", viewer(handlers.ListPresets)).Methods("GET")
	protected.Handle("/presets", viewer(handlers.CreatePreset)).Methods("POST")
	protected.Handle("/presets/default", viewer(handlers.GetDefaultPreset)).Methods("GET")
	protected.Handle("/presets/{id}", viewer(handlers.GetPreset)).Methods("GET")
	protected.Handle("/presets/{id}/apply", viewer(handlers.ApplyPreset)).Methods("POST")
	protected.Handle("/presets/{id}", viewer(handlers.DeletePreset)).Methods("DELETE")

	// Dispatch boards
	protected.Handle("/dispatch/boards", viewer(s.dispatch.OpenBoard)).Methods("POST")
	protected.Handle("/dispatch/boards/{id}", viewer(s.dispatch.GetBoard)).Methods("GET")
	protected.Handle("/dispatch/boards/{id}/drags", dispatcher(s.dispatch.StartDrag)).Methods("POST")
	protected.Handle("/dispatch/boards/{id}/drops", dispatcher(s.dispatch.Drop)).Methods("POST")
	protected.Handle("/dispatch/boards/{id}/refresh", viewer(s.dispatch.Refresh)).Methods("POST")
	protected.Handle("/dispatch/boards/{id}/notifications", viewer(s.dispatch.Notifications)).Methods("GET")
	protected.Handle("/dispatch/boards/{id}", viewer(s.dispatch.CloseBoard)).Methods("DELETE")

	// Uploads
	protected.Handle("/uploads/{kind}", viewer(s.uploads.List)).Methods("GET")
	protected.Handle("/uploads/{kind}", dispatcher(s.uploads.Upload)).Methods("POST")

	// Analytics and reports
	protected.Handle("/analytics/work-orders", viewer(handlers.WorkOrderAnalytics)).Methods("GET")
	protected.Handle("/reports/jobs", viewer(s.reports.JobsReport)).Methods("POST")

	// Organization settings
	protected.Handle("/integrations", admin(handlers.GetIntegrations)).Methods("GET")
	protected.Handle("/integrations", admin(handlers.UpdateIntegrations)).Methods("PUT")
}

// serveClient serves the built web client, falling back to index.html for client-side routes.
func (s *Server) serveClient() {
	dir := s.opts.StaticDir
	fs := http.FileServer(http.Dir(dir))
	s.router.PathPrefix("/assets/").Handler(fs)
	s.router.PathPrefix("/").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/") {
			http.NotFound(w, r)
			return
		}
		http.ServeFile(w, r, filepath.Join(dir, "index.html"))
	}).Methods("GET")
}

// Handler returns the HTTP handler for the API server
func (s *Server) Handler() http.Handler {
	return s.handler
}

func role(required string) func(http.HandlerFunc) http.Handler {
	gate := middleware.RequireRole(required)
	return func(h http.HandlerFunc) http.Handler {
		return gate(h)
	}
}
