package httpapi

import (
	"net/http"

	"mission-telemetry/app/src/domain"
	"mission-telemetry/app/src/infra"
	"mission-telemetry/app/src/shared/constants"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// Server exposes the HTTP transport for the mission telemetry application.
type Server struct {
	handler http.Handler
}

// NewServer constructs an HTTP server that forwards requests to the application service.
// Request bodies larger than maxBodyBytes are rejected; zero disables the limit.
func NewServer(service domain.MissionService, logger *infra.Logger, maxBodyBytes int64) *Server {
	router := chi.NewRouter()
	router.Use(correlationMiddleware)
	router.Use(infra.HTTPMiddleware(func(r *http.Request) string {
		if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
			if pattern := routeCtx.RoutePattern(); pattern != "" {
				return pattern
			}
		}
		return r.URL.Path
	}))

	handler := &handler{service: service, logger: logger, maxBodyBytes: maxBodyBytes}
	registerRoutes(router, handler)

	return &Server{handler: router}
}

// Router returns the configured HTTP handler for reuse in tests or external HTTP servers.
func (s *Server) Router() http.Handler {
	return s.handler
}

// ServeHTTP allows Server to satisfy the http.Handler interface directly.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// correlationMiddleware propagates X-Request-ID into the request context, minting one if absent.
func correlationMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(constants.RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(constants.RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(infra.WithCorrelationID(r.Context(), id)))
	})
}
