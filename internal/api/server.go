package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/maksimkurb/pbr-lens/internal/log"
)

// Server is the pbr-lens HTTP API server.
type Server struct {
	router     *chi.Mux
	httpServer *http.Server
}

// NewServer creates the API server with all routes and middleware set up.
func NewServer(bindAddr string, handler *Handler) *Server {
	s := &Server{
		router: chi.NewRouter(),
	}

	s.router.Use(Recovery)
	s.router.Use(Logger)
	s.router.Use(JSONContentType)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Post("/decision", handler.Decide)
		r.Get("/rules", handler.GetRules)
		r.Get("/routes", handler.GetRoutes)
		r.Post("/rebuild", handler.Rebuild)
		r.Get("/health", handler.CheckHealth)
	})

	// Plain health check at root for load balancers.
	s.router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	s.httpServer = &http.Server{
		Addr:         bindAddr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Handler returns the underlying HTTP handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the API server and blocks until it stops.
func (s *Server) Start() error {
	log.Infof("[API] Starting server on %s", s.httpServer.Addr)
	log.Infof("[API] Example: curl -X POST http://%s/api/v1/decision -d '{\"src\":\"10.0.0.1\",\"dst\":\"1.1.1.1\"}'", s.httpServer.Addr)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// Stop gracefully stops the API server.
func (s *Server) Stop(ctx context.Context) error {
	log.Infof("[API] Shutting down server...")
	return s.httpServer.Shutdown(ctx)
}
