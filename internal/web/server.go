// Package web provides the HTTP server and JSON API for the backend.
package web

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ReeveMar/Backend/internal/auth"
	"github.com/ReeveMar/Backend/internal/config"
	"github.com/ReeveMar/Backend/internal/stats"
	"github.com/ReeveMar/Backend/internal/store"
)

// Server is the HTTP server for the backend API.
type Server struct {
	router   chi.Router
	server   *http.Server
	handlers *Handlers
}

// NewServer wires the router, middleware and routes.
func NewServer(cfg *config.Config, accounts store.Accounts, sessions *auth.Sessions, authenticator *auth.Authenticator, aggregator *stats.Aggregator) *Server {
	handlers := NewHandlers(cfg, sessions, authenticator, aggregator)

	router := chi.NewRouter()
	s := &Server{
		router:   router,
		handlers: handlers,
	}

	s.setupMiddleware()
	s.setupRoutes(sessions, accounts)

	s.server = &http.Server{
		Addr:         cfg.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupMiddleware configures middleware for the router.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
}

// setupRoutes configures routes for the application.
func (s *Server) setupRoutes(sessions *auth.Sessions, accounts store.Accounts) {
	// Login flow and session artifact management.
	s.router.Get("/auth/login", s.handlers.Login)
	s.router.Get("/callback", s.handlers.Callback)
	s.router.Post("/auth/refresh", s.handlers.Refresh)
	s.router.Post("/auth/logout", s.handlers.Logout)

	// Account record and statistics, behind the access cookie.
	s.router.Route("/api", func(r chi.Router) {
		r.Use(auth.RequireSession(sessions, accounts))
		r.Get("/me", s.handlers.Me)
		r.Patch("/me", s.handlers.UpdateMe)
		r.Get("/stats", s.handlers.Stats)
		r.Get("/tracks", s.handlers.Tracks)
	})
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	log.Printf("Starting server at http://%s", s.server.Addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Run starts the server and handles graceful shutdown on interrupt signals.
func (s *Server) Run() error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		if err := s.Start(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-stop:
		log.Println("Shutting down server...")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.Shutdown(ctx); err != nil {
		return err
	}

	log.Println("Server stopped")
	return nil
}
