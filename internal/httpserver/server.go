package httpserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/davidbz/hearth/internal/config"
	"github.com/davidbz/hearth/internal/httpserver/middleware"
	"github.com/davidbz/hearth/internal/observability"
)

// Mount attaches an auxiliary handler (metrics, echo upstream) to the router.
type Mount struct {
	Pattern string
	Handler http.Handler
}

// Server represents the HTTP server.
type Server struct {
	config      *config.ServerConfig
	handler     *Handler
	middlewares middleware.Middleware
	mounts      []Mount
	srv         *http.Server
}

// NewServer creates a new HTTP server.
func NewServer(
	cfg *config.ServerConfig,
	handler *Handler,
	middlewares middleware.Middleware,
	mounts []Mount,
) *Server {
	return &Server{
		config:      cfg,
		handler:     handler,
		middlewares: middlewares,
		mounts:      mounts,
		srv:         nil,
	}
}

// Routes returns the full router wrapped in the middleware chain.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/proxy", s.handler.HandleProxy)
	mux.HandleFunc("POST /api/gemini/get-models", s.handler.HandleGeminiModels)
	mux.HandleFunc("POST /api/chat/stream", s.handler.HandleChatStream)
	mux.HandleFunc("DELETE /api/chat/stream/{sessionId}", s.handler.HandleCancelStream)
	mux.HandleFunc("POST /api/{provider}/{endpoint...}", s.handler.HandleProviderCall)
	mux.HandleFunc("GET /health", s.handler.HandleHealth)

	for _, mount := range s.mounts {
		mux.Handle(mount.Pattern, mount.Handler)
	}

	return s.middlewares(mux)
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.srv = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.config.Port),
		Handler:           s.Routes(),
		ReadHeaderTimeout: time.Duration(s.config.ReadTimeout) * time.Second,
		ReadTimeout:       time.Duration(s.config.ReadTimeout) * time.Second,
		WriteTimeout:      time.Duration(s.config.WriteTimeout) * time.Second,
	}

	ctx := context.Background()
	observability.FromContext(ctx).Info("starting HTTP server", observability.Int("port", s.config.Port))

	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	observability.FromContext(ctx).Info("shutting down HTTP server")

	if s.srv == nil {
		return nil
	}

	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	return nil
}
