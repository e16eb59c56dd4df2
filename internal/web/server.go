// Package web serves the recommendation over HTTP and WebSocket.
package web

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/focusrank/focusrank/internal/config"
)

type Server struct {
	handler *Handler
	server  *http.Server
	logger  *zap.Logger
}

// NewServer builds the HTTP server. customPort overrides the configured port
// when positive.
func NewServer(cfg *config.Config, engine Engine, repo Store, customPort int, opts ...Option) *Server {
	handler := NewHandler(cfg, engine, repo, opts...)

	port := cfg.Web.Port
	if customPort > 0 {
		port = customPort
	}

	stdLog := zap.NewStdLog(handler.logger)
	var h http.Handler = handler.Routes()
	h = handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodOptions}),
	)(h)
	h = handlers.RecoveryHandler(handlers.RecoveryLogger(stdLog))(h)
	h = handlers.CombinedLoggingHandler(stdLog.Writer(), h)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Web.Host, port),
		Handler:      h,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		handler: handler,
		server:  httpServer,
		logger:  handler.logger,
	}
}

// Broadcaster returns the WebSocket broadcaster to subscribe to ranking changes
func (s *Server) Broadcaster() *Broadcaster {
	return s.handler.Broadcaster()
}

// Start runs the broadcaster and serves until Shutdown. It returns nil after
// a clean shutdown.
func (s *Server) Start(ctx context.Context) error {
	go s.handler.Broadcaster().Run(ctx)

	s.logger.Info("starting web server", zap.String("addr", "http://"+s.server.Addr))
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "web server failed")
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down web server")
	return s.server.Shutdown(ctx)
}

func (s *Server) GetAddress() string {
	return s.server.Addr
}
