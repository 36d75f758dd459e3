package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/slatehub/slate-core/internal/framelog"
	"github.com/slatehub/slate-core/internal/hub"
	"github.com/slatehub/slate-core/internal/infrastructure/config"
	"github.com/slatehub/slate-core/internal/infrastructure/logging"
)

// shutdownTimeout is the grace period for in-flight requests.
const shutdownTimeout = 10 * time.Second

// Deps are the collaborators the server needs. FrameLog is optional.
type Deps struct {
	Config     *config.Config
	Hub        *hub.Hub
	FrameLog   framelog.Repository
	Logger     *logging.Logger
	ConfigPath string
}

// Server is the HTTP front door.
type Server struct {
	cfg        *config.Config
	hub        *hub.Hub
	frames     framelog.Repository
	logger     *logging.Logger
	configPath string

	ws         *WSHub
	httpServer *http.Server
}

// New creates the server and its WebSocket hub. Call Start to begin
// serving and the returned hub's Run on its own goroutine.
func New(deps Deps) *Server {
	s := &Server{
		cfg:        deps.Config,
		hub:        deps.Hub,
		frames:     deps.FrameLog,
		logger:     deps.Logger,
		configPath: deps.ConfigPath,
		ws:         NewWSHub(deps.Logger),
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", deps.Config.API.Host, deps.Config.API.Port),
		Handler:      s.routes(),
		ReadTimeout:  deps.Config.GetReadTimeout(),
		WriteTimeout: deps.Config.GetWriteTimeout(),
		IdleTimeout:  deps.Config.GetIdleTimeout(),
	}
	return s
}

// WSHub returns the WebSocket event hub for broadcaster wiring.
func (s *Server) WSHub() *WSHub {
	return s.ws
}

// Start begins serving. Blocks until the listener stops; run on its
// own goroutine.
func (s *Server) Start() error {
	s.logger.Info("HTTP API listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests and stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	s.ws.CloseAll()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}
