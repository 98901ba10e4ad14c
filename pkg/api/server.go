package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Config holds the API server settings.
type Config struct {
	Host          string   `yaml:"host"`
	Port          int      `yaml:"port"`
	CORSOrigins   []string `yaml:"cors_origins"`
	EnableLogging bool     `yaml:"enable_logging"`
}

// DefaultConfig listens on localhost:8002, next to the memory API.
func DefaultConfig() Config {
	return Config{
		Host:          "localhost",
		Port:          8002,
		CORSOrigins:   []string{"http://localhost:3000"},
		EnableLogging: true,
	}
}

const (
	readTimeout     = 15 * time.Second
	writeTimeout    = 15 * time.Second
	forceTimeout    = 5 * time.Minute
	idleTimeout     = 60 * time.Second
	shutdownTimeout = 5 * time.Second
)

// Server is the HTTP API server.
type Server struct {
	cfg     Config
	router  *Router
	hub     *Hub
	logger  *zap.Logger
	handler http.Handler

	writeTimeout time.Duration

	mu         sync.Mutex
	httpServer *http.Server
	listener   net.Listener
}

// NewServer builds a server exposing backend under /api and hub under /ws.
// hub may be nil.
func NewServer(cfg Config, backend Backend, hub *Hub, logger *zap.Logger) *Server {
	def := DefaultConfig()
	if cfg.Host == "" {
		cfg.Host = def.Host
	}
	if cfg.Port == 0 {
		cfg.Port = def.Port
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	router := NewRouter()
	NewHandlers(backend).RegisterRoutes(router)
	if hub != nil {
		hub.SetCheckOrigin(makeOriginChecker(cfg.CORSOrigins))
		router.GET("/ws", hub.ServeHTTP)
	}

	middlewares := []Middleware{RecoveryMiddleware(logger), RequestIDMiddleware}
	if cfg.EnableLogging {
		middlewares = append(middlewares, LoggingMiddleware(logger))
	}
	if len(cfg.CORSOrigins) > 0 {
		middlewares = append(middlewares, CORSMiddleware(cfg.CORSOrigins))
	}

	return &Server{
		cfg:          cfg,
		router:       router,
		hub:          hub,
		logger:       logger,
		handler:      Chain(router, middlewares...),
		writeTimeout: writeTimeout,
	}
}

// Handler returns the full handler chain.
func (s *Server) Handler() http.Handler { return s.handler }

// Router returns the router for extra routes.
func (s *Server) Router() *Router { return s.router }

// Address is the configured host:port.
func (s *Server) Address() string {
	return net.JoinHostPort(s.cfg.Host, fmt.Sprintf("%d", s.cfg.Port))
}

// Addr is the bound address once started, else the configured one.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.Address()
}

// Start binds the address and serves in the background. Binding errors
// such as a port in use are returned directly.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.httpServer != nil {
		return errors.New("api server is already running")
	}

	ln, err := net.Listen("tcp", s.Address())
	if err != nil {
		return fmt.Errorf("api server failed to listen on %s: %w", s.Address(), err)
	}
	srv := &http.Server{
		Handler:      s.handler,
		ReadTimeout:  readTimeout,
		WriteTimeout: s.writeTimeout,
		IdleTimeout:  idleTimeout,
	}
	s.httpServer, s.listener = srv, ln

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server stopped", zap.Error(err))
		}
	}()
	s.logger.Info("api server listening", zap.String("addr", ln.Addr().String()))
	return nil
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.httpServer
	s.httpServer, s.listener = nil, nil
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	s.logger.Info("api server shutting down")
	return srv.Shutdown(ctx)
}

// Run starts the server and the hub, and stops both when ctx is done.
func (s *Server) Run(ctx context.Context) error {
	if err := s.Start(); err != nil {
		return err
	}
	hubDone := make(chan struct{})
	if s.hub != nil {
		go func() {
			s.hub.Run(ctx)
			close(hubDone)
		}()
	} else {
		close(hubDone)
	}

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := s.Shutdown(shutdownCtx)
	<-hubDone
	return err
}

// makeOriginChecker validates websocket origins against the CORS list.
func makeOriginChecker(allowedOrigins []string) func(*http.Request) bool {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		if origin == "*" {
			return func(*http.Request) bool { return true }
		}
		allowed[origin] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || allowed[origin]
	}
}
