package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/mikey/phishguard/internal/ports"
	"go.uber.org/zap"
)

// APIVersion is reported by the health endpoint
const APIVersion = "1.0.0"

// ServerOptions configures the HTTP API
type ServerOptions struct {
	ListenAddress   string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	Mode            string
	AllowedOrigins  []string
}

// Server exposes the detection service over HTTP
type Server struct {
	predictor ports.Predictor
	logger    *zap.Logger
	opts      ServerOptions
	router    *gin.Engine

	mu       sync.Mutex
	srv      *http.Server
	listener net.Listener
}

// NewServer creates the HTTP API and registers its routes
func NewServer(predictor ports.Predictor, logger *zap.Logger, opts ServerOptions) *Server {
	if opts.Mode != "" {
		gin.SetMode(opts.Mode)
	}

	s := &Server{
		predictor: predictor,
		logger:    logger,
		opts:      opts,
	}

	router := gin.New()
	router.Use(
		requestID(),
		accessLog(logger),
		gin.CustomRecovery(recoverJSON(logger)),
		cors.New(corsConfig(opts.AllowedOrigins)),
	)

	s.register(router.Group("/"))
	s.register(router.Group("/v1"))

	s.router = router
	return s
}

func (s *Server) register(group *gin.RouterGroup) {
	group.GET("/health", s.health)
	group.POST("/predict", s.predict)
}

// Handler returns the HTTP handler serving the API
func (s *Server) Handler() http.Handler {
	return s.router
}

// Name identifies the server in logs
func (s *Server) Name() string {
	return "http"
}

// Start binds the listen address and serves in the background
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.opts.ListenAddress)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.opts.ListenAddress, err)
	}

	srv := &http.Server{
		Handler:      s.router,
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
	}

	s.mu.Lock()
	s.srv = srv
	s.listener = ln
	s.mu.Unlock()

	s.logger.Info("HTTP API starting", zap.String("address", ln.Addr().String()))

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP server error", zap.Error(err))
		}
	}()

	return nil
}

// Addr returns the bound listen address once started
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Stop drains in-flight requests, waiting at most the shutdown timeout
func (s *Server) Stop() error {
	s.mu.Lock()
	srv := s.srv
	s.srv = nil
	s.mu.Unlock()

	if srv == nil {
		return nil
	}

	timeout := s.opts.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return srv.Shutdown(ctx)
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", requestIDHeader},
		ExposeHeaders: []string{requestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	for _, origin := range origins {
		if origin == "*" {
			cfg.AllowAllOrigins = true
			return cfg
		}
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	return cfg
}
