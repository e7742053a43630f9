package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/selivandex/fatty/internal/adapters/config"
	"github.com/selivandex/fatty/internal/health"
	"github.com/selivandex/fatty/pkg/logger"
)

// Deps are the collaborators served over HTTP
type Deps struct {
	Chat   Chatter
	Prices Quoter
	Health *health.Checker
}

// Server is the public REST API
type Server struct {
	server   *http.Server
	limiter  *RateLimiter
	listener net.Listener
}

// NewRouter builds the gin engine with middleware and routes
func NewRouter(cfg *config.Config, deps Deps, limiter *RateLimiter) *gin.Engine {
	router := gin.New()

	router.Use(Recovery())
	router.Use(RequestID())
	router.Use(RequestLogger())
	router.Use(CORS(cfg.Server.CORSOrigins))
	if limiter != nil {
		router.Use(limiter.Middleware())
	}
	router.Use(BodyLimit(cfg.Server.MaxBodyBytes))

	h := &handlers{
		chat:            deps.Chat,
		prices:          deps.Prices,
		maxMessageChars: cfg.Server.MaxMessageChars,
	}

	router.GET("/", h.root)
	if deps.Health != nil {
		router.GET("/health", gin.WrapF(deps.Health.HandleHealth))
		router.GET("/ready", gin.WrapF(deps.Health.HandleReadiness))
	}

	ai := router.Group("/ai")
	ai.POST("/response", h.chatResponse)

	router.GET("/prices/:symbol", h.price)

	return router
}

// NewServer creates the HTTP server
func NewServer(cfg *config.Config, deps Deps) *Server {
	limiter := NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)

	return &Server{
		server: &http.Server{
			Addr:         ":" + cfg.Server.Port,
			Handler:      NewRouter(cfg, deps, limiter),
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
			IdleTimeout:  cfg.Server.IdleTimeout,
		},
		limiter: limiter,
	}
}

// Listen binds the configured address. Call it before Start to learn about
// bind failures before the service reports ready.
func (s *Server) Listen() error {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.server.Addr, err)
	}
	s.listener = ln
	return nil
}

// Addr returns the bound address, or the configured one before Listen
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.server.Addr
}

// Start serves until Shutdown is called, binding first if Listen was not called
func (s *Server) Start() error {
	if s.listener == nil {
		if err := s.Listen(); err != nil {
			return err
		}
	}

	logger.Info("🚀 server listening",
		zap.String("addr", s.Addr()),
	)

	if err := s.server.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	logger.Info("stopping http server...")
	s.limiter.Close()
	return s.server.Shutdown(ctx)
}
