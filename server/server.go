package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/kbukum/modelkit/auth/jwt"
	"github.com/kbukum/modelkit/logger"
	"github.com/kbukum/modelkit/observability"
	"github.com/kbukum/modelkit/server/endpoint"
	"github.com/kbukum/modelkit/server/middleware"
)

const shutdownGrace = 5 * time.Second

// Server is the gateway: one gin engine served as HTTP/1.1 and h2c on a
// single port.
type Server struct {
	config   Config
	engine   *gin.Engine
	http     *http.Server
	log      *logger.Logger
	listener net.Listener
}

// New builds a Server without middleware or routes. Gin runs in debug
// mode only when zerolog's global level is debug or lower.
func New(cfg Config, log *logger.Logger) *Server {
	mode := gin.ReleaseMode
	if zerolog.GlobalLevel() <= zerolog.DebugLevel {
		mode = gin.DebugMode
	}
	gin.SetMode(mode)

	engine := gin.New()
	h2 := &http2.Server{MaxConcurrentStreams: 250, IdleTimeout: 2 * time.Minute}
	return &Server{
		config: cfg,
		engine: engine,
		http: &http.Server{
			Addr:              net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
			Handler:           h2c.NewHandler(engine, h2),
			ReadTimeout:       cfg.ReadTimeout,
			ReadHeaderTimeout: cfg.ReadTimeout,
			WriteTimeout:      cfg.WriteTimeout,
			IdleTimeout:       cfg.IdleTimeout,
		},
		log: log.WithComponent("server"),
	}
}

// GinEngine is where routes are registered.
func (s *Server) GinEngine() *gin.Engine { return s.engine }

// Handler is the root handler, h2c included.
func (s *Server) Handler() http.Handler { return s.http.Handler }

// Start binds the port and serves in a goroutine.
func (s *Server) Start(ctx context.Context) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.http.Addr)
	if err != nil {
		return fmt.Errorf("server: bind %s: %w", s.http.Addr, err)
	}
	s.listener = ln

	go func() {
		if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("serve failed", logger.Fields(logger.FieldError, err.Error()))
		}
	}()
	s.log.Info("HTTP server started", logger.Fields("addr", s.Addr()))
	return nil
}

// Stop drains in-flight requests for up to five seconds.
func (s *Server) Stop(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, shutdownGrace)
	defer cancel()
	if err := s.http.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	s.log.Info("HTTP server shut down")
	return nil
}

// Addr is the bound address once started, else the configured one.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.http.Addr
}

// ApplyMiddleware installs, outermost first: recovery, request id,
// logging, metrics, CORS, then the optional rate limit, body size limit
// and bearer-token auth. metrics may be nil.
func (s *Server) ApplyMiddleware(metrics *observability.Metrics) error {
	chain := []gin.HandlerFunc{
		middleware.Recovery(s.log),
		middleware.RequestID(),
		middleware.RequestLogger(s.log),
		middleware.Metrics(metrics),
		middleware.CORS(s.config.CORS),
	}
	if s.config.RateLimit.Enabled() {
		chain = append(chain, middleware.RateLimit(s.config.RateLimit))
	}
	if s.config.MaxBodySize != "" {
		chain = append(chain, middleware.BodySizeLimit(s.config.MaxBodySize))
	}
	if s.config.Auth.Enabled {
		svc, err := jwt.NewService(s.config.Auth.JWT(), func() *jwt.Claims { return &jwt.Claims{} })
		if err != nil {
			return fmt.Errorf("server auth: %w", err)
		}
		chain = append(chain, middleware.Auth(svc.ValidatorFunc(), s.config.Auth.SkipPaths...))
	}
	s.engine.Use(chain...)
	return nil
}

// RegisterDefaultEndpoints mounts /health, /info and /version.
func (s *Server) RegisterDefaultEndpoints(service string, checker endpoint.HealthChecker) {
	s.engine.GET("/health", endpoint.Health(service, checker))
	s.engine.GET("/info", endpoint.Info(service))
	s.engine.GET("/version", endpoint.Version())
}
