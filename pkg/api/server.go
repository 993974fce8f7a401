package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/rzzdr/options-risk-engine/pkg/metrics"
	"github.com/rzzdr/options-risk-engine/pkg/utils/backpressure"
	"github.com/rzzdr/options-risk-engine/pkg/utils/logger"
)

// Config holds the configuration for the API server
type Config struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	CORS         CORSConfig

	// RateLimit is requests per second per client; zero disables limiting
	RateLimit float64
	RateBurst int
}

// Server represents the API server
type Server struct {
	config     Config
	router     *gin.Engine
	httpServer *http.Server
	handlers   *Handlers
	recorder   *metrics.Recorder
	gatherer   prometheus.Gatherer
	log        *logger.Logger
}

// NewServer creates a new API server. The gatherer backs /metrics and may be
// nil, in which case the route is not registered.
func NewServer(config Config, handlers *Handlers, recorder *metrics.Recorder, gatherer prometheus.Gatherer) *Server {
	if config.ReadTimeout <= 0 {
		config.ReadTimeout = 10 * time.Second
	}

	if config.WriteTimeout <= 0 {
		config.WriteTimeout = 60 * time.Second
	}

	server := &Server{
		config:   config,
		router:   gin.New(),
		handlers: handlers,
		recorder: recorder,
		gatherer: gatherer,
		log:      logger.GetLogger("api.server"),
	}

	server.setupRoutes()

	return server
}

// Router exposes the gin engine, mainly for tests
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Start starts the API server and blocks until it stops
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.log.Infof("Starting API server on %s", addr)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// MountStream serves the live event stream at /api/v1/stream
func (s *Server) MountStream(stream http.Handler) {
	s.router.GET("/api/v1/stream", gin.WrapH(stream))
}

// Stop stops the API server gracefully
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer != nil {
		s.log.Info("Stopping API server")
		return s.httpServer.Shutdown(ctx)
	}

	return nil
}

func (s *Server) setupRoutes() {
	s.router.Use(ErrorMiddleware())
	s.router.Use(LoggingMiddleware())
	s.router.Use(MetricsMiddleware(s.recorder))
	s.router.Use(CORSMiddleware(s.config.CORS))
	if s.config.RateLimit > 0 {
		s.router.Use(RateLimitMiddleware(backpressure.NewKeyedLimiter(s.config.RateLimit, s.config.RateBurst)))
	}

	if s.gatherer != nil {
		s.router.GET("/metrics", gin.WrapH(metrics.Handler(s.gatherer)))
	}

	h := s.handlers
	v1 := s.router.Group("/api/v1")
	v1.GET("/health", h.HealthCheckHandler)

	options := v1.Group("/options")
	options.POST("/price", h.PriceHandler)
	options.POST("/greeks", h.GreeksHandler)
	options.POST("/var", h.VaRHandler)
	options.POST("/payoff", h.PayoffHandler)

	portfolios := v1.Group("/portfolios")
	portfolios.GET("", h.GetPortfoliosHandler)
	portfolios.POST("", h.CreatePortfolioHandler)
	portfolios.GET("/:id", h.GetPortfolioHandler)
	portfolios.DELETE("/:id", h.DeletePortfolioHandler)
	portfolios.POST("/:id/holdings", h.AddHoldingHandler)
	portfolios.GET("/:id/payoff", h.PortfolioPayoffHandler)
	portfolios.GET("/:id/risk", h.PortfolioRiskHandler)

	s.router.NoRoute(h.NotFoundHandler)
}
