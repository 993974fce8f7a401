package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/rzzdr/options-risk-engine/config"
	"github.com/rzzdr/options-risk-engine/internal/kafka"
	"github.com/rzzdr/options-risk-engine/internal/pricing"
	"github.com/rzzdr/options-risk-engine/internal/risk"
	"github.com/rzzdr/options-risk-engine/internal/store"
	"github.com/rzzdr/options-risk-engine/internal/websocket"
	"github.com/rzzdr/options-risk-engine/pkg/api"
	"github.com/rzzdr/options-risk-engine/pkg/metrics"
	"github.com/rzzdr/options-risk-engine/pkg/models"
	"github.com/rzzdr/options-risk-engine/pkg/utils/logger"
)

var (
	configFile = flag.String("config", config.GetConfigPath(), "Path to configuration file")
)

func main() {
	flag.Parse()

	cfg, err := config.LoadFrom(*configFile)
	if err != nil {
		logger.GetLogger("api.main").Fatalf("Failed to load configuration: %v", err)
	}

	logger.Init(cfg.App.LogLevel, cfg.App.Environment)
	log := logger.GetLogger("api.main")
	defer log.Sync()
	log.Infow("Starting options risk engine API", "env", cfg.App.Environment)

	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder := metrics.NewRecorder(reg)

	sim := pricing.NewSimulator(cfg.Pricing.Workers)
	engine := pricing.NewEngine(sim, pricing.MonteCarloParams{
		Steps: cfg.Pricing.MonteCarloSteps,
		Paths: cfg.Pricing.MonteCarloPaths,
		Seed:  cfg.Pricing.Seed,
	}, recorder)

	varMethod, err := models.ParseVaRMethod(cfg.Risk.VaRMethod)
	if err != nil {
		log.Fatalf("Invalid VaR method: %v", err)
	}
	calculator := risk.NewCalculator(
		risk.CalculatorConfig{
			VaR: risk.VaRParams{
				Confidence: cfg.Risk.VaRConfidenceLevel,
				Paths:      cfg.Risk.VaRPaths,
				Method:     varMethod,
				Seed:       cfg.Pricing.Seed,
			},
			WorkerCount: cfg.Risk.Workers,
		},
		engine,
		sim,
		recorder,
	)

	var publisher kafka.Publisher = kafka.NopPublisher{}
	if cfg.Kafka.Enabled {
		producer, err := kafka.NewProducer(&kafka.Config{
			Brokers:      cfg.Kafka.Brokers,
			Topic:        cfg.Kafka.ValuationsTopic,
			RiskTopic:    cfg.Kafka.RiskTopic,
			RequiredAcks: cfg.Kafka.RequiredAcks,
			BatchTimeout: cfg.Kafka.BatchTimeout,
			WriteTimeout: cfg.Kafka.WriteTimeout,
		}, recorder)
		if err != nil {
			log.Fatalf("Failed to create Kafka producer: %v", err)
		}
		publisher = producer
	}

	var hub *websocket.Hub
	if cfg.API.StreamEnabled {
		hub = websocket.NewHub()
		go hub.Run(ctx)
		publisher = kafka.MultiPublisher{publisher, hub}
	}

	handlers := api.CreateHandlers(engine, calculator, store.NewInMemoryPortfolioStore(), publisher)
	apiServer := api.NewServer(
		api.Config{
			Host:         cfg.API.Host,
			Port:         cfg.API.Port,
			ReadTimeout:  cfg.API.ReadTimeout,
			WriteTimeout: cfg.API.WriteTimeout,
			RateLimit:    cfg.API.RateLimit,
			RateBurst:    cfg.API.RateBurst,
			CORS: api.CORSConfig{
				AllowedOrigins: cfg.API.CORS.AllowedOrigins,
				AllowedMethods: cfg.API.CORS.AllowedMethods,
				AllowedHeaders: cfg.API.CORS.AllowedHeaders,
			},
		},
		handlers,
		recorder,
		reg,
	)
	if hub != nil {
		apiServer.MountStream(http.HandlerFunc(hub.HandleWebSocket))
	}

	go func() {
		if err := apiServer.Start(); err != nil {
			log.Errorf("API server error: %v", err)
			cancel()
		}
	}()

	var promServer *metrics.PrometheusServer
	if cfg.Metrics.Prometheus.Enabled {
		promServer = metrics.NewPrometheusServer(cfg.Metrics.Prometheus.Port, reg)
		go func() {
			if err := promServer.Start(); err != nil {
				log.Errorf("Metrics server error: %v", err)
			}
		}()
	}

	go sampleSystemMetrics(ctx, recorder, cfg.Metrics.Interval)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		log.Infof("Received signal %v, initiating shutdown", sig)
	case <-ctx.Done():
		log.Info("Server stopped, initiating shutdown")
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.API.ShutdownTimeout)
	defer shutdownCancel()

	if err := apiServer.Stop(shutdownCtx); err != nil {
		log.Errorf("API server shutdown error: %v", err)
	}

	if promServer != nil {
		if err := promServer.Stop(shutdownCtx); err != nil {
			log.Errorf("Metrics server shutdown error: %v", err)
		}
	}

	if err := publisher.Close(); err != nil {
		log.Errorf("Publisher shutdown error: %v", err)
	}

	log.Info("Shutdown complete")
}

func sampleSystemMetrics(ctx context.Context, recorder *metrics.Recorder, interval time.Duration) {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		recorder.UpdateSystemMetrics()
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
