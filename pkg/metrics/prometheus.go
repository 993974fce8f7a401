package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rzzdr/options-risk-engine/pkg/utils/logger"
)

// Handler returns an HTTP handler exposing the metrics gathered by g
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// PrometheusServer is a server that exposes Prometheus metrics on its own port
type PrometheusServer struct {
	server *http.Server
	log    *logger.Logger
}

// NewPrometheusServer creates a new Prometheus metrics server
func NewPrometheusServer(port int, g prometheus.Gatherer) *PrometheusServer {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(g))

	return &PrometheusServer{
		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
		log: logger.GetLogger("metrics.prometheus"),
	}
}

// Start starts the Prometheus metrics server. It blocks until the server stops.
func (p *PrometheusServer) Start() error {
	p.log.Infof("Starting Prometheus metrics server on %s", p.server.Addr)
	if err := p.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop stops the Prometheus metrics server
func (p *PrometheusServer) Stop(ctx context.Context) error {
	p.log.Info("Stopping Prometheus metrics server")
	return p.server.Shutdown(ctx)
}
