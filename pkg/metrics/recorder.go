package metrics

import (
	"runtime"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder handles metrics recording and exposure.
// A nil *Recorder is valid and records nothing.
type Recorder struct {
	// API metrics
	apiRequestCounter   *prometheus.CounterVec
	apiLatencyHistogram *prometheus.HistogramVec

	// Pricing metrics
	pricingCounter      *prometheus.CounterVec
	pricingErrorCounter *prometheus.CounterVec
	pricingLatency      *prometheus.HistogramVec

	// Risk metrics
	riskCalcCounter *prometheus.CounterVec
	riskCalcLatency *prometheus.HistogramVec
	varGauge        *prometheus.GaugeVec
	esGauge         *prometheus.GaugeVec
	premiumGauge    *prometheus.GaugeVec

	// System metrics
	publishCounter      *prometheus.CounterVec
	memoryUsageGauge    prometheus.Gauge
	goroutineCountGauge prometheus.Gauge
}

// NewRecorder creates a new metrics recorder registered against reg.
// Passing prometheus.DefaultRegisterer exposes the metrics on promhttp.Handler().
func NewRecorder(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)

	return &Recorder{
		// API metrics
		apiRequestCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "optrisk_api_requests_total",
				Help: "The total number of API requests",
			},
			[]string{"method", "path", "status"},
		),
		apiLatencyHistogram: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "optrisk_api_latency_seconds",
				Help:    "API request latency distribution",
				Buckets: prometheus.ExponentialBuckets(0.001, 2, 15), // From 1ms to ~16s
			},
			[]string{"method", "path"},
		),

		// Pricing metrics
		pricingCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "optrisk_pricings_total",
				Help: "The total number of successful pricing calls",
			},
			[]string{"style", "method"},
		),
		pricingErrorCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "optrisk_pricing_errors_total",
				Help: "The total number of failed pricing calls by error type",
			},
			[]string{"style", "method", "error_type"},
		),
		pricingLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "optrisk_pricing_latency_seconds",
				Help:    "Pricing latency in seconds",
				Buckets: prometheus.ExponentialBuckets(0.00001, 4, 12), // From 10µs to ~40s
			},
			[]string{"style", "method"},
		),

		// Risk metrics
		riskCalcCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "optrisk_risk_calculations_total",
				Help: "The total number of risk calculations",
			},
			[]string{"type", "portfolio_id"},
		),
		riskCalcLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "optrisk_risk_calc_latency_seconds",
				Help:    "Risk calculation latency in seconds",
				Buckets: prometheus.ExponentialBuckets(0.001, 2, 15), // From 1ms to ~16s
			},
			[]string{"type", "portfolio_id"},
		),
		varGauge: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "optrisk_var_value",
				Help: "Value at Risk (VaR)",
			},
			[]string{"id", "confidence_level"},
		),
		esGauge: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "optrisk_es_value",
				Help: "Expected Shortfall (ES)",
			},
			[]string{"id", "confidence_level"},
		),
		premiumGauge: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "optrisk_portfolio_premium",
				Help: "Net premium of a portfolio",
			},
			[]string{"portfolio_id"},
		),

		// System metrics
		publishCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "optrisk_events_published_total",
				Help: "The total number of valuation events published",
			},
			[]string{"topic", "result"},
		),
		memoryUsageGauge: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "optrisk_memory_usage_bytes",
				Help: "Memory usage of the application in bytes",
			},
		),
		goroutineCountGauge: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "optrisk_goroutine_count",
				Help: "Number of goroutines",
			},
		),
	}
}

// RecordAPIRequest records metrics for an API request
func (r *Recorder) RecordAPIRequest(method, path string, status int, latency time.Duration) {
	if r == nil {
		return
	}
	r.apiRequestCounter.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	r.apiLatencyHistogram.WithLabelValues(method, path).Observe(latency.Seconds())
}

// RecordPricing records a successful pricing call
func (r *Recorder) RecordPricing(style, method string, latency time.Duration) {
	if r == nil {
		return
	}
	r.pricingCounter.WithLabelValues(style, method).Inc()
	r.pricingLatency.WithLabelValues(style, method).Observe(latency.Seconds())
}

// RecordPricingError records a failed pricing call
func (r *Recorder) RecordPricingError(style, method, errorType string) {
	if r == nil {
		return
	}
	r.pricingErrorCounter.WithLabelValues(style, method, errorType).Inc()
}

// RecordRiskCalculation records metrics for a risk calculation
func (r *Recorder) RecordRiskCalculation(calcType, portfolioID string, latency time.Duration) {
	if r == nil {
		return
	}
	r.riskCalcCounter.WithLabelValues(calcType, portfolioID).Inc()
	r.riskCalcLatency.WithLabelValues(calcType, portfolioID).Observe(latency.Seconds())
}

// RecordVaR records the current VaR value of an instrument or portfolio
func (r *Recorder) RecordVaR(id string, confidence float64, value float64) {
	if r == nil {
		return
	}
	r.varGauge.WithLabelValues(id, formatConfidence(confidence)).Set(value)
}

// RecordES records the current ES value of an instrument or portfolio
func (r *Recorder) RecordES(id string, confidence float64, value float64) {
	if r == nil {
		return
	}
	r.esGauge.WithLabelValues(id, formatConfidence(confidence)).Set(value)
}

// RecordPremium records the net premium of a portfolio
func (r *Recorder) RecordPremium(portfolioID string, premium float64) {
	if r == nil {
		return
	}
	r.premiumGauge.WithLabelValues(portfolioID).Set(premium)
}

// RecordPublish records the outcome of publishing an event
func (r *Recorder) RecordPublish(topic string, err error) {
	if r == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.publishCounter.WithLabelValues(topic, result).Inc()
}

// UpdateSystemMetrics samples memory usage and goroutine count
func (r *Recorder) UpdateSystemMetrics() {
	if r == nil {
		return
	}
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	r.memoryUsageGauge.Set(float64(m.Alloc))
	r.goroutineCountGauge.Set(float64(runtime.NumGoroutine()))
}

func formatConfidence(c float64) string {
	return strconv.FormatFloat(c, 'f', -1, 64)
}
