package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rzzdr/options-risk-engine/internal/pricing"
	"github.com/rzzdr/options-risk-engine/internal/risk"
	"github.com/rzzdr/options-risk-engine/internal/store"
	"github.com/rzzdr/options-risk-engine/pkg/metrics"
	"github.com/rzzdr/options-risk-engine/pkg/models"
)

type recordingPublisher struct {
	mu         sync.Mutex
	valuations []*models.Valuation
	reports    []*models.RiskReport
}

func (p *recordingPublisher) PublishValuation(_ context.Context, _ models.Contract, v *models.Valuation) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.valuations = append(p.valuations, v)
	return nil
}

func (p *recordingPublisher) PublishRiskReport(_ context.Context, r *models.RiskReport) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reports = append(p.reports, r)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func newTestServer(t *testing.T) (*Server, *recordingPublisher) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	reg := prometheus.NewRegistry()
	recorder := metrics.NewRecorder(reg)
	sim := pricing.NewSimulator(2)
	engine := pricing.NewEngine(sim, pricing.MonteCarloParams{Steps: 10, Paths: 2000, Seed: 11}, recorder)
	calc := risk.NewCalculator(risk.CalculatorConfig{VaR: risk.VaRParams{Seed: 5, Paths: 2000}, WorkerCount: 2}, engine, sim, recorder)

	pub := &recordingPublisher{}
	handlers := CreateHandlers(engine, calc, store.NewInMemoryPortfolioStore(), pub)
	return NewServer(Config{Port: 8080}, handlers, recorder, reg), pub
}

func do(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	return w
}

func call(strike float64, position string, size int) map[string]any {
	return map[string]any{
		"kind":          "call",
		"position":      position,
		"spot":          11.10,
		"strike":        strike,
		"maturity":      1,
		"rate":          0.05,
		"volatility":    0.30,
		"contract_size": size,
		"multiplier":    100,
	}
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t)
	w := do(t, s, http.MethodGet, "/api/v1/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}

func TestPriceOption(t *testing.T) {
	s, pub := newTestServer(t)

	w := do(t, s, http.MethodPost, "/api/v1/options/price", call(11, "long", 1))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var v models.Valuation
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	assert.InDelta(t, 1.628434498037, v.Price, 1e-6)
	assert.Equal(t, models.MethodClosedForm, v.Method)
	assert.Empty(t, v.Payoff)
	require.NotNil(t, v.Greeks)
	assert.InDelta(t, 0.635641527368, v.Greeks.Delta, 1e-6)

	require.Len(t, pub.valuations, 1)
	assert.Equal(t, v.InstrumentID, pub.valuations[0].InstrumentID)
}

func TestPriceOptionMonteCarlo(t *testing.T) {
	s, _ := newTestServer(t)

	body := call(11, "long", 1)
	body["method"] = "monte_carlo"
	body["paths"] = 20000
	body["include_payoff"] = true
	w := do(t, s, http.MethodPost, "/api/v1/options/price", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var v models.Valuation
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	assert.Equal(t, models.MethodMonteCarlo, v.Method)
	assert.Equal(t, 20000, v.Paths)
	assert.InDelta(t, 1.628434498037, v.Price, 5*v.StdError)
	assert.Len(t, v.Payoff, len(pricing.SpotGrid(11.10)))
}

func TestPriceErrors(t *testing.T) {
	s, _ := newTestServer(t)

	tests := []struct {
		name     string
		mutate   func(map[string]any)
		status   int
		errorTyp string
	}{
		{"unknown kind", func(b map[string]any) { b["kind"] = "straddle" }, http.StatusBadRequest, "invalid_argument"},
		{"missing kind", func(b map[string]any) { delete(b, "kind") }, http.StatusBadRequest, "invalid_option_kind"},
		{"negative spot", func(b map[string]any) { b["spot"] = -1 }, http.StatusBadRequest, "domain_error"},
		{"put barrier", func(b map[string]any) {
			b["style"] = "barrier"
			b["kind"] = "put"
			b["barrier_type"] = "down-and-in"
			b["barrier"] = 9
		}, http.StatusBadRequest, "invalid_barrier_type"},
		{"unknown method", func(b map[string]any) { b["method"] = "binomial" }, http.StatusBadRequest, "invalid_argument"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := call(11, "long", 1)
			tt.mutate(body)
			w := do(t, s, http.MethodPost, "/api/v1/options/price", body)
			require.Equal(t, tt.status, w.Code, w.Body.String())

			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.errorTyp, resp.Type)
			assert.NotEmpty(t, resp.Error)
		})
	}
}

func TestGreeksAndVaR(t *testing.T) {
	s, _ := newTestServer(t)

	w := do(t, s, http.MethodPost, "/api/v1/options/greeks", call(11, "long", 1))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var greeks struct {
		Greeks models.Greeks `json:"greeks"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &greeks))
	assert.InDelta(t, 0.112809206246, greeks.Greeks.Gamma, 1e-6)
	assert.InDelta(t, 4.169766690459, greeks.Greeks.Vega, 1e-6)

	body := call(11, "long", 1)
	body["seed"] = 9
	body["paths"] = 5000
	w = do(t, s, http.MethodPost, "/api/v1/options/var", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var result models.VaRResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, 0.95, result.Confidence)
	assert.Equal(t, 5000, result.Paths)
	assert.Equal(t, models.VaRMethodRepricing, result.Method)
	assert.GreaterOrEqual(t, result.ExpectedShortfall, result.VaR)

	body["var_method"] = "historical"
	w = do(t, s, http.MethodPost, "/api/v1/options/var", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPayoffCSV(t *testing.T) {
	s, _ := newTestServer(t)

	w := do(t, s, http.MethodPost, "/api/v1/options/payoff?format=csv", call(11, "long", 1))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))

	lines := strings.Split(strings.TrimSpace(w.Body.String()), "\n")
	assert.Equal(t, "spot,payoff", lines[0])
	assert.Len(t, lines, len(pricing.SpotGrid(11.10))+1)

	w = do(t, s, http.MethodPost, "/api/v1/options/payoff", call(11, "long", 1))
	require.Equal(t, http.StatusOK, w.Code)
	var resp PayoffResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Payoff, len(resp.Grid))
}

func TestPortfolioLifecycle(t *testing.T) {
	s, pub := newTestServer(t)

	w := do(t, s, http.MethodPost, "/api/v1/portfolios", map[string]string{"name": "Long Butterfly"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created PortfolioResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	base := "/api/v1/portfolios/" + created.ID

	for _, leg := range []map[string]any{call(11, "short", 200), call(9, "long", 100), call(13, "long", 100)} {
		w = do(t, s, http.MethodPost, base+"/holdings", leg)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}

	w = do(t, s, http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got PortfolioResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got.Holdings, 3)
	assert.NotZero(t, got.Premium)
	assert.Empty(t, got.Holdings[0].Valuation.Payoff)

	w = do(t, s, http.MethodGet, base+"/payoff", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var curve PayoffResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &curve))
	require.Greater(t, len(curve.Payoff), 200)
	assert.InDelta(t, 20000+got.Premium, curve.Payoff[110], 1e-6)
	assert.InDelta(t, got.Premium, curve.Payoff[50], 1e-6)

	w = do(t, s, http.MethodGet, base+"/risk", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var report models.RiskReport
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.Equal(t, created.ID, report.PortfolioID)
	assert.Len(t, report.Positions, 3)
	assert.InDelta(t, got.Premium, report.Premium, 1e-9)
	require.Len(t, pub.reports, 1)

	w = do(t, s, http.MethodGet, "/api/v1/portfolios", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var all []PortfolioResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &all))
	assert.Len(t, all, 1)

	w = do(t, s, http.MethodDelete, base, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = do(t, s, http.MethodGet, base, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPortfolioErrors(t *testing.T) {
	s, _ := newTestServer(t)

	w := do(t, s, http.MethodPost, "/api/v1/portfolios", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, s, http.MethodPost, "/api/v1/portfolios/missing/holdings", call(11, "long", 1))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, s, http.MethodPost, "/api/v1/portfolios", map[string]string{"name": "empty"})
	require.Equal(t, http.StatusCreated, w.Code)
	var created PortfolioResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	w = do(t, s, http.MethodGet, "/api/v1/portfolios/"+created.ID+"/payoff", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	leg := call(11, "long", 1)
	delete(leg, "position")
	w = do(t, s, http.MethodPost, "/api/v1/portfolios/"+created.ID+"/holdings", leg)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = do(t, s, http.MethodGet, "/api/v1/portfolios/"+created.ID, nil)
	var got PortfolioResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Empty(t, got.Holdings)
}

func TestMetricsCORSAndNotFound(t *testing.T) {
	s, _ := newTestServer(t)

	do(t, s, http.MethodGet, "/api/v1/health", nil)
	w := do(t, s, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "optrisk_api_requests_total")

	w = do(t, s, http.MethodOptions, "/api/v1/options/price", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))

	w = do(t, s, http.MethodGet, "/api/v1/nowhere", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "not_found")
}

func TestRateLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	s, _ := newTestServer(t)
	limited := NewServer(Config{RateLimit: 0.001, RateBurst: 2}, s.handlers, nil, nil)

	for i := 0; i < 2; i++ {
		w := do(t, limited, http.MethodGet, "/api/v1/health", nil)
		assert.Equal(t, http.StatusOK, w.Code)
	}
	w := do(t, limited, http.MethodGet, "/api/v1/health", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "rate_limited")
}

func TestMountStream(t *testing.T) {
	s, _ := newTestServer(t)

	w := do(t, s, http.MethodGet, "/api/v1/stream", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	s.MountStream(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusSwitchingProtocols)
	}))
	w = do(t, s, http.MethodGet, "/api/v1/stream", nil)
	assert.Equal(t, http.StatusSwitchingProtocols, w.Code)
}
