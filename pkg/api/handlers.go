package api

import (
	"bytes"
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rzzdr/options-risk-engine/internal/export"
	"github.com/rzzdr/options-risk-engine/internal/kafka"
	"github.com/rzzdr/options-risk-engine/internal/portfolio"
	"github.com/rzzdr/options-risk-engine/internal/pricing"
	"github.com/rzzdr/options-risk-engine/internal/risk"
	"github.com/rzzdr/options-risk-engine/internal/store"
	"github.com/rzzdr/options-risk-engine/pkg/models"
	"github.com/rzzdr/options-risk-engine/pkg/utils/errors"
	"github.com/rzzdr/options-risk-engine/pkg/utils/logger"
)

// Handlers contains all HTTP handlers for the API
type Handlers struct {
	engine     *pricing.Engine
	calculator *risk.Calculator
	store      store.PortfolioStore
	publisher  kafka.Publisher
	log        *logger.Logger
}

// CreateHandlers creates new API handlers. A nil publisher discards events.
func CreateHandlers(engine *pricing.Engine, calculator *risk.Calculator, portfolios store.PortfolioStore, publisher kafka.Publisher) *Handlers {
	if publisher == nil {
		publisher = kafka.NopPublisher{}
	}
	return &Handlers{
		engine:     engine,
		calculator: calculator,
		store:      portfolios,
		publisher:  publisher,
		log:        logger.GetLogger("api.handlers"),
	}
}

// HealthCheckHandler handles health check requests
func (h *Handlers) HealthCheckHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"version":   "1.0.0",
	})
}

// PriceHandler prices a single contract
func (h *Handlers) PriceHandler(c *gin.Context) {
	var req PriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondBindError(c, err)
		return
	}

	contract, v, err := h.value(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.publishValuation(c.Request.Context(), contract, v)

	if !req.IncludePayoff {
		v = withoutPayoff(v)
	}
	c.JSON(http.StatusOK, v)
}

// GreeksHandler returns the sensitivities of a single contract
func (h *Handlers) GreeksHandler(c *gin.Context) {
	var req ContractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondBindError(c, err)
		return
	}

	contract := req.Contract()
	greeks, err := h.engine.Greeks(contract)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"instrument_id": contract.Terms().ID,
		"greeks":        greeks,
	})
}

// VaRHandler estimates VaR and Expected Shortfall of a single contract
func (h *Handlers) VaRHandler(c *gin.Context) {
	var req VaRRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondBindError(c, err)
		return
	}

	params, err := req.params()
	if err != nil {
		h.respondError(c, err)
		return
	}

	contract := req.Contract()
	v, err := h.engine.Value(c.Request.Context(), contract, models.MethodClosedForm, pricing.MonteCarloParams{})
	if err != nil {
		h.respondError(c, err)
		return
	}

	result, err := h.calculator.VaR().Compute(c.Request.Context(), contract, v, params)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// PayoffHandler returns the payoff curve of a single contract as JSON or CSV
func (h *Handlers) PayoffHandler(c *gin.Context) {
	var req ContractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondBindError(c, err)
		return
	}

	contract := req.Contract()
	payoff, err := h.engine.PayoffCurve(contract)
	if err != nil {
		h.respondError(c, err)
		return
	}

	h.writePayoff(c, pricing.SpotGrid(contract.Terms().Spot), payoff)
}

// CreatePortfolioHandler creates an empty portfolio
func (h *Handlers) CreatePortfolioHandler(c *gin.Context) {
	var req CreatePortfolioRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondBindError(c, err)
		return
	}

	p := portfolio.New(req.Name)
	if err := h.store.SavePortfolio(p); err != nil {
		h.respondError(c, err)
		return
	}

	h.log.Infow("Created portfolio", "id", p.ID(), "name", p.Name())
	c.JSON(http.StatusCreated, newPortfolioResponse(p))
}

// GetPortfoliosHandler lists every portfolio
func (h *Handlers) GetPortfoliosHandler(c *gin.Context) {
	portfolios, err := h.store.GetAllPortfolios()
	if err != nil {
		h.respondError(c, err)
		return
	}

	resp := make([]PortfolioResponse, len(portfolios))
	for i, p := range portfolios {
		resp[i] = newPortfolioResponse(p)
	}
	c.JSON(http.StatusOK, resp)
}

// GetPortfolioHandler returns one portfolio
func (h *Handlers) GetPortfolioHandler(c *gin.Context) {
	p, err := h.store.GetPortfolio(c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newPortfolioResponse(p))
}

// DeletePortfolioHandler removes a portfolio
func (h *Handlers) DeletePortfolioHandler(c *gin.Context) {
	if err := h.store.DeletePortfolio(c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// AddHoldingHandler prices a contract and adds it to a portfolio
func (h *Handlers) AddHoldingHandler(c *gin.Context) {
	p, err := h.store.GetPortfolio(c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	var req PriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondBindError(c, err)
		return
	}

	contract, v, err := h.value(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if _, err := contract.Terms().Position.Sign(); err != nil {
		h.respondError(c, err)
		return
	}

	p.AddHolding(contract, v)
	if _, err := p.ComputePremium(); err != nil {
		h.respondError(c, err)
		return
	}
	h.publishValuation(c.Request.Context(), contract, v)

	c.JSON(http.StatusCreated, newPortfolioResponse(p))
}

// PortfolioPayoffHandler returns the aggregated payoff curve of a portfolio
func (h *Handlers) PortfolioPayoffHandler(c *gin.Context) {
	p, err := h.store.GetPortfolio(c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	payoff, err := p.ComputePayoffCurve()
	if err != nil {
		h.respondError(c, err)
		return
	}

	h.writePayoff(c, p.Grid(), payoff)
}

// PortfolioRiskHandler assesses premium, Greeks and VaR of a portfolio
func (h *Handlers) PortfolioRiskHandler(c *gin.Context) {
	p, err := h.store.GetPortfolio(c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	report, err := h.calculator.Assess(c.Request.Context(), p)
	if err != nil {
		h.respondError(c, err)
		return
	}

	if err := h.publisher.PublishRiskReport(c.Request.Context(), report); err != nil {
		h.log.Warnw("Failed to publish risk report", "portfolio", p.ID(), "error", err)
	}
	c.JSON(http.StatusOK, report)
}

// NotFoundHandler answers unknown routes
func (h *Handlers) NotFoundHandler(c *gin.Context) {
	h.respondError(c, errors.NotFound("no route for %s %s", c.Request.Method, c.Request.URL.Path))
}

func (h *Handlers) value(ctx context.Context, req PriceRequest) (models.Contract, *models.Valuation, error) {
	method, err := models.ParsePricingMethod(req.Method)
	if err != nil {
		return nil, nil, err
	}

	contract := req.Contract()
	v, err := h.engine.Value(ctx, contract, method, req.params())
	if err != nil {
		return nil, nil, err
	}
	return contract, v, nil
}

func (h *Handlers) publishValuation(ctx context.Context, contract models.Contract, v *models.Valuation) {
	if err := h.publisher.PublishValuation(ctx, contract, v); err != nil {
		h.log.Warnw("Failed to publish valuation", "instrument", v.InstrumentID, "error", err)
	}
}

// writePayoff renders a payoff curve as CSV when asked for text/csv or
// ?format=csv, and as JSON otherwise
func (h *Handlers) writePayoff(c *gin.Context, grid, payoff []float64) {
	if c.Query("format") == "csv" || strings.Contains(c.GetHeader("Accept"), "text/csv") {
		var buf bytes.Buffer
		if err := export.WritePayoffCSV(&buf, grid, payoff); err != nil {
			h.respondError(c, err)
			return
		}
		c.Data(http.StatusOK, "text/csv", buf.Bytes())
		return
	}

	if _, err := export.PayoffRows(grid, payoff); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, PayoffResponse{Grid: grid, Payoff: payoff})
}
