package api

import (
	"time"

	"github.com/rzzdr/options-risk-engine/internal/portfolio"
	"github.com/rzzdr/options-risk-engine/internal/pricing"
	"github.com/rzzdr/options-risk-engine/internal/risk"
	"github.com/rzzdr/options-risk-engine/pkg/models"
)

// ContractRequest describes a vanilla or barrier option in a request body.
// Contract size and multiplier default to 1 when omitted.
type ContractRequest struct {
	Style         models.Style       `json:"style"`
	Kind          models.OptionKind  `json:"kind"`
	Position      models.Position    `json:"position"`
	Spot          float64            `json:"spot"`
	Strike        float64            `json:"strike"`
	Maturity      float64            `json:"maturity"`
	Rate          float64            `json:"rate"`
	Volatility    float64            `json:"volatility"`
	ContractSize  int                `json:"contract_size"`
	Multiplier    float64            `json:"multiplier"`
	BarrierType   models.BarrierType `json:"barrier_type"`
	Barrier       float64            `json:"barrier"`
	DividendYield float64            `json:"dividend_yield"`
}

// Contract builds the domain contract
func (r ContractRequest) Contract() models.Contract {
	size := r.ContractSize
	if size == 0 {
		size = 1
	}
	mult := r.Multiplier
	if mult == 0 {
		mult = 1
	}

	o := models.NewOption(r.Kind, r.Position, r.Spot, r.Strike, r.Maturity, r.Rate, r.Volatility, size, mult)
	if r.Style == models.StyleBarrier {
		return models.NewBarrierOption(o, r.BarrierType, r.Barrier, r.DividendYield)
	}
	return o
}

// PriceRequest prices a contract
type PriceRequest struct {
	ContractRequest
	Method        string `json:"method"`
	Steps         int    `json:"steps"`
	Paths         int    `json:"paths"`
	Seed          uint64 `json:"seed"`
	IncludePayoff bool   `json:"include_payoff"`
}

func (r PriceRequest) params() pricing.MonteCarloParams {
	return pricing.MonteCarloParams{Steps: r.Steps, Paths: r.Paths, Seed: r.Seed}
}

// VaRRequest estimates VaR of a single contract
type VaRRequest struct {
	ContractRequest
	Confidence float64 `json:"confidence"`
	Paths      int     `json:"paths"`
	Method     string  `json:"var_method"`
	Horizon    float64 `json:"horizon"`
	Seed       uint64  `json:"seed"`
}

// CreatePortfolioRequest creates an empty portfolio
type CreatePortfolioRequest struct {
	Name string `json:"name" binding:"required"`
}

// PayoffResponse is a payoff curve over its spot grid
type PayoffResponse struct {
	Grid   []float64 `json:"grid"`
	Payoff []float64 `json:"payoff"`
}

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error string `json:"error"`
	Type  string `json:"type"`
}

// HoldingResponse is one contract of a portfolio with its valuation
type HoldingResponse struct {
	Contract  map[string]any    `json:"contract"`
	Valuation *models.Valuation `json:"valuation"`
}

// PortfolioResponse is the JSON view of a portfolio
type PortfolioResponse struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Premium   float64           `json:"premium"`
	Holdings  []HoldingResponse `json:"holdings"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

func newPortfolioResponse(p *portfolio.Portfolio) PortfolioResponse {
	holdings := p.Holdings()
	resp := PortfolioResponse{
		ID:        p.ID(),
		Name:      p.Name(),
		Premium:   p.Premium(),
		Holdings:  make([]HoldingResponse, len(holdings)),
		CreatedAt: p.CreatedAt(),
		UpdatedAt: p.UpdatedAt(),
	}
	for i, h := range holdings {
		resp.Holdings[i] = HoldingResponse{Contract: h.Contract.Snapshot(), Valuation: withoutPayoff(h.Valuation)}
	}
	return resp
}

// withoutPayoff returns a shallow copy of v with the payoff vector dropped
func withoutPayoff(v *models.Valuation) *models.Valuation {
	if v == nil {
		return nil
	}
	out := *v
	out.Payoff = nil
	return &out
}

func (r VaRRequest) params() (risk.VaRParams, error) {
	method, err := models.ParseVaRMethod(r.Method)
	if err != nil {
		return risk.VaRParams{}, err
	}
	return risk.VaRParams{
		Confidence: r.Confidence,
		Paths:      r.Paths,
		Method:     method,
		Horizon:    r.Horizon,
		Seed:       r.Seed,
	}, nil
}
