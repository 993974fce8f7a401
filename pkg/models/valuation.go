package models

import (
	"time"
)

// Greeks are the sensitivities of a single contract's price.
// Theta is per year and rho per unit of rate; vega is per unit of volatility.
type Greeks struct {
	Delta float64 `json:"delta"`
	Gamma float64 `json:"gamma"`
	Vega  float64 `json:"vega"`
	Theta float64 `json:"theta"`
	Rho   float64 `json:"rho"`
}

// Add returns the sum of g and other scaled by weight
func (g Greeks) Add(other Greeks, weight float64) Greeks {
	return Greeks{
		Delta: g.Delta + weight*other.Delta,
		Gamma: g.Gamma + weight*other.Gamma,
		Vega:  g.Vega + weight*other.Vega,
		Theta: g.Theta + weight*other.Theta,
		Rho:   g.Rho + weight*other.Rho,
	}
}

// Valuation is the result of one pricing call. A contract is never mutated by
// pricing; re-pricing produces a new Valuation.
type Valuation struct {
	InstrumentID string        `json:"instrument_id"`
	Style        Style         `json:"style"`
	Method       PricingMethod `json:"method"`
	Price        float64       `json:"price"`
	Greeks       *Greeks       `json:"greeks,omitempty"`
	Payoff       []float64     `json:"payoff,omitempty"`
	Paths        int           `json:"paths,omitempty"`
	Steps        int           `json:"steps,omitempty"`
	StdError     float64       `json:"std_error,omitempty"`
	PricedAt     time.Time     `json:"priced_at"`
}

// NewValuation creates a new valuation stamped with the current time
func NewValuation(instrumentID string, style Style, method PricingMethod, price float64) *Valuation {
	return &Valuation{
		InstrumentID: instrumentID,
		Style:        style,
		Method:       method,
		Price:        price,
		PricedAt:     time.Now().UTC(),
	}
}

// VaRResult is the Value at Risk of a single contract
type VaRResult struct {
	InstrumentID      string    `json:"instrument_id"`
	Method            VaRMethod `json:"method"`
	Confidence        float64   `json:"confidence"`
	Paths             int       `json:"paths"`
	Horizon           float64   `json:"horizon"`
	VaR               float64   `json:"var"`
	ExpectedShortfall float64   `json:"expected_shortfall"`
}
