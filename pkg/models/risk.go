package models

import (
	"time"
)

// PositionRisk holds risk metrics for a single holding within a portfolio
type PositionRisk struct {
	InstrumentID      string   `json:"instrument_id"`
	Style             Style    `json:"style"`
	Position          Position `json:"position"`
	Price             float64  `json:"price"`
	Notional          float64  `json:"notional"`
	VaR               float64  `json:"var"`
	ExpectedShortfall float64  `json:"expected_shortfall"`
}

// RiskReport is the aggregated risk of a portfolio
type RiskReport struct {
	PortfolioID  string         `json:"portfolio_id"`
	Name         string         `json:"name"`
	Premium      float64        `json:"premium"`
	Greeks       Greeks         `json:"greeks"`
	Positions    []PositionRisk `json:"positions"`
	TotalVaR     float64        `json:"total_var"`
	TotalES      float64        `json:"total_es"`
	Confidence   float64        `json:"confidence"`
	CalculatedAt time.Time      `json:"calculated_at"`
}

// NewRiskReport creates a new, empty risk report
func NewRiskReport(portfolioID, name string) *RiskReport {
	return &RiskReport{
		PortfolioID:  portfolioID,
		Name:         name,
		Positions:    make([]PositionRisk, 0),
		CalculatedAt: time.Now().UTC(),
	}
}
