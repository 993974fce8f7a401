package kafka

import (
	"time"

	"github.com/google/uuid"

	"github.com/rzzdr/options-risk-engine/pkg/models"
)

// Event types carried in the event-type header
const (
	EventTypeValuation  = "option.valued"
	EventTypeRiskReport = "portfolio.assessed"
)

// ValuationEvent is published whenever a contract is priced
type ValuationEvent struct {
	EventID      string               `json:"event_id"`
	InstrumentID string               `json:"instrument_id"`
	Style        models.Style         `json:"style"`
	Method       models.PricingMethod `json:"method"`
	Price        float64              `json:"price"`
	StdError     float64              `json:"std_error,omitempty"`
	Greeks       *models.Greeks       `json:"greeks,omitempty"`
	Contract     map[string]any       `json:"contract"`
	PricedAt     time.Time            `json:"priced_at"`
}

// NewValuationEvent builds an event from a contract and its valuation
func NewValuationEvent(c models.Contract, v *models.Valuation) *ValuationEvent {
	return &ValuationEvent{
		EventID:      uuid.NewString(),
		InstrumentID: v.InstrumentID,
		Style:        v.Style,
		Method:       v.Method,
		Price:        v.Price,
		StdError:     v.StdError,
		Greeks:       v.Greeks,
		Contract:     c.Snapshot(),
		PricedAt:     v.PricedAt,
	}
}

// RiskEvent is published after a portfolio risk assessment
type RiskEvent struct {
	EventID string             `json:"event_id"`
	Report  *models.RiskReport `json:"report"`
}

// NewRiskEvent wraps a risk report
func NewRiskEvent(r *models.RiskReport) *RiskEvent {
	return &RiskEvent{EventID: uuid.NewString(), Report: r}
}
