package models

import (
	"math"

	"github.com/google/uuid"

	"github.com/rzzdr/options-risk-engine/pkg/utils/errors"
)

// Contract is implemented by every priceable contract variant.
// Implementations are value types and never change after construction.
type Contract interface {
	// Style is the variant discriminant used for pricer dispatch
	Style() Style
	// Terms returns the vanilla terms shared by all variants
	Terms() Option
	// Validate checks the numeric domain of the terms
	Validate() error
	// Snapshot returns a read-only projection of the contract's fields
	Snapshot() map[string]any
}

// Instrument holds the terms common to every derivative contract
type Instrument struct {
	ID           string   `json:"id"`
	Spot         float64  `json:"spot"`
	Strike       float64  `json:"strike"`
	Maturity     float64  `json:"maturity"`
	Rate         float64  `json:"rate"`
	Position     Position `json:"position"`
	ContractSize int      `json:"contract_size"`
	Multiplier   float64  `json:"multiplier"`
}

// Notional returns ContractSize × Multiplier
func (i Instrument) Notional() float64 {
	return float64(i.ContractSize) * i.Multiplier
}

// Validate checks that every numeric term is finite and within range.
// The position is not checked here; operations that need its sign report
// InvalidPosition themselves.
func (i Instrument) Validate() error {
	checks := []struct {
		name  string
		value float64
	}{
		{"spot", i.Spot},
		{"strike", i.Strike},
		{"maturity", i.Maturity},
		{"multiplier", i.Multiplier},
	}
	for _, c := range checks {
		if math.IsNaN(c.value) || math.IsInf(c.value, 0) || c.value <= 0 {
			return errors.Domain("%s must be positive and finite, got %v", c.name, c.value)
		}
	}
	if math.IsNaN(i.Rate) || math.IsInf(i.Rate, 0) {
		return errors.Domain("rate must be finite, got %v", i.Rate)
	}
	if i.ContractSize <= 0 {
		return errors.Domain("contract size must be positive, got %d", i.ContractSize)
	}
	return nil
}

// Option is a European vanilla option
type Option struct {
	Instrument
	Volatility float64    `json:"volatility"`
	Kind       OptionKind `json:"kind"`
}

// NewOption creates a new option with a fresh ID
func NewOption(kind OptionKind, position Position, spot, strike, maturity, rate, volatility float64, contractSize int, multiplier float64) Option {
	return Option{
		Instrument: Instrument{
			ID:           uuid.NewString(),
			Spot:         spot,
			Strike:       strike,
			Maturity:     maturity,
			Rate:         rate,
			Position:     position,
			ContractSize: contractSize,
			Multiplier:   multiplier,
		},
		Volatility: volatility,
		Kind:       kind,
	}
}

// Style implements Contract
func (o Option) Style() Style { return StyleVanilla }

// Terms implements Contract
func (o Option) Terms() Option { return o }

// Validate implements Contract
func (o Option) Validate() error {
	if err := o.Instrument.Validate(); err != nil {
		return err
	}
	if math.IsNaN(o.Volatility) || math.IsInf(o.Volatility, 0) || o.Volatility <= 0 {
		return errors.Domain("volatility must be positive and finite, got %v", o.Volatility)
	}
	return nil
}

// Snapshot implements Contract
func (o Option) Snapshot() map[string]any {
	return map[string]any{
		"id":            o.ID,
		"style":         o.Style().String(),
		"kind":          o.Kind.String(),
		"position":      o.Position.String(),
		"spot":          o.Spot,
		"strike":        o.Strike,
		"maturity":      o.Maturity,
		"rate":          o.Rate,
		"volatility":    o.Volatility,
		"contract_size": o.ContractSize,
		"multiplier":    o.Multiplier,
	}
}

// WithSpot returns a copy of the option with a different spot
func (o Option) WithSpot(spot float64) Option {
	o.Spot = spot
	return o
}

// BarrierOption is a single-barrier European option
type BarrierOption struct {
	Option
	BarrierType   BarrierType `json:"barrier_type"`
	Barrier       float64     `json:"barrier"`
	DividendYield float64     `json:"dividend_yield"`
}

// NewBarrierOption creates a new barrier option with a fresh ID
func NewBarrierOption(option Option, barrierType BarrierType, barrier, dividendYield float64) BarrierOption {
	if option.ID == "" {
		option.ID = uuid.NewString()
	}
	return BarrierOption{
		Option:        option,
		BarrierType:   barrierType,
		Barrier:       barrier,
		DividendYield: dividendYield,
	}
}

// Style implements Contract
func (b BarrierOption) Style() Style { return StyleBarrier }

// Terms implements Contract
func (b BarrierOption) Terms() Option { return b.Option }

// Validate implements Contract
func (b BarrierOption) Validate() error {
	if err := b.Option.Validate(); err != nil {
		return err
	}
	if math.IsNaN(b.Barrier) || math.IsInf(b.Barrier, 0) || b.Barrier <= 0 {
		return errors.Domain("barrier must be positive and finite, got %v", b.Barrier)
	}
	if math.IsNaN(b.DividendYield) || math.IsInf(b.DividendYield, 0) || b.DividendYield < 0 {
		return errors.Domain("dividend yield must be non-negative and finite, got %v", b.DividendYield)
	}
	return nil
}

// Snapshot implements Contract
func (b BarrierOption) Snapshot() map[string]any {
	s := b.Option.Snapshot()
	s["style"] = b.Style().String()
	s["barrier_type"] = b.BarrierType.String()
	s["barrier"] = b.Barrier
	s["dividend_yield"] = b.DividendYield
	return s
}

// WithSpot returns a copy of the barrier option with a different spot
func (b BarrierOption) WithSpot(spot float64) BarrierOption {
	b.Spot = spot
	return b
}
