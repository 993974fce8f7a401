package portfolio

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rzzdr/options-risk-engine/internal/pricing"
	"github.com/rzzdr/options-risk-engine/pkg/models"
	"github.com/rzzdr/options-risk-engine/pkg/utils/errors"
	"github.com/rzzdr/options-risk-engine/pkg/utils/logger"
)

// Holding pairs a contract with the valuation it was added with
type Holding struct {
	Contract  models.Contract
	Valuation *models.Valuation
}

// Portfolio aggregates priced contracts into a premium and a payoff profile.
// It only reads its holdings and never mutates a contract or valuation.
type Portfolio struct {
	id       string
	name     string
	holdings []Holding
	premium  float64
	created  time.Time
	updated  time.Time
	mu       sync.RWMutex
	log      *logger.Logger
}

// New creates a new, empty portfolio with a fresh ID
func New(name string) *Portfolio {
	now := time.Now().UTC()
	return &Portfolio{
		id:       uuid.NewString(),
		name:     name,
		holdings: make([]Holding, 0),
		created:  now,
		updated:  now,
		log:      logger.GetLogger("portfolio").With("name", name),
	}
}

// ID returns the portfolio ID
func (p *Portfolio) ID() string { return p.id }

// Name returns the portfolio name
func (p *Portfolio) Name() string { return p.name }

// CreatedAt returns when the portfolio was created
func (p *Portfolio) CreatedAt() time.Time { return p.created }

// UpdatedAt returns when a holding was last added
func (p *Portfolio) UpdatedAt() time.Time {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.updated
}

// AddHolding appends a holding. Insertion order is kept and duplicates are allowed.
func (p *Portfolio) AddHolding(c models.Contract, v *models.Valuation) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.holdings = append(p.holdings, Holding{Contract: c, Valuation: v})
	p.updated = time.Now().UTC()
}

// Holdings returns a copy of the holdings in insertion order
func (p *Portfolio) Holdings() []Holding {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]Holding, len(p.holdings))
	copy(out, p.holdings)
	return out
}

// Len returns the number of holdings
func (p *Portfolio) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.holdings)
}

// Premium returns the premium stored by the last ComputePremium call
func (p *Portfolio) Premium() float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.premium
}

// ComputePremium sums −price×size×multiplier over long holdings and
// +price×size×multiplier over short ones, then stores the result.
func (p *Portfolio) ComputePremium() (float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	premium, err := p.premiumLocked()
	if err != nil {
		p.log.Warnw("Premium calculation failed", "error", err)
		return 0, err
	}
	p.premium = premium
	return premium, nil
}

func (p *Portfolio) premiumLocked() (float64, error) {
	var premium float64
	for i, h := range p.holdings {
		if h.Contract == nil || h.Valuation == nil {
			return 0, errors.InvalidArgument("holding %d has no contract or valuation", i)
		}

		terms := h.Contract.Terms()
		sign, err := terms.Position.Sign()
		if err != nil {
			return 0, errors.Wrapf(err, "holding %d", i)
		}
		premium -= sign * h.Valuation.Price * terms.Notional()
	}
	return premium, nil
}

// Grid returns the spot grid of the first holding, or nil for an empty portfolio
func (p *Portfolio) Grid() []float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if len(p.holdings) == 0 || p.holdings[0].Contract == nil {
		return nil
	}
	return pricing.SpotGrid(p.holdings[0].Contract.Terms().Spot)
}

// ComputePayoffCurve sums the holdings' payoff vectors elementwise over the
// first holding's spot grid and adds the recomputed premium to every point.
// Holdings on spots that produce a different grid size fail with MismatchedGrid.
func (p *Portfolio) ComputePayoffCurve() ([]float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.holdings) == 0 {
		return nil, errors.InvalidArgument("portfolio %q has no holdings", p.name)
	}

	premium, err := p.premiumLocked()
	if err != nil {
		return nil, err
	}
	p.premium = premium

	reference := p.holdings[0].Contract.Terms().Spot
	size := len(pricing.SpotGrid(reference))
	curve := make([]float64, size)

	for i, h := range p.holdings {
		if len(h.Valuation.Payoff) != size {
			return nil, errors.MismatchedGrid("holding %d has %d payoff points, expected %d", i, len(h.Valuation.Payoff), size)
		}
		if spot := h.Contract.Terms().Spot; spot != reference {
			p.log.Warnw("Holding spot differs from the grid reference", "holding", i, "spot", spot, "reference", reference)
		}
		for j, v := range h.Valuation.Payoff {
			curve[j] += v
		}
	}

	for j := range curve {
		curve[j] += premium
	}
	return curve, nil
}
