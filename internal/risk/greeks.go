package risk

import (
	"github.com/rzzdr/options-risk-engine/internal/portfolio"
	"github.com/rzzdr/options-risk-engine/internal/pricing"
	"github.com/rzzdr/options-risk-engine/pkg/models"
	"github.com/rzzdr/options-risk-engine/pkg/utils/errors"
	"github.com/rzzdr/options-risk-engine/pkg/utils/logger"
)

// GreeksCalculator handles position-weighted Greeks
type GreeksCalculator struct {
	engine *pricing.Engine
	log    *logger.Logger
}

// NewGreeksCalculator creates a new Greeks calculator
func NewGreeksCalculator(engine *pricing.Engine) *GreeksCalculator {
	return &GreeksCalculator{
		engine: engine,
		log:    logger.GetLogger("risk.greeks"),
	}
}

// CalculatePositionGreeks returns a holding's Greeks scaled by
// sign × contract size × multiplier. Greeks stored on the valuation are used
// when present.
func (gc *GreeksCalculator) CalculatePositionGreeks(h portfolio.Holding) (models.Greeks, error) {
	if h.Contract == nil {
		return models.Greeks{}, errors.InvalidArgument("holding has no contract")
	}

	terms := h.Contract.Terms()
	sign, err := terms.Position.Sign()
	if err != nil {
		return models.Greeks{}, err
	}

	var greeks *models.Greeks
	if h.Valuation != nil && h.Valuation.Greeks != nil {
		greeks = h.Valuation.Greeks
	} else {
		greeks, err = gc.engine.Greeks(h.Contract)
		if err != nil {
			return models.Greeks{}, err
		}
	}

	return models.Greeks{}.Add(*greeks, sign*terms.Notional()), nil
}

// CalculatePortfolioGreeks calculates the aggregate Greeks for an entire portfolio
func (gc *GreeksCalculator) CalculatePortfolioGreeks(holdings []portfolio.Holding) (models.Greeks, error) {
	var total models.Greeks
	for i, h := range holdings {
		g, err := gc.CalculatePositionGreeks(h)
		if err != nil {
			gc.log.Warnw("Greeks calculation failed", "holding", i, "error", err)
			return models.Greeks{}, errors.Wrapf(err, "holding %d", i)
		}
		total = total.Add(g, 1)
	}
	return total, nil
}
