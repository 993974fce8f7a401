package pricing

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/rzzdr/options-risk-engine/pkg/models"
)

const (
	// GridStep is the spacing of the payoff spot grid
	GridStep = 0.1
	// gridPointsPerUnit is 1 / GridStep
	gridPointsPerUnit = 10
	payoffDecimals    = 2
)

// SpotGrid returns the spot grid used for payoff curves: ⌈2·spot⌉·10 points
// starting at 0 with a step of 0.1. The upper bound ⌈2·spot⌉ is excluded.
func SpotGrid(spot float64) []float64 {
	ceiling := int(math.Ceil(2 * spot))
	if ceiling <= 0 {
		return []float64{}
	}
	n := ceiling * gridPointsPerUnit
	grid := make([]float64, n)
	for i := range grid {
		grid[i] = float64(i) / gridPointsPerUnit
	}
	return grid
}

// intrinsic is the exercise value of a vanilla option at spot x
func intrinsic(kind models.OptionKind, strike, x float64) float64 {
	if kind == models.OptionKindPut {
		return math.Max(strike-x, 0)
	}
	return math.Max(x-strike, 0)
}

// scaledPayoff maps every grid point through value, then signs, scales and
// rounds the result to cents.
func scaledPayoff(grid []float64, inst models.Instrument, value func(x float64) float64) ([]float64, error) {
	sign, err := inst.Position.Sign()
	if err != nil {
		return nil, err
	}

	scale := sign * inst.Notional()
	payoff := make([]float64, len(grid))
	for i, x := range grid {
		payoff[i] = roundCents(value(x) * scale)
	}
	return payoff, nil
}

func roundCents(v float64) float64 {
	return decimal.NewFromFloat(v).Round(payoffDecimals).InexactFloat64()
}
