package pricing

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rzzdr/options-risk-engine/pkg/models"
	"github.com/rzzdr/options-risk-engine/pkg/utils/errors"
)

func newTestVanilla() *VanillaPricer {
	return NewVanillaPricer(NewSimulator(4))
}

func option(kind models.OptionKind, position models.Position, spot, strike, maturity, rate, vol float64) models.Option {
	return models.NewOption(kind, position, spot, strike, maturity, rate, vol, 100, 1)
}

func TestClosedFormReferenceValues(t *testing.T) {
	tests := []struct {
		name     string
		opt      models.Option
		expected float64
	}{
		{"call 11.10/11", option(models.OptionKindCall, models.PositionLong, 11.10, 11, 1, 0.05, 0.30), 1.628434498037},
		{"put 11.10/11", option(models.OptionKindPut, models.PositionLong, 11.10, 11, 1, 0.05, 0.30), 0.991958167545},
		{"call atm 100", option(models.OptionKindCall, models.PositionLong, 100, 100, 1, 0.05, 0.2), 10.450583572185565},
		{"put atm 100", option(models.OptionKindPut, models.PositionShort, 100, 100, 1, 0.05, 0.2), 5.573526022256971},
	}

	p := newTestVanilla()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := p.PriceClosedForm(tt.opt)
			require.NoError(t, err)
			assert.InDelta(t, tt.expected, v.Price, 1e-6)
			assert.Equal(t, models.MethodClosedForm, v.Method)
			assert.Equal(t, tt.opt.ID, v.InstrumentID)
			assert.Len(t, v.Payoff, len(SpotGrid(tt.opt.Spot)))
		})
	}
}

func TestPutCallParity(t *testing.T) {
	p := newTestVanilla()
	cases := [][5]float64{
		{11.10, 11, 1, 0.05, 0.30},
		{100, 80, 0.5, 0.01, 0.45},
		{50, 70, 2, 0.08, 0.15},
		{1, 1.2, 0.1, -0.005, 0.9},
	}

	for _, c := range cases {
		call, err := p.PriceClosedForm(option(models.OptionKindCall, models.PositionLong, c[0], c[1], c[2], c[3], c[4]))
		require.NoError(t, err)
		put, err := p.PriceClosedForm(option(models.OptionKindPut, models.PositionLong, c[0], c[1], c[2], c[3], c[4]))
		require.NoError(t, err)

		forward := c[0] - c[1]*math.Exp(-c[3]*c[2])
		assert.InDelta(t, forward, call.Price-put.Price, 1e-9)
	}
}

func TestGreeksReferenceValues(t *testing.T) {
	p := newTestVanilla()

	call := option(models.OptionKindCall, models.PositionLong, 11.10, 11, 1, 0.05, 0.30)
	g, err := p.Greeks(call)
	require.NoError(t, err)
	assert.InDelta(t, 0.635641527368, g.Delta, 1e-9)
	assert.InDelta(t, 0.112809206246, g.Gamma, 1e-9)
	assert.InDelta(t, 4.169766690459, g.Vega, 1e-9)

	put := option(models.OptionKindPut, models.PositionLong, 11.10, 11, 1, 0.05, 0.30)
	pg, err := p.Greeks(put)
	require.NoError(t, err)
	assert.InDelta(t, -0.364358472632, pg.Delta, 1e-9)
	assert.InDelta(t, g.Gamma, pg.Gamma, 1e-12)
	assert.InDelta(t, g.Vega, pg.Vega, 1e-12)

	discountedStrike := 11 * math.Exp(-0.05)
	assert.InDelta(t, discountedStrike, g.Rho-pg.Rho, 1e-9)
	assert.InDelta(t, -0.05*discountedStrike, g.Theta-pg.Theta, 1e-9)
}

func TestGreeksMatchFiniteDifferences(t *testing.T) {
	p := newTestVanilla()
	o := option(models.OptionKindCall, models.PositionLong, 100, 95, 0.75, 0.03, 0.25)
	g, err := p.Greeks(o)
	require.NoError(t, err)

	price := func(spot, vol, rate float64) float64 {
		bumped := o
		bumped.Volatility = vol
		bumped.Rate = rate
		v, err := closedForm(bumped, spot, o.Maturity, 0)
		require.NoError(t, err)
		return v
	}

	h := 0.01
	assert.InDelta(t, (price(100+h, 0.25, 0.03)-price(100-h, 0.25, 0.03))/(2*h), g.Delta, 1e-6)
	assert.InDelta(t, (price(100, 0.25+1e-4, 0.03)-price(100, 0.25-1e-4, 0.03))/2e-4, g.Vega, 1e-4)
	assert.InDelta(t, (price(100, 0.25, 0.03+1e-5)-price(100, 0.25, 0.03-1e-5))/2e-5, g.Rho, 1e-3)
}

func TestClosedFormIsIdempotent(t *testing.T) {
	p := newTestVanilla()
	o := option(models.OptionKindCall, models.PositionShort, 11.10, 11, 1, 0.05, 0.30)

	first, err := p.PriceClosedForm(o)
	require.NoError(t, err)
	second, err := p.PriceClosedForm(o)
	require.NoError(t, err)

	assert.Equal(t, first.Price, second.Price)
	assert.Equal(t, first.Payoff, second.Payoff)
}

func TestClosedFormErrors(t *testing.T) {
	p := newTestVanilla()

	badKind := option(models.OptionKindUnknown, models.PositionLong, 100, 100, 1, 0.05, 0.2)
	_, err := p.PriceClosedForm(badKind)
	assert.True(t, errors.Is(err, errors.ErrInvalidOptionKind))

	zeroVol := option(models.OptionKindCall, models.PositionLong, 100, 100, 1, 0.05, 0)
	_, err = p.PriceClosedForm(zeroVol)
	assert.True(t, errors.Is(err, errors.ErrDomain))

	zeroMaturity := option(models.OptionKindPut, models.PositionLong, 100, 100, 0, 0.05, 0.2)
	_, err = p.Greeks(zeroMaturity)
	assert.True(t, errors.Is(err, errors.ErrDomain))

	badPosition := option(models.OptionKindCall, models.PositionUnknown, 100, 100, 1, 0.05, 0.2)
	_, err = p.PriceClosedForm(badPosition)
	assert.True(t, errors.Is(err, errors.ErrInvalidPosition))
}

func TestMonteCarloConvergesToClosedForm(t *testing.T) {
	p := newTestVanilla()
	ctx := context.Background()

	for _, kind := range []models.OptionKind{models.OptionKindCall, models.OptionKindPut} {
		o := option(kind, models.PositionLong, 100, 100, 1, 0.05, 0.2)
		exact, err := p.PriceClosedForm(o)
		require.NoError(t, err)

		// single-step GBM is exact for European payoffs
		tight, err := p.PriceMonteCarlo(ctx, o, MonteCarloParams{Steps: 1, Paths: 400000, Seed: 42})
		require.NoError(t, err)
		assert.InEpsilon(t, exact.Price, tight.Price, 0.01, kind.String())

		v, err := p.PriceMonteCarlo(ctx, o, MonteCarloParams{Steps: 50, Paths: 50000, Seed: 7})
		require.NoError(t, err)
		assert.Equal(t, models.MethodMonteCarlo, v.Method)
		assert.Equal(t, 50000, v.Paths)
		assert.Equal(t, 50, v.Steps)
		assert.Greater(t, v.StdError, 0.0)
		assert.Less(t, math.Abs(v.Price-exact.Price), 4*v.StdError, kind.String())
	}
}

func TestMonteCarloSameSeedIsReproducible(t *testing.T) {
	p := newTestVanilla()
	o := option(models.OptionKindCall, models.PositionLong, 11.10, 11, 1, 0.05, 0.30)
	params := MonteCarloParams{Steps: 20, Paths: 5000, Seed: 99}

	a, err := p.PriceMonteCarlo(context.Background(), o, params)
	require.NoError(t, err)
	b, err := p.PriceMonteCarlo(context.Background(), o, params)
	require.NoError(t, err)

	assert.Equal(t, a.Price, b.Price)
	assert.Equal(t, a.StdError, b.StdError)
}

func TestMonteCarloRejectsBadParams(t *testing.T) {
	p := newTestVanilla()
	o := option(models.OptionKindCall, models.PositionLong, 100, 100, 1, 0.05, 0.2)

	_, err := p.PriceMonteCarlo(context.Background(), o, MonteCarloParams{Steps: -1, Paths: 10})
	assert.True(t, errors.Is(err, errors.ErrInvalidArgument))

	bad := option(models.OptionKindUnknown, models.PositionLong, 100, 100, 1, 0.05, 0.2)
	_, err = p.PriceMonteCarlo(context.Background(), bad, DefaultMonteCarloParams())
	assert.True(t, errors.Is(err, errors.ErrInvalidOptionKind))
}

func TestRepricerKeepsInitialD1D2(t *testing.T) {
	p := newTestVanilla()
	o := option(models.OptionKindCall, models.PositionLong, 11.10, 11, 1, 0.05, 0.30)

	reprice, err := p.Repricer(o)
	require.NoError(t, err)
	assert.InDelta(t, 1.628434498037, reprice(11.10), 1e-9)

	// linear in spot with slope Φ(d1) = delta
	assert.InDelta(t, 0.635641527368, reprice(12.10)-reprice(11.10), 1e-9)
}

func TestRevalue(t *testing.T) {
	p := newTestVanilla()
	o := option(models.OptionKindPut, models.PositionLong, 100, 100, 1, 0.05, 0.2)

	atExpiry, err := p.Revalue(o, 90, 0)
	require.NoError(t, err)
	assert.Equal(t, 10.0, atExpiry)

	same, err := p.Revalue(o, 100, 1)
	require.NoError(t, err)
	assert.InDelta(t, 5.573526022256971, same, 1e-9)
}
