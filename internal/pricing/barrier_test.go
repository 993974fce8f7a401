package pricing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rzzdr/options-risk-engine/pkg/models"
	"github.com/rzzdr/options-risk-engine/pkg/utils/errors"
)

func barrier(barrierType models.BarrierType, spot, strike, h, q float64) models.BarrierOption {
	o := option(models.OptionKindCall, models.PositionLong, spot, strike, 1, 0.05, 0.2)
	return models.NewBarrierOption(o, barrierType, h, q)
}

func TestBarrierReferenceValues(t *testing.T) {
	tests := []struct {
		name           string
		spot, strike   float64
		h, q           float64
		in, out, plain float64
	}{
		{"barrier below strike", 100, 100, 90, 0, 1.7851119139398985, 8.665471658245666, 10.450583572185565},
		{"with dividend yield", 100, 100, 95, 0.02, 4.343481009409313, 4.883524498744723, 9.227005508154036},
		{"barrier above strike", 100, 90, 95, 0, 8.846581389432192, 7.8528670189837975, 16.69944840841599},
	}

	p := NewBarrierPricer(NewSimulator(4))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in, err := p.PriceClosedForm(barrier(models.BarrierDownAndIn, tt.spot, tt.strike, tt.h, tt.q))
			require.NoError(t, err)
			out, err := p.PriceClosedForm(barrier(models.BarrierDownAndOut, tt.spot, tt.strike, tt.h, tt.q))
			require.NoError(t, err)

			assert.InDelta(t, tt.in, in.Price, 1e-9)
			assert.InDelta(t, tt.out, out.Price, 1e-9)
			assert.InDelta(t, tt.plain, in.Price+out.Price, 1e-9)
			assert.Equal(t, models.StyleBarrier, in.Style)
		})
	}
}

func TestBarrierParityMatchesVanilla(t *testing.T) {
	p := NewBarrierPricer(NewSimulator(4))
	v := NewVanillaPricer(NewSimulator(4))

	for _, h := range []float64{5, 9, 10.5, 11, 11.05} {
		in := models.NewBarrierOption(option(models.OptionKindCall, models.PositionLong, 11.10, 11, 1, 0.05, 0.30), models.BarrierDownAndIn, h, 0)
		out := in
		out.BarrierType = models.BarrierDownAndOut

		inVal, err := p.PriceClosedForm(in)
		require.NoError(t, err)
		outVal, err := p.PriceClosedForm(out)
		require.NoError(t, err)
		plain, err := v.PriceClosedForm(in.Option)
		require.NoError(t, err)

		assert.InDelta(t, plain.Price, inVal.Price+outVal.Price, 1e-9, "barrier %v", h)
		assert.GreaterOrEqual(t, inVal.Price, -1e-12)
		assert.GreaterOrEqual(t, outVal.Price, -1e-12)
	}
}

func TestBarrierAlreadyBreached(t *testing.T) {
	p := NewBarrierPricer(NewSimulator(4))

	out, err := p.PriceClosedForm(barrier(models.BarrierDownAndOut, 100, 100, 100, 0))
	require.NoError(t, err)
	assert.Equal(t, 0.0, out.Price)

	in, err := p.PriceClosedForm(barrier(models.BarrierDownAndIn, 100, 100, 105, 0))
	require.NoError(t, err)
	assert.InDelta(t, 10.450583572185565, in.Price, 1e-9)
}

func TestBarrierUnsupported(t *testing.T) {
	p := NewBarrierPricer(NewSimulator(4))

	put := barrier(models.BarrierDownAndIn, 100, 100, 90, 0)
	put.Kind = models.OptionKindPut
	_, err := p.PriceClosedForm(put)
	assert.True(t, errors.Is(err, errors.ErrInvalidBarrierType))

	for _, bt := range []models.BarrierType{models.BarrierUpAndIn, models.BarrierUpAndOut, models.BarrierTypeUnknown} {
		_, err := p.PriceClosedForm(barrier(bt, 100, 100, 110, 0))
		assert.True(t, errors.Is(err, errors.ErrInvalidBarrierType), bt.String())

		_, err = p.PayoffCurve(barrier(bt, 100, 100, 110, 0))
		assert.True(t, errors.Is(err, errors.ErrInvalidBarrierType), bt.String())
	}

	_, err = p.PriceClosedForm(option(models.OptionKindCall, models.PositionLong, 100, 100, 1, 0.05, 0.2))
	assert.True(t, errors.Is(err, errors.ErrInvalidArgument))

	zeroBarrier := barrier(models.BarrierDownAndOut, 100, 100, 0, 0)
	_, err = p.PriceClosedForm(zeroBarrier)
	assert.True(t, errors.Is(err, errors.ErrDomain))
}

func TestBarrierMonteCarloSameSeedParity(t *testing.T) {
	sim := NewSimulator(4)
	p := NewBarrierPricer(sim)
	v := NewVanillaPricer(sim)
	ctx := context.Background()
	params := MonteCarloParams{Steps: 50, Paths: 20000, Seed: 2024}

	in := barrier(models.BarrierDownAndIn, 100, 100, 90, 0)
	out := in
	out.BarrierType = models.BarrierDownAndOut

	inVal, err := p.PriceMonteCarlo(ctx, in, params)
	require.NoError(t, err)
	outVal, err := p.PriceMonteCarlo(ctx, out, params)
	require.NoError(t, err)
	plain, err := v.PriceMonteCarlo(ctx, in.Option, params)
	require.NoError(t, err)

	assert.InDelta(t, plain.Price, inVal.Price+outVal.Price, 1e-9)

	// discrete monitoring misses crossings, so the knock-out is worth at least the continuous price
	exactOut, err := p.PriceClosedForm(out)
	require.NoError(t, err)
	assert.Greater(t, outVal.Price, exactOut.Price-4*outVal.StdError)
}

func TestBarrierMonteCarloBreachedAtStart(t *testing.T) {
	p := NewBarrierPricer(NewSimulator(2))
	out := barrier(models.BarrierDownAndOut, 100, 100, 100, 0)

	v, err := p.PriceMonteCarlo(context.Background(), out, MonteCarloParams{Steps: 10, Paths: 1000, Seed: 1})
	require.NoError(t, err)
	assert.Equal(t, 0.0, v.Price)
}

func TestBarrierGreeksSumToVanilla(t *testing.T) {
	p := NewBarrierPricer(NewSimulator(1))
	v := NewVanillaPricer(NewSimulator(1))

	in := barrier(models.BarrierDownAndIn, 100, 100, 90, 0)
	out := in
	out.BarrierType = models.BarrierDownAndOut

	gi, err := p.Greeks(in)
	require.NoError(t, err)
	gout, err := p.Greeks(out)
	require.NoError(t, err)
	plain, err := v.Greeks(in.Option)
	require.NoError(t, err)

	assert.InDelta(t, plain.Delta, gi.Delta+gout.Delta, 1e-3)
	assert.InDelta(t, plain.Gamma, gi.Gamma+gout.Gamma, 1e-3)
	assert.InDelta(t, plain.Vega, gi.Vega+gout.Vega, 0.05)
	assert.InDelta(t, plain.Rho, gi.Rho+gout.Rho, 1e-3)
	assert.Greater(t, gout.Delta, 0.0)
}

func TestBarrierPayoffCurve(t *testing.T) {
	p := NewBarrierPricer(NewSimulator(1))
	base := option(models.OptionKindCall, models.PositionLong, 11.10, 11, 1, 0.05, 0.30)

	in := models.NewBarrierOption(base, models.BarrierDownAndIn, 10, 0)
	payoff, err := p.PayoffCurve(in)
	require.NoError(t, err)
	require.Len(t, payoff, 230)
	assert.Equal(t, 100.0, payoff[120])
	assert.Equal(t, 0.0, payoff[95])

	out := models.NewBarrierOption(base, models.BarrierDownAndOut, 12, 0)
	payoff, err = p.PayoffCurve(out)
	require.NoError(t, err)
	assert.Equal(t, 50.0, payoff[115])
	assert.Equal(t, 0.0, payoff[125])

	short := out
	short.Position = models.PositionShort
	payoff, err = p.PayoffCurve(short)
	require.NoError(t, err)
	assert.Equal(t, -50.0, payoff[115])
}

func TestBarrierRevalueAtExpiry(t *testing.T) {
	p := NewBarrierPricer(NewSimulator(1))
	in := barrier(models.BarrierDownAndIn, 100, 100, 90, 0)
	out := in
	out.BarrierType = models.BarrierDownAndOut

	value, err := p.Revalue(out, 110, 0)
	require.NoError(t, err)
	assert.Equal(t, 10.0, value)

	value, err = p.Revalue(in, 110, 0)
	require.NoError(t, err)
	assert.Equal(t, 0.0, value)
}

func TestBarrierGreeksNearBarrier(t *testing.T) {
	p := NewBarrierPricer(NewSimulator(1))
	b := barrier(models.BarrierDownAndOut, 100, 100, 99.5, 0)

	g, err := p.Greeks(b)
	require.NoError(t, err)

	const eps = 1e-4
	up, err := barrierClosedForm(b, 100+eps, b.Volatility, b.Rate, b.Maturity)
	require.NoError(t, err)
	down, err := barrierClosedForm(b, 100-eps, b.Volatility, b.Rate, b.Maturity)
	require.NoError(t, err)

	assert.InEpsilon(t, (up-down)/(2*eps), g.Delta, 0.05)
	assert.Greater(t, g.Delta, 0.0)
}

func TestBarrierRepricer(t *testing.T) {
	p := NewBarrierPricer(NewSimulator(1))
	b := barrier(models.BarrierDownAndIn, 100, 100, 90, 0)

	reprice, err := p.Repricer(b)
	require.NoError(t, err)

	atSpot, err := reprice(100)
	require.NoError(t, err)
	assert.InDelta(t, 1.7851119139398985, atSpot, 1e-9)

	// below the barrier the knock-in is a plain call
	knocked, err := reprice(85)
	require.NoError(t, err)
	plain, err := closedForm(b.Option, 85, b.Maturity, 0)
	require.NoError(t, err)
	assert.InDelta(t, plain, knocked, 1e-12)

	_, err = p.Repricer(b.Option)
	assert.True(t, errors.Is(err, errors.ErrInvalidArgument))
}
