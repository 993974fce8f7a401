package portfolio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rzzdr/options-risk-engine/internal/pricing"
	"github.com/rzzdr/options-risk-engine/pkg/models"
	"github.com/rzzdr/options-risk-engine/pkg/utils/errors"
)

func call(position models.Position, strike float64, size int, mult float64) models.Option {
	return models.NewOption(models.OptionKindCall, position, 11.10, strike, 1, 0.05, 0.30, size, mult)
}

func priced(t *testing.T, o models.Option) *models.Valuation {
	t.Helper()
	v, err := pricing.NewVanillaPricer(pricing.NewSimulator(1)).PriceClosedForm(o)
	require.NoError(t, err)
	return v
}

func TestComputePremium(t *testing.T) {
	p := New("premium")
	p.AddHolding(call(models.PositionLong, 11, 100, 1), &models.Valuation{Price: 2.0})
	p.AddHolding(call(models.PositionShort, 11, 100, 1), &models.Valuation{Price: 1.0})

	premium, err := p.ComputePremium()
	require.NoError(t, err)
	assert.InDelta(t, -100.0, premium, 1e-12)
	assert.InDelta(t, -100.0, p.Premium(), 1e-12)
}

func TestComputePremiumInvalidPosition(t *testing.T) {
	p := New("bad")
	p.AddHolding(call(models.PositionLong, 11, 100, 1), &models.Valuation{Price: 2.0})
	p.AddHolding(call(models.PositionUnknown, 11, 100, 1), &models.Valuation{Price: 1.0})

	_, err := p.ComputePremium()
	assert.True(t, errors.Is(err, errors.ErrInvalidPosition))
	assert.Equal(t, 0.0, p.Premium())
}

func TestComputePremiumMissingValuation(t *testing.T) {
	p := New("unpriced")
	p.AddHolding(call(models.PositionLong, 11, 100, 1), nil)

	_, err := p.ComputePremium()
	assert.True(t, errors.Is(err, errors.ErrInvalidArgument))
}

func TestLongButterfly(t *testing.T) {
	shortB := call(models.PositionShort, 11, 200, 100)
	longA := call(models.PositionLong, 9, 100, 100)
	longC := call(models.PositionLong, 13, 100, 100)

	vb, va, vc := priced(t, shortB), priced(t, longA), priced(t, longC)

	p := New("Long Butterfly")
	p.AddHolding(shortB, vb)
	p.AddHolding(longA, va)
	p.AddHolding(longC, vc)

	premium, err := p.ComputePremium()
	require.NoError(t, err)
	expected := 20000*vb.Price - 10000*va.Price - 10000*vc.Price
	assert.InDelta(t, expected, premium, 1e-6)
	assert.Less(t, premium, 0.0)

	curve, err := p.ComputePayoffCurve()
	require.NoError(t, err)
	require.Len(t, curve, 230)
	assert.Equal(t, len(p.Grid()), len(curve))

	// below the lowest strike only the premium remains
	assert.InDelta(t, premium, curve[50], 1e-6)
	// peak at the middle strike
	assert.InDelta(t, 20000+premium, curve[110], 1e-6)
	// above the highest strike the wings cancel
	assert.InDelta(t, premium, curve[200], 1e-6)
	for i := range curve {
		assert.LessOrEqual(t, curve[i], curve[110]+1e-6)
	}
}

func TestComputePayoffCurveMismatchedGrid(t *testing.T) {
	a := call(models.PositionLong, 11, 100, 1)
	b := models.NewOption(models.OptionKindCall, models.PositionLong, 20, 21, 1, 0.05, 0.30, 100, 1)

	p := New("mixed")
	p.AddHolding(a, priced(t, a))
	p.AddHolding(b, priced(t, b))

	_, err := p.ComputePayoffCurve()
	assert.True(t, errors.Is(err, errors.ErrMismatchedGrid))
}

func TestComputePayoffCurveSameSizeDifferentSpot(t *testing.T) {
	a := call(models.PositionLong, 11, 100, 1)
	b := models.NewOption(models.OptionKindCall, models.PositionLong, 11.2, 11, 1, 0.05, 0.30, 100, 1)

	p := New("near")
	p.AddHolding(a, priced(t, a))
	p.AddHolding(b, priced(t, b))

	curve, err := p.ComputePayoffCurve()
	require.NoError(t, err)
	assert.Len(t, curve, 230)
}

func TestComputePayoffCurveEmpty(t *testing.T) {
	_, err := New("empty").ComputePayoffCurve()
	assert.True(t, errors.Is(err, errors.ErrInvalidArgument))
	assert.Nil(t, New("empty").Grid())
}

func TestHoldingsKeepOrderAndDuplicates(t *testing.T) {
	o := call(models.PositionLong, 11, 100, 1)
	v := &models.Valuation{Price: 1}

	p := New("dupes")
	p.AddHolding(o, v)
	p.AddHolding(o, v)

	holdings := p.Holdings()
	require.Len(t, holdings, 2)
	assert.Equal(t, o.ID, holdings[1].Contract.Terms().ID)
	assert.Same(t, v, holdings[0].Valuation)
	assert.Equal(t, 2, p.Len())
	assert.NotEmpty(t, p.ID())
	assert.Equal(t, "dupes", p.Name())
}
