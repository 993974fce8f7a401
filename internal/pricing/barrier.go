package pricing

import (
	"context"
	"math"

	"github.com/rzzdr/options-risk-engine/pkg/models"
	"github.com/rzzdr/options-risk-engine/pkg/utils/errors"
	"github.com/rzzdr/options-risk-engine/pkg/utils/logger"
)

// Finite-difference bumps for barrier Greeks
const (
	spotBumpRatio = 0.01
	volBump       = 0.01
	rateBump      = 0.0001
	timeBump      = 1.0 / 365
)

// BarrierPricer prices down-and-in and down-and-out calls
type BarrierPricer struct {
	sim *Simulator
	log *logger.Logger
}

// NewBarrierPricer creates a new barrier pricer
func NewBarrierPricer(sim *Simulator) *BarrierPricer {
	return &BarrierPricer{
		sim: sim,
		log: logger.GetLogger("pricing.barrier"),
	}
}

// PriceClosedForm prices the option with the Reiner-Rubinstein closed forms
// and attaches its payoff curve.
func (p *BarrierPricer) PriceClosedForm(c models.Contract) (*models.Valuation, error) {
	b, err := asBarrier(c)
	if err != nil {
		return nil, err
	}

	price, err := barrierClosedForm(b, b.Spot, b.Volatility, b.Rate, b.Maturity)
	if err != nil {
		p.log.Debugw("Barrier pricing failed", "instrument", b.ID, "barrier_type", b.BarrierType.String(), "error", err)
		return nil, err
	}

	payoff, err := p.PayoffCurve(b)
	if err != nil {
		return nil, err
	}

	v := models.NewValuation(b.ID, models.StyleBarrier, models.MethodClosedForm, price)
	v.Payoff = payoff
	return v, nil
}

// PriceMonteCarlo prices the option on simulated paths with drift r − q,
// monitoring the barrier at every step including the start.
func (p *BarrierPricer) PriceMonteCarlo(ctx context.Context, c models.Contract, params MonteCarloParams) (*models.Valuation, error) {
	b, err := asBarrier(c)
	if err != nil {
		return nil, err
	}
	if err := validateBarrier(b); err != nil {
		return nil, err
	}

	ps, err := p.sim.Simulate(ctx, GBM{
		Spot:       b.Spot,
		Drift:      b.Rate - b.DividendYield,
		Volatility: b.Volatility,
		Horizon:    b.Maturity,
	}, params)
	if err != nil {
		return nil, err
	}
	defer ps.Release()

	payoffs := make([]float64, ps.Paths)
	for i, st := range ps.Terminal {
		breached := ps.Minimum[i] <= b.Barrier
		if breached == (b.BarrierType == models.BarrierDownAndIn) {
			payoffs[i] = intrinsic(models.OptionKindCall, b.Strike, st)
		}
	}

	price, stdErr := discountedMean(payoffs, math.Exp(-b.Rate*b.Maturity))
	if err := checkFinite("monte carlo price", price); err != nil {
		return nil, err
	}

	curve, err := p.PayoffCurve(b)
	if err != nil {
		return nil, err
	}

	v := models.NewValuation(b.ID, models.StyleBarrier, models.MethodMonteCarlo, price)
	v.Payoff = curve
	v.Paths = ps.Paths
	v.Steps = ps.Steps
	v.StdError = stdErr
	return v, nil
}

// Greeks returns central finite-difference sensitivities of the closed form
func (p *BarrierPricer) Greeks(c models.Contract) (*models.Greeks, error) {
	b, err := asBarrier(c)
	if err != nil {
		return nil, err
	}

	price := func(spot, vol, rate, maturity float64) (float64, error) {
		return barrierClosedForm(b, spot, vol, rate, maturity)
	}

	S, sigma, r, T := b.Spot, b.Volatility, b.Rate, b.Maturity
	base, err := price(S, sigma, r, T)
	if err != nil {
		return nil, err
	}

	// keep the down bump on the same side of the barrier as the spot
	h := S * spotBumpRatio
	if S > b.Barrier {
		h = math.Min(h, (S-b.Barrier)/2)
	}
	up, err := price(S+h, sigma, r, T)
	if err != nil {
		return nil, err
	}
	down, err := price(S-h, sigma, r, T)
	if err != nil {
		return nil, err
	}

	volUp, err := price(S, sigma+volBump, r, T)
	if err != nil {
		return nil, err
	}
	volDown, err := price(S, math.Max(sigma-volBump, sigma/2), r, T)
	if err != nil {
		return nil, err
	}
	volSpan := volBump + math.Min(volBump, sigma/2)

	rateUp, err := price(S, sigma, r+rateBump, T)
	if err != nil {
		return nil, err
	}
	rateDown, err := price(S, sigma, r-rateBump, T)
	if err != nil {
		return nil, err
	}

	var theta float64
	if T > timeBump {
		shorter, err := price(S, sigma, r, T-timeBump)
		if err != nil {
			return nil, err
		}
		theta = (shorter - base) / timeBump
	}

	greeks := &models.Greeks{
		Delta: (up - down) / (2 * h),
		Gamma: (up - 2*base + down) / (h * h),
		Vega:  (volUp - volDown) / volSpan,
		Theta: theta,
		Rho:   (rateUp - rateDown) / (2 * rateBump),
	}
	if err := checkFinite("barrier greeks", greeks.Delta, greeks.Gamma, greeks.Vega, greeks.Theta, greeks.Rho); err != nil {
		return nil, err
	}
	return greeks, nil
}

// PayoffCurve returns the gated exercise value over SpotGrid(spot): a
// down-and-in pays where x ≥ H and a down-and-out where x < H.
func (p *BarrierPricer) PayoffCurve(c models.Contract) ([]float64, error) {
	b, err := asBarrier(c)
	if err != nil {
		return nil, err
	}
	if err := validateBarrier(b); err != nil {
		return nil, err
	}

	knockIn := b.BarrierType == models.BarrierDownAndIn
	return scaledPayoff(SpotGrid(b.Spot), b.Instrument, func(x float64) float64 {
		if (x >= b.Barrier) != knockIn {
			return 0
		}
		return intrinsic(models.OptionKindCall, b.Strike, x)
	})
}

// Revalue prices the option at another spot and remaining maturity. At or
// past expiry the barrier is judged on the given spot alone.
func (p *BarrierPricer) Revalue(c models.Contract, spot, maturity float64) (float64, error) {
	b, err := asBarrier(c)
	if err != nil {
		return 0, err
	}
	if maturity > 0 {
		return barrierClosedForm(b, spot, b.Volatility, b.Rate, maturity)
	}
	if err := validateBarrier(b); err != nil {
		return 0, err
	}
	breached := spot <= b.Barrier
	if breached != (b.BarrierType == models.BarrierDownAndIn) {
		return 0, nil
	}
	return intrinsic(models.OptionKindCall, b.Strike, spot), nil
}

// Repricer returns a function evaluating the closed form at a new spot with
// the option's volatility, rate and full maturity.
func (p *BarrierPricer) Repricer(c models.Contract) (func(spot float64) (float64, error), error) {
	b, err := asBarrier(c)
	if err != nil {
		return nil, err
	}
	if err := validateBarrier(b); err != nil {
		return nil, err
	}
	return func(spot float64) (float64, error) {
		return barrierClosedForm(b, spot, b.Volatility, b.Rate, b.Maturity)
	}, nil
}

func asBarrier(c models.Contract) (models.BarrierOption, error) {
	switch b := c.(type) {
	case models.BarrierOption:
		return b, nil
	case *models.BarrierOption:
		if b != nil {
			return *b, nil
		}
	}
	return models.BarrierOption{}, errors.InvalidArgument("contract %T is not a barrier option", c)
}

func validateBarrier(b models.BarrierOption) error {
	if err := validateKind(b.Kind); err != nil {
		return err
	}
	if b.Kind == models.OptionKindPut {
		return errors.InvalidBarrierType("%s put barriers are not supported", b.BarrierType.String())
	}
	if !b.BarrierType.Supported() {
		return errors.InvalidBarrierType("barrier type %s is not supported", b.BarrierType.String())
	}
	return b.Validate()
}

// barrierClosedForm prices a down-and-in or down-and-out call. When the spot
// is already at or below the barrier the option has knocked: the out leg is
// worthless and the in leg is the vanilla call.
func barrierClosedForm(b models.BarrierOption, spot, vol, rate, maturity float64) (float64, error) {
	if err := validateBarrier(b); err != nil {
		return 0, err
	}
	if spot <= 0 || vol <= 0 || maturity <= 0 {
		return 0, errors.Domain("spot, volatility and maturity must be positive")
	}

	terms := b.Option
	terms.Volatility = vol
	terms.Rate = rate
	q, H, K := b.DividendYield, b.Barrier, b.Strike

	vanilla, err := closedForm(terms, spot, maturity, q)
	if err != nil {
		return 0, err
	}

	var in, out float64
	if spot <= H {
		in, out = vanilla, 0
	} else {
		volSqrtT := vol * math.Sqrt(maturity)
		lambda := (rate - q + 0.5*vol*vol) / (vol * vol)
		carried := spot * math.Exp(-q*maturity)
		discounted := K * math.Exp(-rate*maturity)
		ratio := H / spot
		powS := math.Pow(ratio, 2*lambda)
		powK := math.Pow(ratio, 2*lambda-2)

		if H < K {
			y := math.Log(H*H/(spot*K))/volSqrtT + lambda*volSqrtT
			in = carried*powS*normalCDF(y) - discounted*powK*normalCDF(y-volSqrtT)
			out = vanilla - in
		} else {
			x1 := math.Log(spot/H)/volSqrtT + lambda*volSqrtT
			y1 := math.Log(H/spot)/volSqrtT + lambda*volSqrtT
			out = carried*normalCDF(x1) - discounted*normalCDF(x1-volSqrtT) -
				carried*powS*normalCDF(y1) + discounted*powK*normalCDF(y1-volSqrtT)
			in = vanilla - out
		}
	}

	price := out
	if b.BarrierType == models.BarrierDownAndIn {
		price = in
	}
	if err := checkFinite("barrier price", price); err != nil {
		return 0, err
	}
	return price, nil
}
