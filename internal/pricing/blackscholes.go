package pricing

import (
	"context"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/rzzdr/options-risk-engine/pkg/models"
	"github.com/rzzdr/options-risk-engine/pkg/utils/errors"
	"github.com/rzzdr/options-risk-engine/pkg/utils/logger"
)

// VanillaPricer implements the Black-Scholes model for European options.
// Any contract is priced on its vanilla terms.
type VanillaPricer struct {
	sim *Simulator
	log *logger.Logger
}

// NewVanillaPricer creates a new Black-Scholes pricer
func NewVanillaPricer(sim *Simulator) *VanillaPricer {
	return &VanillaPricer{
		sim: sim,
		log: logger.GetLogger("pricing.vanilla"),
	}
}

// PriceClosedForm prices the option with the Black-Scholes formula and
// attaches its payoff curve.
func (p *VanillaPricer) PriceClosedForm(c models.Contract) (*models.Valuation, error) {
	o := c.Terms()
	price, err := closedForm(o, o.Spot, o.Maturity, 0)
	if err != nil {
		p.log.Debugw("Closed-form pricing failed", "instrument", o.ID, "error", err)
		return nil, err
	}

	payoff, err := p.PayoffCurve(o)
	if err != nil {
		return nil, err
	}

	v := models.NewValuation(o.ID, models.StyleVanilla, models.MethodClosedForm, price)
	v.Payoff = payoff
	return v, nil
}

// PriceMonteCarlo prices the option as the discounted mean payoff of
// simulated risk-neutral paths.
func (p *VanillaPricer) PriceMonteCarlo(ctx context.Context, c models.Contract, params MonteCarloParams) (*models.Valuation, error) {
	o := c.Terms()
	if err := validateVanilla(o); err != nil {
		return nil, err
	}

	ps, err := p.sim.Simulate(ctx, GBM{Spot: o.Spot, Drift: o.Rate, Volatility: o.Volatility, Horizon: o.Maturity}, params)
	if err != nil {
		return nil, err
	}
	defer ps.Release()

	payoffs := make([]float64, ps.Paths)
	for i, st := range ps.Terminal {
		payoffs[i] = intrinsic(o.Kind, o.Strike, st)
	}

	price, stdErr := discountedMean(payoffs, math.Exp(-o.Rate*o.Maturity))
	if err := checkFinite("monte carlo price", price); err != nil {
		return nil, err
	}

	curve, err := p.PayoffCurve(o)
	if err != nil {
		return nil, err
	}

	v := models.NewValuation(o.ID, models.StyleVanilla, models.MethodMonteCarlo, price)
	v.Payoff = curve
	v.Paths = ps.Paths
	v.Steps = ps.Steps
	v.StdError = stdErr
	return v, nil
}

// Greeks returns the closed-form sensitivities of the option
func (p *VanillaPricer) Greeks(c models.Contract) (*models.Greeks, error) {
	o := c.Terms()
	if err := validateVanilla(o); err != nil {
		return nil, err
	}

	S, K, r, T, sigma := o.Spot, o.Strike, o.Rate, o.Maturity, o.Volatility
	d1, d2 := d1d2(S, K, r, 0, T, sigma)
	sqrtT := math.Sqrt(T)
	discount := math.Exp(-r * T)

	greeks := &models.Greeks{
		Gamma: normalPDF(d1) / (S * sigma * sqrtT),
		Vega:  normalPDF(d1) * S * sqrtT,
	}

	decay := -S * normalPDF(d1) * sigma / (2 * sqrtT)
	if o.Kind == models.OptionKindCall {
		greeks.Delta = normalCDF(d1)
		greeks.Theta = decay - r*K*discount*normalCDF(d2)
		greeks.Rho = K * T * discount * normalCDF(d2)
	} else {
		greeks.Delta = -normalCDF(-d1)
		greeks.Theta = decay + r*K*discount*normalCDF(-d2)
		greeks.Rho = -K * T * discount * normalCDF(-d2)
	}

	if err := checkFinite("greeks", greeks.Delta, greeks.Gamma, greeks.Vega, greeks.Theta, greeks.Rho); err != nil {
		return nil, err
	}
	return greeks, nil
}

// PayoffCurve returns the signed, scaled exercise value over SpotGrid(spot)
func (p *VanillaPricer) PayoffCurve(c models.Contract) ([]float64, error) {
	o := c.Terms()
	if err := validateVanilla(o); err != nil {
		return nil, err
	}
	return scaledPayoff(SpotGrid(o.Spot), o.Instrument, func(x float64) float64 {
		return intrinsic(o.Kind, o.Strike, x)
	})
}

// Repricer returns a function valuing the option at a new spot while d1 and
// d2 stay at their values for the current spot.
func (p *VanillaPricer) Repricer(c models.Contract) (func(spot float64) float64, error) {
	o := c.Terms()
	if err := validateVanilla(o); err != nil {
		return nil, err
	}

	d1, d2 := d1d2(o.Spot, o.Strike, o.Rate, 0, o.Maturity, o.Volatility)
	discountedStrike := o.Strike * math.Exp(-o.Rate*o.Maturity)
	if o.Kind == models.OptionKindCall {
		nd1, nd2 := normalCDF(d1), normalCDF(d2)
		return func(spot float64) float64 {
			return spot*nd1 - discountedStrike*nd2
		}, nil
	}
	nd1, nd2 := normalCDF(-d1), normalCDF(-d2)
	return func(spot float64) float64 {
		return discountedStrike*nd2 - spot*nd1
	}, nil
}

// Revalue prices the option's terms at another spot and remaining maturity.
// At or past expiry the exercise value is returned.
func (p *VanillaPricer) Revalue(c models.Contract, spot, maturity float64) (float64, error) {
	o := c.Terms()
	if maturity <= 0 {
		if err := validateKind(o.Kind); err != nil {
			return 0, err
		}
		return intrinsic(o.Kind, o.Strike, spot), nil
	}
	return closedForm(o, spot, maturity, 0)
}

// closedForm is the Black-Scholes price of o's terms at the given spot and
// maturity with continuous dividend yield q.
func closedForm(o models.Option, spot, maturity, q float64) (float64, error) {
	if err := validateVanilla(o); err != nil {
		return 0, err
	}
	if spot <= 0 || maturity <= 0 {
		return 0, errors.Domain("spot and maturity must be positive, got %v and %v", spot, maturity)
	}

	K, r, sigma := o.Strike, o.Rate, o.Volatility
	d1, d2 := d1d2(spot, K, r, q, maturity, sigma)
	carried := spot * math.Exp(-q*maturity)
	discounted := K * math.Exp(-r*maturity)

	var price float64
	switch o.Kind {
	case models.OptionKindCall:
		price = carried*normalCDF(d1) - discounted*normalCDF(d2)
	case models.OptionKindPut:
		price = discounted*normalCDF(-d2) - carried*normalCDF(-d1)
	}

	if err := checkFinite("closed-form price", price); err != nil {
		return 0, err
	}
	return price, nil
}

func validateKind(kind models.OptionKind) error {
	if kind != models.OptionKindCall && kind != models.OptionKindPut {
		return errors.InvalidOptionKind("option kind %q is neither call nor put", kind.String())
	}
	return nil
}

func validateVanilla(o models.Option) error {
	if err := validateKind(o.Kind); err != nil {
		return err
	}
	return o.Validate()
}

// discountedMean returns the discounted sample mean and its standard error
func discountedMean(payoffs []float64, discount float64) (float64, float64) {
	if len(payoffs) < 2 {
		var sum float64
		for _, v := range payoffs {
			sum += v
		}
		return discount * sum / math.Max(float64(len(payoffs)), 1), 0
	}
	mean, std := stat.MeanStdDev(payoffs, nil)
	return discount * mean, discount * std / math.Sqrt(float64(len(payoffs)))
}
