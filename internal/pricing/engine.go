package pricing

import (
	"context"
	"time"

	"github.com/rzzdr/options-risk-engine/pkg/metrics"
	"github.com/rzzdr/options-risk-engine/pkg/models"
	"github.com/rzzdr/options-risk-engine/pkg/utils/errors"
	"github.com/rzzdr/options-risk-engine/pkg/utils/logger"
)

// Pricer is implemented per contract style
type Pricer interface {
	PriceClosedForm(c models.Contract) (*models.Valuation, error)
	PriceMonteCarlo(ctx context.Context, c models.Contract, params MonteCarloParams) (*models.Valuation, error)
	Greeks(c models.Contract) (*models.Greeks, error)
	PayoffCurve(c models.Contract) ([]float64, error)
	// Revalue prices the contract at another spot and remaining maturity
	Revalue(c models.Contract, spot, maturity float64) (float64, error)
}

// Engine dispatches contracts to the pricer for their style
type Engine struct {
	sim      *Simulator
	vanilla  *VanillaPricer
	barrier  *BarrierPricer
	defaults MonteCarloParams
	recorder *metrics.Recorder
	log      *logger.Logger
}

// NewEngine creates a new pricing engine. The recorder may be nil.
func NewEngine(sim *Simulator, defaults MonteCarloParams, recorder *metrics.Recorder) *Engine {
	if sim == nil {
		sim = NewSimulator(0)
	}
	return &Engine{
		sim:      sim,
		vanilla:  NewVanillaPricer(sim),
		barrier:  NewBarrierPricer(sim),
		defaults: defaults.withDefaults(),
		recorder: recorder,
		log:      logger.GetLogger("pricing.engine"),
	}
}

// Vanilla returns the Black-Scholes pricer
func (e *Engine) Vanilla() *VanillaPricer {
	return e.vanilla
}

// Defaults returns the default Monte Carlo parameters
func (e *Engine) Defaults() MonteCarloParams {
	return e.defaults
}

// For returns the pricer for the contract's style
func (e *Engine) For(c models.Contract) (Pricer, error) {
	if c == nil {
		return nil, errors.InvalidArgument("contract is nil")
	}
	switch c.Style() {
	case models.StyleVanilla:
		return e.vanilla, nil
	case models.StyleBarrier:
		return e.barrier, nil
	default:
		return nil, errors.InvalidArgument("unknown contract style %s", c.Style().String())
	}
}

// Value prices the contract with the given method and attaches its Greeks.
// Zero fields in params fall back to the engine defaults.
func (e *Engine) Value(ctx context.Context, c models.Contract, method models.PricingMethod, params MonteCarloParams) (*models.Valuation, error) {
	start := time.Now()
	style := "unknown"
	if c != nil {
		style = c.Style().String()
	}

	v, err := e.value(ctx, c, method, params)
	if err != nil {
		e.recorder.RecordPricingError(style, string(method), errors.TypeOf(err).String())
		e.log.Debugw("Valuation failed", "style", style, "method", method, "error", err)
		return nil, err
	}

	e.recorder.RecordPricing(style, string(method), time.Since(start))
	return v, nil
}

func (e *Engine) value(ctx context.Context, c models.Contract, method models.PricingMethod, params MonteCarloParams) (*models.Valuation, error) {
	p, err := e.For(c)
	if err != nil {
		return nil, err
	}

	var v *models.Valuation
	switch method {
	case models.MethodClosedForm, "":
		v, err = p.PriceClosedForm(c)
	case models.MethodMonteCarlo:
		v, err = p.PriceMonteCarlo(ctx, c, e.merge(params))
	default:
		return nil, errors.InvalidArgument("unknown pricing method %q", method)
	}
	if err != nil {
		return nil, err
	}

	greeks, err := p.Greeks(c)
	if err != nil {
		return nil, err
	}
	v.Greeks = greeks
	return v, nil
}

// Greeks returns the sensitivities of the contract
func (e *Engine) Greeks(c models.Contract) (*models.Greeks, error) {
	p, err := e.For(c)
	if err != nil {
		return nil, err
	}
	return p.Greeks(c)
}

// PayoffCurve returns the contract's payoff over SpotGrid(spot)
func (e *Engine) PayoffCurve(c models.Contract) ([]float64, error) {
	p, err := e.For(c)
	if err != nil {
		return nil, err
	}
	return p.PayoffCurve(c)
}

// Revalue prices the contract at another spot and remaining maturity
func (e *Engine) Revalue(c models.Contract, spot, maturity float64) (float64, error) {
	p, err := e.For(c)
	if err != nil {
		return 0, err
	}
	return p.Revalue(c, spot, maturity)
}

// Repricer returns the style's function valuing the contract at a simulated
// spot with its other terms as of today
func (e *Engine) Repricer(c models.Contract) (func(spot float64) (float64, error), error) {
	if c == nil {
		return nil, errors.InvalidArgument("contract is nil")
	}
	switch c.Style() {
	case models.StyleVanilla:
		reprice, err := e.vanilla.Repricer(c)
		if err != nil {
			return nil, err
		}
		return func(spot float64) (float64, error) {
			return reprice(spot), nil
		}, nil
	case models.StyleBarrier:
		return e.barrier.Repricer(c)
	default:
		return nil, errors.InvalidArgument("unknown contract style %s", c.Style().String())
	}
}

// SimulatePaths simulates the contract's underlying under the risk-neutral
// measure and keeps the full path matrix for charting.
func (e *Engine) SimulatePaths(ctx context.Context, c models.Contract, params MonteCarloParams) (*PathSet, error) {
	if c == nil {
		return nil, errors.InvalidArgument("contract is nil")
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}

	o := c.Terms()
	drift := o.Rate
	if b, ok := c.(models.BarrierOption); ok {
		drift -= b.DividendYield
	}

	params = e.merge(params)
	params.KeepPaths = true
	return e.sim.Simulate(ctx, GBM{Spot: o.Spot, Drift: drift, Volatility: o.Volatility, Horizon: o.Maturity}, params)
}

func (e *Engine) merge(params MonteCarloParams) MonteCarloParams {
	if params.Steps == 0 {
		params.Steps = e.defaults.Steps
	}
	if params.Paths == 0 {
		params.Paths = e.defaults.Paths
	}
	if params.Seed == 0 {
		params.Seed = e.defaults.Seed
	}
	return params
}
