package risk

import (
	"context"
	"math"
	"sort"

	"github.com/rzzdr/options-risk-engine/internal/pricing"
	"github.com/rzzdr/options-risk-engine/pkg/metrics"
	"github.com/rzzdr/options-risk-engine/pkg/models"
	"github.com/rzzdr/options-risk-engine/pkg/utils/errors"
	"github.com/rzzdr/options-risk-engine/pkg/utils/logger"
)

const (
	DefaultConfidence = 0.95
	DefaultVaRPaths   = 10000
)

// VaRParams controls a VaR estimate. A zero Horizon means the contract's
// maturity; a zero Seed draws a random one.
type VaRParams struct {
	Confidence float64
	Paths      int
	Method     models.VaRMethod
	Horizon    float64
	Seed       uint64
}

// DefaultVaRParams returns 95% confidence over 10,000 paths with repricing
func DefaultVaRParams() VaRParams {
	return VaRParams{
		Confidence: DefaultConfidence,
		Paths:      DefaultVaRPaths,
		Method:     models.VaRMethodRepricing,
	}
}

func (p VaRParams) withDefaults(maturity float64) VaRParams {
	if p.Confidence == 0 {
		p.Confidence = DefaultConfidence
	}
	if p.Paths == 0 {
		p.Paths = DefaultVaRPaths
	}
	if p.Method == "" {
		p.Method = models.VaRMethodRepricing
	}
	if p.Horizon == 0 {
		p.Horizon = maturity
	}
	return p
}

// Validate checks the parameters against the contract's maturity
func (p VaRParams) Validate(maturity float64) error {
	if !(p.Confidence > 0 && p.Confidence < 1) {
		return errors.InvalidArgument("confidence must be in (0, 1), got %v", p.Confidence)
	}
	if p.Paths <= 0 {
		return errors.InvalidArgument("paths must be positive, got %d", p.Paths)
	}
	if !(p.Horizon > 0 && p.Horizon <= maturity) {
		return errors.InvalidArgument("horizon must be in (0, %v], got %v", maturity, p.Horizon)
	}
	if p.Method != models.VaRMethodRepricing && p.Method != models.VaRMethodFullRevaluation {
		return errors.InvalidArgument("unknown VaR method %q", p.Method)
	}
	return nil
}

// VaREstimator computes Value at Risk and Expected Shortfall of a single
// contract from one-step simulated spots at the horizon.
type VaREstimator struct {
	engine   *pricing.Engine
	sim      *pricing.Simulator
	recorder *metrics.Recorder
	log      *logger.Logger
}

// NewVaREstimator creates a new VaR estimator. The recorder may be nil.
func NewVaREstimator(engine *pricing.Engine, sim *pricing.Simulator, recorder *metrics.Recorder) *VaREstimator {
	return &VaREstimator{
		engine:   engine,
		sim:      sim,
		recorder: recorder,
		log:      logger.GetLogger("risk.var"),
	}
}

// Compute estimates VaR as a quantile of stored price − simulated price.
// The valuation supplies the stored price and is required.
func (v *VaREstimator) Compute(ctx context.Context, c models.Contract, valuation *models.Valuation, params VaRParams) (*models.VaRResult, error) {
	return v.compute(ctx, c, valuation, params, 1)
}

// ComputePosition is Compute with the P&L taken from the holder's side, so a
// short position loses when the simulated price rises.
func (v *VaREstimator) ComputePosition(ctx context.Context, c models.Contract, valuation *models.Valuation, params VaRParams) (*models.VaRResult, error) {
	if c == nil {
		return nil, errors.InvalidArgument("contract is nil")
	}
	sign, err := c.Terms().Position.Sign()
	if err != nil {
		return nil, err
	}
	return v.compute(ctx, c, valuation, params, sign)
}

func (v *VaREstimator) compute(ctx context.Context, c models.Contract, valuation *models.Valuation, params VaRParams, sign float64) (*models.VaRResult, error) {
	if c == nil {
		return nil, errors.InvalidArgument("contract is nil")
	}
	if valuation == nil {
		return nil, errors.InvalidArgument("VaR needs a priced valuation")
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}

	terms := c.Terms()
	if valuation.InstrumentID != "" && terms.ID != "" && valuation.InstrumentID != terms.ID {
		return nil, errors.InvalidArgument("valuation %s does not belong to instrument %s", valuation.InstrumentID, terms.ID)
	}

	params = params.withDefaults(terms.Maturity)
	if err := params.Validate(terms.Maturity); err != nil {
		return nil, err
	}

	value, err := v.valueAt(c, params)
	if err != nil {
		return nil, err
	}

	drift := terms.Rate
	if b, ok := c.(models.BarrierOption); ok {
		drift -= b.DividendYield
	}
	ps, err := v.sim.Simulate(ctx, pricing.GBM{
		Spot:       terms.Spot,
		Drift:      drift,
		Volatility: terms.Volatility,
		Horizon:    params.Horizon,
	}, pricing.MonteCarloParams{Steps: 1, Paths: params.Paths, Seed: params.Seed})
	if err != nil {
		return nil, err
	}
	defer ps.Release()

	pnl := make([]float64, ps.Paths)
	for i, spot := range ps.Terminal {
		simulated, err := value(spot)
		if err != nil {
			return nil, err
		}
		pnl[i] = sign * (valuation.Price - simulated)
	}

	valueAtRisk, shortfall := TailRisk(pnl, params.Confidence)
	if err := checkFinite(valueAtRisk, shortfall); err != nil {
		return nil, err
	}

	v.recorder.RecordVaR(terms.ID, params.Confidence, valueAtRisk)
	v.recorder.RecordES(terms.ID, params.Confidence, shortfall)
	v.log.Debugw("Computed VaR",
		"instrument", terms.ID,
		"method", params.Method,
		"confidence", params.Confidence,
		"paths", params.Paths,
		"var", valueAtRisk,
		"es", shortfall,
	)

	return &models.VaRResult{
		InstrumentID:      terms.ID,
		Method:            params.Method,
		Confidence:        params.Confidence,
		Paths:             params.Paths,
		Horizon:           params.Horizon,
		VaR:               valueAtRisk,
		ExpectedShortfall: shortfall,
	}, nil
}

// valueAt returns the function turning a simulated spot into a contract value
func (v *VaREstimator) valueAt(c models.Contract, params VaRParams) (func(spot float64) (float64, error), error) {
	if params.Method == models.VaRMethodRepricing {
		return v.engine.Repricer(c)
	}

	remaining := c.Terms().Maturity - params.Horizon
	return func(spot float64) (float64, error) {
		return v.engine.Revalue(c, spot, remaining)
	}, nil
}

// QuantileIndex is the position of the loss quantile in n ascending P&L
// values: n − round((1 − confidence)·n), clamped to the slice.
func QuantileIndex(n int, confidence float64) int {
	idx := n - int(math.Round((1-confidence)*float64(n)))
	return max(0, min(idx, n-1))
}

// TailRisk sorts pnl in place and returns the value at the loss quantile and
// the mean of the values from the quantile upwards.
func TailRisk(pnl []float64, confidence float64) (float64, float64) {
	if len(pnl) == 0 {
		return 0, 0
	}
	sort.Float64s(pnl)

	idx := QuantileIndex(len(pnl), confidence)
	var sum float64
	for _, x := range pnl[idx:] {
		sum += x
	}
	return pnl[idx], sum / float64(len(pnl)-idx)
}

func checkFinite(values ...float64) error {
	for _, x := range values {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return errors.Domain("risk measure is not finite")
		}
	}
	return nil
}
