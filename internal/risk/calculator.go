package risk

import (
	"context"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rzzdr/options-risk-engine/internal/portfolio"
	"github.com/rzzdr/options-risk-engine/internal/pricing"
	"github.com/rzzdr/options-risk-engine/pkg/metrics"
	"github.com/rzzdr/options-risk-engine/pkg/models"
	"github.com/rzzdr/options-risk-engine/pkg/utils/errors"
	"github.com/rzzdr/options-risk-engine/pkg/utils/logger"
)

// CalculatorConfig contains configuration for the risk calculator
type CalculatorConfig struct {
	VaR         VaRParams
	WorkerCount int
}

// Calculator performs risk calculations for portfolios
type Calculator struct {
	config   CalculatorConfig
	varEst   *VaREstimator
	greeks   *GreeksCalculator
	recorder *metrics.Recorder
	log      *logger.Logger
}

// NewCalculator creates a new risk calculator
func NewCalculator(config CalculatorConfig, engine *pricing.Engine, sim *pricing.Simulator, recorder *metrics.Recorder) *Calculator {
	if config.WorkerCount <= 0 {
		config.WorkerCount = runtime.GOMAXPROCS(0)
	}
	if config.VaR.Confidence == 0 {
		config.VaR.Confidence = DefaultConfidence
	}
	if config.VaR.Paths == 0 {
		config.VaR.Paths = DefaultVaRPaths
	}
	if config.VaR.Method == "" {
		config.VaR.Method = models.VaRMethodRepricing
	}

	return &Calculator{
		config:   config,
		varEst:   NewVaREstimator(engine, sim, recorder),
		greeks:   NewGreeksCalculator(engine),
		recorder: recorder,
		log:      logger.GetLogger("risk.calculator"),
	}
}

// VaR returns the calculator's VaR estimator
func (c *Calculator) VaR() *VaREstimator {
	return c.varEst
}

// Config returns the calculator configuration after defaults
func (c *Calculator) Config() CalculatorConfig {
	return c.config
}

// Assess computes premium, aggregate Greeks and per-holding VaR for a
// portfolio. Position VaR is per unit from the holder's side; total VaR is
// the undiversified sum of position VaR × notional.
func (c *Calculator) Assess(ctx context.Context, p *portfolio.Portfolio) (*models.RiskReport, error) {
	if p == nil {
		return nil, errors.InvalidArgument("portfolio is nil")
	}

	startTime := time.Now()
	c.log.Infof("Starting risk calculation for portfolio %s", p.ID())

	premium, err := p.ComputePremium()
	if err != nil {
		return nil, err
	}
	c.recorder.RecordPremium(p.ID(), premium)

	holdings := p.Holdings()
	greeks, err := c.greeks.CalculatePortfolioGreeks(holdings)
	if err != nil {
		return nil, err
	}

	report := models.NewRiskReport(p.ID(), p.Name())
	report.Premium = premium
	report.Greeks = greeks
	report.Confidence = c.config.VaR.Confidence
	report.Positions, err = c.calculatePositionRisks(ctx, holdings)
	if err != nil {
		c.log.Errorf("Risk calculation for portfolio %s failed: %v", p.ID(), err)
		return nil, err
	}

	for _, pr := range report.Positions {
		report.TotalVaR += pr.VaR * pr.Notional
		report.TotalES += pr.ExpectedShortfall * pr.Notional
	}

	c.recorder.RecordVaR(p.ID(), report.Confidence, report.TotalVaR)
	c.recorder.RecordES(p.ID(), report.Confidence, report.TotalES)
	c.recorder.RecordRiskCalculation("portfolio", p.ID(), time.Since(startTime))
	c.log.Infof("Completed risk calculation for portfolio %s in %v", p.ID(), time.Since(startTime))
	return report, nil
}

// calculatePositionRisks computes VaR per holding with a bounded worker pool.
// Results keep the holdings' order.
func (c *Calculator) calculatePositionRisks(ctx context.Context, holdings []portfolio.Holding) ([]models.PositionRisk, error) {
	risks := make([]models.PositionRisk, len(holdings))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.config.WorkerCount)

	for i, h := range holdings {
		g.Go(func() error {
			params := c.config.VaR
			if params.Seed != 0 {
				params.Seed += uint64(i)
			}
			result, err := c.varEst.ComputePosition(gctx, h.Contract, h.Valuation, params)
			if err != nil {
				return errors.Wrapf(err, "holding %d", i)
			}

			terms := h.Contract.Terms()
			risks[i] = models.PositionRisk{
				InstrumentID:      terms.ID,
				Style:             h.Contract.Style(),
				Position:          terms.Position,
				Price:             h.Valuation.Price,
				Notional:          terms.Notional(),
				VaR:               result.VaR,
				ExpectedShortfall: result.ExpectedShortfall,
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return risks, nil
}
