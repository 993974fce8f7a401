package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/rzzdr/options-risk-engine/internal/export"
	"github.com/rzzdr/options-risk-engine/internal/portfolio"
	"github.com/rzzdr/options-risk-engine/internal/pricing"
	"github.com/rzzdr/options-risk-engine/internal/risk"
	"github.com/rzzdr/options-risk-engine/pkg/models"
)

func newPriceCmd(a *app) *cobra.Command {
	var (
		f       contractFlags
		method  string
		steps   int
		paths   int
		seed    uint64
		payoffs bool
	)

	cmd := &cobra.Command{
		Use:   "price",
		Short: "Price a contract",
		Example: `  pricer price --spot 11.10 --strike 11 --vol 0.30
  pricer price --style barrier --spot 100 --strike 100 --barrier 90 --method mc --paths 50000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := f.contract()
			if err != nil {
				return err
			}
			m, err := models.ParsePricingMethod(method)
			if err != nil {
				return err
			}

			v, err := a.engine.Value(cmd.Context(), c, m, pricing.MonteCarloParams{Steps: steps, Paths: paths, Seed: seed})
			if err != nil {
				return err
			}
			if !payoffs {
				v.Payoff = nil
			}
			return printJSON(cmd.OutOrStdout(), v)
		},
	}

	addContractFlags(cmd, &f)
	cmd.Flags().StringVar(&method, "method", "closed_form", "pricing method: closed_form or monte_carlo")
	cmd.Flags().IntVar(&steps, "steps", 0, "Monte Carlo time steps (default from config)")
	cmd.Flags().IntVar(&paths, "paths", 0, "Monte Carlo paths (default from config)")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "Monte Carlo seed, 0 for random")
	cmd.Flags().BoolVar(&payoffs, "payoff", false, "include the payoff curve in the output")
	return cmd
}

func newGreeksCmd(a *app) *cobra.Command {
	var f contractFlags

	cmd := &cobra.Command{
		Use:   "greeks",
		Short: "Compute delta, gamma, vega, theta and rho of a contract",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := f.contract()
			if err != nil {
				return err
			}
			g, err := a.engine.Greeks(c)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), g)
		},
	}

	addContractFlags(cmd, &f)
	return cmd
}

func newVaRCmd(a *app) *cobra.Command {
	var (
		f          contractFlags
		confidence float64
		paths      int
		method     string
		horizon    float64
		seed       uint64
	)

	cmd := &cobra.Command{
		Use:   "var",
		Short: "Estimate Value at Risk and Expected Shortfall of a contract",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := f.contract()
			if err != nil {
				return err
			}

			params := a.calculator.Config().VaR
			if cmd.Flags().Changed("confidence") {
				params.Confidence = confidence
			}
			if cmd.Flags().Changed("paths") {
				params.Paths = paths
			}
			if cmd.Flags().Changed("var-method") {
				if params.Method, err = models.ParseVaRMethod(method); err != nil {
					return err
				}
			}
			if cmd.Flags().Changed("seed") {
				params.Seed = seed
			}
			params.Horizon = horizon

			v, err := a.engine.Value(cmd.Context(), c, models.MethodClosedForm, pricing.MonteCarloParams{})
			if err != nil {
				return err
			}
			result, err := a.calculator.VaR().Compute(cmd.Context(), c, v, params)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}

	addContractFlags(cmd, &f)
	cmd.Flags().Float64Var(&confidence, "confidence", risk.DefaultConfidence, "confidence level in (0, 1)")
	cmd.Flags().IntVar(&paths, "paths", risk.DefaultVaRPaths, "number of simulated spots")
	cmd.Flags().StringVar(&method, "var-method", "repricing", "repricing or full_revaluation")
	cmd.Flags().Float64Var(&horizon, "horizon", 0, "horizon in years, 0 for the contract maturity")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "simulation seed, 0 for random")
	return cmd
}

func newPayoffCmd(a *app) *cobra.Command {
	var f contractFlags

	cmd := &cobra.Command{
		Use:   "payoff",
		Short: "Write the payoff curve of a contract as CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := f.contract()
			if err != nil {
				return err
			}
			payoff, err := a.engine.PayoffCurve(c)
			if err != nil {
				return err
			}

			w, closeFn, err := output(cmd, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer closeFn()
			return export.WritePayoffCSV(w, pricing.SpotGrid(c.Terms().Spot), payoff)
		},
	}

	addContractFlags(cmd, &f)
	cmd.Flags().String("out", "", "write to this file instead of stdout")
	return cmd
}

func newPathsCmd(a *app) *cobra.Command {
	var (
		f        contractFlags
		steps    int
		paths    int
		seed     uint64
		terminal bool
	)

	cmd := &cobra.Command{
		Use:   "paths",
		Short: "Simulate the underlying and write the paths as CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := f.contract()
			if err != nil {
				return err
			}
			ps, err := a.engine.SimulatePaths(cmd.Context(), c, pricing.MonteCarloParams{Steps: steps, Paths: paths, Seed: seed})
			if err != nil {
				return err
			}
			defer ps.Release()

			w, closeFn, err := output(cmd, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer closeFn()

			if terminal {
				return export.WriteTerminalSpotsCSV(w, ps.Terminal)
			}
			return export.WritePathsCSV(w, ps.Matrix)
		},
	}

	addContractFlags(cmd, &f)
	cmd.Flags().IntVar(&steps, "steps", 0, "time steps (default from config)")
	cmd.Flags().IntVar(&paths, "paths", 100, "number of paths")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "simulation seed, 0 for random")
	cmd.Flags().BoolVar(&terminal, "terminal", false, "write only the terminal spot of each path")
	cmd.Flags().String("out", "", "write to this file instead of stdout")
	return cmd
}

func newStrategyCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "strategy",
		Short: "Assess predefined multi-leg strategies",
	}
	cmd.AddCommand(newButterflyCmd(a))
	return cmd
}

// strategyReport is the CLI view of an assessed strategy
type strategyReport struct {
	Report *models.RiskReport `json:"report"`
	Legs   []map[string]any   `json:"legs"`
}

func newButterflyCmd(a *app) *cobra.Command {
	var (
		spot, lower, middle, upper float64
		maturity, rate, vol        float64
		size                       int
		multiplier                 float64
		payoffOut                  string
	)

	cmd := &cobra.Command{
		Use:   "butterfly",
		Short: "Long call butterfly: long one lower and one upper call, short two middle calls",
		RunE: func(cmd *cobra.Command, args []string) error {
			legs := []models.Option{
				models.NewOption(models.OptionKindCall, models.PositionShort, spot, middle, maturity, rate, vol, 2*size, multiplier),
				models.NewOption(models.OptionKindCall, models.PositionLong, spot, lower, maturity, rate, vol, size, multiplier),
				models.NewOption(models.OptionKindCall, models.PositionLong, spot, upper, maturity, rate, vol, size, multiplier),
			}

			p := portfolio.New("Long Butterfly")
			out := strategyReport{}
			for _, leg := range legs {
				v, err := a.engine.Value(cmd.Context(), leg, models.MethodClosedForm, pricing.MonteCarloParams{})
				if err != nil {
					return err
				}
				p.AddHolding(leg, v)
				out.Legs = append(out.Legs, leg.Snapshot())
			}

			report, err := a.calculator.Assess(cmd.Context(), p)
			if err != nil {
				return err
			}
			out.Report = report

			if payoffOut != "" {
				if err := writePortfolioPayoff(p, payoffOut); err != nil {
					return err
				}
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}

	fs := cmd.Flags()
	fs.Float64Var(&spot, "spot", 11.10, "spot price of the underlying")
	fs.Float64Var(&lower, "lower", 9, "strike of the lower long call")
	fs.Float64Var(&middle, "middle", 11, "strike of the two short calls")
	fs.Float64Var(&upper, "upper", 13, "strike of the upper long call")
	fs.Float64Var(&maturity, "maturity", 1, "time to maturity in years")
	fs.Float64Var(&rate, "rate", 0.05, "risk-free rate")
	fs.Float64Var(&vol, "vol", 0.30, "annualized volatility")
	fs.IntVar(&size, "size", 100, "contracts per wing")
	fs.Float64Var(&multiplier, "multiplier", 100, "units of underlying per contract")
	fs.StringVar(&payoffOut, "payoff-out", "", "write the strategy payoff curve to this CSV file")
	return cmd
}

func writePortfolioPayoff(p *portfolio.Portfolio, path string) error {
	curve, err := p.ComputePayoffCurve()
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return export.WritePayoffCSV(f, p.Grid(), curve)
}
