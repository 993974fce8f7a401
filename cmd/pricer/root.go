package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/rzzdr/options-risk-engine/config"
	"github.com/rzzdr/options-risk-engine/internal/pricing"
	"github.com/rzzdr/options-risk-engine/internal/risk"
	"github.com/rzzdr/options-risk-engine/pkg/models"
	"github.com/rzzdr/options-risk-engine/pkg/utils/logger"
	"github.com/rzzdr/options-risk-engine/pkg/utils/performance"
)

// app holds the services built from configuration before any subcommand runs
type app struct {
	cfg        *config.Config
	sim        *pricing.Simulator
	engine     *pricing.Engine
	calculator *risk.Calculator
	profiler   *performance.Profiler
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "pricer",
		Short: "Price options and estimate their risk",
		Long: `pricer values European vanilla and down barrier call options with
Black-Scholes or Monte Carlo, reports Greeks, payoff curves, Value at Risk
and Expected Shortfall, and assesses multi-leg strategies.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if a.profiler == nil {
				return nil
			}
			return a.profiler.Stop()
		},
	}

	root.PersistentFlags().String("config", "", "config file path (default: ./config/config.yaml)")
	root.PersistentFlags().String("log-level", "", "log level override (debug, info, warn, error)")
	root.PersistentFlags().String("profile-dir", "", "write CPU and heap profiles of the run to this directory")

	root.AddCommand(
		newPriceCmd(a),
		newGreeksCmd(a),
		newVaRCmd(a),
		newPayoffCmd(a),
		newPathsCmd(a),
		newStrategyCmd(a),
	)
	return root
}

func (a *app) init(cmd *cobra.Command) error {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		path = config.GetConfigPath()
	}

	cfg, err := config.LoadFrom(path)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	level := cfg.App.LogLevel
	if override, _ := cmd.Flags().GetString("log-level"); override != "" {
		level = override
	}
	// logs go to stderr, results to stdout
	logger.Init(level, cfg.App.Environment)

	varMethod, err := models.ParseVaRMethod(cfg.Risk.VaRMethod)
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.sim = pricing.NewSimulator(cfg.Pricing.Workers)
	a.engine = pricing.NewEngine(a.sim, pricing.MonteCarloParams{
		Steps: cfg.Pricing.MonteCarloSteps,
		Paths: cfg.Pricing.MonteCarloPaths,
		Seed:  cfg.Pricing.Seed,
	}, nil)
	a.calculator = risk.NewCalculator(risk.CalculatorConfig{
		VaR: risk.VaRParams{
			Confidence: cfg.Risk.VaRConfidenceLevel,
			Paths:      cfg.Risk.VaRPaths,
			Method:     varMethod,
			Seed:       cfg.Pricing.Seed,
		},
		WorkerCount: cfg.Risk.Workers,
	}, a.engine, a.sim, nil)

	if dir, _ := cmd.Flags().GetString("profile-dir"); dir != "" {
		a.profiler = performance.NewProfiler(performance.ProfilerConfig{OutputDir: dir, EnableCPU: true, EnableMemory: true})
		if err := a.profiler.Start(); err != nil {
			return err
		}
	}
	return nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// output returns the file named by the --out flag, or w when it is empty
func output(cmd *cobra.Command, w io.Writer) (io.Writer, func() error, error) {
	path, _ := cmd.Flags().GetString("out")
	if path == "" {
		return w, func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	return f, f.Close, nil
}
