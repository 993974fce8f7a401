package main

import (
	"github.com/spf13/cobra"

	"github.com/rzzdr/options-risk-engine/pkg/models"
)

// contractFlags are the terms shared by every single-contract command
type contractFlags struct {
	style         string
	kind          string
	position      string
	spot          float64
	strike        float64
	maturity      float64
	rate          float64
	volatility    float64
	contractSize  int
	multiplier    float64
	barrierType   string
	barrier       float64
	dividendYield float64
}

func addContractFlags(cmd *cobra.Command, f *contractFlags) {
	fs := cmd.Flags()
	fs.StringVar(&f.style, "style", "vanilla", "contract style: vanilla or barrier")
	fs.StringVar(&f.kind, "kind", "call", "option kind: call or put")
	fs.StringVar(&f.position, "position", "long", "position: long or short")
	fs.Float64Var(&f.spot, "spot", 0, "spot price of the underlying")
	fs.Float64Var(&f.strike, "strike", 0, "strike price")
	fs.Float64Var(&f.maturity, "maturity", 1, "time to maturity in years")
	fs.Float64Var(&f.rate, "rate", 0.05, "continuously compounded risk-free rate")
	fs.Float64Var(&f.volatility, "vol", 0.2, "annualized volatility")
	fs.IntVar(&f.contractSize, "size", 1, "number of contracts")
	fs.Float64Var(&f.multiplier, "multiplier", 1, "units of underlying per contract")
	fs.StringVar(&f.barrierType, "barrier-type", "down-and-out", "barrier type: down-and-in or down-and-out")
	fs.Float64Var(&f.barrier, "barrier", 0, "barrier level")
	fs.Float64Var(&f.dividendYield, "dividend", 0, "continuous dividend yield of a barrier contract")
	_ = cmd.MarkFlagRequired("spot")
	_ = cmd.MarkFlagRequired("strike")
}

func (f *contractFlags) contract() (models.Contract, error) {
	var style models.Style
	if err := style.UnmarshalText([]byte(f.style)); err != nil {
		return nil, err
	}
	kind, err := models.ParseOptionKind(f.kind)
	if err != nil {
		return nil, err
	}
	position, err := models.ParsePosition(f.position)
	if err != nil {
		return nil, err
	}

	o := models.NewOption(kind, position, f.spot, f.strike, f.maturity, f.rate, f.volatility, f.contractSize, f.multiplier)
	if style != models.StyleBarrier {
		return o, nil
	}

	bt, err := models.ParseBarrierType(f.barrierType)
	if err != nil {
		return nil, err
	}
	return models.NewBarrierOption(o, bt, f.barrier, f.dividendYield), nil
}
