package pricing

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/rzzdr/options-risk-engine/pkg/utils/errors"
)

// normalCDF is the standard normal cumulative distribution function
func normalCDF(x float64) float64 {
	return distuv.UnitNormal.CDF(x)
}

// normalPDF is the standard normal probability density function
func normalPDF(x float64) float64 {
	return distuv.UnitNormal.Prob(x)
}

// d1d2 returns the Black-Scholes d1 and d2 terms with continuous dividend yield q
func d1d2(spot, strike, rate, q, maturity, vol float64) (float64, float64) {
	volSqrtT := vol * math.Sqrt(maturity)
	d1 := (math.Log(spot/strike) + (rate-q+0.5*vol*vol)*maturity) / volSqrtT
	return d1, d1 - volSqrtT
}

// checkFinite turns NaN or infinite results into domain errors
func checkFinite(what string, values ...float64) error {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return errors.Domain("%s is not finite", what)
		}
	}
	return nil
}
