package pricing

import (
	"context"
	"math"
	"math/rand/v2"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/rzzdr/options-risk-engine/pkg/utils/errors"
	"github.com/rzzdr/options-risk-engine/pkg/utils/logger"
	"github.com/rzzdr/options-risk-engine/pkg/utils/pools"
)

const (
	DefaultSteps = 50
	DefaultPaths = 10000

	// PathChunks is the number of independent random streams paths are
	// split into. It is fixed so a seed gives the same paths on any host.
	PathChunks = 64

	// cancellation is checked every cancelCheckInterval paths
	cancelCheckInterval = 256
)

// MonteCarloParams controls a simulation. A zero Seed draws a random seed,
// which is reported back on the PathSet.
type MonteCarloParams struct {
	Steps     int
	Paths     int
	Seed      uint64
	KeepPaths bool
}

// DefaultMonteCarloParams returns 50 steps and 10,000 paths
func DefaultMonteCarloParams() MonteCarloParams {
	return MonteCarloParams{
		Steps: DefaultSteps,
		Paths: DefaultPaths,
	}
}

// withDefaults fills unset step and path counts
func (p MonteCarloParams) withDefaults() MonteCarloParams {
	if p.Steps == 0 {
		p.Steps = DefaultSteps
	}
	if p.Paths == 0 {
		p.Paths = DefaultPaths
	}
	return p
}

// Validate checks the parameters
func (p MonteCarloParams) Validate() error {
	if p.Steps <= 0 {
		return errors.InvalidArgument("steps must be positive, got %d", p.Steps)
	}
	if p.Paths <= 0 {
		return errors.InvalidArgument("paths must be positive, got %d", p.Paths)
	}
	return nil
}

// GBM describes a geometric Brownian motion to simulate
type GBM struct {
	Spot       float64
	Drift      float64
	Volatility float64
	Horizon    float64
}

// PathSet is the output of a simulation. Terminal and Minimum are indexed by
// path; Matrix, when kept, is indexed [step][path] and includes step 0.
type PathSet struct {
	Terminal []float64
	Minimum  []float64
	Matrix   [][]float64
	Steps    int
	Paths    int
	Seed     uint64
}

// Release hands the pooled buffers back. The PathSet must not be used afterwards.
func (ps *PathSet) Release() {
	pools.PutFloat64s(ps.Terminal)
	pools.PutFloat64s(ps.Minimum)
	ps.Terminal = nil
	ps.Minimum = nil
}

// Simulator generates GBM paths in PathChunks chunks. Each chunk owns a PCG
// stream seeded with (seed, chunk index), so output only depends on the seed.
type Simulator struct {
	workers int
	log     *logger.Logger
}

// NewSimulator creates a new simulator running at most workers chunks at
// once; zero or less uses GOMAXPROCS.
func NewSimulator(workers int) *Simulator {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Simulator{
		workers: workers,
		log:     logger.GetLogger("pricing.montecarlo"),
	}
}

// Workers returns the number of chunks simulated concurrently
func (s *Simulator) Workers() int {
	return s.workers
}

// Simulate generates params.Paths paths of params.Steps steps each.
// S(t+dt) = S(t)·exp((drift − σ²/2)dt + σ√dt·Z).
func (s *Simulator) Simulate(ctx context.Context, process GBM, params MonteCarloParams) (*PathSet, error) {
	params = params.withDefaults()
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if process.Spot <= 0 || process.Volatility <= 0 || process.Horizon <= 0 {
		return nil, errors.Domain("spot, volatility and horizon must be positive")
	}

	seed := params.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}

	ps := &PathSet{
		Terminal: pools.GetFloat64s(params.Paths),
		Minimum:  pools.GetFloat64s(params.Paths),
		Steps:    params.Steps,
		Paths:    params.Paths,
		Seed:     seed,
	}
	if params.KeepPaths {
		ps.Matrix = make([][]float64, params.Steps+1)
		for i := range ps.Matrix {
			ps.Matrix[i] = make([]float64, params.Paths)
		}
	}

	dt := process.Horizon / float64(params.Steps)
	drift := (process.Drift - 0.5*process.Volatility*process.Volatility) * dt
	diffusion := process.Volatility * math.Sqrt(dt)

	chunks := min(PathChunks, params.Paths)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for c := 0; c < chunks; c++ {
		from := c * params.Paths / chunks
		to := (c + 1) * params.Paths / chunks
		rng := rand.New(rand.NewPCG(seed, uint64(c)))

		g.Go(func() error {
			for p := from; p < to; p++ {
				if (p-from)%cancelCheckInterval == 0 {
					if err := gctx.Err(); err != nil {
						return err
					}
				}

				spot := process.Spot
				low := spot
				if ps.Matrix != nil {
					ps.Matrix[0][p] = spot
				}
				for step := 1; step <= params.Steps; step++ {
					spot *= math.Exp(drift + diffusion*rng.NormFloat64())
					if spot < low {
						low = spot
					}
					if ps.Matrix != nil {
						ps.Matrix[step][p] = spot
					}
				}
				ps.Terminal[p] = spot
				ps.Minimum[p] = low
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		ps.Release()
		return nil, errors.Wrap(err, "simulation cancelled")
	}

	s.log.Debugw("Simulated paths", "paths", params.Paths, "steps", params.Steps, "chunks", chunks, "workers", s.workers, "seed", seed)
	return ps, nil
}
