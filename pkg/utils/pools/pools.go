package pools

import "sync"

// Float64SlicePool is a pool of float64 slices used for simulation buffers
type Float64SlicePool struct {
	pool sync.Pool
}

// NewFloat64SlicePool creates a new Float64SlicePool
func NewFloat64SlicePool() *Float64SlicePool {
	return &Float64SlicePool{
		pool: sync.Pool{
			New: func() interface{} {
				s := make([]float64, 0)
				return &s
			},
		},
	}
}

// Get returns a zeroed slice of length n, reusing pooled capacity when possible
func (p *Float64SlicePool) Get(n int) []float64 {
	sp := p.pool.Get().(*[]float64)
	s := *sp
	if cap(s) < n {
		return make([]float64, n)
	}
	s = s[:n]
	clear(s)
	return s
}

// Put returns a slice to the pool
func (p *Float64SlicePool) Put(s []float64) {
	if cap(s) == 0 {
		return
	}
	s = s[:0]
	p.pool.Put(&s)
}

var defaultFloat64Pool = NewFloat64SlicePool()

// GetFloat64s takes a slice of length n from the shared pool
func GetFloat64s(n int) []float64 {
	return defaultFloat64Pool.Get(n)
}

// PutFloat64s hands a slice back to the shared pool
func PutFloat64s(s []float64) {
	defaultFloat64Pool.Put(s)
}
