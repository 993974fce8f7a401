package pools

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFloat64SlicePoolReturnsZeroedSlices(t *testing.T) {
	p := NewFloat64SlicePool()

	s := p.Get(4)
	assert.Len(t, s, 4)
	for i := range s {
		s[i] = float64(i + 1)
	}
	p.Put(s)

	again := p.Get(3)
	assert.Len(t, again, 3)
	assert.Equal(t, []float64{0, 0, 0}, again)
}

func TestFloat64SlicePoolGrows(t *testing.T) {
	p := NewFloat64SlicePool()
	p.Put(make([]float64, 2))

	s := p.Get(10)
	assert.Len(t, s, 10)
	assert.GreaterOrEqual(t, cap(s), 10)
}

func TestSharedPool(t *testing.T) {
	s := GetFloat64s(5)
	assert.Len(t, s, 5)
	PutFloat64s(s)
	PutFloat64s(nil)
}
