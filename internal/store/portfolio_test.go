package store

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rzzdr/options-risk-engine/internal/portfolio"
	"github.com/rzzdr/options-risk-engine/pkg/utils/errors"
)

func TestPortfolioStoreCRUD(t *testing.T) {
	s := NewInMemoryPortfolioStore()
	p := portfolio.New("butterfly")

	require.NoError(t, s.SavePortfolio(p))

	got, err := s.GetPortfolio(p.ID())
	require.NoError(t, err)
	assert.Same(t, p, got)

	all, err := s.GetAllPortfolios()
	require.NoError(t, err)
	assert.Len(t, all, 1)

	require.NoError(t, s.DeletePortfolio(p.ID()))
	_, err = s.GetPortfolio(p.ID())
	assert.True(t, errors.Is(err, errors.ErrNotFound))

	err = s.DeletePortfolio(p.ID())
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestPortfolioStoreRejectsNil(t *testing.T) {
	s := NewInMemoryPortfolioStore()
	err := s.SavePortfolio(nil)
	assert.True(t, errors.Is(err, errors.ErrInvalidArgument))
}

func TestPortfolioStoreConcurrentAccess(t *testing.T) {
	s := NewInMemoryPortfolioStore()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p := portfolio.New("concurrent")
			assert.NoError(t, s.SavePortfolio(p))
			_, err := s.GetPortfolio(p.ID())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	all, err := s.GetAllPortfolios()
	require.NoError(t, err)
	assert.Len(t, all, 20)
}
