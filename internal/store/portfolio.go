package store

import (
	"sort"
	"sync"

	"github.com/rzzdr/options-risk-engine/internal/portfolio"
	"github.com/rzzdr/options-risk-engine/pkg/utils/errors"
	"github.com/rzzdr/options-risk-engine/pkg/utils/logger"
)

// PortfolioStore defines an interface for storing and retrieving portfolios
type PortfolioStore interface {
	GetPortfolio(id string) (*portfolio.Portfolio, error)
	GetAllPortfolios() ([]*portfolio.Portfolio, error)
	SavePortfolio(p *portfolio.Portfolio) error
	DeletePortfolio(id string) error
}

// InMemoryPortfolioStore implements an in-memory portfolio storage
type InMemoryPortfolioStore struct {
	portfolios map[string]*portfolio.Portfolio
	mu         sync.RWMutex
	log        *logger.Logger
}

// NewInMemoryPortfolioStore creates a new in-memory portfolio store
func NewInMemoryPortfolioStore() *InMemoryPortfolioStore {
	return &InMemoryPortfolioStore{
		portfolios: make(map[string]*portfolio.Portfolio),
		log:        logger.GetLogger("store.portfolio"),
	}
}

// GetPortfolio retrieves a portfolio by ID
func (s *InMemoryPortfolioStore) GetPortfolio(id string) (*portfolio.Portfolio, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, exists := s.portfolios[id]
	if !exists {
		return nil, errors.NotFound("portfolio not found: %s", id)
	}

	return p, nil
}

// GetAllPortfolios returns all stored portfolios, oldest first
func (s *InMemoryPortfolioStore) GetAllPortfolios() ([]*portfolio.Portfolio, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	portfolios := make([]*portfolio.Portfolio, 0, len(s.portfolios))
	for _, p := range s.portfolios {
		portfolios = append(portfolios, p)
	}
	sort.Slice(portfolios, func(i, j int) bool {
		return portfolios[i].CreatedAt().Before(portfolios[j].CreatedAt())
	})

	return portfolios, nil
}

// SavePortfolio saves or updates a portfolio
func (s *InMemoryPortfolioStore) SavePortfolio(p *portfolio.Portfolio) error {
	if p == nil {
		return errors.InvalidArgument("cannot save nil portfolio")
	}

	if p.ID() == "" {
		return errors.InvalidArgument("portfolio ID cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.portfolios[p.ID()] = p
	s.log.Debugw("Saved portfolio", "id", p.ID(), "name", p.Name())
	return nil
}

// DeletePortfolio removes a portfolio by ID
func (s *InMemoryPortfolioStore) DeletePortfolio(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.portfolios[id]; !exists {
		return errors.NotFound("portfolio not found: %s", id)
	}

	delete(s.portfolios, id)
	return nil
}
