package ledger

import (
	"context"

	"github.com/meridian-erp/meridian-erp/internal/costing"
)

// RepositoryPort abstracts movement and source loading for the service.
type RepositoryPort interface {
	LoadMovements(ctx context.Context, skuID string) ([]Movement, error)
	LoadSources(ctx context.Context, skuID string) (costing.Sources, error)
}

// Service serves ledger views for one SKU at a time.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// GetLedger loads the SKU's movements, resolves lot costs fresh from the
// four source ledgers, and builds the requested view. The cost index is
// never cached across calls; source records may change between requests.
func (s *Service) GetLedger(ctx context.Context, skuID string, opts Options) (Result, error) {
	movements, err := s.repo.LoadMovements(ctx, skuID)
	if err != nil {
		return Result{}, err
	}
	sources, err := s.repo.LoadSources(ctx, skuID)
	if err != nil {
		return Result{}, err
	}
	costs := costing.BuildCostIndex(sources)
	return Build(skuID, movements, costs, opts)
}
