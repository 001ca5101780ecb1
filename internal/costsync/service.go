package costsync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/meridian-erp/meridian-erp/internal/costing"
)

// RepositoryPort abstracts storage access for the synchronizer. The four
// source fetches are separate methods so the service can issue them
// concurrently; they are independent reads.
type RepositoryPort interface {
	FetchOrderPage(ctx context.Context, skip, limit int) ([]SaleOrder, error)
	FetchOpeningBalances(ctx context.Context, skuIDs []string) ([]costing.OpeningBalance, error)
	FetchPurchaseLines(ctx context.Context, skuIDs []string) ([]costing.PurchaseLine, error)
	FetchProductionOutputs(ctx context.Context, skuIDs []string) ([]costing.ProductionOutput, error)
	FetchAuditAdjustments(ctx context.Context, skuIDs []string) ([]costing.AuditAdjustment, error)
	BulkUpdateLineCosts(ctx context.Context, ops []UpdateOp) (int, error)
}

// ProgressPort records run checkpoints for status reporting.
type ProgressPort interface {
	Record(ctx context.Context, progress RunProgress) error
	Last(ctx context.Context) (RunProgress, bool, error)
}

// Service reconciles sale-order line-item costs against the four source
// ledgers, one stable-ordered page of orders at a time.
type Service struct {
	repo     RepositoryPort
	progress ProgressPort
	logger   *slog.Logger
	epsilon  float64
}

// ServiceConfig groups optional settings.
type ServiceConfig struct {
	// Epsilon is the cost-comparison tolerance; DefaultEpsilon when zero.
	Epsilon float64
}

// NewService builds Service. The progress port may be nil.
func NewService(repo RepositoryPort, progress ProgressPort, logger *slog.Logger, cfg ServiceConfig) *Service {
	epsilon := cfg.Epsilon
	if epsilon <= 0 {
		epsilon = DefaultEpsilon
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, progress: progress, logger: logger, epsilon: epsilon}
}

// SyncBatch processes one page of sale orders: collects the distinct
// (sku, lot) pairs their line items reference, rebuilds the cost index from
// the current state of the four source ledgers restricted to those SKUs,
// and bulk-writes only the line costs that drifted beyond epsilon.
//
// The call is idempotent: rerunning with unchanged sources emits zero ops.
// Callers drive it with skip advancing by limit and stop when Processed
// drops below limit.
func (s *Service) SyncBatch(ctx context.Context, skip, limit int) (BatchResult, error) {
	if limit <= 0 {
		limit = DefaultBatchLimit
	}
	if skip < 0 {
		return BatchResult{}, errors.New("costsync: skip must be non-negative")
	}

	orders, err := s.repo.FetchOrderPage(ctx, skip, limit)
	if err != nil {
		return BatchResult{}, fmt.Errorf("costsync: fetch order page: %w", err)
	}
	result := BatchResult{Processed: len(orders)}
	if len(orders) == 0 {
		return result, nil
	}

	skuIDs := collectSKUs(orders)
	if len(skuIDs) == 0 {
		return result, nil
	}

	sources, err := s.fetchSources(ctx, skuIDs)
	if err != nil {
		return BatchResult{}, fmt.Errorf("costsync: fetch sources: %w", err)
	}
	index := costing.BuildCostIndex(sources)

	ops := s.diff(orders, index)
	result.Ops = len(ops)
	if len(ops) == 0 {
		return result, nil
	}

	updated, err := s.repo.BulkUpdateLineCosts(ctx, ops)
	if err != nil {
		return BatchResult{}, fmt.Errorf("costsync: bulk update: %w", err)
	}
	result.Updated = updated
	return result, nil
}

// RunFull drives SyncBatch from offset zero until a short page, recording a
// checkpoint after every batch. A failed batch halts the run with its last
// committed offset preserved in the checkpoint; completed batches stay
// committed.
func (s *Service) RunFull(ctx context.Context, runID string, limit int) (BatchResult, error) {
	if limit <= 0 {
		limit = DefaultBatchLimit
	}
	var total BatchResult
	skip := 0
	for {
		res, err := s.SyncBatch(ctx, skip, limit)
		if err != nil {
			s.checkpoint(ctx, RunProgress{
				RunID: runID, LastSkip: skip, Limit: limit,
				Processed: total.Processed, Ops: total.Ops, Updated: total.Updated,
				FailedWith: err.Error(),
			})
			return total, err
		}
		total.Processed += res.Processed
		total.Ops += res.Ops
		total.Updated += res.Updated
		done := res.Processed < limit
		s.checkpoint(ctx, RunProgress{
			RunID: runID, LastSkip: skip, Limit: limit,
			Processed: total.Processed, Ops: total.Ops, Updated: total.Updated,
			Done: done,
		})
		if done {
			return total, nil
		}
		skip += limit
	}
}

// LastProgress returns the most recent run checkpoint.
func (s *Service) LastProgress(ctx context.Context) (RunProgress, bool, error) {
	if s.progress == nil {
		return RunProgress{}, false, nil
	}
	return s.progress.Last(ctx)
}

func (s *Service) checkpoint(ctx context.Context, progress RunProgress) {
	if s.progress == nil {
		return
	}
	if err := s.progress.Record(ctx, progress); err != nil {
		s.logger.Warn("record sync progress", slog.Any("error", err))
	}
}

// fetchSources issues the four source-collection reads concurrently; they
// touch disjoint collections and share nothing but the SKU set.
func (s *Service) fetchSources(ctx context.Context, skuIDs []string) (costing.Sources, error) {
	var sources costing.Sources
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		recs, err := s.repo.FetchOpeningBalances(ctx, skuIDs)
		sources.OpeningBalances = recs
		return err
	})
	g.Go(func() error {
		recs, err := s.repo.FetchPurchaseLines(ctx, skuIDs)
		sources.PurchaseLines = recs
		return err
	})
	g.Go(func() error {
		recs, err := s.repo.FetchProductionOutputs(ctx, skuIDs)
		sources.ProductionOutputs = recs
		return err
	})
	g.Go(func() error {
		recs, err := s.repo.FetchAuditAdjustments(ctx, skuIDs)
		sources.AuditAdjustments = recs
		return err
	})
	if err := g.Wait(); err != nil {
		return costing.Sources{}, err
	}
	return sources, nil
}

func (s *Service) diff(orders []SaleOrder, index map[costing.LotKey]float64) []UpdateOp {
	var ops []UpdateOp
	for _, order := range orders {
		for _, line := range order.LineItems {
			key := costing.NewLotKey(line.SKU, line.LotNumber)
			if !key.Valid() {
				continue
			}
			resolved, ok := index[key]
			if !ok {
				// Lookup miss is not an error; the line stays untouched.
				continue
			}
			if math.Abs(resolved-line.Cost) < s.epsilon {
				continue
			}
			ops = append(ops, UpdateOp{OrderID: order.ID, LineItemID: line.ID, Cost: resolved})
		}
	}
	return ops
}

// collectSKUs gathers the distinct normalized SKU identifiers referenced by
// the page, sorted for stable query shapes.
func collectSKUs(orders []SaleOrder) []string {
	seen := make(map[string]struct{})
	for _, order := range orders {
		for _, line := range order.LineItems {
			id := line.SKU.ID()
			if id == "" || strings.TrimSpace(line.LotNumber) == "" {
				continue
			}
			seen[id] = struct{}{}
		}
	}
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
