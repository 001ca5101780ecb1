package costsync

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian-erp/internal/costing"
)

type memoryRepo struct {
	orders     []SaleOrder
	sources    costing.Sources
	fetchErr   error
	sourcesErr error
	bulkCalls  int
}

func (r *memoryRepo) FetchOrderPage(ctx context.Context, skip, limit int) ([]SaleOrder, error) {
	if r.fetchErr != nil {
		return nil, r.fetchErr
	}
	if skip >= len(r.orders) {
		return nil, nil
	}
	end := skip + limit
	if end > len(r.orders) {
		end = len(r.orders)
	}
	page := make([]SaleOrder, end-skip)
	copy(page, r.orders[skip:end])
	return page, nil
}

func (r *memoryRepo) FetchOpeningBalances(ctx context.Context, skuIDs []string) ([]costing.OpeningBalance, error) {
	return r.sources.OpeningBalances, r.sourcesErr
}

func (r *memoryRepo) FetchPurchaseLines(ctx context.Context, skuIDs []string) ([]costing.PurchaseLine, error) {
	return r.sources.PurchaseLines, r.sourcesErr
}

func (r *memoryRepo) FetchProductionOutputs(ctx context.Context, skuIDs []string) ([]costing.ProductionOutput, error) {
	return r.sources.ProductionOutputs, r.sourcesErr
}

func (r *memoryRepo) FetchAuditAdjustments(ctx context.Context, skuIDs []string) ([]costing.AuditAdjustment, error) {
	return r.sources.AuditAdjustments, r.sourcesErr
}

func (r *memoryRepo) BulkUpdateLineCosts(ctx context.Context, ops []UpdateOp) (int, error) {
	r.bulkCalls++
	updated := 0
	for _, op := range ops {
		for i := range r.orders {
			if r.orders[i].ID != op.OrderID {
				continue
			}
			for j := range r.orders[i].LineItems {
				if r.orders[i].LineItems[j].ID == op.LineItemID {
					r.orders[i].LineItems[j].Cost = op.Cost
					updated++
				}
			}
		}
	}
	return updated, nil
}

func newService(repo RepositoryPort) *Service {
	return NewService(repo, nil, nil, ServiceConfig{})
}

func TestSyncBatchResolvesOpeningBalanceCost(t *testing.T) {
	sku := costing.NewReference("S1")
	repo := &memoryRepo{
		orders: []SaleOrder{{
			ID:      "so-1",
			OrderNo: "SO-1001",
			LineItems: []LineItem{
				{ID: "li-1", SKU: sku, LotNumber: "L1", Qty: 2, Cost: 0},
			},
		}},
		sources: costing.Sources{
			OpeningBalances: []costing.OpeningBalance{{SKU: sku, LotNumber: "L1", Cost: 2.00}},
			PurchaseLines:   []costing.PurchaseLine{{SKU: sku, LotNumber: "L1", Price: 3.50}},
		},
	}

	res, err := newService(repo).SyncBatch(context.Background(), 0, 10)
	require.NoError(t, err)
	require.Equal(t, BatchResult{Processed: 1, Ops: 1, Updated: 1}, res)
	require.InDelta(t, 2.00, repo.orders[0].LineItems[0].Cost, 0.0001)
}

func TestSyncBatchIdempotent(t *testing.T) {
	sku := costing.NewReference("S1")
	repo := &memoryRepo{
		orders: []SaleOrder{{
			ID:        "so-1",
			LineItems: []LineItem{{ID: "li-1", SKU: sku, LotNumber: "L1", Cost: 0}},
		}},
		sources: costing.Sources{
			OpeningBalances: []costing.OpeningBalance{{SKU: sku, LotNumber: "L1", Cost: 2.00}},
		},
	}
	svc := newService(repo)

	first, err := svc.SyncBatch(context.Background(), 0, 10)
	require.NoError(t, err)
	require.Equal(t, 1, first.Ops)

	second, err := svc.SyncBatch(context.Background(), 0, 10)
	require.NoError(t, err)
	require.Zero(t, second.Ops)
	require.Equal(t, 1, repo.bulkCalls)
}

func TestSyncBatchEpsilonGuard(t *testing.T) {
	sku := costing.NewReference("S1")
	build := func(resolved float64) *memoryRepo {
		return &memoryRepo{
			orders: []SaleOrder{{
				ID:        "so-1",
				LineItems: []LineItem{{ID: "li-1", SKU: sku, LotNumber: "L1", Cost: 1.2345}},
			}},
			sources: costing.Sources{
				OpeningBalances: []costing.OpeningBalance{{SKU: sku, LotNumber: "L1", Cost: resolved}},
			},
		}
	}

	res, err := newService(build(1.2349)).SyncBatch(context.Background(), 0, 10)
	require.NoError(t, err)
	require.Zero(t, res.Ops)

	res, err = newService(build(1.236)).SyncBatch(context.Background(), 0, 10)
	require.NoError(t, err)
	require.Equal(t, 1, res.Ops)
}

func TestSyncBatchLookupMissLeavesLineAlone(t *testing.T) {
	repo := &memoryRepo{
		orders: []SaleOrder{{
			ID:        "so-1",
			LineItems: []LineItem{{ID: "li-1", SKU: costing.NewReference("S1"), LotNumber: "L-unknown", Cost: 5}},
		}},
		sources: costing.Sources{
			OpeningBalances: []costing.OpeningBalance{{SKU: costing.NewReference("S1"), LotNumber: "L1", Cost: 2.00}},
		},
	}
	res, err := newService(repo).SyncBatch(context.Background(), 0, 10)
	require.NoError(t, err)
	require.Equal(t, 1, res.Processed)
	require.Zero(t, res.Ops)
	require.InDelta(t, 5, repo.orders[0].LineItems[0].Cost, 0.0001)
}

func TestSyncBatchMixedReferenceForms(t *testing.T) {
	repo := &memoryRepo{
		orders: []SaleOrder{{
			ID:        "so-1",
			LineItems: []LineItem{{ID: "li-1", SKU: costing.EmbeddedReference("60fabc", "Widget", 0), LotNumber: "L1", Cost: 0}},
		}},
		sources: costing.Sources{
			OpeningBalances: []costing.OpeningBalance{{SKU: costing.NewReference("60fabc"), LotNumber: "L1", Cost: 2.00}},
		},
	}
	res, err := newService(repo).SyncBatch(context.Background(), 0, 10)
	require.NoError(t, err)
	require.Equal(t, 1, res.Ops)
	require.InDelta(t, 2.00, repo.orders[0].LineItems[0].Cost, 0.0001)
}

func TestSyncBatchEmptyPage(t *testing.T) {
	repo := &memoryRepo{}
	res, err := newService(repo).SyncBatch(context.Background(), 100, 10)
	require.NoError(t, err)
	require.Zero(t, res.Processed)
	require.Zero(t, repo.bulkCalls)
}

func TestSyncBatchFetchErrorPropagates(t *testing.T) {
	repo := &memoryRepo{fetchErr: errors.New("connection reset")}
	_, err := newService(repo).SyncBatch(context.Background(), 0, 10)
	require.ErrorContains(t, err, "connection reset")
}

func TestSyncBatchSourceErrorPropagates(t *testing.T) {
	repo := &memoryRepo{
		orders: []SaleOrder{{
			ID:        "so-1",
			LineItems: []LineItem{{ID: "li-1", SKU: costing.NewReference("S1"), LotNumber: "L1"}},
		}},
		sourcesErr: errors.New("query timeout"),
	}
	_, err := newService(repo).SyncBatch(context.Background(), 0, 10)
	require.ErrorContains(t, err, "query timeout")
}

func TestRunFullDrivesAllPagesAndCheckpoints(t *testing.T) {
	sku := costing.NewReference("S1")
	var orders []SaleOrder
	for i := 0; i < 5; i++ {
		orders = append(orders, SaleOrder{
			ID:        "so-" + string(rune('a'+i)),
			LineItems: []LineItem{{ID: "li-1", SKU: sku, LotNumber: "L1", Cost: 0}},
		})
	}
	repo := &memoryRepo{
		orders: orders,
		sources: costing.Sources{
			OpeningBalances: []costing.OpeningBalance{{SKU: sku, LotNumber: "L1", Cost: 2.00}},
		},
	}

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	progress := NewProgress(client, time.Hour)

	svc := NewService(repo, progress, nil, ServiceConfig{})
	total, err := svc.RunFull(context.Background(), "run-1", 2)
	require.NoError(t, err)
	require.Equal(t, 5, total.Processed)
	require.Equal(t, 5, total.Ops)
	require.Equal(t, 5, total.Updated)

	last, ok, err := svc.LastProgress(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "run-1", last.RunID)
	require.True(t, last.Done)
	require.Equal(t, 5, last.Processed)
	require.Equal(t, 4, last.LastSkip)
}
