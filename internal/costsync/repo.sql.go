package costsync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-erp/meridian-erp/internal/costing"
)

// Repository reads the source ledgers and writes sale-order line costs in
// PostgreSQL. Documents keep their embedded JSONB shape; SKU references are
// matched using the union of their raw string form and, when the string is a
// valid UUID, the canonical UUID rendering, because the same logical SKU is
// stored as a bare string in some collections and a typed reference in
// others.
type Repository struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{pool: pool, logger: logger}
}

// skuAnyMatch matches a JSONB sku column in either stored form against a
// set of identifier candidates.
const skuAnyMatch = `((jsonb_typeof(sku) = 'string' AND sku #>> '{}' = ANY($1))
	OR sku->>'_id' = ANY($1))`

// lineAnyMatch matches any element of a JSONB line_items array against the
// candidate set.
const lineAnyMatch = `EXISTS (
	SELECT 1 FROM jsonb_array_elements(line_items) AS li
	WHERE (jsonb_typeof(li->'sku') = 'string' AND li->'sku' #>> '{}' = ANY($1))
	   OR li->'sku'->>'_id' = ANY($1)
)`

// FetchOrderPage returns one stable-ordered page of sale orders. Ordering
// must not shift between calls within a run; callers advance skip by limit.
func (r *Repository) FetchOrderPage(ctx context.Context, skip, limit int) ([]SaleOrder, error) {
	if r == nil || r.pool == nil {
		return nil, errors.New("costsync repository not initialised")
	}
	rows, err := r.pool.Query(ctx, `SELECT id, order_no, line_items
FROM sale_orders
ORDER BY created_at ASC, id ASC
OFFSET $1 LIMIT $2`, skip, limit)
	if err != nil {
		return nil, fmt.Errorf("costsync: order page: %w", err)
	}
	defer rows.Close()

	var orders []SaleOrder
	for rows.Next() {
		var order SaleOrder
		var rawLines []byte
		if err := rows.Scan(&order.ID, &order.OrderNo, &rawLines); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(rawLines, &order.LineItems); err != nil {
			r.logger.Warn("skip order with malformed line items", slog.String("order_id", order.ID))
			orders = append(orders, SaleOrder{ID: order.ID, OrderNo: order.OrderNo})
			continue
		}
		orders = append(orders, order)
	}
	return orders, rows.Err()
}

// FetchOpeningBalances loads opening-balance records for the SKU set.
func (r *Repository) FetchOpeningBalances(ctx context.Context, skuIDs []string) ([]costing.OpeningBalance, error) {
	rows, err := r.pool.Query(ctx, `SELECT sku, lot_number, qty, cost FROM opening_balances WHERE `+skuAnyMatch, identifierForms(skuIDs))
	if err != nil {
		return nil, fmt.Errorf("costsync: opening balances: %w", err)
	}
	defer rows.Close()
	var out []costing.OpeningBalance
	for rows.Next() {
		var raw []byte
		var rec costing.OpeningBalance
		if err := rows.Scan(&raw, &rec.LotNumber, &rec.Qty, &rec.Cost); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(raw, &rec.SKU); err != nil || rec.SKU.IsZero() {
			continue
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// FetchPurchaseLines loads purchase-order lines touching the SKU set.
func (r *Repository) FetchPurchaseLines(ctx context.Context, skuIDs []string) ([]costing.PurchaseLine, error) {
	forms := identifierForms(skuIDs)
	rows, err := r.pool.Query(ctx, `SELECT line_items FROM purchase_orders WHERE `+lineAnyMatch, forms)
	if err != nil {
		return nil, fmt.Errorf("costsync: purchase lines: %w", err)
	}
	defer rows.Close()

	wanted := formSet(forms)
	var out []costing.PurchaseLine
	for rows.Next() {
		var rawLines []byte
		if err := rows.Scan(&rawLines); err != nil {
			return nil, err
		}
		var lines []costing.PurchaseLine
		if err := json.Unmarshal(rawLines, &lines); err != nil {
			continue
		}
		for _, line := range lines {
			if _, ok := wanted[line.SKU.ID()]; ok {
				out = append(out, line)
			}
		}
	}
	return out, rows.Err()
}

// FetchProductionOutputs loads completed manufacturing runs for the SKU set.
func (r *Repository) FetchProductionOutputs(ctx context.Context, skuIDs []string) ([]costing.ProductionOutput, error) {
	rows, err := r.pool.Query(ctx, `SELECT sku, lot_number, label, qty, total_cost FROM manufacturing_jobs WHERE `+skuAnyMatch, identifierForms(skuIDs))
	if err != nil {
		return nil, fmt.Errorf("costsync: production outputs: %w", err)
	}
	defer rows.Close()
	var out []costing.ProductionOutput
	for rows.Next() {
		var raw []byte
		var rec costing.ProductionOutput
		if err := rows.Scan(&raw, &rec.LotNumber, &rec.Label, &rec.Qty, &rec.TotalCost); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(raw, &rec.SKU); err != nil || rec.SKU.IsZero() {
			continue
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// FetchAuditAdjustments loads manual corrections for the SKU set.
func (r *Repository) FetchAuditAdjustments(ctx context.Context, skuIDs []string) ([]costing.AuditAdjustment, error) {
	rows, err := r.pool.Query(ctx, `SELECT sku, lot_number, qty, cost FROM audit_adjustments WHERE `+skuAnyMatch, identifierForms(skuIDs))
	if err != nil {
		return nil, fmt.Errorf("costsync: audit adjustments: %w", err)
	}
	defer rows.Close()
	var out []costing.AuditAdjustment
	for rows.Next() {
		var raw []byte
		var rec costing.AuditAdjustment
		if err := rows.Scan(&raw, &rec.LotNumber, &rec.Qty, &rec.Cost); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(raw, &rec.SKU); err != nil || rec.SKU.IsZero() {
			continue
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// BulkUpdateLineCosts applies all ops as one batched round trip. Each update
// targets a single line item by (order id, line id) and is independent of
// the others: a failed op is logged and skipped while the rest commit, so
// the returned count can be lower than len(ops). Reruns with the same inputs
// reconverge, which is what makes the partial-commit tolerable.
func (r *Repository) BulkUpdateLineCosts(ctx context.Context, ops []UpdateOp) (int, error) {
	if r == nil || r.pool == nil {
		return 0, errors.New("costsync repository not initialised")
	}
	if len(ops) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, op := range ops {
		batch.Queue(`UPDATE sale_orders
SET line_items = (
	SELECT jsonb_agg(
		CASE WHEN li->>'_id' = $2 THEN jsonb_set(li, '{cost}', to_jsonb($3::float8)) ELSE li END
	)
	FROM jsonb_array_elements(line_items) AS li
)
WHERE id = $1`, op.OrderID, op.LineItemID, op.Cost)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()

	updated := 0
	for _, op := range ops {
		tag, err := results.Exec()
		if err != nil {
			r.logger.Warn("line cost update failed",
				slog.String("order_id", op.OrderID),
				slog.String("line_item_id", op.LineItemID),
				slog.Any("error", err))
			continue
		}
		if tag.RowsAffected() > 0 {
			updated++
		}
	}
	return updated, nil
}

// identifierForms expands each identifier to the union of its raw string
// form and, when it parses as a UUID, the canonical UUID rendering. Some
// collections store the typed form, others the raw text a client sent.
func identifierForms(ids []string) []string {
	forms := make([]string, 0, len(ids)*2)
	seen := make(map[string]struct{}, len(ids)*2)
	add := func(s string) {
		if s == "" {
			return
		}
		if _, ok := seen[s]; ok {
			return
		}
		seen[s] = struct{}{}
		forms = append(forms, s)
	}
	for _, id := range ids {
		add(id)
		if parsed, err := uuid.Parse(id); err == nil {
			add(parsed.String())
		}
	}
	return forms
}

func formSet(forms []string) map[string]struct{} {
	set := make(map[string]struct{}, len(forms))
	for _, f := range forms {
		set[f] = struct{}{}
	}
	return set
}
