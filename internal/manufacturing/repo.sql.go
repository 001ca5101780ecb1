package manufacturing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository loads manufacturing orders from PostgreSQL. Recipe lines and
// labor entries live as JSONB arrays on the job row.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// LoadOrder fetches one manufacturing order by identifier.
func (r *Repository) LoadOrder(ctx context.Context, orderID string) (Order, error) {
	if r == nil || r.pool == nil {
		return Order{}, errors.New("manufacturing repository not initialised")
	}
	row := r.pool.QueryRow(ctx, `
		SELECT id, job_no, label, sku, lot_number, job_date, qty, qty_difference, total_cost, line_items, labor
		FROM manufacturing_jobs
		WHERE id = $1`, orderID)

	var order Order
	var rawSKU, rawLines, rawLabor []byte
	err := row.Scan(
		&order.ID, &order.JobNo, &order.Label, &rawSKU, &order.LotNumber,
		&order.Date, &order.Qty, &order.QtyDifference, &order.TotalCost,
		&rawLines, &rawLabor,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, ErrOrderNotFound
	}
	if err != nil {
		return Order{}, fmt.Errorf("manufacturing: load order: %w", err)
	}

	_ = json.Unmarshal(rawSKU, &order.SKU)
	if len(rawLines) > 0 {
		if err := json.Unmarshal(rawLines, &order.LineItems); err != nil {
			return Order{}, fmt.Errorf("manufacturing: decode line items: %w", err)
		}
	}
	if len(rawLabor) > 0 {
		if err := json.Unmarshal(rawLabor, &order.Labor); err != nil {
			return Order{}, fmt.Errorf("manufacturing: decode labor: %w", err)
		}
	}
	return order, nil
}
