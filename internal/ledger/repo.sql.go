package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-erp/meridian-erp/internal/costing"
	"github.com/meridian-erp/meridian-erp/internal/manufacturing"
)

// Repository assembles ledger movements from the source collections in
// PostgreSQL. SKU references inside documents are stored as JSONB and may be
// a bare identifier string or an embedded object; the SQL match covers both
// forms and the Reference decoder is the single place the union is unwrapped.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// skuMatch matches a JSONB sku column against a raw identifier in either
// stored form.
const skuMatch = `(sku @> to_jsonb($1::text) OR sku->>'_id' = $1)`

// lineMatch matches any element of a JSONB line_items array by sku.
const lineMatch = `EXISTS (
	SELECT 1 FROM jsonb_array_elements(line_items) AS li
	WHERE li->'sku' @> to_jsonb($1::text) OR li->'sku'->>'_id' = $1
)`

type orderLine struct {
	ID        string            `json:"_id"`
	SKU       costing.Reference `json:"sku"`
	LotNumber string            `json:"lotNumber"`
	Qty       float64           `json:"qty"`
	UOM       string            `json:"uom"`
	Cost      float64           `json:"cost"`
	Price     float64           `json:"price"`
}

// LoadMovements returns every movement touching the SKU across all six
// sources, chronologically ordered with the whole-SKU running balance
// stamped on each row.
func (r *Repository) LoadMovements(ctx context.Context, skuID string) ([]Movement, error) {
	if r == nil || r.pool == nil {
		return nil, errors.New("ledger repository not initialised")
	}

	var movements []Movement
	collect := func(batch []Movement, err error) error {
		if err != nil {
			return err
		}
		movements = append(movements, batch...)
		return nil
	}

	if err := collect(r.openingMovements(ctx, skuID)); err != nil {
		return nil, err
	}
	if err := collect(r.purchaseMovements(ctx, skuID)); err != nil {
		return nil, err
	}
	if err := collect(r.manufacturingMovements(ctx, skuID)); err != nil {
		return nil, err
	}
	if err := collect(r.orderMovements(ctx, skuID, "sale_orders", MovementSale, "/sale-orders/")); err != nil {
		return nil, err
	}
	if err := collect(r.orderMovements(ctx, skuID, "web_orders", MovementWeb, "/web-orders/")); err != nil {
		return nil, err
	}
	if err := collect(r.auditMovements(ctx, skuID)); err != nil {
		return nil, err
	}

	sort.SliceStable(movements, func(i, j int) bool {
		return movements[i].Date.Before(movements[j].Date)
	})
	running := 0.0
	for i := range movements {
		running += movements[i].Qty
		movements[i].Balance = running
	}
	return movements, nil
}

// LoadSources fetches the four cost-bearing ledgers restricted to the SKU,
// ready for cost-index construction.
func (r *Repository) LoadSources(ctx context.Context, skuID string) (costing.Sources, error) {
	if r == nil || r.pool == nil {
		return costing.Sources{}, errors.New("ledger repository not initialised")
	}
	var sources costing.Sources

	rows, err := r.pool.Query(ctx, `SELECT sku, lot_number, qty, cost FROM opening_balances WHERE `+skuMatch, skuID)
	if err != nil {
		return costing.Sources{}, fmt.Errorf("ledger: opening balances: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var raw []byte
		var rec costing.OpeningBalance
		if err := rows.Scan(&raw, &rec.LotNumber, &rec.Qty, &rec.Cost); err != nil {
			return costing.Sources{}, err
		}
		if err := json.Unmarshal(raw, &rec.SKU); err != nil {
			continue
		}
		sources.OpeningBalances = append(sources.OpeningBalances, rec)
	}
	if err := rows.Err(); err != nil {
		return costing.Sources{}, err
	}

	lines, err := r.purchaseLines(ctx, skuID)
	if err != nil {
		return costing.Sources{}, err
	}
	sources.PurchaseLines = lines

	outputs, err := r.productionOutputs(ctx, skuID)
	if err != nil {
		return costing.Sources{}, err
	}
	sources.ProductionOutputs = outputs

	adjRows, err := r.pool.Query(ctx, `SELECT sku, lot_number, qty, cost FROM audit_adjustments WHERE `+skuMatch, skuID)
	if err != nil {
		return costing.Sources{}, fmt.Errorf("ledger: audit adjustments: %w", err)
	}
	defer adjRows.Close()
	for adjRows.Next() {
		var raw []byte
		var rec costing.AuditAdjustment
		if err := adjRows.Scan(&raw, &rec.LotNumber, &rec.Qty, &rec.Cost); err != nil {
			return costing.Sources{}, err
		}
		if err := json.Unmarshal(raw, &rec.SKU); err != nil {
			continue
		}
		sources.AuditAdjustments = append(sources.AuditAdjustments, rec)
	}
	return sources, adjRows.Err()
}

func (r *Repository) openingMovements(ctx context.Context, skuID string) ([]Movement, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, lot_number, qty, cost, uom, entry_date FROM opening_balances WHERE `+skuMatch+` ORDER BY entry_date`, skuID)
	if err != nil {
		return nil, fmt.Errorf("ledger: opening movements: %w", err)
	}
	defer rows.Close()
	var out []Movement
	for rows.Next() {
		var id, lot, uom string
		var qty, cost float64
		var date time.Time
		if err := rows.Scan(&id, &lot, &qty, &cost, &uom, &date); err != nil {
			return nil, err
		}
		out = append(out, Movement{
			Date:      date,
			Type:      MovementOpening,
			Reference: "Opening balance",
			Link:      "/opening-balances/" + id,
			LotNumber: lot,
			Qty:       qty,
			UOM:       uom,
			Cost:      cost,
		})
	}
	return out, rows.Err()
}

func (r *Repository) purchaseMovements(ctx context.Context, skuID string) ([]Movement, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, order_no, order_date, line_items FROM purchase_orders WHERE `+lineMatch, skuID)
	if err != nil {
		return nil, fmt.Errorf("ledger: purchase movements: %w", err)
	}
	defer rows.Close()
	var out []Movement
	for rows.Next() {
		var id, orderNo string
		var date time.Time
		var rawLines []byte
		if err := rows.Scan(&id, &orderNo, &date, &rawLines); err != nil {
			return nil, err
		}
		var lines []orderLine
		if err := json.Unmarshal(rawLines, &lines); err != nil {
			continue
		}
		for _, line := range lines {
			if line.SKU.ID() != skuID {
				continue
			}
			cost := line.Cost
			if cost == 0 {
				cost = line.Price
			}
			out = append(out, Movement{
				Date:      date,
				Type:      MovementPurchase,
				Reference: orderNo,
				Link:      "/purchase-orders/" + id,
				LotNumber: line.LotNumber,
				Qty:       line.Qty,
				UOM:       line.UOM,
				Cost:      cost,
			})
		}
	}
	return out, rows.Err()
}

func (r *Repository) manufacturingMovements(ctx context.Context, skuID string) ([]Movement, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, job_no, label, job_date, sku, lot_number, qty, total_cost, line_items FROM manufacturing_jobs WHERE `+skuMatch+` OR `+lineMatch, skuID)
	if err != nil {
		return nil, fmt.Errorf("ledger: manufacturing movements: %w", err)
	}
	defer rows.Close()
	var out []Movement
	for rows.Next() {
		var id, jobNo, label, lot string
		var date time.Time
		var qty, totalCost float64
		var rawSKU, rawLines []byte
		if err := rows.Scan(&id, &jobNo, &label, &date, &rawSKU, &lot, &qty, &totalCost, &rawLines); err != nil {
			return nil, err
		}

		var sku costing.Reference
		_ = json.Unmarshal(rawSKU, &sku)
		if sku.ID() == skuID {
			output := costing.ProductionOutput{SKU: sku, LotNumber: lot, Label: label, Qty: qty, TotalCost: totalCost}
			out = append(out, Movement{
				Date:      date,
				Type:      MovementProduction,
				Reference: jobNo,
				Link:      "/manufacturing-orders/" + id,
				LotNumber: output.Lot(),
				Qty:       qty,
				Cost:      output.UnitCost(),
			})
		}

		var lines []manufacturing.LineItem
		if err := json.Unmarshal(rawLines, &lines); err != nil {
			continue
		}
		for _, line := range lines {
			if line.SKU.ID() != skuID {
				continue
			}
			consumed := manufacturing.ComputeLineCost(line, qty).TotalQty
			out = append(out, Movement{
				Date:      date,
				Type:      MovementConsumption,
				Reference: jobNo,
				Link:      "/manufacturing-orders/" + id,
				LotNumber: line.LotNumber,
				Qty:       -consumed,
				UOM:       line.UOM,
				Cost:      line.Cost,
			})
		}
	}
	return out, rows.Err()
}

func (r *Repository) orderMovements(ctx context.Context, skuID, table string, mtype MovementType, linkPrefix string) ([]Movement, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, order_no, order_date, line_items FROM `+table+` WHERE `+lineMatch, skuID)
	if err != nil {
		return nil, fmt.Errorf("ledger: %s movements: %w", table, err)
	}
	defer rows.Close()
	var out []Movement
	for rows.Next() {
		var id, orderNo string
		var date time.Time
		var rawLines []byte
		if err := rows.Scan(&id, &orderNo, &date, &rawLines); err != nil {
			return nil, err
		}
		var lines []orderLine
		if err := json.Unmarshal(rawLines, &lines); err != nil {
			continue
		}
		for _, line := range lines {
			if line.SKU.ID() != skuID {
				continue
			}
			out = append(out, Movement{
				Date:      date,
				Type:      mtype,
				Reference: orderNo,
				Link:      linkPrefix + id,
				LotNumber: line.LotNumber,
				Qty:       -line.Qty,
				UOM:       line.UOM,
				Cost:      line.Cost,
			})
		}
	}
	return out, rows.Err()
}

func (r *Repository) auditMovements(ctx context.Context, skuID string) ([]Movement, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, adj_no, adj_date, lot_number, qty, cost FROM audit_adjustments WHERE `+skuMatch, skuID)
	if err != nil {
		return nil, fmt.Errorf("ledger: audit movements: %w", err)
	}
	defer rows.Close()
	var out []Movement
	for rows.Next() {
		var id, adjNo, lot string
		var date time.Time
		var qty, cost float64
		if err := rows.Scan(&id, &adjNo, &date, &lot, &qty, &cost); err != nil {
			return nil, err
		}
		out = append(out, Movement{
			Date:      date,
			Type:      MovementAudit,
			Reference: adjNo,
			Link:      "/audit-adjustments/" + id,
			LotNumber: lot,
			Qty:       qty,
			Cost:      cost,
		})
	}
	return out, rows.Err()
}

func (r *Repository) purchaseLines(ctx context.Context, skuID string) ([]costing.PurchaseLine, error) {
	rows, err := r.pool.Query(ctx, `SELECT line_items FROM purchase_orders WHERE `+lineMatch, skuID)
	if err != nil {
		return nil, fmt.Errorf("ledger: purchase lines: %w", err)
	}
	defer rows.Close()
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
			if line.SKU.ID() == skuID {
				out = append(out, line)
			}
		}
	}
	return out, rows.Err()
}

func (r *Repository) productionOutputs(ctx context.Context, skuID string) ([]costing.ProductionOutput, error) {
	rows, err := r.pool.Query(ctx, `SELECT sku, lot_number, label, qty, total_cost FROM manufacturing_jobs WHERE `+skuMatch, skuID)
	if err != nil {
		return nil, fmt.Errorf("ledger: production outputs: %w", err)
	}
	defer rows.Close()
	var out []costing.ProductionOutput
	for rows.Next() {
		var raw []byte
		var rec costing.ProductionOutput
		if err := rows.Scan(&raw, &rec.LotNumber, &rec.Label, &rec.Qty, &rec.TotalCost); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(raw, &rec.SKU); err != nil {
			continue
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
