package ledger

import (
	"sort"
	"strings"

	"github.com/meridian-erp/meridian-erp/internal/costing"
)

// Build reconstructs the ledger view for one SKU from its movements and the
// resolved cost index. Movements arrive in storage order; the builder sorts
// them chronologically, derives lot positions from the full set, then
// filters and orders the transaction list per opts.
//
// Running balances: the unfiltered view trusts the stored whole-SKU balance
// on each movement. When a single-lot filter is active the stored balance
// reflects the whole-SKU position, not the lot's, so balances are recomputed
// from scratch as a running sum over that lot's movements.
func Build(skuID string, movements []Movement, costs map[costing.LotKey]float64, opts Options) (Result, error) {
	if strings.TrimSpace(skuID) == "" {
		return Result{}, ErrSKURequired
	}

	chrono := make([]Movement, len(movements))
	copy(chrono, movements)
	sort.SliceStable(chrono, func(i, j int) bool {
		return chrono[i].Date.Before(chrono[j].Date)
	})

	lots := summariseLots(skuID, chrono, costs)

	filtered := applyFilters(chrono, opts)

	singleLot := strings.TrimSpace(opts.Lot) != ""
	transactions := make([]Transaction, 0, len(filtered))
	running := 0.0
	for _, m := range filtered {
		balance := m.Balance
		if singleLot {
			running += m.Qty
			balance = running
		}
		transactions = append(transactions, Transaction{
			Date:      m.Date,
			Type:      m.Type,
			Reference: m.Reference,
			LotNumber: m.LotNumber,
			Quantity:  m.Qty,
			UOM:       m.UOM,
			Balance:   balance,
			Cost:      m.Cost,
			Link:      m.Link,
		})
	}

	if opts.Order == SortDesc {
		for i, j := 0, len(transactions)-1; i < j; i, j = i+1, j-1 {
			transactions[i], transactions[j] = transactions[j], transactions[i]
		}
	}

	if opts.Visible > 0 && opts.Visible < len(transactions) {
		transactions = transactions[:opts.Visible]
	}

	return Result{Transactions: transactions, Lots: lots}, nil
}

func applyFilters(movements []Movement, opts Options) []Movement {
	excluded := make(map[MovementType]struct{}, len(opts.Exclude))
	for _, t := range opts.Exclude {
		excluded[t] = struct{}{}
	}
	lot := strings.TrimSpace(opts.Lot)

	out := make([]Movement, 0, len(movements))
	for _, m := range movements {
		if _, skip := excluded[m.Type]; skip {
			continue
		}
		if lot != "" && strings.TrimSpace(m.LotNumber) != lot {
			continue
		}
		if !opts.From.IsZero() && m.Date.Before(opts.From) {
			continue
		}
		if !opts.To.IsZero() && m.Date.After(opts.To) {
			continue
		}
		if opts.MissingLot && strings.TrimSpace(m.LotNumber) != "" {
			continue
		}
		if opts.MissingCost && m.Cost > 0 {
			continue
		}
		out = append(out, m)
	}
	return out
}

// summariseLots folds the chronological movement list into per-lot
// positions. The originating source is the lot's first movement; lots whose
// net balance is exactly zero are omitted from the available view and only
// survive in the transaction history.
func summariseLots(skuID string, chrono []Movement, costs map[costing.LotKey]float64) []LotSummary {
	byLot := make(map[string]*LotSummary)
	order := make([]string, 0)
	for _, m := range chrono {
		lot := strings.TrimSpace(m.LotNumber)
		if lot == "" {
			continue
		}
		summary, ok := byLot[lot]
		if !ok {
			summary = &LotSummary{
				LotNumber: lot,
				Source:    m.Type,
				Date:      m.Date,
				Cost:      costs[costing.LotKey{SKUID: skuID, LotNumber: lot}],
			}
			byLot[lot] = summary
			order = append(order, lot)
		}
		summary.Balance += m.Qty
	}

	lots := make([]LotSummary, 0, len(order))
	for _, lot := range order {
		if byLot[lot].Balance == 0 {
			continue
		}
		lots = append(lots, *byLot[lot])
	}
	return lots
}
