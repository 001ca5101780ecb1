package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian-erp/internal/costing"
)

func day(d int) time.Time {
	return time.Date(2025, time.March, d, 0, 0, 0, 0, time.UTC)
}

func sampleMovements() []Movement {
	return []Movement{
		{Date: day(1), Type: MovementOpening, LotNumber: "L1", Qty: 10, Cost: 2.0, Balance: 10},
		{Date: day(2), Type: MovementPurchase, LotNumber: "L2", Qty: 5, Cost: 3.5, Balance: 15},
		{Date: day(3), Type: MovementSale, LotNumber: "L1", Qty: -4, Cost: 2.0, Balance: 11},
		{Date: day(4), Type: MovementSale, LotNumber: "L2", Qty: -5, Cost: 3.5, Balance: 6},
		{Date: day(5), Type: MovementAudit, LotNumber: "L1", Qty: -2, Cost: 2.0, Balance: 4},
	}
}

func sampleCosts() map[costing.LotKey]float64 {
	return map[costing.LotKey]float64{
		{SKUID: "sku-1", LotNumber: "L1"}: 2.0,
		{SKUID: "sku-1", LotNumber: "L2"}: 3.5,
	}
}

func TestBuildRequiresSKU(t *testing.T) {
	_, err := Build("  ", nil, nil, Options{})
	require.ErrorIs(t, err, ErrSKURequired)
}

func TestBuildAllLotsKeepsStoredBalances(t *testing.T) {
	res, err := Build("sku-1", sampleMovements(), sampleCosts(), Options{Order: SortAsc})
	require.NoError(t, err)
	require.Len(t, res.Transactions, 5)
	require.InDelta(t, 10, res.Transactions[0].Balance, 0.0001)
	require.InDelta(t, 4, res.Transactions[4].Balance, 0.0001)
}

func TestBuildSingleLotRecomputesBalances(t *testing.T) {
	res, err := Build("sku-1", sampleMovements(), sampleCosts(), Options{Lot: "L1", Order: SortAsc})
	require.NoError(t, err)
	require.Len(t, res.Transactions, 3)
	// Stored balances reflect the whole SKU; the per-lot view must be the
	// cumulative sum of the lot's own quantities.
	require.InDelta(t, 10, res.Transactions[0].Balance, 0.0001)
	require.InDelta(t, 6, res.Transactions[1].Balance, 0.0001)
	require.InDelta(t, 4, res.Transactions[2].Balance, 0.0001)
}

func TestBuildDescendingOrder(t *testing.T) {
	res, err := Build("sku-1", sampleMovements(), sampleCosts(), Options{Lot: "L1", Order: SortDesc})
	require.NoError(t, err)
	require.Len(t, res.Transactions, 3)
	// Balances are computed chronologically before reversal.
	require.InDelta(t, 4, res.Transactions[0].Balance, 0.0001)
	require.InDelta(t, 10, res.Transactions[2].Balance, 0.0001)
}

func TestBuildExcludesZeroBalanceLots(t *testing.T) {
	res, err := Build("sku-1", sampleMovements(), sampleCosts(), Options{})
	require.NoError(t, err)
	require.Len(t, res.Lots, 1)
	require.Equal(t, "L1", res.Lots[0].LotNumber)
	require.Equal(t, MovementOpening, res.Lots[0].Source)
	require.InDelta(t, 2.0, res.Lots[0].Cost, 0.0001)
	require.InDelta(t, 4, res.Lots[0].Balance, 0.0001)
}

func TestBuildFiltersIntersect(t *testing.T) {
	res, err := Build("sku-1", sampleMovements(), sampleCosts(), Options{
		From:    day(2),
		To:      day(4).Add(24*time.Hour - time.Nanosecond),
		Exclude: []MovementType{MovementPurchase},
	})
	require.NoError(t, err)
	require.Len(t, res.Transactions, 2)
	require.Equal(t, MovementSale, res.Transactions[0].Type)
	require.Equal(t, MovementSale, res.Transactions[1].Type)
}

func TestBuildMissingLotAndCostPredicates(t *testing.T) {
	movements := append(sampleMovements(),
		Movement{Date: day(6), Type: MovementPurchase, LotNumber: "", Qty: 3, Cost: 0},
		Movement{Date: day(7), Type: MovementPurchase, LotNumber: "L3", Qty: 3, Cost: 0},
	)
	res, err := Build("sku-1", movements, sampleCosts(), Options{MissingLot: true})
	require.NoError(t, err)
	require.Len(t, res.Transactions, 1)
	require.Equal(t, day(6), res.Transactions[0].Date)

	res, err = Build("sku-1", movements, sampleCosts(), Options{MissingCost: true})
	require.NoError(t, err)
	require.Len(t, res.Transactions, 2)

	// Cost present and > 0 counts as having cost; both predicates intersect.
	res, err = Build("sku-1", movements, sampleCosts(), Options{MissingLot: true, MissingCost: true})
	require.NoError(t, err)
	require.Len(t, res.Transactions, 1)
}

func TestBuildVisibleWindow(t *testing.T) {
	res, err := Build("sku-1", sampleMovements(), sampleCosts(), Options{Visible: 2})
	require.NoError(t, err)
	require.Len(t, res.Transactions, 2)

	wider, err := Build("sku-1", sampleMovements(), sampleCosts(), Options{Visible: 4})
	require.NoError(t, err)
	require.Len(t, wider.Transactions, 4)
	// Growing the window never reorders rows already shown.
	require.Equal(t, res.Transactions, wider.Transactions[:2])
}

func TestBuildUnsortedInput(t *testing.T) {
	movements := sampleMovements()
	movements[0], movements[3] = movements[3], movements[0]
	res, err := Build("sku-1", movements, sampleCosts(), Options{Lot: "L2"})
	require.NoError(t, err)
	require.Len(t, res.Transactions, 2)
	require.InDelta(t, 5, res.Transactions[0].Balance, 0.0001)
	require.InDelta(t, 0, res.Transactions[1].Balance, 0.0001)
}
