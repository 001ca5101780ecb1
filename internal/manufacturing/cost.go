package manufacturing

import (
	"strconv"
	"strings"
)

// LineCost holds the derived consumption quantities for one BOM line.
type LineCost struct {
	BOMQty   float64 `json:"bomQty"`
	QtyExtra float64 `json:"qtyExtra"`
	TotalQty float64 `json:"totalQty"`
	LineCost float64 `json:"lineCost"`
}

// ComputeLineCost derives actual consumed quantity and extended cost for one
// ingredient line of an order producing orderQty units.
//
// QtyExtra models yield loss: an assay of 55.6 says only 55.6% of sourced
// material becomes usable product, so the sourced quantity must exceed the
// nominal BOM quantity by the inverse of that ratio. The correction only
// applies when an assay percentage is declared; sa of zero or absent leaves
// QtyExtra at exactly zero.
func ComputeLineCost(line LineItem, orderQty float64) LineCost {
	bomQty := line.RecipeQty * orderQty
	extra := 0.0
	if line.SA > 0 {
		extra = bomQty/(line.SA/100) - bomQty
	}
	totalQty := bomQty + line.QtyScrapped + extra
	return LineCost{
		BOMQty:   bomQty,
		QtyExtra: extra,
		TotalQty: totalQty,
		LineCost: totalQty * line.Cost,
	}
}

// OrderCostSummary aggregates an order's cost by category.
type OrderCostSummary struct {
	MaterialCost  float64 `json:"materialCost"`
	PackagingCost float64 `json:"packagingCost"`
	LaborCost     float64 `json:"laborCost"`
	TotalCost     float64 `json:"totalCost"`
	PerUnitCost   float64 `json:"perUnitCost"`
}

// Summarize splits the order's consumption cost into material versus
// packaging, adds labor, and derives the per-unit cost. An ingredient counts
// as packaging when its category contains the token "packaging" in any
// case; everything else is material. The per-unit denominator is the
// produced quantity adjusted by the recorded difference, guarded so a zero
// or negative denominator yields zero instead of dividing.
func Summarize(order Order) OrderCostSummary {
	var summary OrderCostSummary
	for _, line := range order.LineItems {
		cost := ComputeLineCost(line, order.Qty).LineCost
		if strings.Contains(strings.ToLower(line.Category), "packaging") {
			summary.PackagingCost += cost
		} else {
			summary.MaterialCost += cost
		}
	}
	for _, entry := range order.Labor {
		summary.LaborCost += DurationHours(entry.Duration) * entry.HourlyRate
	}
	summary.TotalCost = summary.MaterialCost + summary.PackagingCost + summary.LaborCost
	if denom := order.Qty + order.QtyDifference; denom > 0 {
		summary.PerUnitCost = summary.TotalCost / denom
	}
	return summary
}

// DurationHours parses an HH:MM:SS duration into fractional hours.
// Malformed or empty input counts as zero time rather than failing the
// whole order summary.
func DurationHours(s string) float64 {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 3 {
		return 0
	}
	h, errH := strconv.Atoi(parts[0])
	m, errM := strconv.Atoi(parts[1])
	sec, errS := strconv.Atoi(parts[2])
	if errH != nil || errM != nil || errS != nil || h < 0 || m < 0 || sec < 0 {
		return 0
	}
	return float64(h) + float64(m)/60 + float64(sec)/3600
}
