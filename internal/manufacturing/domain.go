package manufacturing

import (
	"time"

	"github.com/meridian-erp/meridian-erp/internal/costing"
)

// LineItem is one BOM ingredient consumption record on a manufacturing
// order. RecipeQty is the per-unit recipe requirement; SA is the assay or
// yield percentage as entered (55.6 means 55.6%). Cost is the unit cost
// resolved from the ingredient's lot.
type LineItem struct {
	ID          string            `json:"_id"`
	SKU         costing.Reference `json:"sku"`
	Category    string            `json:"category"`
	LotNumber   string            `json:"lotNumber"`
	UOM         string            `json:"uom"`
	RecipeQty   float64           `json:"recipeQty"`
	SA          float64           `json:"sa"`
	QtyScrapped float64           `json:"qtyScrapped"`
	Cost        float64           `json:"cost"`
}

// LaborEntry records time spent on an order. Duration is entered as
// HH:MM:SS.
type LaborEntry struct {
	Description string  `json:"description"`
	Duration    string  `json:"duration"`
	HourlyRate  float64 `json:"hourlyRate"`
}

// Order is a manufacturing job with its embedded recipe and labor.
type Order struct {
	ID            string            `json:"_id"`
	JobNo         string            `json:"jobNo"`
	Label         string            `json:"label"`
	SKU           costing.Reference `json:"sku"`
	LotNumber     string            `json:"lotNumber"`
	Date          time.Time         `json:"date"`
	Qty           float64           `json:"qty"`
	QtyDifference float64           `json:"qtyDifference"`
	TotalCost     float64           `json:"totalCost"`
	LineItems     []LineItem        `json:"lineItems"`
	Labor         []LaborEntry      `json:"labor"`
}
