package ledger

import (
	"errors"
	"time"
)

// MovementType enumerates the sources an inventory movement can originate
// from. The sign convention lives on the movement quantity itself, not on
// the type.
type MovementType string

const (
	// MovementOpening is a manually entered starting balance.
	MovementOpening MovementType = "opening"
	// MovementPurchase is a received purchase-order line.
	MovementPurchase MovementType = "purchase"
	// MovementProduction is finished output of a manufacturing job.
	MovementProduction MovementType = "production"
	// MovementConsumption is ingredient usage by a manufacturing job.
	MovementConsumption MovementType = "consumption"
	// MovementSale is a sale-order shipment.
	MovementSale MovementType = "sale"
	// MovementWeb is a web-storefront order shipment.
	MovementWeb MovementType = "web"
	// MovementAudit is a signed manual correction.
	MovementAudit MovementType = "audit"
)

// Movement is one signed quantity event against a (sku, lot). Movements are
// immutable once recorded; views over them are rebuilt by sorting, never by
// mutating in place.
type Movement struct {
	Date      time.Time    `json:"date"`
	Type      MovementType `json:"type"`
	Reference string       `json:"reference"`
	Link      string       `json:"link"`
	LotNumber string       `json:"lotNumber"`
	Qty       float64      `json:"quantity"`
	UOM       string       `json:"uom"`
	Cost      float64      `json:"cost"`
	// Balance is the whole-SKU running balance as stored. It is only valid
	// for the unfiltered view; per-lot views recompute it.
	Balance float64 `json:"balance"`
}

// Transaction is a ledger row as served to clients.
type Transaction struct {
	Date      time.Time    `json:"date"`
	Type      MovementType `json:"type"`
	Reference string       `json:"reference"`
	LotNumber string       `json:"lotNumber"`
	Quantity  float64      `json:"quantity"`
	UOM       string       `json:"uom"`
	Balance   float64      `json:"balance"`
	Cost      float64      `json:"cost"`
	Link      string       `json:"link"`
}

// LotSummary aggregates the position of one lot.
type LotSummary struct {
	LotNumber string       `json:"lotNumber"`
	Source    MovementType `json:"source"`
	Date      time.Time    `json:"date"`
	Cost      float64      `json:"cost"`
	Balance   float64      `json:"balance"`
}

// Result is the JSON-serialisable ledger view.
type Result struct {
	Transactions []Transaction `json:"transactions"`
	Lots         []LotSummary  `json:"lots"`
}

// SortOrder selects transaction ordering.
type SortOrder string

const (
	// SortAsc orders transactions oldest first.
	SortAsc SortOrder = "asc"
	// SortDesc orders transactions newest first.
	SortDesc SortOrder = "desc"
)

// Options filters and orders the ledger view. All active filters intersect.
type Options struct {
	// Lot restricts the view to a single lot number and switches running
	// balances to a per-lot recomputation.
	Lot string
	// From is the inclusive start of the date range.
	From time.Time
	// To is the inclusive end of the date range; callers pass end of day.
	To time.Time
	// Exclude removes movement types from the view.
	Exclude []MovementType
	// MissingLot keeps only movements without a lot number.
	MissingLot bool
	// MissingCost keeps only movements without a positive cost.
	MissingCost bool
	Order       SortOrder
	// Visible caps the transaction list to the first N rows of the sorted
	// result. The window only ever grows within a scroll session; zero
	// means no cap.
	Visible int
}

// ErrSKURequired indicates a ledger query without a SKU.
var ErrSKURequired = errors.New("ledger: sku required")
