package costing

import "strings"

// LotKey identifies one lot of one SKU. Lot numbers are free text; they are
// trimmed but never case-normalised. A key with an empty lot number is
// invalid and excluded from indexing.
type LotKey struct {
	SKUID     string
	LotNumber string
}

// NewLotKey builds a LotKey from a SKU reference and a raw lot number.
func NewLotKey(sku Reference, lotNumber string) LotKey {
	return LotKey{SKUID: sku.ID(), LotNumber: strings.TrimSpace(lotNumber)}
}

// Valid reports whether the key can be indexed.
func (k LotKey) Valid() bool {
	return k.SKUID != "" && k.LotNumber != ""
}

// OpeningBalance is a manually entered starting inventory position.
type OpeningBalance struct {
	SKU       Reference `json:"sku"`
	LotNumber string    `json:"lotNumber"`
	Qty       float64   `json:"qty"`
	Cost      float64   `json:"cost"`
}

// PurchaseLine is a received purchase-order line. Cost is the landed unit
// cost when recorded; Price is the ordered unit price it falls back to.
type PurchaseLine struct {
	SKU       Reference `json:"sku"`
	LotNumber string    `json:"lotNumber"`
	Qty       float64   `json:"qty"`
	Cost      *float64  `json:"cost"`
	Price     float64   `json:"price"`
}

// UnitCost resolves the purchase unit cost: cost when present, else price,
// else zero.
func (l PurchaseLine) UnitCost() float64 {
	if l.Cost != nil {
		return *l.Cost
	}
	return l.Price
}

// ProductionOutput is a completed manufacturing run. Lot identity falls back
// to the job's display label when no explicit lot number was assigned.
type ProductionOutput struct {
	SKU       Reference `json:"sku"`
	LotNumber string    `json:"lotNumber"`
	Label     string    `json:"label"`
	Qty       float64   `json:"qty"`
	TotalCost float64   `json:"totalCost"`
}

// Lot returns the effective lot identity for the run.
func (p ProductionOutput) Lot() string {
	if strings.TrimSpace(p.LotNumber) != "" {
		return p.LotNumber
	}
	return p.Label
}

// UnitCost divides total run cost across output quantity, zero when the
// quantity is zero or missing.
func (p ProductionOutput) UnitCost() float64 {
	if p.Qty == 0 || p.TotalCost == 0 {
		return 0
	}
	return p.TotalCost / p.Qty
}

// AuditAdjustment is a manual inventory correction.
type AuditAdjustment struct {
	SKU       Reference `json:"sku"`
	LotNumber string    `json:"lotNumber"`
	Qty       float64   `json:"qty"`
	Cost      float64   `json:"cost"`
}

// Sources bundles the four independent ledgers a cost index is built from.
// The collections are never transactionally linked to each other; the index
// reconciles them by precedence instead.
type Sources struct {
	OpeningBalances   []OpeningBalance
	PurchaseLines     []PurchaseLine
	ProductionOutputs []ProductionOutput
	AuditAdjustments  []AuditAdjustment
}
