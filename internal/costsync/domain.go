package costsync

import (
	"time"

	"github.com/meridian-erp/meridian-erp/internal/costing"
)

// DefaultEpsilon is the cost-comparison tolerance. Preserved exactly for
// compatibility with historic data; tunable via configuration.
const DefaultEpsilon = 0.001

// DefaultBatchLimit is the sale-order page size for one sync batch.
const DefaultBatchLimit = 500

// LineItem is an embedded sale-order line as read from storage.
type LineItem struct {
	ID        string            `json:"_id"`
	SKU       costing.Reference `json:"sku"`
	LotNumber string            `json:"lotNumber"`
	Qty       float64           `json:"qty"`
	Cost      float64           `json:"cost"`
}

// SaleOrder is the read model of one order document.
type SaleOrder struct {
	ID        string
	OrderNo   string
	LineItems []LineItem
}

// UpdateOp is one line-item cost correction addressed by (order, line).
type UpdateOp struct {
	OrderID    string
	LineItemID string
	Cost       float64
}

// BatchResult reports one batch of sync work. Updated can be lower than Ops
// when a concurrent writer already applied an equivalent value or removed
// the target order; the batch is still considered successful because reruns
// reconverge.
type BatchResult struct {
	Processed int `json:"processed"`
	Ops       int `json:"ops"`
	Updated   int `json:"updated"`
}

// RunProgress is the checkpoint record of a sync run.
type RunProgress struct {
	RunID      string    `json:"runId"`
	LastSkip   int       `json:"lastSkip"`
	Limit      int       `json:"limit"`
	Processed  int       `json:"processed"`
	Ops        int       `json:"ops"`
	Updated    int       `json:"updated"`
	Done       bool      `json:"done"`
	FailedWith string    `json:"failedWith,omitempty"`
	UpdatedAt  time.Time `json:"updatedAt"`
}
