package manufacturing

import (
	"context"
	"errors"
)

// ErrOrderNotFound signals an unknown manufacturing order identifier.
var ErrOrderNotFound = errors.New("manufacturing order not found")

// RepositoryPort abstracts persistence for the costing service.
type RepositoryPort interface {
	LoadOrder(ctx context.Context, orderID string) (Order, error)
}

// LineBreakdown pairs a recipe line with its derived consumption figures.
type LineBreakdown struct {
	ID        string   `json:"_id"`
	SKUID     string   `json:"skuId"`
	SKUName   string   `json:"skuName,omitempty"`
	Category  string   `json:"category,omitempty"`
	LotNumber string   `json:"lotNumber,omitempty"`
	UOM       string   `json:"uom,omitempty"`
	Cost      float64  `json:"cost"`
	Derived   LineCost `json:"derived"`
}

// OrderCosting is the full costing view of one manufacturing order.
type OrderCosting struct {
	OrderID   string           `json:"orderId"`
	JobNo     string           `json:"jobNo"`
	Qty       float64          `json:"qty"`
	LotNumber string           `json:"lotNumber,omitempty"`
	Lines     []LineBreakdown  `json:"lines"`
	Summary   OrderCostSummary `json:"summary"`
}

// Service exposes manufacturing order costing.
type Service struct {
	repo RepositoryPort
}

// NewService constructs Service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// GetOrderCosting loads an order and derives its per-line consumption and
// aggregated cost summary.
func (s *Service) GetOrderCosting(ctx context.Context, orderID string) (OrderCosting, error) {
	order, err := s.repo.LoadOrder(ctx, orderID)
	if err != nil {
		return OrderCosting{}, err
	}

	result := OrderCosting{
		OrderID:   order.ID,
		JobNo:     order.JobNo,
		Qty:       order.Qty,
		LotNumber: order.LotNumber,
		Lines:     make([]LineBreakdown, 0, len(order.LineItems)),
		Summary:   Summarize(order),
	}
	for _, line := range order.LineItems {
		result.Lines = append(result.Lines, LineBreakdown{
			ID:        line.ID,
			SKUID:     line.SKU.ID(),
			SKUName:   line.SKU.Name,
			Category:  line.Category,
			LotNumber: line.LotNumber,
			UOM:       line.UOM,
			Cost:      line.Cost,
			Derived:   ComputeLineCost(line, order.Qty),
		})
	}
	return result, nil
}
