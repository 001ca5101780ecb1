package manufacturing

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
)

// Handler wires the manufacturing costing endpoint.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers manufacturing routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/orders/{orderID}/costing", h.handleOrderCosting)
}

func (h *Handler) handleOrderCosting(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")
	costing, err := h.service.GetOrderCosting(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", "manufacturing order not found")
			return
		}
		h.logger.Error("order costing failed", slog.String("order_id", orderID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, costing)
}
