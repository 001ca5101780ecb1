package ledger

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
)

// Handler wires the ledger query endpoint.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers ledger routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/{skuID}/ledger", h.handleLedger)
}

func (h *Handler) handleLedger(w http.ResponseWriter, r *http.Request) {
	skuID := chi.URLParam(r, "skuID")
	opts, err := parseOptions(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Query", err.Error())
		return
	}

	result, err := h.service.GetLedger(r.Context(), skuID, opts)
	if err != nil {
		if errors.Is(err, ErrSKURequired) {
			httpx.Problem(w, http.StatusBadRequest, "Invalid Query", err.Error())
			return
		}
		h.logger.Error("ledger query failed", slog.String("sku_id", skuID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	h.logger.Info("ledger query",
		slog.String("sku_id", skuID),
		slog.Int("transactions", len(result.Transactions)),
		slog.Int("lots", len(result.Lots)))
	httpx.JSON(w, http.StatusOK, result)
}

func parseOptions(r *http.Request) (Options, error) {
	q := r.URL.Query()
	opts := Options{
		Lot:         q.Get("lot"),
		MissingLot:  q.Get("missingLot") == "true",
		MissingCost: q.Get("missingCost") == "true",
		Order:       SortAsc,
	}
	if q.Get("order") == string(SortDesc) {
		opts.Order = SortDesc
	}
	if from := q.Get("from"); from != "" {
		t, err := time.Parse("2006-01-02", from)
		if err != nil {
			return Options{}, errors.New("from must be YYYY-MM-DD")
		}
		opts.From = t
	}
	if to := q.Get("to"); to != "" {
		t, err := time.Parse("2006-01-02", to)
		if err != nil {
			return Options{}, errors.New("to must be YYYY-MM-DD")
		}
		// Inclusive end of day.
		opts.To = t.Add(24*time.Hour - time.Nanosecond)
	}
	for _, raw := range q["exclude"] {
		opts.Exclude = append(opts.Exclude, MovementType(raw))
	}
	if limit := q.Get("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n < 0 {
			return Options{}, errors.New("limit must be a non-negative integer")
		}
		opts.Visible = n
	}
	return opts, nil
}
