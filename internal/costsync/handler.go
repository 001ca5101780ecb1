package costsync

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
)

// Enqueuer submits a full sync run to the background queue.
type Enqueuer interface {
	EnqueueCostSync(ctx context.Context, runID string, batchSize int) error
}

// Handler wires the cost-sync HTTP endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	enqueuer  Enqueuer
	validator *validator.Validate
}

// NewHandler constructs Handler. The enqueuer may be nil when no queue is
// configured; the async trigger then responds 503.
func NewHandler(logger *slog.Logger, service *Service, enqueuer Enqueuer) *Handler {
	return &Handler{logger: logger, service: service, enqueuer: enqueuer, validator: validator.New()}
}

// MountRoutes registers cost-sync routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/sync", h.handleTrigger)
	r.Post("/sync/batch", h.handleBatch)
	r.Get("/sync/status", h.handleStatus)
}

type triggerRequest struct {
	BatchSize int `json:"batchSize" validate:"omitempty,min=1,max=2000"`
}

type batchRequest struct {
	Skip  int `json:"skip" validate:"min=0"`
	Limit int `json:"limit" validate:"omitempty,min=1,max=2000"`
}

func (h *Handler) handleTrigger(w http.ResponseWriter, r *http.Request) {
	if h.enqueuer == nil {
		httpx.Problem(w, http.StatusServiceUnavailable, "Queue Unavailable", "background queue is not configured")
		return
	}
	var req triggerRequest
	if r.ContentLength > 0 {
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
			return
		}
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if req.BatchSize == 0 {
		req.BatchSize = DefaultBatchLimit
	}

	runID := uuid.NewString()
	if err := h.enqueuer.EnqueueCostSync(r.Context(), runID, req.BatchSize); err != nil {
		h.logger.Error("enqueue cost sync", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	h.logger.Info("cost sync enqueued", slog.String("run_id", runID), slog.Int("batch_size", req.BatchSize))
	httpx.JSON(w, http.StatusAccepted, map[string]string{"runId": runID})
}

func (h *Handler) handleBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	result, err := h.service.SyncBatch(r.Context(), req.Skip, req.Limit)
	if err != nil {
		h.logger.Error("sync batch failed",
			slog.Int("skip", req.Skip),
			slog.Int("limit", req.Limit),
			slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	progress, ok, err := h.service.LastProgress(r.Context())
	if err != nil {
		h.logger.Error("read sync progress", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if !ok {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "no sync run recorded")
		return
	}
	httpx.JSON(w, http.StatusOK, progress)
}
