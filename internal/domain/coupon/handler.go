package coupon

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/shoplink/shoplink-api/internal/domain/credit"
	"github.com/shoplink/shoplink-api/internal/domain/ledger"
	"github.com/shoplink/shoplink-api/internal/middleware"
	"github.com/shoplink/shoplink-api/internal/pkg/response"
	"github.com/shoplink/shoplink-api/internal/pkg/validator"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type createBatchRequest struct {
	Quantity int64     `json:"quantity" validate:"required,gt=0"`
	StartAt  time.Time `json:"start_at" validate:"required"`
	EndAt    time.Time `json:"end_at" validate:"required"`
}

type issueRequest struct {
	Code     string `json:"code" validate:"required"`
	IssuedTo string `json:"issued_to" validate:"required"`
}

func (h *Handler) CreateBatch(w http.ResponseWriter, r *http.Request) {
	owner := middleware.GetOwner(r.Context())
	if owner.Type != ledger.OwnerMerchant {
		response.Forbidden(w, "only merchants can create coupon batches")
		return
	}

	var req createBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if details := validator.Validate(req); details != nil {
		response.ValidationError(w, details)
		return
	}

	batch, err := h.svc.CreateBatch(r.Context(), owner.ID, req.Quantity, req.StartAt, req.EndAt)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidQuantity):
			response.BadRequest(w, "quantity must be greater than zero")
		case errors.Is(err, ErrInvalidPeriod):
			response.BadRequest(w, "end_at must be after start_at and in the future")
		case errors.Is(err, credit.ErrInsufficientCredits):
			response.Conflict(w, "insufficient coupon credits")
		default:
			response.InternalError(w)
		}
		return
	}

	response.Created(w, batch)
}

func (h *Handler) GetBatch(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "batchID"))
	if err != nil {
		response.BadRequest(w, "invalid batch id")
		return
	}

	batch, err := h.svc.GetBatch(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrBatchNotFound) {
			response.NotFound(w, "batch not found")
			return
		}
		response.InternalError(w)
		return
	}
	response.OK(w, batch)
}

func (h *Handler) CancelBatch(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "batchID"))
	if err != nil {
		response.BadRequest(w, "invalid batch id")
		return
	}

	if err := h.svc.Cancel(r.Context(), id); err != nil {
		switch {
		case errors.Is(err, ErrBatchNotFound):
			response.NotFound(w, "batch not found")
		case errors.Is(err, ErrBatchNotActive):
			response.Conflict(w, "batch is not active")
		default:
			response.InternalError(w)
		}
		return
	}
	response.NoContent(w)
}

func (h *Handler) ListBatches(w http.ResponseWriter, r *http.Request) {
	owner := middleware.GetOwner(r.Context())
	if owner.Type != ledger.OwnerMerchant {
		response.Forbidden(w, "only merchants hold coupon batches")
		return
	}

	batches, err := h.svc.ListBatches(r.Context(), owner.ID)
	if err != nil {
		response.InternalError(w)
		return
	}
	response.OK(w, batches)
}

func (h *Handler) ListUnits(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "batchID"))
	if err != nil {
		response.BadRequest(w, "invalid batch id")
		return
	}

	units, err := h.svc.ListUnits(r.Context(), id)
	if err != nil {
		response.InternalError(w)
		return
	}
	response.OK(w, units)
}

func (h *Handler) Issue(w http.ResponseWriter, r *http.Request) {
	var req issueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if details := validator.Validate(req); details != nil {
		response.ValidationError(w, details)
		return
	}

	unit, err := h.svc.Issue(r.Context(), req.Code, req.IssuedTo)
	if err != nil {
		switch {
		case errors.Is(err, ErrUnitNotFound):
			response.NotFound(w, "coupon not found")
		case errors.Is(err, ErrBatchNotActive):
			response.Conflict(w, "batch is not active or outside its window")
		case errors.Is(err, ErrUnitNotIssuable):
			response.Conflict(w, "coupon already issued or expired")
		default:
			response.InternalError(w)
		}
		return
	}
	response.OK(w, unit)
}

func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)

	r.Post("/batches", h.CreateBatch)
	r.Get("/batches", h.ListBatches)
	r.Get("/batches/{batchID}", h.GetBatch)
	r.Delete("/batches/{batchID}", h.CancelBatch)
	r.Get("/batches/{batchID}/units", h.ListUnits)
	r.Post("/issue", h.Issue)

	return r
}
