package adslot

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/shoplink/shoplink-api/internal/domain/credit"
	"github.com/shoplink/shoplink-api/internal/domain/ledger"
	"github.com/shoplink/shoplink-api/internal/domain/merchant"
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

type acquireRequest struct {
	Slot    string    `json:"slot" validate:"required,ad_slot"`
	StartAt time.Time `json:"start_at" validate:"required"`
	EndAt   time.Time `json:"end_at" validate:"required"`
}

func (h *Handler) Acquire(w http.ResponseWriter, r *http.Request) {
	owner := middleware.GetOwner(r.Context())
	if owner.Type != ledger.OwnerMerchant {
		response.Forbidden(w, "only merchants can acquire ad slots")
		return
	}

	var req acquireRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if details := validator.Validate(req); details != nil {
		response.ValidationError(w, details)
		return
	}

	grant, err := h.svc.TryAcquire(r.Context(), Slot(req.Slot), owner.ID, req.StartAt, req.EndAt)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidSlot):
			response.BadRequest(w, "invalid slot")
		case errors.Is(err, ErrInvalidPeriod):
			response.BadRequest(w, "end_at must be after start_at and in the future")
		case errors.Is(err, ErrSlotConflict):
			response.Conflict(w, "slot is occupied or grant ceiling reached")
		case errors.Is(err, credit.ErrInsufficientCredits):
			response.Conflict(w, "insufficient paid_ad credits")
		case errors.Is(err, merchant.ErrMerchantNotFound):
			response.NotFound(w, "merchant not found")
		default:
			response.InternalError(w)
		}
		return
	}

	response.Created(w, grant)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "grantID"))
	if err != nil {
		response.BadRequest(w, "invalid grant id")
		return
	}

	grant, err := h.svc.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrUnknownGrant) {
			response.NotFound(w, "grant not found")
			return
		}
		response.InternalError(w)
		return
	}
	response.OK(w, grant)
}

// Occupied lists held slots; merchants with an introducing admin see that
// admin's scope, everyone else the global view.
func (h *Handler) Occupied(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.parseScope(w, r)
	if !ok {
		return
	}
	slots, err := h.svc.ListOccupied(r.Context(), scope)
	if err != nil {
		response.InternalError(w)
		return
	}
	response.OK(w, map[string]interface{}{"occupied": slots})
}

func (h *Handler) Available(w http.ResponseWriter, r *http.Request) {
	scope, ok := h.parseScope(w, r)
	if !ok {
		return
	}
	slots, err := h.svc.ListAvailable(r.Context(), scope)
	if err != nil {
		response.InternalError(w)
		return
	}
	response.OK(w, map[string]interface{}{"available": slots})
}

func (h *Handler) parseScope(w http.ResponseWriter, r *http.Request) (*uuid.UUID, bool) {
	raw := r.URL.Query().Get("admin_id")
	if raw == "" {
		return nil, true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		response.BadRequest(w, "invalid admin_id")
		return nil, false
	}
	return &id, true
}

func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	owner := middleware.GetOwner(r.Context())
	if owner.Type != ledger.OwnerMerchant {
		response.Forbidden(w, "only merchants hold ad grants")
		return
	}

	grants, err := h.svc.ListByMerchant(r.Context(), owner.ID)
	if err != nil {
		response.InternalError(w)
		return
	}
	response.OK(w, grants)
}

func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)

	r.Get("/occupied", h.Occupied)
	r.Get("/available", h.Available)
	r.Get("/grants", h.ListMine)
	r.Get("/grants/{grantID}", h.Get)
	r.Post("/grants", h.Acquire)

	return r
}
