package credit

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/shoplink/shoplink-api/internal/domain/ledger"
	"github.com/shoplink/shoplink-api/internal/middleware"
	"github.com/shoplink/shoplink-api/internal/pkg/response"
	"github.com/shoplink/shoplink-api/internal/pkg/validator"
)

type Handler struct {
	svc Coordinator
}

func NewHandler(svc Coordinator) *Handler {
	return &Handler{svc: svc}
}

type ownerRequest struct {
	OwnerType string    `json:"owner_type" validate:"required,owner_type"`
	OwnerID   uuid.UUID `json:"owner_id"`
}

func (o ownerRequest) owner() ledger.Owner {
	return ledger.Owner{Type: ledger.OwnerType(o.OwnerType), ID: o.OwnerID}
}

type purchaseRequest struct {
	ownerRequest
	CreditType string `json:"credit_type" validate:"required,credit_type"`
	Units      int64  `json:"units" validate:"required,gt=0"`
	UnitPrice  int64  `json:"unit_price" validate:"gte=0"`
}

type mutationRequest struct {
	ownerRequest
	CreditType        string     `json:"credit_type" validate:"required,credit_type"`
	Units             int64      `json:"units" validate:"required,gt=0"`
	RelatedEntityType string     `json:"related_entity_type"`
	RelatedEntityID   *uuid.UUID `json:"related_entity_id"`
	Reason            string     `json:"reason"`
}

type adjustRequest struct {
	ownerRequest
	CreditType string `json:"credit_type" validate:"required,credit_type"`
	Delta      int64  `json:"delta" validate:"required"`
	Reason     string `json:"reason" validate:"required"`
}

func (req *mutationRequest) related() *ledger.Related {
	if req.RelatedEntityType == "" || req.RelatedEntityID == nil {
		return nil
	}
	return &ledger.Related{EntityType: req.RelatedEntityType, EntityID: *req.RelatedEntityID}
}

func (h *Handler) Purchase(w http.ResponseWriter, r *http.Request) {
	var req purchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if details := validator.Validate(req); details != nil {
		response.ValidationError(w, details)
		return
	}

	entry, split, err := h.svc.Purchase(r.Context(), req.owner(), ledger.CreditType(req.CreditType), req.Units, req.UnitPrice)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.Created(w, map[string]interface{}{
		"entry":          entry,
		"admin_share":    split.AdminShare,
		"platform_share": split.PlatformShare,
	})
}

func (h *Handler) Deduct(w http.ResponseWriter, r *http.Request) {
	var req mutationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if details := validator.Validate(req); details != nil {
		response.ValidationError(w, details)
		return
	}

	entry, err := h.svc.Deduct(r.Context(), req.owner(), ledger.CreditType(req.CreditType), req.Units, req.related())
	if err != nil {
		h.writeError(w, err)
		return
	}
	response.OK(w, entry)
}

func (h *Handler) Refund(w http.ResponseWriter, r *http.Request) {
	var req mutationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if details := validator.Validate(req); details != nil {
		response.ValidationError(w, details)
		return
	}

	entry, err := h.svc.Refund(r.Context(), req.owner(), ledger.CreditType(req.CreditType), req.Units, req.related(), req.Reason)
	if err != nil {
		h.writeError(w, err)
		return
	}
	response.OK(w, entry)
}

func (h *Handler) Adjust(w http.ResponseWriter, r *http.Request) {
	var req adjustRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if details := validator.Validate(req); details != nil {
		response.ValidationError(w, details)
		return
	}

	entry, err := h.svc.Adjust(r.Context(), req.owner(), ledger.CreditType(req.CreditType), req.Delta, req.Reason)
	if err != nil {
		h.writeError(w, err)
		return
	}
	response.OK(w, entry)
}

// Balances returns every credit-type balance for the calling owner.
func (h *Handler) Balances(w http.ResponseWriter, r *http.Request) {
	owner := middleware.GetOwner(r.Context())
	if !owner.Type.Valid() {
		response.Unauthorized(w, "unauthorized")
		return
	}
	h.writeBalances(w, r, owner)
}

// OwnerBalances returns balances for an arbitrary owner (operator surface).
func (h *Handler) OwnerBalances(w http.ResponseWriter, r *http.Request) {
	ownerType := ledger.OwnerType(chi.URLParam(r, "ownerType"))
	if !ownerType.Valid() {
		response.BadRequest(w, "invalid owner type")
		return
	}
	ownerID, err := uuid.Parse(chi.URLParam(r, "ownerID"))
	if err != nil {
		response.BadRequest(w, "invalid owner id")
		return
	}
	h.writeBalances(w, r, ledger.Owner{Type: ownerType, ID: ownerID})
}

func (h *Handler) writeBalances(w http.ResponseWriter, r *http.Request, owner ledger.Owner) {
	balances, err := h.svc.Balances(r.Context(), owner)
	if err != nil {
		h.writeError(w, err)
		return
	}
	response.OK(w, map[string]interface{}{"owner": owner, "balances": balances})
}

// Check is the read-only sufficiency pre-check.
func (h *Handler) Check(w http.ResponseWriter, r *http.Request) {
	owner := middleware.GetOwner(r.Context())
	if !owner.Type.Valid() {
		response.Unauthorized(w, "unauthorized")
		return
	}

	creditType := ledger.CreditType(r.URL.Query().Get("credit_type"))
	if !creditType.Valid() {
		response.BadRequest(w, "invalid credit_type")
		return
	}
	units := int64(1)
	if raw := r.URL.Query().Get("units"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &units); err != nil || units <= 0 {
			response.BadRequest(w, "invalid units")
			return
		}
	}

	sufficient, available, err := h.svc.CheckCredits(r.Context(), owner, creditType, units)
	if err != nil {
		h.writeError(w, err)
		return
	}
	response.OK(w, map[string]interface{}{
		"sufficient": sufficient,
		"available":  available,
	})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidUnits):
		response.BadRequest(w, "units must be greater than zero")
	case errors.Is(err, ErrInsufficientCredits):
		response.Conflict(w, "insufficient credits")
	case errors.Is(err, ErrUnknownOwner):
		response.NotFound(w, "unknown owner")
	case errors.Is(err, ErrInactiveWallet):
		response.Conflict(w, "wallet is inactive")
	default:
		response.InternalError(w)
	}
}

func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)

	r.Get("/balances", h.Balances)
	r.Get("/check", h.Check)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequirePlatform())
		r.Post("/purchase", h.Purchase)
		r.Post("/deduct", h.Deduct)
		r.Post("/refund", h.Refund)
		r.Post("/adjust", h.Adjust)
		r.Get("/owners/{ownerType}/{ownerID}/balances", h.OwnerBalances)
	})

	return r
}
