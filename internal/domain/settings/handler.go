package settings

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/shoplink/shoplink-api/internal/middleware"
	"github.com/shoplink/shoplink-api/internal/pkg/response"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type updateRequest struct {
	TemporaryCommissionPct decimal.Decimal `json:"temporary_commission_pct"`
	AnnualCommissionPct    decimal.Decimal `json:"annual_commission_pct"`
	AdGrantCeiling         int             `json:"ad_grant_ceiling"`
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	s, err := h.svc.Get(r.Context())
	if err != nil {
		response.InternalError(w)
		return
	}
	response.OK(w, s)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if req.AdGrantCeiling <= 0 {
		response.BadRequest(w, "ad_grant_ceiling must be greater than zero")
		return
	}

	upd := &Settings{
		TemporaryCommissionPct: req.TemporaryCommissionPct,
		AnnualCommissionPct:    req.AnnualCommissionPct,
		AdGrantCeiling:         req.AdGrantCeiling,
	}
	if err := h.svc.Update(r.Context(), upd); err != nil {
		if errors.Is(err, ErrInvalidRate) {
			response.BadRequest(w, "commission rates must be between 0 and 100")
			return
		}
		response.InternalError(w)
		return
	}
	response.OK(w, upd)
}

func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)
	r.Use(middleware.RequirePlatform())

	r.Get("/", h.Get)
	r.Put("/", h.Update)

	return r
}
