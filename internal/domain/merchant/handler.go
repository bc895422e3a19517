package merchant

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/shoplink/shoplink-api/internal/domain/commission"
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

type createRequest struct {
	Name    string     `json:"name" validate:"required,min=2,max=200"`
	Tier    string     `json:"tier" validate:"required,tier"`
	AdminID *uuid.UUID `json:"admin_id"`
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if details := validator.Validate(req); details != nil {
		response.ValidationError(w, details)
		return
	}

	m, err := h.svc.Create(r.Context(), req.Name, commission.Tier(req.Tier), req.AdminID)
	if err != nil {
		if errors.Is(err, ErrInvalidTier) {
			response.BadRequest(w, "invalid tier")
			return
		}
		response.InternalError(w)
		return
	}
	response.Created(w, m)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "merchantID"))
	if err != nil {
		response.BadRequest(w, "invalid merchant id")
		return
	}

	m, err := h.svc.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrMerchantNotFound) {
			response.NotFound(w, "merchant not found")
			return
		}
		response.InternalError(w)
		return
	}
	response.OK(w, m)
}

func (h *Handler) Deactivate(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "merchantID"))
	if err != nil {
		response.BadRequest(w, "invalid merchant id")
		return
	}

	if err := h.svc.Deactivate(r.Context(), id); err != nil {
		if errors.Is(err, ErrMerchantNotFound) {
			response.NotFound(w, "merchant not found")
			return
		}
		response.InternalError(w)
		return
	}
	response.NoContent(w)
}

func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)
	r.Use(middleware.RequirePlatform())

	r.Post("/", h.Create)
	r.Get("/{merchantID}", h.Get)
	r.Delete("/{merchantID}", h.Deactivate)

	return r
}
