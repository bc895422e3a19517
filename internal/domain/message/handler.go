package message

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

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

type sendRequest struct {
	Kind    string `json:"kind" validate:"required"`
	Phone   string `json:"phone" validate:"required,e164"`
	Content string `json:"content" validate:"required,max=2000"`
}

func (h *Handler) Send(w http.ResponseWriter, r *http.Request) {
	owner := middleware.GetOwner(r.Context())
	if owner.Type != ledger.OwnerMerchant {
		response.Forbidden(w, "only merchants send billed messages")
		return
	}

	var req sendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if details := validator.Validate(req); details != nil {
		response.ValidationError(w, details)
		return
	}

	entry, err := h.svc.Send(r.Context(), owner.ID, Kind(req.Kind), req.Phone, req.Content)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidKind):
			response.BadRequest(w, "kind must be ui or bi")
		case errors.Is(err, credit.ErrInsufficientCredits):
			response.Conflict(w, "insufficient message credits")
		case errors.Is(err, ErrDeliveryFailed):
			response.Error(w, http.StatusBadGateway, "DELIVERY_FAILED", "message delivery failed")
		default:
			response.InternalError(w)
		}
		return
	}
	response.OK(w, entry)
}

func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)
	r.Post("/send", h.Send)
	return r
}
