package admin

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/shoplink/shoplink-api/internal/domain/ledger"
	"github.com/shoplink/shoplink-api/internal/middleware"
	"github.com/shoplink/shoplink-api/internal/pkg/response"
	"github.com/shoplink/shoplink-api/internal/pkg/validator"
)

type Handler struct {
	svc     *Service
	entries *ledger.Repository
}

func NewHandler(svc *Service, entries *ledger.Repository) *Handler {
	return &Handler{svc: svc, entries: entries}
}

type createRequest struct {
	Name  string `json:"name" validate:"required,min=2,max=200"`
	Email string `json:"email" validate:"required,email"`
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

	a, err := h.svc.Create(r.Context(), req.Name, req.Email)
	if err != nil {
		response.InternalError(w)
		return
	}
	response.Created(w, a)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "adminID"))
	if err != nil {
		response.BadRequest(w, "invalid admin id")
		return
	}

	a, err := h.svc.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrAdminNotFound) {
			response.NotFound(w, "admin not found")
			return
		}
		response.InternalError(w)
		return
	}
	response.OK(w, a)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)
	admins, err := h.svc.List(r.Context(), limit, offset)
	if err != nil {
		response.InternalError(w)
		return
	}
	response.OK(w, admins)
}

// Earnings returns the calling admin's commission income.
func (h *Handler) Earnings(w http.ResponseWriter, r *http.Request) {
	owner := middleware.GetOwner(r.Context())
	if owner.Type != ledger.OwnerAdmin {
		response.Forbidden(w, "only admins have earnings")
		return
	}

	earnings, err := h.svc.Earnings(r.Context(), owner.ID)
	if err != nil {
		if errors.Is(err, ErrAdminNotFound) {
			response.NotFound(w, "admin not found")
			return
		}
		response.InternalError(w)
		return
	}
	response.OK(w, earnings)
}

// SearchLedger is the operator's filtered view over the full ledger.
func (h *Handler) SearchLedger(w http.ResponseWriter, r *http.Request) {
	filters, err := parseSearchFilters(r)
	if err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	entries, err := h.entries.Search(r.Context(), filters)
	if err != nil {
		response.InternalError(w)
		return
	}
	response.OK(w, entries)
}

func parseSearchFilters(r *http.Request) (ledger.SearchFilters, error) {
	var filters ledger.SearchFilters
	q := r.URL.Query()

	if raw := q.Get("owner_type"); raw != "" {
		t := ledger.OwnerType(raw)
		if !t.Valid() {
			return filters, errors.New("invalid owner_type")
		}
		filters.OwnerType = &t
	}
	if raw := q.Get("owner_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return filters, errors.New("invalid owner_id")
		}
		filters.OwnerID = &id
	}
	if raw := q.Get("credit_type"); raw != "" {
		ct := ledger.CreditType(raw)
		if !ct.Valid() {
			return filters, errors.New("invalid credit_type")
		}
		filters.CreditType = &ct
	}
	if raw := q.Get("action"); raw != "" {
		a := ledger.Action(raw)
		filters.Action = &a
	}
	if raw := q.Get("date_from"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return filters, errors.New("invalid date_from")
		}
		filters.DateFrom = &t
	}
	if raw := q.Get("date_to"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return filters, errors.New("invalid date_to")
		}
		filters.DateTo = &t
	}
	filters.Limit, filters.Offset = parsePagination(r)

	return filters, nil
}

func parsePagination(r *http.Request) (limit, offset int) {
	limit = 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 && v <= 500 {
			limit = v
		}
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v >= 0 {
			offset = v
		}
	}
	return limit, offset
}

func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)

	r.Get("/earnings", h.Earnings)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequirePlatform())
		r.Post("/", h.Create)
		r.Get("/", h.List)
		r.Get("/{adminID}", h.Get)
		r.Get("/ledger", h.SearchLedger)
	})

	return r
}
