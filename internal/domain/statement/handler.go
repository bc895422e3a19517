package statement

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/shoplink/shoplink-api/internal/domain/ledger"
	"github.com/shoplink/shoplink-api/internal/middleware"
	"github.com/shoplink/shoplink-api/internal/pkg/response"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Mine returns the calling owner's statement for the requested window.
func (h *Handler) Mine(w http.ResponseWriter, r *http.Request) {
	owner := middleware.GetOwner(r.Context())
	if !owner.Type.Valid() {
		response.Unauthorized(w, "unauthorized")
		return
	}
	h.build(w, r, owner)
}

// ForOwner returns any owner's statement (operator surface).
func (h *Handler) ForOwner(w http.ResponseWriter, r *http.Request) {
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
	h.build(w, r, ledger.Owner{Type: ownerType, ID: ownerID})
}

// ArchiveOwner renders and stores an owner's statement CSV.
func (h *Handler) ArchiveOwner(w http.ResponseWriter, r *http.Request) {
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
	start, end, err := parseWindow(r)
	if err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	key, err := h.svc.Archive(r.Context(), ledger.Owner{Type: ownerType, ID: ownerID}, start, end)
	if err != nil {
		response.InternalError(w)
		return
	}
	response.Created(w, map[string]string{"key": key})
}

func (h *Handler) build(w http.ResponseWriter, r *http.Request, owner ledger.Owner) {
	start, end, err := parseWindow(r)
	if err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	st, err := h.svc.Build(r.Context(), owner, start, end)
	if err != nil {
		response.InternalError(w)
		return
	}
	response.OK(w, st)
}

// parseWindow reads start/end query params; absent, it defaults to the
// current calendar month.
func parseWindow(r *http.Request) (time.Time, time.Time, error) {
	q := r.URL.Query()
	now := time.Now().UTC()
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)

	if raw := q.Get("start"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return start, end, errors.New("invalid start")
		}
		start = t
	}
	if raw := q.Get("end"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return start, end, errors.New("invalid end")
		}
		end = t
	}
	if !end.After(start) {
		return start, end, errors.New("end must be after start")
	}
	return start, end, nil
}

func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)

	r.Get("/", h.Mine)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequirePlatform())
		r.Get("/owners/{ownerType}/{ownerID}", h.ForOwner)
		r.Post("/owners/{ownerType}/{ownerID}/archive", h.ArchiveOwner)
	})

	return r
}
