package category

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/hearthledger/hearthledger/internal/budget"
	"github.com/hearthledger/hearthledger/internal/platform/httpx"
)

// Handler manages category endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers category routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.get)
	r.Patch("/{id}", h.update)
	r.Delete("/{id}", h.delete)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	householdID, ok := h.householdParam(w, r)
	if !ok {
		return
	}
	categories, err := h.service.List(r.Context(), householdID)
	if err != nil {
		h.respondError(w, "list categories", err)
		return
	}
	if categories == nil {
		categories = []Category{}
	}
	httpx.JSON(w, http.StatusOK, categories)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	householdID, ok := h.householdParam(w, r)
	if !ok {
		return
	}
	id, ok := h.idParam(w, r)
	if !ok {
		return
	}
	cat, err := h.service.Get(r.Context(), householdID, id)
	if err != nil {
		h.respondError(w, "get category", err)
		return
	}
	httpx.JSON(w, http.StatusOK, cat)
}

type createRequest struct {
	HouseholdID  uuid.UUID  `json:"household_id" validate:"required"`
	Name         string     `json:"name" validate:"required,max=80"`
	Type         string     `json:"type" validate:"required,oneof=income expense"`
	ParentID     *uuid.UUID `json:"parent_id"`
	IsRollover   bool       `json:"is_rollover"`
	IsFlexBudget bool       `json:"is_flex_budget"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	created, err := h.service.Create(r.Context(), CreateInput{
		HouseholdID:  req.HouseholdID,
		Name:         req.Name,
		Type:         budget.CategoryType(req.Type),
		ParentID:     req.ParentID,
		IsRollover:   req.IsRollover,
		IsFlexBudget: req.IsFlexBudget,
	})
	if err != nil {
		h.respondError(w, "create category", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

type updateRequest struct {
	Name         *string `json:"name" validate:"omitempty,max=80"`
	IsRollover   *bool   `json:"is_rollover"`
	IsFlexBudget *bool   `json:"is_flex_budget"`
	IsArchived   *bool   `json:"is_archived"`
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	householdID, ok := h.householdParam(w, r)
	if !ok {
		return
	}
	id, ok := h.idParam(w, r)
	if !ok {
		return
	}
	var req updateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	updated, err := h.service.Update(r.Context(), householdID, id, UpdateInput{
		Name:         req.Name,
		IsRollover:   req.IsRollover,
		IsFlexBudget: req.IsFlexBudget,
		IsArchived:   req.IsArchived,
	})
	if err != nil {
		h.respondError(w, "update category", err)
		return
	}
	httpx.JSON(w, http.StatusOK, updated)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	householdID, ok := h.householdParam(w, r)
	if !ok {
		return
	}
	id, ok := h.idParam(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), householdID, id); err != nil {
		h.respondError(w, "delete category", err)
		return
	}
	httpx.NoContent(w)
}

func (h *Handler) respondError(w http.ResponseWriter, action string, err error) {
	switch {
	case errors.Is(err, ErrNameTaken):
		httpx.Problem(w, http.StatusConflict, "Duplicate", err.Error())
	case errors.Is(err, ErrEmptyName), errors.Is(err, ErrDeepNesting), errors.Is(err, ErrParentTypeMix), errors.Is(err, ErrHasChildren):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		h.logger.Error(action, slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}

func (h *Handler) householdParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw := r.URL.Query().Get("household_id")
	if raw == "" {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "household_id is required")
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "household_id must be a UUID")
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) idParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "id must be a UUID")
		return uuid.Nil, false
	}
	return id, true
}
