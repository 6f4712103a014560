package household

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/hearthledger/hearthledger/internal/platform/httpx"
)

// Handler manages household endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers household routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.get)
	r.Patch("/{id}", h.update)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	households, err := h.service.List(r.Context())
	if err != nil {
		h.respondError(w, "list households", err)
		return
	}
	if households == nil {
		households = []Household{}
	}
	httpx.JSON(w, http.StatusOK, households)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r)
	if !ok {
		return
	}
	hh, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, "get household", err)
		return
	}
	httpx.JSON(w, http.StatusOK, hh)
}

type createRequest struct {
	Name               string `json:"name" validate:"required,max=120"`
	PeriodStartDay     int    `json:"period_start_day" validate:"omitempty,min=1,max=31"`
	FlexStrictChildren bool   `json:"flex_strict_children"`
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
		Name:               req.Name,
		PeriodStartDay:     req.PeriodStartDay,
		FlexStrictChildren: req.FlexStrictChildren,
	})
	if err != nil {
		h.respondError(w, "create household", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

type updateRequest struct {
	Name               *string `json:"name" validate:"omitempty,max=120"`
	PeriodStartDay     *int    `json:"period_start_day" validate:"omitempty,min=1,max=31"`
	FlexStrictChildren *bool   `json:"flex_strict_children"`
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
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
	updated, err := h.service.Update(r.Context(), id, UpdateInput{
		Name:               req.Name,
		PeriodStartDay:     req.PeriodStartDay,
		FlexStrictChildren: req.FlexStrictChildren,
	})
	if err != nil {
		h.respondError(w, "update household", err)
		return
	}
	httpx.JSON(w, http.StatusOK, updated)
}

func (h *Handler) respondError(w http.ResponseWriter, action string, err error) {
	switch {
	case errors.Is(err, ErrEmptyName):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		h.logger.Error(action, slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}

func (h *Handler) idParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "id must be a UUID")
		return uuid.Nil, false
	}
	return id, true
}
