package ledger

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/hearthledger/hearthledger/internal/platform/httpx"
	"github.com/hearthledger/hearthledger/internal/shared"
)

// Handler manages ledger endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers ledger routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/transactions", h.list)
	r.Post("/transactions", h.create)
	r.Get("/transactions/{id}", h.get)
	r.Patch("/transactions/{id}", h.update)
	r.Delete("/transactions/{id}", h.delete)
	r.Get("/recurring", h.listRecurring)
	r.Post("/recurring", h.createRecurring)
	r.Patch("/recurring/{id}", h.setRecurringActive)
}

type createTransactionRequest struct {
	HouseholdID uuid.UUID `json:"household_id" validate:"required"`
	CategoryID  uuid.UUID `json:"category_id" validate:"required"`
	Amount      int64     `json:"amount" validate:"required"`
	Date        string    `json:"date" validate:"required"`
	Memo        string    `json:"memo" validate:"max=200"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createTransactionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "date must be YYYY-MM-DD")
		return
	}
	created, err := h.service.Create(r.Context(), CreateInput{
		HouseholdID: req.HouseholdID,
		CategoryID:  req.CategoryID,
		Amount:      req.Amount,
		Date:        date,
		Memo:        req.Memo,
	})
	if err != nil {
		h.respondError(w, "create transaction", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	householdID, ok := h.householdParam(w, r)
	if !ok {
		return
	}
	filter := ListFilter{}
	q := r.URL.Query()
	if raw := q.Get("category_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "category_id must be a UUID")
			return
		}
		filter.CategoryID = &id
	}
	for name, dest := range map[string]**time.Time{"from": &filter.From, "to": &filter.To} {
		if raw := q.Get(name); raw != "" {
			parsed, err := time.Parse("2006-01-02", raw)
			if err != nil {
				httpx.Problem(w, http.StatusBadRequest, "Validation Failed", name+" must be YYYY-MM-DD")
				return
			}
			*dest = &parsed
		}
	}
	filter.Page, _ = strconv.Atoi(q.Get("page"))
	filter.PerPage, _ = strconv.Atoi(q.Get("per_page"))

	transactions, total, err := h.service.List(r.Context(), householdID, filter)
	if err != nil {
		h.respondError(w, "list transactions", err)
		return
	}
	if transactions == nil {
		transactions = []Transaction{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"transactions": transactions,
		"pagination":   shared.NewPagination(filter.Page, filter.PerPage, total),
	})
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
	t, err := h.service.Get(r.Context(), householdID, id)
	if err != nil {
		h.respondError(w, "get transaction", err)
		return
	}
	httpx.JSON(w, http.StatusOK, t)
}

type updateTransactionRequest struct {
	CategoryID *uuid.UUID `json:"category_id"`
	Amount     *int64     `json:"amount"`
	Date       *string    `json:"date"`
	Memo       *string    `json:"memo" validate:"omitempty,max=200"`
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
	var req updateTransactionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	in := UpdateInput{CategoryID: req.CategoryID, Amount: req.Amount, Memo: req.Memo}
	if req.Date != nil {
		parsed, err := time.Parse("2006-01-02", *req.Date)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "date must be YYYY-MM-DD")
			return
		}
		in.Date = &parsed
	}
	updated, err := h.service.Update(r.Context(), householdID, id, in)
	if err != nil {
		h.respondError(w, "update transaction", err)
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
		h.respondError(w, "delete transaction", err)
		return
	}
	httpx.NoContent(w)
}

type createRecurringRequest struct {
	HouseholdID uuid.UUID `json:"household_id" validate:"required"`
	CategoryID  uuid.UUID `json:"category_id" validate:"required"`
	Amount      int64     `json:"amount" validate:"required"`
	Memo        string    `json:"memo" validate:"max=200"`
	Frequency   string    `json:"frequency" validate:"required,oneof=weekly monthly"`
	FirstRun    string    `json:"first_run" validate:"required"`
}

func (h *Handler) createRecurring(w http.ResponseWriter, r *http.Request) {
	var req createRecurringRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	firstRun, err := time.Parse("2006-01-02", req.FirstRun)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "first_run must be YYYY-MM-DD")
		return
	}
	created, err := h.service.CreateRecurring(r.Context(), RecurringTransaction{
		HouseholdID: req.HouseholdID,
		CategoryID:  req.CategoryID,
		Amount:      req.Amount,
		Memo:        req.Memo,
		Frequency:   req.Frequency,
		NextRun:     firstRun,
	})
	if err != nil {
		h.respondError(w, "create recurring", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) listRecurring(w http.ResponseWriter, r *http.Request) {
	householdID, ok := h.householdParam(w, r)
	if !ok {
		return
	}
	templates, err := h.service.ListRecurring(r.Context(), householdID)
	if err != nil {
		h.respondError(w, "list recurring", err)
		return
	}
	if templates == nil {
		templates = []RecurringTransaction{}
	}
	httpx.JSON(w, http.StatusOK, templates)
}

type setRecurringActiveRequest struct {
	Active bool `json:"active"`
}

func (h *Handler) setRecurringActive(w http.ResponseWriter, r *http.Request) {
	householdID, ok := h.householdParam(w, r)
	if !ok {
		return
	}
	id, ok := h.idParam(w, r)
	if !ok {
		return
	}
	var req setRecurringActiveRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body")
		return
	}
	if err := h.service.SetRecurringActive(r.Context(), householdID, id, req.Active); err != nil {
		h.respondError(w, "set recurring active", err)
		return
	}
	httpx.NoContent(w)
}

func (h *Handler) respondError(w http.ResponseWriter, action string, err error) {
	switch {
	case errors.Is(err, ErrZeroAmount), errors.Is(err, ErrInvalidFrequency), errors.Is(err, shared.ErrUnknownCategory):
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
