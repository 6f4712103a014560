// Package budgethttp exposes the budgeting engine over JSON HTTP.
package budgethttp

import (
	"context"
	"encoding/csv"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/hearthledger/hearthledger/internal/budget"
	"github.com/hearthledger/hearthledger/internal/platform/httpx"
)

// BudgetService is the engine contract consumed by the handler.
type BudgetService interface {
	GetView(ctx context.Context, householdID uuid.UUID, reference time.Time) (budget.View, error)
	UpsertAssignment(ctx context.Context, in budget.UpsertAssignmentInput) (budget.AssignmentResult, error)
	ReadyToAssign(ctx context.Context, householdID uuid.UUID) (int64, error)
	ReconcileReadyToAssign(ctx context.Context, householdID uuid.UUID) (budget.ReconcileResult, error)
	ListPriorities(ctx context.Context, userID uuid.UUID) ([]budget.Priority, error)
	PutPriority(ctx context.Context, userID, householdID, categoryID uuid.UUID) error
	DeletePriority(ctx context.Context, userID, categoryID uuid.UUID) error
}

// Handler coordinates HTTP requests for the budget view and assignments.
type Handler struct {
	logger   *slog.Logger
	service  BudgetService
	validate *validator.Validate
	now      func() time.Time
}

// NewHandler constructs the budget HTTP handler.
func NewHandler(logger *slog.Logger, service BudgetService) *Handler {
	return &Handler{
		logger:   logger,
		service:  service,
		validate: validator.New(),
		now:      time.Now,
	}
}

// WithNow overrides the handler clock for testing.
func (h *Handler) WithNow(fn func() time.Time) {
	if fn != nil {
		h.now = fn
	}
}

func (h *Handler) handleGetView(w http.ResponseWriter, r *http.Request) {
	householdID, ok := h.householdParam(w, r)
	if !ok {
		return
	}
	reference := h.now()
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "date must be YYYY-MM-DD")
			return
		}
		reference = parsed
	}

	view, err := h.service.GetView(r.Context(), householdID, reference)
	if err != nil {
		h.logger.Error("build budget view", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, view)
}

type upsertAssignmentRequest struct {
	HouseholdID uuid.UUID `json:"household_id" validate:"required"`
	CategoryID  uuid.UUID `json:"category_id" validate:"required"`
	Month       string    `json:"month" validate:"required"`
	Amount      int64     `json:"amount" validate:"gte=0"`
}

func (h *Handler) handleUpsertAssignment(w http.ResponseWriter, r *http.Request) {
	var req upsertAssignmentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	month, err := time.Parse("2006-01-02", req.Month)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "month must be YYYY-MM-DD")
		return
	}

	result, err := h.service.UpsertAssignment(r.Context(), budget.UpsertAssignmentInput{
		HouseholdID: req.HouseholdID,
		CategoryID:  req.CategoryID,
		Month:       month,
		Amount:      req.Amount,
	})
	if err != nil {
		h.logger.Error("upsert assignment", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) handleReadyToAssign(w http.ResponseWriter, r *http.Request) {
	householdID, ok := h.householdParam(w, r)
	if !ok {
		return
	}
	amount, err := h.service.ReadyToAssign(r.Context(), householdID)
	if err != nil {
		h.logger.Error("read ready to assign", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]int64{"ready_to_assign": amount})
}

func (h *Handler) handleReconcile(w http.ResponseWriter, r *http.Request) {
	householdID, ok := h.householdParam(w, r)
	if !ok {
		return
	}
	result, err := h.service.ReconcileReadyToAssign(r.Context(), householdID)
	if err != nil {
		h.logger.Error("reconcile ready to assign", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	householdID, ok := h.householdParam(w, r)
	if !ok {
		return
	}
	reference := h.now()
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "date must be YYYY-MM-DD")
			return
		}
		reference = parsed
	}
	view, err := h.service.GetView(r.Context(), householdID, reference)
	if err != nil {
		h.logger.Error("export budget csv", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	httpx.Attachment(w, "text/csv; charset=utf-8", "budget_"+view.Period.From.Format("2006-01-02")+".csv")

	writer := csv.NewWriter(w)
	_ = writer.Write([]string{"category", "parent", "type", "assigned", "activity", "rollover", "available"})
	for _, node := range view.Nodes {
		writeNodeRow(writer, node, "")
		for _, child := range node.Children {
			writeNodeRow(writer, child, node.Category.Name)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		h.logger.Error("flush budget csv", slog.Any("error", err))
	}
}

func writeNodeRow(writer *csv.Writer, node budget.Node, parent string) {
	_ = writer.Write([]string{
		node.Category.Name,
		parent,
		string(node.Category.Type),
		strconv.FormatInt(node.State.Assigned, 10),
		strconv.FormatInt(node.State.Activity, 10),
		strconv.FormatInt(node.State.Rollover, 10),
		strconv.FormatInt(node.State.Available, 10),
	})
}

func (h *Handler) handleListPriorities(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.uuidQuery(w, r, "user_id")
	if !ok {
		return
	}
	priorities, err := h.service.ListPriorities(r.Context(), userID)
	if err != nil {
		h.logger.Error("list priorities", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if priorities == nil {
		priorities = []budget.Priority{}
	}
	httpx.JSON(w, http.StatusOK, priorities)
}

type priorityRequest struct {
	UserID      uuid.UUID `json:"user_id" validate:"required"`
	HouseholdID uuid.UUID `json:"household_id" validate:"required"`
	CategoryID  uuid.UUID `json:"category_id" validate:"required"`
}

func (h *Handler) handlePutPriority(w http.ResponseWriter, r *http.Request) {
	var req priorityRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if err := h.service.PutPriority(r.Context(), req.UserID, req.HouseholdID, req.CategoryID); err != nil {
		h.logger.Error("put priority", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.NoContent(w)
}

func (h *Handler) handleDeletePriority(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.uuidQuery(w, r, "user_id")
	if !ok {
		return
	}
	categoryID, ok := h.uuidQuery(w, r, "category_id")
	if !ok {
		return
	}
	if err := h.service.DeletePriority(r.Context(), userID, categoryID); err != nil {
		h.logger.Error("delete priority", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.NoContent(w)
}

func (h *Handler) householdParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	return h.uuidQuery(w, r, "household_id")
}

func (h *Handler) uuidQuery(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", name+" is required")
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", name+" must be a UUID")
		return uuid.Nil, false
	}
	return id, true
}
