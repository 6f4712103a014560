package budgethttp

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/hearthledger/hearthledger/internal/budget"
	"github.com/hearthledger/hearthledger/internal/shared"
)

type stubService struct {
	view       budget.View
	viewErr    error
	viewRef    time.Time
	result     budget.AssignmentResult
	upsertErr  error
	upsertIn   budget.UpsertAssignmentInput
	rta        int64
	reconcile  budget.ReconcileResult
	priorities []budget.Priority
	putErr     error
}

func (s *stubService) GetView(ctx context.Context, householdID uuid.UUID, reference time.Time) (budget.View, error) {
	s.viewRef = reference
	return s.view, s.viewErr
}

func (s *stubService) UpsertAssignment(ctx context.Context, in budget.UpsertAssignmentInput) (budget.AssignmentResult, error) {
	s.upsertIn = in
	return s.result, s.upsertErr
}

func (s *stubService) ReadyToAssign(ctx context.Context, householdID uuid.UUID) (int64, error) {
	return s.rta, nil
}

func (s *stubService) ReconcileReadyToAssign(ctx context.Context, householdID uuid.UUID) (budget.ReconcileResult, error) {
	return s.reconcile, nil
}

func (s *stubService) ListPriorities(ctx context.Context, userID uuid.UUID) ([]budget.Priority, error) {
	return s.priorities, nil
}

func (s *stubService) PutPriority(ctx context.Context, userID, householdID, categoryID uuid.UUID) error {
	return s.putErr
}

func (s *stubService) DeletePriority(ctx context.Context, userID, categoryID uuid.UUID) error {
	return nil
}

func newTestRouter(service BudgetService) http.Handler {
	h := NewHandler(slog.Default(), service)
	r := chi.NewRouter()
	r.Route("/budget", h.MountRoutes)
	return r
}

func TestGetViewRequiresHousehold(t *testing.T) {
	router := newTestRouter(&stubService{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/budget/", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "household_id")
}

func TestGetViewPassesReferenceDate(t *testing.T) {
	service := &stubService{view: budget.View{ReadyToAssign: 420}}
	router := newTestRouter(service)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/budget/?household_id="+uuid.NewString()+"&date=2025-03-15", nil)
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, service.viewRef.Equal(time.Date(2025, time.March, 15, 0, 0, 0, 0, time.UTC)))

	var payload struct {
		ReadyToAssign int64 `json:"ready_to_assign"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	require.Equal(t, int64(420), payload.ReadyToAssign)
}

func TestGetViewRejectsBadDate(t *testing.T) {
	router := newTestRouter(&stubService{})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/budget/?household_id="+uuid.NewString()+"&date=15-03-2025", nil)
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpsertAssignment(t *testing.T) {
	service := &stubService{result: budget.AssignmentResult{Amount: 30000, Delta: -20000}}
	router := newTestRouter(service)

	body := `{"household_id":"` + uuid.NewString() + `","category_id":"` + uuid.NewString() + `","month":"2025-03-01","amount":30000}`
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/budget/assignments", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, int64(30000), service.upsertIn.Amount)
	require.True(t, service.upsertIn.Month.Equal(time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)))

	var result budget.AssignmentResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	require.Equal(t, int64(-20000), result.Delta)
}

func TestUpsertAssignmentValidation(t *testing.T) {
	router := newTestRouter(&stubService{})

	cases := []struct {
		name string
		body string
	}{
		{"malformed json", `{"household_id":`},
		{"missing category", `{"household_id":"` + uuid.NewString() + `","month":"2025-03-01","amount":100}`},
		{"negative amount", `{"household_id":"` + uuid.NewString() + `","category_id":"` + uuid.NewString() + `","month":"2025-03-01","amount":-5}`},
		{"bad month", `{"household_id":"` + uuid.NewString() + `","category_id":"` + uuid.NewString() + `","month":"March","amount":100}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPut, "/budget/assignments", strings.NewReader(tc.body))
			req.Header.Set("Content-Type", "application/json")
			router.ServeHTTP(rec, req)
			require.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestUpsertAssignmentUnknownCategory(t *testing.T) {
	service := &stubService{upsertErr: shared.ErrUnknownCategory}
	router := newTestRouter(service)

	body := `{"household_id":"` + uuid.NewString() + `","category_id":"` + uuid.NewString() + `","month":"2025-03-01","amount":100}`
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/budget/assignments", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReadyToAssignEndpoint(t *testing.T) {
	service := &stubService{rta: -1500}
	router := newTestRouter(service)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/budget/ready-to-assign?household_id="+uuid.NewString(), nil)
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var payload map[string]int64
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	require.Equal(t, int64(-1500), payload["ready_to_assign"])
}

func TestExportCSV(t *testing.T) {
	parent := budget.Category{ID: uuid.New(), Name: "Utilities", Type: budget.CategoryTypeExpense}
	child := budget.Category{ID: uuid.New(), Name: "Electricity", Type: budget.CategoryTypeExpense, ParentID: &parent.ID}
	service := &stubService{view: budget.View{
		Period: budget.Period{
			From: time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC),
			To:   time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC),
		},
		Nodes: []budget.Node{
			{
				Category: parent,
				State:    budget.CategoryState{Assigned: 5000, Activity: 1200, Available: 3800},
				Children: []budget.Node{
					{Category: child, State: budget.CategoryState{Activity: 1200, Available: -1200}},
				},
			},
		},
	}}
	router := newTestRouter(service)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/budget/export.csv?household_id="+uuid.NewString(), nil)
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Header().Get("Content-Type"), "text/csv")
	require.Contains(t, rec.Header().Get("Content-Disposition"), "budget_2025-03-01.csv")

	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	require.Len(t, lines, 3)
	require.Equal(t, "category,parent,type,assigned,activity,rollover,available", lines[0])
	require.Equal(t, "Utilities,,expense,5000,1200,0,3800", lines[1])
	require.Equal(t, "Electricity,Utilities,expense,0,1200,0,-1200", lines[2])
}

func TestPriorityEndpoints(t *testing.T) {
	user := uuid.New()
	service := &stubService{priorities: []budget.Priority{{UserID: user, CategoryID: uuid.New()}}}
	router := newTestRouter(service)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/budget/priorities?user_id="+user.String(), nil)
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	body := `{"user_id":"` + user.String() + `","household_id":"` + uuid.NewString() + `","category_id":"` + uuid.NewString() + `"}`
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPut, "/budget/priorities", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodDelete, "/budget/priorities?user_id="+user.String()+"&category_id="+uuid.NewString(), nil)
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)
}
