package reportshandler

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hrperf/internal/domain/auth"
	"hrperf/internal/domain/performance"
	"hrperf/internal/transport/http/middleware"
)

type allow bool

func (a allow) HasPermission(context.Context, string, string) (bool, error) { return bool(a), nil }

type stubSource struct{}

func (stubSource) GetEvaluation(_ context.Context, _ string, id string) (*performance.Evaluation, error) {
	if id != "ev1" {
		return nil, performance.ErrEvaluationNotFound
	}
	return &performance.Evaluation{ID: "ev1", Name: "Perf/Ada Lovelace", State: performance.StateDraft}, nil
}

func (stubSource) Dashboard(context.Context, string) (performance.Dashboard, error) {
	return performance.Dashboard{PerformanceDetails: []performance.DashboardRow{{EmployeeName: "Ada", Status: "Draft"}}}, nil
}

func serve(perms allow, path string) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := middleware.WithUser(req.Context(), auth.UserContext{UserID: "u1", TenantID: "t1", RoleID: "r1"})
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	})
	NewHandler(stubSource{}, perms).RegisterRoutes(r)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestEvaluationPDF(t *testing.T) {
	rec := serve(true, "/reports/evaluations/ev1/pdf")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Equal(t, "attachment; filename=Perf_Ada_Lovelace.pdf", rec.Header().Get("Content-Disposition"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")))
}

func TestEvaluationPDFNotFound(t *testing.T) {
	rec := serve(true, "/reports/evaluations/missing/pdf")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDashboardXLSX(t *testing.T) {
	rec := serve(true, "/reports/dashboard/xlsx")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, xlsxContentType, rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("PK")))
}

func TestReportsRequirePermission(t *testing.T) {
	rec := serve(false, "/reports/dashboard/xlsx")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
