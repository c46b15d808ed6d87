package audithandler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hrperf/internal/domain/audit"
	"hrperf/internal/domain/auth"
	"hrperf/internal/transport/http/middleware"
)

type allowAll struct{}

func (allowAll) HasPermission(context.Context, string, string) (bool, error) { return true, nil }

type fakeReader struct {
	filter audit.Filter
	events []audit.Event
}

func (f *fakeReader) Count(_ context.Context, _ string, filter audit.Filter) (int, error) {
	f.filter = filter
	return len(f.events), nil
}

func (f *fakeReader) List(_ context.Context, _ string, filter audit.Filter, _, _ int) ([]audit.Event, error) {
	f.filter = filter
	return f.events, nil
}

func newRouter(reader Reader) http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := middleware.WithUser(req.Context(), auth.UserContext{UserID: "u1", TenantID: "t1", RoleID: "r1"})
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	})
	NewHandler(reader, allowAll{}).RegisterRoutes(r)
	return r
}

func TestListEventsAppliesFilter(t *testing.T) {
	reader := &fakeReader{events: []audit.Event{{ID: "a1", Action: "evaluation.check", EntityType: "evaluation", EntityID: "e1"}}}
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/audit/events?entityType=evaluation&entityId=e1", nil)

	newRouter(reader).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("X-Total-Count"))
	assert.Equal(t, audit.Filter{EntityType: "evaluation", EntityID: "e1"}, reader.filter)
	assert.Contains(t, rec.Body.String(), `"action":"evaluation.check"`)
}

func TestExportEventsWritesCSV(t *testing.T) {
	created := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	reader := &fakeReader{events: []audit.Event{{ID: "a1", ActorID: "u1", Action: "employee.create", EntityType: "employee", EntityID: "e1", CreatedAt: created}}}
	rec := httptest.NewRecorder()

	newRouter(reader).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/audit/events/export", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "a1,u1,employee.create,employee,e1,,,2024-03-01T10:00:00Z", lines[1])
}
