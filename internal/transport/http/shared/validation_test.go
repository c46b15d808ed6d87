package shared

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type samplePayload struct {
	Name      string   `json:"name" validate:"required"`
	Kind      string   `json:"kind" validate:"required,oneof=performance kpi"`
	Weightage *float64 `json:"weightage" validate:"omitempty,gte=0,lte=100"`
	Email     string   `json:"email" validate:"omitempty,email"`
}

func TestStructReportsJSONFieldNames(t *testing.T) {
	weight := 120.0
	v := NewValidator()
	v.Struct(samplePayload{Kind: "annual", Weightage: &weight, Email: "nope"})

	require.True(t, v.HasIssues())
	assert.Equal(t, []ValidationIssue{
		{Field: "email", Reason: "must be a valid email"},
		{Field: "kind", Reason: "must be one of: performance kpi"},
		{Field: "name", Reason: "is required"},
		{Field: "weightage", Reason: "must be at most 100"},
	}, v.Issues())
}

func TestStructValid(t *testing.T) {
	v := NewValidator()
	v.Struct(samplePayload{Name: "x", Kind: "kpi"})
	assert.False(t, v.HasIssues())
}

func TestRejectWritesValidationError(t *testing.T) {
	v := NewValidator()
	v.Add("name", "is required")
	v.Enum("kind", "annual", []string{"performance", "kpi"}, "must be performance or kpi")

	rec := httptest.NewRecorder()
	assert.True(t, v.Reject(rec, "req-1"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "validation_error")
}

func TestDateOrder(t *testing.T) {
	v := NewValidator()
	start, ok := v.Date("from", "2024-05-10")
	require.True(t, ok)
	end, ok := v.Date("to", "2024-05-01")
	require.True(t, ok)
	v.DateOrder("from", start, "to", end)
	assert.Len(t, v.Issues(), 2)
}

func TestOptionalDate(t *testing.T) {
	v := NewValidator()
	assert.Nil(t, v.OptionalDate("joiningDate", " "))
	assert.False(t, v.HasIssues())

	got := v.OptionalDate("joiningDate", "2021-04-01")
	require.NotNil(t, got)
	assert.Equal(t, 2021, got.Year())

	assert.Nil(t, v.OptionalDate("reviewDateTo", "01/04/2021"))
	require.Len(t, v.Issues(), 1)
	assert.Equal(t, "reviewDateTo", v.Issues()[0].Field)
}
