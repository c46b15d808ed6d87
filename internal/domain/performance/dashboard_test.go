package performance

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildDashboardEmpty(t *testing.T) {
	d := BuildDashboard(nil, 0, DashboardOptions{RowLimit: 10, RatingLevels: []string{"TST Individual"}})

	assert.Zero(t, d.CompanyRevenue)
	assert.Zero(t, d.TSTOverallRating)
	assert.Equal(t, DashboardSummary{}, d.Summary)
	require.NotNil(t, d.PerformanceDetails)
	assert.Empty(t, d.PerformanceDetails)

	raw, err := json.Marshal(d)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"performance_details":[]`)
}

func TestBuildDashboard(t *testing.T) {
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	records := []DashboardRecord{
		{Kind: KindPerformance, LevelName: "Company Level", State: StateDraft, Achieved: []float64{20, 40}},
		{Kind: KindPerformance, LevelName: "Company Level", State: StateDone, Achieved: []float64{90}},
		{Kind: KindPerformance, LevelName: "C Level", State: StateChecked, Achieved: []float64{85}},
		{Kind: KindPerformance, LevelName: "TST Division Level", State: StateConfirmed},
		{Kind: KindKPI, LevelName: "TST Individual Level", State: StateDone, EmployeeName: "Ann", JobTitle: "Technician", OverallRating: 3, CreatedAt: base},
		{Kind: KindKPI, LevelName: "tst individual", State: StateChecked, EmployeeName: "Bob", JobTitle: "Technician", OverallRating: 4.4, CreatedAt: base.Add(time.Hour)},
		{Kind: KindKPI, LevelName: "PM Individual", State: StateDraft, EmployeeName: "Cy", JobTitle: "PM", OverallRating: 2, CreatedAt: base.Add(2 * time.Hour)},
	}

	d := BuildDashboard(records, 12, DashboardOptions{RowLimit: 2, RatingLevels: []string{"TST Individual", "PM Individual"}})

	assert.Equal(t, 50.0, d.CompanyRevenue)
	assert.Equal(t, 50.0, d.CompanyCS)
	assert.Equal(t, 85.0, d.CLevel)
	assert.Equal(t, 0.0, d.DivisionTST)
	assert.Equal(t, 0.0, d.DivisionPM)
	assert.Equal(t, 3.7, d.TSTOverallRating)
	assert.Equal(t, 2.0, d.PMOverallRating)
	assert.Equal(t, map[string]float64{"company_level": 50, "c_level": 85, "tst_division_level": 0}, d.Levels)

	assert.Equal(t, DashboardSummary{
		TotalKPIs:  4,
		AvgScore:   3.13,
		ActiveKPIs: 3,
		Employees:  12,
		Pending:    1,
	}, d.Summary)

	require.Len(t, d.PerformanceDetails, 2)
	assert.Equal(t, DashboardRow{EmployeeName: "Cy", ResponsibleRole: "PM", LevelName: "PM Individual", OverallRating: 2, Status: "Draft"}, d.PerformanceDetails[0])
	assert.Equal(t, "Confirmed", d.PerformanceDetails[1].Status)
}

func TestStatusLabel(t *testing.T) {
	assert.Equal(t, "Done", StatusLabel(StateDone))
	assert.Equal(t, "Draft", StatusLabel(StateDraft))
	assert.Equal(t, "Confirmed", StatusLabel(StateChecked))
	assert.Equal(t, "Confirmed", StatusLabel(StateConfirmed))
}

func TestLevelKey(t *testing.T) {
	assert.Equal(t, "tst_division_level", LevelKey(" TST Division Level "))
}
