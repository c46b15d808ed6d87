package reports

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"hrperf/internal/domain/performance"
)

func TestEvaluationPDF(t *testing.T) {
	ev := &performance.Evaluation{
		Name:           "KPI/Ada Lovelace",
		EmployeeName:   "Ada Lovelace",
		LevelName:      "TST Individual",
		State:          performance.StateChecked,
		Comments:       "Solid quarter",
		TotalWeightage: 100,
		OverallRating:  3.6,
		Lines: []performance.Line{
			{Sequence: 1, ObjectiveName: "Presence", Weightage: 60, Rating: 3, FinalRating: 1.8},
			{Sequence: 2, ObjectiveName: "Quality", Weightage: 40, Rating: 4.5, FinalRating: 1.8},
		},
	}

	out, err := EvaluationPDF(ev)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestDashboardXLSX(t *testing.T) {
	d := performance.Dashboard{
		CompanyRevenue: 12.5,
		Levels:         map[string]float64{"pm_individual": 80, "c_level": 70},
		Summary:        performance.DashboardSummary{TotalKPIs: 2, AvgScore: 3.13, Employees: 5},
		PerformanceDetails: []performance.DashboardRow{
			{EmployeeName: "Ada", ResponsibleRole: "Engineer", LevelName: "TST Individual", OverallRating: 4.4, Status: "Done"},
			{EmployeeName: "Grace", LevelName: "PM Individual", OverallRating: 3, Status: "Draft"},
		},
	}

	out, err := DashboardXLSX(d)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(out))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(dashboardSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Employee", "Responsible role", "Level", "Overall rating", "Status"}, rows[0])
	assert.Equal(t, "Ada", rows[1][0])
	assert.Equal(t, "4.4", rows[1][3])
	assert.Equal(t, "Draft", rows[2][4])

	summary, err := f.GetRows(summarySheet)
	require.NoError(t, err)
	assert.Equal(t, []string{"Company revenue", "12.5"}, summary[1])
	assert.Equal(t, []string{"Level c_level", "70"}, summary[len(summary)-2])
}
