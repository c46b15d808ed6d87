package performance

import (
	"sort"
	"strings"
	"time"
)

// DashboardRecord is the slice of an evaluation the summarizer reads.
type DashboardRecord struct {
	Kind          string
	LevelName     string
	State         string
	EmployeeName  string
	JobTitle      string
	OverallRating float64
	Achieved      []float64
	CreatedAt     time.Time
}

type DashboardOptions struct {
	RowLimit     int
	RatingLevels []string
}

type DashboardSummary struct {
	TotalKPIs  int     `json:"total_kpis"`
	AvgScore   float64 `json:"avg_score"`
	ActiveKPIs int     `json:"active_kpis"`
	Employees  int     `json:"employees"`
	Pending    int     `json:"pending"`
}

type DashboardRow struct {
	EmployeeName    string  `json:"employee_name"`
	ResponsibleRole string  `json:"responsible_role"`
	LevelName       string  `json:"level_name"`
	OverallRating   float64 `json:"overall_rating"`
	Status          string  `json:"status"`
}

type Dashboard struct {
	CompanyRevenue     float64            `json:"company_revenue"`
	CompanyCS          float64            `json:"company_cs"`
	CLevel             float64            `json:"c_level"`
	DivisionTST        float64            `json:"division_tst"`
	DivisionPM         float64            `json:"division_pm"`
	TSTOverallRating   float64            `json:"tst_overall_rating"`
	PMOverallRating    float64            `json:"pm_overall_rating"`
	Levels             map[string]float64 `json:"levels"`
	OverallRatings     map[string]float64 `json:"overall_ratings"`
	Summary            DashboardSummary   `json:"summary"`
	PerformanceDetails []DashboardRow     `json:"performance_details"`
}

// LevelKey normalizes a level name into a dashboard key.
func LevelKey(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "_")
}

func StatusLabel(state string) string {
	switch state {
	case StateDone:
		return "Done"
	case StateDraft:
		return "Draft"
	default:
		return "Confirmed"
	}
}

// BuildDashboard summarizes performance and KPI records. KPI rows are taken
// newest first up to the row limit.
func BuildDashboard(records []DashboardRecord, employees int, opts DashboardOptions) Dashboard {
	type acc struct {
		sum   float64
		count int
	}

	levelAcc := map[string]*acc{}
	ratingAcc := map[string]*acc{}
	for _, name := range opts.RatingLevels {
		ratingAcc[name] = &acc{}
	}

	var (
		summary DashboardSummary
		kpis    []DashboardRecord
		kpiSum  float64
	)
	for _, rec := range records {
		switch rec.Kind {
		case KindPerformance:
			summary.TotalKPIs++
			if rec.State != StateDone {
				summary.ActiveKPIs++
			}
			if rec.State == StateDraft {
				summary.Pending++
			}
			key := LevelKey(rec.LevelName)
			a, ok := levelAcc[key]
			if !ok {
				a = &acc{}
				levelAcc[key] = a
			}
			for _, v := range rec.Achieved {
				a.sum += v
				a.count++
			}
		case KindKPI:
			kpis = append(kpis, rec)
			kpiSum += rec.OverallRating
			level := strings.ToLower(rec.LevelName)
			for name, a := range ratingAcc {
				if strings.Contains(level, strings.ToLower(name)) {
					a.sum += rec.OverallRating
					a.count++
				}
			}
		}
	}

	levels := make(map[string]float64, len(levelAcc))
	for key, a := range levelAcc {
		if a.count > 0 {
			levels[key] = round2(a.sum / float64(a.count))
		} else {
			levels[key] = 0
		}
	}
	ratings := make(map[string]float64, len(ratingAcc))
	for name, a := range ratingAcc {
		if a.count > 0 {
			ratings[LevelKey(name)] = round1(a.sum / float64(a.count))
		} else {
			ratings[LevelKey(name)] = 0
		}
	}

	summary.Employees = employees
	if len(kpis) > 0 {
		summary.AvgScore = round2(kpiSum / float64(len(kpis)))
	}

	sortNewestFirst(kpis)
	limit := opts.RowLimit
	if limit <= 0 || limit > len(kpis) {
		limit = len(kpis)
	}
	rows := make([]DashboardRow, 0, limit)
	for _, rec := range kpis[:limit] {
		rows = append(rows, DashboardRow{
			EmployeeName:    rec.EmployeeName,
			ResponsibleRole: rec.JobTitle,
			LevelName:       rec.LevelName,
			OverallRating:   rec.OverallRating,
			Status:          StatusLabel(rec.State),
		})
	}

	return Dashboard{
		CompanyRevenue:     levels["company_level"],
		CompanyCS:          levels["company_level"],
		CLevel:             levels["c_level"],
		DivisionTST:        levels["tst_division_level"],
		DivisionPM:         levels["pm_division_level"],
		TSTOverallRating:   ratings["tst_individual"],
		PMOverallRating:    ratings["pm_individual"],
		Levels:             levels,
		OverallRatings:     ratings,
		Summary:            summary,
		PerformanceDetails: rows,
	}
}

func sortNewestFirst(records []DashboardRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})
}
