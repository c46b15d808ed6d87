package performance

import "time"

type Objective struct {
	ID                   string    `json:"id"`
	Name                 string    `json:"name"`
	Description          string    `json:"description"`
	ShowJobCompleted     bool      `json:"showJobCompleted"`
	ShowJobFixed         bool      `json:"showJobFixed"`
	ShowPresenceSchedule bool      `json:"showPresenceSchedule"`
	ShowServiceReports   bool      `json:"showServiceReports"`
	ShowSafetyIncidents  bool      `json:"showSafetyIncidents"`
	ShowQualityScore     bool      `json:"showQualityScore"`
	ShowRevenue          bool      `json:"showRevenue"`
	CreatedAt            time.Time `json:"createdAt"`
}

type ObjectiveTarget struct {
	ID               string     `json:"id"`
	ObjectiveID      string     `json:"objectiveId"`
	ObjectiveName    string     `json:"objectiveName"`
	Sequence         int        `json:"sequence"`
	TargetPercentage float64    `json:"targetPercentage"`
	TimelineFrom     *time.Time `json:"timelineFrom,omitempty"`
	TimelineTo       *time.Time `json:"timelineTo,omitempty"`
	TimelineDuration string     `json:"timelineDuration"`
}

type Level struct {
	ID               string            `json:"id"`
	Name             string            `json:"name"`
	ParentLevelID    string            `json:"parentLevelId"`
	ResponsibleIDs   []string          `json:"responsibleIds"`
	ResponsibleCount int               `json:"responsibleCount"`
	Targets          []ObjectiveTarget `json:"targets"`
	CreatedAt        time.Time         `json:"createdAt"`
}

// MetricInputs are the raw counters entered on a line.
type MetricInputs struct {
	JobsCompleted        int      `json:"jobsCompleted"`
	WorkOrders           int      `json:"workOrders"`
	JobsFixedSingleVisit int      `json:"jobsFixedSingleVisit"`
	JobsAttended         int      `json:"jobsAttended"`
	JobsScheduled        int      `json:"jobsScheduled"`
	JobsSubmitted        int      `json:"jobsSubmitted"`
	JobOpportunities     int      `json:"jobOpportunities"`
	Incidents            int      `json:"incidents"`
	AchieveRating        *float64 `json:"achieveRating"`
	PreviousYearRevenue  float64  `json:"previousYearRevenue"`
	CurrentYearRevenue   float64  `json:"currentYearRevenue"`
}

type Line struct {
	ID               string     `json:"id"`
	EvaluationID     string     `json:"evaluationId"`
	ObjectiveID      string     `json:"objectiveId"`
	ObjectiveName    string     `json:"objectiveName"`
	Sequence         int        `json:"sequence"`
	TargetPercentage float64    `json:"targetPercentage"`
	TimelineFrom     *time.Time `json:"timelineFrom,omitempty"`
	TimelineTo       *time.Time `json:"timelineTo,omitempty"`
	TimelineDuration string     `json:"timelineDuration"`
	MetricInputs
	RevenueIncreased float64  `json:"revenueIncreased"`
	AchievedComputed float64  `json:"achievedComputed"`
	AchievedOverride *float64 `json:"achievedOverride"`
	OverrideSource   string   `json:"overrideSource"`
	Weightage        float64  `json:"weightage"`
	Rating           float64  `json:"rating"`
	FinalRating      float64  `json:"finalRating"`
}

// Achieved is the effective achieved percentage: the override when one is
// set, otherwise the computed baseline.
func (l Line) Achieved() float64 {
	if l.AchievedOverride != nil {
		return *l.AchievedOverride
	}
	return l.AchievedComputed
}

type Evaluation struct {
	ID             string    `json:"id"`
	Kind           string    `json:"kind"`
	Name           string    `json:"name"`
	EmployeeID     string    `json:"employeeId"`
	EmployeeName   string    `json:"employeeName"`
	JobTitle       string    `json:"jobTitle"`
	SupervisorID   string    `json:"supervisorId"`
	LevelID        string    `json:"levelId"`
	LevelName      string    `json:"levelName"`
	State          string    `json:"state"`
	Comments       string    `json:"comments"`
	TotalWeightage float64   `json:"totalWeightage"`
	OverallRating  float64   `json:"overallRating"`
	Lines          []Line    `json:"lines"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

type EvaluationFilter struct {
	Kind       string
	EmployeeID string
	Limit      int
	Offset     int
}

// LineUpdate carries the editable fields of a line. Nil fields are left as is.
type LineUpdate struct {
	Inputs    *MetricInputs
	Weightage *float64
	Rating    *float64
}

type SubordinateLine struct {
	ObjectiveID string
	Achieved    float64
}
