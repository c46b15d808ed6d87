package performance

import "context"

type EmployeeRef struct {
	ID           string
	Name         string
	SupervisorID string
}

type StoreAPI interface {
	ListObjectives(ctx context.Context, tenantID string) ([]Objective, error)
	GetObjective(ctx context.Context, tenantID, objectiveID string) (*Objective, error)
	CreateObjective(ctx context.Context, tenantID string, objective Objective) (string, error)
	UpdateObjective(ctx context.Context, tenantID, objectiveID string, objective Objective, recompute func(*Line)) error

	ListLevels(ctx context.Context, tenantID string) ([]Level, error)
	GetLevel(ctx context.Context, tenantID, levelID string) (*Level, error)
	CreateLevel(ctx context.Context, tenantID string, level Level) (string, error)
	ReplaceLevelTargets(ctx context.Context, tenantID, levelID string, targets []ObjectiveTarget) error

	EmployeeRef(ctx context.Context, tenantID, employeeID string) (*EmployeeRef, error)
	EmployeeCount(ctx context.Context, tenantID string) (int, error)
	DirectSubordinateIDs(ctx context.Context, tenantID, employeeID string) ([]string, error)

	ListEvaluations(ctx context.Context, tenantID string, filter EvaluationFilter) ([]Evaluation, error)
	EvaluationCount(ctx context.Context, tenantID string, filter EvaluationFilter) (int, error)
	GetEvaluation(ctx context.Context, tenantID, evaluationID string) (*Evaluation, error)
	EvaluationIDsByEmployee(ctx context.Context, tenantID, employeeID string) ([]string, error)
	CreateEvaluation(ctx context.Context, tenantID string, evaluation Evaluation) (string, error)
	ReplaceLines(ctx context.Context, tenantID, evaluationID, levelID string, lines []Line) error
	UpdateLine(ctx context.Context, tenantID, evaluationID string, line Line) error
	UpdateState(ctx context.Context, tenantID, evaluationID, state string) (string, error)
	LatestPerformanceAchieved(ctx context.Context, tenantID, employeeID string) (map[string]float64, error)
	SubordinateLines(ctx context.Context, tenantID, kind string, employeeIDs []string) ([]SubordinateLine, error)
	ApplyAggregation(ctx context.Context, tenantID, evaluationID string, overrides map[string]float64, state string) (string, error)

	DashboardRecords(ctx context.Context, tenantID string) ([]DashboardRecord, error)
}
