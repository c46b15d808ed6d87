package performance

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"hrperf/internal/domain/core"
	"hrperf/internal/platform/querier"
)

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

func (s *Store) ListObjectives(ctx context.Context, tenantID string) ([]Objective, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, name, description, show_job_completed, show_job_fixed, show_presence_schedule,
           show_service_reports, show_safety_incidents, show_quality_score, show_revenue, created_at
    FROM objectives
    WHERE tenant_id = $1
    ORDER BY name
  `, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Objective
	for rows.Next() {
		var o Objective
		if err := rows.Scan(&o.ID, &o.Name, &o.Description, &o.ShowJobCompleted, &o.ShowJobFixed, &o.ShowPresenceSchedule,
			&o.ShowServiceReports, &o.ShowSafetyIncidents, &o.ShowQualityScore, &o.ShowRevenue, &o.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (s *Store) GetObjective(ctx context.Context, tenantID, objectiveID string) (*Objective, error) {
	var o Objective
	err := s.DB.QueryRow(ctx, `
    SELECT id, name, description, show_job_completed, show_job_fixed, show_presence_schedule,
           show_service_reports, show_safety_incidents, show_quality_score, show_revenue, created_at
    FROM objectives
    WHERE tenant_id = $1 AND id = $2
  `, tenantID, objectiveID).Scan(&o.ID, &o.Name, &o.Description, &o.ShowJobCompleted, &o.ShowJobFixed, &o.ShowPresenceSchedule,
		&o.ShowServiceReports, &o.ShowSafetyIncidents, &o.ShowQualityScore, &o.ShowRevenue, &o.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrObjectiveNotFound
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (s *Store) CreateObjective(ctx context.Context, tenantID string, o Objective) (string, error) {
	var id string
	err := s.DB.QueryRow(ctx, `
    INSERT INTO objectives (tenant_id, name, description, show_job_completed, show_job_fixed, show_presence_schedule,
      show_service_reports, show_safety_incidents, show_quality_score, show_revenue)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
    RETURNING id
  `, tenantID, o.Name, o.Description, o.ShowJobCompleted, o.ShowJobFixed, o.ShowPresenceSchedule,
		o.ShowServiceReports, o.ShowSafetyIncidents, o.ShowQualityScore, o.ShowRevenue).Scan(&id)
	return id, err
}

// UpdateObjective saves the objective and passes every line using it through
// recompute, all in one transaction.
func (s *Store) UpdateObjective(ctx context.Context, tenantID, objectiveID string, o Objective, recompute func(*Line)) error {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `
    UPDATE objectives
    SET name = $1, description = $2, show_job_completed = $3, show_job_fixed = $4, show_presence_schedule = $5,
        show_service_reports = $6, show_safety_incidents = $7, show_quality_score = $8, show_revenue = $9
    WHERE tenant_id = $10 AND id = $11
  `, o.Name, o.Description, o.ShowJobCompleted, o.ShowJobFixed, o.ShowPresenceSchedule,
		o.ShowServiceReports, o.ShowSafetyIncidents, o.ShowQualityScore, o.ShowRevenue, tenantID, objectiveID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrObjectiveNotFound
	}

	lines, err := linesByObjective(ctx, tx, tenantID, objectiveID)
	if err != nil {
		return err
	}
	for _, line := range lines {
		recompute(&line)
		if err := updateLine(ctx, tx, tenantID, line.EvaluationID, line); err != nil {
			return fmt.Errorf("recompute line %s: %w", line.ID, err)
		}
	}
	return tx.Commit(ctx)
}

func (s *Store) ListLevels(ctx context.Context, tenantID string) ([]Level, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT l.id, l.name, COALESCE(l.parent_level_id::text, ''),
           (SELECT COUNT(1) FROM level_responsibles r WHERE r.level_id = l.id),
           l.created_at
    FROM levels l
    WHERE l.tenant_id = $1
    ORDER BY l.name
  `, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Level
	for rows.Next() {
		var l Level
		if err := rows.Scan(&l.ID, &l.Name, &l.ParentLevelID, &l.ResponsibleCount, &l.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (s *Store) GetLevel(ctx context.Context, tenantID, levelID string) (*Level, error) {
	var l Level
	err := s.DB.QueryRow(ctx, `
    SELECT id, name, COALESCE(parent_level_id::text, ''), created_at
    FROM levels
    WHERE tenant_id = $1 AND id = $2
  `, tenantID, levelID).Scan(&l.ID, &l.Name, &l.ParentLevelID, &l.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrLevelNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.DB.Query(ctx, "SELECT employee_id FROM level_responsibles WHERE level_id = $1 ORDER BY employee_id", levelID)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		l.ResponsibleIDs = append(l.ResponsibleIDs, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	l.ResponsibleCount = len(l.ResponsibleIDs)

	rows, err = s.DB.Query(ctx, `
    SELECT t.id, t.objective_id, o.name, t.sequence, t.target_percentage, t.timeline_from, t.timeline_to
    FROM level_objectives t
    JOIN objectives o ON o.id = t.objective_id
    WHERE t.level_id = $1
    ORDER BY t.sequence, o.name
  `, levelID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var t ObjectiveTarget
		if err := rows.Scan(&t.ID, &t.ObjectiveID, &t.ObjectiveName, &t.Sequence, &t.TargetPercentage, &t.TimelineFrom, &t.TimelineTo); err != nil {
			return nil, err
		}
		l.Targets = append(l.Targets, t)
	}
	return &l, rows.Err()
}

func (s *Store) CreateLevel(ctx context.Context, tenantID string, level Level) (string, error) {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return "", err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var id string
	if err := tx.QueryRow(ctx, `
    INSERT INTO levels (tenant_id, name, parent_level_id)
    VALUES ($1, $2, $3)
    RETURNING id
  `, tenantID, level.Name, nullIfEmpty(level.ParentLevelID)).Scan(&id); err != nil {
		return "", err
	}
	for _, employeeID := range level.ResponsibleIDs {
		if _, err := tx.Exec(ctx, `
      INSERT INTO level_responsibles (level_id, employee_id)
      SELECT $1, id FROM employees WHERE tenant_id = $2 AND id = $3
      ON CONFLICT DO NOTHING
    `, id, tenantID, employeeID); err != nil {
			return "", err
		}
	}
	if err := insertTargets(ctx, tx, id, level.Targets); err != nil {
		return "", err
	}
	return id, tx.Commit(ctx)
}

func (s *Store) ReplaceLevelTargets(ctx context.Context, tenantID, levelID string, targets []ObjectiveTarget) error {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var exists bool
	if err := tx.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM levels WHERE tenant_id = $1 AND id = $2)", tenantID, levelID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return ErrLevelNotFound
	}
	if _, err := tx.Exec(ctx, "DELETE FROM level_objectives WHERE level_id = $1", levelID); err != nil {
		return err
	}
	if err := insertTargets(ctx, tx, levelID, targets); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func insertTargets(ctx context.Context, q querier.Querier, levelID string, targets []ObjectiveTarget) error {
	for _, t := range targets {
		if _, err := q.Exec(ctx, `
      INSERT INTO level_objectives (level_id, objective_id, sequence, target_percentage, timeline_from, timeline_to)
      VALUES ($1, $2, $3, $4, $5, $6)
    `, levelID, t.ObjectiveID, t.Sequence, t.TargetPercentage, t.TimelineFrom, t.TimelineTo); err != nil {
			return fmt.Errorf("insert level target: %w", err)
		}
	}
	return nil
}

func (s *Store) EmployeeRef(ctx context.Context, tenantID, employeeID string) (*EmployeeRef, error) {
	var ref EmployeeRef
	err := s.DB.QueryRow(ctx, `
    SELECT id, TRIM(first_name || ' ' || last_name), COALESCE(supervisor_id::text, '')
    FROM employees
    WHERE tenant_id = $1 AND id = $2
  `, tenantID, employeeID).Scan(&ref.ID, &ref.Name, &ref.SupervisorID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, core.ErrEmployeeNotFound
	}
	if err != nil {
		return nil, err
	}
	return &ref, nil
}

func (s *Store) EmployeeCount(ctx context.Context, tenantID string) (int, error) {
	var count int
	err := s.DB.QueryRow(ctx, "SELECT COUNT(1) FROM employees WHERE tenant_id = $1", tenantID).Scan(&count)
	return count, err
}

func (s *Store) DirectSubordinateIDs(ctx context.Context, tenantID, employeeID string) ([]string, error) {
	rows, err := s.DB.Query(ctx, "SELECT id FROM employees WHERE tenant_id = $1 AND supervisor_id = $2", tenantID, employeeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

const evaluationColumns = `
    e.id, e.kind, e.name, e.employee_id,
    TRIM(emp.first_name || ' ' || emp.last_name),
    COALESCE(emp.job_title, ''),
    COALESCE(e.supervisor_id::text, ''),
    e.level_id, lv.name, e.state, e.comments,
    COALESCE((SELECT SUM(weightage) FROM evaluation_lines WHERE evaluation_id = e.id), 0),
    COALESCE((SELECT SUM(final_rating) FROM evaluation_lines WHERE evaluation_id = e.id), 0),
    e.created_at, e.updated_at`

const evaluationJoins = `
    FROM evaluations e
    JOIN employees emp ON emp.id = e.employee_id
    JOIN levels lv ON lv.id = e.level_id`

func scanEvaluation(row pgx.Row) (*Evaluation, error) {
	var ev Evaluation
	if err := row.Scan(&ev.ID, &ev.Kind, &ev.Name, &ev.EmployeeID, &ev.EmployeeName, &ev.JobTitle, &ev.SupervisorID,
		&ev.LevelID, &ev.LevelName, &ev.State, &ev.Comments, &ev.TotalWeightage, &ev.OverallRating,
		&ev.CreatedAt, &ev.UpdatedAt); err != nil {
		return nil, err
	}
	ev.TotalWeightage = round2(ev.TotalWeightage)
	ev.OverallRating = round2(ev.OverallRating)
	return &ev, nil
}

func evaluationWhere(tenantID string, filter EvaluationFilter) (string, []any) {
	where := " WHERE e.tenant_id = $1"
	args := []any{tenantID}
	if filter.Kind != "" {
		args = append(args, filter.Kind)
		where += fmt.Sprintf(" AND e.kind = $%d", len(args))
	}
	if filter.EmployeeID != "" {
		args = append(args, filter.EmployeeID)
		where += fmt.Sprintf(" AND e.employee_id = $%d", len(args))
	}
	return where, args
}

func (s *Store) ListEvaluations(ctx context.Context, tenantID string, filter EvaluationFilter) ([]Evaluation, error) {
	where, args := evaluationWhere(tenantID, filter)
	args = append(args, filter.Limit, filter.Offset)
	query := "SELECT" + evaluationColumns + evaluationJoins + where +
		fmt.Sprintf(" ORDER BY e.created_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Evaluation
	for rows.Next() {
		ev, err := scanEvaluation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *ev)
	}
	return out, rows.Err()
}

func (s *Store) EvaluationCount(ctx context.Context, tenantID string, filter EvaluationFilter) (int, error) {
	where, args := evaluationWhere(tenantID, filter)
	var count int
	err := s.DB.QueryRow(ctx, "SELECT COUNT(1) FROM evaluations e"+where, args...).Scan(&count)
	return count, err
}

const lineColumns = `
    l.id, l.evaluation_id, l.objective_id, o.name, l.sequence, l.target_percentage, l.timeline_from, l.timeline_to,
    l.jobs_completed, l.work_orders, l.jobs_fixed_single_visit, l.jobs_attended, l.jobs_scheduled,
    l.jobs_submitted, l.job_opportunities, l.incidents, l.achieve_rating,
    l.previous_year_revenue, l.current_year_revenue, l.revenue_increased,
    l.achieved_computed, l.achieved_override, l.override_source,
    l.weightage, l.rating, l.final_rating`

func scanLine(row pgx.Row) (*Line, error) {
	var l Line
	if err := row.Scan(&l.ID, &l.EvaluationID, &l.ObjectiveID, &l.ObjectiveName, &l.Sequence, &l.TargetPercentage,
		&l.TimelineFrom, &l.TimelineTo,
		&l.JobsCompleted, &l.WorkOrders, &l.JobsFixedSingleVisit, &l.JobsAttended, &l.JobsScheduled,
		&l.JobsSubmitted, &l.JobOpportunities, &l.Incidents, &l.AchieveRating,
		&l.PreviousYearRevenue, &l.CurrentYearRevenue, &l.RevenueIncreased,
		&l.AchievedComputed, &l.AchievedOverride, &l.OverrideSource,
		&l.Weightage, &l.Rating, &l.FinalRating); err != nil {
		return nil, err
	}
	l.TimelineDuration = timelineDuration(l.TimelineFrom, l.TimelineTo)
	return &l, nil
}

func (s *Store) GetEvaluation(ctx context.Context, tenantID, evaluationID string) (*Evaluation, error) {
	ev, err := scanEvaluation(s.DB.QueryRow(ctx, "SELECT"+evaluationColumns+evaluationJoins+
		" WHERE e.tenant_id = $1 AND e.id = $2", tenantID, evaluationID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrEvaluationNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.DB.Query(ctx, `
    SELECT`+lineColumns+`
    FROM evaluation_lines l
    JOIN objectives o ON o.id = l.objective_id
    WHERE l.evaluation_id = $1
    ORDER BY l.sequence, o.name
  `, evaluationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ev.Lines = []Line{}
	for rows.Next() {
		line, err := scanLine(rows)
		if err != nil {
			return nil, err
		}
		ev.Lines = append(ev.Lines, *line)
	}
	return ev, rows.Err()
}

func (s *Store) EvaluationIDsByEmployee(ctx context.Context, tenantID, employeeID string) ([]string, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id FROM evaluations
    WHERE tenant_id = $1 AND employee_id = $2
    ORDER BY created_at
  `, tenantID, employeeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *Store) CreateEvaluation(ctx context.Context, tenantID string, ev Evaluation) (string, error) {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return "", err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var id string
	if err := tx.QueryRow(ctx, `
    INSERT INTO evaluations (tenant_id, kind, name, employee_id, supervisor_id, level_id, state, comments)
    VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
    RETURNING id
  `, tenantID, ev.Kind, ev.Name, ev.EmployeeID, nullIfEmpty(ev.SupervisorID), ev.LevelID, ev.State, ev.Comments).Scan(&id); err != nil {
		return "", err
	}
	if err := insertLines(ctx, tx, id, ev.Lines); err != nil {
		return "", err
	}
	return id, tx.Commit(ctx)
}

func (s *Store) ReplaceLines(ctx context.Context, tenantID, evaluationID, levelID string, lines []Line) error {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `
    UPDATE evaluations SET level_id = $1, updated_at = now()
    WHERE tenant_id = $2 AND id = $3
  `, levelID, tenantID, evaluationID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrEvaluationNotFound
	}
	if _, err := tx.Exec(ctx, "DELETE FROM evaluation_lines WHERE evaluation_id = $1", evaluationID); err != nil {
		return err
	}
	if err := insertLines(ctx, tx, evaluationID, lines); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func insertLines(ctx context.Context, q querier.Querier, evaluationID string, lines []Line) error {
	for _, l := range lines {
		if _, err := q.Exec(ctx, `
      INSERT INTO evaluation_lines (evaluation_id, objective_id, sequence, target_percentage, timeline_from, timeline_to,
        jobs_completed, work_orders, jobs_fixed_single_visit, jobs_attended, jobs_scheduled, jobs_submitted,
        job_opportunities, incidents, achieve_rating, previous_year_revenue, current_year_revenue, revenue_increased,
        achieved_computed, achieved_override, override_source, weightage, rating, final_rating)
      VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24)
    `, evaluationID, l.ObjectiveID, l.Sequence, l.TargetPercentage, l.TimelineFrom, l.TimelineTo,
			l.JobsCompleted, l.WorkOrders, l.JobsFixedSingleVisit, l.JobsAttended, l.JobsScheduled, l.JobsSubmitted,
			l.JobOpportunities, l.Incidents, l.AchieveRating, l.PreviousYearRevenue, l.CurrentYearRevenue, l.RevenueIncreased,
			l.AchievedComputed, l.AchievedOverride, l.OverrideSource, l.Weightage, l.Rating, l.FinalRating); err != nil {
			return fmt.Errorf("insert evaluation line: %w", err)
		}
	}
	return nil
}

func (s *Store) UpdateLine(ctx context.Context, tenantID, evaluationID string, l Line) error {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := updateLine(ctx, tx, tenantID, evaluationID, l); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, "UPDATE evaluations SET updated_at = now() WHERE id = $1", evaluationID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func updateLine(ctx context.Context, q querier.Querier, tenantID, evaluationID string, l Line) error {
	tag, err := q.Exec(ctx, `
    UPDATE evaluation_lines l
    SET jobs_completed = $1, work_orders = $2, jobs_fixed_single_visit = $3, jobs_attended = $4,
        jobs_scheduled = $5, jobs_submitted = $6, job_opportunities = $7, incidents = $8, achieve_rating = $9,
        previous_year_revenue = $10, current_year_revenue = $11, revenue_increased = $12,
        achieved_computed = $13, achieved_override = $14, override_source = $15,
        weightage = $16, rating = $17, final_rating = $18
    FROM evaluations e
    WHERE l.id = $19 AND l.evaluation_id = $20 AND e.id = l.evaluation_id AND e.tenant_id = $21
  `, l.JobsCompleted, l.WorkOrders, l.JobsFixedSingleVisit, l.JobsAttended,
		l.JobsScheduled, l.JobsSubmitted, l.JobOpportunities, l.Incidents, l.AchieveRating,
		l.PreviousYearRevenue, l.CurrentYearRevenue, l.RevenueIncreased,
		l.AchievedComputed, l.AchievedOverride, l.OverrideSource,
		l.Weightage, l.Rating, l.FinalRating,
		l.ID, evaluationID, tenantID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrLineNotFound
	}
	return nil
}

func linesByObjective(ctx context.Context, q querier.Querier, tenantID, objectiveID string) ([]Line, error) {
	rows, err := q.Query(ctx, `
    SELECT`+lineColumns+`
    FROM evaluation_lines l
    JOIN objectives o ON o.id = l.objective_id
    JOIN evaluations e ON e.id = l.evaluation_id
    WHERE e.tenant_id = $1 AND l.objective_id = $2
    FOR UPDATE OF l
  `, tenantID, objectiveID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Line
	for rows.Next() {
		line, err := scanLine(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *line)
	}
	return out, rows.Err()
}

// forwardState moves state to $1 only when $1 ranks later in $4.
const forwardState = `
    UPDATE evaluations
    SET state = CASE WHEN array_position($4::text[], state) < array_position($4::text[], $1::text) THEN $1 ELSE state END,
        updated_at = now()
    WHERE tenant_id = $2 AND id = $3
    RETURNING state`

func advanceState(ctx context.Context, q querier.Querier, tenantID, evaluationID, state string) (string, error) {
	var current string
	err := q.QueryRow(ctx, forwardState, state, tenantID, evaluationID, stateOrder).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrEvaluationNotFound
	}
	return current, err
}

// UpdateState moves the record forward and returns the stored state, which
// stays unchanged when the record is already at or past state.
func (s *Store) UpdateState(ctx context.Context, tenantID, evaluationID, state string) (string, error) {
	return advanceState(ctx, s.DB, tenantID, evaluationID, state)
}

// LatestPerformanceAchieved maps objective id to the effective achieved
// percentage on the employee's most recent performance record.
func (s *Store) LatestPerformanceAchieved(ctx context.Context, tenantID, employeeID string) (map[string]float64, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT DISTINCT ON (l.objective_id) l.objective_id, COALESCE(l.achieved_override, l.achieved_computed)
    FROM evaluation_lines l
    JOIN evaluations e ON e.id = l.evaluation_id
    WHERE e.tenant_id = $1 AND e.employee_id = $2 AND e.kind = $3
    ORDER BY l.objective_id, e.created_at DESC
  `, tenantID, employeeID, KindPerformance)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]float64{}
	for rows.Next() {
		var objectiveID string
		var achieved float64
		if err := rows.Scan(&objectiveID, &achieved); err != nil {
			return nil, err
		}
		out[objectiveID] = achieved
	}
	return out, rows.Err()
}

func (s *Store) SubordinateLines(ctx context.Context, tenantID, kind string, employeeIDs []string) ([]SubordinateLine, error) {
	if len(employeeIDs) == 0 {
		return nil, nil
	}
	rows, err := s.DB.Query(ctx, `
    SELECT l.objective_id, COALESCE(l.achieved_override, l.achieved_computed)
    FROM evaluation_lines l
    JOIN evaluations e ON e.id = l.evaluation_id
    WHERE e.tenant_id = $1 AND e.kind = $2 AND e.employee_id = ANY($3::uuid[])
  `, tenantID, kind, employeeIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SubordinateLine
	for rows.Next() {
		var sl SubordinateLine
		if err := rows.Scan(&sl.ObjectiveID, &sl.Achieved); err != nil {
			return nil, err
		}
		out = append(out, sl)
	}
	return out, rows.Err()
}

// ApplyAggregation writes aggregated overrides and advances the state in one
// transaction. It returns the stored state.
func (s *Store) ApplyAggregation(ctx context.Context, tenantID, evaluationID string, overrides map[string]float64, state string) (string, error) {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return "", err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	current, err := advanceState(ctx, tx, tenantID, evaluationID, state)
	if err != nil {
		return "", err
	}
	for lineID, achieved := range overrides {
		if _, err := tx.Exec(ctx, `
      UPDATE evaluation_lines SET achieved_override = $1, override_source = $2
      WHERE id = $3 AND evaluation_id = $4
    `, achieved, OverrideAggregated, lineID, evaluationID); err != nil {
			return "", fmt.Errorf("apply override: %w", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return "", err
	}
	return current, nil
}

func (s *Store) DashboardRecords(ctx context.Context, tenantID string) ([]DashboardRecord, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT e.kind, lv.name, e.state,
           TRIM(emp.first_name || ' ' || emp.last_name),
           COALESCE(emp.job_title, ''),
           COALESCE(SUM(l.final_rating), 0),
           COALESCE(array_agg(COALESCE(l.achieved_override, l.achieved_computed)) FILTER (WHERE l.id IS NOT NULL), '{}'),
           e.created_at
    FROM evaluations e
    JOIN employees emp ON emp.id = e.employee_id
    JOIN levels lv ON lv.id = e.level_id
    LEFT JOIN evaluation_lines l ON l.evaluation_id = e.id
    WHERE e.tenant_id = $1
    GROUP BY e.id, lv.name, emp.first_name, emp.last_name, emp.job_title
    ORDER BY e.created_at DESC
  `, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DashboardRecord
	for rows.Next() {
		var rec DashboardRecord
		if err := rows.Scan(&rec.Kind, &rec.LevelName, &rec.State, &rec.EmployeeName, &rec.JobTitle,
			&rec.OverallRating, &rec.Achieved, &rec.CreatedAt); err != nil {
			return nil, err
		}
		rec.OverallRating = round2(rec.OverallRating)
		out = append(out, rec)
	}
	return out, rows.Err()
}

func nullIfEmpty(value string) any {
	if value == "" {
		return nil
	}
	return value
}
