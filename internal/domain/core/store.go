package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

const employeeColumns = `
    e.id,
    COALESCE(e.user_id::text, ''),
    COALESCE(e.employee_code, ''),
    e.first_name, e.last_name,
    COALESCE(e.email, ''),
    COALESCE(e.job_title, ''),
    COALESCE(e.grade, ''),
    COALESCE(e.division_title, ''),
    COALESCE(e.location, ''),
    COALESCE(e.supervisor_id::text, ''),
    e.joining_date, e.review_date_from, e.review_date_to,
    COALESCE(e.last_promotion_year, ''),
    COALESCE(e.highest_education, ''),
    COALESCE(e.assessment_last_year, ''),
    e.appraisal_role, e.status,
    COALESCE((
      SELECT SUM(l.final_rating)
      FROM evaluations ev
      JOIN evaluation_lines l ON l.evaluation_id = ev.id
      WHERE ev.id = (
        SELECT id FROM evaluations
        WHERE employee_id = e.id AND kind = 'kpi'
        ORDER BY created_at DESC
        LIMIT 1
      )
    ), 0),
    e.created_at, e.updated_at`

func scanEmployee(row pgx.Row) (*Employee, error) {
	var emp Employee
	if err := row.Scan(
		&emp.ID, &emp.UserID, &emp.Code, &emp.FirstName, &emp.LastName, &emp.Email, &emp.JobTitle,
		&emp.Grade, &emp.Division, &emp.Location, &emp.SupervisorID,
		&emp.JoiningDate, &emp.ReviewDateFrom, &emp.ReviewDateTo,
		&emp.LastPromotionYear, &emp.HighestEducation, &emp.AssessmentLastYear,
		&emp.AppraisalRole, &emp.Status, &emp.OverallRating, &emp.CreatedAt, &emp.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if emp.OverallRating < 0 {
		emp.OverallRating = 0
	}
	emp.LengthOfService = LengthOfService(emp.JoiningDate, time.Now())
	return &emp, nil
}

func (s *Store) ListEmployees(ctx context.Context, tenantID string, limit, offset int) ([]Employee, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT`+employeeColumns+`
    FROM employees e
    WHERE e.tenant_id = $1
    ORDER BY e.last_name, e.first_name
    LIMIT $2 OFFSET $3
  `, tenantID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Employee
	for rows.Next() {
		emp, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *emp)
	}
	return out, rows.Err()
}

func (s *Store) EmployeeCount(ctx context.Context, tenantID string) (int, error) {
	var count int
	if err := s.DB.QueryRow(ctx, "SELECT COUNT(1) FROM employees WHERE tenant_id = $1", tenantID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (s *Store) GetEmployee(ctx context.Context, tenantID, employeeID string) (*Employee, error) {
	emp, err := scanEmployee(s.DB.QueryRow(ctx, `
    SELECT`+employeeColumns+`
    FROM employees e
    WHERE e.tenant_id = $1 AND e.id = $2
  `, tenantID, employeeID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrEmployeeNotFound
	}
	return emp, err
}

func (s *Store) CreateEmployee(ctx context.Context, tenantID string, emp Employee) (string, error) {
	var id string
	err := s.DB.QueryRow(ctx, `
    INSERT INTO employees (tenant_id, user_id, employee_code, first_name, last_name, email, job_title, grade,
      division_title, location, supervisor_id, joining_date, review_date_from, review_date_to,
      last_promotion_year, highest_education, assessment_last_year, appraisal_role, status)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)
    RETURNING id
  `, tenantID, nullIfEmpty(emp.UserID), emp.Code, emp.FirstName, emp.LastName, emp.Email, emp.JobTitle, emp.Grade,
		emp.Division, emp.Location, nullIfEmpty(emp.SupervisorID), emp.JoiningDate, emp.ReviewDateFrom, emp.ReviewDateTo,
		emp.LastPromotionYear, emp.HighestEducation, emp.AssessmentLastYear, emp.AppraisalRole, emp.Status).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) UpdateEmployee(ctx context.Context, tenantID, employeeID string, emp Employee) error {
	tag, err := s.DB.Exec(ctx, `
    UPDATE employees
    SET employee_code = $1, first_name = $2, last_name = $3, email = $4, job_title = $5, grade = $6,
        division_title = $7, location = $8, joining_date = $9, review_date_from = $10, review_date_to = $11,
        last_promotion_year = $12, highest_education = $13, assessment_last_year = $14,
        appraisal_role = $15, status = $16, updated_at = now()
    WHERE tenant_id = $17 AND id = $18
  `, emp.Code, emp.FirstName, emp.LastName, emp.Email, emp.JobTitle, emp.Grade,
		emp.Division, emp.Location, emp.JoiningDate, emp.ReviewDateFrom, emp.ReviewDateTo,
		emp.LastPromotionYear, emp.HighestEducation, emp.AssessmentLastYear,
		emp.AppraisalRole, emp.Status, tenantID, employeeID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrEmployeeNotFound
	}
	return nil
}

func (s *Store) SupervisorMap(ctx context.Context, tenantID string) (map[string]string, error) {
	rows, err := s.DB.Query(ctx, "SELECT id, COALESCE(supervisor_id::text, '') FROM employees WHERE tenant_id = $1", tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	parents := map[string]string{}
	for rows.Next() {
		var id, parent string
		if err := rows.Scan(&id, &parent); err != nil {
			return nil, err
		}
		parents[id] = parent
	}
	return parents, rows.Err()
}

// SetSupervisor moves the employee and keeps the denormalized supervisor on
// their evaluations in sync within one transaction.
func (s *Store) SetSupervisor(ctx context.Context, tenantID, employeeID, supervisorID string) error {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `
    UPDATE employees SET supervisor_id = $1, updated_at = now()
    WHERE tenant_id = $2 AND id = $3
  `, nullIfEmpty(supervisorID), tenantID, employeeID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrEmployeeNotFound
	}
	if _, err := tx.Exec(ctx, `
    UPDATE evaluations SET supervisor_id = $1, updated_at = now()
    WHERE tenant_id = $2 AND employee_id = $3
  `, nullIfEmpty(supervisorID), tenantID, employeeID); err != nil {
		return fmt.Errorf("sync evaluation supervisor: %w", err)
	}
	return tx.Commit(ctx)
}

func (s *Store) ListSubordinates(ctx context.Context, tenantID, employeeID string) ([]Employee, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT`+employeeColumns+`
    FROM employees e
    WHERE e.tenant_id = $1 AND e.supervisor_id = $2
    ORDER BY e.last_name, e.first_name
  `, tenantID, employeeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Employee
	for rows.Next() {
		emp, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *emp)
	}
	return out, rows.Err()
}

func (s *Store) EmployeeIDByUserID(ctx context.Context, tenantID, userID string) (string, error) {
	var employeeID string
	err := s.DB.QueryRow(ctx, "SELECT id FROM employees WHERE tenant_id = $1 AND user_id = $2", tenantID, userID).Scan(&employeeID)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrEmployeeNotFound
	}
	return employeeID, err
}

func nullIfEmpty(value string) any {
	if value == "" {
		return nil
	}
	return value
}
