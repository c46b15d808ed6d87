package db

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"hrperf/internal/domain/auth"
	"hrperf/internal/domain/performance"
	"hrperf/internal/platform/config"
	"hrperf/internal/platform/querier"
)

// defaultObjectives is the starter catalog created for an empty tenant. Each
// entry enables exactly one metric rule.
var defaultObjectives = []performance.Objective{
	{Name: "Job Completed", ShowJobCompleted: true},
	{Name: "Job Fixed on First Visit", ShowJobFixed: true},
	{Name: "Presence vs Schedule", ShowPresenceSchedule: true},
	{Name: "Service Reports Submitted", ShowServiceReports: true},
	{Name: "Safety Incidents", ShowSafetyIncidents: true},
	{Name: "Quality Audit Score", ShowQualityScore: true},
	{Name: "Revenue Growth", ShowRevenue: true},
}

// Seed makes the tenant, RBAC tables, optional admin user and objective
// catalog exist. It is safe to run on every start.
func Seed(ctx context.Context, q querier.Querier, cfg config.Config) error {
	tenantID, err := ensureTenant(ctx, q, cfg.SeedTenantName)
	if err != nil {
		return fmt.Errorf("seed tenant: %w", err)
	}
	if err := ensurePermissions(ctx, q); err != nil {
		return fmt.Errorf("seed permissions: %w", err)
	}
	roleIDs, err := ensureRoles(ctx, q, tenantID)
	if err != nil {
		return fmt.Errorf("seed roles: %w", err)
	}
	if err := ensureRolePermissions(ctx, q, roleIDs); err != nil {
		return fmt.Errorf("seed role permissions: %w", err)
	}
	if err := ensureAdminUser(ctx, q, tenantID, roleIDs[auth.RoleHR], cfg.SeedAdminEmail, cfg.SeedAdminPassword); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	if err := ensureObjectives(ctx, q, tenantID); err != nil {
		return fmt.Errorf("seed objectives: %w", err)
	}
	return nil
}

func ensureTenant(ctx context.Context, q querier.Querier, name string) (string, error) {
	var id string
	err := q.QueryRow(ctx, "SELECT id FROM tenants WHERE name = $1", name).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return "", err
	}
	if err := q.QueryRow(ctx, "INSERT INTO tenants (name) VALUES ($1) RETURNING id", name).Scan(&id); err != nil {
		return "", err
	}
	zap.L().Info("tenant created", zap.String("tenant", name))
	return id, nil
}

func ensurePermissions(ctx context.Context, q querier.Querier) error {
	for _, perm := range auth.DefaultPermissions {
		if _, err := q.Exec(ctx, "INSERT INTO permissions (key) VALUES ($1) ON CONFLICT (key) DO NOTHING", perm); err != nil {
			return err
		}
	}
	return nil
}

func ensureRoles(ctx context.Context, q querier.Querier, tenantID string) (map[string]string, error) {
	roleIDs := map[string]string{}
	for roleName := range auth.RolePermissions {
		var id string
		err := q.QueryRow(ctx, `
    INSERT INTO roles (tenant_id, name) VALUES ($1, $2)
    ON CONFLICT (tenant_id, name) DO UPDATE SET name = EXCLUDED.name
    RETURNING id
  `, tenantID, roleName).Scan(&id)
		if err != nil {
			return nil, err
		}
		roleIDs[roleName] = id
	}
	return roleIDs, nil
}

func ensureRolePermissions(ctx context.Context, q querier.Querier, roleIDs map[string]string) error {
	permMap := map[string]string{}
	rows, err := q.Query(ctx, "SELECT id, key FROM permissions")
	if err != nil {
		return err
	}
	for rows.Next() {
		var id, key string
		if err := rows.Scan(&id, &key); err != nil {
			rows.Close()
			return err
		}
		permMap[key] = id
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for roleName, perms := range auth.RolePermissions {
		roleID := roleIDs[roleName]
		for _, permKey := range perms {
			permID, ok := permMap[permKey]
			if !ok {
				return errors.New("permission not found: " + permKey)
			}
			if _, err := q.Exec(ctx, "INSERT INTO role_permissions (role_id, permission_id) VALUES ($1, $2) ON CONFLICT DO NOTHING", roleID, permID); err != nil {
				return err
			}
		}
	}
	return nil
}

func ensureAdminUser(ctx context.Context, q querier.Querier, tenantID, roleID, email, password string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || strings.TrimSpace(password) == "" {
		return nil
	}

	var id string
	err := q.QueryRow(ctx, "SELECT id FROM users WHERE tenant_id = $1 AND email = $2", tenantID, email).Scan(&id)
	if err == nil {
		return nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	if _, err := q.Exec(ctx, "INSERT INTO users (tenant_id, email, password_hash, role_id) VALUES ($1, $2, $3, $4)", tenantID, email, hash, roleID); err != nil {
		return err
	}
	zap.L().Info("admin user created", zap.String("email", email))
	return nil
}

func ensureObjectives(ctx context.Context, q querier.Querier, tenantID string) error {
	var count int
	if err := q.QueryRow(ctx, "SELECT COUNT(1) FROM objectives WHERE tenant_id = $1", tenantID).Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	for _, o := range defaultObjectives {
		if _, err := q.Exec(ctx, `
    INSERT INTO objectives (tenant_id, name, description, show_job_completed, show_job_fixed, show_presence_schedule,
      show_service_reports, show_safety_incidents, show_quality_score, show_revenue)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
  `, tenantID, o.Name, o.Description, o.ShowJobCompleted, o.ShowJobFixed, o.ShowPresenceSchedule,
			o.ShowServiceReports, o.ShowSafetyIncidents, o.ShowQualityScore, o.ShowRevenue); err != nil {
			return err
		}
	}
	zap.L().Info("objective catalog seeded", zap.Int("count", len(defaultObjectives)))
	return nil
}
