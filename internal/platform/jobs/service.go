package jobs

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"hrperf/internal/platform/querier"
	"hrperf/internal/requestctx"
)

const JobDashboardWarm = "dashboard_warm"

// TenantJob runs one unit of scheduled work for a tenant and returns details
// stored on the job run.
type TenantJob func(ctx context.Context, tenantID string) (any, error)

type Service struct {
	DB    querier.Querier
	queue chan job
}

type job struct {
	Type     string
	TenantID string
	Run      func(context.Context) (any, error)
}

func New(db querier.Querier) *Service {
	return &Service{
		DB:    db,
		queue: make(chan job, 128),
	}
}

// Start runs the queue worker until ctx is cancelled.
func (s *Service) Start(ctx context.Context) {
	go s.worker(ctx)
}

// Every enqueues run for each tenant on every tick of interval.
func (s *Service) Every(ctx context.Context, jobType string, interval time.Duration, run TenantJob) {
	if interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.enqueueTenants(ctx, jobType, run)
			}
		}
	}()
}

func (s *Service) enqueueTenants(ctx context.Context, jobType string, run TenantJob) {
	tenants, err := s.listTenants(ctx)
	if err != nil {
		zap.L().Warn("scheduler tenant lookup failed", zap.String("jobType", jobType), zap.Error(err))
		return
	}
	for _, tenantID := range tenants {
		tenant := tenantID
		s.enqueue(jobType, tenant, func(ctx context.Context) (any, error) {
			return run(ctx, tenant)
		})
	}
}

func (s *Service) enqueue(jobType, tenantID string, run func(context.Context) (any, error)) {
	select {
	case s.queue <- job{Type: jobType, TenantID: tenantID, Run: run}:
	default:
		zap.L().Warn("job queue full", zap.String("jobType", jobType), zap.String("tenantId", tenantID))
	}
}

func (s *Service) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-s.queue:
			if _, err := s.runJob(ctx, j); err != nil {
				zap.L().Warn("job run failed", zap.String("jobType", j.Type), zap.String("tenantId", j.TenantID), zap.Error(err))
			}
		}
	}
}

func (s *Service) runJob(ctx context.Context, j job) (any, error) {
	runID := ""
	if err := s.DB.QueryRow(ctx, `
    INSERT INTO job_runs (tenant_id, job_type, status)
    VALUES ($1,$2,$3)
    RETURNING id
  `, j.TenantID, j.Type, "running").Scan(&runID); err != nil {
		zap.L().Warn("job run insert failed", zap.Error(err))
	}

	if runID != "" {
		ctx = requestctx.WithJobRun(ctx, j.Type, runID)
	}
	details, err := j.Run(ctx)
	status := "completed"
	if err != nil {
		status = "failed"
	}
	detailsJSON, marshalErr := json.Marshal(details)
	if marshalErr != nil {
		zap.L().Warn("job details marshal failed", zap.Error(marshalErr))
		detailsJSON = []byte("{}")
	}
	if runID != "" {
		if _, updErr := s.DB.Exec(ctx, `
      UPDATE job_runs
      SET status = $1, details_json = $2, completed_at = now()
      WHERE id = $3
    `, status, detailsJSON, runID); updErr != nil {
			zap.L().Warn("job run update failed", append(requestctx.LogFields(ctx), zap.Error(updErr))...)
		}
	}
	return details, err
}

func (s *Service) listTenants(ctx context.Context) ([]string, error) {
	rows, err := s.DB.Query(ctx, `SELECT id FROM tenants`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
