package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// -----------------------------------------------------------------------------
// Job Methods
// -----------------------------------------------------------------------------

const jobColumns = `id, company_id, title, COALESCE(department, ''), COALESCE(location, ''),
	status, assigned_recruiter_id, created_at, updated_at`

func scanJob(row pgx.Row, j *Job) error {
	return row.Scan(&j.ID, &j.CompanyID, &j.Title, &j.Department, &j.Location,
		&j.Status, &j.AssignedRecruiterID, &j.CreatedAt, &j.UpdatedAt)
}

// CreateJob inserts a new job
func (q *queries) CreateJob(ctx context.Context, input *JobCreateInput) (*Job, error) {
	status := input.Status
	if status == "" {
		status = JobStatusActive
	}

	var j Job
	err := scanJob(q.conn.QueryRow(ctx,
		`INSERT INTO jobs (company_id, title, department, location, status, assigned_recruiter_id)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING `+jobColumns,
		input.CompanyID, input.Title, nullIfEmpty(input.Department), nullIfEmpty(input.Location),
		status, input.AssignedRecruiterID,
	), &j)
	if err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}
	return &j, nil
}

// GetJob retrieves a job by ID
func (q *queries) GetJob(ctx context.Context, id uuid.UUID) (*Job, error) {
	var j Job
	err := scanJob(q.conn.QueryRow(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE id = $1`, id), &j)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return &j, nil
}

// ListJobs retrieves jobs matching the filter, newest first
func (q *queries) ListJobs(ctx context.Context, filter JobFilter) ([]Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE company_id = $1`
	args := []any{filter.CompanyID}
	argNum := 2

	if filter.AssignedRecruiterID != nil {
		query += fmt.Sprintf(" AND assigned_recruiter_id = $%d", argNum)
		args = append(args, *filter.AssignedRecruiterID)
		argNum++
	}
	if filter.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argNum)
		args = append(args, filter.Status)
		argNum++
	}
	if filter.Department != "" {
		query += fmt.Sprintf(" AND lower(department) = lower($%d)", argNum)
		args = append(args, filter.Department)
		argNum++
	}
	if filter.Location != "" {
		query += fmt.Sprintf(" AND lower(location) = lower($%d)", argNum)
		args = append(args, filter.Location)
		argNum++
	}
	if filter.JobID != nil {
		query += fmt.Sprintf(" AND id = $%d", argNum)
		args = append(args, *filter.JobID)
	}
	query += " ORDER BY created_at DESC"

	rows, err := q.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	jobs := []Job{}
	for rows.Next() {
		var j Job
		if err := scanJob(rows, &j); err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

// UpdateJobStatus sets a job's status
func (q *queries) UpdateJobStatus(ctx context.Context, id uuid.UUID, status JobStatus) error {
	result, err := q.conn.Exec(ctx,
		`UPDATE jobs SET status = $1, updated_at = NOW() WHERE id = $2`, status, id)
	if err != nil {
		return fmt.Errorf("failed to update job status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("job not found: %s", id)
	}
	return nil
}

// -----------------------------------------------------------------------------
// Pipeline Stage Methods
// -----------------------------------------------------------------------------

const stageColumns = `id, job_id, name, position, is_default, is_mandatory, parent_stage_id, created_at`

func scanStage(row pgx.Row, s *PipelineStage) error {
	return row.Scan(&s.ID, &s.JobID, &s.Name, &s.Position, &s.IsDefault, &s.IsMandatory,
		&s.ParentStageID, &s.CreatedAt)
}

// CreateStage inserts a pipeline stage at the given position. Callers are
// responsible for shifting siblings first.
func (q *queries) CreateStage(ctx context.Context, input *StageCreateInput) (*PipelineStage, error) {
	var s PipelineStage
	err := scanStage(q.conn.QueryRow(ctx,
		`INSERT INTO pipeline_stages (job_id, name, position, is_default, is_mandatory, parent_stage_id)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING `+stageColumns,
		input.JobID, input.Name, input.Position, input.IsDefault, input.IsMandatory, input.ParentStageID,
	), &s)
	if err != nil {
		return nil, fmt.Errorf("failed to create stage: %w", err)
	}
	return &s, nil
}

// GetStage retrieves a pipeline stage by ID
func (q *queries) GetStage(ctx context.Context, id uuid.UUID) (*PipelineStage, error) {
	var s PipelineStage
	err := scanStage(q.conn.QueryRow(ctx,
		`SELECT `+stageColumns+` FROM pipeline_stages WHERE id = $1`, id), &s)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get stage: %w", err)
	}
	return &s, nil
}

// ListStages retrieves a job's stages ordered by position
func (q *queries) ListStages(ctx context.Context, jobID uuid.UUID) ([]PipelineStage, error) {
	return q.listStages(ctx,
		`SELECT `+stageColumns+` FROM pipeline_stages WHERE job_id = $1 ORDER BY position`, jobID)
}

// ListStagesForJobs retrieves the stages of several jobs ordered by job and position
func (q *queries) ListStagesForJobs(ctx context.Context, jobIDs []uuid.UUID) ([]PipelineStage, error) {
	if len(jobIDs) == 0 {
		return []PipelineStage{}, nil
	}
	return q.listStages(ctx,
		`SELECT `+stageColumns+` FROM pipeline_stages WHERE job_id = ANY($1) ORDER BY job_id, position`, jobIDs)
}

func (q *queries) listStages(ctx context.Context, query string, args ...any) ([]PipelineStage, error) {
	rows, err := q.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list stages: %w", err)
	}
	defer rows.Close()

	stages := []PipelineStage{}
	for rows.Next() {
		var s PipelineStage
		if err := scanStage(rows, &s); err != nil {
			return nil, fmt.Errorf("failed to scan stage: %w", err)
		}
		stages = append(stages, s)
	}
	return stages, rows.Err()
}

// UpdateStagePosition sets one stage's position. The (job_id, position)
// uniqueness check is deferred to commit.
func (q *queries) UpdateStagePosition(ctx context.Context, id uuid.UUID, position int) error {
	result, err := q.conn.Exec(ctx,
		`UPDATE pipeline_stages SET position = $1 WHERE id = $2`, position, id)
	if err != nil {
		return fmt.Errorf("failed to update stage position: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("stage not found: %s", id)
	}
	return nil
}

// DeleteStage removes a stage
func (q *queries) DeleteStage(ctx context.Context, id uuid.UUID) error {
	result, err := q.conn.Exec(ctx, `DELETE FROM pipeline_stages WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete stage: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("stage not found: %s", id)
	}
	return nil
}
