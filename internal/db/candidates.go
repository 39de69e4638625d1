package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// -----------------------------------------------------------------------------
// Candidate Methods
// -----------------------------------------------------------------------------

const candidateColumns = `id, company_id, first_name, last_name, email, COALESCE(phone, ''),
	COALESCE(location, ''), experience_years, skills, domain_score, industry_score,
	key_responsibilities_score, overall_score, created_at, updated_at`

func scanCandidate(row pgx.Row, c *Candidate) error {
	return row.Scan(&c.ID, &c.CompanyID, &c.FirstName, &c.LastName, &c.Email, &c.Phone,
		&c.Location, &c.ExperienceYears, &c.Skills, &c.DomainScore, &c.IndustryScore,
		&c.KeyResponsibilitiesScore, &c.OverallScore, &c.CreatedAt, &c.UpdatedAt)
}

// CreateCandidate inserts a candidate. A duplicate email within the company
// yields *apperr.ConflictError.
func (q *queries) CreateCandidate(ctx context.Context, input *CandidateCreateInput) (*Candidate, error) {
	skills := input.Skills
	if skills == nil {
		skills = []string{}
	}

	var c Candidate
	err := scanCandidate(q.conn.QueryRow(ctx,
		`INSERT INTO candidates (company_id, first_name, last_name, email, phone, location,
		                         experience_years, skills)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING `+candidateColumns,
		input.CompanyID, input.FirstName, input.LastName, input.Email,
		nullIfEmpty(input.Phone), nullIfEmpty(input.Location), input.ExperienceYears, skills,
	), &c)
	if err != nil {
		return nil, conflictOr(err, "candidate", "email already registered: "+input.Email, "failed to create candidate")
	}
	return &c, nil
}

// GetCandidate retrieves a candidate by ID
func (q *queries) GetCandidate(ctx context.Context, id uuid.UUID) (*Candidate, error) {
	var c Candidate
	err := scanCandidate(q.conn.QueryRow(ctx,
		`SELECT `+candidateColumns+` FROM candidates WHERE id = $1`, id), &c)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get candidate: %w", err)
	}
	return &c, nil
}

// UpdateCandidateScores overwrites every score column
func (q *queries) UpdateCandidateScores(ctx context.Context, id uuid.UUID, scores CandidateScores) error {
	result, err := q.conn.Exec(ctx,
		`UPDATE candidates
		 SET domain_score = $1, industry_score = $2, key_responsibilities_score = $3,
		     overall_score = $4, updated_at = NOW()
		 WHERE id = $5`,
		scores.Domain, scores.Industry, scores.KeyResponsibilities, scores.Overall, id)
	if err != nil {
		return fmt.Errorf("failed to update candidate scores: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("candidate not found: %s", id)
	}
	return nil
}

// -----------------------------------------------------------------------------
// Job Candidate Methods
// -----------------------------------------------------------------------------

const jobCandidateColumns = `id, job_id, candidate_id, current_stage_id, added_by_id, applied_at, updated_at`

func scanJobCandidate(row pgx.Row, jc *JobCandidate) error {
	return row.Scan(&jc.ID, &jc.JobID, &jc.CandidateID, &jc.CurrentStageID, &jc.AddedByID,
		&jc.AppliedAt, &jc.UpdatedAt)
}

// CreateJobCandidate attaches a candidate to a job. Applying twice to the
// same job yields *apperr.ConflictError.
func (q *queries) CreateJobCandidate(ctx context.Context, input *JobCandidateCreateInput) (*JobCandidate, error) {
	appliedAt := input.AppliedAt
	if appliedAt.IsZero() {
		appliedAt = time.Now()
	}

	var jc JobCandidate
	err := scanJobCandidate(q.conn.QueryRow(ctx,
		`INSERT INTO job_candidates (job_id, candidate_id, current_stage_id, added_by_id, applied_at)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING `+jobCandidateColumns,
		input.JobID, input.CandidateID, input.CurrentStageID, input.AddedByID, appliedAt,
	), &jc)
	if err != nil {
		return nil, conflictOr(err, "job candidate", "candidate already applied to this job", "failed to create job candidate")
	}
	return &jc, nil
}

// GetJobCandidate retrieves a job candidate by ID
func (q *queries) GetJobCandidate(ctx context.Context, id uuid.UUID) (*JobCandidate, error) {
	var jc JobCandidate
	err := scanJobCandidate(q.conn.QueryRow(ctx,
		`SELECT `+jobCandidateColumns+` FROM job_candidates WHERE id = $1`, id), &jc)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get job candidate: %w", err)
	}
	return &jc, nil
}

// ListJobCandidates retrieves every job candidate of the given jobs
func (q *queries) ListJobCandidates(ctx context.Context, jobIDs []uuid.UUID) ([]JobCandidate, error) {
	out := []JobCandidate{}
	if len(jobIDs) == 0 {
		return out, nil
	}

	rows, err := q.conn.Query(ctx,
		`SELECT `+jobCandidateColumns+` FROM job_candidates WHERE job_id = ANY($1) ORDER BY applied_at`, jobIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to list job candidates: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var jc JobCandidate
		if err := scanJobCandidate(rows, &jc); err != nil {
			return nil, fmt.Errorf("failed to scan job candidate: %w", err)
		}
		out = append(out, jc)
	}
	return out, rows.Err()
}

// CountJobCandidatesInStage counts job candidates whose current stage is stageID
func (q *queries) CountJobCandidatesInStage(ctx context.Context, stageID uuid.UUID) (int, error) {
	var n int
	err := q.conn.QueryRow(ctx,
		`SELECT COUNT(*) FROM job_candidates WHERE current_stage_id = $1`, stageID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count job candidates: %w", err)
	}
	return n, nil
}

// CountStageHistory counts ledger entries that reference stageID
func (q *queries) CountStageHistory(ctx context.Context, stageID uuid.UUID) (int, error) {
	var n int
	err := q.conn.QueryRow(ctx,
		`SELECT COUNT(*) FROM stage_history WHERE stage_id = $1`, stageID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count stage history: %w", err)
	}
	return n, nil
}

// UpdateJobCandidateStage moves the current stage pointer
func (q *queries) UpdateJobCandidateStage(ctx context.Context, id, stageID uuid.UUID) error {
	result, err := q.conn.Exec(ctx,
		`UPDATE job_candidates SET current_stage_id = $1, updated_at = NOW() WHERE id = $2`, stageID, id)
	if err != nil {
		return fmt.Errorf("failed to update job candidate stage: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("job candidate not found: %s", id)
	}
	return nil
}

// -----------------------------------------------------------------------------
// Stage History Methods
// -----------------------------------------------------------------------------

const stageHistoryColumns = `id, job_candidate_id, stage_id, entered_at, exited_at, duration_hours, comment, moved_by_id`

func scanStageHistory(row pgx.Row, h *StageHistory) error {
	return row.Scan(&h.ID, &h.JobCandidateID, &h.StageID, &h.EnteredAt, &h.ExitedAt,
		&h.DurationHours, &h.Comment, &h.MovedByID)
}

// CreateStageHistory opens a ledger entry
func (q *queries) CreateStageHistory(ctx context.Context, input *StageHistoryCreateInput) (*StageHistory, error) {
	var h StageHistory
	err := scanStageHistory(q.conn.QueryRow(ctx,
		`INSERT INTO stage_history (job_candidate_id, stage_id, entered_at, comment, moved_by_id)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING `+stageHistoryColumns,
		input.JobCandidateID, input.StageID, input.EnteredAt, input.Comment, input.MovedByID,
	), &h)
	if err != nil {
		return nil, fmt.Errorf("failed to create stage history: %w", err)
	}
	return &h, nil
}

// GetOpenStageHistory retrieves the job candidate's open ledger entry, locking it
// for the rest of the transaction
func (q *queries) GetOpenStageHistory(ctx context.Context, jobCandidateID uuid.UUID) (*StageHistory, error) {
	var h StageHistory
	err := scanStageHistory(q.conn.QueryRow(ctx,
		`SELECT `+stageHistoryColumns+` FROM stage_history
		 WHERE job_candidate_id = $1 AND exited_at IS NULL
		 ORDER BY entered_at DESC LIMIT 1
		 FOR UPDATE`, jobCandidateID), &h)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get open stage history: %w", err)
	}
	return &h, nil
}

// CloseStageHistory sets exited_at and duration on an entry
func (q *queries) CloseStageHistory(ctx context.Context, id uuid.UUID, exitedAt time.Time, durationHours float64) error {
	result, err := q.conn.Exec(ctx,
		`UPDATE stage_history SET exited_at = $1, duration_hours = $2
		 WHERE id = $3 AND exited_at IS NULL`, exitedAt, durationHours, id)
	if err != nil {
		return fmt.Errorf("failed to close stage history: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("open stage history not found: %s", id)
	}
	return nil
}

// ListStageHistory retrieves the ledger of several job candidates in entry order
func (q *queries) ListStageHistory(ctx context.Context, jobCandidateIDs []uuid.UUID) ([]StageHistory, error) {
	out := []StageHistory{}
	if len(jobCandidateIDs) == 0 {
		return out, nil
	}

	rows, err := q.conn.Query(ctx,
		`SELECT `+stageHistoryColumns+` FROM stage_history
		 WHERE job_candidate_id = ANY($1) ORDER BY job_candidate_id, entered_at`, jobCandidateIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to list stage history: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var h StageHistory
		if err := scanStageHistory(rows, &h); err != nil {
			return nil, fmt.Errorf("failed to scan stage history: %w", err)
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// -----------------------------------------------------------------------------
// Candidate Activity Methods
// -----------------------------------------------------------------------------

// CreateActivity appends an activity. Metadata is stored as JSONB.
func (q *queries) CreateActivity(ctx context.Context, input *ActivityCreateInput) (*CandidateActivity, error) {
	var metadataJSON []byte
	if input.Metadata != nil {
		var err error
		metadataJSON, err = json.Marshal(input.Metadata)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal activity metadata: %w", err)
		}
	}
	createdAt := input.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	var a CandidateActivity
	err := q.conn.QueryRow(ctx,
		`INSERT INTO candidate_activities (candidate_id, job_candidate_id, actor_id, activity_type,
		                                   description, metadata, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, candidate_id, job_candidate_id, actor_id, activity_type, description, metadata, created_at`,
		input.CandidateID, input.JobCandidateID, input.ActorID, input.ActivityType,
		input.Description, metadataJSON, createdAt,
	).Scan(&a.ID, &a.CandidateID, &a.JobCandidateID, &a.ActorID, &a.ActivityType,
		&a.Description, &metadataJSON, &a.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create activity: %w", err)
	}
	a.Metadata = metadataJSON
	return &a, nil
}

// ListActivities retrieves a candidate's timeline, oldest first
func (q *queries) ListActivities(ctx context.Context, candidateID uuid.UUID) ([]CandidateActivity, error) {
	rows, err := q.conn.Query(ctx,
		`SELECT id, candidate_id, job_candidate_id, actor_id, activity_type, description, metadata, created_at
		 FROM candidate_activities WHERE candidate_id = $1 ORDER BY created_at, id`, candidateID)
	if err != nil {
		return nil, fmt.Errorf("failed to list activities: %w", err)
	}
	defer rows.Close()

	out := []CandidateActivity{}
	for rows.Next() {
		var a CandidateActivity
		var metadataJSON []byte
		if err := rows.Scan(&a.ID, &a.CandidateID, &a.JobCandidateID, &a.ActorID, &a.ActivityType,
			&a.Description, &metadataJSON, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan activity: %w", err)
		}
		a.Metadata = metadataJSON
		out = append(out, a)
	}
	return out, rows.Err()
}
