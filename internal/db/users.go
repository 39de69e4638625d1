package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jonathan/talent-pipeline/internal/rbac"
)

// -----------------------------------------------------------------------------
// User Methods
// -----------------------------------------------------------------------------

// CreateUser inserts a company member. Duplicate emails yield *apperr.ConflictError.
func (q *queries) CreateUser(ctx context.Context, input *UserCreateInput) (*User, error) {
	var u User
	err := q.conn.QueryRow(ctx,
		`INSERT INTO users (company_id, name, email, role) VALUES ($1, $2, $3, $4)
		 RETURNING id, company_id, name, email, role, created_at`,
		input.CompanyID, input.Name, input.Email, input.Role,
	).Scan(&u.ID, &u.CompanyID, &u.Name, &u.Email, &u.Role, &u.CreatedAt)
	if err != nil {
		return nil, conflictOr(err, "user", "email already registered: "+input.Email, "failed to create user")
	}
	return &u, nil
}

// GetUser retrieves a user by ID
func (q *queries) GetUser(ctx context.Context, id uuid.UUID) (*User, error) {
	var u User
	err := q.conn.QueryRow(ctx,
		`SELECT id, company_id, name, email, role, created_at FROM users WHERE id = $1`, id,
	).Scan(&u.ID, &u.CompanyID, &u.Name, &u.Email, &u.Role, &u.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}

// ListUsers retrieves a company's users, optionally restricted to roles
func (q *queries) ListUsers(ctx context.Context, companyID uuid.UUID, roles ...rbac.Role) ([]User, error) {
	query := `SELECT id, company_id, name, email, role, created_at FROM users WHERE company_id = $1`
	args := []any{companyID}
	if len(roles) > 0 {
		names := make([]string, len(roles))
		for i, r := range roles {
			names[i] = string(r)
		}
		query += " AND role = ANY($2)"
		args = append(args, names)
	}
	query += " ORDER BY name"

	rows, err := q.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	out := []User{}
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.CompanyID, &u.Name, &u.Email, &u.Role, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// -----------------------------------------------------------------------------
// SLA Config Methods
// -----------------------------------------------------------------------------

// UpsertSLAConfig creates or replaces the threshold for a stage name (case-insensitive)
func (q *queries) UpsertSLAConfig(ctx context.Context, input *SLAConfigInput) (*SLAConfig, error) {
	var c SLAConfig
	err := q.conn.QueryRow(ctx,
		`INSERT INTO sla_configs (company_id, stage_name, threshold_days)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (company_id, lower(stage_name)) DO UPDATE
		     SET stage_name = EXCLUDED.stage_name, threshold_days = EXCLUDED.threshold_days, updated_at = NOW()
		 RETURNING id, company_id, stage_name, threshold_days, updated_at`,
		input.CompanyID, input.StageName, input.ThresholdDays,
	).Scan(&c.ID, &c.CompanyID, &c.StageName, &c.ThresholdDays, &c.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert sla config: %w", err)
	}
	return &c, nil
}

// ListSLAConfigs retrieves a company's SLA thresholds
func (q *queries) ListSLAConfigs(ctx context.Context, companyID uuid.UUID) ([]SLAConfig, error) {
	rows, err := q.conn.Query(ctx,
		`SELECT id, company_id, stage_name, threshold_days, updated_at
		 FROM sla_configs WHERE company_id = $1 ORDER BY stage_name`, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sla configs: %w", err)
	}
	defer rows.Close()

	out := []SLAConfig{}
	for rows.Next() {
		var c SLAConfig
		if err := rows.Scan(&c.ID, &c.CompanyID, &c.StageName, &c.ThresholdDays, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan sla config: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// -----------------------------------------------------------------------------
// Notification Methods
// -----------------------------------------------------------------------------

// CreateNotification stores an in-app notification
func (q *queries) CreateNotification(ctx context.Context, input *NotificationCreateInput) (*Notification, error) {
	var n Notification
	var entityType *string
	err := q.conn.QueryRow(ctx,
		`INSERT INTO notifications (user_id, type, title, message, entity_type, entity_id)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, user_id, type, title, message, entity_type, entity_id, read_at, created_at`,
		input.UserID, input.Type, input.Title, input.Message, nullIfEmpty(input.EntityType), input.EntityID,
	).Scan(&n.ID, &n.UserID, &n.Type, &n.Title, &n.Message, &entityType, &n.EntityID, &n.ReadAt, &n.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create notification: %w", err)
	}
	n.EntityType = derefString(entityType)
	return &n, nil
}

// ListNotifications retrieves a user's notifications, newest first
func (q *queries) ListNotifications(ctx context.Context, userID uuid.UUID) ([]Notification, error) {
	rows, err := q.conn.Query(ctx,
		`SELECT id, user_id, type, title, message, entity_type, entity_id, read_at, created_at
		 FROM notifications WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	out := []Notification{}
	for rows.Next() {
		var n Notification
		var entityType *string
		if err := rows.Scan(&n.ID, &n.UserID, &n.Type, &n.Title, &n.Message, &entityType,
			&n.EntityID, &n.ReadAt, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		n.EntityType = derefString(entityType)
		out = append(out, n)
	}
	return out, rows.Err()
}
