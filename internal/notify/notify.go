// Package notify fans in-app notifications out to the people who follow a
// job. Delivery is best effort: failures are logged and counted, never
// returned to the caller.
package notify

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jonathan/talent-pipeline/internal/db"
	"github.com/jonathan/talent-pipeline/internal/observability"
	"github.com/jonathan/talent-pipeline/internal/rbac"
)

// Message is a notification addressed to everyone interested in a job.
type Message struct {
	Type       string
	Title      string
	Body       string
	EntityType string
	EntityID   *uuid.UUID
}

// Notifier delivers a Message about job to its recipients, skipping actor.
type Notifier interface {
	NotifyJob(ctx context.Context, job *db.Job, actor uuid.UUID, msg Message)
}

// DBNotifier stores notifications in the notifications table.
type DBNotifier struct {
	q      db.Querier
	logger *zap.Logger
}

// NewDBNotifier creates a notifier writing through q.
func NewDBNotifier(q db.Querier, logger *zap.Logger) *DBNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DBNotifier{q: q, logger: logger}
}

// NotifyJob implements Notifier.
func (n *DBNotifier) NotifyJob(ctx context.Context, job *db.Job, actor uuid.UUID, msg Message) {
	recipients, err := Recipients(ctx, n.q, job, actor)
	if err != nil {
		observability.NotificationFailures.WithLabelValues(msg.Type).Inc()
		n.logger.Warn("failed to resolve notification recipients",
			zap.String("type", msg.Type),
			zap.Stringer("job_id", job.ID),
			zap.Error(err))
		return
	}

	for _, userID := range recipients {
		_, err := n.q.CreateNotification(ctx, &db.NotificationCreateInput{
			UserID:     userID,
			Type:       msg.Type,
			Title:      msg.Title,
			Message:    msg.Body,
			EntityType: msg.EntityType,
			EntityID:   msg.EntityID,
		})
		if err != nil {
			observability.NotificationFailures.WithLabelValues(msg.Type).Inc()
			n.logger.Warn("failed to create notification",
				zap.String("type", msg.Type),
				zap.Stringer("user_id", userID),
				zap.Error(err))
		}
	}
}

// Recipients returns the job's assigned recruiter followed by the company's
// admins and hiring managers, deduplicated and without actor.
func Recipients(ctx context.Context, q db.Querier, job *db.Job, actor uuid.UUID) ([]uuid.UUID, error) {
	managers, err := q.ListUsers(ctx, job.CompanyID, rbac.RoleAdmin, rbac.RoleHiringManager)
	if err != nil {
		return nil, fmt.Errorf("failed to list managers: %w", err)
	}

	seen := map[uuid.UUID]bool{actor: true}
	var out []uuid.UUID
	add := func(id uuid.UUID) {
		if id == uuid.Nil || seen[id] {
			return
		}
		seen[id] = true
		out = append(out, id)
	}

	if job.AssignedRecruiterID != nil {
		add(*job.AssignedRecruiterID)
	}
	for _, u := range managers {
		add(u.ID)
	}
	return out, nil
}

// Nop discards every message.
type Nop struct{}

// NotifyJob implements Notifier.
func (Nop) NotifyJob(context.Context, *db.Job, uuid.UUID, Message) {}
