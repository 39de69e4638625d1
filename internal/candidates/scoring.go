package candidates

import (
	"context"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jonathan/talent-pipeline/internal/apperr"
	"github.com/jonathan/talent-pipeline/internal/db"
	"github.com/jonathan/talent-pipeline/internal/rbac"
)

// ScoreUpdate carries the scores to write. Nil fields keep their stored
// value. An explicit Overall wins over the computed average.
type ScoreUpdate struct {
	Domain              *float64 `json:"domain" validate:"omitnil,gte=0,lte=100"`
	Industry            *float64 `json:"industry" validate:"omitnil,gte=0,lte=100"`
	KeyResponsibilities *float64 `json:"key_responsibilities" validate:"omitnil,gte=0,lte=100"`
	Overall             *float64 `json:"overall" validate:"omitnil,gte=0,lte=100"`
}

func (u ScoreUpdate) empty() bool {
	return u.Domain == nil && u.Industry == nil && u.KeyResponsibilities == nil && u.Overall == nil
}

// CalculateOverallScore returns the unweighted mean of the non-nil scores,
// or nil when all are nil.
func CalculateOverallScore(domain, industry, keyResponsibilities *float64) *float64 {
	var sum float64
	n := 0
	for _, v := range []*float64{domain, industry, keyResponsibilities} {
		if v != nil {
			sum += *v
			n++
		}
	}
	if n == 0 {
		return nil
	}
	avg := sum / float64(n)
	return &avg
}

// UpdateScore validates and writes a candidate's scores and appends a
// score_updated activity recording old and new values. Out-of-range values
// are rejected before the store is touched.
func (s *Service) UpdateScore(ctx context.Context, actor rbac.Principal, candidateID uuid.UUID, req ScoreUpdate) (*db.Candidate, error) {
	if err := rbac.Authorize(actor, rbac.CandidatesScore); err != nil {
		return nil, err
	}
	if err := s.validate.Struct(req); err != nil {
		return nil, apperr.FromValidator(err)
	}
	if req.empty() {
		return nil, apperr.Validation("", "at least one score is required")
	}

	var updated db.Candidate
	now := s.now()
	err := s.store.InTx(ctx, func(q db.Querier) error {
		cand, err := s.loadCandidate(ctx, q, actor, candidateID)
		if err != nil {
			return err
		}
		old := db.CandidateScores{
			Domain:              cand.DomainScore,
			Industry:            cand.IndustryScore,
			KeyResponsibilities: cand.KeyResponsibilitiesScore,
			Overall:             cand.OverallScore,
		}
		next := mergeScores(old, req)

		if err := q.UpdateCandidateScores(ctx, cand.ID, next); err != nil {
			return err
		}
		_, err = q.CreateActivity(ctx, &db.ActivityCreateInput{
			CandidateID:  cand.ID,
			ActorID:      &actor.UserID,
			ActivityType: db.ActivityScoreUpdated,
			Description:  fmt.Sprintf("Overall score changed from %s to %s", formatScore(old.Overall), formatScore(next.Overall)),
			Metadata: db.ScoreUpdateMetadata{
				OldScore: old.Overall,
				NewScore: next.Overall,
				Old:      old,
				New:      next,
			},
			CreatedAt: now,
		})
		if err != nil {
			return err
		}

		updated = *cand
		updated.DomainScore = next.Domain
		updated.IndustryScore = next.Industry
		updated.KeyResponsibilitiesScore = next.KeyResponsibilities
		updated.OverallScore = next.Overall
		updated.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("candidate score updated",
		zap.Stringer("candidate_id", candidateID),
		zap.String("overall", formatScore(updated.OverallScore)))
	s.invalidate(ctx, updated.CompanyID)
	return &updated, nil
}

func mergeScores(old db.CandidateScores, req ScoreUpdate) db.CandidateScores {
	next := old
	if req.Domain != nil {
		next.Domain = req.Domain
	}
	if req.Industry != nil {
		next.Industry = req.Industry
	}
	if req.KeyResponsibilities != nil {
		next.KeyResponsibilities = req.KeyResponsibilities
	}
	if req.Overall != nil {
		next.Overall = req.Overall
	} else {
		next.Overall = CalculateOverallScore(next.Domain, next.Industry, next.KeyResponsibilities)
	}
	return next
}

// formatScore renders a score for activity text; nil is "unset".
func formatScore(v *float64) string {
	if v == nil {
		return "unset"
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
