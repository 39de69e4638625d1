// Package analytics reduces the stage ledger, interviews and feedback into
// dashboard reports.
package analytics

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jonathan/talent-pipeline/internal/apperr"
	"github.com/jonathan/talent-pipeline/internal/db"
	"github.com/jonathan/talent-pipeline/internal/observability"
	"github.com/jonathan/talent-pipeline/internal/rbac"
)

// Report names, used in cache keys and metric labels
const (
	ReportFunnel           = "funnel"
	ReportTimeInStage      = "time_in_stage"
	ReportRejectionReasons = "rejection_reasons"
	ReportSLA              = "sla"
	ReportProductivity     = "productivity"
	ReportKPIs             = "kpis"
)

// DefaultCacheTTL applies when Options.TTL is not positive. Cached entries
// always expire so time-dependent reports such as SLA age out.
const DefaultCacheTTL = 5 * time.Minute

// Options configure a Service. A nil Cache disables caching.
type Options struct {
	Cache          Cache
	TTL            time.Duration
	SLADefaultDays float64
	Logger         *zap.Logger
}

// Service computes analytics reports. It never writes candidate data.
type Service struct {
	store          db.Querier
	cache          Cache
	ttl            time.Duration
	slaDefaultDays float64
	logger         *zap.Logger
	validate       *validator.Validate
	now            func() time.Time
}

// NewService creates an analytics service.
func NewService(store db.Querier, opts Options) *Service {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.SLADefaultDays <= 0 {
		opts.SLADefaultDays = 7
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultCacheTTL
	}
	return &Service{
		store:          store,
		cache:          opts.Cache,
		ttl:            opts.TTL,
		slaDefaultDays: opts.SLADefaultDays,
		logger:         opts.Logger,
		validate:       apperr.NewValidator(),
		now:            time.Now,
	}
}

// WithClock replaces the clock SLA ages are measured against and returns s.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Invalidate drops every cached report of the company.
func (s *Service) Invalidate(ctx context.Context, companyID uuid.UUID) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Invalidate(ctx, companyID)
}

// ---- Report Methods ----

// Funnel counts, per stage name, the applicants that are or were in it.
func (s *Service) Funnel(ctx context.Context, q Query) (*Funnel, error) {
	return report(ctx, s, ReportFunnel, rbac.AnalyticsRead, q, func(ctx context.Context) (Funnel, error) {
		ds, err := load(ctx, s.store, q, loadOptions{})
		if err != nil {
			return Funnel{}, err
		}
		return computeFunnel(ds, q.Filters), nil
	})
}

// TimeInStage averages closed ledger entries per stage name and flags the
// slowest stage.
func (s *Service) TimeInStage(ctx context.Context, q Query) (*TimeInStage, error) {
	return report(ctx, s, ReportTimeInStage, rbac.AnalyticsRead, q, func(ctx context.Context) (TimeInStage, error) {
		ds, err := load(ctx, s.store, q, loadOptions{})
		if err != nil {
			return TimeInStage{}, err
		}
		return computeTimeInStage(ds, q.Filters), nil
	})
}

// RejectionReasons groups commented entries of rejection stages by reason.
func (s *Service) RejectionReasons(ctx context.Context, q Query) (*RejectionReasons, error) {
	return report(ctx, s, ReportRejectionReasons, rbac.AnalyticsRead, q, func(ctx context.Context) (RejectionReasons, error) {
		ds, err := load(ctx, s.store, q, loadOptions{})
		if err != nil {
			return RejectionReasons{}, err
		}
		return computeRejectionReasons(ds, q.Filters), nil
	})
}

// SLAStatus classifies every active job against the company's thresholds.
func (s *Service) SLAStatus(ctx context.Context, q Query) (*SLAStatus, error) {
	return report(ctx, s, ReportSLA, rbac.SLARead, q, func(ctx context.Context) (SLAStatus, error) {
		ds, err := load(ctx, s.store, q, loadOptions{})
		if err != nil {
			return SLAStatus{}, err
		}
		configs, err := s.store.ListSLAConfigs(ctx, q.CompanyID)
		if err != nil {
			return SLAStatus{}, err
		}
		return computeSLA(ds, configs, s.slaDefaultDays, s.now()), nil
	})
}

// Productivity reports recruiter and panel member activity.
func (s *Service) Productivity(ctx context.Context, q Query) (*Productivity, error) {
	return report(ctx, s, ReportProductivity, rbac.AnalyticsRead, q, func(ctx context.Context) (Productivity, error) {
		ds, err := load(ctx, s.store, q, loadOptions{interviews: true})
		if err != nil {
			return Productivity{}, err
		}
		users, err := s.store.ListUsers(ctx, q.CompanyID)
		if err != nil {
			return Productivity{}, err
		}
		return computeProductivity(ds, users, q.Filters), nil
	})
}

// KPIs returns the headline numbers.
func (s *Service) KPIs(ctx context.Context, q Query) (*KPIs, error) {
	return report(ctx, s, ReportKPIs, rbac.AnalyticsRead, q, func(ctx context.Context) (KPIs, error) {
		ds, err := load(ctx, s.store, q, loadOptions{interviews: true})
		if err != nil {
			return KPIs{}, err
		}
		return computeKPIs(ds, q.Filters), nil
	})
}

// report authorizes the query, then serves it from the cache or computes and
// stores it. Cache failures are logged and fall through to computing.
func report[T any](ctx context.Context, s *Service, name string, perm rbac.Permission, q Query, compute func(context.Context) (T, error)) (*T, error) {
	if err := rbac.Authorize(q.Principal(), perm); err != nil {
		return nil, err
	}

	start := time.Now()
	status := "disabled"
	defer func() {
		observability.ObserveSince(observability.AnalyticsDuration.WithLabelValues(name, status), start)
	}()

	if s.cache == nil {
		out, err := compute(ctx)
		if err != nil {
			return nil, err
		}
		return &out, nil
	}

	version, err := s.cache.Version(ctx, q.CompanyID)
	if err != nil {
		s.logger.Warn("failed to read analytics cache version",
			zap.String("report", name),
			zap.Error(err))
		status = "error"
		out, err := compute(ctx)
		if err != nil {
			return nil, err
		}
		return &out, nil
	}

	key := reportKey(name, version, q)
	var out T
	hit, err := s.cache.Get(ctx, key, &out)
	if err != nil {
		s.logger.Warn("failed to read analytics cache",
			zap.String("key", key),
			zap.Error(err))
	}
	if hit {
		status = "hit"
		return &out, nil
	}

	status = "miss"
	out, err = compute(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, key, out, s.ttl); err != nil {
		s.logger.Warn("failed to write analytics cache",
			zap.String("key", key),
			zap.Error(err))
	}
	return &out, nil
}

// ---- SLA Config Methods ----

// SLAConfigRequest sets the threshold of one stage name
type SLAConfigRequest struct {
	StageName     string  `json:"stage_name" validate:"required,max=100"`
	ThresholdDays float64 `json:"threshold_days" validate:"gt=0,lte=365"`
}

// SetSLAConfig creates or replaces the company's threshold for a stage name.
func (s *Service) SetSLAConfig(ctx context.Context, actor rbac.Principal, req SLAConfigRequest) (*db.SLAConfig, error) {
	if err := rbac.Authorize(actor, rbac.SLAUpdate); err != nil {
		return nil, err
	}
	req.StageName = strings.TrimSpace(req.StageName)
	if err := s.validate.Struct(req); err != nil {
		return nil, apperr.FromValidator(err)
	}

	cfg, err := s.store.UpsertSLAConfig(ctx, &db.SLAConfigInput{
		CompanyID:     actor.CompanyID,
		StageName:     req.StageName,
		ThresholdDays: req.ThresholdDays,
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("sla config updated",
		zap.String("stage_name", cfg.StageName),
		zap.Float64("threshold_days", cfg.ThresholdDays))
	if err := s.Invalidate(ctx, actor.CompanyID); err != nil {
		s.logger.Warn("failed to invalidate analytics cache", zap.Error(err))
	}
	return cfg, nil
}

// ListSLAConfigs returns the company's configured thresholds.
func (s *Service) ListSLAConfigs(ctx context.Context, actor rbac.Principal) ([]db.SLAConfig, error) {
	if err := rbac.Authorize(actor, rbac.SLARead); err != nil {
		return nil, err
	}
	return s.store.ListSLAConfigs(ctx, actor.CompanyID)
}
