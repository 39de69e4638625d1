package analytics

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/jonathan/talent-pipeline/internal/rbac"
)

// Dashboard computes every report concurrently. The SLA section is left
// empty for roles without sla:read rather than failing the whole dashboard.
func (s *Service) Dashboard(ctx context.Context, q Query) (*Dashboard, error) {
	if err := rbac.Authorize(q.Principal(), rbac.AnalyticsRead); err != nil {
		return nil, err
	}

	out := &Dashboard{SLA: SLAStatus{Jobs: []JobSLA{}}}
	var mu sync.Mutex
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		r, err := s.KPIs(gCtx, q)
		if err != nil {
			return err
		}
		mu.Lock()
		out.KPIs = *r
		mu.Unlock()
		return nil
	})
	g.Go(func() error {
		r, err := s.Funnel(gCtx, q)
		if err != nil {
			return err
		}
		mu.Lock()
		out.Funnel = *r
		mu.Unlock()
		return nil
	})
	g.Go(func() error {
		r, err := s.TimeInStage(gCtx, q)
		if err != nil {
			return err
		}
		mu.Lock()
		out.TimeInStage = *r
		mu.Unlock()
		return nil
	})
	g.Go(func() error {
		r, err := s.RejectionReasons(gCtx, q)
		if err != nil {
			return err
		}
		mu.Lock()
		out.RejectionReasons = *r
		mu.Unlock()
		return nil
	})
	if rbac.HasPermission(q.Role, rbac.SLARead) {
		g.Go(func() error {
			r, err := s.SLAStatus(gCtx, q)
			if err != nil {
				return err
			}
			mu.Lock()
			out.SLA = *r
			mu.Unlock()
			return nil
		})
	}
	g.Go(func() error {
		r, err := s.Productivity(gCtx, q)
		if err != nil {
			return err
		}
		mu.Lock()
		out.Productivity = *r
		mu.Unlock()
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
