package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hazelpoint/tutorhub-api/internal/dto"
)

type staffSummaryProvider interface {
	StaffSummary(ctx context.Context, staffID string, now time.Time) (*dto.StaffDashboard, error)
	StudentSummary(ctx context.Context, studentID string) (*dto.StudentDashboard, error)
}

// DashboardService serves the portal landing summaries with a short-lived
// cache in front of the aggregation queries.
type DashboardService struct {
	summaries staffSummaryProvider
	cache     *CacheService
	ttl       time.Duration
	logger    *zap.Logger
	now       func() time.Time
}

// NewDashboardService constructs the dashboard service.
func NewDashboardService(summaries staffSummaryProvider, cache *CacheService, ttl time.Duration, logger *zap.Logger) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &DashboardService{
		summaries: summaries,
		cache:     cache,
		ttl:       ttl,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Staff returns the day/week/month hour summaries for one staff member.
func (s *DashboardService) Staff(ctx context.Context, staffID string) (*dto.StaffDashboard, error) {
	key := fmt.Sprintf("dashboard:staff:%s", staffID)
	var cached dto.StaffDashboard
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return &cached, nil
	}

	dashboard, err := s.summaries.StaffSummary(ctx, staffID, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, key, dashboard, s.ttl); err != nil {
		s.logger.Debug("dashboard cache write failed", zap.String("key", key), zap.Error(err))
	}
	return dashboard, nil
}

// Student returns every entry attributed to one student with summed hours.
func (s *DashboardService) Student(ctx context.Context, studentID string) (*dto.StudentDashboard, error) {
	key := fmt.Sprintf("dashboard:student:%s", studentID)
	var cached dto.StudentDashboard
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return &cached, nil
	}

	dashboard, err := s.summaries.StudentSummary(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, key, dashboard, s.ttl); err != nil {
		s.logger.Debug("dashboard cache write failed", zap.String("key", key), zap.Error(err))
	}
	return dashboard, nil
}

// InvalidateStaff drops cached dashboards after a time log mutation.
func (s *DashboardService) InvalidateStaff(ctx context.Context, staffID string) {
	if err := s.cache.Invalidate(ctx, fmt.Sprintf("dashboard:staff:%s", staffID)); err != nil {
		s.logger.Debug("dashboard invalidation failed", zap.String("staff_id", staffID), zap.Error(err))
	}
	// Student dashboards depend on attribution, which a staff mutation may
	// have changed. Broad invalidation keeps them consistent.
	if err := s.cache.Invalidate(ctx, "dashboard:student:*"); err != nil {
		s.logger.Debug("student dashboard invalidation failed", zap.Error(err))
	}
}
