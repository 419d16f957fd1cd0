package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/account-academy/backoffice-api/internal/models"
	"github.com/account-academy/backoffice-api/internal/repository"
	appErrors "github.com/account-academy/backoffice-api/pkg/errors"
)

type roleCounter interface {
	CountByRole(ctx context.Context, role models.UserRole) (int, error)
}

type courseCounter interface {
	Count(ctx context.Context, publishedOnly bool) (int, error)
}

type financeTotals interface {
	Totals(ctx context.Context) (revenue, adSpend, profit float64, err error)
}

type invoiceTotals interface {
	TotalExpense(ctx context.Context) (float64, error)
}

type dashboardCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// DashboardService assembles the back-office landing summary. The rollup
// touches several tables, so the result is cached.
type DashboardService struct {
	users    roleCounter
	courses  courseCounter
	finances financeTotals
	invoices invoiceTotals
	cache    dashboardCache
	ttl      time.Duration
	logger   *zap.Logger
}

// NewDashboardService constructs the dashboard service.
func NewDashboardService(users roleCounter, courses courseCounter, finances financeTotals, invoices invoiceTotals, cache dashboardCache, ttl time.Duration, logger *zap.Logger) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &DashboardService{users: users, courses: courses, finances: finances, invoices: invoices, cache: cache, ttl: ttl, logger: logger}
}

// Summary returns the cached landing rollup, computing it on a miss.
func (s *DashboardService) Summary(ctx context.Context) (*models.DashboardSummary, error) {
	if s.cache != nil {
		var cached models.DashboardSummary
		if err := s.cache.Get(ctx, repository.DashboardKey, &cached); err == nil {
			return &cached, nil
		} else if !appErrors.HasCode(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("dashboard cache read failed", zap.Error(err))
		}
	}

	students, err := s.users.CountByRole(ctx, models.RoleStudent)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count students")
	}
	coaches, err := s.users.CountByRole(ctx, models.RoleCoach)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count coaches")
	}
	courses, err := s.courses.Count(ctx, false)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count courses")
	}
	revenue, adSpend, profit, err := s.finances.Totals(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sum finances")
	}
	expense, err := s.invoices.TotalExpense(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sum invoices")
	}

	summary := &models.DashboardSummary{
		TotalStudents:  students,
		TotalCoaches:   coaches,
		TotalCourses:   courses,
		TotalRevenue:   revenue,
		TotalAdSpend:   adSpend,
		TotalProfit:    profit,
		InvoiceExpense: expense,
		GeneratedAt:    time.Now().UTC(),
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, repository.DashboardKey, summary, s.ttl); err != nil {
			s.logger.Warn("dashboard cache write failed", zap.Error(err))
		}
	}
	return summary, nil
}
