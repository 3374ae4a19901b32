package service

import (
	"context"
	"time"

	"app/internal/model"
	"app/internal/plan"
	"app/internal/repository"

	"github.com/rs/zerolog"
)

// UsageService is the usage accountant for quota-gated actions.
//
// CheckLimit followed by IncrementUsage is an advisory check, not an
// atomic reservation: two concurrent actions can both pass the check
// before either increments, so the limit is soft by up to the
// concurrency degree. Callers must evaluate CheckLimit against a
// freshly fetched UsageInfo.
type UsageService interface {
	GetUsage(ctx context.Context, userID string) (*model.UsageInfo, error)
	CheckLimit(info *model.UsageInfo) bool
	// IncrementUsage bumps the current month's counter. A false return
	// means the write failed; the caller's action must not be treated
	// as quota-exempt.
	IncrementUsage(ctx context.Context, userID string) bool
}

type usageService struct {
	subRepo   repository.SubscriptionRepository
	usageRepo repository.UsageRepository
	logger    zerolog.Logger
	now       func() time.Time
}

// NewUsageService creates a new UsageService with a scoped logger.
func NewUsageService(subRepo repository.SubscriptionRepository, usageRepo repository.UsageRepository, logger zerolog.Logger) UsageService {
	return &usageService{
		subRepo:   subRepo,
		usageRepo: usageRepo,
		logger:    logger.With().Str("service", "UsageService").Logger(),
		now:       time.Now,
	}
}

// GetUsage resolves the user's plan (free when no active subscription
// exists) and reads the current month's counter. A missing row reads
// as zero; reads never create rows.
func (s *usageService) GetUsage(ctx context.Context, userID string) (*model.UsageInfo, error) {
	sub, err := s.subRepo.GetActiveByUserID(ctx, userID)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to fetch subscription for usage")
		return nil, err
	}

	planType := model.PlanFree
	if sub != nil {
		planType = sub.PlanType
	}
	limit, err := plan.LimitFor(planType)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Str("plan_type", planType).Msg("Plan configuration error")
		return nil, err
	}

	now := s.now().UTC()
	usage, err := s.usageRepo.Get(ctx, userID, MonthKey(now))
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to fetch usage record")
		return nil, err
	}
	currentUsage := 0
	if usage != nil {
		currentUsage = usage.VideosProcessed
	}

	remaining := limit.Monthly - currentUsage
	if remaining < 0 {
		remaining = 0
	}
	// Counters reset implicitly on the first day of the next month,
	// because a new month key starts a fresh row at zero.
	resetDate := time.Date(now.Year(), now.Month()+1, 1, 0, 0, 0, 0, time.UTC)

	return &model.UsageInfo{
		CurrentUsage:   currentUsage,
		PlanLimit:      limit.Monthly,
		PlanType:       planType,
		HasLimit:       !limit.Unlimited,
		RemainingUsage: remaining,
		ResetDate:      resetDate.Format("2006-01-02"),
	}, nil
}

func (s *usageService) CheckLimit(info *model.UsageInfo) bool {
	if info == nil {
		return false
	}
	return !info.HasLimit || info.RemainingUsage > 0
}

func (s *usageService) IncrementUsage(ctx context.Context, userID string) bool {
	info, err := s.GetUsage(ctx, userID)
	if err != nil {
		return false
	}
	monthKey := MonthKey(s.now())
	if err := s.usageRepo.Upsert(ctx, userID, monthKey, info.CurrentUsage+1, info.PlanLimit); err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Str("month", monthKey).Msg("Failed to increment usage")
		return false
	}
	return true
}
