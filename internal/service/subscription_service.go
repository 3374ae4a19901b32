package service

import (
	"context"
	"errors"
	"time"

	"app/internal/model"
	"app/internal/plan"
	"app/internal/repository"

	"github.com/rs/zerolog"
)

// ErrNoPaidSubscription is returned when a cancel is requested for a
// user without a paid subscription.
var ErrNoPaidSubscription = errors.New("no paid subscription to cancel")

// consecutiveFailureLimit is the number of most-recent payment records
// that must all be failed before the subscription is auto-cancelled.
const consecutiveFailureLimit = 3

// SubscriptionService is the subscription state machine shared by the
// confirmation and webhook paths.
type SubscriptionService interface {
	GetSubscription(ctx context.Context, userID string) (*model.Subscription, error)
	GetActiveSubscription(ctx context.Context, userID string) (*model.Subscription, error)
	GetByOrderID(ctx context.Context, orderID string) (*model.Subscription, error)
	// ActivatePaidPlan applies the "payment confirmed" transition: the
	// user becomes active on planType for one calendar month from now.
	ActivatePaidPlan(ctx context.Context, userID, planType, paymentKey, orderID string) (*model.Subscription, error)
	// DowngradeToFree normalizes the user back to free/active. The
	// subscription write is authoritative; the usage-limit snapshot is
	// best effort and self-heals on the next read.
	DowngradeToFree(ctx context.Context, userID string) error
	// ApplyProviderStatus maps a provider subscription status onto the
	// local row and cascades a downgrade for terminal states.
	ApplyProviderStatus(ctx context.Context, sub *model.Subscription, providerStatus string) error
	// RecordRenewalFailure appends a failed renewal record and
	// auto-cancels after three consecutive failures.
	RecordRenewalFailure(ctx context.Context, userID, orderID string) error
	// Cancel turns off auto-renew only; the paid period runs to term.
	Cancel(ctx context.Context, userID string) error
}

type subscriptionService struct {
	subRepo     repository.SubscriptionRepository
	paymentRepo repository.PaymentRepository
	usageRepo   repository.UsageRepository
	logger      zerolog.Logger
	now         func() time.Time
}

// NewSubscriptionService creates a new SubscriptionService with a scoped logger.
func NewSubscriptionService(subRepo repository.SubscriptionRepository, paymentRepo repository.PaymentRepository, usageRepo repository.UsageRepository, logger zerolog.Logger) SubscriptionService {
	return &subscriptionService{
		subRepo:     subRepo,
		paymentRepo: paymentRepo,
		usageRepo:   usageRepo,
		logger:      logger.With().Str("service", "SubscriptionService").Logger(),
		now:         time.Now,
	}
}

// MonthKey returns the usage-accounting period key for t (UTC).
func MonthKey(t time.Time) string {
	return t.UTC().Format("2006-01")
}

func (s *subscriptionService) GetSubscription(ctx context.Context, userID string) (*model.Subscription, error) {
	sub, err := s.subRepo.GetByUserID(ctx, userID)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to fetch subscription")
		return nil, err
	}
	return sub, nil
}

func (s *subscriptionService) GetActiveSubscription(ctx context.Context, userID string) (*model.Subscription, error) {
	sub, err := s.subRepo.GetActiveByUserID(ctx, userID)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to fetch active subscription")
		return nil, err
	}
	return sub, nil
}

func (s *subscriptionService) GetByOrderID(ctx context.Context, orderID string) (*model.Subscription, error) {
	sub, err := s.subRepo.GetByOrderID(ctx, orderID)
	if err != nil {
		s.logger.Error().Err(err).Str("order_id", orderID).Msg("Failed to fetch subscription by order id")
		return nil, err
	}
	return sub, nil
}

func (s *subscriptionService) ActivatePaidPlan(ctx context.Context, userID, planType, paymentKey, orderID string) (*model.Subscription, error) {
	now := s.now().UTC()
	sub, err := s.subRepo.UpsertPaid(ctx, userID, planType, paymentKey, orderID, now, now.AddDate(0, 1, 0))
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Str("plan_type", planType).Msg("Failed to activate paid plan")
		return nil, err
	}
	return sub, nil
}

func (s *subscriptionService) DowngradeToFree(ctx context.Context, userID string) error {
	now := s.now().UTC()
	if err := s.subRepo.DowngradeToFree(ctx, userID, now, now.AddDate(0, 1, 0)); err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to downgrade user to free plan")
		return err
	}

	// Snapshot the free limit for the current month. Accumulated usage
	// is carried forward unchanged on a mid-month downgrade.
	freeLimit, err := plan.LimitFor(model.PlanFree)
	if err != nil {
		return err
	}
	if err := s.usageRepo.UpsertLimit(ctx, userID, MonthKey(now), freeLimit.Monthly); err != nil {
		// Non-fatal: the subscription transition is authoritative and a
		// stale counter is reinterpreted with the new limit on read.
		s.logger.Warn().Err(err).Str("user_id", userID).Msg("Failed to snapshot free plan limit after downgrade")
	}

	s.logger.Info().Str("user_id", userID).Msg("User downgraded to free plan")
	return nil
}

func (s *subscriptionService) ApplyProviderStatus(ctx context.Context, sub *model.Subscription, providerStatus string) error {
	var newStatus string
	switch providerStatus {
	case "ACTIVE":
		newStatus = model.StatusActive
	case "CANCELED", "CANCELLED":
		newStatus = model.StatusCancelled
	default:
		// EXPIRED and anything unrecognized
		newStatus = model.StatusExpired
	}

	if err := s.subRepo.UpdateStatus(ctx, sub.ID, newStatus); err != nil {
		s.logger.Error().Err(err).Str("subscription_id", sub.ID).Str("status", newStatus).Msg("Failed to update subscription status")
		return err
	}

	if newStatus == model.StatusCancelled || newStatus == model.StatusExpired {
		return s.DowngradeToFree(ctx, sub.UserID)
	}
	return nil
}

func (s *subscriptionService) RecordRenewalFailure(ctx context.Context, userID, orderID string) error {
	rec := &model.PaymentRecord{
		UserID:      userID,
		TossOrderID: orderID,
		Amount:      0,
		Method:      "subscription_renewal",
		Status:      model.PaymentFailed,
	}
	if err := s.paymentRepo.Insert(ctx, rec); err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to record renewal failure")
		return err
	}
	return s.checkConsecutiveFailures(ctx, userID)
}

// checkConsecutiveFailures auto-cancels the subscription when the
// user's most recent payment records are all failed. The window is
// global per user, not scoped to the current billing period.
func (s *subscriptionService) checkConsecutiveFailures(ctx context.Context, userID string) error {
	records, err := s.paymentRepo.ListRecentByUser(ctx, userID, consecutiveFailureLimit)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to check consecutive payment failures")
		return err
	}
	if len(records) < consecutiveFailureLimit {
		return nil
	}
	for _, rec := range records {
		if rec.Status != model.PaymentFailed {
			return nil
		}
	}

	if err := s.subRepo.ForceCancel(ctx, userID); err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to auto-cancel subscription")
		return err
	}
	s.logger.Info().Str("user_id", userID).Msg("Auto-cancelled subscription after consecutive payment failures")
	return s.DowngradeToFree(ctx, userID)
}

func (s *subscriptionService) Cancel(ctx context.Context, userID string) error {
	sub, err := s.subRepo.GetByUserID(ctx, userID)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to fetch subscription for cancel")
		return err
	}
	if sub == nil || sub.PlanType == model.PlanFree {
		return ErrNoPaidSubscription
	}
	if err := s.subRepo.SetAutoRenew(ctx, userID, false); err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to turn off auto-renew")
		return err
	}
	return nil
}
