package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"app/internal/model"

	"github.com/jackc/pgx/v5"
)

// SubscriptionRepository defines methods for accessing subscription data.
type SubscriptionRepository interface {
	// GetByUserID returns the user's subscription row, or nil if none exists.
	GetByUserID(ctx context.Context, userID string) (*model.Subscription, error)
	// GetActiveByUserID returns the user's subscription only while status is 'active', or nil.
	GetActiveByUserID(ctx context.Context, userID string) (*model.Subscription, error)
	// GetByOrderID locates a subscription by its provider order reference, or nil.
	GetByOrderID(ctx context.Context, orderID string) (*model.Subscription, error)
	// UpsertPaid activates a paid plan for the user, replacing the whole billing period.
	UpsertPaid(ctx context.Context, userID, planType, paymentKey, orderID string, periodStart, periodEnd time.Time) (*model.Subscription, error)
	// DowngradeToFree normalizes the row back to free/active with provider refs cleared.
	DowngradeToFree(ctx context.Context, userID string, periodStart, periodEnd time.Time) error
	// UpdateStatus sets the status of a subscription row by id.
	UpdateStatus(ctx context.Context, subscriptionID, status string) error
	// SetAutoRenew toggles auto_renew without touching plan or status.
	SetAutoRenew(ctx context.Context, userID string, autoRenew bool) error
	// ForceCancel marks the subscription cancelled with auto_renew off.
	ForceCancel(ctx context.Context, userID string) error
}

type subscriptionRepo struct {
	db DB
}

// NewSubscriptionRepo creates a new SubscriptionRepository.
func NewSubscriptionRepo(db DB) SubscriptionRepository {
	return &subscriptionRepo{db: db}
}

const subscriptionColumns = `id, user_id, plan_type, status, current_period_start, current_period_end, auto_renew, toss_payment_key, toss_order_id, created_at, updated_at`

func scanSubscription(row pgx.Row) (*model.Subscription, error) {
	var s model.Subscription
	err := row.Scan(
		&s.ID,
		&s.UserID,
		&s.PlanType,
		&s.Status,
		&s.CurrentPeriodStart,
		&s.CurrentPeriodEnd,
		&s.AutoRenew,
		&s.TossPaymentKey,
		&s.TossOrderID,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *subscriptionRepo) GetByUserID(ctx context.Context, userID string) (*model.Subscription, error) {
	q := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE user_id = $1`
	s, err := scanSubscription(r.db.QueryRow(ctx, q, userID))
	if err != nil {
		return nil, fmt.Errorf("fetch subscription for user %s: %w", userID, err)
	}
	return s, nil
}

func (r *subscriptionRepo) GetActiveByUserID(ctx context.Context, userID string) (*model.Subscription, error) {
	q := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE user_id = $1 AND status = 'active'`
	s, err := scanSubscription(r.db.QueryRow(ctx, q, userID))
	if err != nil {
		return nil, fmt.Errorf("fetch active subscription for user %s: %w", userID, err)
	}
	return s, nil
}

func (r *subscriptionRepo) GetByOrderID(ctx context.Context, orderID string) (*model.Subscription, error) {
	q := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE toss_order_id = $1`
	s, err := scanSubscription(r.db.QueryRow(ctx, q, orderID))
	if err != nil {
		return nil, fmt.Errorf("fetch subscription for order %s: %w", orderID, err)
	}
	return s, nil
}

// UpsertPaid activates a paid plan for the user. The upsert-by-user_id
// makes a retried confirmation naturally idempotent.
func (r *subscriptionRepo) UpsertPaid(ctx context.Context, userID, planType, paymentKey, orderID string, periodStart, periodEnd time.Time) (*model.Subscription, error) {
	q := `
        INSERT INTO subscriptions (user_id, plan_type, status, current_period_start, current_period_end, auto_renew, toss_payment_key, toss_order_id, created_at, updated_at)
        VALUES ($1, $2, 'active', $3, $4, TRUE, $5, $6, NOW(), NOW())
        ON CONFLICT (user_id) DO UPDATE
        SET plan_type = EXCLUDED.plan_type,
            status = EXCLUDED.status,
            current_period_start = EXCLUDED.current_period_start,
            current_period_end = EXCLUDED.current_period_end,
            auto_renew = EXCLUDED.auto_renew,
            toss_payment_key = EXCLUDED.toss_payment_key,
            toss_order_id = EXCLUDED.toss_order_id,
            updated_at = NOW()
        RETURNING ` + subscriptionColumns
	s, err := scanSubscription(r.db.QueryRow(ctx, q, userID, planType, periodStart, periodEnd, paymentKey, orderID))
	if err != nil {
		return nil, fmt.Errorf("upsert paid subscription for user %s: %w", userID, err)
	}
	return s, nil
}

// DowngradeToFree normalizes the subscription back to free/active and
// clears the provider references.
func (r *subscriptionRepo) DowngradeToFree(ctx context.Context, userID string, periodStart, periodEnd time.Time) error {
	const q = `
        UPDATE subscriptions
        SET plan_type = 'free',
            status = 'active',
            current_period_start = $2,
            current_period_end = $3,
            auto_renew = TRUE,
            toss_payment_key = NULL,
            toss_order_id = NULL,
            updated_at = NOW()
        WHERE user_id = $1
    `
	if _, err := r.db.Exec(ctx, q, userID, periodStart, periodEnd); err != nil {
		return fmt.Errorf("downgrade user %s to free plan: %w", userID, err)
	}
	return nil
}

func (r *subscriptionRepo) UpdateStatus(ctx context.Context, subscriptionID, status string) error {
	const q = `UPDATE subscriptions SET status = $2, updated_at = NOW() WHERE id = $1`
	if _, err := r.db.Exec(ctx, q, subscriptionID, status); err != nil {
		return fmt.Errorf("update status of subscription %s: %w", subscriptionID, err)
	}
	return nil
}

func (r *subscriptionRepo) SetAutoRenew(ctx context.Context, userID string, autoRenew bool) error {
	const q = `UPDATE subscriptions SET auto_renew = $2, updated_at = NOW() WHERE user_id = $1`
	if _, err := r.db.Exec(ctx, q, userID, autoRenew); err != nil {
		return fmt.Errorf("set auto_renew for user %s: %w", userID, err)
	}
	return nil
}

func (r *subscriptionRepo) ForceCancel(ctx context.Context, userID string) error {
	const q = `UPDATE subscriptions SET status = 'cancelled', auto_renew = FALSE, updated_at = NOW() WHERE user_id = $1`
	if _, err := r.db.Exec(ctx, q, userID); err != nil {
		return fmt.Errorf("force-cancel subscription for user %s: %w", userID, err)
	}
	return nil
}
