package model

import "time"

// Subscription plan types.
const (
	PlanFree     = "free"
	PlanPro      = "pro"
	PlanBusiness = "business"
)

// Subscription statuses.
const (
	StatusActive    = "active"
	StatusCancelled = "cancelled"
	StatusExpired   = "expired"
)

// Subscription is the single current subscription row for a user
// (unique on user_id).
type Subscription struct {
	ID                 string    `db:"id" json:"id"`
	UserID             string    `db:"user_id" json:"user_id"`
	PlanType           string    `db:"plan_type" json:"plan_type"`
	Status             string    `db:"status" json:"status"`
	CurrentPeriodStart time.Time `db:"current_period_start" json:"current_period_start"`
	CurrentPeriodEnd   time.Time `db:"current_period_end" json:"current_period_end"`
	AutoRenew          bool      `db:"auto_renew" json:"auto_renew"`
	TossPaymentKey     *string   `db:"toss_payment_key" json:"toss_payment_key,omitempty"`
	TossOrderID        *string   `db:"toss_order_id" json:"toss_order_id,omitempty"`
	CreatedAt          time.Time `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time `db:"updated_at" json:"updated_at"`
}
