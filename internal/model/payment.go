package model

import "time"

// Payment record statuses written by this service. Provider webhooks
// may store additional passthrough status strings on top of these.
const (
	PaymentApproved = "approved"
	PaymentFailed   = "failed"
)

// PaymentRecord is an append-only history row, one per provider
// transaction attempt.
type PaymentRecord struct {
	ID             string     `db:"id" json:"id"`
	UserID         string     `db:"user_id" json:"user_id"`
	SubscriptionID *string    `db:"subscription_id" json:"subscription_id,omitempty"`
	TossPaymentKey *string    `db:"toss_payment_key" json:"toss_payment_key,omitempty"`
	TossOrderID    string     `db:"toss_order_id" json:"toss_order_id"`
	Amount         int        `db:"amount" json:"amount"`
	Method         string     `db:"method" json:"method"`
	Status         string     `db:"status" json:"status"`
	ApprovedAt     *time.Time `db:"approved_at" json:"approved_at,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
}
