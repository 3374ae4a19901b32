package repository

import (
	"context"
	"fmt"

	"app/internal/model"
)

// PaymentRepository stores the append-only payment history.
type PaymentRepository interface {
	// Insert appends one transaction attempt to the history.
	Insert(ctx context.Context, rec *model.PaymentRecord) error
	// UpdateStatusByPaymentKey applies a provider status change to the
	// matching history rows.
	UpdateStatusByPaymentKey(ctx context.Context, paymentKey, status string) error
	// ListRecentByUser returns up to limit records for the user,
	// most recent first.
	ListRecentByUser(ctx context.Context, userID string, limit int) ([]model.PaymentRecord, error)
}

type paymentRepo struct {
	db DB
}

// NewPaymentRepo creates a new PaymentRepository.
func NewPaymentRepo(db DB) PaymentRepository {
	return &paymentRepo{db: db}
}

func (r *paymentRepo) Insert(ctx context.Context, rec *model.PaymentRecord) error {
	const q = `
        INSERT INTO payment_history (user_id, subscription_id, toss_payment_key, toss_order_id, amount, method, status, approved_at, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
    `
	_, err := r.db.Exec(ctx, q,
		rec.UserID,
		rec.SubscriptionID,
		rec.TossPaymentKey,
		rec.TossOrderID,
		rec.Amount,
		rec.Method,
		rec.Status,
		rec.ApprovedAt,
	)
	if err != nil {
		return fmt.Errorf("insert payment record for user %s: %w", rec.UserID, err)
	}
	return nil
}

func (r *paymentRepo) UpdateStatusByPaymentKey(ctx context.Context, paymentKey, status string) error {
	const q = `UPDATE payment_history SET status = $2 WHERE toss_payment_key = $1`
	if _, err := r.db.Exec(ctx, q, paymentKey, status); err != nil {
		return fmt.Errorf("update payment status for key %s: %w", paymentKey, err)
	}
	return nil
}

func (r *paymentRepo) ListRecentByUser(ctx context.Context, userID string, limit int) ([]model.PaymentRecord, error) {
	const q = `
        SELECT id, user_id, subscription_id, toss_payment_key, toss_order_id, amount, method, status, approved_at, created_at
        FROM payment_history
        WHERE user_id = $1
        ORDER BY created_at DESC
        LIMIT $2
    `
	rows, err := r.db.Query(ctx, q, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list payment records for user %s: %w", userID, err)
	}
	defer rows.Close()

	var records []model.PaymentRecord
	for rows.Next() {
		var rec model.PaymentRecord
		if err := rows.Scan(
			&rec.ID,
			&rec.UserID,
			&rec.SubscriptionID,
			&rec.TossPaymentKey,
			&rec.TossOrderID,
			&rec.Amount,
			&rec.Method,
			&rec.Status,
			&rec.ApprovedAt,
			&rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan payment record for user %s: %w", userID, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list payment records for user %s: %w", userID, err)
	}
	return records, nil
}
