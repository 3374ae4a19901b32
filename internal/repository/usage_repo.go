package repository

import (
	"context"
	"errors"
	"fmt"

	"app/internal/model"

	"github.com/jackc/pgx/v5"
)

// UsageRepository stores per-month processing counters.
type UsageRepository interface {
	// Get returns the usage row for the month, or nil if none exists.
	Get(ctx context.Context, userID, monthYear string) (*model.UsageRecord, error)
	// Upsert writes the counter and limit snapshot for the month,
	// overwriting any existing values.
	Upsert(ctx context.Context, userID, monthYear string, videosProcessed, planLimit int) error
	// UpsertLimit snapshots a new plan limit for the month while
	// carrying the accumulated count forward unchanged.
	UpsertLimit(ctx context.Context, userID, monthYear string, planLimit int) error
}

type usageRepo struct {
	db DB
}

// NewUsageRepo creates a new UsageRepository.
func NewUsageRepo(db DB) UsageRepository {
	return &usageRepo{db: db}
}

func (r *usageRepo) Get(ctx context.Context, userID, monthYear string) (*model.UsageRecord, error) {
	const q = `
        SELECT user_id, month_year, videos_processed, plan_limit, updated_at
        FROM usage_records
        WHERE user_id = $1 AND month_year = $2
    `
	var u model.UsageRecord
	err := r.db.QueryRow(ctx, q, userID, monthYear).Scan(
		&u.UserID,
		&u.MonthYear,
		&u.VideosProcessed,
		&u.PlanLimit,
		&u.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetch usage for user %s month %s: %w", userID, monthYear, err)
	}
	return &u, nil
}

func (r *usageRepo) Upsert(ctx context.Context, userID, monthYear string, videosProcessed, planLimit int) error {
	const q = `
        INSERT INTO usage_records (user_id, month_year, videos_processed, plan_limit, updated_at)
        VALUES ($1, $2, $3, $4, NOW())
        ON CONFLICT (user_id, month_year) DO UPDATE
        SET videos_processed = EXCLUDED.videos_processed,
            plan_limit = EXCLUDED.plan_limit,
            updated_at = NOW()
    `
	if _, err := r.db.Exec(ctx, q, userID, monthYear, videosProcessed, planLimit); err != nil {
		return fmt.Errorf("upsert usage for user %s month %s: %w", userID, monthYear, err)
	}
	return nil
}

func (r *usageRepo) UpsertLimit(ctx context.Context, userID, monthYear string, planLimit int) error {
	const q = `
        INSERT INTO usage_records (user_id, month_year, videos_processed, plan_limit, updated_at)
        VALUES ($1, $2, 0, $3, NOW())
        ON CONFLICT (user_id, month_year) DO UPDATE
        SET plan_limit = EXCLUDED.plan_limit,
            updated_at = NOW()
    `
	if _, err := r.db.Exec(ctx, q, userID, monthYear, planLimit); err != nil {
		return fmt.Errorf("snapshot plan limit for user %s month %s: %w", userID, monthYear, err)
	}
	return nil
}
