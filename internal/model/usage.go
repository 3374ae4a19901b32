package model

import "time"

// UsageRecord counts processed videos for a user within a calendar
// month (unique on user_id + month_year). A new month always starts a
// fresh row at zero; there is no in-place reset.
type UsageRecord struct {
	UserID          string    `db:"user_id" json:"user_id"`
	MonthYear       string    `db:"month_year" json:"month_year"`
	VideosProcessed int       `db:"videos_processed" json:"videos_processed"`
	PlanLimit       int       `db:"plan_limit" json:"plan_limit"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// UsageInfo is the projection served to the UI and the processing
// pipeline before a quota-gated action.
type UsageInfo struct {
	CurrentUsage   int    `json:"current_usage"`
	PlanLimit      int    `json:"plan_limit"`
	PlanType       string `json:"plan_type"`
	HasLimit       bool   `json:"has_limit"`
	RemainingUsage int    `json:"remaining_usage"`
	ResetDate      string `json:"reset_date"`
}
