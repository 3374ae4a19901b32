package dto

import "time"

// SubscriptionResponseDTO is the user's current subscription view
type SubscriptionResponseDTO struct {
	PlanType           string    `json:"plan_type"`
	Status             string    `json:"status"`
	CurrentPeriodStart time.Time `json:"current_period_start"`
	CurrentPeriodEnd   time.Time `json:"current_period_end"`
	AutoRenew          bool      `json:"auto_renew"`
}
