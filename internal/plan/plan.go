// Package plan is the quota policy: a closed table mapping plan types
// to monthly processing limits and checkout amounts to plan types.
package plan

import (
	"errors"
	"fmt"

	"app/internal/model"
)

// Checkout amounts in KRW. The confirm flow resolves the plan by exact
// amount; anything else is rejected as unsupported.
const (
	ProPrice      = 9900
	BusinessPrice = 29900
)

// UnlimitedSentinel is the stored limit for plans treated as
// unlimited. It is a concrete integer (not math.MaxInt) because the
// value is snapshotted into usage_records.plan_limit.
const UnlimitedSentinel = 999

// ErrUnsupportedAmount is returned when a confirmed payment amount
// does not match any paid plan's price.
var ErrUnsupportedAmount = errors.New("unsupported plan amount")

// Limit describes the monthly quota of a plan.
type Limit struct {
	Monthly   int
	Unlimited bool
}

var limits = map[string]Limit{
	model.PlanFree:     {Monthly: 5},
	model.PlanPro:      {Monthly: 50},
	model.PlanBusiness: {Monthly: UnlimitedSentinel, Unlimited: true},
}

var names = map[string]string{
	model.PlanFree:     "Free Plan",
	model.PlanPro:      "Pro Plan",
	model.PlanBusiness: "Business Plan",
}

// LimitFor returns the monthly limit for a plan type. An unknown plan
// type is a configuration error, never a silent default.
func LimitFor(planType string) (Limit, error) {
	l, ok := limits[planType]
	if !ok {
		return Limit{}, fmt.Errorf("unknown plan type %q", planType)
	}
	return l, nil
}

// Name returns the display name for a plan type.
func Name(planType string) string {
	return names[planType]
}

// ByAmount resolves a plan type from an exact checkout amount.
func ByAmount(amount int) (string, error) {
	switch amount {
	case ProPrice:
		return model.PlanPro, nil
	case BusinessPrice:
		return model.PlanBusiness, nil
	default:
		return "", fmt.Errorf("%w: %d", ErrUnsupportedAmount, amount)
	}
}
