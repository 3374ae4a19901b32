package plan

import (
	"errors"
	"testing"

	"app/internal/model"
)

func TestLimitFor(t *testing.T) {
	cases := []struct {
		planType  string
		monthly   int
		unlimited bool
	}{
		{model.PlanFree, 5, false},
		{model.PlanPro, 50, false},
		{model.PlanBusiness, UnlimitedSentinel, true},
	}
	for _, tc := range cases {
		l, err := LimitFor(tc.planType)
		if err != nil {
			t.Fatalf("LimitFor(%s) returned error: %v", tc.planType, err)
		}
		if l.Monthly != tc.monthly || l.Unlimited != tc.unlimited {
			t.Fatalf("LimitFor(%s) = %+v, want monthly %d unlimited %v", tc.planType, l, tc.monthly, tc.unlimited)
		}
	}
}

func TestLimitForUnknownPlan(t *testing.T) {
	if _, err := LimitFor("enterprise"); err == nil {
		t.Fatal("expected configuration error for unknown plan type")
	}
}

func TestByAmount(t *testing.T) {
	if p, err := ByAmount(ProPrice); err != nil || p != model.PlanPro {
		t.Fatalf("ByAmount(%d) = %q, %v; want pro", ProPrice, p, err)
	}
	if p, err := ByAmount(BusinessPrice); err != nil || p != model.PlanBusiness {
		t.Fatalf("ByAmount(%d) = %q, %v; want business", BusinessPrice, p, err)
	}
}

func TestByAmountRejectsUnknownAmounts(t *testing.T) {
	for _, amount := range []int{0, 1, 9899, 9901, 30000} {
		if _, err := ByAmount(amount); !errors.Is(err, ErrUnsupportedAmount) {
			t.Fatalf("ByAmount(%d) = %v, want ErrUnsupportedAmount", amount, err)
		}
	}
}
