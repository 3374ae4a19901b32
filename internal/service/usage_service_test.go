package service

import (
	"context"
	"testing"
	"time"

	"app/internal/logger"
	"app/internal/model"
)

func newTestUsageService(subs *fakeSubRepo, usage *fakeUsageRepo) *usageService {
	return NewUsageService(subs, usage, logger.New()).(*usageService)
}

func TestGetUsageDefaultsToFreePlan(t *testing.T) {
	svc := newTestUsageService(newFakeSubRepo(), newFakeUsageRepo())

	info, err := svc.GetUsage(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("GetUsage returned error: %v", err)
	}
	if info.PlanType != model.PlanFree || info.PlanLimit != 5 || !info.HasLimit {
		t.Fatalf("expected free plan defaults, got %+v", info)
	}
	if info.CurrentUsage != 0 || info.RemainingUsage != 5 {
		t.Fatalf("missing row must read as zero usage, got %+v", info)
	}
}

func TestGetUsageDoesNotCreateRows(t *testing.T) {
	usage := newFakeUsageRepo()
	svc := newTestUsageService(newFakeSubRepo(), usage)

	if _, err := svc.GetUsage(context.Background(), "user-1"); err != nil {
		t.Fatalf("GetUsage returned error: %v", err)
	}
	if len(usage.rows) != 0 {
		t.Fatal("a read must not create usage rows")
	}
}

func TestGetUsageBusinessPlanIsUnlimited(t *testing.T) {
	subs := newFakeSubRepo()
	subs.subs["user-1"] = &model.Subscription{ID: "sub-1", UserID: "user-1", PlanType: model.PlanBusiness, Status: model.StatusActive}
	svc := newTestUsageService(subs, newFakeUsageRepo())

	info, err := svc.GetUsage(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("GetUsage returned error: %v", err)
	}
	if info.HasLimit {
		t.Fatalf("business plan must be unlimited, got %+v", info)
	}
	if info.PlanLimit != 999 {
		t.Fatalf("stored limit snapshot should be the sentinel 999, got %d", info.PlanLimit)
	}
	if !svc.CheckLimit(info) {
		t.Fatal("CheckLimit must pass for unlimited plans")
	}
}

func TestCheckLimitAtCap(t *testing.T) {
	subs := newFakeSubRepo()
	usage := newFakeUsageRepo()
	monthKey := MonthKey(time.Now())
	usage.rows[usageKey("user-1", monthKey)] = &model.UsageRecord{
		UserID: "user-1", MonthYear: monthKey, VideosProcessed: 5, PlanLimit: 5,
	}
	svc := newTestUsageService(subs, usage)

	info, err := svc.GetUsage(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("GetUsage returned error: %v", err)
	}
	if svc.CheckLimit(info) {
		t.Fatalf("CheckLimit must fail at 5/5, got %+v", info)
	}
}

func TestIncrementUsageToCap(t *testing.T) {
	subs := newFakeSubRepo()
	usage := newFakeUsageRepo()
	monthKey := MonthKey(time.Now())
	usage.rows[usageKey("user-1", monthKey)] = &model.UsageRecord{
		UserID: "user-1", MonthYear: monthKey, VideosProcessed: 4, PlanLimit: 5,
	}
	svc := newTestUsageService(subs, usage)

	if !svc.IncrementUsage(context.Background(), "user-1") {
		t.Fatal("IncrementUsage failed")
	}
	info, err := svc.GetUsage(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("GetUsage returned error: %v", err)
	}
	if info.CurrentUsage != 5 || info.RemainingUsage != 0 {
		t.Fatalf("expected 5 used, 0 remaining, got %+v", info)
	}
}

func TestIncrementUsageReportsWriteFailure(t *testing.T) {
	usage := newFakeUsageRepo()
	usage.failUpsert = true
	svc := newTestUsageService(newFakeSubRepo(), usage)

	if svc.IncrementUsage(context.Background(), "user-1") {
		t.Fatal("IncrementUsage must return false when the write fails")
	}
}

func TestMonthBoundaryStartsFreshCounter(t *testing.T) {
	subs := newFakeSubRepo()
	usage := newFakeUsageRepo()
	usage.rows[usageKey("user-1", "2024-05")] = &model.UsageRecord{
		UserID: "user-1", MonthYear: "2024-05", VideosProcessed: 5, PlanLimit: 5,
	}
	svc := newTestUsageService(subs, usage)
	svc.now = func() time.Time { return time.Date(2024, 6, 2, 10, 0, 0, 0, time.UTC) }

	info, err := svc.GetUsage(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("GetUsage returned error: %v", err)
	}
	if info.CurrentUsage != 0 || info.RemainingUsage != 5 {
		t.Fatalf("May's counter must not influence June, got %+v", info)
	}
	if info.ResetDate != "2024-07-01" {
		t.Fatalf("reset date = %s, want 2024-07-01", info.ResetDate)
	}
}
