package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"app/internal/logger"
	"app/internal/model"
)

func TestSubmitBlockedAtLimit(t *testing.T) {
	subs := newFakeSubRepo()
	usage := newFakeUsageRepo()
	monthKey := MonthKey(time.Now())
	usage.rows[usageKey("user-1", monthKey)] = &model.UsageRecord{
		UserID: "user-1", MonthYear: monthKey, VideosProcessed: 5, PlanLimit: 5,
	}
	processing := &fakeProcessingClient{}
	svc := NewVideoService(NewUsageService(subs, usage, logger.New()), processing, logger.New())

	_, err := svc.Submit(context.Background(), "user-1", "https://youtu.be/abc", 0.5)
	if !errors.Is(err, ErrUsageLimitExceeded) {
		t.Fatalf("expected ErrUsageLimitExceeded, got %v", err)
	}
	if processing.submits != 0 {
		t.Fatal("a blocked submission must not reach the processing service")
	}
}

func TestSubmitIncrementsUsage(t *testing.T) {
	subs := newFakeSubRepo()
	usage := newFakeUsageRepo()
	processing := &fakeProcessingClient{}
	svc := NewVideoService(NewUsageService(subs, usage, logger.New()), processing, logger.New())

	result, err := svc.Submit(context.Background(), "user-1", "https://youtu.be/abc", 0.5)
	if err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}
	if result.TaskID != "task-1" {
		t.Fatalf("unexpected result: %+v", result)
	}
	row := usage.rows[usageKey("user-1", MonthKey(time.Now()))]
	if row == nil || row.VideosProcessed != 1 {
		t.Fatalf("expected usage 1 after submit, got %+v", row)
	}
}

func TestSubmitSurfacesIncrementFailure(t *testing.T) {
	subs := newFakeSubRepo()
	usage := newFakeUsageRepo()
	usage.failUpsert = true
	processing := &fakeProcessingClient{}
	svc := NewVideoService(NewUsageService(subs, usage, logger.New()), processing, logger.New())

	_, err := svc.Submit(context.Background(), "user-1", "https://youtu.be/abc", 0.5)
	if !errors.Is(err, ErrUsageNotRecorded) {
		t.Fatalf("expected ErrUsageNotRecorded, got %v", err)
	}
	if processing.submits != 1 {
		t.Fatal("the job was submitted before the increment failed")
	}
}

func TestStatusNotFound(t *testing.T) {
	svc := NewVideoService(NewUsageService(newFakeSubRepo(), newFakeUsageRepo(), logger.New()), &fakeProcessingClient{}, logger.New())

	_, err := svc.Status(context.Background(), "missing")
	if !errors.Is(err, ErrTaskNotFound) {
		t.Fatalf("expected ErrTaskNotFound, got %v", err)
	}
}
