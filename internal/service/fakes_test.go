package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"app/internal/model"
)

// In-memory repository fakes used across the service tests.

type fakeSubRepo struct {
	subs         map[string]*model.Subscription
	nextID       int
	failUpsert   bool
	forceCancels int
}

func newFakeSubRepo() *fakeSubRepo {
	return &fakeSubRepo{subs: map[string]*model.Subscription{}}
}

func (f *fakeSubRepo) GetByUserID(_ context.Context, userID string) (*model.Subscription, error) {
	if s, ok := f.subs[userID]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeSubRepo) GetActiveByUserID(_ context.Context, userID string) (*model.Subscription, error) {
	if s, ok := f.subs[userID]; ok && s.Status == model.StatusActive {
		cp := *s
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeSubRepo) GetByOrderID(_ context.Context, orderID string) (*model.Subscription, error) {
	for _, s := range f.subs {
		if s.TossOrderID != nil && *s.TossOrderID == orderID {
			cp := *s
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeSubRepo) UpsertPaid(_ context.Context, userID, planType, paymentKey, orderID string, periodStart, periodEnd time.Time) (*model.Subscription, error) {
	if f.failUpsert {
		return nil, errors.New("upsert failed")
	}
	s, ok := f.subs[userID]
	if !ok {
		f.nextID++
		s = &model.Subscription{ID: fmt.Sprintf("sub-%d", f.nextID), UserID: userID, CreatedAt: time.Now()}
		f.subs[userID] = s
	}
	s.PlanType = planType
	s.Status = model.StatusActive
	s.CurrentPeriodStart = periodStart
	s.CurrentPeriodEnd = periodEnd
	s.AutoRenew = true
	s.TossPaymentKey = &paymentKey
	s.TossOrderID = &orderID
	s.UpdatedAt = time.Now()
	cp := *s
	return &cp, nil
}

func (f *fakeSubRepo) DowngradeToFree(_ context.Context, userID string, periodStart, periodEnd time.Time) error {
	s, ok := f.subs[userID]
	if !ok {
		return nil
	}
	s.PlanType = model.PlanFree
	s.Status = model.StatusActive
	s.CurrentPeriodStart = periodStart
	s.CurrentPeriodEnd = periodEnd
	s.AutoRenew = true
	s.TossPaymentKey = nil
	s.TossOrderID = nil
	s.UpdatedAt = time.Now()
	return nil
}

func (f *fakeSubRepo) UpdateStatus(_ context.Context, subscriptionID, status string) error {
	for _, s := range f.subs {
		if s.ID == subscriptionID {
			s.Status = status
			s.UpdatedAt = time.Now()
			return nil
		}
	}
	return nil
}

func (f *fakeSubRepo) SetAutoRenew(_ context.Context, userID string, autoRenew bool) error {
	if s, ok := f.subs[userID]; ok {
		s.AutoRenew = autoRenew
	}
	return nil
}

func (f *fakeSubRepo) ForceCancel(_ context.Context, userID string) error {
	f.forceCancels++
	if s, ok := f.subs[userID]; ok {
		s.Status = model.StatusCancelled
		s.AutoRenew = false
	}
	return nil
}

type fakePaymentRepo struct {
	records    []model.PaymentRecord
	failInsert bool
}

func (f *fakePaymentRepo) Insert(_ context.Context, rec *model.PaymentRecord) error {
	if f.failInsert {
		return errors.New("insert failed")
	}
	cp := *rec
	cp.ID = fmt.Sprintf("pay-%d", len(f.records)+1)
	cp.CreatedAt = time.Now().Add(time.Duration(len(f.records)) * time.Millisecond)
	f.records = append(f.records, cp)
	return nil
}

func (f *fakePaymentRepo) UpdateStatusByPaymentKey(_ context.Context, paymentKey, status string) error {
	for i := range f.records {
		if f.records[i].TossPaymentKey != nil && *f.records[i].TossPaymentKey == paymentKey {
			f.records[i].Status = status
		}
	}
	return nil
}

func (f *fakePaymentRepo) ListRecentByUser(_ context.Context, userID string, limit int) ([]model.PaymentRecord, error) {
	var out []model.PaymentRecord
	for i := len(f.records) - 1; i >= 0 && len(out) < limit; i-- {
		if f.records[i].UserID == userID {
			out = append(out, f.records[i])
		}
	}
	return out, nil
}

type fakeUsageRepo struct {
	rows       map[string]*model.UsageRecord
	failUpsert bool
}

func newFakeUsageRepo() *fakeUsageRepo {
	return &fakeUsageRepo{rows: map[string]*model.UsageRecord{}}
}

func usageKey(userID, monthYear string) string { return userID + "|" + monthYear }

func (f *fakeUsageRepo) Get(_ context.Context, userID, monthYear string) (*model.UsageRecord, error) {
	if u, ok := f.rows[usageKey(userID, monthYear)]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeUsageRepo) Upsert(_ context.Context, userID, monthYear string, videosProcessed, planLimit int) error {
	if f.failUpsert {
		return errors.New("upsert failed")
	}
	f.rows[usageKey(userID, monthYear)] = &model.UsageRecord{
		UserID:          userID,
		MonthYear:       monthYear,
		VideosProcessed: videosProcessed,
		PlanLimit:       planLimit,
		UpdatedAt:       time.Now(),
	}
	return nil
}

func (f *fakeUsageRepo) UpsertLimit(_ context.Context, userID, monthYear string, planLimit int) error {
	if f.failUpsert {
		return errors.New("upsert failed")
	}
	if u, ok := f.rows[usageKey(userID, monthYear)]; ok {
		u.PlanLimit = planLimit
		u.UpdatedAt = time.Now()
		return nil
	}
	f.rows[usageKey(userID, monthYear)] = &model.UsageRecord{
		UserID:    userID,
		MonthYear: monthYear,
		PlanLimit: planLimit,
		UpdatedAt: time.Now(),
	}
	return nil
}

type fakeTossClient struct {
	conf  *TossConfirmation
	err   error
	calls int
}

func (f *fakeTossClient) ConfirmPayment(_ context.Context, paymentKey, orderID string, amount int) (*TossConfirmation, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if f.conf != nil {
		return f.conf, nil
	}
	return &TossConfirmation{
		PaymentKey:  paymentKey,
		OrderID:     orderID,
		Status:      "DONE",
		Method:      "card",
		ApprovedAt:  time.Now().UTC().Format(time.RFC3339),
		TotalAmount: amount,
	}, nil
}

type fakePublisher struct {
	topics   []string
	payloads [][]byte
}

func (f *fakePublisher) Publish(_ context.Context, topic string, payload []byte) (string, error) {
	f.topics = append(f.topics, topic)
	f.payloads = append(f.payloads, payload)
	return fmt.Sprintf("msg-%d", len(f.topics)), nil
}

type fakeProcessingClient struct {
	submitErr error
	status    *TaskStatus
	submits   int
}

func (f *fakeProcessingClient) SubmitYouTube(_ context.Context, youtubeURL string, summaryRatio float64) (*SubmitResult, error) {
	f.submits++
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	return &SubmitResult{TaskID: "task-1", Message: "processing started"}, nil
}

func (f *fakeProcessingClient) GetStatus(_ context.Context, taskID string) (*TaskStatus, error) {
	return f.status, nil
}
