package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"regexp"
	"sync/atomic"
	"time"

	"app/internal/config"
	"app/internal/model"
	"app/internal/plan"
	"app/internal/pubsub"
	"app/internal/repository"

	"github.com/rs/zerolog"
)

// ErrInvalidOrderID is returned when an order id does not follow the
// order_<millis>_<first 8 hex of user id> wire convention.
var ErrInvalidOrderID = errors.New("invalid order id")

// The order id is built client-side at checkout; the trailing hex
// segment identifies the owning user. The format is a versioned wire
// contract and must stay bit-exact.
var orderUserIDPattern = regexp.MustCompile(`_([a-f0-9]+)$`)

// Receipt is the confirmation response returned to the client after a
// successful payment.
type Receipt struct {
	Message    string `json:"message"`
	OrderID    string `json:"orderId"`
	Amount     int    `json:"amount"`
	Method     string `json:"method"`
	PlanName   string `json:"planName"`
	ApprovedAt string `json:"approvedAt"`
	PaymentKey string `json:"paymentKey"`
}

// PaymentService owns the synchronous confirm path and the
// asynchronous Toss webhook path.
type PaymentService struct {
	cfg            *config.Config
	toss           TossClient
	subSvc         SubscriptionService
	paymentRepo    repository.PaymentRepository
	usageRepo      repository.UsageRepository
	publisher      pubsub.Publisher
	logger         zerolog.Logger
	internalErrors atomic.Int64
}

// NewPaymentService creates a new PaymentService with a scoped logger.
// publisher may be nil when no alerting topic is configured.
func NewPaymentService(cfg *config.Config, toss TossClient, subSvc SubscriptionService, paymentRepo repository.PaymentRepository, usageRepo repository.UsageRepository, publisher pubsub.Publisher, logger zerolog.Logger) *PaymentService {
	return &PaymentService{
		cfg:         cfg,
		toss:        toss,
		subSvc:      subSvc,
		paymentRepo: paymentRepo,
		usageRepo:   usageRepo,
		publisher:   publisher,
		logger:      logger.With().Str("service", "PaymentService").Logger(),
	}
}

// ExtractUserID parses the owning user id out of an order id.
func ExtractUserID(orderID string) (string, error) {
	m := orderUserIDPattern.FindStringSubmatch(orderID)
	if m == nil {
		return "", ErrInvalidOrderID
	}
	return m[1], nil
}

// Confirm verifies the payment with Toss and activates the purchased
// plan. Retrying with the same order id is safe for subscription state
// (upsert by user id); the history insert is not deduplicated by
// payment key, so a retried confirm can leave a duplicate approved row.
func (s *PaymentService) Confirm(ctx context.Context, paymentKey, orderID string, amount int) (*Receipt, error) {
	conf, err := s.toss.ConfirmPayment(ctx, paymentKey, orderID, amount)
	if err != nil {
		return nil, err
	}

	userID, err := ExtractUserID(orderID)
	if err != nil {
		return nil, err
	}

	planType, err := plan.ByAmount(amount)
	if err != nil {
		return nil, err
	}
	limit, err := plan.LimitFor(planType)
	if err != nil {
		return nil, err
	}

	sub, err := s.subSvc.ActivatePaidPlan(ctx, userID, planType, paymentKey, orderID)
	if err != nil {
		return nil, err
	}

	method := conf.Method
	if method == "" {
		method = "card"
	}
	approvedAt := conf.ApprovedAt
	if approvedAt == "" {
		approvedAt = time.Now().UTC().Format(time.RFC3339)
	}

	// History and usage writes are best effort: the subscription is
	// already active, so their failure must not fail the confirm.
	rec := &model.PaymentRecord{
		UserID:         userID,
		SubscriptionID: &sub.ID,
		TossPaymentKey: &paymentKey,
		TossOrderID:    orderID,
		Amount:         amount,
		Method:         method,
		Status:         model.PaymentApproved,
	}
	if t, err := time.Parse(time.RFC3339, approvedAt); err == nil {
		rec.ApprovedAt = &t
	}
	if err := s.paymentRepo.Insert(ctx, rec); err != nil {
		s.logger.Warn().Err(err).Str("user_id", userID).Str("order_id", orderID).Msg("Failed to record payment history")
	}
	if err := s.usageRepo.Upsert(ctx, userID, MonthKey(time.Now()), 0, limit.Monthly); err != nil {
		s.logger.Warn().Err(err).Str("user_id", userID).Msg("Failed to reset usage record for new plan")
	}

	s.logger.Info().Str("user_id", userID).Str("plan_type", planType).Str("order_id", orderID).Msg("Payment confirmed")

	return &Receipt{
		Message:    "Payment completed successfully.",
		OrderID:    orderID,
		Amount:     amount,
		Method:     method,
		PlanName:   plan.Name(planType),
		ApprovedAt: approvedAt,
		PaymentKey: paymentKey,
	}, nil
}

// ListHistory returns the user's payment records, most recent first.
func (s *PaymentService) ListHistory(ctx context.Context, userID string, limit int) ([]model.PaymentRecord, error) {
	records, err := s.paymentRepo.ListRecentByUser(ctx, userID, limit)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to list payment history")
		return nil, err
	}
	return records, nil
}

// InternalErrorCount reports how many webhook events failed internally
// after signature verification. Exposed for operational visibility
// since those failures are acknowledged to the provider.
func (s *PaymentService) InternalErrorCount() int64 {
	return s.internalErrors.Load()
}

type webhookEvent struct {
	EventType      string `json:"eventType"`
	PaymentKey     string `json:"paymentKey"`
	OrderID        string `json:"orderId"`
	Status         string `json:"status"`
	SubscriptionID string `json:"subscriptionId"`
	CustomerID     string `json:"customerId"`
	FailureReason  string `json:"failureReason"`
}

// HandleWebhook processes Toss webhook events. Once the signature
// verifies, the provider always gets a 200 so that non-transient
// internal failures do not trigger its retry storm; such failures are
// counted and published to the billing alert topic instead.
func (s *PaymentService) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	// The body must be verified as raw bytes; re-serialized JSON is not
	// guaranteed to byte-match what was signed.
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to read Toss webhook payload")
		http.Error(w, "failed to read payload", http.StatusBadRequest)
		return
	}
	sig := r.Header.Get("X-Toss-Signature")
	if !s.verifySignature(payload, sig) {
		s.logger.Error().Msg("Invalid Toss webhook signature")
		http.Error(w, "invalid signature", http.StatusUnauthorized)
		return
	}

	var event webhookEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		s.logger.Error().Err(err).Msg("Invalid Toss webhook payload")
		s.reportFailure(r.Context(), "unparseable", err)
		s.respondOK(w)
		return
	}

	s.logger.Info().Str("event_type", event.EventType).Msg("Toss webhook received")

	ctx := r.Context()
	switch event.EventType {
	case "PAYMENT_STATUS_CHANGED":
		if err := s.handlePaymentStatusChanged(ctx, event); err != nil {
			s.reportFailure(ctx, event.EventType, err)
		}
	case "SUBSCRIPTION_STATUS_CHANGED":
		if err := s.handleSubscriptionStatusChanged(ctx, event); err != nil {
			s.reportFailure(ctx, event.EventType, err)
		}
	case "SUBSCRIPTION_PAYMENT_FAILED":
		if err := s.handleSubscriptionPaymentFailed(ctx, event); err != nil {
			s.reportFailure(ctx, event.EventType, err)
		}
	default:
		// Intentionally ignored event types are acknowledged so the
		// provider does not retry them.
		s.logger.Warn().Str("event_type", event.EventType).Msg("Unhandled Toss webhook event")
	}

	s.respondOK(w)
}

func (s *PaymentService) verifySignature(payload []byte, signature string) bool {
	if signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(s.cfg.TossWebhookSecret))
	mac.Write(payload)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return subtle.ConstantTimeCompare([]byte(expected), []byte(signature)) == 1
}

func (s *PaymentService) respondOK(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]bool{"success": true})
}

func (s *PaymentService) handlePaymentStatusChanged(ctx context.Context, event webhookEvent) error {
	if err := s.paymentRepo.UpdateStatusByPaymentKey(ctx, event.PaymentKey, event.Status); err != nil {
		s.logger.Error().Err(err).Str("payment_key", event.PaymentKey).Msg("Failed to update payment status")
		return err
	}
	if event.Status != "FAILED" && event.Status != "CANCELED" {
		return nil
	}
	userID, err := ExtractUserID(event.OrderID)
	if err != nil {
		// No actionable local state; acknowledge without retry.
		s.logger.Warn().Str("order_id", event.OrderID).Msg("Cannot extract user from order id in payment status event")
		return nil
	}
	return s.subSvc.DowngradeToFree(ctx, userID)
}

func (s *PaymentService) handleSubscriptionStatusChanged(ctx context.Context, event webhookEvent) error {
	sub, err := s.subSvc.GetByOrderID(ctx, event.SubscriptionID)
	if err != nil {
		return err
	}
	if sub == nil {
		s.logger.Warn().Str("subscription_id", event.SubscriptionID).Msg("Subscription not found for status change event")
		return nil
	}
	return s.subSvc.ApplyProviderStatus(ctx, sub, event.Status)
}

func (s *PaymentService) handleSubscriptionPaymentFailed(ctx context.Context, event webhookEvent) error {
	sub, err := s.subSvc.GetByOrderID(ctx, event.SubscriptionID)
	if err != nil {
		return err
	}
	if sub == nil {
		s.logger.Warn().Str("subscription_id", event.SubscriptionID).Msg("Subscription not found for payment failure event")
		return nil
	}
	s.logger.Info().
		Str("user_id", sub.UserID).
		Str("subscription_id", event.SubscriptionID).
		Str("failure_reason", event.FailureReason).
		Msg("Subscription renewal payment failed")
	return s.subSvc.RecordRenewalFailure(ctx, sub.UserID, event.SubscriptionID)
}

type billingAlert struct {
	EventType  string `json:"event_type"`
	Error      string `json:"error"`
	OccurredAt string `json:"occurred_at"`
}

// reportFailure counts a swallowed post-signature failure and
// publishes it to the configured alert topic, best effort.
func (s *PaymentService) reportFailure(ctx context.Context, eventType string, cause error) {
	s.internalErrors.Add(1)
	if s.publisher == nil {
		return
	}
	alert := billingAlert{
		EventType:  eventType,
		Error:      cause.Error(),
		OccurredAt: time.Now().UTC().Format(time.RFC3339),
	}
	payload, err := json.Marshal(alert)
	if err != nil {
		return
	}
	if _, err := s.publisher.Publish(ctx, s.cfg.BillingAlertTopic, payload); err != nil {
		s.logger.Warn().Err(err).Str("event_type", eventType).Msg("Failed to publish billing alert")
	}
}
