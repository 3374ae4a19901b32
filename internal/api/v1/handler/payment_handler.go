package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"app/internal/api/v1/dto"
	"app/internal/middleware"
	"app/internal/plan"
	"app/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// PaymentHandler handles payment confirmation, history and the Toss
// webhook endpoint.
type PaymentHandler struct {
	paymentSvc *service.PaymentService
	validate   *validator.Validate
	logger     zerolog.Logger
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(paymentSvc *service.PaymentService, v *validator.Validate, logger zerolog.Logger) *PaymentHandler {
	return &PaymentHandler{paymentSvc: paymentSvc, validate: v, logger: logger}
}

// RegisterRoutes registers the payment endpoints. The confirm and
// webhook routes are intentionally unauthenticated: confirm is trusted
// via the provider confirm call, the webhook via its signature.
func (h *PaymentHandler) RegisterRoutes(mux *http.ServeMux, authMw func(http.Handler) http.Handler) {
	mux.Handle("/payments/confirm", http.HandlerFunc(h.confirm))
	mux.Handle("/payments/history", authMw(http.HandlerFunc(h.history)))
	mux.Handle("/webhooks/toss", http.HandlerFunc(h.webhook))
}

// writeJSONError returns an {error} body, matching the checkout
// client's expectations.
func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}

func (h *PaymentHandler) confirm(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	var req dto.PaymentConfirmDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "required payment fields are missing")
		return
	}

	receipt, err := h.paymentSvc.Confirm(r.Context(), req.PaymentKey, req.OrderID, req.Amount)
	if err != nil {
		var gwErr *service.GatewayError
		switch {
		case errors.As(err, &gwErr):
			// Provider rejection message is passed through verbatim.
			writeJSONError(w, http.StatusBadRequest, gwErr.Message)
		case errors.Is(err, service.ErrInvalidOrderID):
			writeJSONError(w, http.StatusBadRequest, "invalid order id")
		case errors.Is(err, plan.ErrUnsupportedAmount):
			writeJSONError(w, http.StatusBadRequest, "unsupported plan amount")
		default:
			h.logger.Error().Err(err).Str("order_id", req.OrderID).Msg("Payment confirmation failed")
			writeJSONError(w, http.StatusInternalServerError, "failed to process payment")
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(receipt); err != nil {
		h.logger.Error().Err(err).Msg("failed to encode response")
	}
}

func (h *PaymentHandler) history(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	records, err := h.paymentSvc.ListHistory(r.Context(), userID, 20)
	if err != nil {
		http.Error(w, "failed to fetch payment history", http.StatusInternalServerError)
		return
	}

	// Initialize so an empty history serializes as [] rather than null.
	recordDTOs := []dto.PaymentRecordResponseDTO{}
	for _, rec := range records {
		recordDTOs = append(recordDTOs, dto.PaymentRecordResponseDTO{
			OrderID:    rec.TossOrderID,
			Amount:     rec.Amount,
			Method:     rec.Method,
			Status:     rec.Status,
			ApprovedAt: rec.ApprovedAt,
			CreatedAt:  rec.CreatedAt,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(recordDTOs); err != nil {
		h.logger.Error().Err(err).Msg("failed to encode response")
	}
}

func (h *PaymentHandler) webhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	h.paymentSvc.HandleWebhook(w, r)
}
