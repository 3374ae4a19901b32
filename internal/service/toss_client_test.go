package service

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"app/internal/logger"
)

func TestTossClientConfirmPayment(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/payments/confirm" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		wantAuth := "Basic " + base64.StdEncoding.EncodeToString([]byte("sk_test:"))
		if got := r.Header.Get("Authorization"); got != wantAuth {
			t.Fatalf("authorization = %q, want %q", got, wantAuth)
		}
		var req struct {
			PaymentKey string `json:"paymentKey"`
			OrderID    string `json:"orderId"`
			Amount     int    `json:"amount"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"paymentKey":  req.PaymentKey,
			"orderId":     req.OrderID,
			"status":      "DONE",
			"method":      "card",
			"approvedAt":  "2024-06-01T10:00:00+09:00",
			"totalAmount": req.Amount,
		})
	}))
	defer srv.Close()

	client := NewTossClient(srv.URL, "sk_test", logger.New())
	conf, err := client.ConfirmPayment(context.Background(), "pk-1", "order_1_abcd1234", 9900)
	if err != nil {
		t.Fatalf("ConfirmPayment returned error: %v", err)
	}
	if conf.Status != "DONE" || conf.Method != "card" || conf.TotalAmount != 9900 {
		t.Fatalf("unexpected confirmation: %+v", conf)
	}
}

func TestTossClientConfirmRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"code":    "NOT_FOUND_PAYMENT",
			"message": "payment does not exist",
		})
	}))
	defer srv.Close()

	client := NewTossClient(srv.URL, "sk_test", logger.New())
	_, err := client.ConfirmPayment(context.Background(), "pk-missing", "order_1_abcd1234", 9900)

	var gwErr *GatewayError
	if !errors.As(err, &gwErr) {
		t.Fatalf("expected GatewayError, got %v", err)
	}
	if gwErr.Code != "NOT_FOUND_PAYMENT" || gwErr.Message != "payment does not exist" {
		t.Fatalf("provider error must pass through, got %+v", gwErr)
	}
}
