package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// GatewayError carries the provider's rejection of a confirm call. Its
// message is surfaced to the user verbatim.
type GatewayError struct {
	Code    string
	Message string
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("toss confirm rejected (%s): %s", e.Code, e.Message)
}

// TossConfirmation is the subset of the provider's payment object the
// confirm flow uses.
type TossConfirmation struct {
	PaymentKey  string `json:"paymentKey"`
	OrderID     string `json:"orderId"`
	Status      string `json:"status"`
	Method      string `json:"method"`
	ApprovedAt  string `json:"approvedAt"`
	TotalAmount int    `json:"totalAmount"`
}

// TossClient confirms payments against the Toss Payments API.
type TossClient interface {
	ConfirmPayment(ctx context.Context, paymentKey, orderID string, amount int) (*TossConfirmation, error)
}

type tossClient struct {
	baseURL   string
	secretKey string
	client    *http.Client
	logger    zerolog.Logger
}

// NewTossClient creates a TossClient. The confirm call is a single
// bounded round trip with no local retry.
func NewTossClient(baseURL, secretKey string, logger zerolog.Logger) TossClient {
	return &tossClient{
		baseURL:   baseURL,
		secretKey: secretKey,
		client:    &http.Client{Timeout: 15 * time.Second},
		logger:    logger.With().Str("service", "TossClient").Logger(),
	}
}

type confirmRequest struct {
	PaymentKey string `json:"paymentKey"`
	OrderID    string `json:"orderId"`
	Amount     int    `json:"amount"`
}

func (c *tossClient) ConfirmPayment(ctx context.Context, paymentKey, orderID string, amount int) (*TossConfirmation, error) {
	jsonBody, err := json.Marshal(confirmRequest{PaymentKey: paymentKey, OrderID: orderID, Amount: amount})
	if err != nil {
		return nil, fmt.Errorf("marshaling confirm request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/payments/confirm", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("creating confirm request: %w", err)
	}
	// Toss uses HTTP basic auth with the secret key as username and an
	// empty password.
	auth := base64.StdEncoding.EncodeToString([]byte(c.secretKey + ":"))
	req.Header.Set("Authorization", "Basic "+auth)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling toss confirm API: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading toss confirm response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		}
		if err := json.Unmarshal(body, &apiErr); err != nil || apiErr.Message == "" {
			apiErr.Code = "UNKNOWN"
			apiErr.Message = fmt.Sprintf("toss confirm returned status %d", resp.StatusCode)
		}
		c.logger.Error().
			Int("status_code", resp.StatusCode).
			Str("error_code", apiErr.Code).
			Str("order_id", orderID).
			Msg("Toss confirm API rejected payment")
		return nil, &GatewayError{Code: apiErr.Code, Message: apiErr.Message}
	}

	var conf TossConfirmation
	if err := json.Unmarshal(body, &conf); err != nil {
		return nil, fmt.Errorf("decoding toss confirm response: %w", err)
	}
	return &conf, nil
}
