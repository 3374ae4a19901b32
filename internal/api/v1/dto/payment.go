package dto

import "time"

// PaymentConfirmDTO is the client's confirm call right after the
// checkout redirect. Field names follow the provider's wire contract.
type PaymentConfirmDTO struct {
	PaymentKey string `json:"paymentKey" validate:"required"`
	OrderID    string `json:"orderId" validate:"required"`
	Amount     int    `json:"amount" validate:"required,gt=0"`
}

// PaymentRecordResponseDTO is one payment history entry
type PaymentRecordResponseDTO struct {
	OrderID    string     `json:"order_id"`
	Amount     int        `json:"amount"`
	Method     string     `json:"method"`
	Status     string     `json:"status"`
	ApprovedAt *time.Time `json:"approved_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}
