package payment

import (
	"math"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/prochartist/backend/core"
)

// Statuses
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Webhook events
const (
	EventPaymentCaptured = "payment.captured"
	EventOrderPaid       = "order.paid"
	EventPaymentFailed   = "payment.failed"
)

// Payment is a gateway order placed by a user to buy a phase.
type Payment struct {
	ID            string            `json:"id"`
	UserID        string            `json:"userId"`
	PhaseID       string            `json:"phaseId"`
	OrderID       string            `json:"orderId"`
	PaymentID     string            `json:"paymentId"`
	Amount        float64           `json:"amount"`
	Currency      string            `json:"currency"`
	Status        string            `json:"status"`
	PaymentMethod string            `json:"paymentMethod"`
	Receipt       string            `json:"receipt"`
	Notes         map[string]string `json:"notes"`
	Verified      bool              `json:"verified"`
	VerifiedAt    *time.Time        `json:"verifiedAt,omitempty"`
	CreatedAt     time.Time         `json:"createdAt"`
	UpdatedAt     time.Time         `json:"updatedAt"`
}

// Purchase records that a user owns a phase.
type Purchase struct {
	UserID      string    `json:"userId"`
	PhaseID     string    `json:"phaseId"`
	PaymentID   string    `json:"paymentId"`
	Amount      float64   `json:"amount"`
	Currency    string    `json:"currency"`
	Status      string    `json:"status"`
	PurchasedAt time.Time `json:"purchasedAt"`
}

// Order is the gateway side of a Payment. Amount is in the currency's smallest unit.
type Order struct {
	ID       string `json:"orderId"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
}

// ToSubunits converts an amount to the currency's smallest unit (paise for INR).
func ToSubunits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

type NewOrder struct {
	UserID  string            `json:"userId" validate:"required"`
	PhaseID string            `json:"phaseId" validate:"required"`
	Receipt string            `json:"receipt" validate:"omitempty,max=40"`
	Notes   map[string]string `json:"notes"`
}

func (no *NewOrder) Validate(validate *validator.Validate) error {
	no.UserID = core.CleanString(no.UserID)
	no.PhaseID = core.CleanString(no.PhaseID, true /* lower */)
	no.Receipt = core.CleanString(no.Receipt)
	return validate.Struct(no)
}

// VerifyRequest is the checkout callback sent by the client once the gateway accepted a payment.
type VerifyRequest struct {
	OrderID   string `json:"razorpay_order_id" validate:"required"`
	PaymentID string `json:"razorpay_payment_id" validate:"required"`
	Signature string `json:"razorpay_signature" validate:"required"`
	UserID    string `json:"userId"`
	PhaseID   string `json:"phaseId"`
}

func (vr *VerifyRequest) Validate(validate *validator.Validate) error {
	vr.OrderID = core.CleanString(vr.OrderID)
	vr.PaymentID = core.CleanString(vr.PaymentID)
	vr.Signature = core.CleanString(vr.Signature)
	vr.UserID = core.CleanString(vr.UserID)
	vr.PhaseID = core.CleanString(vr.PhaseID, true /* lower */)
	return validate.Struct(vr)
}

// WebhookEvent is the subset of a gateway webhook payload the ledger reads.
type WebhookEvent struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity struct {
				ID      string `json:"id"`
				OrderID string `json:"order_id"`
				Status  string `json:"status"`
			} `json:"entity"`
		} `json:"payment"`
		Order struct {
			Entity struct {
				ID string `json:"id"`
			} `json:"entity"`
		} `json:"order"`
	} `json:"payload"`
}

func (we WebhookEvent) OrderID() string {
	if id := we.Payload.Payment.Entity.OrderID; id != "" {
		return id
	}
	return we.Payload.Order.Entity.ID
}

func (we WebhookEvent) PaymentID() string {
	return we.Payload.Payment.Entity.ID
}
