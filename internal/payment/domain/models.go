package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

var (
	ErrInvalidSignature    = errors.New("payment: invalid signature")
	ErrMalformedEvent      = errors.New("payment: malformed event")
	ErrAmountMismatch      = errors.New("payment: amount mismatch")
	ErrOwnershipMismatch   = errors.New("payment: ownership mismatch")
	ErrOrderNotFound       = errors.New("payment: order not found")
	ErrPaymentNotCaptured  = errors.New("payment: not captured")
	ErrTransactionConflict = errors.New("payment: transaction conflict")
)

// Gateway webhook event types the engine reacts to.
const (
	EventPaymentCaptured = "payment.captured"
	EventPaymentFailed   = "payment.failed"
)

// PaymentEvent is a signature-valid webhook delivery kept for
// reconciliation. DeliveryID is the gateway's delivery id; the unique
// index makes redelivery a no-op.
type PaymentEvent struct {
	ID             snowflake.ID   `gorm:"primaryKey" json:"id"`
	DeliveryID     string         `gorm:"type:text;not null;uniqueIndex:ux_payment_events_delivery_id" json:"delivery_id"`
	EventType      string         `gorm:"type:text;not null" json:"event_type"`
	GatewayOrderID string         `gorm:"type:text;not null" json:"gateway_order_id"`
	Payload        datatypes.JSON `json:"payload"`
	CreatedAt      time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (PaymentEvent) TableName() string { return "payment_events" }

// VerifyResult reports what a completion attempt did.
type VerifyResult struct {
	Credited         bool  `json:"credited"`
	AlreadyProcessed bool  `json:"already_processed"`
	TokensGranted    int64 `json:"tokens_granted"`
}

type Service interface {
	// VerifyClientPayment is the synchronous checkout-callback entry
	// point. The signature covers "orderID|paymentID" under the checkout
	// secret; the gateway remains the authority on payment status.
	VerifyClientPayment(ctx context.Context, userID snowflake.ID, orderID, paymentID, signature string) (*VerifyResult, error)
	// HandleWebhook is the asynchronous entry point. raw must be the
	// exact request bytes the signature was computed over.
	HandleWebhook(ctx context.Context, deliveryID string, raw []byte, signature string) error
}
