package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

var (
	ErrInvalidPackage     = errors.New("order: invalid package")
	ErrGatewayUnavailable = errors.New("order: gateway unavailable")
)

// DedupeWindow is how long a pending intent keeps absorbing repeat
// order requests for the same user and package.
const DedupeWindow = 30 * time.Minute

// IntentStatus is the local lifecycle of a purchase. pending moves to
// completed or failed; both are terminal.
type IntentStatus string

const (
	IntentStatusPending   IntentStatus = "pending"
	IntentStatusCompleted IntentStatus = "completed"
	IntentStatusFailed    IntentStatus = "failed"
)

// PaymentIntent records a purchase attempt keyed by the gateway order
// id. Amount and TokenGrant are snapshotted from the catalog at
// creation so later verification compares against what was sold, not
// what the client claims.
type PaymentIntent struct {
	ID               snowflake.ID `gorm:"primaryKey" json:"id"`
	UserID           snowflake.ID `gorm:"not null;index" json:"user_id"`
	PackageID        string       `gorm:"type:text;not null" json:"package_id"`
	Amount           int64        `gorm:"not null" json:"amount"`
	Currency         string       `gorm:"type:text;not null" json:"currency"`
	TokenGrant       int64        `gorm:"not null" json:"token_grant"`
	GatewayOrderID   string       `gorm:"type:text;not null;uniqueIndex:ux_payment_intents_gateway_order_id" json:"gateway_order_id"`
	GatewayPaymentID string       `gorm:"type:text;not null" json:"gateway_payment_id"`
	Status           IntentStatus `gorm:"type:text;not null" json:"status"`
	CreatedAt        time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt        time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (PaymentIntent) TableName() string { return "payment_intents" }

// CheckoutOrder is what the client needs to open the gateway checkout.
type CheckoutOrder struct {
	GatewayOrderID string `json:"gateway_order_id"`
	Amount         int64  `json:"amount"`
	Currency       string `json:"currency"`
	PackageID      string `json:"package_id"`
	TokenGrant     int64  `json:"token_grant"`
	KeyID          string `json:"key_id"`
}

type Service interface {
	// Create issues (or re-issues, within the dedupe window) a gateway
	// order for the package.
	Create(ctx context.Context, userID snowflake.ID, packageID string) (*CheckoutOrder, error)
}
