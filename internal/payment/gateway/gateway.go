package gateway

import (
	"context"
	"errors"
	"strconv"
)

var (
	// ErrUnavailable marks transport-level gateway failures; callers may
	// retry.
	ErrUnavailable = errors.New("gateway: unavailable")
	ErrNotFound    = errors.New("gateway: not found")
)

// Payment statuses reported by the gateway. Only captured (and, for the
// synchronous callback, authorized) count as money received.
const (
	PaymentStatusCreated    = "created"
	PaymentStatusAuthorized = "authorized"
	PaymentStatusCaptured   = "captured"
	PaymentStatusFailed     = "failed"
)

// OrderNotes is the metadata attached at order creation and echoed back
// by the gateway on fetch. It lets the webhook path recover who bought
// what without trusting the webhook body.
type OrderNotes struct {
	UserID     string
	PackageID  string
	TokenGrant int64
}

// Map encodes the notes in the gateway's string-map wire form.
func (n OrderNotes) Map() map[string]string {
	return map[string]string{
		"user_id":     n.UserID,
		"package_id":  n.PackageID,
		"token_grant": strconv.FormatInt(n.TokenGrant, 10),
	}
}

// ParseNotes decodes the gateway's string-map notes.
func ParseNotes(m map[string]string) OrderNotes {
	grant, _ := strconv.ParseInt(m["token_grant"], 10, 64)
	return OrderNotes{
		UserID:     m["user_id"],
		PackageID:  m["package_id"],
		TokenGrant: grant,
	}
}

// Order is a gateway-side order. Amount is in minor units.
type Order struct {
	ID       string            `json:"id"`
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Status   string            `json:"status"`
	Notes    map[string]string `json:"notes"`
}

// Payment is a gateway-side payment attempt against an order.
type Payment struct {
	ID       string `json:"id"`
	OrderID  string `json:"order_id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Status   string `json:"status"`
	Method   string `json:"method"`
}

// CreateOrderRequest creates a gateway order to collect Amount minor
// units.
type CreateOrderRequest struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Notes    map[string]string `json:"notes"`
}

// Client is the outbound surface to the payment gateway.
type Client interface {
	CreateOrder(ctx context.Context, req CreateOrderRequest) (*Order, error)
	FetchOrder(ctx context.Context, orderID string) (*Order, error)
	FetchPayment(ctx context.Context, paymentID string) (*Payment, error)
}
