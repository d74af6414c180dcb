package gateway

import (
	"context"
	"fmt"
	"sync"
)

// Fake is an in-memory gateway used by tests.
type Fake struct {
	mu       sync.Mutex
	seq      int
	orders   map[string]*Order
	payments map[string]*Payment

	// FailCreateOrder forces CreateOrder to report ErrUnavailable.
	FailCreateOrder bool
}

func NewFake() *Fake {
	return &Fake{
		orders:   make(map[string]*Order),
		payments: make(map[string]*Payment),
	}
}

func (f *Fake) CreateOrder(ctx context.Context, req CreateOrderRequest) (*Order, error) {
	_ = ctx
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailCreateOrder {
		return nil, ErrUnavailable
	}
	f.seq++
	order := &Order{
		ID:       fmt.Sprintf("order_fake_%d", f.seq),
		Amount:   req.Amount,
		Currency: req.Currency,
		Receipt:  req.Receipt,
		Status:   "created",
		Notes:    req.Notes,
	}
	f.orders[order.ID] = order
	return cloneOrder(order), nil
}

func (f *Fake) FetchOrder(ctx context.Context, orderID string) (*Order, error) {
	_ = ctx
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.orders[orderID]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneOrder(order), nil
}

func (f *Fake) FetchPayment(ctx context.Context, paymentID string) (*Payment, error) {
	_ = ctx
	f.mu.Lock()
	defer f.mu.Unlock()
	payment, ok := f.payments[paymentID]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *payment
	return &clone, nil
}

// AddPayment registers a gateway-side payment for tests.
func (f *Fake) AddPayment(p Payment) {
	f.mu.Lock()
	defer f.mu.Unlock()
	clone := p
	f.payments[p.ID] = &clone
}

// AddOrder registers a gateway-side order for tests.
func (f *Fake) AddOrder(o Order) {
	f.mu.Lock()
	defer f.mu.Unlock()
	clone := o
	f.orders[o.ID] = &clone
}

func cloneOrder(o *Order) *Order {
	clone := *o
	if o.Notes != nil {
		clone.Notes = make(map[string]string, len(o.Notes))
		for k, v := range o.Notes {
			clone.Notes[k] = v
		}
	}
	return &clone
}

var _ Client = (*Fake)(nil)
