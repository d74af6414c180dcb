package gateway_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/careerforge/careerforge/internal/config"
	"github.com/careerforge/careerforge/internal/payment/gateway"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T, handler http.Handler) (*gateway.HTTPClient, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := config.Config{
		Gateway: config.GatewayConfig{
			BaseURL:        srv.URL,
			KeyID:          "rzp_test_key",
			KeySecret:      "key_secret",
			TimeoutSeconds: 5,
		},
	}
	return gateway.NewHTTPClient(cfg, zap.NewNop()), srv
}

func TestCreateOrderSendsBasicAuthAndNotes(t *testing.T) {
	var gotAuthUser, gotAuthPass string
	var gotReq gateway.CreateOrderRequest

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/orders" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		gotAuthUser, gotAuthPass, _ = r.BasicAuth()
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(gateway.Order{
			ID:       "order_123",
			Amount:   gotReq.Amount,
			Currency: gotReq.Currency,
			Receipt:  gotReq.Receipt,
			Status:   "created",
			Notes:    gotReq.Notes,
		})
	}))

	notes := gateway.OrderNotes{UserID: "42", PackageID: "basic", TokenGrant: 10_000}
	order, err := client.CreateOrder(context.Background(), gateway.CreateOrderRequest{
		Amount:   49_900,
		Currency: "INR",
		Receipt:  "rcpt_1",
		Notes:    notes.Map(),
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}

	if gotAuthUser != "rzp_test_key" || gotAuthPass != "key_secret" {
		t.Fatalf("basic auth = %q/%q", gotAuthUser, gotAuthPass)
	}
	if order.ID != "order_123" || order.Amount != 49_900 {
		t.Fatalf("unexpected order %+v", order)
	}

	parsed := gateway.ParseNotes(order.Notes)
	if parsed != notes {
		t.Fatalf("notes round trip = %+v, want %+v", parsed, notes)
	}
}

func TestFetchPayment(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/payments/pay_9" {
			http.NotFound(w, r)
			return
		}
		_ = json.NewEncoder(w).Encode(gateway.Payment{
			ID:      "pay_9",
			OrderID: "order_1",
			Amount:  49_900,
			Status:  gateway.PaymentStatusCaptured,
		})
	}))

	payment, err := client.FetchPayment(context.Background(), "pay_9")
	if err != nil {
		t.Fatalf("fetch payment: %v", err)
	}
	if payment.Status != gateway.PaymentStatusCaptured || payment.OrderID != "order_1" {
		t.Fatalf("unexpected payment %+v", payment)
	}

	if _, err := client.FetchPayment(context.Background(), "pay_missing"); !errors.Is(err, gateway.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestServerErrorIsRetryable(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))

	_, err := client.CreateOrder(context.Background(), gateway.CreateOrderRequest{Amount: 100, Currency: "INR"})
	if !errors.Is(err, gateway.ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
}

func TestClientErrorCarriesGatewayCode(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"code":"BAD_REQUEST_ERROR","description":"amount too small"}}`))
	}))

	_, err := client.CreateOrder(context.Background(), gateway.CreateOrderRequest{Amount: 1, Currency: "INR"})
	if err == nil || errors.Is(err, gateway.ErrUnavailable) {
		t.Fatalf("err = %v, want terminal gateway error", err)
	}
}
