package gateway_test

import (
	"testing"

	"github.com/careerforge/careerforge/internal/payment/gateway"
)

func TestVerifyCheckout(t *testing.T) {
	secret := "key_secret"
	sig := gateway.SignCheckout("order_1", "pay_1", secret)

	if !gateway.VerifyCheckout("order_1", "pay_1", sig, secret) {
		t.Fatal("valid signature rejected")
	}
	if gateway.VerifyCheckout("order_2", "pay_1", sig, secret) {
		t.Fatal("signature accepted for different order")
	}
	if gateway.VerifyCheckout("order_1", "pay_2", sig, secret) {
		t.Fatal("signature accepted for different payment")
	}
	if gateway.VerifyCheckout("order_1", "pay_1", sig, "other_secret") {
		t.Fatal("signature accepted under wrong secret")
	}
}

func TestVerifyWebhookBitFlip(t *testing.T) {
	secret := "webhook_secret"
	body := []byte(`{"event":"payment.captured","payload":{}}`)
	sig := gateway.SignWebhook(body, secret)

	if !gateway.VerifyWebhook(body, sig, secret) {
		t.Fatal("valid signature rejected")
	}

	tampered := make([]byte, len(body))
	copy(tampered, body)
	tampered[10] ^= 0x01
	if gateway.VerifyWebhook(tampered, sig, secret) {
		t.Fatal("signature accepted for tampered body")
	}

	flippedSig := []byte(sig)
	flippedSig[0] ^= 0x01
	if gateway.VerifyWebhook(body, string(flippedSig), secret) {
		t.Fatal("tampered signature accepted")
	}

	if gateway.VerifyWebhook(body, sig, "other_secret") {
		t.Fatal("signature accepted under wrong secret")
	}
}
