package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// SignCheckout computes the checkout callback signature over
// "orderID|paymentID" with the key secret.
func SignCheckout(orderID, paymentID, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyCheckout checks a checkout callback signature in constant time.
func VerifyCheckout(orderID, paymentID, signature, secret string) bool {
	expected := SignCheckout(orderID, paymentID, secret)
	return hmac.Equal([]byte(expected), []byte(signature))
}

// SignWebhook computes the webhook signature over the exact raw body
// with the webhook secret.
func SignWebhook(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyWebhook checks a webhook signature in constant time. The body
// must be the raw request bytes, untouched by any JSON round-trip.
func VerifyWebhook(body []byte, signature, secret string) bool {
	expected := SignWebhook(body, secret)
	return hmac.Equal([]byte(expected), []byte(signature))
}
