package server

import (
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	headerWebhookSignature  = "X-Signature"
	headerWebhookDeliveryID = "X-Delivery-Id"
)

type verifyPaymentRequest struct {
	OrderID   string `json:"order_id"`
	PaymentID string `json:"payment_id"`
	Signature string `json:"signature"`
}

func (s *Server) VerifyPayment(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req verifyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	orderID := strings.TrimSpace(req.OrderID)
	paymentID := strings.TrimSpace(req.PaymentID)
	signature := strings.TrimSpace(req.Signature)
	if orderID == "" || paymentID == "" || signature == "" {
		AbortWithError(c, invalidRequestError())
		return
	}

	result, err := s.paymentSvc.VerifyClientPayment(c.Request.Context(), user.ID, orderID, paymentID, signature)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}

// HandlePaymentWebhook ingests gateway deliveries. Anything past
// signature and structure checks is acknowledged with 200 so the
// gateway does not retry what a retry cannot fix.
func (s *Server) HandlePaymentWebhook(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	signature := strings.TrimSpace(c.GetHeader(headerWebhookSignature))
	deliveryID := strings.TrimSpace(c.GetHeader(headerWebhookDeliveryID))

	if err := s.paymentSvc.HandleWebhook(c.Request.Context(), deliveryID, payload, signature); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
