package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/careerforge/careerforge/internal/catalog"
	"github.com/careerforge/careerforge/internal/config"
	ledgerdomain "github.com/careerforge/careerforge/internal/ledger/domain"
	obsmetrics "github.com/careerforge/careerforge/internal/observability/metrics"
	orderdomain "github.com/careerforge/careerforge/internal/order/domain"
	paymentdomain "github.com/careerforge/careerforge/internal/payment/domain"
	"github.com/careerforge/careerforge/internal/payment/gateway"
	"github.com/careerforge/careerforge/pkg/db"
	"github.com/google/uuid"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Gateway    gateway.Client
	LedgerSvc  ledgerdomain.Service
	Cfg        config.Config
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db            *gorm.DB
	log           *zap.Logger
	genID         *snowflake.Node
	gateway       gateway.Client
	ledgerSvc     ledgerdomain.Service
	checkoutKey   string
	webhookSecret string
	obsMetrics    *obsmetrics.Metrics
}

func NewService(p Params) paymentdomain.Service {
	return &Service{
		db:            p.DB,
		log:           p.Log.Named("payment.service"),
		genID:         p.GenID,
		gateway:       p.Gateway,
		ledgerSvc:     p.LedgerSvc,
		checkoutKey:   p.Cfg.Gateway.KeySecret,
		webhookSecret: p.Cfg.Gateway.WebhookSecret,
		obsMetrics:    p.ObsMetrics,
	}
}

func (s *Service) VerifyClientPayment(ctx context.Context, userID snowflake.ID, orderID, paymentID, signature string) (*paymentdomain.VerifyResult, error) {
	orderID = strings.TrimSpace(orderID)
	paymentID = strings.TrimSpace(paymentID)

	if !gateway.VerifyCheckout(orderID, paymentID, signature, s.checkoutKey) {
		s.log.Warn("checkout signature rejected",
			zap.String("user_id", userID.String()),
			zap.String("gateway_order_id", orderID),
			zap.String("gateway_payment_id", paymentID),
		)
		s.recordVerification(ctx, "client", "invalid_signature")
		return nil, paymentdomain.ErrInvalidSignature
	}

	payment, err := s.gateway.FetchPayment(ctx, paymentID)
	if err != nil {
		if errors.Is(err, gateway.ErrNotFound) {
			s.recordVerification(ctx, "client", "payment_not_found")
			return nil, paymentdomain.ErrOrderNotFound
		}
		s.recordVerification(ctx, "client", "gateway_error")
		return nil, fmt.Errorf("%w: %v", orderdomain.ErrGatewayUnavailable, err)
	}

	if payment.Status != gateway.PaymentStatusCaptured && payment.Status != gateway.PaymentStatusAuthorized {
		s.recordVerification(ctx, "client", "not_captured")
		return nil, paymentdomain.ErrPaymentNotCaptured
	}

	if payment.OrderID != orderID {
		s.log.Warn("payment belongs to a different order",
			zap.String("user_id", userID.String()),
			zap.String("submitted_order_id", orderID),
			zap.String("payment_order_id", payment.OrderID),
		)
		s.recordVerification(ctx, "client", "ownership_mismatch")
		return nil, paymentdomain.ErrOwnershipMismatch
	}

	result, err := s.complete(ctx, userID, orderID, paymentID, payment.Amount)
	if err != nil {
		s.recordVerification(ctx, "client", outcomeForError(err))
		return nil, err
	}
	s.recordVerification(ctx, "client", outcomeForResult(result))
	return result, nil
}

type webhookEnvelope struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity struct {
				ID      string `json:"id"`
				OrderID string `json:"order_id"`
				Amount  int64  `json:"amount"`
				Status  string `json:"status"`
			} `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

func (s *Service) HandleWebhook(ctx context.Context, deliveryID string, raw []byte, signature string) error {
	if !gateway.VerifyWebhook(raw, signature, s.webhookSecret) {
		s.log.Warn("webhook signature rejected", zap.String("delivery_id", deliveryID))
		s.recordVerification(ctx, "webhook", "invalid_signature")
		return paymentdomain.ErrInvalidSignature
	}

	var envelope webhookEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil || strings.TrimSpace(envelope.Event) == "" {
		return paymentdomain.ErrMalformedEvent
	}
	entity := envelope.Payload.Payment.Entity

	if s.obsMetrics != nil {
		s.obsMetrics.RecordWebhookEvent(ctx, envelope.Event)
	}

	inserted, err := s.insertEvent(ctx, deliveryID, envelope.Event, entity.OrderID, raw)
	if err != nil {
		// Recording is best effort; processing stays idempotent without it.
		s.log.Error("failed to record webhook event", zap.String("delivery_id", deliveryID), zap.Error(err))
	} else if !inserted {
		s.log.Info("webhook delivery already processed", zap.String("delivery_id", deliveryID))
		return nil
	}

	switch envelope.Event {
	case paymentdomain.EventPaymentCaptured:
		s.processCaptured(ctx, deliveryID, entity.ID, entity.OrderID)
	case paymentdomain.EventPaymentFailed:
		s.processFailed(ctx, entity.ID, entity.OrderID)
	default:
		s.log.Debug("ignoring webhook event", zap.String("event", envelope.Event))
	}

	// Processing failures after signature acceptance are logged above
	// and acknowledged so the gateway does not retry side effects we
	// already guard against.
	return nil
}

func (s *Service) processCaptured(ctx context.Context, deliveryID, paymentID, orderID string) {
	log := s.log.With(
		zap.String("delivery_id", deliveryID),
		zap.String("gateway_order_id", orderID),
		zap.String("gateway_payment_id", paymentID),
	)

	order, err := s.gateway.FetchOrder(ctx, orderID)
	if err != nil {
		log.Error("webhook: fetch order failed", zap.Error(err))
		s.recordVerification(ctx, "webhook", "gateway_error")
		return
	}
	notes := gateway.ParseNotes(order.Notes)
	ownerID, err := strconv.ParseInt(notes.UserID, 10, 64)
	if err != nil || ownerID == 0 {
		log.Error("webhook: order notes missing user id")
		s.recordVerification(ctx, "webhook", "malformed_notes")
		return
	}

	payment, err := s.gateway.FetchPayment(ctx, paymentID)
	if err != nil {
		log.Error("webhook: fetch payment failed", zap.Error(err))
		s.recordVerification(ctx, "webhook", "gateway_error")
		return
	}
	if payment.Status != gateway.PaymentStatusCaptured {
		log.Warn("webhook: payment not captured at gateway", zap.String("status", payment.Status))
		s.recordVerification(ctx, "webhook", "not_captured")
		return
	}

	result, err := s.complete(ctx, snowflake.ID(ownerID), orderID, paymentID, payment.Amount)
	if err != nil {
		log.Error("webhook: completion failed", zap.Error(err))
		s.recordVerification(ctx, "webhook", outcomeForError(err))
		return
	}
	s.recordVerification(ctx, "webhook", outcomeForResult(result))
	if result.Credited {
		log.Info("webhook: payment completed", zap.Int64("tokens_granted", result.TokensGranted))
	}
}

func (s *Service) processFailed(ctx context.Context, paymentID, orderID string) {
	now := time.Now().UTC()
	result := s.db.WithContext(ctx).Exec(
		`UPDATE payment_intents
		 SET status = ?, gateway_payment_id = ?, updated_at = ?
		 WHERE gateway_order_id = ? AND status = ?`,
		orderdomain.IntentStatusFailed, paymentID, now,
		orderID, orderdomain.IntentStatusPending,
	)
	if result.Error != nil {
		s.log.Error("webhook: failed to mark intent failed",
			zap.String("gateway_order_id", orderID), zap.Error(result.Error))
		return
	}
	if result.RowsAffected > 0 {
		s.log.Info("payment failed at gateway",
			zap.String("gateway_order_id", orderID),
			zap.String("gateway_payment_id", paymentID),
		)
	}
}

// complete is the shared completion procedure for both entry points.
// Exactly-once crediting rests on the guarded status transition: only
// the caller whose UPDATE flips pending to completed writes the credit,
// and it does so in the same transaction.
func (s *Service) complete(ctx context.Context, userID snowflake.ID, orderID, paymentID string, amountPaid int64) (*paymentdomain.VerifyResult, error) {
	var intent orderdomain.PaymentIntent
	err := s.db.WithContext(ctx).First(&intent, "gateway_order_id = ?", orderID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, paymentdomain.ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}

	pkg, ok := catalog.Get(intent.PackageID)
	if !ok {
		return nil, orderdomain.ErrInvalidPackage
	}
	if amountPaid != pkg.PriceMinor {
		s.log.Warn("paid amount does not match package price",
			zap.String("gateway_order_id", orderID),
			zap.String("package_id", pkg.ID),
			zap.Int64("amount_paid", amountPaid),
			zap.Int64("package_price", pkg.PriceMinor),
		)
		return nil, paymentdomain.ErrAmountMismatch
	}
	if intent.UserID != userID {
		s.log.Warn("order claimed by non-owner",
			zap.String("gateway_order_id", orderID),
			zap.String("owner_id", intent.UserID.String()),
			zap.String("claimant_id", userID.String()),
		)
		return nil, paymentdomain.ErrOwnershipMismatch
	}
	if intent.Amount != pkg.PriceMinor {
		return nil, paymentdomain.ErrAmountMismatch
	}

	// Fast path: a settled intent needs no transaction.
	if intent.Status != orderdomain.IntentStatusPending {
		return &paymentdomain.VerifyResult{AlreadyProcessed: true, TokensGranted: 0}, nil
	}

	credited := false
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now().UTC()
		result := tx.WithContext(ctx).Exec(
			`UPDATE payment_intents
			 SET status = ?, gateway_payment_id = ?, updated_at = ?
			 WHERE gateway_order_id = ? AND status = ?`,
			orderdomain.IntentStatusCompleted, paymentID, now,
			orderID, orderdomain.IntentStatusPending,
		)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			// Lost the race to the other entry point; its transaction
			// carries the credit.
			return nil
		}
		credited = true

		return s.ledgerSvc.CreditTx(ctx, tx, intent.UserID, intent.TokenGrant,
			fmt.Sprintf("purchase %s package", pkg.ID), ledgerdomain.FeaturePurchase)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", paymentdomain.ErrTransactionConflict, err)
	}

	if !credited {
		return &paymentdomain.VerifyResult{AlreadyProcessed: true}, nil
	}
	s.log.Info("payment completed",
		zap.String("gateway_order_id", orderID),
		zap.String("gateway_payment_id", paymentID),
		zap.String("user_id", intent.UserID.String()),
		zap.Int64("tokens_granted", intent.TokenGrant),
	)
	return &paymentdomain.VerifyResult{Credited: true, TokensGranted: intent.TokenGrant}, nil
}

func (s *Service) insertEvent(ctx context.Context, deliveryID, eventType, orderID string, raw []byte) (bool, error) {
	deliveryID = strings.TrimSpace(deliveryID)
	if deliveryID == "" {
		// No delivery id means no gateway-side dedupe; record under a
		// synthetic id and rely on the status transition guard.
		deliveryID = "local_" + uuid.NewString()
	}
	event := paymentdomain.PaymentEvent{
		ID:             s.genID.Generate(),
		DeliveryID:     deliveryID,
		EventType:      eventType,
		GatewayOrderID: orderID,
		Payload:        datatypes.JSON(raw),
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&event).Error; err != nil {
		if db.IsDuplicateKeyErr(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *Service) recordVerification(ctx context.Context, entrypoint, outcome string) {
	if s.obsMetrics != nil {
		s.obsMetrics.RecordPaymentVerification(ctx, entrypoint, outcome)
	}
}

func outcomeForError(err error) string {
	switch {
	case errors.Is(err, paymentdomain.ErrAmountMismatch):
		return "amount_mismatch"
	case errors.Is(err, paymentdomain.ErrOwnershipMismatch):
		return "ownership_mismatch"
	case errors.Is(err, paymentdomain.ErrOrderNotFound):
		return "order_not_found"
	case errors.Is(err, orderdomain.ErrInvalidPackage):
		return "invalid_package"
	case errors.Is(err, paymentdomain.ErrTransactionConflict):
		return "transaction_conflict"
	default:
		return "error"
	}
}

func outcomeForResult(result *paymentdomain.VerifyResult) string {
	if result.Credited {
		return "credited"
	}
	return "already_processed"
}
