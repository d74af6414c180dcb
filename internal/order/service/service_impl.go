package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/careerforge/careerforge/internal/catalog"
	"github.com/careerforge/careerforge/internal/clock"
	"github.com/careerforge/careerforge/internal/config"
	orderdomain "github.com/careerforge/careerforge/internal/order/domain"
	"github.com/careerforge/careerforge/internal/payment/gateway"
	"github.com/google/uuid"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Gateway gateway.Client
	Cfg     config.Config
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	clock   clock.Clock
	gateway gateway.Client
	keyID   string
}

func NewService(p Params) orderdomain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("order.service"),
		genID:   p.GenID,
		clock:   p.Clock,
		gateway: p.Gateway,
		keyID:   p.Cfg.Gateway.KeyID,
	}
}

func (s *Service) Create(ctx context.Context, userID snowflake.ID, packageID string) (*orderdomain.CheckoutOrder, error) {
	pkg, ok := catalog.Get(packageID)
	if !ok {
		return nil, orderdomain.ErrInvalidPackage
	}

	// A recent pending intent for the same user and package means the
	// client double-clicked or reloaded checkout; hand back the same
	// gateway order instead of minting another.
	if existing, err := s.recentPendingIntent(ctx, userID, pkg.ID); err != nil {
		return nil, err
	} else if existing != nil {
		return s.checkoutOrder(existing), nil
	}

	order, err := s.gateway.CreateOrder(ctx, gateway.CreateOrderRequest{
		Amount:   pkg.PriceMinor,
		Currency: pkg.Currency,
		Receipt:  "rcpt_" + uuid.NewString(),
		Notes: gateway.OrderNotes{
			UserID:     userID.String(),
			PackageID:  pkg.ID,
			TokenGrant: pkg.Tokens,
		}.Map(),
	})
	if err != nil {
		s.log.Warn("gateway order creation failed",
			zap.String("user_id", userID.String()),
			zap.String("package_id", pkg.ID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: %v", orderdomain.ErrGatewayUnavailable, err)
	}

	now := s.clock.Now()
	intent := &orderdomain.PaymentIntent{
		ID:             s.genID.Generate(),
		UserID:         userID,
		PackageID:      pkg.ID,
		Amount:         pkg.PriceMinor,
		Currency:       pkg.Currency,
		TokenGrant:     pkg.Tokens,
		GatewayOrderID: order.ID,
		Status:         orderdomain.IntentStatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.db.WithContext(ctx).Create(intent).Error; err != nil {
		// The gateway order exists; the webhook path can still complete
		// the payment from gateway-side truth, so the client keeps its
		// checkout.
		s.log.Error("failed to persist payment intent",
			zap.String("gateway_order_id", order.ID),
			zap.String("user_id", userID.String()),
			zap.Error(err),
		)
	}

	return s.checkoutOrder(intent), nil
}

func (s *Service) recentPendingIntent(ctx context.Context, userID snowflake.ID, packageID string) (*orderdomain.PaymentIntent, error) {
	cutoff := s.clock.Now().Add(-orderdomain.DedupeWindow)
	var intent orderdomain.PaymentIntent
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND package_id = ? AND status = ? AND created_at > ?",
			userID, packageID, orderdomain.IntentStatusPending, cutoff).
		Order("created_at DESC").
		First(&intent).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &intent, nil
}

func (s *Service) checkoutOrder(intent *orderdomain.PaymentIntent) *orderdomain.CheckoutOrder {
	return &orderdomain.CheckoutOrder{
		GatewayOrderID: intent.GatewayOrderID,
		Amount:         intent.Amount,
		Currency:       intent.Currency,
		PackageID:      intent.PackageID,
		TokenGrant:     intent.TokenGrant,
		KeyID:          s.keyID,
	}
}
