package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	accountdomain "github.com/careerforge/careerforge/internal/account/domain"
	"github.com/careerforge/careerforge/internal/identity"
	ledgerdomain "github.com/careerforge/careerforge/internal/ledger/domain"
	"github.com/careerforge/careerforge/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	LedgerSvc ledgerdomain.Service
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	ledgerSvc ledgerdomain.Service
}

func NewService(p Params) accountdomain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("account.service"),
		genID:     p.GenID,
		ledgerSvc: p.LedgerSvc,
	}
}

func (s *Service) EnsureUser(ctx context.Context, principal identity.Principal) (*accountdomain.User, error) {
	externalID := strings.TrimSpace(principal.Subject)
	if externalID == "" {
		return nil, accountdomain.ErrUserNotFound
	}

	if user, err := s.getByExternalID(ctx, externalID); err == nil {
		return user, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	now := time.Now().UTC()
	user := &accountdomain.User{
		ID:         s.genID.Generate(),
		ExternalID: externalID,
		Email:      strings.TrimSpace(principal.Email),
		Name:       strings.TrimSpace(principal.Name),
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	// The signup bonus rides the same transaction as the insert, so a
	// concurrent first request either wins the insert and credits once
	// or loses on the unique external_id and re-reads.
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			return err
		}
		return s.ledgerSvc.CreditTx(ctx, tx, user.ID, accountdomain.SignupBonusTokens, "signup bonus", ledgerdomain.FeatureSignupBonus)
	})
	if err != nil {
		if db.IsDuplicateKeyErr(err) {
			return s.getByExternalID(ctx, externalID)
		}
		return nil, err
	}

	user.TokenBalance = accountdomain.SignupBonusTokens
	s.log.Info("account created",
		zap.String("user_id", user.ID.String()),
		zap.String("external_id", externalID),
	)
	return user, nil
}

func (s *Service) GetByID(ctx context.Context, id snowflake.ID) (*accountdomain.User, error) {
	var user accountdomain.User
	err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, accountdomain.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *Service) UpdateProfile(ctx context.Context, id snowflake.ID, req accountdomain.UpdateProfileRequest) (*accountdomain.User, error) {
	result := s.db.WithContext(ctx).Model(&accountdomain.User{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"industry":         strings.TrimSpace(req.Industry),
			"experience_years": req.ExperienceYears,
			"skills":           strings.TrimSpace(req.Skills),
			"bio":              strings.TrimSpace(req.Bio),
			"updated_at":       time.Now().UTC(),
		})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, accountdomain.ErrUserNotFound
	}
	return s.GetByID(ctx, id)
}

func (s *Service) getByExternalID(ctx context.Context, externalID string) (*accountdomain.User, error) {
	var user accountdomain.User
	if err := s.db.WithContext(ctx).First(&user, "external_id = ?", externalID).Error; err != nil {
		return nil, err
	}
	return &user, nil
}
