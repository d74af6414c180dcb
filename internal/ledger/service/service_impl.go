package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	ledgerdomain "github.com/careerforge/careerforge/internal/ledger/domain"
	obsmetrics "github.com/careerforge/careerforge/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	obsMetrics *obsmetrics.Metrics
}

func NewService(p Params) ledgerdomain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("ledger.service"),
		genID:      p.GenID,
		obsMetrics: p.ObsMetrics,
	}
}

func (s *Service) Credit(ctx context.Context, userID snowflake.ID, amount int64, description string, feature ledgerdomain.FeatureType) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.CreditTx(ctx, tx, userID, amount, description, feature)
	})
}

func (s *Service) CreditTx(ctx context.Context, tx *gorm.DB, userID snowflake.ID, amount int64, description string, feature ledgerdomain.FeatureType) error {
	if userID == 0 {
		return ledgerdomain.ErrInvalidUser
	}
	if amount <= 0 {
		return ledgerdomain.ErrInvalidAmount
	}

	now := time.Now().UTC()
	result := tx.WithContext(ctx).Exec(
		`UPDATE users SET token_balance = token_balance + ?, updated_at = ? WHERE id = ?`,
		amount, now, userID,
	)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ledgerdomain.ErrUserNotFound
	}

	if err := s.appendEntry(ctx, tx, userID, amount, description, feature, now); err != nil {
		return err
	}
	if s.obsMetrics != nil {
		s.obsMetrics.RecordLedgerEntry(ctx, string(feature))
	}
	return nil
}

func (s *Service) Debit(ctx context.Context, userID snowflake.ID, amount int64, description string, feature ledgerdomain.FeatureType) error {
	if userID == 0 {
		return ledgerdomain.ErrInvalidUser
	}
	if amount <= 0 {
		return ledgerdomain.ErrInvalidAmount
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now().UTC()
		result := tx.WithContext(ctx).Exec(
			`UPDATE users SET token_balance = token_balance - ?, updated_at = ? WHERE id = ? AND token_balance >= ?`,
			amount, now, userID, amount,
		)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			var count int64
			if err := tx.WithContext(ctx).Raw(`SELECT COUNT(1) FROM users WHERE id = ?`, userID).Scan(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return ledgerdomain.ErrUserNotFound
			}
			return ledgerdomain.ErrInsufficientBalance
		}

		return s.appendEntry(ctx, tx, userID, -amount, description, feature, now)
	})
	if err != nil {
		return err
	}
	if s.obsMetrics != nil {
		s.obsMetrics.RecordLedgerEntry(ctx, string(feature))
	}
	return nil
}

func (s *Service) Balance(ctx context.Context, userID snowflake.ID) (int64, error) {
	if userID == 0 {
		return 0, ledgerdomain.ErrInvalidUser
	}
	var balance int64
	result := s.db.WithContext(ctx).Raw(`SELECT token_balance FROM users WHERE id = ?`, userID).Scan(&balance)
	if result.Error != nil {
		return 0, result.Error
	}
	if result.RowsAffected == 0 {
		return 0, ledgerdomain.ErrUserNotFound
	}
	return balance, nil
}

func (s *Service) History(ctx context.Context, userID snowflake.ID, limit, offset int) ([]ledgerdomain.LedgerEntry, error) {
	if userID == 0 {
		return nil, ledgerdomain.ErrInvalidUser
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	var entries []ledgerdomain.LedgerEntry
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Offset(offset).
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (s *Service) appendEntry(ctx context.Context, tx *gorm.DB, userID snowflake.ID, delta int64, description string, feature ledgerdomain.FeatureType, now time.Time) error {
	entry := ledgerdomain.LedgerEntry{
		ID:          s.genID.Generate(),
		UserID:      userID,
		Delta:       delta,
		Description: strings.TrimSpace(description),
		FeatureType: feature,
		CreatedAt:   now,
	}
	return tx.WithContext(ctx).Create(&entry).Error
}
