package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

var (
	ErrInvalidUser         = errors.New("ledger: invalid user")
	ErrInvalidAmount       = errors.New("ledger: amount must be positive")
	ErrInsufficientBalance = errors.New("ledger: insufficient balance")
	ErrUserNotFound        = errors.New("ledger: user not found")
)

// Service appends ledger entries and keeps users.token_balance in sync.
type Service interface {
	// Credit adds amount tokens in its own transaction.
	Credit(ctx context.Context, userID snowflake.ID, amount int64, description string, feature FeatureType) error
	// CreditTx adds amount tokens inside the caller's transaction so the
	// credit commits or rolls back with the caller's writes.
	CreditTx(ctx context.Context, tx *gorm.DB, userID snowflake.ID, amount int64, description string, feature FeatureType) error
	// Debit removes amount tokens, failing with ErrInsufficientBalance
	// when the balance would go negative.
	Debit(ctx context.Context, userID snowflake.ID, amount int64, description string, feature FeatureType) error
	Balance(ctx context.Context, userID snowflake.ID) (int64, error)
	History(ctx context.Context, userID snowflake.ID, limit, offset int) ([]LedgerEntry, error)
}
