package service_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	accountdomain "github.com/careerforge/careerforge/internal/account/domain"
	accountservice "github.com/careerforge/careerforge/internal/account/service"
	"github.com/careerforge/careerforge/internal/identity"
	ledgerservice "github.com/careerforge/careerforge/internal/ledger/service"
	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:memdb_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}

	schema := []string{
		`CREATE TABLE users (
			id BIGINT PRIMARY KEY,
			external_id TEXT NOT NULL,
			email TEXT NOT NULL DEFAULT '',
			name TEXT NOT NULL DEFAULT '',
			industry TEXT NOT NULL DEFAULT '',
			experience_years INT NOT NULL DEFAULT 0,
			skills TEXT NOT NULL DEFAULT '',
			bio TEXT NOT NULL DEFAULT '',
			token_balance BIGINT NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE UNIQUE INDEX ux_users_external_id ON users(external_id)`,
		`CREATE TABLE ledger_entries (
			id BIGINT PRIMARY KEY,
			user_id BIGINT NOT NULL,
			delta BIGINT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			feature_type TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`,
	}
	for _, stmt := range schema {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("create schema: %v", err)
		}
	}
	return db
}

func newAccountService(t *testing.T, db *gorm.DB, nodeID int64) accountdomain.Service {
	t.Helper()
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}
	ledgerSvc := ledgerservice.NewService(ledgerservice.Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
	})
	return accountservice.NewService(accountservice.Params{
		DB:        db,
		Log:       zap.NewNop(),
		GenID:     node,
		LedgerSvc: ledgerSvc,
	})
}

func TestEnsureUserCreatesWithSignupBonus(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc := newAccountService(t, db, 5)

	principal := identity.Principal{Subject: "clerk_abc", Email: "a@example.com", Name: "A"}
	user, err := svc.EnsureUser(ctx, principal)
	if err != nil {
		t.Fatalf("ensure user: %v", err)
	}
	if user.TokenBalance != accountdomain.SignupBonusTokens {
		t.Fatalf("balance = %d, want %d", user.TokenBalance, accountdomain.SignupBonusTokens)
	}

	var entryCount int64
	if err := db.Raw(`SELECT COUNT(1) FROM ledger_entries WHERE user_id = ? AND feature_type = 'signup_bonus'`, user.ID).Scan(&entryCount).Error; err != nil {
		t.Fatalf("count entries: %v", err)
	}
	if entryCount != 1 {
		t.Fatalf("signup bonus entries = %d, want 1", entryCount)
	}
}

func TestEnsureUserIsIdempotent(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc := newAccountService(t, db, 6)

	principal := identity.Principal{Subject: "clerk_abc"}
	first, err := svc.EnsureUser(ctx, principal)
	if err != nil {
		t.Fatalf("first ensure: %v", err)
	}
	second, err := svc.EnsureUser(ctx, principal)
	if err != nil {
		t.Fatalf("second ensure: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("ids differ: %v vs %v", first.ID, second.ID)
	}

	var entryCount int64
	if err := db.Raw(`SELECT COUNT(1) FROM ledger_entries WHERE user_id = ?`, first.ID).Scan(&entryCount).Error; err != nil {
		t.Fatalf("count entries: %v", err)
	}
	if entryCount != 1 {
		t.Fatalf("entries = %d, want exactly 1 signup bonus", entryCount)
	}

	var balance int64
	if err := db.Raw(`SELECT token_balance FROM users WHERE id = ?`, first.ID).Scan(&balance).Error; err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance != accountdomain.SignupBonusTokens {
		t.Fatalf("balance = %d, want %d", balance, accountdomain.SignupBonusTokens)
	}
}

func TestUpdateProfile(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc := newAccountService(t, db, 7)

	user, err := svc.EnsureUser(ctx, identity.Principal{Subject: "clerk_xyz"})
	if err != nil {
		t.Fatalf("ensure user: %v", err)
	}

	updated, err := svc.UpdateProfile(ctx, user.ID, accountdomain.UpdateProfileRequest{
		Industry:        "software",
		ExperienceYears: 4,
		Skills:          "go,sql",
		Bio:             "backend engineer",
	})
	if err != nil {
		t.Fatalf("update profile: %v", err)
	}
	if updated.Industry != "software" || updated.ExperienceYears != 4 {
		t.Fatalf("unexpected profile %+v", updated)
	}

	if _, err := svc.UpdateProfile(ctx, snowflake.ID(424242), accountdomain.UpdateProfileRequest{}); err != accountdomain.ErrUserNotFound {
		t.Fatalf("err = %v, want ErrUserNotFound", err)
	}
}
