package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// FeatureType tags every ledger entry with the product surface that
// produced it.
type FeatureType string

const (
	FeaturePurchase        FeatureType = "purchase"
	FeatureSignupBonus     FeatureType = "signup_bonus"
	FeatureRefund          FeatureType = "refund"
	FeatureInterviewPrep   FeatureType = "interview_prep"
	FeatureResume          FeatureType = "resume"
	FeatureCoverLetter     FeatureType = "cover_letter"
	FeatureIndustryInsight FeatureType = "industry_insight"
)

// LedgerEntry is an immutable signed movement of tokens. The sum of
// deltas for a user always equals users.token_balance; both are only
// ever mutated inside the same transaction.
type LedgerEntry struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	UserID      snowflake.ID `gorm:"not null;index" json:"user_id"`
	Delta       int64        `gorm:"not null" json:"delta"`
	Description string       `gorm:"type:text;not null" json:"description"`
	FeatureType FeatureType  `gorm:"type:text;not null" json:"feature_type"`
	CreatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (LedgerEntry) TableName() string { return "ledger_entries" }
