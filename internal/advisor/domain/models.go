package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

var (
	ErrAssessmentNotFound = errors.New("advisor: assessment not found")
	ErrScoreMismatch      = errors.New("advisor: submitted score disagrees with server")
	ErrGenerationFailed   = errors.New("advisor: generation failed")
	ErrInvalidInput       = errors.New("advisor: invalid input")
)

// Token costs per feature invocation.
const (
	CostInterviewQuiz   int64 = 200
	CostResumeImprove   int64 = 300
	CostCoverLetter     int64 = 300
	CostIndustryInsight int64 = 500
)

// ScoreTolerancePercent is the accepted gap, in percentage points,
// between a client-computed quiz score and the server's recalculation.
// Anything wider is rejected rather than silently reconciled.
const ScoreTolerancePercent = 5.0

// InsightTTL is how long a generated industry insight stays fresh.
const InsightTTL = 7 * 24 * time.Hour

// QuizQuestion is one generated multiple-choice question.
type QuizQuestion struct {
	Question     string   `json:"question"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correct_index"`
	Explanation  string   `json:"explanation"`
}

// Assessment is a generated quiz and, once submitted, its score.
type Assessment struct {
	ID             snowflake.ID   `gorm:"primaryKey" json:"id"`
	UserID         snowflake.ID   `gorm:"not null;index" json:"user_id"`
	QuizScore      float64        `gorm:"not null" json:"quiz_score"`
	Category       string         `gorm:"type:text;not null" json:"category"`
	Questions      datatypes.JSON `json:"questions"`
	ImprovementTip string         `gorm:"type:text;not null" json:"improvement_tip"`
	CreatedAt      time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Assessment) TableName() string { return "assessments" }

// Resume is the user's single stored resume.
type Resume struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	UserID    snowflake.ID `gorm:"not null;uniqueIndex:ux_resumes_user_id" json:"user_id"`
	Content   string       `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Resume) TableName() string { return "resumes" }

// CoverLetter is a generated draft for one application.
type CoverLetter struct {
	ID             snowflake.ID `gorm:"primaryKey" json:"id"`
	UserID         snowflake.ID `gorm:"not null;index" json:"user_id"`
	CompanyName    string       `gorm:"type:text;not null" json:"company_name"`
	JobTitle       string       `gorm:"type:text;not null" json:"job_title"`
	JobDescription string       `gorm:"type:text;not null" json:"job_description"`
	Content        string       `gorm:"type:text;not null" json:"content"`
	Status         string       `gorm:"type:text;not null" json:"status"`
	CreatedAt      time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt      time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (CoverLetter) TableName() string { return "cover_letters" }

// IndustryInsight is a cached per-industry report.
type IndustryInsight struct {
	ID           snowflake.ID   `gorm:"primaryKey" json:"id"`
	Industry     string         `gorm:"type:text;not null;uniqueIndex:ux_industry_insights_industry" json:"industry"`
	Payload      datatypes.JSON `json:"payload"`
	GeneratedAt  time.Time      `gorm:"not null" json:"generated_at"`
	NextUpdateAt time.Time      `gorm:"not null" json:"next_update_at"`
	CreatedAt    time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (IndustryInsight) TableName() string { return "industry_insights" }

// CoverLetterRequest carries the inputs for a draft.
type CoverLetterRequest struct {
	CompanyName    string `json:"company_name"`
	JobTitle       string `json:"job_title"`
	JobDescription string `json:"job_description"`
}

// SubmitQuizRequest carries the client's answers and its own score
// computation for cross-checking.
type SubmitQuizRequest struct {
	Answers     []int   `json:"answers"`
	ClientScore float64 `json:"client_score"`
}

type Service interface {
	GenerateQuiz(ctx context.Context, userID snowflake.ID, industry, skills string) (*Assessment, error)
	SubmitQuiz(ctx context.Context, userID, assessmentID snowflake.ID, req SubmitQuizRequest) (*Assessment, error)
	ImproveResume(ctx context.Context, userID snowflake.ID, content string) (*Resume, error)
	DraftCoverLetter(ctx context.Context, userID snowflake.ID, req CoverLetterRequest) (*CoverLetter, error)
	IndustryInsights(ctx context.Context, userID snowflake.ID, industry string) (*IndustryInsight, error)
}
