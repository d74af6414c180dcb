package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	advisordomain "github.com/careerforge/careerforge/internal/advisor/domain"
	advisorservice "github.com/careerforge/careerforge/internal/advisor/service"
	"github.com/careerforge/careerforge/internal/clock"
	ledgerdomain "github.com/careerforge/careerforge/internal/ledger/domain"
	ledgerservice "github.com/careerforge/careerforge/internal/ledger/service"
	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type stubGenerator struct {
	output string
	err    error
	calls  int
}

func (g *stubGenerator) GenerateContent(ctx context.Context, prompt string) (string, error) {
	_ = ctx
	_ = prompt
	g.calls++
	if g.err != nil {
		return "", g.err
	}
	return g.output, nil
}

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
		`CREATE TABLE ledger_entries (
			id BIGINT PRIMARY KEY,
			user_id BIGINT NOT NULL,
			delta BIGINT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			feature_type TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE assessments (
			id BIGINT PRIMARY KEY,
			user_id BIGINT NOT NULL,
			quiz_score DOUBLE PRECISION NOT NULL DEFAULT 0,
			category TEXT NOT NULL DEFAULT '',
			questions TEXT,
			improvement_tip TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE resumes (
			id BIGINT PRIMARY KEY,
			user_id BIGINT NOT NULL,
			content TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE UNIQUE INDEX ux_resumes_user_id ON resumes(user_id)`,
		`CREATE TABLE cover_letters (
			id BIGINT PRIMARY KEY,
			user_id BIGINT NOT NULL,
			company_name TEXT NOT NULL DEFAULT '',
			job_title TEXT NOT NULL DEFAULT '',
			job_description TEXT NOT NULL DEFAULT '',
			content TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'completed',
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE industry_insights (
			id BIGINT PRIMARY KEY,
			industry TEXT NOT NULL,
			payload TEXT,
			generated_at TIMESTAMP NOT NULL,
			next_update_at TIMESTAMP NOT NULL,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE UNIQUE INDEX ux_industry_insights_industry ON industry_insights(industry)`,
	}
	for _, stmt := range schema {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("create schema: %v", err)
		}
	}
	return db
}

type fixture struct {
	db     *gorm.DB
	node   *snowflake.Node
	clk    *clock.FakeClock
	gen    *stubGenerator
	svc    advisordomain.Service
	userID snowflake.ID
}

func newFixture(t *testing.T, nodeID int64, balance int64) *fixture {
	t.Helper()
	db := setupTestDB(t)

	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}
	clk := clock.NewFakeClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	gen := &stubGenerator{}

	ledgerSvc := ledgerservice.NewService(ledgerservice.Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
	})
	svc := advisorservice.NewService(advisorservice.Params{
		DB:        db,
		Log:       zap.NewNop(),
		GenID:     node,
		Clock:     clk,
		Generator: gen,
		LedgerSvc: ledgerSvc,
	})

	userID := node.Generate()
	now := time.Now().UTC()
	if err := db.Exec(
		`INSERT INTO users (id, external_id, token_balance, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		userID, "ext_"+userID.String(), balance, now, now,
	).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}

	return &fixture{db: db, node: node, clk: clk, gen: gen, svc: svc, userID: userID}
}

func (f *fixture) balance(t *testing.T) int64 {
	t.Helper()
	var balance int64
	if err := f.db.Raw(`SELECT token_balance FROM users WHERE id = ?`, f.userID).Scan(&balance).Error; err != nil {
		t.Fatalf("balance: %v", err)
	}
	return balance
}

func quizJSON(t *testing.T, n int) string {
	t.Helper()
	questions := make([]advisordomain.QuizQuestion, n)
	for i := range questions {
		questions[i] = advisordomain.QuizQuestion{
			Question:     fmt.Sprintf("q%d", i),
			Options:      []string{"a", "b", "c", "d"},
			CorrectIndex: 1,
			Explanation:  "because",
		}
	}
	encoded, err := json.Marshal(questions)
	if err != nil {
		t.Fatalf("marshal questions: %v", err)
	}
	return string(encoded)
}

func TestGenerateQuizDebitsTokens(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 50, 1_000)
	f.gen.output = quizJSON(t, 10)

	assessment, err := f.svc.GenerateQuiz(ctx, f.userID, "software", "go,sql")
	if err != nil {
		t.Fatalf("generate quiz: %v", err)
	}
	if assessment.Category != "software" {
		t.Fatalf("category = %q", assessment.Category)
	}
	if got := f.balance(t); got != 1_000-advisordomain.CostInterviewQuiz {
		t.Fatalf("balance = %d, want %d", got, 1_000-advisordomain.CostInterviewQuiz)
	}
}

func TestGenerateQuizInsufficientBalance(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 51, advisordomain.CostInterviewQuiz-1)
	f.gen.output = quizJSON(t, 10)

	_, err := f.svc.GenerateQuiz(ctx, f.userID, "software", "go")
	if !errors.Is(err, ledgerdomain.ErrInsufficientBalance) {
		t.Fatalf("err = %v, want ErrInsufficientBalance", err)
	}
	if f.gen.calls != 0 {
		t.Fatalf("generator called %d times before debit cleared", f.gen.calls)
	}
}

func TestGenerationFailureRefundsDebit(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 52, 1_000)
	f.gen.err = errors.New("model overloaded")

	_, err := f.svc.ImproveResume(ctx, f.userID, "my resume")
	if !errors.Is(err, advisordomain.ErrGenerationFailed) {
		t.Fatalf("err = %v, want ErrGenerationFailed", err)
	}
	if got := f.balance(t); got != 1_000 {
		t.Fatalf("balance = %d, want 1000 after refund", got)
	}

	var refunds int64
	if err := f.db.Raw(`SELECT COUNT(1) FROM ledger_entries WHERE user_id = ? AND feature_type = 'refund'`, f.userID).Scan(&refunds).Error; err != nil {
		t.Fatalf("count refunds: %v", err)
	}
	if refunds != 1 {
		t.Fatalf("refund entries = %d, want 1", refunds)
	}
}

func TestSubmitQuizScoreTolerance(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 53, 1_000)
	f.gen.output = quizJSON(t, 10)

	assessment, err := f.svc.GenerateQuiz(ctx, f.userID, "software", "go")
	if err != nil {
		t.Fatalf("generate quiz: %v", err)
	}

	// 7 of 10 correct: server score 70.
	answers := []int{1, 1, 1, 1, 1, 1, 1, 0, 0, 0}

	// Exactly at the tolerance boundary is accepted.
	got, err := f.svc.SubmitQuiz(ctx, f.userID, assessment.ID, advisordomain.SubmitQuizRequest{
		Answers:     answers,
		ClientScore: 75,
	})
	if err != nil {
		t.Fatalf("submit at boundary: %v", err)
	}
	if got.QuizScore != 70 {
		t.Fatalf("stored score = %v, want server-computed 70", got.QuizScore)
	}

	// Past the boundary is rejected.
	_, err = f.svc.SubmitQuiz(ctx, f.userID, assessment.ID, advisordomain.SubmitQuizRequest{
		Answers:     answers,
		ClientScore: 75.1,
	})
	if !errors.Is(err, advisordomain.ErrScoreMismatch) {
		t.Fatalf("err = %v, want ErrScoreMismatch", err)
	}
}

func TestSubmitQuizOwnership(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 54, 1_000)
	f.gen.output = quizJSON(t, 10)

	assessment, err := f.svc.GenerateQuiz(ctx, f.userID, "software", "go")
	if err != nil {
		t.Fatalf("generate quiz: %v", err)
	}

	other := f.node.Generate()
	_, err = f.svc.SubmitQuiz(ctx, other, assessment.ID, advisordomain.SubmitQuizRequest{
		Answers:     []int{1, 1, 1, 1, 1, 1, 1, 1, 1, 1},
		ClientScore: 100,
	})
	if !errors.Is(err, advisordomain.ErrAssessmentNotFound) {
		t.Fatalf("err = %v, want ErrAssessmentNotFound", err)
	}
}

func TestIndustryInsightsCachedForSevenDays(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 55, 10_000)
	f.gen.output = `{"growth_rate": 4.2, "demand_level": "high"}`

	first, err := f.svc.IndustryInsights(ctx, f.userID, "Software")
	if err != nil {
		t.Fatalf("first insights: %v", err)
	}
	if f.gen.calls != 1 {
		t.Fatalf("generator calls = %d, want 1", f.gen.calls)
	}
	balanceAfterFirst := f.balance(t)
	if balanceAfterFirst != 10_000-advisordomain.CostIndustryInsight {
		t.Fatalf("balance = %d after generation", balanceAfterFirst)
	}

	// Within the TTL: cache hit, no debit, no generation.
	f.clk.Advance(6 * 24 * time.Hour)
	second, err := f.svc.IndustryInsights(ctx, f.userID, "software")
	if err != nil {
		t.Fatalf("second insights: %v", err)
	}
	if f.gen.calls != 1 {
		t.Fatalf("generator calls = %d, want still 1", f.gen.calls)
	}
	if second.ID != first.ID {
		t.Fatalf("expected cached insight, got new row")
	}
	if got := f.balance(t); got != balanceAfterFirst {
		t.Fatalf("balance = %d, want unchanged %d on cache hit", got, balanceAfterFirst)
	}

	// Past the TTL: regenerated.
	f.clk.Advance(2 * 24 * time.Hour)
	if _, err := f.svc.IndustryInsights(ctx, f.userID, "software"); err != nil {
		t.Fatalf("third insights: %v", err)
	}
	if f.gen.calls != 2 {
		t.Fatalf("generator calls = %d, want 2 after expiry", f.gen.calls)
	}
}

func TestDraftCoverLetter(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 56, 1_000)
	f.gen.output = "Dear hiring team, ..."

	letter, err := f.svc.DraftCoverLetter(ctx, f.userID, advisordomain.CoverLetterRequest{
		CompanyName:    "Acme",
		JobTitle:       "Backend Engineer",
		JobDescription: "Build APIs",
	})
	if err != nil {
		t.Fatalf("draft cover letter: %v", err)
	}
	if letter.Content == "" || letter.Status != "completed" {
		t.Fatalf("unexpected letter %+v", letter)
	}
	if got := f.balance(t); got != 1_000-advisordomain.CostCoverLetter {
		t.Fatalf("balance = %d", got)
	}
}

func TestGenerateQuizUnparseableOutputRefunds(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 57, 1_000)
	f.gen.output = "sorry, I can't do that"

	_, err := f.svc.GenerateQuiz(ctx, f.userID, "software", "go")
	if !errors.Is(err, advisordomain.ErrGenerationFailed) {
		t.Fatalf("err = %v, want ErrGenerationFailed", err)
	}
	if got := f.balance(t); got != 1_000 {
		t.Fatalf("balance = %d, want 1000 after refund", got)
	}
}
