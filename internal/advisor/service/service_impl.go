package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/bwmarrin/snowflake"
	advisordomain "github.com/careerforge/careerforge/internal/advisor/domain"
	"github.com/careerforge/careerforge/internal/advisor/gemini"
	"github.com/careerforge/careerforge/internal/clock"
	ledgerdomain "github.com/careerforge/careerforge/internal/ledger/domain"
	obsmetrics "github.com/careerforge/careerforge/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Generator  gemini.Generator
	LedgerSvc  ledgerdomain.Service
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	generator  gemini.Generator
	ledgerSvc  ledgerdomain.Service
	obsMetrics *obsmetrics.Metrics
}

func NewService(p Params) advisordomain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("advisor.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		generator:  p.Generator,
		ledgerSvc:  p.LedgerSvc,
		obsMetrics: p.ObsMetrics,
	}
}

func (s *Service) GenerateQuiz(ctx context.Context, userID snowflake.ID, industry, skills string) (*advisordomain.Assessment, error) {
	industry = strings.TrimSpace(industry)
	if industry == "" {
		return nil, advisordomain.ErrInvalidInput
	}

	prompt := fmt.Sprintf(
		"Generate 10 multiple-choice interview questions for a %s candidate with skills: %s. "+
			"Respond with a JSON array of objects with fields question, options (4 strings), correct_index, explanation.",
		industry, skills,
	)

	raw, err := s.generate(ctx, userID, advisordomain.CostInterviewQuiz, ledgerdomain.FeatureInterviewPrep, "interview quiz", prompt)
	if err != nil {
		return nil, err
	}

	var questions []advisordomain.QuizQuestion
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &questions); err != nil || len(questions) == 0 {
		s.refund(ctx, userID, advisordomain.CostInterviewQuiz, "interview quiz refund")
		s.recordGeneration(ctx, "interview_prep", "unparseable")
		return nil, advisordomain.ErrGenerationFailed
	}

	encoded, err := json.Marshal(questions)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	assessment := &advisordomain.Assessment{
		ID:        s.genID.Generate(),
		UserID:    userID,
		QuizScore: 0,
		Category:  industry,
		Questions: datatypes.JSON(encoded),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.db.WithContext(ctx).Create(assessment).Error; err != nil {
		return nil, err
	}
	s.recordGeneration(ctx, "interview_prep", "ok")
	return assessment, nil
}

func (s *Service) SubmitQuiz(ctx context.Context, userID, assessmentID snowflake.ID, req advisordomain.SubmitQuizRequest) (*advisordomain.Assessment, error) {
	var assessment advisordomain.Assessment
	err := s.db.WithContext(ctx).First(&assessment, "id = ? AND user_id = ?", assessmentID, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, advisordomain.ErrAssessmentNotFound
	}
	if err != nil {
		return nil, err
	}

	var questions []advisordomain.QuizQuestion
	if err := json.Unmarshal(assessment.Questions, &questions); err != nil {
		return nil, err
	}
	if len(req.Answers) != len(questions) {
		return nil, advisordomain.ErrInvalidInput
	}

	correct := 0
	for i, q := range questions {
		if req.Answers[i] == q.CorrectIndex {
			correct++
		}
	}
	serverScore := float64(correct) / float64(len(questions)) * 100

	// The client computes its own score for display; the server's
	// recalculation is authoritative and a disagreement beyond the
	// tolerance is rejected outright.
	if math.Abs(req.ClientScore-serverScore) > advisordomain.ScoreTolerancePercent {
		s.log.Warn("quiz score mismatch",
			zap.String("assessment_id", assessmentID.String()),
			zap.Float64("client_score", req.ClientScore),
			zap.Float64("server_score", serverScore),
		)
		return nil, advisordomain.ErrScoreMismatch
	}

	tip := s.improvementTip(ctx, assessment.Category, questions, req.Answers)

	now := s.clock.Now()
	result := s.db.WithContext(ctx).Model(&advisordomain.Assessment{}).
		Where("id = ?", assessmentID).
		Updates(map[string]any{
			"quiz_score":      serverScore,
			"improvement_tip": tip,
			"updated_at":      now,
		})
	if result.Error != nil {
		return nil, result.Error
	}

	assessment.QuizScore = serverScore
	assessment.ImprovementTip = tip
	assessment.UpdatedAt = now
	return &assessment, nil
}

func (s *Service) ImproveResume(ctx context.Context, userID snowflake.ID, content string) (*advisordomain.Resume, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, advisordomain.ErrInvalidInput
	}

	prompt := "Improve the following resume for clarity and impact, keeping it truthful. " +
		"Return only the improved resume text.\n\n" + content

	improved, err := s.generate(ctx, userID, advisordomain.CostResumeImprove, ledgerdomain.FeatureResume, "resume improvement", prompt)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	resume := &advisordomain.Resume{
		ID:        s.genID.Generate(),
		UserID:    userID,
		Content:   improved,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]any{"content": improved, "updated_at": now}),
	}).Create(resume).Error
	if err != nil {
		return nil, err
	}
	s.recordGeneration(ctx, "resume", "ok")
	return resume, nil
}

func (s *Service) DraftCoverLetter(ctx context.Context, userID snowflake.ID, req advisordomain.CoverLetterRequest) (*advisordomain.CoverLetter, error) {
	if strings.TrimSpace(req.CompanyName) == "" || strings.TrimSpace(req.JobTitle) == "" {
		return nil, advisordomain.ErrInvalidInput
	}

	prompt := fmt.Sprintf(
		"Write a concise cover letter for the role %q at %q. Job description:\n%s",
		req.JobTitle, req.CompanyName, req.JobDescription,
	)

	content, err := s.generate(ctx, userID, advisordomain.CostCoverLetter, ledgerdomain.FeatureCoverLetter, "cover letter", prompt)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	letter := &advisordomain.CoverLetter{
		ID:             s.genID.Generate(),
		UserID:         userID,
		CompanyName:    strings.TrimSpace(req.CompanyName),
		JobTitle:       strings.TrimSpace(req.JobTitle),
		JobDescription: strings.TrimSpace(req.JobDescription),
		Content:        content,
		Status:         "completed",
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.db.WithContext(ctx).Create(letter).Error; err != nil {
		return nil, err
	}
	s.recordGeneration(ctx, "cover_letter", "ok")
	return letter, nil
}

func (s *Service) IndustryInsights(ctx context.Context, userID snowflake.ID, industry string) (*advisordomain.IndustryInsight, error) {
	industry = strings.ToLower(strings.TrimSpace(industry))
	if industry == "" {
		return nil, advisordomain.ErrInvalidInput
	}

	now := s.clock.Now()
	var cached advisordomain.IndustryInsight
	err := s.db.WithContext(ctx).First(&cached, "industry = ?", industry).Error
	if err == nil && cached.NextUpdateAt.After(now) {
		return &cached, nil
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	prompt := fmt.Sprintf(
		"Produce an industry insight report for the %s industry as a JSON object with fields "+
			"growth_rate, demand_level, top_skills (array), salary_ranges (array of {role, min, max, median}), "+
			"market_outlook, key_trends (array), recommended_skills (array).",
		industry,
	)

	raw, err := s.generate(ctx, userID, advisordomain.CostIndustryInsight, ledgerdomain.FeatureIndustryInsight, "industry insight", prompt)
	if err != nil {
		return nil, err
	}

	payload := stripCodeFence(raw)
	if !json.Valid([]byte(payload)) {
		s.refund(ctx, userID, advisordomain.CostIndustryInsight, "industry insight refund")
		s.recordGeneration(ctx, "industry_insight", "unparseable")
		return nil, advisordomain.ErrGenerationFailed
	}

	insight := &advisordomain.IndustryInsight{
		ID:           s.genID.Generate(),
		Industry:     industry,
		Payload:      datatypes.JSON(payload),
		GeneratedAt:  now,
		NextUpdateAt: now.Add(advisordomain.InsightTTL),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "industry"}},
		DoUpdates: clause.Assignments(map[string]any{
			"payload":        insight.Payload,
			"generated_at":   now,
			"next_update_at": insight.NextUpdateAt,
			"updated_at":     now,
		}),
	}).Create(insight).Error
	if err != nil {
		return nil, err
	}
	s.recordGeneration(ctx, "industry_insight", "ok")
	return insight, nil
}

// generate debits the feature cost, invokes the generator, and refunds
// the debit when generation fails.
func (s *Service) generate(ctx context.Context, userID snowflake.ID, cost int64, feature ledgerdomain.FeatureType, description, prompt string) (string, error) {
	if err := s.ledgerSvc.Debit(ctx, userID, cost, description, feature); err != nil {
		return "", err
	}

	output, err := s.generator.GenerateContent(ctx, prompt)
	if err != nil {
		s.log.Warn("generation failed", zap.String("feature", string(feature)), zap.Error(err))
		s.refund(ctx, userID, cost, description+" refund")
		s.recordGeneration(ctx, string(feature), "error")
		return "", fmt.Errorf("%w: %v", advisordomain.ErrGenerationFailed, err)
	}
	return output, nil
}

func (s *Service) refund(ctx context.Context, userID snowflake.ID, amount int64, description string) {
	if err := s.ledgerSvc.Credit(ctx, userID, amount, description, ledgerdomain.FeatureRefund); err != nil {
		s.log.Error("refund failed",
			zap.String("user_id", userID.String()),
			zap.Int64("amount", amount),
			zap.Error(err),
		)
	}
}

func (s *Service) improvementTip(ctx context.Context, category string, questions []advisordomain.QuizQuestion, answers []int) string {
	var missed []string
	for i, q := range questions {
		if answers[i] != q.CorrectIndex {
			missed = append(missed, q.Question)
		}
	}
	if len(missed) == 0 {
		return ""
	}

	prompt := fmt.Sprintf(
		"A %s candidate missed these interview questions:\n%s\nGive one short improvement tip.",
		category, strings.Join(missed, "\n"),
	)
	tip, err := s.generator.GenerateContent(ctx, prompt)
	if err != nil {
		// The tip is decorative; the submission succeeds without it.
		s.log.Debug("improvement tip generation failed", zap.Error(err))
		return ""
	}
	return tip
}

func (s *Service) recordGeneration(ctx context.Context, feature, outcome string) {
	if s.obsMetrics != nil {
		s.obsMetrics.RecordAdvisorGeneration(ctx, feature, outcome)
	}
}

func stripCodeFence(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}
