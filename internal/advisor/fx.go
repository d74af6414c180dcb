package advisor

import (
	"context"
	"errors"

	"github.com/careerforge/careerforge/internal/advisor/gemini"
	"github.com/careerforge/careerforge/internal/advisor/service"
	"github.com/careerforge/careerforge/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("advisor.service",
	fx.Provide(
		provideGenerator,
		service.NewService,
	),
)

func provideGenerator(cfg config.Config, log *zap.Logger) (gemini.Generator, error) {
	if cfg.GeminiAPIKey == "" {
		log.Warn("GEMINI_API_KEY is not set, advisor generation is disabled")
		return disabledGenerator{}, nil
	}
	return gemini.NewClient(context.Background(), cfg.GeminiAPIKey, cfg.GeminiModel)
}

type disabledGenerator struct{}

func (disabledGenerator) GenerateContent(ctx context.Context, prompt string) (string, error) {
	_, _ = ctx, prompt
	return "", errors.New("gemini generator is not configured")
}
