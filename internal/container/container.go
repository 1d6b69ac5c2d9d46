package container

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"boxity-analyzer/config"
	app "boxity-analyzer/internal/application"
	"boxity-analyzer/internal/domain/port"
	"boxity-analyzer/internal/infrastructure/gemini"
	"boxity-analyzer/internal/infrastructure/imagesrc"
	"boxity-analyzer/internal/infrastructure/storage"
	"boxity-analyzer/internal/infrastructure/vision"
)

type Container struct {
	UserService       *app.UserService
	InspectionService *app.InspectionService
	Analyzer          *app.Analyzer
	Images            *imagesrc.Loader

	gemini *gemini.Client
}

// New собирает конвейер анализа и сервисы бота по конфигурации.
func New(ctx context.Context, cfg *config.Config, log *zap.Logger) (*Container, error) {
	client, err := gemini.NewClient(ctx, gemini.Config{
		APIKey:      cfg.Gemini.APIKey,
		RateLimit:   cfg.Gemini.RateLimit,
		MaxAttempts: cfg.Gemini.MaxAttempts,
	}, log.Named("gemini"))
	if err != nil {
		return nil, eris.Wrap(err, "container: gemini client")
	}

	c, err := Build(
		client.Model(cfg.Gemini.PrimaryModel),
		client.Model(cfg.Gemini.SecondaryModel),
		storage.NewMemoryUserRepository(),
		cfg,
		log,
	)
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	c.gemini = client
	return c, nil
}

// Build собирает сервисы из готовых моделей и хранилища.
func Build(primary, secondary port.VisionModel, users port.UserRepository, cfg *config.Config, log *zap.Logger) (*Container, error) {
	validator, err := app.NewSchemaValidator(cfg.Gemini.Timeout, log.Named("validator"))
	if err != nil {
		return nil, eris.Wrap(err, "container: schema validator")
	}

	detector := vision.NewGoCVDetector()
	ensemble := app.NewEnsembleDetector(primary, secondary, cfg.Gemini.Timeout, log.Named("ensemble"))
	analyzer := app.NewAnalyzer(ensemble, validator, detector, app.AnalyzerConfig{
		ConfidenceThreshold: cfg.Analysis.ConfidenceThreshold,
		MaxDifferences:      cfg.Analysis.MaxDifferences,
		FallbackTimeout:     cfg.Analysis.FallbackTimeout,
	}, log.Named("analyzer"))

	userService := app.NewUserService(users)
	inspectionService := app.NewInspectionService(userService, analyzer, detector, log.Named("inspection"))

	return &Container{
		UserService:       userService,
		InspectionService: inspectionService,
		Analyzer:          analyzer,
		Images:            imagesrc.NewLoader(cfg.HTTP.FetchTimeout, log.Named("images")),
	}, nil
}

// Close освобождает клиентов внешних API.
func (c *Container) Close() error {
	if c.gemini == nil {
		return nil
	}
	return c.gemini.Close()
}
