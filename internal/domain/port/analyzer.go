package port

import (
	"context"

	"boxity-analyzer/internal/domain/entity"
)

// PackageAnalyzer точка входа ядра анализа целостности упаковки
type PackageAnalyzer interface {
	// Analyze сравнивает эталон и текущий снимок одного ракурса
	Analyze(ctx context.Context, baseline, current entity.Image, view string) (*entity.AnalysisResult, error)

	// AnalyzeMultiAngle сравнивает два ракурса и объединяет результат
	AnalyzeMultiAngle(ctx context.Context, baseline1, current1, baseline2, current2 entity.Image) (*entity.MultiAngleResult, error)
}

// ImageSource загружает изображение из base64, data URI или URL
type ImageSource interface {
	Load(ctx context.Context, source string) (entity.Image, error)
}
