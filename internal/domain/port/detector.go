package port

import (
	"context"

	"boxity-analyzer/internal/domain/entity"
)

// FallbackDetector классический детектор расхождений без обучения
type FallbackDetector interface {
	// DetectDifferences выравнивает текущий снимок по эталону и возвращает найденные области.
	// Возвращает entity.ErrFallbackUnavailable, если выравнивание невозможно или нет OpenCV.
	DetectDifferences(ctx context.Context, baseline, current entity.Image) ([]entity.Candidate, error)
}

// Highlighter рисует рамки расхождений на снимке
type Highlighter interface {
	// Highlight создаёт изображение с подсветкой расхождений
	Highlight(imageData []byte, differences []entity.Difference) ([]byte, error)
}
