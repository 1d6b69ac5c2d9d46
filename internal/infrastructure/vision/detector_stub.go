//go:build !gocv
// +build !gocv

package vision

import (
	"context"
	"fmt"

	"boxity-analyzer/internal/domain/entity"
)

// DetectDifferences без OpenCV резервный детектор недоступен.
func (d *GoCVDetector) DetectDifferences(ctx context.Context, baseline, current entity.Image) ([]entity.Candidate, error) {
	return nil, fmt.Errorf("%w: gocv build tag is not enabled", entity.ErrFallbackUnavailable)
}

// Highlight возвращает ошибку, если сборка без тега gocv.
func (d *GoCVDetector) Highlight(imageData []byte, differences []entity.Difference) ([]byte, error) {
	return nil, fmt.Errorf("%w: gocv build tag is not enabled", entity.ErrFallbackUnavailable)
}
