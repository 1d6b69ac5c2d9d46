package port

import (
	"context"

	"boxity-analyzer/internal/domain/entity"
)

// VisionModel мультимодальная модель, отвечающая текстом.
// Реализации должны быть безопасны для конкурентного использования.
type VisionModel interface {
	Name() string

	// Generate отправляет запрос и возвращает сырой текст ответа
	Generate(ctx context.Context, req entity.ModelRequest) (string, error)
}
