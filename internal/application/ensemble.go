package app

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"boxity-analyzer/internal/domain/entity"
	"boxity-analyzer/internal/domain/port"
)

// DefaultMaxDifferences предел числа расхождений после слияния.
const DefaultMaxDifferences = 8

// ModelOutput сырой ответ одной модели ансамбля.
type ModelOutput struct {
	Model port.VisionModel
	Text  string
}

// EnsembleDetector вызывает две модели параллельно на одной паре снимков.
type EnsembleDetector struct {
	models  [2]port.VisionModel
	timeout time.Duration
	log     *zap.Logger
}

// NewEnsembleDetector создаёт ансамбль. Таймаут действует на каждый вызов отдельно.
func NewEnsembleDetector(primary, secondary port.VisionModel, timeout time.Duration, log *zap.Logger) *EnsembleDetector {
	if log == nil {
		log = zap.NewNop()
	}
	return &EnsembleDetector{
		models:  [2]port.VisionModel{primary, secondary},
		timeout: timeout,
		log:     log,
	}
}

// Invoke возвращает успешные ответы в порядке моделей и число неудачных вызовов.
// Если упали оба вызова, возвращает *entity.ModelUnavailableError.
func (e *EnsembleDetector) Invoke(ctx context.Context, req entity.ModelRequest) ([]ModelOutput, int, error) {
	var (
		texts [2]string
		errs  [2]error
	)

	// Ошибки вызовов не отменяют соседний вызов: группа без WithContext.
	var g errgroup.Group
	for i, m := range e.models {
		g.Go(func() error {
			if m == nil {
				errs[i] = entity.ErrModelNotConfigured
				return nil
			}
			callCtx := ctx
			if e.timeout > 0 {
				var cancel context.CancelFunc
				callCtx, cancel = context.WithTimeout(ctx, e.timeout)
				defer cancel()
			}

			started := time.Now()
			texts[i], errs[i] = m.Generate(callCtx, req)
			if errs[i] != nil {
				e.log.Warn("vision model call failed",
					zap.String("model", m.Name()),
					zap.Duration("elapsed", time.Since(started)),
					zap.Error(errs[i]))
				return nil
			}
			e.log.Debug("vision model call finished",
				zap.String("model", m.Name()),
				zap.Duration("elapsed", time.Since(started)))
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}

	outputs := make([]ModelOutput, 0, len(e.models))
	var failed []error
	for i, m := range e.models {
		if errs[i] != nil {
			failed = append(failed, errs[i])
			continue
		}
		outputs = append(outputs, ModelOutput{Model: m, Text: texts[i]})
	}
	if len(outputs) == 0 {
		return nil, len(failed), &entity.ModelUnavailableError{Errs: failed}
	}
	return outputs, len(failed), nil
}

// MergeCandidates склеивает списки, оставляя первое вхождение каждой пары (region, type),
// и обрезает результат до limit.
func MergeCandidates(limit int, lists ...[]entity.Candidate) []entity.Candidate {
	if limit <= 0 {
		limit = DefaultMaxDifferences
	}
	seen := make(map[string]struct{})
	merged := make([]entity.Candidate, 0, limit)
	for _, list := range lists {
		for _, c := range list {
			if len(merged) == limit {
				return merged
			}
			key := c.Key()
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			merged = append(merged, c)
		}
	}
	return merged
}
