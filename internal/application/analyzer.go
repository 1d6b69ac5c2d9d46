package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"boxity-analyzer/internal/domain/entity"
	"boxity-analyzer/internal/domain/port"
)

// AnalyzerConfig пороги и таймауты конвейера. MaxDifferences не может превышать DefaultMaxDifferences.
type AnalyzerConfig struct {
	ConfidenceThreshold float64
	MaxDifferences      int
	FallbackTimeout     time.Duration
}

// DefaultAnalyzerConfig значения по умолчанию.
var DefaultAnalyzerConfig = AnalyzerConfig{
	ConfidenceThreshold: 0.6,
	MaxDifferences:      DefaultMaxDifferences,
	FallbackTimeout:     10 * time.Second,
}

// Analyzer конвейер: ансамбль → проверка схемы → резервный детектор → оценка TIS.
type Analyzer struct {
	ensemble  *EnsembleDetector
	validator *SchemaValidator
	fallback  port.FallbackDetector
	cfg       AnalyzerConfig
	log       *zap.Logger
}

var _ port.PackageAnalyzer = (*Analyzer)(nil)

// NewAnalyzer создаёт анализатор. fallback может быть nil.
func NewAnalyzer(ensemble *EnsembleDetector, validator *SchemaValidator, fallback port.FallbackDetector, cfg AnalyzerConfig, log *zap.Logger) *Analyzer {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.MaxDifferences <= 0 || cfg.MaxDifferences > DefaultMaxDifferences {
		cfg.MaxDifferences = DefaultMaxDifferences
	}
	if cfg.ConfidenceThreshold <= 0 {
		cfg.ConfidenceThreshold = DefaultAnalyzerConfig.ConfidenceThreshold
	}
	if cfg.FallbackTimeout <= 0 {
		cfg.FallbackTimeout = DefaultAnalyzerConfig.FallbackTimeout
	}
	return &Analyzer{
		ensemble:  ensemble,
		validator: validator,
		fallback:  fallback,
		cfg:       cfg,
		log:       log,
	}
}

// Analyze сравнивает эталон и текущий снимок одного ракурса.
func (a *Analyzer) Analyze(ctx context.Context, baseline, current entity.Image, view string) (*entity.AnalysisResult, error) {
	if err := baseline.Validate("baseline"); err != nil {
		return nil, err
	}
	if err := current.Validate("current"); err != nil {
		return nil, err
	}

	log := a.log.With(zap.String("view", view))

	outputs, failures, err := a.ensemble.Invoke(ctx, BuildComparisonRequest(baseline, current, view))
	if err != nil {
		return nil, err
	}

	diag := entity.Diagnostics{ModelFailures: failures}
	lists := make([][]entity.Candidate, 0, len(outputs))
	hasSignal := false
	for _, out := range outputs {
		outcome := a.validator.Validate(ctx, out.Model, out.Text)
		diag.Validation = append(diag.Validation, outcome.State)
		if outcome.State == entity.ValidationValid {
			hasSignal = true
			lists = append(lists, outcome.Candidates)
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	merged := MergeCandidates(a.cfg.MaxDifferences, lists...)

	if a.needsFallback(hasSignal, merged) {
		diag.FallbackInvoked = true
		extra := a.runFallback(ctx, log, baseline, current)
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		before := len(merged)
		merged = MergeCandidates(a.cfg.MaxDifferences, merged, extra)
		diag.FallbackDifferences = len(merged) - before
		if diag.FallbackDifferences > 0 {
			hasSignal = true
		}
	}

	result := Aggregate(view, buildDifferences(merged), hasSignal)
	result.Diagnostics = diag

	high, medium, low := result.SeverityCounts()
	log.Info("analysis finished",
		zap.Int("tis", result.AggregateTIS),
		zap.String("assessment", string(result.OverallAssessment)),
		zap.Float64("confidence", result.ConfidenceOverall),
		zap.Int("high", high),
		zap.Int("medium", medium),
		zap.Int("low", low),
		zap.Int("model_failures", diag.ModelFailures),
		zap.Bool("fallback", diag.FallbackInvoked))

	return result, nil
}

// AnalyzeMultiAngle запускает оба ракурса параллельно и объединяет результат.
func (a *Analyzer) AnalyzeMultiAngle(ctx context.Context, baseline1, current1, baseline2, current2 entity.Image) (*entity.MultiAngleResult, error) {
	inputs := []struct {
		field string
		img   entity.Image
	}{
		{"baseline_angle1", baseline1},
		{"current_angle1", current1},
		{"baseline_angle2", baseline2},
		{"current_angle2", current2},
	}
	for _, in := range inputs {
		if err := in.img.Validate(in.field); err != nil {
			return nil, err
		}
	}

	var results [2]*entity.AnalysisResult
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		r, err := a.Analyze(gctx, baseline1, current1, entity.ViewAngle1)
		if err != nil {
			return fmt.Errorf("%s: %w", entity.ViewAngle1, err)
		}
		results[0] = r
		return nil
	})
	g.Go(func() error {
		r, err := a.Analyze(gctx, baseline2, current2, entity.ViewAngle2)
		if err != nil {
			return fmt.Errorf("%s: %w", entity.ViewAngle2, err)
		}
		results[1] = r
		return nil
	})
	if err := g.Wait(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, err
	}

	return CombineAngles(results[0], results[1]), nil
}

func (a *Analyzer) needsFallback(hasSignal bool, merged []entity.Candidate) bool {
	if !hasSignal || len(merged) == 0 {
		return true
	}
	var sum float64
	for _, c := range merged {
		sum += c.Confidence
	}
	return sum/float64(len(merged)) < a.cfg.ConfidenceThreshold
}

// runFallback запускает классический детектор в отдельной горутине с таймаутом.
// Любая ошибка или таймаут означают отсутствие дополнительных расхождений.
func (a *Analyzer) runFallback(ctx context.Context, log *zap.Logger, baseline, current entity.Image) []entity.Candidate {
	if a.fallback == nil {
		log.Debug("fallback detector is not configured")
		return nil
	}

	fctx, cancel := context.WithTimeout(ctx, a.cfg.FallbackTimeout)
	defer cancel()

	type fallbackResult struct {
		candidates []entity.Candidate
		err        error
	}
	done := make(chan fallbackResult, 1)
	go func() {
		c, err := a.fallback.DetectDifferences(fctx, baseline, current)
		done <- fallbackResult{candidates: c, err: err}
	}()

	select {
	case <-fctx.Done():
		log.Warn("fallback detector timed out", zap.Error(fctx.Err()))
		return nil
	case res := <-done:
		if res.err != nil {
			if errors.Is(res.err, entity.ErrFallbackUnavailable) {
				log.Info("fallback detector unavailable", zap.Error(res.err))
			} else {
				log.Warn("fallback detector failed", zap.Error(res.err))
			}
			return nil
		}
		out := make([]entity.Candidate, 0, len(res.candidates))
		for _, c := range res.candidates {
			c.Source = entity.SourceFallback
			c.Region = entity.NormalizeRegion(c.Region, c.BBox)
			out = append(out, c)
		}
		return out
	}
}

// buildDifferences назначает оценку по таблице и делает ID уникальными.
func buildDifferences(candidates []entity.Candidate) []entity.Difference {
	diffs := make([]entity.Difference, 0, len(candidates))
	used := make(map[string]struct{}, len(candidates))
	next := 1
	for _, c := range candidates {
		d, ok := entity.NewDifference(c)
		if !ok {
			continue
		}
		if _, dup := used[d.ID]; dup || d.ID == "" {
			for {
				d.ID = fmt.Sprintf("d%d", next)
				next++
				if _, taken := used[d.ID]; !taken {
					break
				}
			}
		}
		used[d.ID] = struct{}{}
		diffs = append(diffs, d)
	}
	return diffs
}
