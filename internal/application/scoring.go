package app

import "boxity-analyzer/internal/domain/entity"

// ComputeTIS считает clamp(100 + Σ tis_delta, 0, 100).
func ComputeTIS(diffs []entity.Difference) int {
	tis := entity.MaxTIS
	for _, d := range diffs {
		tis += d.TISDelta
	}
	if tis < 0 {
		return 0
	}
	if tis > entity.MaxTIS {
		return entity.MaxTIS
	}
	return tis
}

// Assess переводит TIS в оценку. Критический тип всегда даёт HIGH_RISK.
func Assess(tis int, diffs []entity.Difference) entity.Assessment {
	for _, d := range diffs {
		if d.Type.IsCritical() {
			return entity.AssessmentHighRisk
		}
	}
	switch {
	case tis >= entity.SafeThreshold:
		return entity.AssessmentSafe
	case tis >= entity.ModerateThreshold:
		return entity.AssessmentModerateRisk
	default:
		return entity.AssessmentHighRisk
	}
}

// MeanConfidence среднее по расхождениям; для пустого списка 1.0.
func MeanConfidence(diffs []entity.Difference) float64 {
	if len(diffs) == 0 {
		return 1.0
	}
	var sum float64
	for _, d := range diffs {
		sum += d.Confidence
	}
	return sum / float64(len(diffs))
}

// Aggregate собирает результат одного ракурса.
// Без сигнала (все ответы невалидны и резерв ничего не дал) уверенность равна 0.
func Aggregate(view string, diffs []entity.Difference, hasSignal bool) *entity.AnalysisResult {
	if diffs == nil {
		diffs = []entity.Difference{}
	}
	tis := ComputeTIS(diffs)
	assessment := Assess(tis, diffs)

	confidence := MeanConfidence(diffs)
	if !hasSignal && len(diffs) == 0 {
		confidence = 0
	}

	return &entity.AnalysisResult{
		View:              view,
		Differences:       diffs,
		AggregateTIS:      tis,
		OverallAssessment: assessment,
		ConfidenceOverall: confidence,
		Notes:             assessment.Notes(),
		CanUpload:         tis >= entity.UploadThreshold,
	}
}
