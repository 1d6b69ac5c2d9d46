package app

import "boxity-analyzer/internal/domain/entity"

// CombineAngles объединяет два ракурса: итоговый TIS равен худшему из двух.
func CombineAngles(angle1, angle2 *entity.AnalysisResult) *entity.MultiAngleResult {
	a1 := tagView(*angle1, entity.ViewAngle1)
	a2 := tagView(*angle2, entity.ViewAngle2)

	combined := make([]entity.Difference, 0, len(a1.Differences)+len(a2.Differences))
	for _, r := range []entity.AnalysisResult{a1, a2} {
		for _, d := range r.Differences {
			d.ID = r.View + ":" + d.ID
			combined = append(combined, d)
		}
	}

	tis := min(a1.AggregateTIS, a2.AggregateTIS)
	assessment := Assess(tis, combined)

	return &entity.MultiAngleResult{
		AngleResults:      []entity.AnalysisResult{a1, a2},
		Differences:       combined,
		AggregateTIS:      tis,
		OverallAssessment: assessment,
		ConfidenceOverall: (a1.ConfidenceOverall + a2.ConfidenceOverall) / 2,
		Notes:             assessment.Notes(),
		CanUpload:         tis >= entity.UploadThreshold,
		Metadata: entity.AngleMetadata{
			Angle1TIS: a1.AggregateTIS,
			Angle2TIS: a2.AggregateTIS,
			MinTIS:    tis,
			MaxTIS:    max(a1.AggregateTIS, a2.AggregateTIS),
		},
	}
}

func tagView(r entity.AnalysisResult, view string) entity.AnalysisResult {
	r.View = view
	diffs := make([]entity.Difference, len(r.Differences))
	for i, d := range r.Differences {
		diffs[i] = d.WithView(view)
	}
	r.Differences = diffs
	return r
}
