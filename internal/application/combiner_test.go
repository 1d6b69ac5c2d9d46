package app

import (
	"testing"

	"github.com/stretchr/testify/require"

	"boxity-analyzer/internal/domain/entity"
)

func TestCombineAngles(t *testing.T) {
	angle1 := Aggregate("", []entity.Difference{diff(entity.TypeDent, 0.8)}, true)
	angle2 := Aggregate("", []entity.Difference{diff(entity.TypeScratch, 0.6), diff(entity.TypeStain, 0.5)}, true)

	combined := CombineAngles(angle1, angle2)

	require.Equal(t, 85, combined.Metadata.Angle1TIS)
	require.Equal(t, 87, combined.Metadata.Angle2TIS)
	require.Equal(t, 85, combined.AggregateTIS)
	require.Equal(t, 85, combined.Metadata.MinTIS)
	require.Equal(t, 87, combined.Metadata.MaxTIS)
	require.Equal(t, entity.AssessmentSafe, combined.OverallAssessment)
	require.InDelta(t, (0.8+0.55)/2, combined.ConfidenceOverall, 1e-9)

	require.Len(t, combined.Differences, 3)
	require.Equal(t, entity.ViewAngle1, combined.Differences[0].View)
	require.Equal(t, "angle_1:dent", combined.Differences[0].ID)
	require.Equal(t, entity.ViewAngle2, combined.Differences[2].View)

	require.Len(t, combined.AngleResults, 2)
	require.Equal(t, entity.ViewAngle2, combined.AngleResults[1].View)
	require.Equal(t, "scratch", combined.AngleResults[1].Differences[0].ID)

	// входные результаты не меняются
	require.Empty(t, angle1.Differences[0].View)
}

func TestCombineAngles_CriticalOnOneAngle(t *testing.T) {
	angle1 := Aggregate("", nil, true)
	angle2 := Aggregate("", []entity.Difference{diff(entity.TypeDigitalEdit, 0.9)}, true)
	require.Equal(t, entity.AssessmentSafe, angle1.OverallAssessment)

	combined := CombineAngles(angle1, angle2)
	require.Equal(t, 50, combined.AggregateTIS)
	require.Equal(t, entity.AssessmentHighRisk, combined.OverallAssessment)
}
