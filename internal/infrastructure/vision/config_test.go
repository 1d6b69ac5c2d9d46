package vision

import (
	"testing"

	"github.com/stretchr/testify/require"

	"boxity-analyzer/internal/domain/entity"
)

func TestGoCVDetector_Classify(t *testing.T) {
	d := NewGoCVDetector()

	require.Equal(t, entity.TypeScratch, d.classify(diffRegion{W: 200, H: 10}))
	require.Equal(t, entity.TypeScratch, d.classify(diffRegion{W: 8, H: 120, ColorDelta: 90}))
	require.Equal(t, entity.TypeColorShift, d.classify(diffRegion{W: 50, H: 40, ColorDelta: 55}))
	require.Equal(t, entity.TypeDent, d.classify(diffRegion{W: 50, H: 40, ColorDelta: 5}))
}

func TestGoCVDetector_ToCandidates(t *testing.T) {
	d := NewGoCVDetector()
	d.MaxRegions = 2

	regions := []diffRegion{
		{X: 0, Y: 0, W: 10, H: 10, Area: 100},
		{X: 10, Y: 10, W: 80, H: 60, Area: 4800, ColorDelta: 60},
		{X: 40, Y: 85, W: 50, H: 5, Area: 250},
	}
	out := d.toCandidates(regions, 100, 100)
	require.Len(t, out, 2)

	require.Equal(t, "cv1", out[0].ID)
	require.Equal(t, entity.TypeColorShift, out[0].Type)
	require.Equal(t, entity.RegionCenter, out[0].Region)
	require.Equal(t, entity.SourceFallback, out[0].Source)
	require.InDelta(t, 0.55, out[0].Confidence, 1e-9)
	require.Equal(t, entity.BBox{0.1, 0.1, 0.8, 0.6}, *out[0].BBox)

	require.Equal(t, entity.TypeScratch, out[1].Type)
	require.Equal(t, entity.RegionBottomEdge, out[1].Region)

	require.Nil(t, d.toCandidates(regions, 0, 100))
}

func TestIsDegenerate(t *testing.T) {
	identity := [3][3]float64{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
	require.False(t, isDegenerate(identity))

	shifted := [3][3]float64{{1.02, 0.01, 12}, {-0.01, 0.98, -7}, {0.0001, 0, 1}}
	require.False(t, isDegenerate(shifted))

	collapsed := [3][3]float64{{0.01, 0, 0}, {0, 0.01, 0}, {0, 0, 1}}
	require.True(t, isDegenerate(collapsed))

	perspective := [3][3]float64{{1, 0, 0}, {0, 1, 0}, {0.02, 0, 1}}
	require.True(t, isDegenerate(perspective))
}

func TestSeverityColor(t *testing.T) {
	require.Equal(t, uint8(255), severityColor(entity.SeverityHigh).R)
	require.Equal(t, uint8(0), severityColor(entity.SeverityHigh).G)
	require.Equal(t, uint8(255), severityColor(entity.SeverityLow).G)
}
