package vision

import (
	"image/color"
	"math"
	"sort"
	"strconv"

	"boxity-analyzer/internal/domain/entity"
	"boxity-analyzer/internal/domain/port"
)

// GoCVDetector классический детектор расхождений на OpenCV.
// Без тега сборки gocv методы возвращают entity.ErrFallbackUnavailable.
type GoCVDetector struct {
	MinAreaRatio          float64
	MaxSide               int
	MinImageSide          int
	MinSharpnessEdgeRatio float64
	MaxOverexposedRatio   float64
	MaxUnderexposedRatio  float64
	MaxGlareRatio         float64

	DiffThreshold   float32 // порог яркости разностной карты
	MinMatches      int     // минимум совпавших ключевых точек для выравнивания
	RatioTest       float64 // тест Лоу для kNN-сопоставления
	ScratchAspect   float64 // вытянутость, начиная с которой область считается царапиной
	ColorShiftDelta float64 // средний сдвиг цвета для color_shift
	Confidence      float64
	MaxRegions      int
}

var (
	_ port.FallbackDetector = (*GoCVDetector)(nil)
	_ port.Highlighter      = (*GoCVDetector)(nil)
)

// NewGoCVDetector создаёт детектор с настройками по умолчанию.
func NewGoCVDetector() *GoCVDetector {
	return &GoCVDetector{
		MinAreaRatio:          0.001,
		MaxSide:               1024,
		MinImageSide:          400,
		MinSharpnessEdgeRatio: 0.008,
		MaxOverexposedRatio:   0.35,
		MaxUnderexposedRatio:  0.45,
		MaxGlareRatio:         0.08,
		DiffThreshold:         25,
		MinMatches:            12,
		RatioTest:             0.75,
		ScratchAspect:         4.0,
		ColorShiftDelta:       40,
		Confidence:            0.55,
		MaxRegions:            8,
	}
}

// diffRegion область разностной карты в пикселях выровненного снимка.
type diffRegion struct {
	X, Y, W, H int
	Area       int
	ColorDelta float64 // евклидова разница средних цветов области
}

// classify подбирает тип по форме и цвету области.
func (d *GoCVDetector) classify(r diffRegion) entity.DifferenceType {
	if r.W > 0 && r.H > 0 {
		long, short := float64(max(r.W, r.H)), float64(min(r.W, r.H))
		if long/short >= d.ScratchAspect {
			return entity.TypeScratch
		}
	}
	if r.ColorDelta >= d.ColorShiftDelta {
		return entity.TypeColorShift
	}
	return entity.TypeDent
}

// toCandidates сортирует области по площади и переводит их в кандидаты.
func (d *GoCVDetector) toCandidates(regions []diffRegion, width, height int) []entity.Candidate {
	if width <= 0 || height <= 0 {
		return nil
	}
	sort.SliceStable(regions, func(i, j int) bool { return regions[i].Area > regions[j].Area })
	if d.MaxRegions > 0 && len(regions) > d.MaxRegions {
		regions = regions[:d.MaxRegions]
	}

	out := make([]entity.Candidate, 0, len(regions))
	for i, r := range regions {
		bbox := entity.BBox{
			clamp01(float64(r.X) / float64(width)),
			clamp01(float64(r.Y) / float64(height)),
			clamp01(float64(r.W) / float64(width)),
			clamp01(float64(r.H) / float64(height)),
		}
		typ := d.classify(r)
		cx, cy := bbox.Center()
		out = append(out, entity.Candidate{
			ID:          "cv" + strconv.Itoa(i+1),
			Region:      entity.RegionForPoint(cx, cy),
			BBox:        &bbox,
			Type:        typ,
			Description: "Pixel-level change detected by image comparison (" + string(typ) + ")",
			Confidence:  d.Confidence,
			Explainability: []string{
				"aligned difference map",
				"area " + strconv.Itoa(r.Area) + " px",
			},
			Source: entity.SourceFallback,
		})
	}
	return out
}

// isDegenerate гомография вырождена или слишком сильно искажает снимок.
func isDegenerate(h [3][3]float64) bool {
	for _, row := range h {
		for _, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return true
			}
		}
	}
	det := h[0][0]*h[1][1] - h[0][1]*h[1][0]
	return math.Abs(det) < 0.2 || math.Abs(det) > 5 || math.Abs(h[2][0]) > 0.005 || math.Abs(h[2][1]) > 0.005
}

// severityColor цвет рамки для уровня серьёзности.
func severityColor(s entity.Severity) color.RGBA {
	switch s {
	case entity.SeverityHigh:
		return color.RGBA{R: 255, A: 255}
	case entity.SeverityMedium:
		return color.RGBA{R: 255, G: 165, A: 255}
	default:
		return color.RGBA{G: 255, A: 255}
	}
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
