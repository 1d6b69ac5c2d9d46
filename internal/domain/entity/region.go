package entity

import "strings"

// Словарь областей упаковки.
const (
	RegionTopEdge           = "top edge"
	RegionBottomEdge        = "bottom edge"
	RegionLeftSide          = "left side"
	RegionRightSide         = "right side"
	RegionFrontPanel        = "front panel"
	RegionBackPanel         = "back panel"
	RegionTopLeftCorner     = "top-left corner"
	RegionTopRightCorner    = "top-right corner"
	RegionBottomLeftCorner  = "bottom-left corner"
	RegionBottomRightCorner = "bottom-right corner"
	RegionCenter            = "center"
	RegionUnknown           = "unknown"
)

var regionVocabulary = []string{
	RegionTopEdge,
	RegionBottomEdge,
	RegionLeftSide,
	RegionRightSide,
	RegionFrontPanel,
	RegionBackPanel,
	RegionTopLeftCorner,
	RegionTopRightCorner,
	RegionBottomLeftCorner,
	RegionBottomRightCorner,
	RegionCenter,
	RegionUnknown,
}

// Ширина полосы у края кадра, которая считается кромкой.
const edgeBand = 0.2

// Regions возвращает словарь областей.
func Regions() []string {
	out := make([]string, len(regionVocabulary))
	copy(out, regionVocabulary)
	return out
}

// IsKnownRegion проверяет, входит ли область в словарь.
func IsKnownRegion(region string) bool {
	for _, r := range regionVocabulary {
		if r == region {
			return true
		}
	}
	return false
}

// RegionForPoint сопоставляет нормализованную точку с областью упаковки.
func RegionForPoint(x, y float64) string {
	left, right := x < edgeBand, x > 1-edgeBand
	top, bottom := y < edgeBand, y > 1-edgeBand

	switch {
	case top && left:
		return RegionTopLeftCorner
	case top && right:
		return RegionTopRightCorner
	case bottom && left:
		return RegionBottomLeftCorner
	case bottom && right:
		return RegionBottomRightCorner
	case top:
		return RegionTopEdge
	case bottom:
		return RegionBottomEdge
	case left:
		return RegionLeftSide
	case right:
		return RegionRightSide
	case x >= 0.35 && x <= 0.65 && y >= 0.35 && y <= 0.65:
		return RegionCenter
	default:
		return RegionFrontPanel
	}
}

// NormalizeRegion приводит область от модели к словарю.
// Общие обозначения уточняются по рамке, если она есть.
func NormalizeRegion(raw string, bbox *BBox) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.ReplaceAll(s, "_", " ")
	s = strings.Join(strings.Fields(s), " ")
	if s != RegionUnknown && IsKnownRegion(s) {
		return s
	}

	top := containsAny(s, "top", "upper", "seal", "lid", "flap")
	bottom := containsAny(s, "bottom", "lower", "base")
	left := strings.Contains(s, "left")
	right := strings.Contains(s, "right")

	if strings.Contains(s, "corner") {
		if corner := cornerOf(top, bottom, left, right); corner != "" {
			return corner
		}
		if bbox != nil {
			return nearestCorner(*bbox)
		}
		return RegionUnknown
	}

	if bbox != nil {
		return RegionForPoint(bbox.Center())
	}

	if corner := cornerOf(top, bottom, left, right); corner != "" {
		return corner
	}

	switch {
	case top:
		return RegionTopEdge
	case bottom:
		return RegionBottomEdge
	case left:
		return RegionLeftSide
	case right:
		return RegionRightSide
	case strings.Contains(s, "front"):
		return RegionFrontPanel
	case containsAny(s, "back", "rear"):
		return RegionBackPanel
	case containsAny(s, "center", "centre", "middle"):
		return RegionCenter
	}
	return RegionUnknown
}

func cornerOf(top, bottom, left, right bool) string {
	switch {
	case top && left:
		return RegionTopLeftCorner
	case top && right:
		return RegionTopRightCorner
	case bottom && left:
		return RegionBottomLeftCorner
	case bottom && right:
		return RegionBottomRightCorner
	}
	return ""
}

func nearestCorner(b BBox) string {
	x, y := b.Center()
	return cornerOf(y < 0.5, y >= 0.5, x < 0.5, x >= 0.5)
}

func containsAny(s string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
