package entity

// Assessment итоговая оценка риска
type Assessment string

const (
	AssessmentSafe         Assessment = "SAFE"
	AssessmentModerateRisk Assessment = "MODERATE_RISK"
	AssessmentHighRisk     Assessment = "HIGH_RISK"
	AssessmentUnknown      Assessment = "UNKNOWN"
)

// Пороги TIS для уровней риска.
const (
	MaxTIS            = 100
	SafeThreshold     = 80
	ModerateThreshold = 40
	UploadThreshold   = 40
)

// Метки ракурсов в режиме двух углов.
const (
	ViewAngle1 = "angle_1"
	ViewAngle2 = "angle_2"
	ViewSingle = "single"
)

// Notes возвращает шаблонный комментарий для оценки.
func (a Assessment) Notes() string {
	switch a {
	case AssessmentSafe:
		return "Product integrity maintained - safe to proceed"
	case AssessmentModerateRisk:
		return "Moderate risk detected - supervisor review recommended"
	case AssessmentHighRisk:
		return "High risk detected - immediate quarantine required"
	default:
		return "Integrity could not be assessed - manual inspection required"
	}
}

// ValidationState состояние проверки ответа модели по схеме.
type ValidationState string

const (
	ValidationPending         ValidationState = "pending"
	ValidationValid           ValidationState = "valid"
	ValidationRepairAttempted ValidationState = "repair_attempted"
	ValidationFailed          ValidationState = "failed"
)

// Diagnostics служебные сведения о прохождении конвейера.
type Diagnostics struct {
	ModelFailures       int               `json:"model_failures"`
	Validation          []ValidationState `json:"validation"`
	FallbackInvoked     bool              `json:"fallback_invoked"`
	FallbackDifferences int               `json:"fallback_differences"`
}

// AnalysisResult итог анализа одной пары снимков.
type AnalysisResult struct {
	View              string       `json:"view,omitempty"`
	Differences       []Difference `json:"differences"`
	AggregateTIS      int          `json:"aggregate_tis"`
	OverallAssessment Assessment   `json:"overall_assessment"`
	ConfidenceOverall float64      `json:"confidence_overall"`
	Notes             string       `json:"notes"`
	CanUpload         bool         `json:"can_upload"`
	Diagnostics       Diagnostics  `json:"-"`
}

// SeverityCounts считает расхождения по уровням серьёзности.
func (r AnalysisResult) SeverityCounts() (high, medium, low int) {
	return countSeverities(r.Differences)
}

// AngleMetadata сведения о TIS по ракурсам.
type AngleMetadata struct {
	Angle1TIS int `json:"angle_1_tis"`
	Angle2TIS int `json:"angle_2_tis"`
	MinTIS    int `json:"min_tis"`
	MaxTIS    int `json:"max_tis"`
}

// MultiAngleResult итог анализа двух ракурсов.
type MultiAngleResult struct {
	AngleResults      []AnalysisResult `json:"angle_results"`
	Differences       []Difference     `json:"differences"`
	AggregateTIS      int              `json:"aggregate_tis"`
	OverallAssessment Assessment       `json:"overall_assessment"`
	ConfidenceOverall float64          `json:"confidence_overall"`
	Notes             string           `json:"notes"`
	CanUpload         bool             `json:"can_upload"`
	Metadata          AngleMetadata    `json:"angle_metadata"`
}

// SeverityCounts считает расхождения по уровням серьёзности.
func (r MultiAngleResult) SeverityCounts() (high, medium, low int) {
	return countSeverities(r.Differences)
}

// FallbackUsed true, если хотя бы в одном ракурсе запускался резервный детектор.
func (r MultiAngleResult) FallbackUsed() bool {
	for _, a := range r.AngleResults {
		if a.Diagnostics.FallbackInvoked {
			return true
		}
	}
	return false
}

func countSeverities(diffs []Difference) (high, medium, low int) {
	for _, d := range diffs {
		switch d.Severity {
		case SeverityHigh:
			high++
		case SeverityMedium:
			medium++
		case SeverityLow:
			low++
		}
	}
	return high, medium, low
}
