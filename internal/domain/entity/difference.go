package entity

import "strings"

// DifferenceType тип расхождения из фиксированной таксономии
type DifferenceType string

const (
	TypeSealTamper    DifferenceType = "seal_tamper"
	TypeRepackaging   DifferenceType = "repackaging"
	TypeDigitalEdit   DifferenceType = "digital_edit"
	TypeLabelMismatch DifferenceType = "label_mismatch"
	TypeMissingItem   DifferenceType = "missing_item"
	TypeColorShift    DifferenceType = "color_shift"
	TypeDent          DifferenceType = "dent"
	TypeScratch       DifferenceType = "scratch"
	TypeStain         DifferenceType = "stain"
)

// Severity уровень серьёзности расхождения
type Severity string

const (
	SeverityHigh   Severity = "HIGH"
	SeverityMedium Severity = "MEDIUM"
	SeverityLow    Severity = "LOW"
)

// SuggestedAction рекомендуемое действие оператора
type SuggestedAction string

const (
	ActionQuarantine SuggestedAction = "Immediate quarantine"
	ActionReview     SuggestedAction = "Supervisor review"
	ActionProceed    SuggestedAction = "Proceed"
)

// Source откуда пришло расхождение
type Source string

const (
	SourceModel    Source = "model"
	SourceFallback Source = "fallback"
)

// ScoringRule строка таблицы оценки: серьёзность и штраф TIS.
type ScoringRule struct {
	Severity Severity
	TISDelta int
}

// Порядок важен: по нему строятся промпт и enum схемы.
var taxonomyOrder = []DifferenceType{
	TypeSealTamper,
	TypeRepackaging,
	TypeDigitalEdit,
	TypeLabelMismatch,
	TypeMissingItem,
	TypeColorShift,
	TypeDent,
	TypeScratch,
	TypeStain,
}

var taxonomy = map[DifferenceType]ScoringRule{
	TypeSealTamper:    {Severity: SeverityHigh, TISDelta: -40},
	TypeRepackaging:   {Severity: SeverityHigh, TISDelta: -35},
	TypeDigitalEdit:   {Severity: SeverityHigh, TISDelta: -50},
	TypeLabelMismatch: {Severity: SeverityHigh, TISDelta: -40},
	TypeMissingItem:   {Severity: SeverityHigh, TISDelta: -35},
	TypeColorShift:    {Severity: SeverityMedium, TISDelta: -20},
	TypeDent:          {Severity: SeverityMedium, TISDelta: -15},
	TypeScratch:       {Severity: SeverityLow, TISDelta: -8},
	TypeStain:         {Severity: SeverityLow, TISDelta: -5},
}

// DifferenceTypes возвращает все типы таксономии в стабильном порядке.
func DifferenceTypes() []DifferenceType {
	out := make([]DifferenceType, len(taxonomyOrder))
	copy(out, taxonomyOrder)
	return out
}

// Rule возвращает правило оценки для типа.
func (t DifferenceType) Rule() (ScoringRule, bool) {
	r, ok := taxonomy[t]
	return r, ok
}

// Valid проверяет, что тип входит в таксономию
func (t DifferenceType) Valid() bool {
	_, ok := taxonomy[t]
	return ok
}

// IsCritical true для сигналов безопасности, которые всегда дают HIGH_RISK.
func (t DifferenceType) IsCritical() bool {
	switch t {
	case TypeSealTamper, TypeRepackaging, TypeDigitalEdit:
		return true
	}
	return false
}

// ActionFor возвращает действие для уровня серьёзности
func ActionFor(s Severity) SuggestedAction {
	switch s {
	case SeverityHigh:
		return ActionQuarantine
	case SeverityMedium:
		return ActionReview
	default:
		return ActionProceed
	}
}

// BBox нормализованная рамка [x, y, ширина, высота], каждое значение в [0,1].
type BBox [4]float64

// Center возвращает координаты центра рамки
func (b BBox) Center() (x, y float64) {
	return b[0] + b[2]/2, b[1] + b[3]/2
}

// Valid проверяет диапазоны координат.
func (b BBox) Valid() bool {
	for _, v := range b {
		if v < 0 || v > 1 {
			return false
		}
	}
	return true
}

// Candidate расхождение, предложенное детектором, до назначения оценки.
// Серьёзность и штраф модель не задаёт: их назначает таблица таксономии.
type Candidate struct {
	ID             string         `json:"id"`
	Region         string         `json:"region"`
	BBox           *BBox          `json:"bbox,omitempty"`
	Type           DifferenceType `json:"type"`
	Description    string         `json:"description"`
	Confidence     float64        `json:"confidence"`
	Explainability []string       `json:"explainability,omitempty"`
	Source         Source         `json:"-"`
}

// Key ключ дедупликации (region, type).
func (c Candidate) Key() string {
	return c.Region + "|" + string(c.Type)
}

// Difference одно подтверждённое расхождение между эталоном и текущим снимком.
type Difference struct {
	ID              string          `json:"id"`
	Region          string          `json:"region"`
	BBox            *BBox           `json:"bbox,omitempty"`
	Type            DifferenceType  `json:"type"`
	Description     string          `json:"description"`
	Severity        Severity        `json:"severity"`
	Confidence      float64         `json:"confidence"`
	Explainability  []string        `json:"explainability"`
	SuggestedAction SuggestedAction `json:"suggested_action"`
	TISDelta        int             `json:"tis_delta"`
	View            string          `json:"view,omitempty"`
	Source          Source          `json:"source"`
}

// NewDifference строит расхождение из кандидата, назначая оценку по таблице.
// Возвращает false, если тип не входит в таксономию.
func NewDifference(c Candidate) (Difference, bool) {
	rule, ok := c.Type.Rule()
	if !ok {
		return Difference{}, false
	}

	var bbox *BBox
	if c.BBox != nil {
		b := *c.BBox
		bbox = &b
	}

	explain := make([]string, 0, len(c.Explainability))
	for _, e := range c.Explainability {
		if e = strings.TrimSpace(e); e != "" {
			explain = append(explain, e)
		}
	}

	source := c.Source
	if source == "" {
		source = SourceModel
	}

	return Difference{
		ID:              c.ID,
		Region:          c.Region,
		BBox:            bbox,
		Type:            c.Type,
		Description:     strings.TrimSpace(c.Description),
		Severity:        rule.Severity,
		Confidence:      clampUnit(c.Confidence),
		Explainability:  explain,
		SuggestedAction: ActionFor(rule.Severity),
		TISDelta:        rule.TISDelta,
		Source:          source,
	}, true
}

// WithView возвращает копию расхождения с меткой ракурса.
func (d Difference) WithView(view string) Difference {
	d.View = view
	return d
}

func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
