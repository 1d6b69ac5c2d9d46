package telegram

import (
	"fmt"
	"strings"

	app "boxity-analyzer/internal/application"
	"boxity-analyzer/internal/domain/entity"
)

var assessmentTitles = map[entity.Assessment]string{
	entity.AssessmentSafe:         "✅ Упаковка цела",
	entity.AssessmentModerateRisk: "⚠️ Умеренный риск",
	entity.AssessmentHighRisk:     "🚨 Высокий риск",
}

var severityIcons = map[entity.Severity]string{
	entity.SeverityHigh:   "🔴",
	entity.SeverityMedium: "🟠",
	entity.SeverityLow:    "🟡",
}

// FormatReport текстовый отчёт по результату проверки
func FormatReport(out *app.InspectionOutput) string {
	assessment, tis, confidence := out.Assessment()

	title, ok := assessmentTitles[assessment]
	if !ok {
		title = "❔ Оценка невозможна"
	}

	var sb strings.Builder
	sb.WriteString(title)
	fmt.Fprintf(&sb, "\n\nTIS: %d/100\nУверенность: %.0f%%\n", tis, confidence*100)

	if out.Multi != nil {
		m := out.Multi.Metadata
		fmt.Fprintf(&sb, "Ракурс 1: %d, ракурс 2: %d\n", m.Angle1TIS, m.Angle2TIS)
	}

	diffs := out.Differences()
	if len(diffs) == 0 {
		sb.WriteString("\nРасхождений не обнаружено.")
		return sb.String()
	}

	fmt.Fprintf(&sb, "\nРасхождения (%d):\n", len(diffs))
	for i, d := range diffs {
		fmt.Fprintf(&sb, "%d. %s %s, %s (%d)", i+1, severityIcons[d.Severity], d.Type, d.Region, d.TISDelta)
		if d.View != "" {
			fmt.Fprintf(&sb, " [%s]", d.View)
		}
		if d.Description != "" {
			sb.WriteString("\n   ")
			sb.WriteString(d.Description)
		}
		sb.WriteString("\n")
	}
	fmt.Fprintf(&sb, "\n%s", notesFor(out))

	return sb.String()
}

func notesFor(out *app.InspectionOutput) string {
	if out.Multi != nil {
		return out.Multi.Notes
	}
	return out.Single.Notes
}
