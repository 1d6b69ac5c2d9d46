package app

import (
	"fmt"
	"strings"

	"boxity-analyzer/internal/domain/entity"
)

var typeHints = map[entity.DifferenceType]string{
	entity.TypeSealTamper:    "broken, lifted or re-glued seals and tape (critical security risk)",
	entity.TypeRepackaging:   "different packaging, re-folded flaps, structural changes",
	entity.TypeDigitalEdit:   "photo manipulation, cloned or pasted areas, artificial edits",
	entity.TypeLabelMismatch: "altered, replaced or counterfeit labels",
	entity.TypeMissingItem:   "absent components, inserts or contents",
	entity.TypeColorShift:    "significant colour change of a surface",
	entity.TypeDent:          "physical deformation from impact or compression",
	entity.TypeScratch:       "surface abrasions, cuts, linear marks",
	entity.TypeStain:         "discoloration, liquid marks, contamination",
}

const comparisonFewShot = `{
  "differences": [
    {"id": "d1", "region": "top edge", "bbox": [0.12, 0.03, 0.76, 0.08], "type": "seal_tamper",
     "description": "Tape along the top seam is lifted and re-applied off-axis.", "confidence": 0.84,
     "explainability": ["gap at seam", "tape misalignment", "lifted flap"]},
    {"id": "d2", "region": "left side", "bbox": [0.06, 0.42, 0.18, 0.12], "type": "dent",
     "description": "Concave deformation on the left panel consistent with impact.", "confidence": 0.78,
     "explainability": ["shading collapse", "curvature change"]}
  ]
}`

// BuildComparisonRequest собирает запрос к модели для сравнения пары снимков.
func BuildComparisonRequest(baseline, current entity.Image, view string) entity.ModelRequest {
	var sys strings.Builder
	sys.WriteString("You are a forensic analyst for package integrity. Compare the BASELINE photo of a package ")
	sys.WriteString("with the CURRENT photo of the same package and report every tampering or damage indicator.\n\n")

	sys.WriteString("DETECTION TYPES (use exactly these values for \"type\"):\n")
	for _, t := range entity.DifferenceTypes() {
		fmt.Fprintf(&sys, "- %s: %s\n", t, typeHints[t])
	}

	sys.WriteString("\nREGIONS (use exactly one of these values for \"region\"):\n")
	for _, r := range entity.Regions() {
		fmt.Fprintf(&sys, "- %s\n", r)
	}

	sys.WriteString("\nRULES:\n")
	sys.WriteString("1. Answer with STRICT JSON {\"differences\": [...]} and nothing else.\n")
	sys.WriteString("2. Required fields: id, region, type, description, confidence. Optional: bbox, explainability.\n")
	sys.WriteString("3. bbox is [x, y, width, height] normalized to 0..1 relative to the CURRENT image.\n")
	sys.WriteString("4. confidence reflects certainty: above 0.8 only for unequivocal evidence, below 0.6 when unsure.\n")
	sys.WriteString("5. Report security issues (seal_tamper, repackaging, digital_edit) first.\n")
	sys.WriteString("6. Never use a generic region when a specific one is visible. Use \"unknown\" only as a last resort.\n")
	sys.WriteString("7. Lighting, white balance and camera position changes are NOT differences.\n")
	sys.WriteString("8. If the package is unchanged, return {\"differences\": []}.\n")
	if view = strings.TrimSpace(view); view != "" {
		fmt.Fprintf(&sys, "\nVIEW CONTEXT: both photos show camera angle %q.\n", view)
	}
	sys.WriteString("\nEXAMPLE:\n")
	sys.WriteString(comparisonFewShot)

	b, c := baseline, current
	return entity.ModelRequest{
		SystemInstruction: sys.String(),
		Parts: []entity.ModelPart{
			{Text: "Be conservative with confidence. A single seal_tamper or digital_edit means quarantine."},
			{Text: "BASELINE image (trusted reference):"},
			{Image: &b},
			{Text: "CURRENT image (under analysis):"},
			{Image: &c},
		},
		Config: entity.DetectionConfig,
	}
}

// buildRepairRequest просит модель привести невалидный ответ к схеме.
func buildRepairRequest(payload, schema string, reason error) entity.ModelRequest {
	var sb strings.Builder
	sb.WriteString("The JSON below does not match the required schema")
	if reason != nil {
		fmt.Fprintf(&sb, " (%s)", truncate(reason.Error(), 300))
	}
	sb.WriteString(". Repair it so that it validates against the schema. ")
	sb.WriteString("Keep every difference that can be repaired, drop the ones that cannot, ")
	sb.WriteString("and return ONLY the repaired JSON object.")

	return entity.ModelRequest{
		Parts: []entity.ModelPart{
			{Text: sb.String()},
			{Text: "SCHEMA:\n" + schema},
			{Text: "INVALID JSON:\n" + payload},
		},
		Config: entity.DetectionConfig,
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
