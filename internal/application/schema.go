package app

// DifferencesSchema JSON Schema (draft-07) ответа модели.
// Поля severity и tis_delta допускаются, но игнорируются при оценке.
const DifferencesSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["differences"],
  "properties": {
    "differences": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["id", "region", "type", "description", "confidence"],
        "properties": {
          "id": {"type": "string", "minLength": 1},
          "region": {"type": "string"},
          "bbox": {
            "type": ["array", "null"],
            "minItems": 4,
            "maxItems": 4,
            "items": {"type": "number", "minimum": 0, "maximum": 1}
          },
          "type": {
            "type": "string",
            "enum": ["seal_tamper", "repackaging", "digital_edit", "label_mismatch",
                     "missing_item", "color_shift", "dent", "scratch", "stain"]
          },
          "description": {"type": "string"},
          "severity": {"type": "string", "enum": ["HIGH", "MEDIUM", "LOW"]},
          "confidence": {"type": "number", "minimum": 0, "maximum": 1},
          "explainability": {"type": "array", "items": {"type": "string"}},
          "suggested_action": {"type": "string"},
          "tis_delta": {"type": "integer", "maximum": 0}
        }
      }
    }
  }
}`
