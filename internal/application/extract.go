package app

import (
	"errors"
	"strings"
)

var (
	errEmptyOutput  = errors.New("model returned an empty response")
	errNoJSONObject = errors.New("model response contains no JSON object")
)

// extractJSON вырезает JSON-объект из текста модели.
// Голый массив оборачивается в {"differences": [...]}.
func extractJSON(text string) (string, error) {
	s := stripCodeFences(text)
	if s == "" {
		return "", errEmptyOutput
	}
	if strings.HasPrefix(s, "[") {
		return `{"differences":` + s + `}`, nil
	}
	if !strings.HasPrefix(s, "{") {
		start := strings.Index(s, "{")
		end := strings.LastIndex(s, "}")
		if start < 0 || end <= start {
			return "", errNoJSONObject
		}
		s = s[start : end+1]
	}
	return s, nil
}

func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 && !strings.ContainsAny(s[:nl], "{[") {
		// отрезаем метку языка: ```json
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
