package app

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", `{"differences": []}`, `{"differences": []}`},
		{"fenced", "```json\n{\"differences\": []}\n```", `{"differences": []}`},
		{"fenced no label", "```\n{\"a\": 1}\n```", `{"a": 1}`},
		{"prose around", "Here you go: {\"differences\": []} hope it helps", `{"differences": []}`},
		{"bare array", `[{"id": "d1"}]`, `{"differences":[{"id": "d1"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := extractJSON(tt.in)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestExtractJSON_Errors(t *testing.T) {
	_, err := extractJSON("   ")
	require.ErrorIs(t, err, errEmptyOutput)

	_, err = extractJSON("no json here")
	require.ErrorIs(t, err, errNoJSONObject)
}
