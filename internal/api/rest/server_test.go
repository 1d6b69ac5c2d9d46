package rest

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"boxity-analyzer/internal/domain/entity"
	"boxity-analyzer/internal/infrastructure/imagesrc"
)

var pngHeader = []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0x0D, 'I', 'H', 'D', 'R'}

type fakeAnalyzer struct {
	result *entity.AnalysisResult
	multi  *entity.MultiAngleResult
	err    error

	gotView string
	calls   int
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, baseline, current entity.Image, view string) (*entity.AnalysisResult, error) {
	f.calls++
	f.gotView = view
	return f.result, f.err
}

func (f *fakeAnalyzer) AnalyzeMultiAngle(ctx context.Context, b1, c1, b2, c2 entity.Image) (*entity.MultiAngleResult, error) {
	f.calls++
	return f.multi, f.err
}

func newTestServer(a *fakeAnalyzer) *Server {
	s := NewServer(a, imagesrc.NewLoader(time.Second, zap.NewNop()), zap.NewNop())
	s.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	s.newID = func() string { return "test-id" }
	return s
}

func b64() string { return base64.StdEncoding.EncodeToString(pngHeader) }

func dent() entity.Difference {
	d, _ := entity.NewDifference(entity.Candidate{ID: "d1", Region: entity.RegionLeftSide, Type: entity.TypeDent, Confidence: 0.78})
	return d
}

func post(t *testing.T, h http.Handler, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/analyze", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return rec, out
}

func TestHealthz(t *testing.T) {
	h := newTestServer(&fakeAnalyzer{}).Routes()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ok")
}

func TestAnalyze_Single(t *testing.T) {
	a := &fakeAnalyzer{result: &entity.AnalysisResult{
		View:              "front",
		Differences:       []entity.Difference{dent()},
		AggregateTIS:      85,
		OverallAssessment: entity.AssessmentSafe,
		ConfidenceOverall: 0.78,
		Notes:             entity.AssessmentSafe.Notes(),
		CanUpload:         true,
	}}
	h := newTestServer(a).Routes()

	rec, out := post(t, h, `{"baseline_b64": "`+b64()+`", "current": "data:image/png;base64,`+b64()+`", "view_label": "front"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "front", a.gotView)

	assert.EqualValues(t, 85, out["aggregate_tis"])
	assert.Equal(t, "SAFE", out["overall_assessment"])
	assert.Equal(t, true, out["can_upload"])

	diffs := out["differences"].([]any)
	require.Len(t, diffs, 1)
	first := diffs[0].(map[string]any)
	assert.Equal(t, "MEDIUM", first["severity"])
	assert.EqualValues(t, -15, first["tis_delta"])

	meta := out["analysis_metadata"].(map[string]any)
	assert.Equal(t, "test-id", meta["analysis_id"])
	assert.EqualValues(t, 1, meta["total_differences"])
	assert.EqualValues(t, 1, meta["medium_severity_count"])
	assert.Equal(t, "2026-03-01T12:00:00Z", meta["analysis_timestamp"])
	assert.Equal(t, ScoringVersion, meta["scoring_version"])
	assert.NotContains(t, meta, "min_tis")

	images := out["images"].(map[string]any)
	assert.Contains(t, images, "baseline")
	assert.Contains(t, images, "current")
}

func TestAnalyze_DefaultView(t *testing.T) {
	a := &fakeAnalyzer{result: &entity.AnalysisResult{Differences: []entity.Difference{}, AggregateTIS: 100}}
	h := newTestServer(a).Routes()

	rec, _ := post(t, h, `{"baseline": "`+b64()+`", "current_1": "`+b64()+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, entity.ViewSingle, a.gotView)
}

func TestAnalyze_Dual(t *testing.T) {
	a := &fakeAnalyzer{multi: &entity.MultiAngleResult{
		AngleResults: []entity.AnalysisResult{
			{View: entity.ViewAngle1, AggregateTIS: 85, Differences: []entity.Difference{dent().WithView(entity.ViewAngle1)}},
			{View: entity.ViewAngle2, AggregateTIS: 100, Differences: []entity.Difference{}},
		},
		Differences:       []entity.Difference{dent().WithView(entity.ViewAngle1)},
		AggregateTIS:      85,
		OverallAssessment: entity.AssessmentSafe,
		Metadata:          entity.AngleMetadata{Angle1TIS: 85, Angle2TIS: 100, MinTIS: 85, MaxTIS: 100},
	}}
	h := newTestServer(a).Routes()

	body := `{"baseline_angle1": "` + b64() + `", "current_angle1": "` + b64() +
		`", "baseline_2": "` + b64() + `", "current_angle2": "` + b64() + `"}`
	rec, out := post(t, h, body)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Len(t, out["angle_results"], 2)
	meta := out["analysis_metadata"].(map[string]any)
	assert.EqualValues(t, 85, meta["angle_1_tis"])
	assert.EqualValues(t, 100, meta["angle_2_tis"])
	assert.EqualValues(t, 85, meta["min_tis"])
	assert.EqualValues(t, 100, meta["max_tis"])
	assert.Len(t, out["images"], 4)
}

func TestAnalyze_Errors(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		err    error
		status int
	}{
		{"invalid json", `{`, nil, http.StatusBadRequest},
		{"missing current", `{"baseline": "` + b64() + `"}`, nil, http.StatusBadRequest},
		{"bad base64", `{"baseline": "%%%", "current": "` + b64() + `"}`, nil, http.StatusBadRequest},
		{"dual missing angle", `{"baseline": "` + b64() + `", "current": "` + b64() + `", "baseline_2": "` + b64() + `"}`, nil, http.StatusBadRequest},
		{"model unavailable", `{"baseline": "` + b64() + `", "current": "` + b64() + `"}`,
			&entity.ModelUnavailableError{Errs: []error{errors.New("quota")}}, http.StatusBadGateway},
		{"internal", `{"baseline": "` + b64() + `", "current": "` + b64() + `"}`, errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestServer(&fakeAnalyzer{err: tt.err}).Routes()
			rec, out := post(t, h, tt.body)
			require.Equal(t, tt.status, rec.Code)
			assert.NotEmpty(t, out["error"])
			assert.Equal(t, []any{}, out["differences"])
			assert.EqualValues(t, 100, out["aggregate_tis"])
			assert.Equal(t, "UNKNOWN", out["overall_assessment"])
		})
	}
}

func TestAnalyze_CORSPreflight(t *testing.T) {
	h := newTestServer(&fakeAnalyzer{}).Routes()

	req := httptest.NewRequest(http.MethodOptions, "/analyze", nil)
	req.Header.Set("Origin", "https://example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Less(t, rec.Code, 300)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestFirstNonEmpty(t *testing.T) {
	assert.Equal(t, "b", firstNonEmpty("", "  ", "b", "c"))
	assert.Empty(t, firstNonEmpty())
}
