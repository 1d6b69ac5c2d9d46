package container

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"boxity-analyzer/config"
	"boxity-analyzer/internal/domain/entity"
	"boxity-analyzer/internal/infrastructure/storage"
)

type stubModel struct{ name, reply string }

func (m stubModel) Name() string { return m.name }

func (m stubModel) Generate(ctx context.Context, req entity.ModelRequest) (string, error) {
	return m.reply, nil
}

func testConfig() *config.Config {
	return &config.Config{
		Gemini:   config.GeminiConfig{Timeout: time.Second},
		Analysis: config.AnalysisConfig{ConfidenceThreshold: 0.6, MaxDifferences: 8, FallbackTimeout: time.Second},
		HTTP:     config.HTTPConfig{FetchTimeout: time.Second},
	}
}

func TestBuild_WiresPipeline(t *testing.T) {
	reply := `{"differences":[{"id":"d1","region":"top edge","type":"seal_tamper","description":"lifted tape","confidence":0.9}]}`
	c, err := Build(stubModel{"a", reply}, stubModel{"b", reply}, storage.NewMemoryUserRepository(), testConfig(), zap.NewNop())
	require.NoError(t, err)
	require.NotNil(t, c.InspectionService)
	require.NotNil(t, c.Images)
	assert.NoError(t, c.Close())

	img := entity.NewImage([]byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0x0D}, "image/png")
	res, err := c.Analyzer.Analyze(context.Background(), img, img, entity.ViewSingle)
	require.NoError(t, err)
	require.Len(t, res.Differences, 1)
	assert.Equal(t, 60, res.AggregateTIS)
	assert.Equal(t, entity.AssessmentHighRisk, res.OverallAssessment)
}
