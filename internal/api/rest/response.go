package rest

import (
	"boxity-analyzer/internal/domain/entity"
	"boxity-analyzer/internal/infrastructure/imagesrc"
)

type analysisMetadata struct {
	AnalysisID          string `json:"analysis_id"`
	TotalDifferences    int    `json:"total_differences"`
	HighSeverityCount   int    `json:"high_severity_count"`
	MediumSeverityCount int    `json:"medium_severity_count"`
	LowSeverityCount    int    `json:"low_severity_count"`
	AnalysisTimestamp   string `json:"analysis_timestamp"`
	ScoringVersion      string `json:"scoring_version"`
	FallbackUsed        bool   `json:"fallback_used"`

	Angle1TIS *int `json:"angle_1_tis,omitempty"`
	Angle2TIS *int `json:"angle_2_tis,omitempty"`
	MinTIS    *int `json:"min_tis,omitempty"`
	MaxTIS    *int `json:"max_tis,omitempty"`
}

type analyzeResponse struct {
	View              string                   `json:"view,omitempty"`
	Differences       []entity.Difference      `json:"differences"`
	AggregateTIS      int                      `json:"aggregate_tis"`
	OverallAssessment entity.Assessment        `json:"overall_assessment"`
	ConfidenceOverall float64                  `json:"confidence_overall"`
	Notes             string                   `json:"notes"`
	CanUpload         bool                     `json:"can_upload"`
	AngleResults      []entity.AnalysisResult  `json:"angle_results,omitempty"`
	Images            map[string]imagesrc.Info `json:"images"`
	Metadata          analysisMetadata         `json:"analysis_metadata"`
}

type errorResponse struct {
	Error             string              `json:"error"`
	Differences       []entity.Difference `json:"differences"`
	AggregateTIS      int                 `json:"aggregate_tis"`
	OverallAssessment entity.Assessment   `json:"overall_assessment"`
}
