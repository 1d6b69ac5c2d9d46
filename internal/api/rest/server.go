package rest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"boxity-analyzer/internal/domain/entity"
	"boxity-analyzer/internal/domain/port"
	"boxity-analyzer/internal/infrastructure/imagesrc"
)

// ScoringVersion версия правил оценки в метаданных ответа.
const ScoringVersion = "cv-gemini-v1"

const maxBodyBytes = 64 << 20

// Server HTTP-обёртка над анализатором.
type Server struct {
	analyzer port.PackageAnalyzer
	images   port.ImageSource
	log      *zap.Logger

	now   func() time.Time
	newID func() string
}

// NewServer создаёт HTTP-сервер анализа.
func NewServer(analyzer port.PackageAnalyzer, images port.ImageSource, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		analyzer: analyzer,
		images:   images,
		log:      log,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// Routes возвращает роутер chi.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Content-Type", "Authorization"},
			MaxAge:         600,
		}))
		r.Post("/analyze", s.handleAnalyze)
		r.Options("/analyze", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		})
	})

	return r
}

// analyzeRequest тело POST /analyze. Для каждого снимка принимается несколько синонимов.
type analyzeRequest struct {
	BaselineB64    string `json:"baseline_b64"`
	BaselineURL    string `json:"baseline_url"`
	Baseline       string `json:"baseline"`
	BaselineAngle1 string `json:"baseline_angle1"`
	Baseline1      string `json:"baseline_1"`

	CurrentB64    string `json:"current_b64"`
	CurrentURL    string `json:"current_url"`
	Current       string `json:"current"`
	CurrentAngle1 string `json:"current_angle1"`
	Current1      string `json:"current_1"`

	BaselineAngle2 string `json:"baseline_angle2"`
	Baseline2      string `json:"baseline_2"`
	CurrentAngle2  string `json:"current_angle2"`
	Current2       string `json:"current_2"`

	ViewLabel string `json:"view_label"`
}

func (r analyzeRequest) baseline() string {
	return firstNonEmpty(r.BaselineB64, r.BaselineURL, r.Baseline, r.BaselineAngle1, r.Baseline1)
}

func (r analyzeRequest) current() string {
	return firstNonEmpty(r.CurrentB64, r.CurrentURL, r.Current, r.CurrentAngle1, r.Current1)
}

func (r analyzeRequest) baseline2() string { return firstNonEmpty(r.BaselineAngle2, r.Baseline2) }

func (r analyzeRequest) current2() string { return firstNonEmpty(r.CurrentAngle2, r.Current2) }

func (r analyzeRequest) dualAngle() bool { return r.baseline2() != "" || r.current2() != "" }

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := s.log.With(zap.String("request_id", middleware.GetReqID(ctx)))

	var req analyzeRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		s.writeError(w, log, entity.NewInputError("body", "invalid JSON request body"))
		return
	}
	if req.baseline() == "" || req.current() == "" {
		s.writeError(w, log, entity.NewInputError("images", "missing baseline or current image"))
		return
	}

	if req.dualAngle() {
		s.analyzeDual(ctx, w, log, req)
		return
	}

	view := strings.TrimSpace(req.ViewLabel)
	if view == "" {
		view = entity.ViewSingle
	}

	baseline, err := s.load(ctx, "baseline", req.baseline())
	if err != nil {
		s.fail(ctx, w, log, err)
		return
	}
	current, err := s.load(ctx, "current", req.current())
	if err != nil {
		s.fail(ctx, w, log, err)
		return
	}

	result, err := s.analyzer.Analyze(ctx, baseline, current, view)
	if err != nil {
		s.fail(ctx, w, log, err)
		return
	}

	high, medium, low := result.SeverityCounts()
	resp := analyzeResponse{
		View:              result.View,
		Differences:       result.Differences,
		AggregateTIS:      result.AggregateTIS,
		OverallAssessment: result.OverallAssessment,
		ConfidenceOverall: result.ConfidenceOverall,
		Notes:             result.Notes,
		CanUpload:         result.CanUpload,
		Images: map[string]imagesrc.Info{
			"baseline": imagesrc.Describe(baseline),
			"current":  imagesrc.Describe(current),
		},
		Metadata: s.metadata(len(result.Differences), high, medium, low, result.Diagnostics.FallbackInvoked),
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) analyzeDual(ctx context.Context, w http.ResponseWriter, log *zap.Logger, req analyzeRequest) {
	sources := []struct{ field, src string }{
		{"baseline_angle1", req.baseline()},
		{"current_angle1", req.current()},
		{"baseline_angle2", req.baseline2()},
		{"current_angle2", req.current2()},
	}
	images := make([]entity.Image, len(sources))
	for i, src := range sources {
		img, err := s.load(ctx, src.field, src.src)
		if err != nil {
			s.fail(ctx, w, log, err)
			return
		}
		images[i] = img
	}

	result, err := s.analyzer.AnalyzeMultiAngle(ctx, images[0], images[1], images[2], images[3])
	if err != nil {
		s.fail(ctx, w, log, err)
		return
	}

	high, medium, low := result.SeverityCounts()
	meta := s.metadata(len(result.Differences), high, medium, low, result.FallbackUsed())
	meta.Angle1TIS = &result.Metadata.Angle1TIS
	meta.Angle2TIS = &result.Metadata.Angle2TIS
	meta.MinTIS = &result.Metadata.MinTIS
	meta.MaxTIS = &result.Metadata.MaxTIS

	infos := make(map[string]imagesrc.Info, len(images))
	for i, src := range sources {
		infos[src.field] = imagesrc.Describe(images[i])
	}

	writeJSON(w, http.StatusOK, analyzeResponse{
		Differences:       result.Differences,
		AggregateTIS:      result.AggregateTIS,
		OverallAssessment: result.OverallAssessment,
		ConfidenceOverall: result.ConfidenceOverall,
		Notes:             result.Notes,
		CanUpload:         result.CanUpload,
		AngleResults:      result.AngleResults,
		Images:            infos,
		Metadata:          meta,
	})
}

// load загружает снимок и подставляет имя поля в ошибку входных данных.
func (s *Server) load(ctx context.Context, field, src string) (entity.Image, error) {
	img, err := s.images.Load(ctx, src)
	if err != nil {
		var inputErr *entity.InputError
		if errors.As(err, &inputErr) {
			return entity.Image{}, entity.NewInputError(field, inputErr.Reason)
		}
		return entity.Image{}, err
	}
	return img, nil
}

func (s *Server) metadata(total, high, medium, low int, fallback bool) analysisMetadata {
	return analysisMetadata{
		AnalysisID:          s.newID(),
		TotalDifferences:    total,
		HighSeverityCount:   high,
		MediumSeverityCount: medium,
		LowSeverityCount:    low,
		AnalysisTimestamp:   s.now().UTC().Format(time.RFC3339),
		ScoringVersion:      ScoringVersion,
		FallbackUsed:        fallback,
	}
}

// fail пишет ошибку; отменённый клиентом запрос остаётся без ответа.
func (s *Server) fail(ctx context.Context, w http.ResponseWriter, log *zap.Logger, err error) {
	if ctx.Err() != nil {
		log.Info("analysis cancelled by client", zap.Error(err))
		return
	}
	s.writeError(w, log, err)
}

func (s *Server) writeError(w http.ResponseWriter, log *zap.Logger, err error) {
	status := http.StatusInternalServerError
	msg := "analyzer internal error"

	var inputErr *entity.InputError
	var modelErr *entity.ModelUnavailableError
	switch {
	case errors.As(err, &inputErr):
		status = http.StatusBadRequest
		msg = inputErr.Error()
		log.Info("invalid analyze request", zap.Error(err))
	case errors.As(err, &modelErr):
		status = http.StatusBadGateway
		msg = "vision model unavailable"
		log.Error("vision model unavailable", zap.Error(err))
	default:
		log.Error("analyze failed", zap.Error(err))
	}

	writeJSON(w, status, errorResponse{
		Error:             msg,
		Differences:       []entity.Difference{},
		AggregateTIS:      entity.MaxTIS,
		OverallAssessment: entity.AssessmentUnknown,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
