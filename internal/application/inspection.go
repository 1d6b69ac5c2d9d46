package app

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"boxity-analyzer/internal/domain/entity"
	"boxity-analyzer/internal/domain/port"
)

var (
	ErrNotAwaitingPhoto = errors.New("no check in progress")
	ErrPhotosIncomplete = errors.New("not all photos are collected")
)

// InspectionService собирает снимки пользователя и запускает анализ упаковки.
type InspectionService struct {
	users       *UserService
	analyzer    port.PackageAnalyzer
	highlighter port.Highlighter
	photos      map[int64][]entity.Image
	mu          sync.RWMutex
	log         *zap.Logger
}

// InspectionOutput содержит результат анализа и снимки с подсветкой.
type InspectionOutput struct {
	Single      *entity.AnalysisResult
	Multi       *entity.MultiAngleResult
	Highlighted [][]byte
}

// Assessment итоговая оценка независимо от режима.
func (o *InspectionOutput) Assessment() (entity.Assessment, int, float64) {
	if o.Multi != nil {
		return o.Multi.OverallAssessment, o.Multi.AggregateTIS, o.Multi.ConfidenceOverall
	}
	return o.Single.OverallAssessment, o.Single.AggregateTIS, o.Single.ConfidenceOverall
}

// Differences итоговый список расхождений.
func (o *InspectionOutput) Differences() []entity.Difference {
	if o.Multi != nil {
		return o.Multi.Differences
	}
	return o.Single.Differences
}

// NewInspectionService создаёт сервис проверки. highlighter может быть nil.
func NewInspectionService(users *UserService, analyzer port.PackageAnalyzer, highlighter port.Highlighter, log *zap.Logger) *InspectionService {
	if log == nil {
		log = zap.NewNop()
	}
	return &InspectionService{
		users:       users,
		analyzer:    analyzer,
		highlighter: highlighter,
		photos:      make(map[int64][]entity.Image),
		log:         log,
	}
}

// Begin сбрасывает собранные снимки и начинает новую проверку.
func (s *InspectionService) Begin(ctx context.Context, userID, chatID int64, mode entity.CheckMode) (*entity.User, error) {
	s.reset(userID)
	return s.users.BeginCheck(ctx, userID, chatID, mode)
}

// Cancel прерывает проверку.
func (s *InspectionService) Cancel(ctx context.Context, userID, chatID int64) (*entity.User, error) {
	s.reset(userID)
	return s.users.Cancel(ctx, userID, chatID)
}

// AcceptPhoto сохраняет очередной снимок. ready=true, когда можно запускать Process.
func (s *InspectionService) AcceptPhoto(ctx context.Context, userID, chatID int64, photo []byte) (user *entity.User, ready bool, err error) {
	user, err = s.users.Get(ctx, userID, chatID)
	if err != nil {
		return nil, false, err
	}
	if !user.AwaitingPhoto() {
		return user, false, ErrNotAwaitingPhoto
	}

	field := string(user.State)
	img := entity.NewImage(photo, "")
	if err := img.Validate(field); err != nil {
		return user, false, err
	}

	s.mu.Lock()
	s.photos[userID] = append(s.photos[userID], img)
	s.mu.Unlock()

	ready = user.AdvancePhoto()
	if err := s.users.Save(ctx, user); err != nil {
		return nil, false, err
	}
	return user, ready, nil
}

// Process запускает анализ собранных снимков и возвращает пользователя в главное меню.
func (s *InspectionService) Process(ctx context.Context, userID, chatID int64) (*InspectionOutput, error) {
	user, err := s.users.Get(ctx, userID, chatID)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	photos := append([]entity.Image(nil), s.photos[userID]...)
	s.mu.RUnlock()

	defer func() {
		s.reset(userID)
		if _, err := s.users.SetState(context.WithoutCancel(ctx), userID, chatID, entity.StateMainMenu); err != nil {
			s.log.Warn("reset user state", zap.Int64("user_id", userID), zap.Error(err))
		}
	}()

	if len(photos) < user.ExpectedPhotos() {
		return nil, ErrPhotosIncomplete
	}

	out := &InspectionOutput{}
	if user.Mode == entity.ModeDualAngle {
		out.Multi, err = s.analyzer.AnalyzeMultiAngle(ctx, photos[0], photos[1], photos[2], photos[3])
		if err != nil {
			return nil, err
		}
		for i, angle := range out.Multi.AngleResults {
			out.Highlighted = s.appendHighlight(out.Highlighted, photos[i*2+1], angle.Differences)
		}
		return out, nil
	}

	out.Single, err = s.analyzer.Analyze(ctx, photos[0], photos[1], entity.ViewSingle)
	if err != nil {
		return nil, err
	}
	out.Highlighted = s.appendHighlight(out.Highlighted, photos[1], out.Single.Differences)
	return out, nil
}

func (s *InspectionService) appendHighlight(dst [][]byte, current entity.Image, diffs []entity.Difference) [][]byte {
	if s.highlighter == nil || len(diffs) == 0 {
		return dst
	}
	img, err := s.highlighter.Highlight(current.Data, diffs)
	if err != nil {
		if !errors.Is(err, entity.ErrFallbackUnavailable) {
			s.log.Warn("highlight differences", zap.Error(err))
		}
		return dst
	}
	return append(dst, img)
}

func (s *InspectionService) reset(userID int64) {
	s.mu.Lock()
	delete(s.photos, userID)
	s.mu.Unlock()
}
