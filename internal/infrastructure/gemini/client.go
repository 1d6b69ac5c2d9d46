package gemini

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"net/http"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"boxity-analyzer/internal/domain/entity"
	"boxity-analyzer/internal/domain/port"
)

// Config параметры клиента Gemini.
type Config struct {
	APIKey      string
	RateLimit   float64 // запросов в секунду, 0 = без ограничения
	MaxAttempts int
	BaseBackoff time.Duration
}

// Client общий клиент Gemini. Безопасен для конкурентного использования.
type Client struct {
	client      *genai.Client
	limiter     *rate.Limiter
	maxAttempts int
	baseBackoff time.Duration
	log         *zap.Logger
}

// NewClient создаёт клиента Gemini по API-ключу.
func NewClient(ctx context.Context, cfg Config, log *zap.Logger) (*Client, error) {
	key := strings.Trim(strings.TrimSpace(cfg.APIKey), `"'`)
	if key == "" {
		return nil, eris.New("GEMINI_API_KEY is empty")
	}
	if log == nil {
		log = zap.NewNop()
	}

	cl, err := genai.NewClient(ctx, option.WithAPIKey(key))
	if err != nil {
		return nil, eris.Wrap(err, "create gemini client")
	}

	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}
	attempts := cfg.MaxAttempts
	if attempts <= 0 {
		attempts = 3
	}
	backoff := cfg.BaseBackoff
	if backoff <= 0 {
		backoff = 500 * time.Millisecond
	}

	return &Client{
		client:      cl,
		limiter:     rate.NewLimiter(limit, 1),
		maxAttempts: attempts,
		baseBackoff: backoff,
		log:         log,
	}, nil
}

// Close закрывает соединение с API.
func (c *Client) Close() error {
	return c.client.Close()
}

// Model возвращает модель ансамбля по имени.
func (c *Client) Model(name string) *Model {
	return &Model{client: c, name: strings.TrimSpace(name)}
}

// Model одна модель Gemini, реализует port.VisionModel.
type Model struct {
	client *Client
	name   string
}

var _ port.VisionModel = (*Model)(nil)

func (m *Model) Name() string { return m.name }

// Generate отправляет запрос. Транзиентные ошибки (квота, 5xx) повторяются
// до MaxAttempts раз в пределах дедлайна контекста.
func (m *Model) Generate(ctx context.Context, req entity.ModelRequest) (string, error) {
	gm := m.client.client.GenerativeModel(m.name)
	gm.GenerationConfig = generationConfig(req.Config)
	if req.SystemInstruction != "" {
		gm.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(req.SystemInstruction)}}
	}
	parts := toParts(req.Parts)

	var lastErr error
	for attempt := range m.client.maxAttempts {
		if err := m.client.limiter.Wait(ctx); err != nil {
			return "", eris.Wrap(err, "rate limiter wait")
		}

		resp, err := gm.GenerateContent(ctx, parts...)
		if err == nil {
			return strings.TrimSpace(firstText(resp)), nil
		}
		lastErr = err
		if ctx.Err() != nil || !isTransient(err) {
			break
		}

		m.client.log.Warn("gemini request failed, retrying",
			zap.String("model", m.name),
			zap.Int("attempt", attempt+1),
			zap.Error(err))
		if !sleep(ctx, backoffFor(m.client.baseBackoff, attempt)) {
			break
		}
	}

	return "", eris.Wrapf(lastErr, "gemini %s generate", m.name)
}

func generationConfig(cfg entity.GenerationConfig) genai.GenerationConfig {
	gc := genai.GenerationConfig{
		Temperature: ptr(cfg.Temperature),
		TopK:        ptr(cfg.TopK),
		TopP:        ptr(cfg.TopP),
	}
	if cfg.JSONOutput {
		gc.ResponseMIMEType = "application/json"
	}
	return gc
}

func toParts(in []entity.ModelPart) []genai.Part {
	parts := make([]genai.Part, 0, len(in))
	for _, p := range in {
		if p.Image != nil {
			mimeType := p.Image.MIMEType
			if mimeType == "" {
				mimeType = http.DetectContentType(p.Image.Data)
			}
			parts = append(parts, &genai.Blob{MIMEType: mimeType, Data: p.Image.Data})
			continue
		}
		if p.Text != "" {
			parts = append(parts, genai.Text(p.Text))
		}
	}
	return parts
}

func firstText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	for _, c := range resp.Candidates {
		if c.Content == nil {
			continue
		}
		var sb strings.Builder
		for _, p := range c.Content.Parts {
			if t, ok := p.(genai.Text); ok {
				sb.WriteString(string(t))
			}
		}
		if sb.Len() > 0 {
			return sb.String()
		}
	}
	return ""
}

// Маркеры квоты и сетевых сбоев для ошибок без кода.
var transientMarkers = []string{
	"resource_exhausted",
	"resourceexhausted",
	"quota exceeded",
	"rate limit exceeded",
	"connection reset by peer",
}

// isTransient квота, перегрузка и сетевые сбои, которые стоит повторить.
func isTransient(err error) bool {
	if err == nil {
		return false
	}
	var blocked *genai.BlockedError
	if errors.As(err, &blocked) {
		return false
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= 500
	}
	var grpcErr interface{ GRPCStatus() *status.Status }
	if errors.As(err, &grpcErr) {
		switch grpcErr.GRPCStatus().Code() {
		case codes.ResourceExhausted, codes.Unavailable, codes.Internal, codes.Aborted:
			return true
		}
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range transientMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

func backoffFor(base time.Duration, attempt int) time.Duration {
	d := time.Duration(float64(base) * math.Pow(2, float64(attempt)))
	if d > 10*time.Second {
		d = 10 * time.Second
	}
	if half := int64(d) / 2; half > 0 {
		d += time.Duration(rand.Int64N(half))
	}
	return d
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func ptr[T any](v T) *T { return &v }
