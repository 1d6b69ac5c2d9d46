package imagesrc

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"boxity-analyzer/internal/domain/entity"
	"boxity-analyzer/internal/domain/port"
)

// MaxImageBytes предельный размер загружаемого снимка.
const MaxImageBytes = 20 << 20

// Loader загружает изображения из data URI, base64 или http(s) URL.
type Loader struct {
	client *http.Client
	log    *zap.Logger
}

var _ port.ImageSource = (*Loader)(nil)

// NewLoader создаёт загрузчик с таймаутом на скачивание по URL.
func NewLoader(timeout time.Duration, log *zap.Logger) *Loader {
	if log == nil {
		log = zap.NewNop()
	}
	return &Loader{
		client: &http.Client{Timeout: timeout},
		log:    log,
	}
}

// Load возвращает изображение. Ошибки формата возвращаются как *entity.InputError
// с пустым полем; вызывающий подставляет имя поля запроса.
func (l *Loader) Load(ctx context.Context, source string) (entity.Image, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return entity.Image{}, entity.NewInputError("", "image is missing")
	}

	var (
		data     []byte
		hintMIME string
		err      error
	)
	lower := strings.ToLower(source)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		data, hintMIME, err = l.fetch(ctx, source)
	} else {
		data, hintMIME, err = decodeBase64MaybeDataURL(source)
	}
	if err != nil {
		return entity.Image{}, err
	}

	img := entity.NewImage(data, pickMIME(hintMIME, data))
	if err := img.Validate(""); err != nil {
		return entity.Image{}, err
	}
	return img, nil
}

func (l *Loader) fetch(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", entity.NewInputError("", "invalid image url")
	}

	resp, err := l.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, "", ctx.Err()
		}
		l.log.Warn("image download failed", zap.String("url", url), zap.Error(err))
		return nil, "", entity.NewInputError("", "image download failed: "+err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", entity.NewInputError("", fmt.Sprintf("image download failed: http %d", resp.StatusCode))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxImageBytes+1))
	if err != nil {
		return nil, "", entity.NewInputError("", "image download failed: read body")
	}
	if len(data) > MaxImageBytes {
		return nil, "", entity.NewInputError("", "image is too large")
	}

	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	return data, mediaType, nil
}

// decodeBase64MaybeDataURL разбирает data:<mime>;base64,<payload> или голый base64.
func decodeBase64MaybeDataURL(s string) ([]byte, string, error) {
	var hintMIME string
	if strings.HasPrefix(s, "data:") {
		idx := strings.IndexByte(s, ',')
		if idx < 0 {
			return nil, "", entity.NewInputError("", "malformed data uri")
		}
		meta := s[len("data:"):idx]
		if semi := strings.IndexByte(meta, ';'); semi >= 0 {
			hintMIME = meta[:semi]
		} else {
			hintMIME = meta
		}
		s = s[idx+1:]
	}

	s = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\r' || r == ' ' || r == '\t' {
			return -1
		}
		return r
	}, s)

	// Стандартная база64, затем URL-safe и без паддинга
	for _, enc := range []*base64.Encoding{base64.StdEncoding, base64.URLEncoding, base64.RawStdEncoding, base64.RawURLEncoding} {
		if b, err := enc.DecodeString(s); err == nil {
			return b, hintMIME, nil
		}
	}
	return nil, "", entity.NewInputError("", "invalid base64 image data")
}

// pickMIME берём MIME по содержимому, если он определился как image/*, иначе подсказку.
func pickMIME(hint string, data []byte) string {
	sniffed := http.DetectContentType(data)
	if strings.HasPrefix(sniffed, "image/") {
		return sniffed
	}
	if h := strings.TrimSpace(hint); strings.HasPrefix(h, "image/") {
		return h
	}
	return sniffed
}

// Info размеры и формат изображения для метаданных ответа.
type Info struct {
	MIMEType string `json:"mime_type"`
	Bytes    int    `json:"bytes"`
	Width    int    `json:"width,omitempty"`
	Height   int    `json:"height,omitempty"`
}

// Describe читает только заголовок изображения. Неизвестный формат даёт нулевые размеры.
func Describe(img entity.Image) Info {
	info := Info{MIMEType: img.MIMEType, Bytes: len(img.Data)}
	if cfg, _, err := image.DecodeConfig(bytes.NewReader(img.Data)); err == nil {
		info.Width, info.Height = cfg.Width, cfg.Height
	}
	return info
}
