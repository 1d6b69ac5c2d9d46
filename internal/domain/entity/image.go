package entity

import (
	"net/http"
	"strings"
)

// Image декодированный буфер изображения с MIME-типом.
type Image struct {
	Data     []byte
	MIMEType string
}

// NewImage создаёт изображение; пустой MIME определяется по содержимому.
func NewImage(data []byte, mimeType string) Image {
	mimeType = strings.TrimSpace(mimeType)
	if mimeType == "" && len(data) > 0 {
		mimeType = http.DetectContentType(data)
	}
	return Image{Data: data, MIMEType: mimeType}
}

// Validate проверяет, что изображение пригодно для анализа.
func (i Image) Validate(field string) error {
	if len(i.Data) == 0 {
		return NewInputError(field, "image is missing")
	}
	mimeType := i.MIMEType
	if mimeType == "" {
		mimeType = http.DetectContentType(i.Data)
	}
	if !strings.HasPrefix(mimeType, "image/") {
		return NewInputError(field, "unsupported content type "+mimeType)
	}
	return nil
}
