package entity

import (
	"errors"
	"fmt"
	"strings"
)

// ErrFallbackUnavailable классический детектор недоступен или не смог выровнять снимки.
var ErrFallbackUnavailable = errors.New("classical fallback is unavailable")

// ErrModelNotConfigured модель ансамбля не задана.
var ErrModelNotConfigured = errors.New("vision model is not configured")

// InputError отсутствующие или непригодные входные изображения.
type InputError struct {
	Field  string
	Reason string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NewInputError создаёт ошибку входных данных
func NewInputError(field, reason string) *InputError {
	return &InputError{Field: field, Reason: reason}
}

// ModelUnavailableError оба вызова модели завершились ошибкой.
type ModelUnavailableError struct {
	Errs []error
}

func (e *ModelUnavailableError) Error() string {
	msgs := make([]string, 0, len(e.Errs))
	for _, err := range e.Errs {
		msgs = append(msgs, err.Error())
	}
	return "vision model unavailable: " + strings.Join(msgs, "; ")
}

func (e *ModelUnavailableError) Unwrap() []error {
	return e.Errs
}
