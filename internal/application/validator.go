package app

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"go.uber.org/zap"

	"boxity-analyzer/internal/domain/entity"
	"boxity-analyzer/internal/domain/port"
)

const schemaURL = "differences.schema.json"

// ValidationOutcome результат проверки одного ответа модели.
type ValidationOutcome struct {
	Model      string
	State      entity.ValidationState
	Candidates []entity.Candidate
}

// SchemaValidator проверяет ответы модели по схеме и один раз просит их исправить.
type SchemaValidator struct {
	schema        *jsonschema.Schema
	repairTimeout time.Duration
	log           *zap.Logger
}

// NewSchemaValidator компилирует встроенную схему. repairTimeout ограничивает
// запрос на исправление так же, как вызовы ансамбля; 0 означает без ограничения.
func NewSchemaValidator(repairTimeout time.Duration, log *zap.Logger) (*SchemaValidator, error) {
	if log == nil {
		log = zap.NewNop()
	}

	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft7
	if err := c.AddResource(schemaURL, strings.NewReader(DifferencesSchema)); err != nil {
		return nil, eris.Wrap(err, "add differences schema")
	}
	schema, err := c.Compile(schemaURL)
	if err != nil {
		return nil, eris.Wrap(err, "compile differences schema")
	}

	return &SchemaValidator{schema: schema, repairTimeout: repairTimeout, log: log}, nil
}

// Validate разбирает ответ модели. При ошибке отправляет той же модели
// один запрос на исправление. Ошибки не возвращаются: неудача даёт Failed и пустой список.
func (v *SchemaValidator) Validate(ctx context.Context, model port.VisionModel, raw string) ValidationOutcome {
	name := ""
	if model != nil {
		name = model.Name()
	}

	candidates, err := v.Parse(raw)
	if err == nil {
		return ValidationOutcome{Model: name, State: entity.ValidationValid, Candidates: candidates}
	}

	log := v.log.With(zap.String("model", name))
	log.Warn("model output failed validation", zap.Error(err))

	failed := ValidationOutcome{Model: name, State: entity.ValidationFailed, Candidates: []entity.Candidate{}}
	if model == nil || ctx.Err() != nil {
		return failed
	}

	// RepairAttempted
	repairCtx := ctx
	if v.repairTimeout > 0 {
		var cancel context.CancelFunc
		repairCtx, cancel = context.WithTimeout(ctx, v.repairTimeout)
		defer cancel()
	}
	repaired, genErr := model.Generate(repairCtx, buildRepairRequest(truncate(raw, 8000), DifferencesSchema, err))
	if genErr != nil {
		// таймаут исправления при живом родительском ctx тоже даёт Failed
		log.Warn("repair request failed", zap.Error(genErr))
		return failed
	}

	candidates, err = v.Parse(repaired)
	if err != nil {
		log.Warn("repaired output still invalid", zap.Error(err))
		return failed
	}

	log.Info("model output repaired", zap.Int("differences", len(candidates)))
	return ValidationOutcome{Model: name, State: entity.ValidationValid, Candidates: candidates}
}

// Parse извлекает JSON, проверяет его по схеме и нормализует регионы.
func (v *SchemaValidator) Parse(raw string) ([]entity.Candidate, error) {
	payload, err := extractJSON(raw)
	if err != nil {
		return nil, err
	}

	var doc any
	dec := json.NewDecoder(bytes.NewReader([]byte(payload)))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return nil, eris.Wrap(err, "decode model output")
	}
	if err := v.schema.Validate(doc); err != nil {
		return nil, eris.Wrap(err, "schema validation")
	}

	var out struct {
		Differences []entity.Candidate `json:"differences"`
	}
	if err := json.Unmarshal([]byte(payload), &out); err != nil {
		return nil, eris.Wrap(err, "decode differences")
	}

	candidates := make([]entity.Candidate, 0, len(out.Differences))
	for _, c := range out.Differences {
		c.Region = entity.NormalizeRegion(c.Region, c.BBox)
		c.Source = entity.SourceModel
		candidates = append(candidates, c)
	}
	return candidates, nil
}
