// Package mapper orchestrates one document's trip through the pipeline:
// heuristic text recovery, governed generation calls, JSON repair and field
// normalization, per document kind.
package mapper

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/tradedoc/internal/govern"
	"github.com/hyperifyio/tradedoc/internal/jsonrepair"
	"github.com/hyperifyio/tradedoc/internal/llm"
	"github.com/hyperifyio/tradedoc/internal/normalize"
	"github.com/hyperifyio/tradedoc/internal/pipeline"
	"github.com/hyperifyio/tradedoc/internal/rawtext"
	"github.com/hyperifyio/tradedoc/internal/record"
)

// Mapper turns raw document bytes into canonical records. Construct with New
// so the governor's retry classification matches the provider's errors.
type Mapper struct {
	Client     llm.Client
	Model      string
	Governor   *govern.Governor
	Normalizer *normalize.Normalizer
}

func New(client llm.Client, model string, gov *govern.Governor, norm *normalize.Normalizer) *Mapper {
	gov.Transient = llm.IsTransient
	return &Mapper{Client: client, Model: model, Governor: gov, Normalizer: norm}
}

// Map processes one document. The returned record is populated as far as the
// pipeline got; with a *pipeline.ValidationError both the partial record and
// the error are meaningful, for every other error the record is zero.
func (m *Mapper) Map(ctx context.Context, data []byte, filename string, kind record.Kind) (record.Document, error) {
	reqID := uuid.NewString()
	logger := log.With().Str("request", reqID).Str("file", filename).Str("kind", string(kind)).Logger()

	text := rawtext.Extract(data)
	if text == "" {
		logger.Warn().Str("stage", "extract").Msg("no usable text recovered")
		return record.Document{}, &pipeline.ExtractionError{Filename: filename}
	}
	logger.Debug().Str("stage", "extract").Int("chars", len(text)).Msg("text recovered")

	if !rawtext.Readable(text) {
		text = m.reinterpret(ctx, &logger, text)
	}

	system := llm.ExtractionSystemPrompt(kind)
	user := llm.ExtractionUserPrompt(text)
	reply, err := m.Governor.Execute(ctx, govern.EstimateTokens(system+user), func(ctx context.Context) (string, error) {
		return llm.Complete(ctx, m.Client, m.Model, system, user)
	})
	if err != nil {
		if llm.IsQuotaExhausted(err) {
			m.Governor.MarkQuotaExhausted()
		}
		logger.Warn().Str("stage", "generate").Err(err).Msg("generation call failed")
		return record.Document{}, err
	}

	repaired, err := jsonrepair.Repair(reply)
	if err != nil {
		logger.Warn().Str("stage", "repair").Err(err).Msg("response not repairable")
		return record.Document{}, err
	}

	if verr := llm.ValidatePayload([]byte(repaired), kind); verr != nil {
		// Advisory only: normalization fallbacks handle shape drift.
		logger.Debug().Str("stage", "validate").Err(verr).Msg("payload off contract")
	}

	doc, nerr := m.Normalizer.Normalize([]byte(repaired), text, kind)
	if nerr != nil {
		logger.Warn().Str("stage", "normalize").Err(nerr).Msg("record incomplete")
		return doc, nerr
	}
	logger.Info().Str("stage", "normalize").Str("number", doc.Number).Int("items", len(doc.Items)).Msg("record built")
	return doc, nil
}

// reinterpret escalates barely readable extractor output through a governed
// cleanup call. Failures fall back to the raw candidate; a quota signal still
// trips the governor's standing flag.
func (m *Mapper) reinterpret(ctx context.Context, logger *zerolog.Logger, candidate string) string {
	system := llm.ReinterpretSystemPrompt()
	user := llm.ReinterpretUserPrompt(candidate)
	cleaned, err := m.Governor.Execute(ctx, govern.EstimateTokens(system+user), func(ctx context.Context) (string, error) {
		return llm.Complete(ctx, m.Client, m.Model, system, user)
	})
	if err != nil {
		if llm.IsQuotaExhausted(err) {
			m.Governor.MarkQuotaExhausted()
		}
		logger.Warn().Str("stage", "reinterpret").Err(err).Msg("cleanup call failed, using raw candidate")
		return candidate
	}
	if !rawtext.Readable(cleaned) {
		logger.Debug().Str("stage", "reinterpret").Msg("cleanup still unreadable, using raw candidate")
		return candidate
	}
	logger.Debug().Str("stage", "reinterpret").Msg("text reinterpreted")
	return cleaned
}
