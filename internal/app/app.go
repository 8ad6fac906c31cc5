// Package app wires the pipeline together for one run: configuration, the
// OpenAI-compatible client, the call governor and the mapper, plus writing
// the resulting record to disk.
package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"

	"github.com/hyperifyio/tradedoc/internal/govern"
	"github.com/hyperifyio/tradedoc/internal/llm"
	"github.com/hyperifyio/tradedoc/internal/mapper"
	"github.com/hyperifyio/tradedoc/internal/normalize"
	"github.com/hyperifyio/tradedoc/internal/record"
	"github.com/hyperifyio/tradedoc/internal/report"
)

// App holds the assembled pipeline for one configured run.
type App struct {
	cfg Config
	m   *mapper.Mapper
}

// New builds the pipeline from cfg.
func New(cfg Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	transportCfg := openai.DefaultConfig(cfg.LLMAPIKey)
	if cfg.LLMBaseURL != "" {
		transportCfg.BaseURL = cfg.LLMBaseURL
	}
	client := &llm.OpenAIProvider{Inner: openai.NewClientWithConfig(transportCfg)}

	gov := &govern.Governor{Limits: governorLimits(cfg)}
	norm := normalize.New(normalize.Options{})

	return &App{cfg: cfg, m: mapper.New(client, cfg.LLMModel, gov, norm)}, nil
}

func governorLimits(cfg Config) govern.Limits {
	lim := govern.DefaultLimits()
	if cfg.MinInterval > 0 {
		lim.MinInterval = cfg.MinInterval
	}
	if cfg.PerMinute > 0 {
		lim.PerMinute = cfg.PerMinute
	}
	if cfg.PerDay > 0 {
		lim.PerDay = cfg.PerDay
	}
	if cfg.TokensPerMinute > 0 {
		lim.TokensPerMinute = cfg.TokensPerMinute
	}
	if cfg.MaxAttempts > 0 {
		lim.MaxAttempts = cfg.MaxAttempts
	}
	if cfg.RetryDelay > 0 {
		lim.RetryDelay = cfg.RetryDelay
	}
	return lim
}

// Run processes the configured input document and writes the outputs. The
// canonical record is returned so callers can inspect it; with a validation
// failure both the partial record and the error come back.
func (a *App) Run(ctx context.Context) (record.Document, error) {
	data, err := os.ReadFile(a.cfg.InputPath)
	if err != nil {
		return record.Document{}, fmt.Errorf("read input: %w", err)
	}

	if a.cfg.CallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.cfg.CallTimeout)
		defer cancel()
	}

	doc, mapErr := a.m.Map(ctx, data, filepath.Base(a.cfg.InputPath), a.cfg.Kind)
	if mapErr != nil && doc.Number == "" {
		return doc, mapErr
	}

	if err := a.writeOutputs(doc); err != nil {
		return doc, err
	}
	return doc, mapErr
}

func (a *App) writeOutputs(doc record.Document) error {
	att, err := report.JSON(doc)
	if err != nil {
		return err
	}
	if a.cfg.OutputPath == "" || a.cfg.OutputPath == "-" {
		fmt.Println(string(att.Bytes))
	} else {
		if err := os.WriteFile(a.cfg.OutputPath, att.Bytes, 0o644); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
		log.Info().Str("stage", "app").Str("path", a.cfg.OutputPath).Msg("record written")
	}

	if a.cfg.OutputPDFPath != "" {
		pdfAtt, err := report.PDF(doc)
		if err != nil {
			return err
		}
		if err := os.WriteFile(a.cfg.OutputPDFPath, pdfAtt.Bytes, 0o644); err != nil {
			return fmt.Errorf("write pdf: %w", err)
		}
		log.Info().Str("stage", "app").Str("path", a.cfg.OutputPDFPath).Msg("pdf written")
	}
	return nil
}
