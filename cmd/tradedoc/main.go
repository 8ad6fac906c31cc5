package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/tradedoc/internal/app"
	"github.com/hyperifyio/tradedoc/internal/pipeline"
)

// Exit codes per failure kind, so callers can distinguish "retry later" from
// "report a bug" from "reject the document".
const (
	exitOK           = 0
	exitUnknown      = 1
	exitUsage        = 2
	exitTransient    = 3
	exitNonTransient = 4
	exitRepair       = 5
	exitExtraction   = 6
	exitValidation   = 7
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	var (
		inputPath   string
		kindName    string
		outputPath  string
		outputPDF   string
		llmBaseURL  string
		llmModel    string
		llmKey      string
		minInterval time.Duration
		perMinute   int
		perDay      int
		tokensPerMn int
		maxAttempts int
		retryDelay  time.Duration
		callTimeout time.Duration
		configPath  string
		verbose     bool
	)

	flag.StringVar(&inputPath, "input", "", "path to the document bytes to process")
	flag.StringVar(&kindName, "kind", "po", "document kind: po, inquiry or quotation")
	flag.StringVar(&outputPath, "out", "-", "record JSON output path, - for stdout")
	flag.StringVar(&outputPDF, "out.pdf", "", "optional PDF attachment output path")
	flag.StringVar(&llmBaseURL, "llm.base", "", "OpenAI-compatible base URL (env LLM_BASE_URL)")
	flag.StringVar(&llmModel, "llm.model", "", "model name (env LLM_MODEL)")
	flag.StringVar(&llmKey, "llm.key", "", "API key (env LLM_API_KEY)")
	flag.DurationVar(&minInterval, "rate.interval", 0, "minimum delay between generation calls")
	flag.IntVar(&perMinute, "rate.per-minute", 0, "generation call ceiling per rolling minute")
	flag.IntVar(&perDay, "rate.per-day", 0, "generation call ceiling per rolling day")
	flag.IntVar(&tokensPerMn, "rate.tokens-per-minute", 0, "estimated prompt token ceiling per rolling minute")
	flag.IntVar(&maxAttempts, "rate.attempts", 0, "attempts per call including the first")
	flag.DurationVar(&retryDelay, "rate.retry-delay", 0, "base delay between retry attempts")
	flag.DurationVar(&callTimeout, "timeout", 5*time.Minute, "overall processing timeout")
	flag.StringVar(&configPath, "config", "", "optional YAML/JSON config file")
	flag.BoolVar(&verbose, "v", false, "verbose logging")
	flag.Parse()

	cfg := app.Config{
		InputPath:       inputPath,
		Kind:            app.ParseKind(kindName),
		OutputPath:      outputPath,
		OutputPDFPath:   outputPDF,
		LLMBaseURL:      llmBaseURL,
		LLMModel:        llmModel,
		LLMAPIKey:       llmKey,
		MinInterval:     minInterval,
		PerMinute:       perMinute,
		PerDay:          perDay,
		TokensPerMinute: tokensPerMn,
		MaxAttempts:     maxAttempts,
		RetryDelay:      retryDelay,
		CallTimeout:     callTimeout,
		Verbose:         verbose,
	}
	app.ApplyEnvToConfig(&cfg)
	if configPath != "" {
		fc, err := app.LoadConfigFile(configPath)
		if err != nil {
			log.Error().Err(err).Str("path", configPath).Msg("cannot load config file")
			os.Exit(exitUsage)
		}
		app.ApplyFileConfig(&cfg, fc)
	}

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if cfg.Verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	a, err := app.New(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "tradedoc:", err)
		flag.Usage()
		os.Exit(exitUsage)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	doc, err := a.Run(ctx)
	if err != nil {
		kind := pipeline.Classify(err)
		log.Error().Err(err).Stringer("failure", kind).Msg("run failed")
		switch kind {
		case pipeline.KindTransientCall:
			os.Exit(exitTransient)
		case pipeline.KindNonTransientCall:
			os.Exit(exitNonTransient)
		case pipeline.KindRepair:
			os.Exit(exitRepair)
		case pipeline.KindExtraction:
			os.Exit(exitExtraction)
		case pipeline.KindValidation:
			// Partial record was still written for operator review.
			os.Exit(exitValidation)
		default:
			os.Exit(exitUnknown)
		}
	}
	log.Info().Str("number", doc.Number).Str("status", string(doc.Status)).Msg("done")
	os.Exit(exitOK)
}
