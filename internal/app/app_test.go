package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hyperifyio/tradedoc/internal/record"
)

func TestLoadConfigFileYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tradedoc.yaml")
	content := []byte(`
input: order.pdf
kind: po
output: order.json
llm:
  base: http://localhost:8080/v1
  model: local-model
limits:
  perMinute: 5
  maxAttempts: 2
verbose: true
`)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}
	fc, err := LoadConfigFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if fc.Input != "order.pdf" || fc.Kind != "po" || fc.LLM.Model != "local-model" {
		t.Fatalf("fc = %+v", fc)
	}
	if fc.Limits.PerMinute != 5 || fc.Limits.MaxAttempts != 2 || !fc.Verbose {
		t.Fatalf("fc limits = %+v", fc.Limits)
	}
}

func TestApplyFileConfig_FlagsKeepPrecedence(t *testing.T) {
	cfg := Config{InputPath: "explicit.pdf", LLMModel: "flag-model"}
	var fc FileConfig
	fc.Input = "file.pdf"
	fc.Kind = "quotation"
	fc.LLM.Model = "file-model"
	fc.Limits.PerMinute = 9
	ApplyFileConfig(&cfg, fc)
	if cfg.InputPath != "explicit.pdf" {
		t.Fatalf("flag input overridden: %q", cfg.InputPath)
	}
	if cfg.LLMModel != "flag-model" {
		t.Fatalf("flag model overridden: %q", cfg.LLMModel)
	}
	if cfg.Kind != record.KindQuotation || cfg.PerMinute != 9 {
		t.Fatalf("file values not applied: %+v", cfg)
	}
}

func TestParseKind(t *testing.T) {
	cases := map[string]record.Kind{
		"po":             record.KindPurchaseOrder,
		"purchase_order": record.KindPurchaseOrder,
		"enquiry":        record.KindInquiry,
		"quote":          record.KindQuotation,
		"quotation":      record.KindQuotation,
	}
	for in, want := range cases {
		if got := ParseKind(in); got != want {
			t.Errorf("ParseKind(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestConfigValidate(t *testing.T) {
	cfg := Config{InputPath: "a.pdf", Kind: record.KindPurchaseOrder, LLMModel: "m"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
	bad := []Config{
		{Kind: record.KindPurchaseOrder, LLMModel: "m"},
		{InputPath: "a.pdf", Kind: "invoice", LLMModel: "m"},
		{InputPath: "a.pdf", Kind: record.KindPurchaseOrder},
	}
	for i, c := range bad {
		if err := c.Validate(); err == nil {
			t.Errorf("case %d: invalid config accepted", i)
		}
	}
}

func TestGovernorLimits_Defaults(t *testing.T) {
	lim := governorLimits(Config{PerMinute: 3, RetryDelay: time.Second})
	if lim.PerMinute != 3 || lim.RetryDelay != time.Second {
		t.Fatalf("overrides lost: %+v", lim)
	}
	def := governorLimits(Config{})
	if def.MinInterval == 0 || def.MaxAttempts == 0 {
		t.Fatalf("defaults not applied: %+v", def)
	}
}
