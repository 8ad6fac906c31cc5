package app

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	yaml "gopkg.in/yaml.v3"
)

// FileConfig is the single-file configuration schema. Nested sections map
// naturally onto the flag names.
type FileConfig struct {
	Input     string `yaml:"input" json:"input"`
	Kind      string `yaml:"kind" json:"kind"`
	Output    string `yaml:"output" json:"output"`
	OutputPDF string `yaml:"outputPDF" json:"outputPDF"`

	LLM struct {
		BaseURL string `yaml:"base" json:"base"`
		Model   string `yaml:"model" json:"model"`
		APIKey  string `yaml:"key" json:"key"`
	} `yaml:"llm" json:"llm"`

	Limits struct {
		MinInterval     time.Duration `yaml:"minInterval" json:"minInterval"`
		PerMinute       int           `yaml:"perMinute" json:"perMinute"`
		PerDay          int           `yaml:"perDay" json:"perDay"`
		TokensPerMinute int           `yaml:"tokensPerMinute" json:"tokensPerMinute"`
		MaxAttempts     int           `yaml:"maxAttempts" json:"maxAttempts"`
		RetryDelay      time.Duration `yaml:"retryDelay" json:"retryDelay"`
	} `yaml:"limits" json:"limits"`

	CallTimeout time.Duration `yaml:"callTimeout" json:"callTimeout"`
	Verbose     bool          `yaml:"verbose" json:"verbose"`
}

// LoadConfigFile reads YAML or JSON into FileConfig.
func LoadConfigFile(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse yaml: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse json: %w", err)
		}
	default:
		if err := yaml.Unmarshal(b, &fc); err != nil {
			if jerr := json.Unmarshal(b, &fc); jerr != nil {
				return fc, fmt.Errorf("parse config: %v (yaml) / %v (json)", err, jerr)
			}
		}
	}
	return fc, nil
}

// ApplyFileConfig overlays file values into cfg for fields still unset, so
// explicit flags and environment keep precedence.
func ApplyFileConfig(cfg *Config, fc FileConfig) {
	if cfg == nil {
		return
	}
	if cfg.InputPath == "" && fc.Input != "" {
		cfg.InputPath = fc.Input
	}
	if cfg.Kind == "" && fc.Kind != "" {
		cfg.Kind = parseKind(fc.Kind)
	}
	if cfg.OutputPath == "" && fc.Output != "" {
		cfg.OutputPath = fc.Output
	}
	if cfg.OutputPDFPath == "" && fc.OutputPDF != "" {
		cfg.OutputPDFPath = fc.OutputPDF
	}
	if cfg.LLMBaseURL == "" && fc.LLM.BaseURL != "" {
		cfg.LLMBaseURL = fc.LLM.BaseURL
	}
	if cfg.LLMModel == "" && fc.LLM.Model != "" {
		cfg.LLMModel = fc.LLM.Model
	}
	if cfg.LLMAPIKey == "" && fc.LLM.APIKey != "" {
		cfg.LLMAPIKey = fc.LLM.APIKey
	}
	if cfg.MinInterval == 0 && fc.Limits.MinInterval > 0 {
		cfg.MinInterval = fc.Limits.MinInterval
	}
	if cfg.PerMinute == 0 && fc.Limits.PerMinute > 0 {
		cfg.PerMinute = fc.Limits.PerMinute
	}
	if cfg.PerDay == 0 && fc.Limits.PerDay > 0 {
		cfg.PerDay = fc.Limits.PerDay
	}
	if cfg.TokensPerMinute == 0 && fc.Limits.TokensPerMinute > 0 {
		cfg.TokensPerMinute = fc.Limits.TokensPerMinute
	}
	if cfg.MaxAttempts == 0 && fc.Limits.MaxAttempts > 0 {
		cfg.MaxAttempts = fc.Limits.MaxAttempts
	}
	if cfg.RetryDelay == 0 && fc.Limits.RetryDelay > 0 {
		cfg.RetryDelay = fc.Limits.RetryDelay
	}
	if cfg.CallTimeout == 0 && fc.CallTimeout > 0 {
		cfg.CallTimeout = fc.CallTimeout
	}
	if !cfg.Verbose && fc.Verbose {
		cfg.Verbose = true
	}
}
