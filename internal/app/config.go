package app

import (
	"fmt"
	"time"

	"github.com/hyperifyio/tradedoc/internal/record"
)

// Config is the resolved runtime configuration, after flags, environment and
// an optional config file have been merged.
type Config struct {
	InputPath     string
	Kind          record.Kind
	OutputPath    string
	OutputPDFPath string

	LLMBaseURL string
	LLMModel   string
	LLMAPIKey  string

	// Governor ceilings; zero means the DefaultLimits value.
	MinInterval     time.Duration
	PerMinute       int
	PerDay          int
	TokensPerMinute int
	MaxAttempts     int
	RetryDelay      time.Duration

	CallTimeout time.Duration

	Verbose bool
}

// parseKind maps user-facing kind spellings onto the canonical values.
func parseKind(s string) record.Kind {
	switch s {
	case "po", "purchase_order", "purchase-order", "purchaseorder":
		return record.KindPurchaseOrder
	case "inquiry", "enquiry":
		return record.KindInquiry
	case "quotation", "quote":
		return record.KindQuotation
	default:
		return record.Kind(s)
	}
}

// ParseKind is the exported form used by the command-line front end.
func ParseKind(s string) record.Kind { return parseKind(s) }

// Validate checks the fields without which a run cannot start.
func (c *Config) Validate() error {
	if c.InputPath == "" {
		return fmt.Errorf("input path is required")
	}
	switch c.Kind {
	case record.KindPurchaseOrder, record.KindInquiry, record.KindQuotation:
	default:
		return fmt.Errorf("unknown document kind %q", c.Kind)
	}
	if c.LLMModel == "" {
		return fmt.Errorf("model name is required")
	}
	return nil
}
