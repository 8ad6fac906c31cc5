// Package pipeline defines the closed error taxonomy shared by the extraction
// stages. Every failure surfaced to a caller maps onto exactly one Kind, so
// command-line exit codes and retry policy can branch on classification
// instead of string matching.
package pipeline

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hyperifyio/tradedoc/internal/govern"
	"github.com/hyperifyio/tradedoc/internal/jsonrepair"
)

// Kind is the failure category of a pipeline error.
type Kind int

const (
	// KindUnknown covers errors that none of the stages produced, such as
	// I/O failures reading the input file.
	KindUnknown Kind = iota
	// KindTransientCall marks a model call that failed with a retryable
	// condition even after the configured attempts were spent.
	KindTransientCall
	// KindNonTransientCall marks a model call rejected for a reason retrying
	// cannot fix, such as an invalid key or a malformed request.
	KindNonTransientCall
	// KindRepair marks a model response that could not be coerced into
	// parseable JSON within the bounded repair passes.
	KindRepair
	// KindExtraction marks input bytes from which no usable text could be
	// recovered by any strategy.
	KindExtraction
	// KindValidation marks a parsed payload missing required fields or
	// failing a structural check.
	KindValidation
)

func (k Kind) String() string {
	switch k {
	case KindTransientCall:
		return "transient_call"
	case KindNonTransientCall:
		return "non_transient_call"
	case KindRepair:
		return "repair"
	case KindExtraction:
		return "extraction"
	case KindValidation:
		return "validation"
	default:
		return "unknown"
	}
}

// ExtractionError reports that no text-recovery strategy produced usable
// content for the named input.
type ExtractionError struct {
	Filename string
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("no usable text recovered from %s", e.Filename)
}

// ValidationError reports a structurally parseable payload that fails the
// domain contract. Missing lists the required fields not present; Reason
// carries any non-field structural complaint.
type ValidationError struct {
	Missing []string
	Reason  string
}

func (e *ValidationError) Error() string {
	switch {
	case len(e.Missing) > 0 && e.Reason != "":
		return fmt.Sprintf("validation failed: %s; missing fields: %s", e.Reason, strings.Join(e.Missing, ", "))
	case len(e.Missing) > 0:
		return "validation failed: missing fields: " + strings.Join(e.Missing, ", ")
	case e.Reason != "":
		return "validation failed: " + e.Reason
	default:
		return "validation failed"
	}
}

// Classify maps an error from any pipeline stage onto its Kind.
func Classify(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var ce *govern.CallError
	if errors.As(err, &ce) {
		if ce.Transient {
			return KindTransientCall
		}
		return KindNonTransientCall
	}
	var rf *jsonrepair.Failure
	if errors.As(err, &rf) {
		return KindRepair
	}
	var xe *ExtractionError
	if errors.As(err, &xe) {
		return KindExtraction
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return KindValidation
	}
	return KindUnknown
}
