package llm

import (
	"errors"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/hyperifyio/tradedoc/internal/govern"
)

// IsTransient classifies a provider error as retryable. API errors carry an
// HTTP status: 408, 429 and 5xx are transient, everything else in the 4xx
// range (bad key, malformed request) is permanent. Errors without a status
// fall back to the generic network classifier.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrEmptyCompletion) {
		return true
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return transientStatus(apiErr.HTTPStatusCode)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return transientStatus(reqErr.HTTPStatusCode)
	}
	return govern.IsTransient(err)
}

func transientStatus(status int) bool {
	switch {
	case status == 408, status == 429:
		return true
	case status >= 500:
		return true
	case status == 0:
		// transport-level failure with no response
		return true
	default:
		return false
	}
}

// IsQuotaExhausted reports the explicit daily-quota signal, as opposed to a
// momentary rate limit. Only this error should trip the governor's standing
// quota flag.
func IsQuotaExhausted(err error) bool {
	var apiErr *openai.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	if code, ok := apiErr.Code.(string); ok && code == "insufficient_quota" {
		return true
	}
	return apiErr.HTTPStatusCode == 429 && strings.Contains(strings.ToLower(apiErr.Message), "quota")
}
