package llm

import (
	"strings"

	"github.com/hyperifyio/tradedoc/internal/record"
)

func kindLabel(kind record.Kind) (label, dataKey, numberKey string) {
	switch kind {
	case record.KindInquiry:
		return "inquiry", "inquiryData", "inquiryNumber"
	case record.KindQuotation:
		return "quotation", "quotationData", "quotationNumber"
	default:
		return "purchase order", "poData", "poNumber"
	}
}

// ExtractionSystemPrompt instructs the model to return the structured
// contract for one document kind. The shape is spelled out inline because
// not every OpenAI-compatible backend honors schema-constrained output.
func ExtractionSystemPrompt(kind record.Kind) string {
	label, dataKey, numberKey := kindLabel(kind)
	var b strings.Builder
	b.WriteString("You are a trade-document parser. The user supplies text recovered from a ")
	b.WriteString(label)
	b.WriteString(" document. Return ONLY a single JSON object, no prose, no code fences, shaped as:\n")
	b.WriteString(`{"isValid": bool, "` + dataKey + `": {"` + numberKey + `": string, "date": string, "expiryDate": string, "customerName": string, "address": string, "email": string, "phone": string, "currency": string, "totalAmount": number, "terms": string, "notes": string, "lineItems": [{"name": string, "code": string, "description": string, "quantity": number, "unit": string, "unitPrice": number, "total": number}]}, "summary": string}` + "\n")
	b.WriteString("Set isValid to false when the text is not a ")
	b.WriteString(label)
	b.WriteString(". Use ISO-8601 dates (YYYY-MM-DD) and 3-letter ISO 4217 currency codes. Omit fields you cannot find instead of inventing values.")
	return b.String()
}

// ExtractionUserPrompt wraps the recovered text for the generation call.
func ExtractionUserPrompt(rawText string) string {
	return "Document text follows.\n---\n" + rawText + "\n---"
}

// ReinterpretSystemPrompt asks the model to clean up barely readable
// extractor output into plain document text, free text rather than JSON.
func ReinterpretSystemPrompt() string {
	return "You are given noisy text recovered from a damaged business document. " +
		"Reconstruct the readable document content as plain text, preserving numbers, " +
		"dates, names and line-item rows exactly as they appear. Return plain text only, no JSON, no commentary."
}

// ReinterpretUserPrompt wraps the noisy candidate text.
func ReinterpretUserPrompt(candidate string) string {
	return "Recovered fragments follow.\n---\n" + candidate + "\n---"
}
