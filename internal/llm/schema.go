package llm

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/hyperifyio/tradedoc/internal/record"
)

// PayloadSchema returns the lenient structural contract of the repaired
// response as a JSON-Schema map. Everything is optional and numerics accept
// both numbers and strings, since normalization coerces them anyway; the
// schema only catches wrong-shaped values (an object where a list belongs,
// a list where a scalar belongs) before normalization guesses at them.
func PayloadSchema(kind record.Kind) map[string]any {
	numeric := map[string]any{"type": []string{"number", "string"}}
	str := map[string]any{"type": "string"}

	item := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"name":        str,
			"code":        str,
			"description": str,
			"quantity":    numeric,
			"unit":        str,
			"unitPrice":   numeric,
			"total":       numeric,
		},
	}
	_, dataKey, numberKey := kindLabel(kind)
	data := map[string]any{
		"type": "object",
		"properties": map[string]any{
			numberKey:      str,
			"number":       str,
			"date":         str,
			"expiryDate":   str,
			"customerName": str,
			"address":      str,
			"email":        str,
			"phone":        str,
			"currency":     str,
			"totalAmount":  numeric,
			"terms":        str,
			"notes":        str,
			"lineItems":    map[string]any{"type": "array", "items": item},
		},
	}
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"isValid": map[string]any{"type": "boolean"},
			dataKey:   data,
			"data":    data,
			"summary": str,
		},
	}
}

// ValidatePayload checks the repaired payload against the kind's structural
// contract. A failure is advisory: callers log it and proceed, relying on
// normalization fallbacks.
func ValidatePayload(payload []byte, kind record.Kind) error {
	b, err := json.Marshal(PayloadSchema(kind))
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("payload.json", bytes.NewReader(b)); err != nil {
		return fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("payload.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(payload, &v); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("payload does not match contract: %w", err)
	}
	return nil
}
