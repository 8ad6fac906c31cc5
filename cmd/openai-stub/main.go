// openai-stub is a deterministic OpenAI-compatible endpoint for exercising
// the pipeline offline. It replies to extraction prompts with a deliberately
// dirty payload (fences, bare keys, trailing commas) so the repair stages see
// realistic input, and to reinterpretation prompts with plain text.
//
// Environment:
//
//	ADDR        listen address (default :8081)
//	MODEL_ID    model id echoed in responses (default test-model)
//	FAIL_FIRST  reply 429 to this many initial calls, to exercise retries
package main

import (
	"encoding/json"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
)

type chatRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

const dirtyPayload = "```json\n" +
	`{isValid: true, 'poData': {poNumber: "PO-2025-171", date: "2025-08-15", customerName: "Apex Industrial Supplies", currency: "USD", totalAmount: "1,234.50", lineItems: [{name: "Widget", quantity: "5", unitPrice: "180.00", total: "850.00"},],}, summary: "Purchase order for widgets",}` +
	"\n```"

const cleanText = "Purchase Order PO-2025-171\n" +
	"Customer: Apex Industrial Supplies\n" +
	"Date: 2025-08-15\n" +
	"Widget 5 180.00 900.00\n" +
	"Total Amount: USD 1,234.50"

func main() {
	model := os.Getenv("MODEL_ID")
	if strings.TrimSpace(model) == "" {
		model = "test-model"
	}
	addr := os.Getenv("ADDR")
	if strings.TrimSpace(addr) == "" {
		addr = ":8081"
	}
	failFirst, _ := strconv.ParseInt(os.Getenv("FAIL_FIRST"), 10, 64)
	var calls atomic.Int64

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/models", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{{"id": model, "object": "model"}},
		})
	})
	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()

		if n := calls.Add(1); n <= failFirst {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"error": map[string]any{"message": "Rate limit reached, retry shortly", "type": "requests"},
			})
			return
		}

		var req chatRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		sys := ""
		if len(req.Messages) > 0 {
			sys = req.Messages[0].Content
		}
		content := cleanText
		if strings.Contains(sys, "Return ONLY a single JSON object") {
			content = dirtyPayload
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":     "chatcmpl-stub",
			"object": "chat.completion",
			"model":  model,
			"choices": []map[string]any{
				{
					"index":         0,
					"finish_reason": "stop",
					"message":       map[string]any{"role": "assistant", "content": content},
				},
			},
		})
	})

	log.Printf("openai-stub listening on %s (model=%s)", addr, model)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatal(err)
	}
}
