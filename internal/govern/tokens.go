package govern

import (
	"sync"

	"github.com/tiktoken-go/tokenizer"
)

var (
	codecOnce sync.Once
	codec     tokenizer.Codec
	codecErr  error
)

// EstimateTokens estimates the prompt token cost of text for the per-minute
// token window. It uses the cl100k encoding shared by current chat models;
// when the codec cannot be built it falls back to the usual four
// characters-per-token rule of thumb.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	codecOnce.Do(func() {
		codec, codecErr = tokenizer.Get(tokenizer.Cl100kBase)
	})
	if codecErr != nil || codec == nil {
		return len(text)/4 + 1
	}
	ids, _, err := codec.Encode(text)
	if err != nil {
		return len(text)/4 + 1
	}
	return len(ids)
}
