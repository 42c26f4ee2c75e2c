package smoketest

import (
	"log"

	"github.com/pkoukk/tiktoken-go"
)

// TokenCounter estimates response token counts for the smoke-test report.
// cl100k_base is an approximation of the Mistral tokenizer; the numbers are
// informational only.
type TokenCounter struct {
	encoding *tiktoken.Tiktoken
}

// NewTokenCounter creates a tiktoken-based counter.
func NewTokenCounter() *TokenCounter {
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		log.Printf("Failed to get tiktoken encoding, falling back to estimation: %v", err)
		return &TokenCounter{}
	}
	return &TokenCounter{encoding: enc}
}

// CountTokens returns the token count for text.
func (tc *TokenCounter) CountTokens(text string) int {
	if tc.encoding == nil {
		return EstimateTokens(text)
	}
	return len(tc.encoding.Encode(text, nil, nil))
}

// EstimateTokens approximates a token count at ~4 characters per token.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	return (len(text) + 3) / 4
}
