package summarizer

import (
	"context"

	"newsdigest/internal/utils/text"
)

// NoOp returns the input text truncated instead of calling a provider.
// Useful for development and tests where summarization is not needed.
type NoOp struct{}

// NewNoOp creates a NoOp provider.
func NewNoOp() *NoOp {
	return &NoOp{}
}

// Summarize returns the first 500 runes of the input.
func (n *NoOp) Summarize(_ context.Context, prompt string) (string, error) {
	const maxLength = 500
	if text.CountRunes(prompt) <= maxLength {
		return prompt, nil
	}
	return text.TruncateRunes(prompt, maxLength) + "...", nil
}
