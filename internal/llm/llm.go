package llm

import (
	"context"
)

// Request describes a single text-generation call.
type Request struct {
	// Instructions is the fixed system prompt.
	Instructions string
	// Input is the per-call user prompt.
	Input string
	// MaxOutputTokens is the initial output budget. Zero selects the provider default.
	MaxOutputTokens int64
}

// Generator produces free text for a prompt.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}
