package generation

import (
	"context"

	"github.com/phrazzld/studytools/internal/domain"
)

// Request is one generation call: the tool-specific prompt built from a
// document, plus the tool type so backends can pick response settings.
type Request struct {
	ToolType      domain.ToolType
	DocumentTitle string
	Prompt        string
}

// Generator defines the interface for the generative backend.
// This interface serves as a boundary between the pipeline and external
// AI/LLM services, following the hexagonal architecture pattern.
type Generator interface {
	// Generate returns the backend's raw text output for req. The output is
	// untrusted and must pass through the artifact validator. Errors wrap
	// domain.ErrUpstream.
	Generate(ctx context.Context, req Request) (string, error)
}

// GeneratorFunc adapts a function to the Generator interface.
type GeneratorFunc func(ctx context.Context, req Request) (string, error)

func (f GeneratorFunc) Generate(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}
