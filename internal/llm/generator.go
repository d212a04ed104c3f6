// Package llm is the boundary to the generative code-synthesis service.
package llm

import (
	"context"
	"time"

	"parsegen/internal/logging"
)

// Generator turns a prompt into raw response text.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, prompt string) (string, error)

func (f GeneratorFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// slowCall is the latency above which a generation is logged as a warning.
const slowCall = 90 * time.Second

// LoggingGenerator wraps a Generator and logs sizes and latency in the api
// category.
type LoggingGenerator struct {
	inner Generator
	name  string
}

// NewLoggingGenerator wraps inner; name identifies the model in log lines.
func NewLoggingGenerator(inner Generator, name string) *LoggingGenerator {
	return &LoggingGenerator{inner: inner, name: name}
}

func (g *LoggingGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	logging.APIDebug("[%s] request: %d bytes", g.name, len(prompt))
	timer := logging.StartTimer(logging.CategoryAPI, "Generate "+g.name)

	text, err := g.inner.Generate(ctx, prompt)
	elapsed := timer.StopWithThreshold(slowCall)
	if err != nil {
		logging.APIError("[%s] generation failed after %v: %v", g.name, elapsed, err)
		return "", err
	}
	logging.API("[%s] response: %d bytes in %v", g.name, len(text), elapsed)
	return text, nil
}
