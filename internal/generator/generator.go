// Package generator is the boundary to the external content generator. The
// pipeline only needs text back for a system/user prompt pair, so the
// interface stays that small; OpenAI is the production implementation.
package generator

import "context"

// Request is one generation call.
type Request struct {
	System      string
	User        string
	Temperature float64
	MaxTokens   int

	// N is the number of completions requested; only the first is used.
	N int

	// JSON asks the provider to constrain output to a JSON object.
	JSON bool
}

// Generator produces text for a Request.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// Func adapts a plain function to Generator.
type Func func(ctx context.Context, req Request) (string, error)

// Generate calls f.
func (f Func) Generate(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}

// Static returns a Generator that always answers text.
func Static(text string) Generator {
	return Func(func(context.Context, Request) (string, error) {
		return text, nil
	})
}
