package unifiedllm

import "context"

// ProviderAdapter is the interface every provider backend must implement.
type ProviderAdapter interface {
	// Name returns the provider identifier (e.g. "openai", "anthropic", "groq").
	Name() string

	// Complete sends a blocking request and returns the full response.
	Complete(ctx context.Context, req Request) (*Response, error)
}

// Closer is implemented by adapters that hold resources.
type Closer interface {
	Close() error
}

// CompleterFunc adapts a plain function to a ProviderAdapter. It is handy for
// scripted models in tests and examples.
type CompleterFunc func(ctx context.Context, req Request) (*Response, error)

// Name returns "func".
func (f CompleterFunc) Name() string { return "func" }

// Complete calls f.
func (f CompleterFunc) Complete(ctx context.Context, req Request) (*Response, error) {
	return f(ctx, req)
}
