package unifiedllm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Handler performs one completion call.
type Handler func(ctx context.Context, req Request) (*Response, error)

// Middleware decorates a Handler.
type Middleware func(next Handler) Handler

// Client sends completion requests to one of a fixed set of adapters. It is
// configured once by NewClient and safe for concurrent use afterwards.
type Client struct {
	adapters map[string]ProviderAdapter
	fallback string
	chain    []Middleware
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithProvider registers adapter under name.
func WithProvider(name string, adapter ProviderAdapter) ClientOption {
	return func(c *Client) { c.adapters[name] = adapter }
}

// WithDefaultProvider names the adapter used when a request leaves Provider
// empty and the catalog does not know its model.
func WithDefaultProvider(name string) ClientOption {
	return func(c *Client) { c.fallback = name }
}

// WithMiddleware appends middleware. Earlier entries see the request first.
func WithMiddleware(mw ...Middleware) ClientOption {
	return func(c *Client) { c.chain = append(c.chain, mw...) }
}

// NewClient builds a Client. A lone registered adapter becomes the default.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{adapters: map[string]ProviderAdapter{}}
	for _, opt := range opts {
		opt(c)
	}
	if c.fallback == "" && len(c.adapters) == 1 {
		for name := range c.adapters {
			c.fallback = name
		}
	}
	return c
}

func (c *Client) pick(req Request) (ProviderAdapter, error) {
	name := req.Provider
	if name == "" {
		name = c.fallback
	}
	if name == "" {
		if info := GetModelInfo(req.Model); info != nil {
			name = info.Provider
		}
	}
	if name == "" {
		return nil, newError(KindConfig, "no provider specified and no default provider configured", nil)
	}
	a, ok := c.adapters[name]
	if !ok {
		return nil, newError(KindConfig, fmt.Sprintf("provider %q is not registered", name), nil)
	}
	return a, nil
}

// Complete routes req to its adapter through the middleware chain.
func (c *Client) Complete(ctx context.Context, req Request) (*Response, error) {
	a, err := c.pick(req)
	if err != nil {
		return nil, err
	}
	if req.Provider == "" {
		req.Provider = a.Name()
	}
	h := Handler(a.Complete)
	for i := len(c.chain) - 1; i >= 0; i-- {
		h = c.chain[i](h)
	}
	return h(ctx, req)
}

// Close closes every adapter that holds resources.
func (c *Client) Close() error {
	var errs []error
	for _, a := range c.adapters {
		if cl, ok := a.(Closer); ok {
			errs = append(errs, cl.Close())
		}
	}
	return errors.Join(errs...)
}

// LoggingMiddleware records each call: failures at warn, successes at debug.
func LoggingMiddleware(logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next Handler) Handler {
		return func(ctx context.Context, req Request) (*Response, error) {
			start := time.Now()
			resp, err := next(ctx, req)
			attrs := []any{"provider", req.Provider, "model", req.Model, "messages", len(req.Messages), "duration", time.Since(start)}
			if err != nil {
				logger.Warn("completion failed", append(attrs, "error", err)...)
				return nil, err
			}
			logger.Debug("completion done", append(attrs, "output_tokens", resp.Usage.OutputTokens)...)
			return resp, nil
		}
	}
}
