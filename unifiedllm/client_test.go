package unifiedllm

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

type stubAdapter struct {
	name  string
	reply string
	err   error
	seen  []Request
}

func (s *stubAdapter) Name() string { return s.name }

func (s *stubAdapter) Complete(_ context.Context, req Request) (*Response, error) {
	s.seen = append(s.seen, req)
	if s.err != nil {
		return nil, s.err
	}
	return &Response{
		Provider: s.name,
		Message:  AssistantMessage(s.reply),
		Usage:    Usage{InputTokens: 3, OutputTokens: 4, TotalTokens: 7},
	}, nil
}

type closingAdapter struct {
	stubAdapter
	closed bool
}

func (c *closingAdapter) Close() error {
	c.closed = true
	return errors.New("close failed")
}

func ask(t *testing.T, c *Client, req Request) *Response {
	t.Helper()
	if req.Messages == nil {
		req.Messages = []Message{UserMessage("hi")}
	}
	resp, err := c.Complete(context.Background(), req)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	return resp
}

func TestCompleteFillsProvider(t *testing.T) {
	s := &stubAdapter{name: "groq", reply: "hello"}
	resp := ask(t, NewClient(WithProvider("groq", s)), Request{Model: "m"})
	if resp.Text() != "hello" {
		t.Errorf("text = %q", resp.Text())
	}
	if s.seen[0].Provider != "groq" {
		t.Errorf("provider = %q, want groq", s.seen[0].Provider)
	}
}

func TestRouting(t *testing.T) {
	openai := &stubAdapter{name: "openai", reply: "from openai"}
	groq := &stubAdapter{name: "groq", reply: "from groq"}
	c := NewClient(WithProvider("openai", openai), WithProvider("groq", groq), WithDefaultProvider("openai"))

	if got := ask(t, c, Request{Provider: "groq"}).Text(); got != "from groq" {
		t.Errorf("explicit provider: %q", got)
	}
	if got := ask(t, c, Request{Model: "gpt-4o"}).Text(); got != "from openai" {
		t.Errorf("default provider: %q", got)
	}
}

func TestRoutingByCatalog(t *testing.T) {
	groq := &stubAdapter{name: "groq", reply: "from groq"}
	openai := &stubAdapter{name: "openai", reply: "from openai"}
	c := NewClient(WithProvider("groq", groq), WithProvider("openai", openai))

	got := ask(t, c, Request{Model: "meta-llama/Llama-3.3-70B-Instruct-Turbo"}).Text()
	if got != "from groq" {
		t.Errorf("catalog alias routed to %q", got)
	}
}

func TestRoutingFailures(t *testing.T) {
	if _, err := NewClient().Complete(context.Background(), Request{Model: "unknown"}); KindOf(err) != KindConfig {
		t.Errorf("no adapters: %v", err)
	}

	c := NewClient(WithProvider("openai", &stubAdapter{name: "openai"}))
	_, err := c.Complete(context.Background(), Request{Provider: "anthropic"})
	if KindOf(err) != KindConfig || !strings.Contains(err.Error(), `"anthropic"`) {
		t.Errorf("unregistered provider: %v", err)
	}
}

func TestMiddlewareOnion(t *testing.T) {
	var trace []string
	tag := func(name string) Middleware {
		return func(next Handler) Handler {
			return func(ctx context.Context, req Request) (*Response, error) {
				trace = append(trace, name+">")
				resp, err := next(ctx, req)
				trace = append(trace, "<"+name)
				return resp, err
			}
		}
	}
	c := NewClient(WithProvider("p", &stubAdapter{name: "p"}), WithMiddleware(tag("a"), tag("b")))
	ask(t, c, Request{})

	if got := strings.Join(trace, " "); got != "a> b> <b <a" {
		t.Errorf("trace = %q", got)
	}
}

func TestCompleterFuncTrimsText(t *testing.T) {
	fn := CompleterFunc(func(context.Context, Request) (*Response, error) {
		return &Response{Message: AssistantMessage("  padded  ")}, nil
	})
	if got := ask(t, NewClient(WithProvider("scripted", fn)), Request{}).Text(); got != "padded" {
		t.Errorf("Text() = %q", got)
	}
}

func TestCloseJoinsErrors(t *testing.T) {
	ca := &closingAdapter{stubAdapter: stubAdapter{name: "c"}}
	c := NewClient(WithProvider("c", ca), WithProvider("plain", &stubAdapter{name: "plain"}))
	if err := c.Close(); err == nil || !ca.closed {
		t.Errorf("Close() = %v, closed = %v", err, ca.closed)
	}
}

func TestLoggingMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	ok := NewClient(WithProvider("p", &stubAdapter{name: "p", reply: "x"}), WithMiddleware(LoggingMiddleware(logger)))
	ask(t, ok, Request{Model: "m"})
	if !strings.Contains(buf.String(), "completion done") || !strings.Contains(buf.String(), "output_tokens=4") {
		t.Errorf("success log = %q", buf.String())
	}

	buf.Reset()
	bad := NewClient(WithProvider("p", &stubAdapter{name: "p", err: errors.New("boom")}), WithMiddleware(LoggingMiddleware(logger)))
	if _, err := bad.Complete(context.Background(), Request{Model: "m"}); err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(buf.String(), "completion failed") || !strings.Contains(buf.String(), "boom") {
		t.Errorf("failure log = %q", buf.String())
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	s := &stubAdapter{name: "p", reply: "ok"}
	ask(t, NewClient(WithProvider("p", s), WithMiddleware(RateLimitMiddleware(nil))), Request{})

	limiter := NewRateLimiter(1, 1)
	limiter.Allow()
	s = &stubAdapter{name: "p", reply: "ok"}
	c := NewClient(WithProvider("p", s), WithMiddleware(RateLimitMiddleware(limiter)))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.Complete(ctx, Request{}); KindOf(err) != KindAborted {
		t.Fatalf("err = %v, want aborted", err)
	}
	if len(s.seen) != 0 {
		t.Error("adapter called after an aborted wait")
	}
}

func TestNewRateLimiter(t *testing.T) {
	if NewRateLimiter(0, 5) != nil {
		t.Error("rpm 0 should disable limiting")
	}
	if l := NewRateLimiter(120, 0); l == nil || l.Burst() != 1 || l.Limit() != 2 {
		t.Errorf("NewRateLimiter(120, 0) = %v", l)
	}
}
