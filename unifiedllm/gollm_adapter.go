package unifiedllm

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/teilomillet/gollm"
)

// GollmConfig configures a GollmAdapter. Zero fields take the defaults noted.
type GollmConfig struct {
	Provider string
	// APIKey may be empty, in which case gollm reads the provider's env var.
	APIKey string
	// Model defaults to the newest catalog entry for Provider.
	Model string
	// MaxTokens defaults to 4096.
	MaxTokens   int
	Temperature float64
	// Extra is appended after the options derived from the fields above.
	Extra []gollm.ConfigOption
}

func (c GollmConfig) model() string {
	if c.Model != "" {
		return c.Model
	}
	if info := GetLatestModel(c.Provider); info != nil {
		return info.ID
	}
	return "gpt-4o-mini"
}

func (c GollmConfig) options() []gollm.ConfigOption {
	maxTokens := c.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	opts := []gollm.ConfigOption{
		gollm.SetProvider(c.Provider),
		gollm.SetModel(c.model()),
		gollm.SetMaxTokens(maxTokens),
		gollm.SetTemperature(c.Temperature),
		// retries belong to RetryMiddleware
		gollm.SetMaxRetries(0),
		gollm.SetLogLevel(gollm.LogLevelWarn),
	}
	if c.APIKey != "" {
		opts = append(opts, gollm.SetAPIKey(c.APIKey))
	}
	return append(opts, c.Extra...)
}

// GollmAdapter is the production ProviderAdapter, backed by gollm.LLM.
type GollmAdapter struct {
	provider string
	model    string
	llm      gollm.LLM

	// gollm options are instance-wide, so per-request overrides and the
	// call that uses them must not interleave.
	mu sync.Mutex
}

// NewGollmAdapter creates the gollm client described by cfg.
func NewGollmAdapter(cfg GollmConfig) (*GollmAdapter, error) {
	if cfg.Provider == "" {
		return nil, newError(KindConfig, "gollm adapter needs a provider", nil)
	}
	llm, err := gollm.NewLLM(cfg.options()...)
	if err != nil {
		return nil, fmt.Errorf("gollm %s: %w", cfg.Provider, err)
	}
	return &GollmAdapter{provider: cfg.Provider, model: cfg.model(), llm: llm}, nil
}

// Name returns the provider identifier.
func (a *GollmAdapter) Name() string { return a.provider }

// Complete renders req as a single gollm prompt and generates one reply.
func (a *GollmAdapter) Complete(ctx context.Context, req Request) (*Response, error) {
	prompt := a.translateRequest(req)

	a.mu.Lock()
	defer a.mu.Unlock()
	if req.Model != "" {
		a.llm.SetOption("model", req.Model)
	}
	if req.Temperature != nil {
		a.llm.SetOption("temperature", *req.Temperature)
	}
	if req.MaxTokens != nil {
		a.llm.SetOption("max_tokens", *req.MaxTokens)
	}

	text, err := a.llm.Generate(ctx, prompt)
	if err != nil {
		return nil, a.translateError(err)
	}
	return a.buildResponse(req, text), nil
}

// translateRequest joins system entries into the system prompt and writes
// the remaining entries as a labelled transcript ending in an open
// assistant turn.
func (a *GollmAdapter) translateRequest(req Request) *gollm.Prompt {
	var system []string
	var turns []string
	for _, m := range req.Messages {
		switch {
		case m.Role == RoleSystem:
			system = append(system, strings.TrimSpace(m.Content))
		case m.Role == RoleUser:
			turns = append(turns, "[User]:\n"+m.Content)
		case m.Role == RoleAssistant && m.Content != "":
			turns = append(turns, "[Assistant]:\n"+m.Content)
		}
	}

	input := "Hello"
	if len(turns) > 0 {
		input = strings.TrimSpace(strings.Join(turns, "\n\n")) + "\n\n[Assistant]:"
	}

	var opts []gollm.PromptOption
	if len(system) > 0 {
		opts = append(opts, gollm.WithSystemPrompt(strings.Join(system, "\n\n"), gollm.CacheTypeEphemeral))
	}
	if req.MaxTokens != nil {
		opts = append(opts, gollm.WithMaxLength(*req.MaxTokens))
	}
	return gollm.NewPrompt(input, opts...)
}

func (a *GollmAdapter) buildResponse(req Request, text string) *Response {
	model := req.Model
	if model == "" {
		model = a.model
	}
	// gollm does not surface provider usage, so both sides are estimates.
	in := CountMessageTokens(req.Messages)
	if in == 0 {
		in = 10
	}
	out := approxTokens(text)
	return &Response{
		ID:           "resp_" + uuid.NewString()[:8],
		Model:        model,
		Provider:     a.provider,
		Message:      AssistantMessage(text),
		FinishReason: FinishReason{Reason: "stop", Raw: "stop"},
		Usage:        Usage{InputTokens: in, OutputTokens: out, TotalTokens: in + out},
	}
}

// errorRules maps substrings of gollm error text to a kind and the HTTP
// status they usually stand for. gollm flattens provider failures into plain
// errors, so the message is all there is to go on. First match wins.
var errorRules = []struct {
	needles []string
	kind    ErrorKind
	status  int
}{
	{[]string{"401", "unauthorized", "invalid api key"}, KindAuth, 401},
	{[]string{"403", "forbidden"}, KindAuth, 403},
	{[]string{"404", "not found"}, KindNotFound, 404},
	{[]string{"429", "rate limit"}, KindRateLimit, 429},
	{[]string{"context length", "too many tokens"}, KindContextLength, 413},
	{[]string{"500", "502", "503", "internal server"}, KindServer, 500},
	{[]string{"timeout", "deadline exceeded"}, KindTimeout, 0},
	{[]string{"connection refused", "no such host"}, KindNetwork, 0},
	{[]string{"content filter", "safety"}, KindContentFilter, 0},
}

// translateError classifies a gollm failure.
func (a *GollmAdapter) translateError(err error) error {
	if err == nil {
		return nil
	}
	lower := strings.ToLower(err.Error())
	out := &Error{Provider: a.provider, Err: err}
	for _, r := range errorRules {
		if containsAny(lower, r.needles) {
			out.Kind, out.Status = r.kind, r.status
			break
		}
	}
	return out
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
