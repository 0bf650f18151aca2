package agentloop

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/martinemde/codeloop/unifiedllm"
)

// ActionKind discriminates parsed model responses.
type ActionKind string

const (
	ActionFinal     ActionKind = "final"
	ActionStep      ActionKind = "step"
	ActionMalformed ActionKind = "malformed"
)

// Placeholder values for a response that ignores the step format. The code
// still runs so the model sees the violation in its next observation.
const (
	MalformedThought = "The assistant didn't follow the ReAct format properly."
	MalformedCode    = "print('Error: Format not followed by the assistant')"
)

// ErrNoCodeBlock is returned when a response carries the step markers but
// no fenced code block.
var ErrNoCodeBlock = errors.New("no code block found in the response")

// ErrNoCompletion is returned when the model answers with empty text.
var ErrNoCompletion = errors.New("model returned an empty completion")

// Action is the parsed form of one model response. Final actions carry
// Text; step and malformed actions carry Thought and Code.
type Action struct {
	Kind    ActionKind `json:"kind"`
	Text    string     `json:"text,omitempty"`
	Thought string     `json:"thought,omitempty"`
	Code    string     `json:"code,omitempty"`
}

// Runnable reports whether the action carries code to execute.
func (a Action) Runnable() bool {
	return a.Kind == ActionStep || a.Kind == ActionMalformed
}

const (
	finalMarker   = "Final Answer"
	thoughtMarker = "Thought:"
	actionMarker  = "Action Input:"
	codeFence     = "```"
)

// ParseResponse turns one completion into an Action. Rules, in order:
//
//  1. Any occurrence of "Final Answer" makes the response final, even when
//     step markers are present. The answer is the trimmed text after the
//     first "Final Answer:", or after "Final Answer" when no colon follows.
//  2. With both "Thought:" and "Action Input:", the thought is the text
//     between them and the code is the first fenced block in the response.
//     A missing block is ErrNoCodeBlock.
//  3. Anything else is ActionMalformed with the placeholder values.
func ParseResponse(text string) (Action, error) {
	if strings.Contains(text, finalMarker) {
		return Action{Kind: ActionFinal, Text: finalAnswer(text)}, nil
	}

	ti := strings.Index(text, thoughtMarker)
	if ti < 0 || !strings.Contains(text, actionMarker) {
		return Action{Kind: ActionMalformed, Thought: MalformedThought, Code: MalformedCode}, nil
	}

	thought := text[ti+len(thoughtMarker):]
	if ai := strings.Index(thought, actionMarker); ai >= 0 {
		thought = thought[:ai]
	}

	code, ok := firstFencedBlock(text)
	if !ok {
		return Action{}, ErrNoCodeBlock
	}
	return Action{Kind: ActionStep, Thought: strings.TrimSpace(thought), Code: code}, nil
}

func finalAnswer(text string) string {
	if i := strings.Index(text, finalMarker+":"); i >= 0 {
		return strings.TrimSpace(text[i+len(finalMarker)+1:])
	}
	i := strings.Index(text, finalMarker)
	return strings.TrimSpace(text[i+len(finalMarker):])
}

// firstFencedBlock returns the trimmed body of the first ``` fenced block.
// Only the first fence counts; later blocks are ignored. A language tag on
// the opening line (```python, ```py) is dropped.
func firstFencedBlock(text string) (string, bool) {
	open := strings.Index(text, codeFence)
	if open < 0 {
		return "", false
	}
	body := text[open+len(codeFence):]
	end := strings.Index(body, codeFence)
	if end < 0 {
		return "", false
	}
	body = body[:end]

	if nl := strings.IndexByte(body, '\n'); nl >= 0 {
		if isLanguageTag(body[:nl]) {
			body = body[nl+1:]
		}
	} else {
		body = dropInlineTag(body)
	}
	return strings.TrimSpace(body), true
}

// inlineTags are the tags stripped from a one-line fence. Any word could
// start code there, so only python spellings count.
var inlineTags = []string{"python3", "python", "py"}

// dropInlineTag removes a leading python tag from a one-line fence body
// such as "python print(1)".
func dropInlineTag(body string) string {
	trimmed := strings.TrimLeft(body, " \t")
	for _, tag := range inlineTags {
		if len(trimmed) > len(tag) && strings.EqualFold(trimmed[:len(tag)], tag) {
			if rest := trimmed[len(tag):]; rest[0] == ' ' || rest[0] == '\t' {
				return rest
			}
		}
	}
	return body
}

// isLanguageTag reports whether s looks like a fence info string such as
// "python" or "python3".
func isLanguageTag(s string) bool {
	s = strings.TrimRight(s, " \t\r")
	if s == "" {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '+' || r == '-' || r == '_' || r == '.' || r == '#':
		default:
			return false
		}
	}
	return true
}

// Completer performs one model completion. *unifiedllm.Client satisfies it.
type Completer interface {
	Complete(ctx context.Context, req unifiedllm.Request) (*unifiedllm.Response, error)
}

// Parser asks the model for its next step and parses the answer.
type Parser struct {
	client      Completer
	model       string
	provider    string
	temperature float64
	maxTokens   int
}

// NewParser creates a Parser that sends requests using cfg's model settings.
func NewParser(client Completer, cfg Config) *Parser {
	cfg = cfg.withDefaults()
	return &Parser{
		client:      client,
		model:       cfg.Model,
		provider:    cfg.Provider,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
	}
}

// Next performs one completion over messages and parses it. The raw
// response is returned alongside the action when the model call succeeded.
func (p *Parser) Next(ctx context.Context, messages []unifiedllm.Message) (Action, *unifiedllm.Response, error) {
	req := unifiedllm.Request{
		Model:       p.model,
		Provider:    p.provider,
		Messages:    messages,
		Temperature: unifiedllm.Float64(p.temperature),
	}
	if p.maxTokens > 0 {
		req.MaxTokens = unifiedllm.Int(p.maxTokens)
	}

	resp, err := p.client.Complete(ctx, req)
	if err != nil {
		return Action{}, nil, fmt.Errorf("model completion: %w", err)
	}
	text := resp.Text()
	if text == "" {
		return Action{}, resp, ErrNoCompletion
	}

	action, err := ParseResponse(text)
	if err != nil {
		return Action{}, resp, err
	}
	return action, resp, nil
}
