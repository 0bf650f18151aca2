package agentloop

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/martinemde/codeloop/interpreter"
	"github.com/martinemde/codeloop/unifiedllm"
)

// State is the lifecycle state of an agent.
type State string

const (
	StateIdle      State = "idle"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateExhausted State = "exhausted"
)

// ExhaustedMessage is returned by Run when the iteration limit is reached
// without a final answer.
const ExhaustedMessage = "Task incomplete - maximum iterations reached"

// ErrAlreadyRun is returned when Run is called a second time.
var ErrAlreadyRun = errors.New("agent has already run")

// contextWarnRatio is the share of the context window that triggers a
// usage warning.
const contextWarnRatio = 0.8

// Agent drives one ReAct run: it asks the model for a step, executes the
// step's code in the interpreter session, and feeds the observation back
// until the model gives a final answer or the iteration limit is reached.
type Agent struct {
	id       string
	cfg      Config
	parser   *Parser
	executor interpreter.Executor
	emitter  *EventEmitter
	logger   *slog.Logger

	dataFiles []string

	mu         sync.Mutex
	conv       *Conversation
	sessionID  string
	iterations int
	state      State
	codes      []string
	usage      unifiedllm.Usage
}

// Option configures an Agent.
type Option func(*Agent)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(a *Agent) { a.logger = logger }
}

// WithSessionID seeds the interpreter session handle, typically one
// returned by PreloadSession.
func WithSessionID(id string) Option {
	return func(a *Agent) { a.sessionID = id }
}

// WithEmitter replaces the default event emitter.
func WithEmitter(e *EventEmitter) Option {
	return func(a *Agent) { a.emitter = e }
}

// WithDataFiles lists the files available in the interpreter session so the
// system prompt can name them.
func WithDataFiles(names []string) Option {
	return func(a *Agent) { a.dataFiles = names }
}

// NewAgent creates an agent. The system entry is built here and never
// changes afterwards.
func NewAgent(client Completer, executor interpreter.Executor, cfg Config, opts ...Option) *Agent {
	cfg = cfg.withDefaults()
	a := &Agent{
		id:       uuid.New().String(),
		cfg:      cfg,
		parser:   NewParser(client, cfg),
		executor: executor,
		state:    StateIdle,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = slog.Default()
	}
	if a.emitter == nil {
		a.emitter = NewEventEmitter(a.id, 256)
	}
	a.logger = a.logger.With("run_id", a.id)
	a.conv = NewConversation(BuildSystemPrompt(cfg, PromptContext{
		Model:     cfg.Model,
		DataFiles: a.dataFiles,
	}))
	return a
}

// ID returns the run identifier.
func (a *Agent) ID() string { return a.id }

// Config returns the effective configuration.
func (a *Agent) Config() Config { return a.cfg }

// Events returns the event channel for the host application.
func (a *Agent) Events() <-chan Event { return a.emitter.Events() }

// Close closes the event channel.
func (a *Agent) Close() { a.emitter.Close() }

// State returns the lifecycle state.
func (a *Agent) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// History returns a copy of the conversation log.
func (a *Agent) History() []Entry {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.conv.Entries()
}

// SessionID returns the active interpreter session handle.
func (a *Agent) SessionID() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.sessionID
}

// Iterations returns the number of completed iterations.
func (a *Agent) Iterations() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.iterations
}

// Usage returns the token usage accumulated over the run.
func (a *Agent) Usage() unifiedllm.Usage {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.usage
}

// Run executes the loop for task and returns the final answer, or
// ExhaustedMessage when the iteration limit is reached. Failures inside an
// iteration are recorded in the conversation and the loop continues; the
// only error returned is the context's.
func (a *Agent) Run(ctx context.Context, task string) (string, error) {
	a.mu.Lock()
	if a.state != StateIdle {
		a.mu.Unlock()
		return "", ErrAlreadyRun
	}
	a.state = StateRunning
	a.conv.AppendUser(task)
	a.mu.Unlock()

	a.logger.Info("run started", "model", a.cfg.Model, "max_iterations", a.cfg.MaxIterations)
	a.emitter.Emit(EventRunStart, 0, map[string]any{
		"task":       task,
		"model":      a.cfg.Model,
		"session_id": a.SessionID(),
	})

	for a.Iterations() < a.cfg.MaxIterations {
		if err := ctx.Err(); err != nil {
			return "", a.abort(err)
		}

		iteration := a.Iterations() + 1
		final, done, err := a.step(ctx, iteration)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return "", a.abort(ctxErr)
			}
			a.recordFailure(iteration, err)
			continue
		}
		if done {
			a.finish(StateCompleted)
			a.logger.Info("run completed", "iterations", a.Iterations())
			a.emitter.Emit(EventFinalAnswer, iteration, map[string]any{"text": final})
			a.emitter.Emit(EventRunEnd, iteration, map[string]any{"state": string(StateCompleted)})
			return final, nil
		}
	}

	a.finish(StateExhausted)
	a.logger.Warn("maximum iterations reached without completion", "max_iterations", a.cfg.MaxIterations)
	a.emitter.Emit(EventIterationLimit, a.Iterations(), map[string]any{
		"max_iterations": a.cfg.MaxIterations,
	})
	a.emitter.Emit(EventRunEnd, a.Iterations(), map[string]any{"state": string(StateExhausted)})
	return ExhaustedMessage, nil
}

// step runs one iteration. It reports the final answer with done=true, or
// appends the assistant/observation pair for a code step.
func (a *Agent) step(ctx context.Context, iteration int) (final string, done bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic during iteration: %v", r)
		}
	}()

	a.mu.Lock()
	messages := a.conv.Messages()
	sessionID := a.sessionID
	a.mu.Unlock()

	action, resp, err := a.parser.Next(ctx, messages)
	if resp != nil {
		a.mu.Lock()
		a.usage = a.usage.Add(resp.Usage)
		a.mu.Unlock()
	}
	if err != nil {
		return "", false, err
	}
	if action.Kind == ActionFinal {
		return action.Text, true, nil
	}

	if action.Kind == ActionMalformed {
		a.logger.Warn("response did not follow the step format", "iteration", iteration)
	}
	a.emitter.Emit(EventThought, iteration, map[string]any{"text": action.Thought})
	a.emitter.Emit(EventAction, iteration, map[string]any{
		"code": action.Code,
		"kind": string(action.Kind),
	})

	res := a.executor.Execute(ctx, action.Code, sessionID, nil)
	if res != nil && res.SessionID != "" && res.SessionID != sessionID {
		a.logger.Debug("interpreter session updated", "previous", sessionID, "session_id", res.SessionID)
		sessionID = res.SessionID
	}

	display, images := DisplaySummary(res)
	digest := TruncateObservation(HistorySummary(res), a.cfg.ObservationCharLimit, a.cfg.ObservationLineLimit)

	status := ""
	if res != nil {
		status = res.Status
	}
	a.emitter.Emit(EventObservation, iteration, map[string]any{
		"text":   display,
		"images": images,
		"status": status,
		"digest": digest,
	})

	codes := a.commitStep(sessionID, action, digest)

	if a.cfg.EnableLoopDetection && DetectLoop(codes, a.cfg.LoopDetectionWindow) {
		msg := fmt.Sprintf("the last %d actions repeat a code pattern", a.cfg.LoopDetectionWindow)
		a.logger.Warn("loop detected", "window", a.cfg.LoopDetectionWindow)
		a.emitter.Emit(EventLoopDetection, iteration, map[string]any{"message": msg})
	}
	a.checkContextUsage(iteration)
	return "", false, nil
}

// commitStep records a finished step: the session handle, the
// assistant/observation pair and the executed code. It returns the code
// history for loop detection.
func (a *Agent) commitStep(sessionID string, action Action, digest string) []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sessionID = sessionID
	a.conv.AppendAssistant(fmt.Sprintf("Thought: %s\nAction Input:```python\n%s\n```", action.Thought, action.Code))
	a.conv.AppendUser("Observation: " + digest)
	a.iterations++
	a.codes = append(a.codes, action.Code)
	return a.codes
}

// recordFailure appends the error observation and advances the counter.
func (a *Agent) recordFailure(iteration int, err error) {
	a.logger.Warn("iteration failed", "iteration", iteration, "error", err)
	func() {
		a.mu.Lock()
		defer a.mu.Unlock()
		a.conv.AppendUser(fmt.Sprintf("Error occurred: %v. Please try a different approach.", err))
		a.iterations++
	}()
	a.emitter.Emit(EventIterationError, iteration, map[string]any{"error": err.Error()})
}

func (a *Agent) finish(state State) {
	a.mu.Lock()
	a.state = state
	a.mu.Unlock()
}

func (a *Agent) abort(err error) error {
	a.logger.Warn("run cancelled", "error", err)
	a.emitter.Emit(EventRunEnd, a.Iterations(), map[string]any{
		"state": string(a.State()),
		"error": err.Error(),
	})
	return err
}

// checkContextUsage emits a warning when the conversation nears the model's
// context window.
func (a *Agent) checkContextUsage(iteration int) {
	a.mu.Lock()
	messages := a.conv.Messages()
	a.mu.Unlock()

	window := a.cfg.ContextWindow
	if window <= 0 {
		window = unifiedllm.ContextWindow(a.cfg.Model)
	}
	tokens := unifiedllm.CountMessageTokens(messages)
	if float64(tokens) > float64(window)*contextWarnRatio {
		pct := tokens * 100 / window
		a.logger.Warn("context usage high", "tokens", tokens, "context_window", window)
		a.emitter.Emit(EventWarning, iteration, map[string]any{
			"message": fmt.Sprintf("Context usage at ~%d%% of context window", pct),
		})
	}
}

// SessionInitCode is the snippet that opens a session with attachments.
const SessionInitCode = "print('Session initialized with data files')"

// PreloadSession opens an interpreter session with files uploaded and
// returns its handle. It returns "" when there is nothing to upload or the
// backend issued no handle; the run then proceeds without a seeded session.
func PreloadSession(ctx context.Context, exec interpreter.Executor, files []interpreter.File, logger *slog.Logger) string {
	if logger == nil {
		logger = slog.Default()
	}
	if len(files) == 0 {
		logger.Info("no data files to upload")
		return ""
	}

	logger.Info("initializing session with data files", "files", len(files))
	res := exec.Execute(ctx, SessionInitCode, "", files)
	if res == nil || res.SessionID == "" {
		msg := ""
		if res != nil {
			msg = res.ErrorMessage
		}
		logger.Warn("no session handle returned, continuing without persistent session", "error", msg)
		return ""
	}
	logger.Info("session initialized", "session_id", res.SessionID)
	return res.SessionID
}

// FileNames returns the attachment names, for WithDataFiles.
func FileNames(files []interpreter.File) []string {
	names := make([]string, len(files))
	for i, f := range files {
		names[i] = f.Name
	}
	return names
}
