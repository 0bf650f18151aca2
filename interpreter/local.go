package interpreter

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/mattn/go-shellwords"
)

// sensitiveEnvPatterns are case-insensitive suffixes for environment variables
// that never reach the child interpreter.
var sensitiveEnvPatterns = []string{
	"_API_KEY",
	"_SECRET",
	"_TOKEN",
	"_PASSWORD",
	"_CREDENTIAL",
}

// safeEnvVars are always passed through.
var safeEnvVars = map[string]bool{
	"PATH": true, "HOME": true, "USER": true, "LANG": true, "TERM": true,
	"TMPDIR": true, "PYTHONPATH": true, "VIRTUAL_ENV": true, "MPLBACKEND": true,
}

func isSensitiveEnvVar(name string) bool {
	upper := strings.ToUpper(name)
	for _, pattern := range sensitiveEnvPatterns {
		if strings.HasSuffix(upper, pattern) {
			return true
		}
	}
	return false
}

// filterEnvironment returns environ without sensitive variables.
func filterEnvironment(environ []string) []string {
	var filtered []string
	for _, env := range environ {
		name, _, ok := strings.Cut(env, "=")
		if !ok {
			continue
		}
		if safeEnvVars[name] || !isSensitiveEnvVar(name) {
			filtered = append(filtered, env)
		}
	}
	return filtered
}

// LocalConfig configures a LocalExecutor.
type LocalConfig struct {
	// Python is the interpreter command line, split with shell quoting
	// rules, e.g. "python3 -X utf8". Default: "python3".
	Python string

	// WorkingDir is where snippets run and attachments are written.
	// Default: a fresh temporary directory.
	WorkingDir string

	// Timeout bounds one snippet. Default: 60s.
	Timeout time.Duration

	Logger *slog.Logger
}

// LocalExecutor runs each snippet in a fresh python3 process. It keeps no
// interpreter state between calls and never issues a session handle, so it
// suits single-shot tasks and offline development.
type LocalExecutor struct {
	argv       []string
	workingDir string
	timeout    time.Duration
	logger     *slog.Logger
}

var _ Executor = (*LocalExecutor)(nil)

// NewLocalExecutor creates a local executor, creating its working directory.
func NewLocalExecutor(cfg LocalConfig) (*LocalExecutor, error) {
	python := cfg.Python
	if strings.TrimSpace(python) == "" {
		python = "python3"
	}
	argv, err := shellwords.Parse(python)
	if err != nil {
		return nil, fmt.Errorf("parse python command %q: %w", python, err)
	}
	if len(argv) == 0 {
		return nil, fmt.Errorf("python command %q is empty", python)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	dir := cfg.WorkingDir
	if dir == "" {
		tmp, err := os.MkdirTemp("", "codeloop-")
		if err != nil {
			return nil, fmt.Errorf("create working dir: %w", err)
		}
		dir = tmp
	} else if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create working dir: %w", err)
	}
	return &LocalExecutor{argv: argv, workingDir: dir, timeout: timeout, logger: logger}, nil
}

// WorkingDirectory returns the directory snippets run in.
func (e *LocalExecutor) WorkingDirectory() string { return e.workingDir }

// Execute writes attachments into the working directory, then runs code with
// python3 reading the program from stdin. The session handle is ignored.
func (e *LocalExecutor) Execute(ctx context.Context, code, _ string, files []File) *Result {
	if strings.TrimSpace(code) == "" {
		return DegradedResult(ErrEmptyCode)
	}
	if err := e.writeFiles(files); err != nil {
		e.logger.Warn("local interpreter attachments failed", "error", err)
		return DegradedResult(err)
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	args := append(append([]string{}, e.argv[1:]...), "-")
	cmd := exec.CommandContext(ctx, e.argv[0], args...)
	cmd.Dir = e.workingDir
	cmd.Stdin = strings.NewReader(code)
	cmd.Env = append(filterEnvironment(os.Environ()), "MPLBACKEND=Agg")
	// Own process group so a timeout kills any children too.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
	cmd.WaitDelay = 2 * time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	e.logger.Debug("local interpreter run", "duration", time.Since(start), "error", err)

	res := &Result{Status: StatusSuccess}
	if stdout.Len() > 0 {
		res.Outputs = append(res.Outputs, Output{Type: OutputStdout, Data: TextData(stdout.String())})
	}
	if stderr.Len() > 0 {
		res.Outputs = append(res.Outputs, Output{Type: OutputStderr, Data: TextData(stderr.String())})
	}

	if err != nil {
		var exitErr *exec.ExitError
		switch {
		case errors.Is(ctx.Err(), context.DeadlineExceeded):
			res.Status = StatusError
			res.Errors = append(res.Errors, fmt.Sprintf("execution timed out after %s", e.timeout))
		case errors.As(err, &exitErr):
			res.Status = StatusError
			msg := strings.TrimSpace(stderr.String())
			if msg == "" {
				msg = fmt.Sprintf("exit status %d", exitErr.ExitCode())
			}
			res.Errors = append(res.Errors, msg)
		default:
			return DegradedResult(fmt.Errorf("run %s: %w", e.argv[0], err))
		}
	}
	return res
}

func (e *LocalExecutor) writeFiles(files []File) error {
	for _, f := range files {
		rel := filepath.Clean(filepath.FromSlash(f.Name))
		if filepath.IsAbs(rel) || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return fmt.Errorf("attachment %q escapes the working directory", f.Name)
		}
		data := []byte(f.Content)
		if f.Encoding == "base64" {
			decoded, err := base64.StdEncoding.DecodeString(f.Content)
			if err != nil {
				return fmt.Errorf("attachment %q: %w", f.Name, err)
			}
			data = decoded
		}
		path := filepath.Join(e.workingDir, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("attachment %q: %w", f.Name, err)
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("attachment %q: %w", f.Name, err)
		}
	}
	return nil
}
