package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/martinemde/codeloop/config"
	"github.com/martinemde/codeloop/unifiedllm"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := rootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestModelsCommand(t *testing.T) {
	out, err := execute(t, "models", "groq")
	if err != nil {
		t.Fatalf("models: %v", err)
	}
	if !strings.Contains(out, "llama-3.3-70b-versatile (default)") {
		t.Errorf("output missing default model:\n%s", out)
	}
	if strings.Contains(out, "gpt-4o") {
		t.Errorf("provider filter not applied:\n%s", out)
	}
}

func TestModelsCommandJSON(t *testing.T) {
	out, err := execute(t, "models", "--json")
	if err != nil {
		t.Fatalf("models --json: %v", err)
	}
	var models []unifiedllm.ModelInfo
	if err := json.Unmarshal([]byte(out), &models); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if len(models) != len(unifiedllm.ListModels("")) {
		t.Errorf("got %d models", len(models))
	}
}

func TestRunRequiresTask(t *testing.T) {
	if _, err := execute(t, "run"); err == nil {
		t.Error("expected error without a task")
	}
}

func TestUnknownLogLevel(t *testing.T) {
	if _, err := execute(t, "--log-level", "loud", "models"); err == nil {
		t.Error("expected error for unknown log level")
	}
}

func TestApplyRunFlags(t *testing.T) {
	cmd := runCmd(&rootOptions{})
	if err := cmd.ParseFlags([]string{"--model", "gpt-4o", "--backend", "local", "-n", "3", "--image-dir", "out"}); err != nil {
		t.Fatal(err)
	}
	cfg := config.Default()
	opts := &runOptions{model: "gpt-4o", backend: "local", maxIterations: 3, imageDir: "out"}
	applyRunFlags(cmd, cfg, opts)

	if cfg.Model.Name != "gpt-4o" || cfg.Model.Provider != "" {
		t.Errorf("model = %q/%q", cfg.Model.Name, cfg.Model.Provider)
	}
	if err := cfg.ResolveModel(); err != nil || cfg.Model.Provider != "openai" {
		t.Errorf("ResolveModel() = %v, provider %q", err, cfg.Model.Provider)
	}
	if cfg.Interpreter.Backend != config.BackendLocal || cfg.Limits.MaxIterations != 3 || cfg.Display.ImageDir != "out" {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestNewLogger(t *testing.T) {
	for _, lvl := range []string{"debug", "info", "warn", "error", "WARN", ""} {
		if _, err := newLogger(lvl); err != nil {
			t.Errorf("newLogger(%q) error: %v", lvl, err)
		}
	}
}
