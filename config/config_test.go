package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/martinemde/codeloop/agentloop"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{EnvModel, EnvProvider, EnvMaxIterations, EnvInterpreterURL, EnvBackend, "GROQ_API_KEY", "OPENAI_API_KEY"} {
		t.Setenv(k, "")
	}
	t.Setenv(EnvInterpreterKey, "tci-key")
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "codeloop.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Model.Name != agentloop.DefaultModel || cfg.Model.Temperature != 0.2 {
		t.Errorf("model = %+v", cfg.Model)
	}
	if cfg.Limits.MaxIterations != 15 || !cfg.Limits.EnableLoopDetection {
		t.Errorf("limits = %+v", cfg.Limits)
	}
	if cfg.Display.Width != 80 || cfg.Display.MaxWords != 500 {
		t.Errorf("display = %+v", cfg.Display)
	}
	if cfg.Interpreter.APIKey != "tci-key" {
		t.Errorf("interpreter key = %q", cfg.Interpreter.APIKey)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Limits.MaxIterations != agentloop.DefaultMaxIterations {
		t.Errorf("MaxIterations = %d", cfg.Limits.MaxIterations)
	}
}

func TestLoadFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
model:
  name: gpt-4o
  provider: openai
  temperature: 0.5
  requests_per_minute: 30
interpreter:
  backend: local
  timeout: 45s
display:
  width: 100
  image_dir: plots
limits:
  max_iterations: 7
  enable_loop_detection: false
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Model.Name != "gpt-4o" || cfg.Model.Provider != "openai" || cfg.Model.Temperature != 0.5 {
		t.Errorf("model = %+v", cfg.Model)
	}
	if cfg.Model.RequestsPerMinute != 30 {
		t.Errorf("RequestsPerMinute = %d", cfg.Model.RequestsPerMinute)
	}
	if cfg.Interpreter.Backend != BackendLocal || cfg.Interpreter.Timeout != 45*time.Second {
		t.Errorf("interpreter = %+v", cfg.Interpreter)
	}
	if cfg.Display.Width != 100 || cfg.Display.MaxWords != 500 || cfg.Display.ImageDir != "plots" {
		t.Errorf("display = %+v", cfg.Display)
	}
	if cfg.Limits.MaxIterations != 7 || cfg.Limits.EnableLoopDetection {
		t.Errorf("limits = %+v", cfg.Limits)
	}

	ac := cfg.AgentConfig()
	if ac.Model != "gpt-4o" || ac.MaxIterations != 7 || ac.EnableLoopDetection {
		t.Errorf("AgentConfig() = %+v", ac)
	}
	if lc := cfg.LocalConfig(); lc.Timeout != 45*time.Second || lc.Python != "python3" {
		t.Errorf("LocalConfig() = %+v", lc)
	}
	if do := cfg.DisplayOptions(); do.Width != 100 || do.ImageDir != "plots" {
		t.Errorf("DisplayOptions() = %+v", do)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvModel, "llama-3.1-8b-instant")
	t.Setenv(EnvProvider, "groq")
	t.Setenv(EnvInterpreterURL, "http://localhost:8080/v1")
	t.Setenv(EnvMaxIterations, "4")
	t.Setenv("GROQ_API_KEY", "gsk-test")

	path := writeConfig(t, "model:\n  name: gpt-4o\n  provider: openai\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Model.Name != "llama-3.1-8b-instant" || cfg.Model.Provider != "groq" {
		t.Errorf("model = %+v", cfg.Model)
	}
	if cfg.ModelAPIKey() != "gsk-test" {
		t.Errorf("model key = %q", cfg.ModelAPIKey())
	}
	if cfg.Interpreter.BaseURL != "http://localhost:8080/v1" || cfg.RemoteConfig().BaseURL != "http://localhost:8080/v1" {
		t.Errorf("interpreter = %+v", cfg.Interpreter)
	}
	if cfg.Limits.MaxIterations != 4 {
		t.Errorf("MaxIterations = %d", cfg.Limits.MaxIterations)
	}
}

func TestLoadErrors(t *testing.T) {
	clearEnv(t)
	tests := []struct {
		name string
		body string
		want string
	}{
		{"bad yaml", "model: [", "parse config"},
		{"iterations", "limits:\n  max_iterations: 0\n", "max_iterations"},
		{"temperature", "model:\n  temperature: 3\n", "temperature"},
		{"width", "display:\n  width: -1\n", "width"},
		{"backend", "interpreter:\n  backend: docker\n", "unknown interpreter backend"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Load() error = %v, want %q", err, tt.want)
			}
		})
	}

	t.Setenv(EnvMaxIterations, "many")
	if _, err := Load(""); err == nil {
		t.Error("expected error for non-numeric iterations")
	}
}

func TestValidateRemoteNeedsKey(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), EnvInterpreterKey) {
		t.Errorf("Validate() = %v", err)
	}
	cfg.Interpreter.Backend = BackendLocal
	if err := cfg.Validate(); err != nil {
		t.Errorf("local backend needs no key: %v", err)
	}
}

func TestRetryPolicy(t *testing.T) {
	cfg := Default()
	cfg.Model.MaxRetries = 5
	if p := cfg.RetryPolicy(); p.MaxRetries != 5 || p.BaseDelay != time.Second {
		t.Errorf("RetryPolicy() = %+v", p)
	}
	if ProviderKeyEnv("openai") != "OPENAI_API_KEY" {
		t.Error("ProviderKeyEnv")
	}
}

func TestResolveModel(t *testing.T) {
	cfg := Default()
	cfg.Model.Name = "meta-llama/Llama-3.3-70B-Instruct-Turbo"
	cfg.Model.Provider = ""
	if err := cfg.ResolveModel(); err != nil {
		t.Fatalf("ResolveModel() error: %v", err)
	}
	if cfg.Model.Name != "llama-3.3-70b-versatile" || cfg.Model.Provider != "groq" {
		t.Errorf("model = %q/%q", cfg.Model.Name, cfg.Model.Provider)
	}

	cfg.Model.Name = "my-finetune"
	cfg.Model.Provider = ""
	if err := cfg.ResolveModel(); err == nil {
		t.Error("expected error for unknown model without provider")
	}

	cfg.Model.Provider = "ollama"
	if err := cfg.ResolveModel(); err != nil || cfg.Model.Name != "my-finetune" {
		t.Errorf("ResolveModel() = %v, name %q", err, cfg.Model.Name)
	}
}

func TestModelAPIKeyPrefersConfig(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "env-key")
	cfg := Default()
	cfg.Model.Provider = "openai"
	if cfg.ModelAPIKey() != "env-key" {
		t.Errorf("ModelAPIKey() = %q", cfg.ModelAPIKey())
	}
	cfg.Model.APIKey = "file-key"
	if cfg.ModelAPIKey() != "file-key" {
		t.Errorf("ModelAPIKey() = %q", cfg.ModelAPIKey())
	}
}
