package interpreter

import (
	"context"
	"encoding/base64"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestIsSensitiveEnvVar(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"TOGETHER_API_KEY", true},
		{"groq_api_key", true},
		{"AWS_SECRET", true},
		{"GITHUB_TOKEN", true},
		{"DB_PASSWORD", true},
		{"GCP_CREDENTIAL", true},
		{"PATH", false},
		{"HOME", false},
		{"TOKENIZER", false},
	}
	for _, tt := range tests {
		if got := isSensitiveEnvVar(tt.name); got != tt.want {
			t.Errorf("isSensitiveEnvVar(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestFilterEnvironment(t *testing.T) {
	env := []string{
		"PATH=/usr/bin",
		"HOME=/root",
		"OPENAI_API_KEY=sk-123",
		"SESSION_TOKEN=abc",
		"EDITOR=vim",
		"malformed",
	}
	got := filterEnvironment(env)
	joined := strings.Join(got, "\n")
	for _, keep := range []string{"PATH=/usr/bin", "HOME=/root", "EDITOR=vim"} {
		if !strings.Contains(joined, keep) {
			t.Errorf("filtered env missing %q", keep)
		}
	}
	for _, drop := range []string{"OPENAI_API_KEY", "SESSION_TOKEN", "malformed"} {
		if strings.Contains(joined, drop) {
			t.Errorf("filtered env should not contain %q", drop)
		}
	}
}

func TestLocalExecutorCommandLine(t *testing.T) {
	e, err := NewLocalExecutor(LocalConfig{Python: `python3 -X utf8 -W "ignore"`, WorkingDir: t.TempDir()})
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"python3", "-X", "utf8", "-W", "ignore"}
	if strings.Join(e.argv, "|") != strings.Join(want, "|") {
		t.Errorf("argv = %q, want %q", e.argv, want)
	}

	e, err = NewLocalExecutor(LocalConfig{WorkingDir: t.TempDir()})
	if err != nil || len(e.argv) != 1 || e.argv[0] != "python3" {
		t.Errorf("default argv = %q, err = %v", e.argv, err)
	}

	if _, err := NewLocalExecutor(LocalConfig{Python: `python3 "unterminated`, WorkingDir: t.TempDir()}); err == nil {
		t.Error("expected an error for unbalanced quotes")
	}
}

func TestLocalExecutorRejectsEscapingAttachment(t *testing.T) {
	e, err := NewLocalExecutor(LocalConfig{WorkingDir: t.TempDir(), Logger: quietLogger()})
	if err != nil {
		t.Fatal(err)
	}
	res := e.Execute(context.Background(), "print(1)", "", []File{{Name: "../evil.txt", Content: "x"}})
	if !res.Degraded() {
		t.Errorf("result = %+v, want degraded", res)
	}
}

func TestLocalExecutorEmptyCode(t *testing.T) {
	e, err := NewLocalExecutor(LocalConfig{WorkingDir: t.TempDir(), Logger: quietLogger()})
	if err != nil {
		t.Fatal(err)
	}
	if res := e.Execute(context.Background(), "\n", "", nil); !res.Degraded() {
		t.Errorf("result = %+v, want degraded", res)
	}
}

func requirePython(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("python3"); err != nil {
		t.Skip("python3 not available")
	}
}

func TestLocalExecutorRun(t *testing.T) {
	requirePython(t)
	dir := t.TempDir()
	e, err := NewLocalExecutor(LocalConfig{WorkingDir: dir, Logger: quietLogger()})
	if err != nil {
		t.Fatal(err)
	}

	files := []File{
		{Name: "in/data.txt", Encoding: "string", Content: "21"},
		{Name: "blob.bin", Encoding: "base64", Content: base64.StdEncoding.EncodeToString([]byte("raw"))},
	}
	res := e.Execute(context.Background(), "print(int(open('in/data.txt').read()) * 2)", "ignored", files)
	if !res.Succeeded() {
		t.Fatalf("result = %+v", res)
	}
	if res.SessionID != "" {
		t.Errorf("SessionID = %q, local executor is stateless", res.SessionID)
	}
	if len(res.Outputs) != 1 || res.Outputs[0].Type != OutputStdout || res.Outputs[0].Data.Text != "42\n" {
		t.Errorf("outputs = %+v", res.Outputs)
	}
	if b, err := os.ReadFile(filepath.Join(dir, "blob.bin")); err != nil || string(b) != "raw" {
		t.Errorf("blob.bin = %q, %v", b, err)
	}
}

func TestLocalExecutorFailure(t *testing.T) {
	requirePython(t)
	e, err := NewLocalExecutor(LocalConfig{WorkingDir: t.TempDir(), Logger: quietLogger()})
	if err != nil {
		t.Fatal(err)
	}
	res := e.Execute(context.Background(), "raise ValueError('nope')", "", nil)
	if res.Status != StatusError || res.Degraded() {
		t.Fatalf("result = %+v", res)
	}
	if len(res.Errors) != 1 || !strings.Contains(res.Errors[0], "ValueError: nope") {
		t.Errorf("Errors = %v", res.Errors)
	}
}

func TestLocalExecutorTimeout(t *testing.T) {
	requirePython(t)
	e, err := NewLocalExecutor(LocalConfig{
		WorkingDir: t.TempDir(),
		Timeout:    200 * time.Millisecond,
		Logger:     quietLogger(),
	})
	if err != nil {
		t.Fatal(err)
	}
	res := e.Execute(context.Background(), "import time\ntime.sleep(10)", "", nil)
	if res.Status != StatusError {
		t.Fatalf("result = %+v", res)
	}
	if len(res.Errors) == 0 || !strings.Contains(res.Errors[0], "timed out") {
		t.Errorf("Errors = %v", res.Errors)
	}
}
