package agentloop

import (
	"fmt"
	"strings"
	"testing"
	"time"
)

func TestBuildSystemPrompt(t *testing.T) {
	cfg := DefaultConfig()
	cfg.UserInstructions = "Prefer seaborn for plots."
	got := BuildSystemPrompt(cfg, PromptContext{
		Model:     "m",
		DataFiles: []string{"sales.csv"},
		Now:       time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC),
	})

	for _, want := range []string{
		"Thought:",
		"Action Input:",
		"Final Answer:",
		"Today's date: 2026-01-02",
		"Model: m",
		"- sales.csv",
		"# User Instructions\n\nPrefer seaborn for plots.",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("system prompt missing %q", want)
		}
	}
	if !strings.HasSuffix(got, "Prefer seaborn for plots.") {
		t.Error("user instructions should come last")
	}
}

func TestBuildSystemPromptOverride(t *testing.T) {
	cfg := Config{SystemPrompt: "custom"}
	got := BuildSystemPrompt(cfg, PromptContext{})
	if !strings.HasPrefix(got, "custom\n\n<environment>") {
		t.Errorf("got %q", got)
	}
}

func TestBuildEnvironmentContextCapsListing(t *testing.T) {
	var files []string
	for i := 0; i < maxFileListing+5; i++ {
		files = append(files, fmt.Sprintf("f%d.csv", i))
	}
	got := BuildEnvironmentContext(PromptContext{DataFiles: files})
	if !strings.Contains(got, "... and 5 more") {
		t.Errorf("listing not capped: %q", got)
	}
	if strings.Contains(got, fmt.Sprintf("f%d.csv", maxFileListing)) {
		t.Error("listing includes entries past the cap")
	}
}

func TestConversationAppendOnly(t *testing.T) {
	c := NewConversation("sys")
	c.AppendUser("task")
	c.AppendAssistant("step")

	if c.Len() != 3 {
		t.Fatalf("Len() = %d", c.Len())
	}
	entries := c.Entries()
	entries[0].Content = "mutated"
	if c.System().Content != "sys" {
		t.Error("Entries() must return a copy")
	}

	msgs := c.Messages()
	if msgs[0].Role != "system" || msgs[1].Role != "user" || msgs[2].Role != "assistant" {
		t.Errorf("roles = %v %v %v", msgs[0].Role, msgs[1].Role, msgs[2].Role)
	}
}

func TestConfigWithDefaults(t *testing.T) {
	cfg := Config{Temperature: 0}.withDefaults()
	if cfg.Model != DefaultModel || cfg.Provider != DefaultProvider {
		t.Errorf("model/provider = %q/%q", cfg.Model, cfg.Provider)
	}
	if cfg.MaxIterations != DefaultMaxIterations || cfg.ObservationCharLimit != DefaultObservationCharLimit {
		t.Errorf("limits = %+v", cfg)
	}
	if cfg.Temperature != 0 {
		t.Error("temperature 0 must be kept")
	}

	cfg = Config{Model: "gpt-4o"}.withDefaults()
	if cfg.Provider != "" {
		t.Errorf("explicit model should leave provider to routing, got %q", cfg.Provider)
	}
}
