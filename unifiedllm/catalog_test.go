package unifiedllm

import "testing"

func TestGetModelInfo(t *testing.T) {
	info := GetModelInfo("llama-3.3-70b-versatile")
	if info == nil {
		t.Fatal("expected to find llama-3.3-70b-versatile")
	}
	if info.Provider != "groq" {
		t.Errorf("expected provider %q, got %q", "groq", info.Provider)
	}
	if info.ContextWindow != 131072 {
		t.Errorf("expected context window 131072, got %d", info.ContextWindow)
	}

	// By alias, case-insensitive.
	info = GetModelInfo("META-LLAMA/Llama-3.3-70B-Instruct-Turbo")
	if info == nil {
		t.Fatal("expected to find model by alias")
	}
	if info.ID != "llama-3.3-70b-versatile" {
		t.Errorf("expected id %q, got %q", "llama-3.3-70b-versatile", info.ID)
	}

	if info := GetModelInfo("nonexistent-model"); info != nil {
		t.Errorf("expected nil for unknown model, got %v", info)
	}
}

func TestListModels(t *testing.T) {
	all := ListModels("")
	if len(all) != len(Models) {
		t.Errorf("expected %d models, got %d", len(Models), len(all))
	}

	groq := ListModels("groq")
	if len(groq) != 2 {
		t.Errorf("expected 2 Groq models, got %d", len(groq))
	}
	for _, m := range groq {
		if m.Provider != "groq" {
			t.Errorf("expected provider groq, got %q", m.Provider)
		}
	}

	if empty := ListModels("nonexistent"); len(empty) != 0 {
		t.Errorf("expected 0 models for nonexistent provider, got %d", len(empty))
	}
}

func TestGetLatestModel(t *testing.T) {
	info := GetLatestModel("openai")
	if info == nil {
		t.Fatal("expected to find latest OpenAI model")
	}
	if info.ID != "gpt-4o" {
		t.Errorf("expected %q, got %q", "gpt-4o", info.ID)
	}

	if info := GetLatestModel("nonexistent"); info != nil {
		t.Errorf("expected nil for nonexistent provider, got %v", info)
	}
}

func TestContextWindow(t *testing.T) {
	if got := ContextWindow("sonnet"); got != 200000 {
		t.Errorf("expected 200000, got %d", got)
	}
	if got := ContextWindow("mystery"); got != DefaultContextWindow {
		t.Errorf("expected default %d, got %d", DefaultContextWindow, got)
	}
}

func TestModelInfoFields(t *testing.T) {
	for _, m := range Models {
		if m.ID == "" {
			t.Error("model ID must not be empty")
		}
		if m.Provider == "" {
			t.Errorf("model %q: provider must not be empty", m.ID)
		}
		if m.DisplayName == "" {
			t.Errorf("model %q: display_name must not be empty", m.ID)
		}
		if m.ContextWindow <= 0 {
			t.Errorf("model %q: context_window must be positive", m.ID)
		}
	}
}
