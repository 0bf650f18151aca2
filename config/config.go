// Package config loads codeloop settings from a YAML file and the
// environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/martinemde/codeloop/agentloop"
	"github.com/martinemde/codeloop/display"
	"github.com/martinemde/codeloop/interpreter"
	"github.com/martinemde/codeloop/unifiedllm"
)

// Interpreter backends.
const (
	BackendRemote = "remote"
	BackendLocal  = "local"
)

// Environment variables read by Load.
const (
	EnvModel          = "CODELOOP_MODEL"
	EnvProvider       = "CODELOOP_PROVIDER"
	EnvMaxIterations  = "CODELOOP_MAX_ITERATIONS"
	EnvInterpreterKey = "TOGETHER_API_KEY"
	EnvInterpreterURL = "CODELOOP_INTERPRETER_URL"
	EnvBackend        = "CODELOOP_INTERPRETER_BACKEND"
)

// Config is the full configuration.
type Config struct {
	Model       ModelConfig       `yaml:"model"`
	Interpreter InterpreterConfig `yaml:"interpreter"`
	Display     DisplayConfig     `yaml:"display"`
	Limits      LimitsConfig      `yaml:"limits"`
}

// ModelConfig selects and tunes the language model.
type ModelConfig struct {
	Name              string  `yaml:"name"`
	Provider          string  `yaml:"provider"`
	APIKey            string  `yaml:"api_key"`
	Temperature       float64 `yaml:"temperature"`
	MaxTokens         int     `yaml:"max_tokens"`
	MaxRetries        int     `yaml:"max_retries"`
	RequestsPerMinute int     `yaml:"requests_per_minute"` // 0 = unlimited
	SystemPrompt      string  `yaml:"system_prompt"`
	UserInstructions  string  `yaml:"user_instructions"`
}

// InterpreterConfig selects the code execution backend.
type InterpreterConfig struct {
	Backend    string        `yaml:"backend"` // "remote" or "local"
	BaseURL    string        `yaml:"base_url"`
	APIKey     string        `yaml:"api_key"`
	Timeout    time.Duration `yaml:"timeout"`
	Python     string        `yaml:"python"`      // local backend only
	WorkingDir string        `yaml:"working_dir"` // local backend only
}

// DisplayConfig controls terminal output.
type DisplayConfig struct {
	Width        int    `yaml:"width"`
	MaxWords     int    `yaml:"max_words"`
	ShowImages   bool   `yaml:"show_images"`
	ImageDir     string `yaml:"image_dir"`
	ImageMaxSide int    `yaml:"image_max_side"`
}

// LimitsConfig bounds a run.
type LimitsConfig struct {
	MaxIterations        int  `yaml:"max_iterations"`
	ObservationCharLimit int  `yaml:"observation_char_limit"`
	ObservationLineLimit int  `yaml:"observation_line_limit"`
	EnableLoopDetection  bool `yaml:"enable_loop_detection"`
	LoopDetectionWindow  int  `yaml:"loop_detection_window"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Model: ModelConfig{
			Name:        agentloop.DefaultModel,
			Provider:    agentloop.DefaultProvider,
			Temperature: agentloop.DefaultTemperature,
			MaxRetries:  unifiedllm.DefaultRetryPolicy().MaxRetries,
		},
		Interpreter: InterpreterConfig{
			Backend: BackendRemote,
			BaseURL: interpreter.DefaultBaseURL,
			Timeout: 5 * time.Minute,
			Python:  "python3",
		},
		Display: DisplayConfig{
			Width:        display.DefaultWidth,
			MaxWords:     display.DefaultMaxWords,
			ShowImages:   true,
			ImageMaxSide: display.DefaultImageMaxSide,
		},
		Limits: LimitsConfig{
			MaxIterations:        agentloop.DefaultMaxIterations,
			ObservationCharLimit: agentloop.DefaultObservationCharLimit,
			ObservationLineLimit: agentloop.DefaultObservationLineLimit,
			EnableLoopDetection:  true,
			LoopDetectionWindow:  agentloop.DefaultLoopDetectionWindow,
		},
	}
}

// Load reads the configuration and validates it.
func Load(path string) (*Config, error) {
	cfg, err := Read(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Read builds the configuration without validating it: defaults, then the
// YAML file at path (skipped when path is empty or the file does not
// exist), then the environment. Callers that apply further overrides
// validate afterwards.
func Read(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	if err := cfg.applyEnv(os.Getenv); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	if v := getenv(EnvModel); v != "" {
		c.Model.Name = v
	}
	if v := getenv(EnvProvider); v != "" {
		c.Model.Provider = v
	}
	if v := getenv(EnvInterpreterKey); v != "" && c.Interpreter.APIKey == "" {
		c.Interpreter.APIKey = v
	}
	if v := getenv(EnvInterpreterURL); v != "" {
		c.Interpreter.BaseURL = v
	}
	if v := getenv(EnvBackend); v != "" {
		c.Interpreter.Backend = v
	}
	if v := getenv(EnvMaxIterations); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvMaxIterations, err)
		}
		c.Limits.MaxIterations = n
	}
	return nil
}

// ModelAPIKey returns the configured model API key, falling back to the
// provider's environment variable. Empty lets the provider SDK look it up.
func (c *Config) ModelAPIKey() string {
	if c.Model.APIKey != "" {
		return c.Model.APIKey
	}
	if c.Model.Provider == "" {
		return ""
	}
	return os.Getenv(ProviderKeyEnv(c.Model.Provider))
}

// ResolveModel replaces a catalog alias with the canonical model ID and
// fills an empty provider from the catalog.
func (c *Config) ResolveModel() error {
	info := unifiedllm.GetModelInfo(c.Model.Name)
	if info != nil {
		c.Model.Name = info.ID
		if c.Model.Provider == "" {
			c.Model.Provider = info.Provider
		}
	}
	if c.Model.Provider == "" {
		return fmt.Errorf("model %q is not in the catalog; set a provider", c.Model.Name)
	}
	return nil
}

// ProviderKeyEnv returns the environment variable holding a provider's API
// key, e.g. GROQ_API_KEY.
func ProviderKeyEnv(provider string) string {
	return strings.ToUpper(provider) + "_API_KEY"
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case c.Model.Name == "":
		return errors.New("model name is required")
	case c.Model.Temperature < 0 || c.Model.Temperature > 2:
		return fmt.Errorf("model temperature %.2f out of range [0, 2]", c.Model.Temperature)
	case c.Model.MaxRetries < 0:
		return errors.New("model max_retries must not be negative")
	case c.Limits.MaxIterations <= 0:
		return fmt.Errorf("max_iterations must be positive, got %d", c.Limits.MaxIterations)
	case c.Display.Width <= 0:
		return fmt.Errorf("display width must be positive, got %d", c.Display.Width)
	case c.Display.MaxWords <= 0:
		return fmt.Errorf("display max_words must be positive, got %d", c.Display.MaxWords)
	}

	switch c.Interpreter.Backend {
	case BackendRemote:
		if c.Interpreter.APIKey == "" {
			return fmt.Errorf("remote interpreter needs an API key (set %s or interpreter.api_key)", EnvInterpreterKey)
		}
	case BackendLocal:
	default:
		return fmt.Errorf("unknown interpreter backend %q", c.Interpreter.Backend)
	}
	return nil
}

// AgentConfig converts to the agent loop configuration.
func (c *Config) AgentConfig() agentloop.Config {
	return agentloop.Config{
		Model:                c.Model.Name,
		Provider:             c.Model.Provider,
		Temperature:          c.Model.Temperature,
		MaxTokens:            c.Model.MaxTokens,
		MaxIterations:        c.Limits.MaxIterations,
		ObservationCharLimit: c.Limits.ObservationCharLimit,
		ObservationLineLimit: c.Limits.ObservationLineLimit,
		EnableLoopDetection:  c.Limits.EnableLoopDetection,
		LoopDetectionWindow:  c.Limits.LoopDetectionWindow,
		SystemPrompt:         c.Model.SystemPrompt,
		UserInstructions:     c.Model.UserInstructions,
	}
}

// RemoteConfig converts to the remote interpreter client configuration.
func (c *Config) RemoteConfig() interpreter.Config {
	return interpreter.Config{
		BaseURL: c.Interpreter.BaseURL,
		APIKey:  c.Interpreter.APIKey,
		Timeout: c.Interpreter.Timeout,
	}
}

// LocalConfig converts to the local interpreter configuration.
func (c *Config) LocalConfig() interpreter.LocalConfig {
	return interpreter.LocalConfig{
		Python:     c.Interpreter.Python,
		WorkingDir: c.Interpreter.WorkingDir,
		Timeout:    c.Interpreter.Timeout,
	}
}

// DisplayOptions converts to terminal display options.
func (c *Config) DisplayOptions() display.Options {
	return display.Options{
		Width:        c.Display.Width,
		MaxWords:     c.Display.MaxWords,
		ShowImages:   c.Display.ShowImages,
		ImageDir:     c.Display.ImageDir,
		ImageMaxSide: c.Display.ImageMaxSide,
	}
}

// RetryPolicy returns the model retry policy.
func (c *Config) RetryPolicy() unifiedllm.RetryPolicy {
	p := unifiedllm.DefaultRetryPolicy()
	p.MaxRetries = c.Model.MaxRetries
	return p
}
