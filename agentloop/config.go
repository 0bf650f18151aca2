package agentloop

// Defaults for Config.
const (
	DefaultModel                = "llama-3.3-70b-versatile"
	DefaultProvider             = "groq"
	DefaultTemperature          = 0.2
	DefaultMaxIterations        = 15
	DefaultObservationCharLimit = 20000
	DefaultObservationLineLimit = 400
	DefaultLoopDetectionWindow  = 3
)

// Config holds the settings of one agent. Zero fields fall back to the
// defaults above when the agent is constructed.
type Config struct {
	Model    string `json:"model"`
	Provider string `json:"provider,omitempty"` // "" lets the client route by model

	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens,omitempty"` // 0 = provider default

	MaxIterations int `json:"max_iterations"`

	// Observation digests longer than these limits are cut in the middle
	// before they enter the conversation.
	ObservationCharLimit int `json:"observation_char_limit"`
	ObservationLineLimit int `json:"observation_line_limit"`

	// ContextWindow is the model's context size in tokens for usage
	// warnings. 0 looks the model up in the catalog.
	ContextWindow int `json:"context_window,omitempty"`

	EnableLoopDetection bool `json:"enable_loop_detection"`
	LoopDetectionWindow int  `json:"loop_detection_window"`

	// SystemPrompt replaces DefaultSystemPrompt when set.
	SystemPrompt string `json:"system_prompt,omitempty"`

	// UserInstructions are appended last to the system prompt.
	UserInstructions string `json:"user_instructions,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Model:                DefaultModel,
		Provider:             DefaultProvider,
		Temperature:          DefaultTemperature,
		MaxIterations:        DefaultMaxIterations,
		ObservationCharLimit: DefaultObservationCharLimit,
		ObservationLineLimit: DefaultObservationLineLimit,
		EnableLoopDetection:  true,
		LoopDetectionWindow:  DefaultLoopDetectionWindow,
	}
}

// withDefaults fills unset fields. Temperature 0 is a valid setting and is
// kept as given.
func (c Config) withDefaults() Config {
	if c.Model == "" {
		c.Model = DefaultModel
		if c.Provider == "" {
			c.Provider = DefaultProvider
		}
	}
	if c.MaxIterations <= 0 {
		c.MaxIterations = DefaultMaxIterations
	}
	if c.ObservationCharLimit <= 0 {
		c.ObservationCharLimit = DefaultObservationCharLimit
	}
	if c.ObservationLineLimit <= 0 {
		c.ObservationLineLimit = DefaultObservationLineLimit
	}
	if c.LoopDetectionWindow <= 0 {
		c.LoopDetectionWindow = DefaultLoopDetectionWindow
	}
	return c
}
