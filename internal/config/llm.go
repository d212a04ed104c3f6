package config

// LLMConfig configures the generation service.
type LLMConfig struct {
	Provider    string   `yaml:"provider"` // gemini
	APIKey      string   `yaml:"api_key,omitempty"`
	Model       string   `yaml:"model"`
	Temperature *float32 `yaml:"temperature,omitempty"`
}
