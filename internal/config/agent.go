package config

// AgentConfig configures the attempt loop and the file layout.
type AgentConfig struct {
	MaxAttempts int    `yaml:"max_attempts"`
	DataDir     string `yaml:"data_dir"`    // <data_dir>/<target>/...
	ParsersDir  string `yaml:"parsers_dir"` // generated sources
}
