package config

// ExecutionConfig configures how generated parsers are run.
type ExecutionConfig struct {
	// Deadline for one Parse invocation, e.g. "60s".
	Timeout string `yaml:"timeout"`
}
