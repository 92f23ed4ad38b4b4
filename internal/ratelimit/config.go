package ratelimit

import "time"

// DefaultWindow is the sliding window used when none is configured.
const DefaultWindow = time.Minute

// Config bounds calls within a sliding window.
// Zero MaxCalls means no limit.
type Config struct {
	MaxCalls int           `yaml:"max_calls"`
	Window   time.Duration `yaml:"window"`
}

// HasLimit returns true if the config caps anything.
func (c Config) HasLimit() bool {
	return c.MaxCalls > 0
}

func (c Config) window() time.Duration {
	if c.Window <= 0 {
		return DefaultWindow
	}
	return c.Window
}
