package flow

import (
	"fmt"
	"strings"
	"time"
)

const (
	// DefaultPlaceholderImage is shown for items without a poster.
	DefaultPlaceholderImage = "https://placehold.co/300x450/png?text=No+Poster"
	defaultIdleTTL          = 24 * time.Hour
	defaultJanitorInterval  = 10 * time.Minute
)

// Config tunes the conversation flow.
type Config struct {
	PlaceholderImage string        `yaml:"placeholder_image" envconfig:"FLOW_PLACEHOLDER_IMAGE"`
	SessionIdleTTL   time.Duration `yaml:"session_idle_ttl" envconfig:"FLOW_SESSION_IDLE_TTL"`
	JanitorInterval  time.Duration `yaml:"janitor_interval" envconfig:"FLOW_JANITOR_INTERVAL"`
}

// Normalize fills defaults and rejects negative durations.
func (c *Config) Normalize() error {
	c.PlaceholderImage = strings.TrimSpace(c.PlaceholderImage)
	if c.PlaceholderImage == "" {
		c.PlaceholderImage = DefaultPlaceholderImage
	}
	if c.SessionIdleTTL < 0 || c.JanitorInterval < 0 {
		return fmt.Errorf("flow durations must be >= 0")
	}
	if c.SessionIdleTTL == 0 {
		c.SessionIdleTTL = defaultIdleTTL
	}
	if c.JanitorInterval == 0 {
		c.JanitorInterval = defaultJanitorInterval
	}
	return nil
}
