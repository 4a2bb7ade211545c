package app

import (
	"fmt"

	coreconfig "github.com/m3rciful/suggestbot/core/config"
	coredatabase "github.com/m3rciful/suggestbot/core/database"
	"github.com/m3rciful/suggestbot/internal/catalog"
	"github.com/m3rciful/suggestbot/internal/flow"
)

// DatabaseConfig enables the PostgreSQL suggestion store. When disabled,
// suggestions go to the log.
type DatabaseConfig struct {
	Enabled             bool `yaml:"enabled" envconfig:"DB_ENABLED"`
	coredatabase.Config `yaml:",inline"`
}

// Config is the full configuration of the bot process.
type Config struct {
	coreconfig.Config `yaml:",inline"`

	Database DatabaseConfig `yaml:"database"`
	Catalog  catalog.Config `yaml:"catalog"`
	Flow     flow.Config    `yaml:"flow"`
}

// CoreConfig exposes the framework part of the configuration.
func (c *Config) CoreConfig() *coreconfig.Config {
	if c == nil {
		return nil
	}
	return &c.Config
}

// DatabaseOrNil returns the database settings when the store is enabled.
func (c *Config) DatabaseOrNil() *coredatabase.Config {
	if c == nil || !c.Database.Enabled {
		return nil
	}
	return &c.Database.Config
}

// Normalize validates every section and fills defaults.
func (c *Config) Normalize() error {
	if err := coreconfig.Normalize(&c.Config); err != nil {
		return err
	}
	if c.Database.Enabled {
		if err := c.Database.Normalize(); err != nil {
			return err
		}
	}
	if err := c.Catalog.Normalize(); err != nil {
		return err
	}
	if err := c.Flow.Normalize(); err != nil {
		return fmt.Errorf("flow: %w", err)
	}
	return nil
}

// Load reads the YAML file at path, applies environment overrides and
// normalizes the result.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := coreconfig.Decode(path, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
