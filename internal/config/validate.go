package config

import (
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateDiscogs(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateDiscogs() error {
	if c.Discogs.Token == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/vault/config.toml"
		}
		return fmt.Errorf("discogs.token is required. Edit %s (create with 'vault config init')", defaultPath)
	}
	if !strings.HasPrefix(c.Discogs.BaseURL, "http://") && !strings.HasPrefix(c.Discogs.BaseURL, "https://") {
		return fmt.Errorf("discogs.base_url must be an http(s) URL, got %q", c.Discogs.BaseURL)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}
