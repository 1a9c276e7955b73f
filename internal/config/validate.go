package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateSubstack(); err != nil {
		return err
	}
	if err := c.validateMonitor(); err != nil {
		return err
	}
	if err := c.validateKeepalive(); err != nil {
		return err
	}
	if err := c.validateGemini(); err != nil {
		return err
	}
	if err := c.validatePostmark(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateSubstack() error {
	if c.Substack.URL == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/substackmon/config.toml"
		}
		return fmt.Errorf("substack.url is required. Set SUBSTACK_BLOG_URL env var or edit %s (create with 'substackmon config init')", defaultPath)
	}
	parsed, err := url.Parse(c.Substack.URL)
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return fmt.Errorf("substack.url must be an http(s) URL, got %q", c.Substack.URL)
	}
	if c.Substack.RequestTimeout <= 0 {
		return errors.New("substack.request_timeout must be positive")
	}
	return nil
}

func (c *Config) validateMonitor() error {
	if c.Monitor.CheckInterval <= 0 {
		return errors.New("monitor.check_interval must be positive")
	}
	return nil
}

func (c *Config) validateKeepalive() error {
	if c.Keepalive.Interval <= 0 {
		return errors.New("keepalive.interval must be positive")
	}
	if base := c.Keepalive.BaseURL; base != "" {
		parsed, err := url.Parse(base)
		if err != nil || parsed.Host == "" {
			return fmt.Errorf("keepalive.base_url must be a URL, got %q", base)
		}
	}
	return nil
}

func (c *Config) validateGemini() error {
	if c.Gemini.APIKey == "" {
		return errors.New("gemini.api_key is required. Set GEMINI_API_KEY env var or add it to the config file")
	}
	if strings.TrimSpace(c.Gemini.Model) == "" {
		return errors.New("gemini.model must be set")
	}
	if c.Gemini.TimeoutSeconds <= 0 {
		return errors.New("gemini.timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validatePostmark() error {
	if c.Postmark.ServerToken == "" {
		return errors.New("postmark.server_token is required. Set POSTMARK_API_TOKEN env var or add it to the config file")
	}
	if strings.TrimSpace(c.Postmark.Sender) == "" {
		return errors.New("postmark.sender is required. Set EMAIL_SENDER env var or add it to the config file")
	}
	if len(c.Postmark.Recipients) == 0 {
		return errors.New("postmark.recipients must list at least one address. Set EMAIL_RECEIVERS env var or add them to the config file")
	}
	for _, addr := range c.Postmark.Recipients {
		if !strings.Contains(addr, "@") {
			return fmt.Errorf("postmark.recipients entry %q is not an email address", addr)
		}
	}
	if c.Postmark.RequestTimeout <= 0 {
		return errors.New("postmark.request_timeout must be positive")
	}
	return nil
}
