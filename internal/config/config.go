package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Substack describes the watched blog.
type Substack struct {
	URL            string `toml:"url"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Monitor contains poll loop timing.
type Monitor struct {
	CheckInterval int `toml:"check_interval"`
}

// Keepalive configures the self-ping loop that keeps idle-timeout hosts
// from reclaiming the process.
type Keepalive struct {
	Interval int    `toml:"interval"`
	BaseURL  string `toml:"base_url"`
}

// Gemini contains summarization API settings.
type Gemini struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Postmark contains email delivery settings.
type Postmark struct {
	ServerToken    string   `toml:"server_token"`
	Sender         string   `toml:"sender"`
	Recipients     []string `toml:"recipients"`
	MessageStream  string   `toml:"message_stream"`
	RequestTimeout int      `toml:"request_timeout"`
}

// Paths contains directory and bind address configuration.
type Paths struct {
	DataDir  string `toml:"data_dir"`
	APIBind  string `toml:"api_bind"`
	APIToken string `toml:"api_token"`
}

// Logging contains log output settings.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for substackmon.
type Config struct {
	Substack  Substack  `toml:"substack"`
	Monitor   Monitor   `toml:"monitor"`
	Keepalive Keepalive `toml:"keepalive"`
	Gemini    Gemini    `toml:"gemini"`
	Postmark  Postmark  `toml:"postmark"`
	Paths     Paths     `toml:"paths"`
	Logging   Logging   `toml:"logging"`
}

// DefaultConfigPath returns the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/substackmon/config.toml")
}

// SampleConfig returns the embedded sample configuration document.
func SampleConfig() string {
	return sampleConfig
}

// Load locates, parses, and validates a configuration file. The returned
// config has paths expanded and env fallbacks applied. The boolean reports
// whether a config file was found at the resolved path.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		if err := toml.NewDecoder(file).Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}

	projectPath, err := filepath.Abs("substackmon.toml")
	if err != nil {
		return "", false, err
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// normalize expands paths and applies environment fallbacks for values the
// original deployment provided via env vars.
func (c *Config) normalize() error {
	if c.Substack.URL == "" {
		c.Substack.URL = strings.TrimSpace(os.Getenv("SUBSTACK_BLOG_URL"))
	}
	if c.Gemini.APIKey == "" {
		c.Gemini.APIKey = strings.TrimSpace(os.Getenv("GEMINI_API_KEY"))
	}
	if c.Postmark.ServerToken == "" {
		c.Postmark.ServerToken = strings.TrimSpace(os.Getenv("POSTMARK_API_TOKEN"))
	}
	if c.Postmark.Sender == "" {
		c.Postmark.Sender = strings.TrimSpace(os.Getenv("EMAIL_SENDER"))
	}
	if len(c.Postmark.Recipients) == 0 {
		if raw := strings.TrimSpace(os.Getenv("EMAIL_RECEIVERS")); raw != "" {
			for _, addr := range strings.Split(raw, ",") {
				if addr = strings.TrimSpace(addr); addr != "" {
					c.Postmark.Recipients = append(c.Postmark.Recipients, addr)
				}
			}
		}
	}

	dataDir, err := expandPath(c.Paths.DataDir)
	if err != nil {
		return err
	}
	c.Paths.DataDir = dataDir

	c.Substack.URL = strings.TrimRight(strings.TrimSpace(c.Substack.URL), "/")
	c.Keepalive.BaseURL = strings.TrimRight(strings.TrimSpace(c.Keepalive.BaseURL), "/")
	return nil
}

// EnsureDirectories creates the data directory when missing.
func (c *Config) EnsureDirectories() error {
	if c.Paths.DataDir == "" {
		return nil
	}
	if err := os.MkdirAll(c.Paths.DataDir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	return nil
}

// ExpandPath resolves ~ prefixes and makes relative paths absolute.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", nil
	}
	if trimmed == "~" || strings.HasPrefix(trimmed, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if trimmed == "~" {
			return home, nil
		}
		return filepath.Join(home, trimmed[2:]), nil
	}
	return filepath.Abs(trimmed)
}
