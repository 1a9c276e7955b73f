package config

const (
	defaultDataDir                = "~/.local/share/substackmon"
	defaultAPIBind                = "127.0.0.1:8473"
	defaultCheckInterval          = 3600
	defaultKeepaliveInterval      = 600
	defaultSubstackTimeout        = 30
	defaultGeminiBaseURL          = "https://generativelanguage.googleapis.com"
	defaultGeminiModel            = "gemini-1.5-pro-latest"
	defaultGeminiTimeoutSeconds   = 60
	defaultPostmarkRequestTimeout = 10
	defaultLogFormat              = "console"
	defaultLogLevel               = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Substack: Substack{
			RequestTimeout: defaultSubstackTimeout,
		},
		Monitor: Monitor{
			CheckInterval: defaultCheckInterval,
		},
		Keepalive: Keepalive{
			Interval: defaultKeepaliveInterval,
		},
		Gemini: Gemini{
			BaseURL:        defaultGeminiBaseURL,
			Model:          defaultGeminiModel,
			TimeoutSeconds: defaultGeminiTimeoutSeconds,
		},
		Postmark: Postmark{
			RequestTimeout: defaultPostmarkRequestTimeout,
		},
		Paths: Paths{
			DataDir: defaultDataDir,
			APIBind: defaultAPIBind,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
