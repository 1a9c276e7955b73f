// Package config loads, normalizes, and validates substackmon configuration.
//
// Configuration is TOML with environment fallbacks for secrets and the blog
// URL (SUBSTACK_BLOG_URL, GEMINI_API_KEY, POSTMARK_API_TOKEN). Validation
// failures are fatal at startup; the running daemon never sees a partial
// config.
package config
