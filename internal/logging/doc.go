// Package logging configures slog for the daemon and CLI.
//
// Two output formats are supported: a compact console format for
// interactive use and JSON for log files and collectors. Helpers mirror
// the slog attr constructors so call sites stay terse.
package logging
