// Package daemon ties the long-running pieces together: it enforces
// single-instance execution via a lock file, owns the monitor and
// keepalive lifecycles, and serves the HTTP control surface the CLI
// talks to.
package daemon
