// Package main hosts the substackmon CLI entrypoint and command graph.
//
// The Cobra-based command tree translates terminal invocations into HTTP
// calls against the daemon's control API, delivery history lookups, and
// configuration scaffolding. It centralizes configuration resolution and
// control address discovery so subcommands can focus on user experience
// instead of wiring.
package main
