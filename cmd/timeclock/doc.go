// Package main hosts the timeclock CLI entrypoint and command graph.
//
// The Cobra-based command tree translates terminal invocations into IPC calls
// against the kiosk daemon: roster and hours views, scan and selection
// injection, backend reload and sync, log tailing, and configuration
// scaffolding. It centralizes configuration resolution and socket discovery
// so subcommands can focus on output instead of wiring.
//
// Keep this package lean: add behavior to the internal packages first, then
// surface it through dedicated commands or flags here.
package main
