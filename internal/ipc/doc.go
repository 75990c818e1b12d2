// Package ipc exposes the kiosk daemon over JSON-RPC on a Unix socket and
// ships the matching client used by the CLI.
//
// The server depends only on the Controller interface, which the daemon
// implements; request and response DTOs live in types.go so the CLI and the
// daemon agree on the wire shape. Methods are registered under the
// "Timeclock" service name.
package ipc
