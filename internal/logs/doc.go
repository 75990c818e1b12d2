// Package logs reads the daemon log file for the CLI and the LogTail RPC.
//
// Tail returns the last N lines (optionally only those mentioning a worker
// or event) and an offset that a follow loop passes back to pick up new
// lines as the kiosk writes them.
package logs
