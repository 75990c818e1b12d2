// Package daemon runs the kiosk as a single long-lived process.
//
// It takes a flock-based single-instance lock, loads the roster and scan
// history (from the backend when reachable, otherwise from the local store),
// and owns the event loop that the attendance engine, the scanner and the
// periodic refresh all funnel through. The Daemon type implements
// ipc.Controller so the CLI can inspect and drive a running kiosk.
//
// Keep orchestration here: attendance rules live in internal/attendance and
// internal/engine, transport in internal/backend and internal/ipc.
package daemon
