// Package store persists the kiosk's local journal in SQLite.
//
// The journal caches the last roster and scan history fetched from the
// backend so the kiosk can start while the backend is unreachable, and it
// keeps every locally confirmed scan flagged as pending until the backend
// acknowledges it. Records are never deleted; acknowledgement only clears the
// pending flag.
package store
