// Package notifications delivers kiosk events via ntfy.
//
// The ntfy implementation posts to the topic URL configured in config.toml and
// degrades to a no-op when no topic is set. Events cover the conditions an
// administrator cares about away from the kiosk: badges that match nobody,
// scan records the backend refused, and the scanner dropping off the bus.
// Each event can be muted through the [notifications] flags.
//
// Callers depend only on the Service interface.
package notifications
