// Package backend talks to the Grist document that owns the worker roster and
// the timeclock hours table.
//
// The client reads workers and recent scan history through Grist's SQL
// endpoint and appends new scan records through the table records API. Field
// values are decoded leniently: a missing or mistyped column becomes the zero
// value rather than an error so one malformed row never blocks startup.
package backend
