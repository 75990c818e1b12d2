// Package barcode frames a raw keystroke stream from a keyboard-wedge badge
// scanner into discrete scanned codes.
//
// A Decoder accumulates keys while they arrive within the configured timeout
// of each other and flushes the buffer once the stream goes quiet. Optional
// prefix and suffix markers reject partial or hand-typed input. The decoder
// never reports errors to its caller: anything it cannot frame is dropped.
package barcode
