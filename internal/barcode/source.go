package barcode

import "time"

// Keystroke is one key press delivered by a peripheral. Key holds the
// produced text ("A", "7", "\n"); At is the time the press was observed and
// may be zero when the source has no timestamp of its own.
type Keystroke struct {
	Key string
	At  time.Time
}

// KeySource is a subscribable stream of keystrokes. Subscribe returns a
// function that stops delivery; after it returns no further callbacks run.
type KeySource interface {
	Subscribe(fn func(Keystroke)) (unsubscribe func(), err error)
}
