package engine

import (
	"sync"

	"timeclock/internal/barcode"
)

// keyRelay holds the one long-lived peripheral subscription and forwards keys
// to whichever decoder is currently attached, so rebinding the roster never
// reopens the device.
type keyRelay struct {
	mu  sync.Mutex
	gen uint64
	fn  func(barcode.Keystroke)
}

func (r *keyRelay) Subscribe(fn func(barcode.Keystroke)) (func(), error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gen++
	gen := r.gen
	r.fn = fn
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if r.gen == gen {
			r.fn = nil
		}
	}, nil
}

func (r *keyRelay) forward(ks barcode.Keystroke) {
	r.mu.Lock()
	fn := r.fn
	r.mu.Unlock()
	if fn != nil {
		fn(ks)
	}
}
