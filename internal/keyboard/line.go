package keyboard

import (
	"bufio"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"timeclock/internal/barcode"
	"timeclock/internal/logging"
)

// LineSource replays each line read from r as a burst of keystrokes ending
// in "\n", so a line framed by the decoder becomes one scan.
type LineSource struct {
	r      io.Reader
	now    func() time.Time
	logger *slog.Logger

	mu     sync.Mutex
	active bool
}

// NewLineSource wraps r. now stamps each burst; nil uses time.Now.
func NewLineSource(r io.Reader, now func() time.Time, logger *slog.Logger) *LineSource {
	if now == nil {
		now = time.Now
	}
	return &LineSource{
		r:      r,
		now:    now,
		logger: logging.NewComponentLogger(logger, "line-source"),
	}
}

// Subscribe starts reading. A blocked read cannot be interrupted, so after
// unsubscribe the reader goroutine exits on its next line without emitting.
func (s *LineSource) Subscribe(fn func(barcode.Keystroke)) (func(), error) {
	if fn == nil {
		return nil, errors.New("keystroke callback is nil")
	}
	if s.r == nil {
		return nil, errors.New("line source reader is nil")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active {
		return nil, errors.New("line source already subscribed")
	}
	s.active = true

	var stopped atomic.Bool
	go func() {
		scanner := bufio.NewScanner(s.r)
		for scanner.Scan() {
			if stopped.Load() {
				return
			}
			at := s.now()
			for _, key := range splitKeys(scanner.Text()) {
				fn(barcode.Keystroke{Key: key, At: at})
			}
		}
		if err := scanner.Err(); err != nil && !stopped.Load() {
			logging.WarnWithContext(s.logger, "line source read failed", "line_source_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "no further scans are read from this input"),
			)
		}
	}()

	return func() {
		stopped.Store(true)
		s.mu.Lock()
		s.active = false
		s.mu.Unlock()
	}, nil
}

func splitKeys(line string) []string {
	keys := make([]string, 0, len(line)+1)
	for _, r := range line {
		keys = append(keys, string(r))
	}
	return append(keys, "\n")
}
