package keyboard

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"timeclock/internal/barcode"
	"timeclock/internal/logging"
)

// eviocgrab is _IOW('E', 0x90, int).
const eviocgrab = 0x40044590

// inputEventSize is sizeof(struct input_event) on 64-bit Linux.
const inputEventSize = 24

type inputEvent struct {
	Sec   int64
	Usec  int64
	Type  uint16
	Code  uint16
	Value int32
}

func (ev inputEvent) time() time.Time {
	return time.Unix(ev.Sec, ev.Usec*int64(time.Microsecond))
}

func decodeEvent(buf []byte) inputEvent {
	return inputEvent{
		Sec:   int64(binary.NativeEndian.Uint64(buf[0:8])),
		Usec:  int64(binary.NativeEndian.Uint64(buf[8:16])),
		Type:  binary.NativeEndian.Uint16(buf[16:18]),
		Code:  binary.NativeEndian.Uint16(buf[18:20]),
		Value: int32(binary.NativeEndian.Uint32(buf[20:24])),
	}
}

// Device reads key presses from one evdev node.
type Device struct {
	path   string
	grab   bool
	logger *slog.Logger

	// OnClosed runs when the read loop ends on its own, typically because
	// the device was unplugged. It is not called after unsubscribe.
	OnClosed func(err error)

	mu   sync.Mutex
	file *os.File
	done chan struct{}
}

// NewDevice prepares a reader for path. The node is opened on Subscribe.
func NewDevice(path string, grab bool, logger *slog.Logger) *Device {
	return &Device{
		path:   path,
		grab:   grab,
		logger: logging.NewComponentLogger(logger, "scanner"),
	}
}

// Path returns the configured device node.
func (d *Device) Path() string {
	return d.path
}

// Subscribe opens the device and streams translated keystrokes to fn from a
// background goroutine until the returned function is called.
func (d *Device) Subscribe(fn func(barcode.Keystroke)) (func(), error) {
	if fn == nil {
		return nil, errors.New("keystroke callback is nil")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.file != nil {
		return nil, fmt.Errorf("device %s already subscribed", d.path)
	}

	file, err := os.OpenFile(d.path, os.O_RDONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("open scanner device: %w", err)
	}
	if d.grab {
		if err := unix.IoctlSetInt(int(file.Fd()), eviocgrab, 1); err != nil {
			_ = file.Close()
			return nil, fmt.Errorf("grab scanner device: %w", err)
		}
	}
	d.file = file
	done := make(chan struct{})
	d.done = done

	d.logger.Info("scanner device opened",
		logging.String(logging.FieldEventType, "scanner_opened"),
		logging.String("device", d.path),
		logging.Bool("grab", d.grab),
	)

	stopped := make(chan struct{})
	go func() {
		defer close(done)
		err := d.readLoop(file, fn, stopped)
		select {
		case <-stopped:
			return
		default:
		}
		d.mu.Lock()
		if d.file == file {
			d.file = nil
			_ = file.Close()
		}
		d.mu.Unlock()
		if d.OnClosed != nil {
			d.OnClosed(err)
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stopped)
			d.mu.Lock()
			if d.file == file {
				d.file = nil
				_ = file.Close()
			}
			d.mu.Unlock()
			<-done
		})
	}, nil
}

func (d *Device) readLoop(r io.Reader, fn func(barcode.Keystroke), stopped <-chan struct{}) error {
	var tr translator
	buf := make([]byte, inputEventSize*64)
	for {
		n, err := r.Read(buf)
		for off := 0; off+inputEventSize <= n; off += inputEventSize {
			ev := decodeEvent(buf[off : off+inputEventSize])
			key, ok := tr.feed(ev)
			if !ok {
				continue
			}
			select {
			case <-stopped:
				return nil
			default:
			}
			fn(barcode.Keystroke{Key: key, At: ev.time()})
		}
		if err != nil {
			select {
			case <-stopped:
				return nil
			default:
			}
			if errors.Is(err, io.EOF) {
				return err
			}
			d.logger.Warn("scanner read failed",
				logging.Error(err),
				logging.String(logging.FieldEventType, "scanner_read_failed"),
				logging.String(logging.FieldErrorHint, "check that the scanner is still connected"),
				logging.String(logging.FieldImpact, "badge scans are not captured until the device returns"),
				logging.String("device", d.path),
			)
			return err
		}
	}
}
