package daemon

import (
	"context"
	"os"
	"time"

	"timeclock/internal/barcode"
	"timeclock/internal/keyboard"
	"timeclock/internal/logging"
	"timeclock/internal/notifications"
)

const (
	scannerEvdev  = "evdev"
	scannerStdin  = "stdin"
	scannerNone   = "none"
	scannerCustom = "custom"
)

// keySource picks the peripheral named by scanner.source.
func (d *Daemon) keySource() (barcode.KeySource, string) {
	if d.keysSet {
		if d.keys == nil {
			return nil, scannerNone
		}
		return d.keys, scannerCustom
	}
	switch d.cfg.Scanner.Source {
	case scannerEvdev:
		if d.cfg.Scanner.Device == "" {
			logging.WarnWithContext(d.logger, "scanner.device is empty; badge scanner disabled", "scanner_unconfigured",
				logging.String(logging.FieldErrorHint, "set scanner.device to the /dev/input/by-id link of the scanner"),
				logging.String(logging.FieldImpact, "only roster selections record attendance"),
			)
			return nil, scannerNone
		}
		src := keyboard.NewHotplugSource(d.cfg.Scanner.Device, d.cfg.Scanner.Grab, d.logger)
		src.OnChange = d.onScannerChange
		return src, scannerEvdev
	case scannerStdin:
		return keyboard.NewLineSource(os.Stdin, time.Now, d.logger), scannerStdin
	default:
		return nil, scannerNone
	}
}

func (d *Daemon) attachScanner() {
	src, kind := d.keySource()
	d.mu.Lock()
	d.scannerSource = kind
	d.mu.Unlock()
	if src == nil {
		return
	}

	var err error
	if doErr := d.loop.Do(d.ctx, func() { err = d.engine.AttachScanner(src) }); doErr != nil {
		err = doErr
	}
	if err != nil {
		logging.WarnWithContext(d.logger, "failed to attach scanner", "scanner_attach_failed",
			logging.Error(err),
			logging.String("source", kind),
			logging.String(logging.FieldErrorHint, "check scanner.device and input permissions"),
			logging.String(logging.FieldImpact, "badge scans are not captured"),
		)
		return
	}
	if kind != scannerEvdev {
		d.setScannerAttached(true)
	}
}

// onScannerChange runs on the udev monitor goroutine, or on the engine loop
// for the initial open, so the notification is sent in the background.
func (d *Daemon) onScannerChange(device string, attached bool) {
	d.setScannerAttached(attached)
	event := notifications.EventScannerDetached
	if attached {
		event = notifications.EventScannerAttached
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		d.publish(ctx, event, notifications.Payload{"device": device})
	}()
}

func (d *Daemon) setScannerAttached(attached bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.scannerAttached = attached
}
