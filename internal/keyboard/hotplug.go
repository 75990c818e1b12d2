package keyboard

import (
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pilebones/go-udev/netlink"

	"timeclock/internal/barcode"
	"timeclock/internal/logging"
)

// HotplugSource keeps a scanner subscription alive across unplug and replug
// by watching udev input events and reopening the device node.
type HotplugSource struct {
	path   string
	grab   bool
	logger *slog.Logger

	// OnChange reports the scanner appearing or disappearing. It runs on a
	// monitor goroutine.
	OnChange func(device string, attached bool)

	mu       sync.Mutex
	fn       func(barcode.Keystroke)
	devnode  string
	unsubDev func()
	conn     *netlink.UEventConn
	quit     chan struct{}
	running  bool
}

// NewHotplugSource watches path, which may be a stable /dev/input/by-id link.
func NewHotplugSource(path string, grab bool, logger *slog.Logger) *HotplugSource {
	return &HotplugSource{
		path:   strings.TrimSpace(path),
		grab:   grab,
		logger: logging.NewComponentLogger(logger, "scanner-monitor"),
	}
}

// Subscribe opens the scanner if present and starts the udev monitor. A
// missing scanner is not an error; it is opened once udev announces it.
func (h *HotplugSource) Subscribe(fn func(barcode.Keystroke)) (func(), error) {
	if fn == nil {
		return nil, errors.New("keystroke callback is nil")
	}
	if h.path == "" {
		return nil, errors.New("scanner device path is empty")
	}

	h.mu.Lock()
	if h.running {
		h.mu.Unlock()
		return nil, errors.New("scanner monitor already subscribed")
	}
	h.fn = fn
	h.running = true
	h.startMonitorLocked()
	h.mu.Unlock()

	h.open()

	var once sync.Once
	return func() { once.Do(h.stop) }, nil
}

// Attached reports whether the device node is currently open.
func (h *HotplugSource) Attached() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.unsubDev != nil
}

func (h *HotplugSource) startMonitorLocked() {
	conn := new(netlink.UEventConn)
	if err := conn.Connect(netlink.UdevEvent); err != nil {
		h.logger.Warn("failed to connect to netlink socket; scanner replug will not be detected",
			logging.Error(err),
			logging.String(logging.FieldEventType, "netlink_connect_failed"),
			logging.String(logging.FieldErrorHint, "ensure the daemon has permission to access netlink sockets"),
			logging.String(logging.FieldImpact, "restart the daemon after reconnecting the scanner"),
		)
		return
	}
	h.conn = conn
	h.quit = make(chan struct{})
	go h.monitorLoop(conn, h.quit)

	h.logger.Info("scanner monitor started",
		logging.String(logging.FieldEventType, "scanner_monitor_started"),
		logging.String("device", h.path),
	)
}

func (h *HotplugSource) stop() {
	h.mu.Lock()
	if !h.running {
		h.mu.Unlock()
		return
	}
	h.running = false
	if h.quit != nil {
		close(h.quit)
		h.quit = nil
	}
	if h.conn != nil {
		_ = h.conn.Close()
		h.conn = nil
	}
	unsub := h.unsubDev
	h.unsubDev = nil
	h.devnode = ""
	h.mu.Unlock()

	if unsub != nil {
		unsub()
	}
	h.logger.Info("scanner monitor stopped",
		logging.String(logging.FieldEventType, "scanner_monitor_stopped"),
	)
}

func (h *HotplugSource) monitorLoop(conn *netlink.UEventConn, quit <-chan struct{}) {
	queue := make(chan netlink.UEvent)
	errs := make(chan error)
	monitorQuit := conn.Monitor(queue, errs, buildInputMatcher())

	for {
		select {
		case <-quit:
			close(monitorQuit)
			return
		case uevent := <-queue:
			h.handleEvent(uevent)
		case err := <-errs:
			h.logger.Warn("netlink monitor error",
				logging.Error(err),
				logging.String(logging.FieldEventType, "netlink_monitor_error"),
				logging.String(logging.FieldErrorHint, "check kernel netlink subsystem"),
				logging.String(logging.FieldImpact, "scanner replug may be missed"),
			)
		}
	}
}

// buildInputMatcher matches add and remove events for input device nodes.
func buildInputMatcher() netlink.Matcher {
	action := "add|remove"
	rules := &netlink.RuleDefinitions{}
	rules.AddRule(netlink.RuleDefinition{
		Action: &action,
		Env: map[string]string{
			"SUBSYSTEM": "input",
			"DEVNAME":   "/dev/input/event.*",
		},
	})
	return rules
}

func (h *HotplugSource) handleEvent(uevent netlink.UEvent) {
	devname := uevent.Env["DEVNAME"]
	if devname == "" {
		return
	}
	switch uevent.Action {
	case netlink.ADD:
		if h.resolve() != devname {
			h.logger.Debug("ignoring input device", logging.String("device", devname))
			return
		}
		h.open()
	case netlink.REMOVE:
		h.mu.Lock()
		current := h.devnode
		h.mu.Unlock()
		if current == devname {
			h.detach(devname)
		}
	}
}

func (h *HotplugSource) resolve() string {
	resolved, err := filepath.EvalSymlinks(h.path)
	if err != nil {
		return ""
	}
	return resolved
}

func (h *HotplugSource) open() {
	h.mu.Lock()
	if !h.running || h.unsubDev != nil {
		h.mu.Unlock()
		return
	}
	fn := h.fn
	h.mu.Unlock()

	devnode := h.resolve()
	if devnode == "" {
		h.logger.Info("scanner not present; waiting for hotplug",
			logging.String(logging.FieldEventType, "scanner_absent"),
			logging.String("device", h.path),
		)
		return
	}

	dev := NewDevice(devnode, h.grab, h.logger)
	dev.OnClosed = func(error) { h.detach(devnode) }
	unsub, err := dev.Subscribe(fn)
	if err != nil {
		logging.WarnWithContext(h.logger, "failed to open scanner", "scanner_open_failed",
			logging.Error(err),
			logging.String("device", devnode),
			logging.String(logging.FieldErrorHint, "check permissions on the input device (input group)"),
			logging.String(logging.FieldImpact, "badge scans are not captured"),
		)
		return
	}

	h.mu.Lock()
	if !h.running || h.unsubDev != nil {
		h.mu.Unlock()
		unsub()
		return
	}
	h.unsubDev = unsub
	h.devnode = devnode
	notify := h.OnChange
	h.mu.Unlock()

	if notify != nil {
		notify(devnode, true)
	}
}

func (h *HotplugSource) detach(devnode string) {
	h.mu.Lock()
	if h.devnode != devnode || h.unsubDev == nil {
		h.mu.Unlock()
		return
	}
	unsub := h.unsubDev
	h.unsubDev = nil
	h.devnode = ""
	notify := h.OnChange
	h.mu.Unlock()

	// unsub blocks on the read goroutine, which may be the caller.
	go unsub()

	h.logger.Info("scanner detached",
		logging.String(logging.FieldEventType, "scanner_detached"),
		logging.String("device", devnode),
	)
	if notify != nil {
		notify(devnode, false)
	}
}
