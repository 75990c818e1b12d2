package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"timeclock/internal/config"
)

const userAgent = "Timeclock-Go/0.1.0"

// Event identifies a notification kind.
type Event string

const (
	EventUnmatchedScan    Event = "unmatched_scan"
	EventSubmitFailed     Event = "submit_failed"
	EventScannerAttached  Event = "scanner_attached"
	EventScannerDetached  Event = "scanner_detached"
	EventPendingSynced    Event = "pending_synced"
	EventTestNotification Event = "test"
)

// Payload carries event-specific values keyed by name.
type Payload map[string]any

// Service defines the notification surface exposed to kiosk components.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint:       topic,
		client:         &http.Client{Timeout: timeout},
		unmatchedScans: cfg.Notifications.UnmatchedScans,
		submitFailures: cfg.Notifications.SubmitFailures,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint       string
	client         *http.Client
	unmatchedScans bool
	submitFailures bool
}

func (n *ntfyService) Publish(ctx context.Context, event Event, data Payload) error {
	if n == nil {
		return nil
	}
	msg, ok := n.format(event, data)
	if !ok {
		return nil
	}
	return n.send(ctx, msg)
}

func (n *ntfyService) format(event Event, data Payload) (payload, bool) {
	switch event {
	case EventUnmatchedScan:
		if !n.unmatchedScans {
			return payload{}, false
		}
		return payload{
			title:   "Timeclock - Unknown Badge",
			message: fmt.Sprintf("Scanned code %q matched no worker", stringValue(data, "code")),
			tags:    []string{"timeclock", "scan", "unmatched"},
		}, true
	case EventSubmitFailed:
		if !n.submitFailures {
			return payload{}, false
		}
		message := fmt.Sprintf("Could not record %s for %s", stringValue(data, "status"), workerLabel(data))
		if reason := stringValue(data, "error"); reason != "" {
			message = fmt.Sprintf("%s: %s", message, reason)
		}
		return payload{
			title:    "Timeclock - Submit Failed",
			message:  message + "\nKept locally as pending",
			tags:     []string{"timeclock", "backend", "error"},
			priority: "high",
		}, true
	case EventScannerAttached:
		return payload{
			title:   "Timeclock - Scanner Connected",
			message: fmt.Sprintf("Badge scanner ready: %s", stringValue(data, "device")),
			tags:    []string{"timeclock", "scanner", "attached"},
		}, true
	case EventScannerDetached:
		return payload{
			title:    "Timeclock - Scanner Disconnected",
			message:  fmt.Sprintf("Badge scanner removed: %s", stringValue(data, "device")),
			tags:     []string{"timeclock", "scanner", "detached"},
			priority: "high",
		}, true
	case EventPendingSynced:
		return payload{
			title:   "Timeclock - Sync Complete",
			message: fmt.Sprintf("Submitted %v pending scans, %v still pending", data["submitted"], data["remaining"]),
			tags:    []string{"timeclock", "backend", "sync"},
		}, true
	case EventTestNotification:
		return payload{
			title:    "Timeclock - Test",
			message:  "Notification system test",
			tags:     []string{"timeclock", "test"},
			priority: "low",
		}, true
	default:
		return payload{}, false
	}
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func stringValue(data Payload, key string) string {
	if data == nil {
		return ""
	}
	switch v := data[key].(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case fmt.Stringer:
		return strings.TrimSpace(v.String())
	case error:
		return strings.TrimSpace(v.Error())
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

func workerLabel(data Payload) string {
	name := stringValue(data, "worker_name")
	id := stringValue(data, "worker_id")
	switch {
	case name != "" && id != "":
		return fmt.Sprintf("%s (%s)", name, id)
	case name != "":
		return name
	case id != "":
		return id
	default:
		return "unknown worker"
	}
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
