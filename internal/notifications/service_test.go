package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"timeclock/internal/config"
	"timeclock/internal/notifications"
)

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	if err := svc.Publish(context.Background(), notifications.EventUnmatchedScan, notifications.Payload{"code": "123"}); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestNtfyServiceFormatsPayloads(t *testing.T) {
	tests := []struct {
		name           string
		event          notifications.Event
		payload        notifications.Payload
		expectTitle    string
		expectMessage  string
		expectTags     string
		expectPriority string
	}{
		{
			name:          "unmatched scan",
			event:         notifications.EventUnmatchedScan,
			payload:       notifications.Payload{"code": "99999"},
			expectTitle:   "Timeclock - Unknown Badge",
			expectMessage: `Scanned code "99999" matched no worker`,
			expectTags:    "timeclock,scan,unmatched",
		},
		{
			name:  "submit failed",
			event: notifications.EventSubmitFailed,
			payload: notifications.Payload{
				"worker_id":   "1234",
				"worker_name": "Ada Lovelace",
				"status":      "In",
				"error":       errors.New("backend: unavailable"),
			},
			expectTitle:    "Timeclock - Submit Failed",
			expectMessage:  "Could not record In for Ada Lovelace (1234): backend: unavailable\nKept locally as pending",
			expectTags:     "timeclock,backend,error",
			expectPriority: "high",
		},
		{
			name:           "scanner detached",
			event:          notifications.EventScannerDetached,
			payload:        notifications.Payload{"device": "/dev/input/event5"},
			expectTitle:    "Timeclock - Scanner Disconnected",
			expectMessage:  "Badge scanner removed: /dev/input/event5",
			expectTags:     "timeclock,scanner,detached",
			expectPriority: "high",
		},
		{
			name:          "pending synced",
			event:         notifications.EventPendingSynced,
			payload:       notifications.Payload{"submitted": 3, "remaining": 0},
			expectTitle:   "Timeclock - Sync Complete",
			expectMessage: "Submitted 3 pending scans, 0 still pending",
			expectTags:    "timeclock,backend,sync",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var captured struct {
				title    string
				tags     string
				priority string
				body     string
			}

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost {
					t.Errorf("unexpected method: %s", r.Method)
				}
				captured.title = r.Header.Get("Title")
				captured.tags = r.Header.Get("Tags")
				captured.priority = r.Header.Get("Priority")
				body, err := io.ReadAll(r.Body)
				if err != nil {
					t.Errorf("read body: %v", err)
				}
				captured.body = string(body)
				_ = r.Body.Close()
				w.WriteHeader(http.StatusOK)
			}))
			defer server.Close()

			cfg := config.Default()
			cfg.Notifications.NtfyTopic = server.URL
			cfg.Notifications.RequestTimeout = 5

			svc := notifications.NewService(&cfg)
			if err := svc.Publish(context.Background(), tc.event, tc.payload); err != nil {
				t.Fatalf("notification returned error: %v", err)
			}

			if captured.title != tc.expectTitle {
				t.Fatalf("expected title %q, got %q", tc.expectTitle, captured.title)
			}
			if captured.body != tc.expectMessage {
				t.Fatalf("expected message %q, got %q", tc.expectMessage, captured.body)
			}
			if captured.tags != tc.expectTags {
				t.Fatalf("expected tags %q, got %q", tc.expectTags, captured.tags)
			}
			if captured.priority != tc.expectPriority {
				t.Fatalf("expected priority %q, got %q", tc.expectPriority, captured.priority)
			}
		})
	}
}

func TestNtfyServiceHonoursMutedEvents(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected call for muted event: %s", r.Header.Get("Title"))
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	cfg.Notifications.UnmatchedScans = false
	cfg.Notifications.SubmitFailures = false

	svc := notifications.NewService(&cfg)
	for _, event := range []notifications.Event{
		notifications.EventUnmatchedScan,
		notifications.EventSubmitFailed,
		notifications.Event("unknown"),
	} {
		if err := svc.Publish(context.Background(), event, notifications.Payload{"code": "ignored"}); err != nil {
			t.Fatalf("expected no error for muted event %s, got %v", event, err)
		}
	}
}

func TestNtfyServiceReportsHTTPFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "topic forbidden", http.StatusForbidden)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL

	svc := notifications.NewService(&cfg)
	if err := svc.Publish(context.Background(), notifications.EventTestNotification, nil); err == nil {
		t.Fatal("expected error for 403 response")
	}
}
