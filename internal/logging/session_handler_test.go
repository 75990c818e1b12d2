package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestSessionIDHandler(t *testing.T) {
	var buf bytes.Buffer
	handler := newSessionIDHandler(slog.NewJSONHandler(&buf, nil), "kiosk-session-1")

	slog.New(handler).With("extra", "value").WithGroup("scan").Info("test message", "status", "In")

	output := buf.String()
	if !strings.Contains(output, `"session_id":"kiosk-session-1"`) {
		t.Errorf("expected session_id in output, got: %s", output)
	}
	if !strings.Contains(output, `"extra":"value"`) {
		t.Errorf("expected extra attr in output, got: %s", output)
	}
}

func TestSessionIDHandlerNilBase(t *testing.T) {
	if _, ok := newSessionIDHandler(nil, "x").(NoopHandler); !ok {
		t.Error("expected NoopHandler when base is nil")
	}
}

func TestSelectInfoFieldsHidesDebugKeys(t *testing.T) {
	attrs := []kv{
		{key: "correlation_id", value: slog.StringValue("abc")},
		{key: "status", value: slog.StringValue("Out")},
		{key: "event_type", value: slog.StringValue("scan_recorded")},
	}

	fields, hidden := selectInfoFields(attrs, false)
	if hidden != 1 {
		t.Fatalf("hidden = %d, want 1", hidden)
	}
	if len(fields) != 2 || fields[0].label != "Event" || fields[1].label != "Status" {
		t.Fatalf("unexpected fields %#v", fields)
	}

	fields, hidden = selectInfoFields(attrs, true)
	if hidden != 0 || len(fields) != 3 {
		t.Fatalf("debug should show all fields, got %d hidden %d", len(fields), hidden)
	}
}
