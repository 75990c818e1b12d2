package main

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"testing"

	"timeclock/internal/attendance"
	"timeclock/internal/daemonctl"
)

func TestRenderStatusLineNoColor(t *testing.T) {
	got := renderStatusLine("Daemon", statusError, "not running", false)
	want := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, "Daemon:", "[ERROR] not running")
	if got != want {
		t.Fatalf("renderStatusLine mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestRenderStatusLineWithColor(t *testing.T) {
	got := renderStatusLine("Daemon", statusOK, "running", true)
	if !strings.HasPrefix(got, ansiGreen) {
		t.Fatalf("expected green prefix, got %q", got)
	}
	if !strings.HasSuffix(got, ansiReset) {
		t.Fatalf("expected reset suffix, got %q", got)
	}
}

func TestStatusKindFromCheck(t *testing.T) {
	cases := map[string]statusKind{
		daemonctl.KindOK:    statusOK,
		daemonctl.KindWarn:  statusWarn,
		daemonctl.KindError: statusError,
		daemonctl.KindInfo:  statusInfo,
		"":                  statusInfo,
	}
	for kind, want := range cases {
		if got := statusKindFromCheck(kind); got != want {
			t.Fatalf("statusKindFromCheck(%q) = %v, want %v", kind, got, want)
		}
	}
}

func TestPresenceLabel(t *testing.T) {
	cases := []struct {
		status attendance.PresenceStatus
		want   string
	}{
		{attendance.PresenceStatus{Location: attendance.Onsite}, "In"},
		{attendance.PresenceStatus{Location: attendance.NotPresent}, "Out"},
		{attendance.PresenceStatus{Location: attendance.Offsite}, "Offsite"},
		{attendance.PresenceStatus{Location: attendance.Onsite, Outcount: attendance.OutcountPending}, "In (outcount pending)"},
		{attendance.PresenceStatus{Location: attendance.Offsite, Outcount: attendance.OutcountConfirmed}, "Offsite (outcount)"},
	}
	for _, tc := range cases {
		if got := presenceLabel(tc.status); got != tc.want {
			t.Fatalf("presenceLabel(%+v) = %q, want %q", tc.status, got, tc.want)
		}
	}
}

func TestFormatHoursAndDayHeader(t *testing.T) {
	if got := formatHours(7.25); got != "7.2" && got != "7.3" {
		t.Fatalf("formatHours = %q", got)
	}
	if got := formatHours(0); got != "0.0" {
		t.Fatalf("formatHours(0) = %q", got)
	}
	if got := dayHeader("2024-03-07"); got != "Thu 03/07" {
		t.Fatalf("dayHeader = %q", got)
	}
	if got := dayHeader("bogus"); got != "bogus" {
		t.Fatalf("dayHeader passthrough = %q", got)
	}
}

func TestShouldColorizeNonFile(t *testing.T) {
	if shouldColorize(io.Discard) {
		t.Fatalf("expected non-file writer to disable color")
	}
}

func TestRenderChecks(t *testing.T) {
	var buf bytes.Buffer
	renderChecks(&buf, []daemonctl.StatusLine{
		{Label: "Daemon", Kind: daemonctl.KindOK, Message: "running (pid 7)"},
		{Label: "Scanner", Kind: daemonctl.KindWarn, Message: "disabled"},
	}, false)
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %q", buf.String())
	}
	if !strings.Contains(lines[0], "[OK] running (pid 7)") || !strings.Contains(lines[1], "[WARN] disabled") {
		t.Fatalf("unexpected check lines %q", lines)
	}
}

func TestTableSpecFooter(t *testing.T) {
	out := tableSpec{
		Headers: []string{"Name", "Total"},
		Rows:    [][]string{{"Zed Adams", "3.0"}, {"Mia Chen"}},
		Aligns:  []columnAlignment{alignLeft, alignRight},
		Footer:  []string{"All", "3.0"},
	}.Render()
	for _, want := range []string{"Zed Adams", "Mia Chen", "3.0"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected table to contain %q:\n%s", want, out)
		}
	}
	if !strings.Contains(strings.ToUpper(out), "ALL") {
		t.Fatalf("expected footer row:\n%s", out)
	}
	if renderTable(nil, nil, nil) != "" {
		t.Fatal("expected empty table without headers")
	}
}
