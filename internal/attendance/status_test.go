package attendance_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"timeclock/internal/attendance"
)

func TestResolveStatus(t *testing.T) {
	cases := []struct {
		name    string
		worker  attendance.Worker
		records []attendance.ScanRecord
		want    attendance.PresenceStatus
	}{
		{
			name:   "no records",
			worker: attendance.Worker{ID: "w1", Outcount: true},
			want:   attendance.PresenceStatus{Location: attendance.NotPresent, Outcount: attendance.OutcountNone},
		},
		{
			name:    "in onsite",
			worker:  attendance.Worker{ID: "w1"},
			records: []attendance.ScanRecord{in("w1", at(17, 8, 0))},
			want:    attendance.PresenceStatus{Location: attendance.Onsite},
		},
		{
			name:    "in offsite",
			worker:  attendance.Worker{ID: "w1", Offsite: true},
			records: []attendance.ScanRecord{in("w1", at(17, 8, 0))},
			want:    attendance.PresenceStatus{Location: attendance.Offsite},
		},
		{
			name:    "in with outcount",
			worker:  attendance.Worker{ID: "w1", Outcount: true},
			records: []attendance.ScanRecord{in("w1", at(17, 8, 0))},
			want:    attendance.PresenceStatus{Location: attendance.Onsite, Outcount: attendance.OutcountPending},
		},
		{
			name:    "out with outcount",
			worker:  attendance.Worker{ID: "w1", Outcount: true},
			records: []attendance.ScanRecord{in("w1", at(17, 8, 0)), out("w1", at(17, 9, 0))},
			want:    attendance.PresenceStatus{Location: attendance.NotPresent, Outcount: attendance.OutcountConfirmed},
		},
		{
			name:    "out without outcount",
			worker:  attendance.Worker{ID: "w1"},
			records: []attendance.ScanRecord{out("w1", at(17, 9, 0)), in("w1", at(17, 8, 0))},
			want:    attendance.PresenceStatus{Location: attendance.NotPresent},
		},
		{
			name:   "same timestamp uses sequence",
			worker: attendance.Worker{ID: "w1"},
			records: []attendance.ScanRecord{
				{WorkerID: "w1", TimestampSeconds: 100, Status: attendance.StatusOut, SequenceHint: 2},
				{WorkerID: "w1", TimestampSeconds: 100, Status: attendance.StatusIn, SequenceHint: 1},
			},
			want: attendance.PresenceStatus{Location: attendance.NotPresent},
		},
		{
			name:   "unknown status skipped",
			worker: attendance.Worker{ID: "w1"},
			records: []attendance.ScanRecord{
				in("w1", at(17, 8, 0)),
				{WorkerID: "w1", TimestampSeconds: at(17, 9, 0).Unix(), Status: "bogus"},
			},
			want: attendance.PresenceStatus{Location: attendance.Onsite},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := attendance.ResolveStatus(tc.worker, tc.records)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, got, attendance.ResolveStatus(tc.worker, tc.records))
		})
	}
}

func TestNextStatusToggles(t *testing.T) {
	assert.Equal(t, attendance.StatusIn, attendance.NextStatus("w1", nil))
	assert.Equal(t, attendance.StatusOut, attendance.NextStatus("w1", []attendance.ScanRecord{in("w1", at(17, 8, 0))}))
	assert.Equal(t, attendance.StatusIn, attendance.NextStatus("w1", []attendance.ScanRecord{
		in("w1", at(17, 8, 0)),
		out("w1", at(17, 9, 0)),
	}))
}

func TestParseStatus(t *testing.T) {
	status, ok := attendance.ParseStatus(" in ")
	assert.True(t, ok)
	assert.Equal(t, attendance.StatusIn, status)

	status, ok = attendance.ParseStatus("OUT")
	assert.True(t, ok)
	assert.Equal(t, attendance.StatusOut, status)

	_, ok = attendance.ParseStatus("break")
	assert.False(t, ok)
}
