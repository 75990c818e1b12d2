package backend

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"timeclock/internal/attendance"
)

// Column names used by the Grist document.
const (
	fieldWorkerID      = "mdoc"
	fieldName          = "name"
	fieldOffsite       = "offsite"
	fieldOutcount      = "outcount"
	fieldMonthHours    = "curr_month_hours"
	fieldPrevWeekHours = "prev_week_hours"
	fieldScanDatetime  = "scan_datetime"
	fieldStatus        = "status"
	fieldChangedBy     = "changed_by"
	fieldManualSort    = "manualSort"
	fieldScanType      = "scan_type"
)

func decodeWorker(fields map[string]any) attendance.Worker {
	return attendance.Worker{
		ID:                asString(fields[fieldWorkerID]),
		Name:              asString(fields[fieldName]),
		Offsite:           asBool(fields[fieldOffsite]),
		Outcount:          asBool(fields[fieldOutcount]),
		CurrentMonthHours: asFloat(fields[fieldMonthHours]),
		PreviousWeekHours: asFloat(fields[fieldPrevWeekHours]),
	}
}

func decodeScanRecord(fields map[string]any) (attendance.ScanRecord, bool) {
	status, ok := attendance.ParseStatus(asString(fields[fieldStatus]))
	if !ok {
		return attendance.ScanRecord{}, false
	}
	rec := attendance.ScanRecord{
		WorkerID:         asString(fields[fieldWorkerID]),
		TimestampSeconds: asInt64(fields[fieldScanDatetime]),
		Status:           status,
		Source:           asString(fields[fieldChangedBy]),
		SequenceHint:     asInt64(fields[fieldManualSort]),
	}
	if rec.WorkerID == "" {
		return attendance.ScanRecord{}, false
	}
	return rec, true
}

func encodeScanRecord(rec attendance.ScanRecord) map[string]any {
	return map[string]any{
		fieldWorkerID:     rec.WorkerID,
		fieldScanDatetime: rec.TimestampSeconds,
		fieldStatus:       string(rec.Status),
		fieldChangedBy:    rec.Source,
		fieldManualSort:   rec.SequenceHint,
		fieldScanType:     defaultScanType,
	}
}

func asString(value any) string {
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v)
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return strconv.FormatInt(i, 10)
		}
		if f, err := v.Float64(); err == nil && f == math.Trunc(f) {
			return strconv.FormatInt(int64(f), 10)
		}
		return v.String()
	case float64:
		if v == math.Trunc(v) {
			return strconv.FormatInt(int64(v), 10)
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}

func asBool(value any) bool {
	switch v := value.(type) {
	case bool:
		return v
	case json.Number:
		f, err := v.Float64()
		return err == nil && f != 0
	case float64:
		return v != 0
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(v))
		return err == nil && parsed
	default:
		return false
	}
}

func asFloat(value any) float64 {
	switch v := value.(type) {
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0
		}
		return f
	case float64:
		return v
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

func asInt64(value any) int64 {
	switch v := value.(type) {
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return i
		}
		f, err := v.Float64()
		if err != nil {
			return 0
		}
		return int64(math.Floor(f))
	case float64:
		return int64(math.Floor(v))
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return 0
		}
		return i
	default:
		return 0
	}
}
