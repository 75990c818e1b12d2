package engine

import (
	"strings"

	"golang.org/x/text/language"

	"timeclock/internal/attendance"
)

// Badge matching modes.
const (
	MatchByID   = "id"
	MatchByName = "name"
)

// roster is an immutable, display-ordered worker list with lookup indexes.
type roster struct {
	workers    []attendance.Worker
	byID       map[string]int
	byName     map[string]int
	matchField string
}

func newRoster(workers []attendance.Worker, tag language.Tag, matchField string) *roster {
	sorted := attendance.SortByName(workers, tag)
	r := &roster{
		workers:    sorted,
		byID:       make(map[string]int, len(sorted)),
		byName:     make(map[string]int, len(sorted)),
		matchField: matchField,
	}
	for i, w := range sorted {
		if w.ID == "" {
			continue
		}
		if _, dup := r.byID[w.ID]; !dup {
			r.byID[w.ID] = i
		}
		name := foldName(w.Name)
		if _, dup := r.byName[name]; name != "" && !dup {
			r.byName[name] = i
		}
	}
	return r
}

func (r *roster) worker(id string) (attendance.Worker, bool) {
	if r == nil {
		return attendance.Worker{}, false
	}
	idx, ok := r.byID[id]
	if !ok {
		return attendance.Worker{}, false
	}
	return r.workers[idx], true
}

// match resolves a cleaned badge code to a worker.
func (r *roster) match(code string) (attendance.Worker, bool) {
	if r == nil || code == "" {
		return attendance.Worker{}, false
	}
	if r.matchField == MatchByName {
		idx, ok := r.byName[foldName(code)]
		if !ok {
			return attendance.Worker{}, false
		}
		return r.workers[idx], true
	}
	if w, ok := r.worker(code); ok {
		return w, true
	}
	// Numeric badges are often printed with leading zeros the roster lacks.
	if trimmed := strings.TrimLeft(code, "0"); trimmed != code && trimmed != "" {
		return r.worker(trimmed)
	}
	return attendance.Worker{}, false
}

func foldName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

// cleanCode strips scanner framing and surrounding whitespace.
func cleanCode(code, prefix, suffix string) string {
	code = strings.TrimPrefix(code, prefix)
	code = strings.TrimSuffix(code, suffix)
	return strings.TrimSpace(code)
}
