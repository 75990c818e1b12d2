package attendance

import (
	"slices"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// SortByName orders workers by display name using locale-aware collation,
// falling back to id for equal names. The input is not modified.
func SortByName(workers []Worker, tag language.Tag) []Worker {
	sorted := slices.Clone(workers)
	col := collate.New(tag, collate.IgnoreCase)
	slices.SortStableFunc(sorted, func(a, b Worker) int {
		if c := col.CompareString(a.Name, b.Name); c != 0 {
			return c
		}
		return col.CompareString(a.ID, b.ID)
	})
	return sorted
}
