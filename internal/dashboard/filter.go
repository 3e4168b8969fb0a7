// Package dashboard derives the dashboard views (KPIs, daily series, the
// sorted entry table and the metric registry) from an immutable snapshot.
// Every function here is pure: inputs are never modified.
package dashboard

import (
	"strings"

	"painel/internal/core"
)

// TableFilter narrows the entry table. SubcategoryID only applies together
// with CategoryID.
type TableFilter struct {
	Search        string `json:"search,omitempty"`
	CategoryID    string `json:"categoryId,omitempty"`
	SubcategoryID string `json:"subcategoryId,omitempty"`
}

// EntriesInRange returns the entries whose calendar day lies inside r.
// Without a range (or without a start day) the input is returned as is.
// Entries with a missing or unparseable date never match an active range.
func EntriesInRange(entries []core.Entry, r *core.DateRange) []core.Entry {
	if _, _, ok := r.Bounds(); !ok {
		return entries
	}
	out := make([]core.Entry, 0, len(entries))
	for _, e := range entries {
		d, ok := e.Day()
		if !ok {
			continue
		}
		if r.Contains(d) {
			out = append(out, e)
		}
	}
	return out
}

// FilterEntries applies the free text search and the category filters.
// The search is a case-insensitive substring match over category,
// subcategory and account names and the description.
func FilterEntries(s *core.Snapshot, entries []core.Entry, f TableFilter) []core.Entry {
	q := strings.ToLower(strings.TrimSpace(f.Search))
	if q == "" && f.CategoryID == "" {
		return entries
	}
	out := make([]core.Entry, 0, len(entries))
	for _, e := range entries {
		if q != "" && !matchesSearch(s, e, q) {
			continue
		}
		if f.CategoryID != "" {
			if e.CategoryID != f.CategoryID {
				continue
			}
			if f.SubcategoryID != "" && e.SubcategoryID != f.SubcategoryID {
				continue
			}
		}
		out = append(out, e)
	}
	return out
}

func matchesSearch(s *core.Snapshot, e core.Entry, q string) bool {
	for _, field := range []string{
		s.CategoryName(e.CategoryID),
		s.SubcategoryName(e.SubcategoryID),
		s.AccountName(e.AccountID),
		e.Description,
	} {
		if strings.Contains(strings.ToLower(field), q) {
			return true
		}
	}
	return false
}
