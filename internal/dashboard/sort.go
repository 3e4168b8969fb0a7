package dashboard

import (
	"cmp"
	"slices"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"painel/internal/core"
)

const (
	SortAsc  SortDir = "asc"
	SortDesc SortDir = "desc"

	ColDate        SortColumn = "date"
	ColCategory    SortColumn = "category"
	ColSubcategory SortColumn = "subcategory"
	ColAccount     SortColumn = "account"
	ColDescription SortColumn = "description"
	ColValue       SortColumn = "value"
)

type (
	// SortDir is "asc", "desc" or empty for the unsorted state.
	SortDir string

	SortColumn string

	SortSpec struct {
		Col SortColumn `json:"col"`
		Dir SortDir    `json:"dir,omitempty"`
	}
)

// DefaultSort is the initial table order.
func DefaultSort() SortSpec {
	return SortSpec{Col: ColDate, Dir: SortAsc}
}

func (c SortColumn) Valid() bool {
	switch c {
	case ColDate, ColCategory, ColSubcategory, ColAccount, ColDescription, ColValue:
		return true
	}
	return false
}

// Toggle is a header click: the same column cycles asc, desc, unsorted;
// another column starts at asc.
func (s SortSpec) Toggle(col SortColumn) SortSpec {
	if s.Col != col {
		return SortSpec{Col: col, Dir: SortAsc}
	}
	switch s.Dir {
	case SortAsc:
		return SortSpec{Col: col, Dir: SortDesc}
	case SortDesc:
		return SortSpec{Col: col}
	default:
		return SortSpec{Col: col, Dir: SortAsc}
	}
}

// Active reports whether the spec orders anything.
func (s SortSpec) Active() bool {
	return s.Col.Valid() && (s.Dir == SortAsc || s.Dir == SortDesc)
}

// SortEntries returns a sorted copy of entries. Names are resolved through
// the snapshot and compared with pt-BR collation. An inactive spec returns
// the input order.
func SortEntries(entries []core.Entry, s *core.Snapshot, spec SortSpec) []core.Entry {
	if !spec.Active() {
		return entries
	}
	out := make([]core.Entry, len(entries))
	copy(out, entries)

	col := collate.New(language.BrazilianPortuguese)
	compare := func(a, b core.Entry) int {
		switch spec.Col {
		case ColDate:
			return cmp.Compare(a.Date, b.Date)
		case ColCategory:
			return col.CompareString(s.CategoryName(a.CategoryID), s.CategoryName(b.CategoryID))
		case ColSubcategory:
			return col.CompareString(s.SubcategoryName(a.SubcategoryID), s.SubcategoryName(b.SubcategoryID))
		case ColAccount:
			return col.CompareString(s.AccountName(a.AccountID), s.AccountName(b.AccountID))
		case ColDescription:
			return col.CompareString(a.Description, b.Description)
		case ColValue:
			return cmp.Compare(s.SignedValue(a).Cents, s.SignedValue(b).Cents)
		}
		return 0
	}
	dir := 1
	if spec.Dir == SortDesc {
		dir = -1
	}
	slices.SortStableFunc(out, func(a, b core.Entry) int {
		return compare(a, b) * dir
	})
	return out
}
