package dashboard

import (
	"testing"

	"painel/internal/core"
)

func ids(entries []core.Entry) string {
	out := ""
	for _, e := range entries {
		out += e.ID
	}
	return out
}

func TestSortToggle(t *testing.T) {
	s := DefaultSort()
	steps := []SortSpec{
		{Col: ColDate, Dir: SortDesc},
		{Col: ColDate},
		{Col: ColDate, Dir: SortAsc},
	}
	for i, want := range steps {
		s = s.Toggle(ColDate)
		if s != want {
			t.Fatalf("step %d: got %+v, want %+v", i, s, want)
		}
	}
	if got := s.Toggle(ColValue); got != (SortSpec{Col: ColValue, Dir: SortAsc}) {
		t.Fatalf("switching column: got %+v", got)
	}
	if (SortSpec{Col: ColDate}).Active() || (SortSpec{Col: "x", Dir: SortAsc}).Active() {
		t.Fatal("unexpected active spec")
	}
}

func TestSortEntries(t *testing.T) {
	s := core.NewSnapshot(
		[]core.Account{{ID: "a1", Name: "Nubank"}, {ID: "a2", Name: "Caixa"}},
		[]core.Category{{ID: "in", Name: "Salário", Group: core.GroupEntrada}, {ID: "out", Name: "Mercado", Group: core.GroupSaida}},
		nil,
		nil,
	)
	entries := []core.Entry{
		{ID: "1", Date: "2024-01-03", CategoryID: "in", AccountID: "a1", Description: "zebra", Value: core.Cents(500)},
		{ID: "2", Date: "2024-01-01", CategoryID: "out", AccountID: "a2", Description: "ábaco", Value: core.Cents(100)},
		{ID: "3", Date: "2024-01-02", CategoryID: "out", AccountID: "a1", Description: "Abelha", Value: core.Cents(300)},
	}

	cases := []struct {
		spec SortSpec
		want string
	}{
		{SortSpec{Col: ColDate, Dir: SortAsc}, "231"},
		{SortSpec{Col: ColDate, Dir: SortDesc}, "132"},
		{SortSpec{Col: ColDescription, Dir: SortAsc}, "231"},
		{SortSpec{Col: ColCategory, Dir: SortAsc}, "231"},
		{SortSpec{Col: ColAccount, Dir: SortAsc}, "213"},
		{SortSpec{Col: ColValue, Dir: SortAsc}, "321"},
		{SortSpec{Col: ColValue, Dir: SortDesc}, "123"},
		{SortSpec{Col: ColValue}, "123"},
	}
	for _, tc := range cases {
		got := SortEntries(entries, s, tc.spec)
		if ids(got) != tc.want {
			t.Errorf("%+v: got %s, want %s", tc.spec, ids(got), tc.want)
		}
	}
	if ids(entries) != "123" {
		t.Fatal("input slice was modified")
	}
}

func TestSortEntriesIsStable(t *testing.T) {
	entries := []core.Entry{
		{ID: "a", Date: "2024-01-01"},
		{ID: "b", Date: "2024-01-01"},
		{ID: "c", Date: "2024-01-01"},
	}
	got := SortEntries(entries, core.EmptySnapshot(), SortSpec{Col: ColDate, Dir: SortDesc})
	if ids(got) != "abc" {
		t.Fatalf("equal keys reordered: %s", ids(got))
	}
}
