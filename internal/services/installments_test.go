package services

import (
	"errors"
	"strconv"
	"testing"

	"painel/internal/core"
)

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return strconv.Itoa(n)
	}
}

func TestExpandInstallments(t *testing.T) {
	e := core.Entry{Date: "2024-01-31", Description: "Curso", Value: core.Cents(1000), Status: core.StatusPaid}

	cases := []struct {
		n     int
		dates []string
		descs []string
	}{
		{1, []string{"2024-01-31"}, []string{"Curso"}},
		{2, []string{"2024-01-31", "2024-03-02"}, []string{"Curso (1/2)", "Curso (2/2)"}},
	}
	for _, tc := range cases {
		got, err := ExpandInstallments(e, tc.n, sequentialIDs())
		if err != nil {
			t.Fatalf("n=%d: %v", tc.n, err)
		}
		if len(got) != tc.n {
			t.Fatalf("n=%d: got %d entries", tc.n, len(got))
		}
		for i := range got {
			if got[i].Date != tc.dates[i] || got[i].Description != tc.descs[i] {
				t.Errorf("n=%d sibling %d: %s %q", tc.n, i, got[i].Date, got[i].Description)
			}
			if got[i].Value != e.Value {
				t.Errorf("value changed on sibling %d", i)
			}
		}
	}
}

func TestExpandInstallmentsPendingInput(t *testing.T) {
	e := core.Entry{Date: "2024-12-10", Status: core.StatusPending}
	got, err := ExpandInstallments(e, 3, sequentialIDs())
	if err != nil {
		t.Fatal(err)
	}
	for _, s := range got {
		if s.Status != core.StatusPending {
			t.Fatal("every sibling of a pending entry is pending")
		}
	}
	if got[2].Date != "2025-02-10" || got[2].YearMonth != "2025-02" {
		t.Fatalf("year rollover: %+v", got[2])
	}
}

func TestExpandInstallmentsErrors(t *testing.T) {
	e := core.Entry{Date: "2024-01-01"}
	for _, n := range []int{-1, core.MaxInstallments + 1} {
		if _, err := ExpandInstallments(e, n, sequentialIDs()); !errors.Is(err, core.ErrInvalidInstalment) {
			t.Fatalf("n=%d: %v", n, err)
		}
	}
	if _, err := ExpandInstallments(core.Entry{Date: "x"}, 2, sequentialIDs()); !errors.Is(err, core.ErrInvalidDate) {
		t.Fatalf("bad date: %v", err)
	}
}
