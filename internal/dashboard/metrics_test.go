package dashboard

import (
	"testing"

	"painel/internal/core"
)

func TestHashColor(t *testing.T) {
	cases := map[string]string{
		"":   "#CCCCCC",
		"a":  "#610000",
		"ab": "#210c00",
	}
	for in, want := range cases {
		if got := HashColor(in); got != want {
			t.Errorf("HashColor(%q) = %s, want %s", in, got, want)
		}
	}
	if HashColor("Moradia > Aluguel") != HashColor("Moradia > Aluguel") {
		t.Fatal("hash is not deterministic")
	}
	if len(HashColor("Alimentação")) != 7 {
		t.Fatal("expected #rrggbb")
	}
}

func TestColorFor(t *testing.T) {
	if ColorFor(MetricEntradas) != "#10b981" || ColorFor(MetricSaldoTotal) != "#8b5cf6" {
		t.Fatal("base metrics must keep fixed colors")
	}
	if ColorFor("Moradia") != HashColor("Moradia") {
		t.Fatal("other names should be hashed")
	}
}

func TestMetricOptions(t *testing.T) {
	opts := MetricOptions(fixture())
	names := MetricNames(opts)
	want := []string{MetricEntradas, MetricSaidas, MetricResultado, MetricSaldoTotal, "Salário", "Moradia", "Moradia > Aluguel"}
	if len(names) != len(want) {
		t.Fatalf("got %v", names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("names[%d] = %q, want %q", i, names[i], want[i])
		}
	}

	colors := MetricColors(fixture(), []string{"Custom"})
	for _, n := range append(names, "Custom") {
		if colors[n] == "" {
			t.Errorf("no color for %q", n)
		}
	}
}

func TestMetricSelectionSet(t *testing.T) {
	sel := DefaultSelection()
	next, err := sel.Set(1, "Moradia")
	if err != nil {
		t.Fatalf("set: %v", err)
	}
	if next[1] != "Moradia" || sel[1] != MetricEntradas {
		t.Fatalf("unexpected selections %v / %v", sel, next)
	}
	for _, idx := range []int{-1, TileCount} {
		if _, err := sel.Set(idx, "x"); err == nil {
			t.Fatalf("index %d should fail", idx)
		}
	}
}

func TestTiles(t *testing.T) {
	kpis := KPIs{MetricResultado: core.Cents(700)}
	tiles := Tiles(kpis, MetricSelection{MetricResultado, "Unknown"}, map[string]string{})
	if tiles[0].Value.Cents != 700 || tiles[0].Color != "#0ea5e9" {
		t.Fatalf("tile 0 = %+v", tiles[0])
	}
	if !tiles[1].Value.IsZero() || tiles[1].Color != HashColor("Unknown") {
		t.Fatalf("tile 1 = %+v", tiles[1])
	}
}
