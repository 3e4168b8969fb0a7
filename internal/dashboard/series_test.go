package dashboard

import (
	"encoding/json"
	"strings"
	"testing"

	"painel/internal/core"
)

func TestBuildSeries(t *testing.T) {
	series := BuildSeries(fixture(), january())
	if len(series) != 2 {
		t.Fatalf("expected 2 points, got %d", len(series))
	}
	if series[0].Date != "2024-01-05" || series[1].Date != "2024-01-10" {
		t.Fatalf("unexpected days %s, %s", series[0].Date, series[1].Date)
	}
	if series[1].Values.Get("Moradia > Aluguel").Cents != -30000 {
		t.Fatalf("subcategory point = %v", series[1].Values)
	}
	for _, p := range series {
		if _, ok := p.Values[MetricSaldoTotal]; ok {
			t.Fatal("series points must not carry the balance")
		}
	}
}

func TestSeriesTotalsMatchKPIs(t *testing.T) {
	s := fixture()
	for _, r := range []*core.DateRange{nil, january()} {
		kpis := ComputeKPIs(s, r)
		totals := SeriesTotals(BuildSeries(s, r))
		for name, v := range totals {
			if kpis.Get(name) != v {
				t.Errorf("%s %s: series %v, kpis %v", r, name, v, kpis.Get(name))
			}
		}
	}
}

func TestBuildSeriesSkipsBadDatesAndKeepsUnknownCategoryDays(t *testing.T) {
	s := core.NewSnapshot(nil, nil, nil, []core.Entry{
		{ID: "1", Date: "garbage", CategoryID: "zz", Value: core.Cents(1), Status: core.StatusPaid},
		{ID: "2", Date: "2024-02-01", CategoryID: "zz", Value: core.Cents(1), Status: core.StatusPaid},
		{ID: "3", Date: "2024-02-02", CategoryID: "zz", Value: core.Cents(1), Status: core.StatusPending},
	})
	series := BuildSeries(s, nil)
	if len(series) != 1 || series[0].Date != "2024-02-01" {
		t.Fatalf("unexpected series %+v", series)
	}
	if !series[0].Values.Get(MetricResultado).IsZero() {
		t.Fatal("unknown category must not contribute")
	}
}

func TestBuildSeriesEmpty(t *testing.T) {
	series := BuildSeries(core.EmptySnapshot(), nil)
	if series == nil || len(series) != 0 {
		t.Fatalf("expected an empty, non-nil series, got %#v", series)
	}
}

func TestSeriesPointJSON(t *testing.T) {
	p := SeriesPoint{Date: "2024-01-05", Values: KPIs{MetricEntradas: core.Cents(1050)}}
	data, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	s := string(data)
	if !strings.Contains(s, `"date":"2024-01-05"`) || !strings.Contains(s, `"Entradas":10.5`) {
		t.Fatalf("unexpected json %s", s)
	}
}
