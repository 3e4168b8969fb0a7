package http

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"painel/internal/core"
	"painel/internal/dashboard"
)

func TestParseTableFilter(t *testing.T) {
	f := ParseTableFilter(url.Values{"search": {"  mer\x00cado "}, "category": {"c1"}, "subcategory": {"s1"}})
	if f.Search != "mercado" || f.CategoryID != "c1" || f.SubcategoryID != "s1" {
		t.Fatalf("filter = %+v", f)
	}
}

func TestParseSortParams(t *testing.T) {
	tests := []struct {
		name    string
		query   url.Values
		want    dashboard.SortSpec
		ok      bool
		wantErr bool
	}{
		{"absent", url.Values{}, dashboard.SortSpec{}, false, false},
		{"column and dir", url.Values{"sort": {"value"}, "dir": {"DESC"}}, dashboard.SortSpec{Col: dashboard.ColValue, Dir: dashboard.SortDesc}, true, false},
		{"unsorted", url.Values{"sort": {"date"}}, dashboard.SortSpec{Col: dashboard.ColDate}, true, false},
		{"unknown column", url.Values{"sort": {"amount"}}, dashboard.SortSpec{}, false, true},
		{"unknown dir", url.Values{"sort": {"date"}, "dir": {"up"}}, dashboard.SortSpec{}, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok, err := ParseSortParams(tt.query)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !core.IsValidationError(err) {
				t.Fatalf("expected validation error, got %T", err)
			}
			if ok != tt.ok || got != tt.want {
				t.Fatalf("got %+v/%v, want %+v/%v", got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestParseMetricsParam(t *testing.T) {
	if _, ok := ParseMetricsParam(url.Values{}); ok {
		t.Fatal("absent metrics should not override the selection")
	}
	sel, ok := ParseMetricsParam(url.Values{"metrics": {"Moradia,,Moradia > Aluguel,x,extra"}})
	if !ok {
		t.Fatal("expected selection")
	}
	def := dashboard.DefaultSelection()
	if len(sel) != len(def) || sel[0] != "Moradia" || sel[1] != def[1] || sel[2] != "Moradia > Aluguel" || sel[3] != "x" {
		t.Fatalf("selection = %v", sel)
	}
}

func TestParseIndex(t *testing.T) {
	if n, err := ParseIndex("2"); err != nil || n != 2 {
		t.Fatalf("got %d, %v", n, err)
	}
	for _, bad := range []string{"-1", "x", ""} {
		if _, err := ParseIndex(bad); !core.IsValidationError(err) {
			t.Errorf("%q: got %v", bad, err)
		}
	}
}

func TestDecodeJSON(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"valid", `{"name":"Mercado"}`, false},
		{"empty", ``, true},
		{"malformed", `{"name":`, true},
		{"too large", `{"name":"` + strings.Repeat("a", maxBodyBytes) + `"}`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var dst struct{ Name string }
			r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			err := decodeJSON(httptest.NewRecorder(), r, &dst)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !core.IsValidationError(err) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}
